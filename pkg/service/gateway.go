package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sccp-protocol/sccp-go/pkg/call"
	"github.com/sccp-protocol/sccp-go/pkg/dialtimer"
	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/indicate"
	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/metrics"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registration"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Gateway ties the station listener to registration, call control and
// feature dispatch.
type Gateway struct {
	config Config
	reg    *registry.Registry

	server       *transport.Server
	sweeper      *transport.Sweeper
	registration *registration.Manager
	engine       *indicate.Engine
	calls        *call.Manager
	features     *feature.Dispatcher
	hints        HintTracker
	timers       *dialtimer.Manager
	router       pbx.Router
	local        *pbx.LocalRouter
	post         pbx.PostRegistration

	handlers map[wire.Kind]handler

	metrics *metrics.Metrics
	trace   log.Logger
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.RWMutex
	state    State
	started  time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	group    *errgroup.Group
	workers  map[string]*deviceWorker
	claims   map[string]string
	softKeys map[string]*station.SoftKeys
}

// NewGateway wires the gateway components. The listener is bound by Start.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("%w: registry is required", ErrInvalidConfig)
	}
	if cfg.ServerName == "" {
		cfg.ServerName = DefaultServerName
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	if cfg.MaxSubscriptions <= 0 {
		cfg.MaxSubscriptions = hint.DefaultMaxSubscriptions
	}

	g := &Gateway{
		config:   cfg,
		reg:      cfg.Registry,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      cfg.Now,
		post:     cfg.PostRegistration,
		workers:  make(map[string]*deviceWorker),
		claims:   make(map[string]string),
		softKeys: make(map[string]*station.SoftKeys),
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.post == nil {
		g.post = pbx.NopPostRegistration{}
	}
	g.trace = cfg.Trace
	if cfg.Metrics != nil {
		g.trace = log.NewMultiLogger(cfg.Trace, cfg.Metrics)
	}
	g.trace = log.OrNoop(g.trace)

	g.router = cfg.Router
	media := cfg.Media
	if g.router == nil {
		g.local = pbx.NewLocalRouter(pbx.LocalConfig{
			Resolve:     g.resolveNumber,
			CallerID:    g.callerID,
			PickupGroup: g.pickupGroup,
			Logger:      g.logger,
		})
		g.local.Attach(g)
		g.router = g.local
		if media == nil {
			media = g.local
		}
	}

	g.hints = hint.NewManagerWithConfig(hint.Config{MaxSubscriptions: cfg.MaxSubscriptions})
	g.hints.OnNotification(g.deliverHint)

	g.timers = dialtimer.NewManager(cfg.DialTimer)
	g.timers.OnExpiry(g.dialExpired)

	g.engine = indicate.New(indicate.Config{
		Registry: g.reg,
		Media:    media,
		Hints:    g.hints,
		Lookup:   g.sender,
		SoftKeys: g.softKeysOf,
		Trace:    g.trace,
		Logger:   g.logger,
		Now:      g.now,
	})
	g.calls = call.NewManager(call.Config{
		Registry: g.reg,
		Engine:   g.engine,
		Router:   g.router,
		Timers:   g.timers,
		Logger:   g.logger,
	})
	g.features = feature.NewDispatcher(feature.Config{
		Registry: g.reg,
		Calls:    g.calls,
		Engine:   g.engine,
		Hints:    g.hints,
		Settings: cfg.Settings,
		Flags:    cfg.Features,
		Logger:   g.logger,
	})
	g.registration = registration.NewManager(registration.Config{
		Registry:           g.reg,
		ACL:                cfg.ACL,
		LocalNets:          cfg.LocalNets,
		Resolver:           cfg.Resolver,
		KeepAlive:          cfg.KeepAlive,
		SecondaryKeepAlive: cfg.SecondaryKeepAlive,
		DateTemplate:       cfg.DateTemplate,
		MaxProtocol:        cfg.MaxProtocol,
		RestartInterval:    cfg.RestartInterval,
		Sessions:           g.conn,
		OnRegistered:       g.onRegistered,
		OnRelease:          g.onRelease,
		Trace:              g.trace,
		Logger:             g.logger,
		Now:                g.now,
	})

	g.server = transport.NewServer(transport.ServerConfig{
		Address:         cfg.Address,
		Codec:           cfg.Codec,
		WriteTimeout:    cfg.WriteTimeout,
		TraceLogger:     g.trace,
		Logger:          g.logger,
		OnMessage:       g.onMessage,
		OnProtocolError: g.onProtocolError,
		OnClose:         g.onClose,
	})
	g.sweeper = transport.NewSweeper(cfg.Sweeper, g.server.Sessions, g.onExpired)
	g.handlers = g.handlerTable()

	if cfg.Metrics != nil {
		cfg.Metrics.AddGauge("gateway", "sessions", "Connected stations", func() float64 {
			return float64(g.server.SessionCount())
		})
		cfg.Metrics.AddGauge("gateway", "channels", "Live call legs", func() float64 {
			return float64(len(g.reg.Channels()))
		})
		cfg.Metrics.AddGauge("gateway", "hint_subscriptions", "Busy lamp subscriptions", func() float64 {
			return float64(g.hints.Count())
		})
	}
	return g, nil
}

// State returns the lifecycle state.
func (g *Gateway) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Registry returns the registry the gateway serves.
func (g *Gateway) Registry() *registry.Registry {
	return g.reg
}

// Features returns the feature dispatcher, e.g. to change flags at runtime.
func (g *Gateway) Features() *feature.Dispatcher {
	return g.features
}

// Addr returns the listen address, or nil before Start.
func (g *Gateway) Addr() net.Addr {
	return g.server.Addr()
}

// Start binds the listener and starts the background tasks. A bind failure
// is returned and the gateway stays idle.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.state != StateIdle {
		g.mu.Unlock()
		return ErrAlreadyStarted
	}
	g.state = StateStarting
	g.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	if err := g.server.Start(groupCtx); err != nil {
		cancel()
		g.mu.Lock()
		g.state = StateIdle
		g.mu.Unlock()
		return err
	}

	g.mu.Lock()
	g.ctx, g.cancel, g.group = groupCtx, cancel, group
	g.started = g.now()
	g.state = StateRunning
	g.mu.Unlock()

	g.Go("sweeper", g.sweeper.Run)
	if g.local != nil {
		g.Go("local-router", g.local.Run)
	}
	g.logger.Info("gateway started", "addr", g.server.Addr().String(), "devices", len(g.reg.Devices()),
		"lines", len(g.reg.Lines()))
	return nil
}

// Go runs fn as a background task of the running gateway. A returned error
// stops the gateway. It reports false when the gateway is not running.
func (g *Gateway) Go(name string, fn func(ctx context.Context) error) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.state != StateRunning {
		return false
	}
	ctx := g.ctx
	g.group.Go(func() error {
		if err := fn(ctx); err != nil {
			g.logger.Error("background task failed", "task", name, "err", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	})
	return true
}

// Done is closed when the gateway stops or a background task fails.
func (g *Gateway) Done() <-chan struct{} {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.ctx == nil {
		return nil
	}
	return g.ctx.Done()
}

// Stop closes every session and waits up to StopGrace for the background
// tasks.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return ErrNotStarted
	}
	g.state = StateStopping
	cancel, group := g.cancel, g.group
	g.mu.Unlock()

	g.server.Stop()
	g.sweeper.Stop()
	cancel()
	g.timers.Stop()
	g.hints.ClearAll()

	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-time.After(g.config.StopGrace):
		err = ErrStopTimeout
	}

	g.mu.Lock()
	g.state = StateStopped
	g.mu.Unlock()
	g.logger.Info("gateway stopped")
	return err
}

// worker returns the worker of a device, starting it on first use. It
// returns nil when the gateway is not running.
func (g *Gateway) worker(deviceID string) *deviceWorker {
	g.mu.Lock()
	defer g.mu.Unlock()
	if w, ok := g.workers[deviceID]; ok {
		return w
	}
	if g.state != StateRunning {
		return nil
	}
	w := newDeviceWorker(deviceID, g.logger, g.metrics)
	g.workers[deviceID] = w
	ctx := g.ctx
	g.group.Go(func() error { return w.run(ctx) })
	return w
}

// submit queues fn on the worker of a device.
func (g *Gateway) submit(deviceID, name string, fn func(ctx context.Context)) bool {
	w := g.worker(deviceID)
	if w == nil {
		g.debugLog("dropping device task", "device", deviceID, "task", name)
		return false
	}
	w.post(name, fn)
	return true
}

// await runs fn on the worker of a device and waits for its result.
func (g *Gateway) await(ctx context.Context, deviceID, name string, fn func(ctx context.Context) error) error {
	w := g.worker(deviceID)
	if w == nil {
		return ErrNotStarted
	}
	done := make(chan error, 1)
	w.post(name, func(ctx context.Context) {
		err := ErrHandlerPanicked
		defer func() { done <- err }()
		err = fn(ctx)
	})

	g.mu.RLock()
	stopped := g.ctx.Done()
	g.mu.RUnlock()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		return ErrNotStarted
	}
}

func (g *Gateway) debugLog(msg string, args ...any) {
	g.logger.Debug(msg, args...)
}

// conn returns the session bound to a session id.
func (g *Gateway) conn(id string) (transport.Conn, bool) {
	sess, ok := g.server.Session(id)
	if !ok {
		return nil, false
	}
	return sess, true
}

// session returns the session a device is bound to.
func (g *Gateway) session(deviceID string) (*transport.Session, bool) {
	dev, ok := g.reg.Device(deviceID)
	if !ok {
		return nil, false
	}
	sid := dev.SessionID()
	if sid == "" {
		return nil, false
	}
	sess, ok := g.server.Session(sid)
	if !ok || sess.Closed() {
		return nil, false
	}
	return sess, true
}

// sender looks up the session of a device for the indicate engine.
func (g *Gateway) sender(deviceID string) indicate.Sender {
	sess, ok := g.session(deviceID)
	if !ok {
		return nil
	}
	return sess
}

func (g *Gateway) softKeysOf(deviceID string) *station.SoftKeys {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.softKeys[deviceID]
}

// resolveNumber maps a dialed number to a line for the local router. A line
// forwarded unconditionally rings its forward target instead.
func (g *Gateway) resolveNumber(number string) (string, bool) {
	line, ok := g.reg.Line(number)
	if !ok {
		return "", false
	}
	if fwd := line.Get().ForwardAll; fwd != "" && fwd != number {
		if _, ok := g.reg.Line(fwd); ok {
			return fwd, true
		}
	}
	return line.Name(), true
}

func (g *Gateway) callerID(ch pbx.ChannelRef) (string, string) {
	if line, ok := g.reg.Line(ch.Line); ok {
		return line.CallerID()
	}
	return "", ch.Line
}

func (g *Gateway) pickupGroup(lineName string) string {
	if line, ok := g.reg.Line(lineName); ok {
		return line.Config().PickupGroup
	}
	return ""
}
