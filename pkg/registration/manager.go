package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"golang.org/x/time/rate"

	"github.com/sccp-protocol/sccp-go/pkg/acl"
	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/version"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Registration errors.
var (
	ErrNotRegistered = errors.New("session not registered")
	ErrThrottled     = errors.New("restart instruction throttled")
)

// RejectError is returned when a Register or token request was refused.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string { return "registration rejected: " + e.Reason }

// Defaults.
const (
	DefaultKeepAlive       = 60 * time.Second
	DefaultDateTemplate    = "D/M/Y"
	DefaultRestartInterval = 10 * time.Second
	TokenWaitTime          = 60
)

// Config configures a Manager.
type Config struct {
	Registry *registry.Registry

	// ACL is the global access list. Empty allows every address.
	ACL *acl.List

	// LocalNets lists the networks reached without NAT.
	LocalNets []netip.Prefix

	// Resolver resolves device permit hosts. Defaults to net.DefaultResolver.
	Resolver acl.Resolver

	KeepAlive          time.Duration
	SecondaryKeepAlive time.Duration
	DateTemplate       string

	// MaxProtocol caps the negotiated protocol version (0 = no cap).
	MaxProtocol version.Protocol

	// RestartInterval is the minimum time between restart instructions to
	// one source address.
	RestartInterval time.Duration

	// Sessions finds the session currently bound to a device.
	Sessions func(id string) (transport.Conn, bool)

	// OnRegistered runs after a device was accepted. It must not block.
	OnRegistered func(deviceID string)

	// OnRelease runs before a device's state is cleared on unregister or
	// session loss.
	OnRelease func(ctx context.Context, deviceID string)

	Trace  log.Logger
	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultConfig returns a configuration with default timers.
func DefaultConfig() Config {
	return Config{
		KeepAlive:       DefaultKeepAlive,
		DateTemplate:    DefaultDateTemplate,
		RestartInterval: DefaultRestartInterval,
	}
}

// Manager runs device registrations.
type Manager struct {
	config Config
	reg    *registry.Registry
	trace  log.Logger
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	machines map[string]*fsm.FSM
	restarts map[netip.Addr]*rate.Limiter
}

// NewManager creates a registration manager.
func NewManager(cfg Config) *Manager {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.DateTemplate == "" {
		cfg.DateTemplate = DefaultDateTemplate
	}
	if cfg.RestartInterval <= 0 {
		cfg.RestartInterval = DefaultRestartInterval
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	m := &Manager{
		config:   cfg,
		reg:      cfg.Registry,
		trace:    log.OrNoop(cfg.Trace),
		logger:   cfg.Logger,
		now:      cfg.Now,
		machines: make(map[string]*fsm.FSM),
		restarts: make(map[netip.Addr]*rate.Limiter),
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// State returns the registration state of a device.
func (m *Manager) State(deviceID string) registry.RegistrationState {
	m.mu.Lock()
	machine, ok := m.machines[deviceID]
	m.mu.Unlock()
	if !ok {
		return registry.Unregistered
	}
	return stateOf[machine.Current()]
}

func (m *Manager) machine(dev *registry.Device) *fsm.FSM {
	m.mu.Lock()
	defer m.mu.Unlock()
	if machine, ok := m.machines[dev.ID()]; ok {
		return machine
	}
	machine := newMachine(func(from, to registry.RegistrationState, reason string) {
		dev.Update(func(i *registry.DeviceInfo) { i.State = to })
		m.logger.Debug("registration state", "device", dev.ID(), "from", from.String(), "to", to.String(), "reason", reason)
		m.trace.Log(log.Event{
			Timestamp: m.now(),
			SessionID: dev.SessionID(),
			Direction: log.DirectionIn,
			Layer:     log.LayerService,
			Category:  log.CategoryState,
			DeviceID:  dev.ID(),
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityRegistration,
				OldState: from.String(),
				NewState: to.String(),
				Reason:   reason,
			},
		})
	})
	m.machines[dev.ID()] = machine
	return machine
}

// Register handles a Register message. A refused station gets a
// RegisterReject and the returned error is a *RejectError; the session
// stays open and unbound. A refused attempt leaves a device registered on
// another session as it is.
func (m *Manager) Register(ctx context.Context, conn transport.Conn, msg *wire.Register) error {
	ip := conn.RemoteIP()
	dev, ok := m.reg.Device(msg.DeviceName)
	if !ok {
		m.logger.Info("register from unknown device", "device", msg.DeviceName, "ip", ip)
		return m.reject(conn, station.NotifyUnknownDevice)
	}
	if reason, ok := m.admit(ctx, dev, ip); !ok {
		m.logger.Info("register denied", "device", dev.ID(), "ip", ip, "reason", reason)
		if live := dev.SessionID(); dev.Registered() && live != "" && live != conn.ID() {
			return m.reject(conn, reason)
		}
		machine := m.machine(dev)
		if err := fire(ctx, machine, EventRegister, "register from "+ip.String()); err != nil {
			m.logger.Debug("register transition failed", "device", dev.ID(), "err", err)
		}
		if err := fire(ctx, machine, EventReject, reason); err != nil {
			m.logger.Debug("reject transition failed", "device", dev.ID(), "err", err)
		}
		return m.reject(conn, reason)
	}

	machine := m.machine(dev)
	if err := fire(ctx, machine, EventRegister, "register from "+ip.String()); err != nil {
		return fmt.Errorf("register %s: %w", dev.ID(), err)
	}

	m.replaceSession(dev, conn)
	if err := m.accept(ctx, conn, dev, msg); err != nil {
		fire(ctx, machine, EventUnregister, err.Error())
		return err
	}
	if err := fire(ctx, machine, EventAccept, "registered"); err != nil {
		return fmt.Errorf("register %s: %w", dev.ID(), err)
	}
	m.logger.Info("device registered", "device", dev.ID(), "ip", ip, "type", msg.DeviceType,
		"protocol", dev.Get().ProtocolVersion)
	if m.config.OnRegistered != nil {
		m.config.OnRegistered(dev.ID())
	}
	return nil
}

// admit checks ip against the global list, then the device rules with
// permit-host fallback.
func (m *Manager) admit(ctx context.Context, dev *registry.Device, ip netip.Addr) (string, bool) {
	if !m.config.ACL.Empty() && !m.config.ACL.Allow(ip) {
		return station.NotifyAccessDenied, false
	}
	cfg := dev.Config()
	d := acl.CheckDevice(ctx, cfg.ACL, cfg.PermitHosts, ip, m.config.Resolver, m.logger)
	if !d.Allowed {
		return station.NotifyAccessDenied, false
	}
	return "", true
}

func (m *Manager) reject(conn transport.Conn, reason string) error {
	if err := conn.Send(&wire.RegisterReject{Text: reason}); err != nil {
		m.logger.Debug("sending reject failed", "session", conn.ID(), "err", err)
	}
	return &RejectError{Reason: reason}
}

// replaceSession closes the session a device is bound to when a new one
// registers.
func (m *Manager) replaceSession(dev *registry.Device, conn transport.Conn) {
	old := dev.SessionID()
	if old == "" || old == conn.ID() || m.config.Sessions == nil {
		return
	}
	if prior, ok := m.config.Sessions(old); ok {
		m.logger.Info("closing prior session", "device", dev.ID(), "session", old)
		prior.Unbind()
		prior.Close(transport.ReasonReplaced)
	}
}

// accept binds the session and sends RegisterAck and CapabilitiesReq.
func (m *Manager) accept(ctx context.Context, conn transport.Conn, dev *registry.Device, msg *wire.Register) error {
	cfg := dev.Config()
	ip := conn.RemoteIP()

	tmpl := station.Template(msg.DeviceType, cfg.Profile, cfg.AddOns)
	m.attachLines(dev, station.MaxLines(tmpl))
	lines := m.reg.LinesOf(dev.ID())
	buttons := station.Layout(tmpl, cfg, lines)

	proto := version.Negotiate(msg.ProtocolVersion, msg.Legacy, m.config.MaxProtocol)
	keepAlive := m.config.KeepAlive
	if cfg.KeepAlive > 0 {
		keepAlive = cfg.KeepAlive
	}
	dnd := registry.DNDOff
	if cfg.DNDActive {
		dnd = cfg.DND
		if dnd == registry.DNDUserDefined {
			dnd = registry.DNDReject
		}
	}

	if prev := dev.Get().IP; prev.IsValid() && prev != ip {
		m.reg.UnbindIP(prev, dev.ID())
	}
	conn.Bind(dev.ID())
	conn.SetKeepAlive(keepAlive)
	m.reg.BindIP(ip, dev.ID())
	dev.Update(func(i *registry.DeviceInfo) {
		i.SessionID = conn.ID()
		i.IP = ip
		i.DeviceType = msg.DeviceType
		i.ProtocolVersion = uint8(proto)
		i.Buttons = buttons
		i.KeepAlive = keepAlive
		i.NAT = m.behindNAT(ip, msg.StationIP)
		i.DND = dnd
		i.ActiveChannel = 0
		i.TransferSource = 0
		i.Selected = nil
		i.RegisteredAt = m.now()
		if len(lines) > 0 {
			i.CurrentLine = lines[0].Line
		}
	})

	secondary := m.config.SecondaryKeepAlive
	if secondary <= 0 {
		secondary = keepAlive
	}
	err := conn.SendAll(
		&wire.RegisterAck{
			KeepAlive:          uint32(keepAlive / time.Second),
			DateTemplate:       m.config.DateTemplate,
			SecondaryKeepAlive: uint32(secondary / time.Second),
			ProtocolVersion:    uint8(proto),
			Features:           proto.Features(),
		},
		&wire.CapabilitiesReq{},
	)
	if err != nil {
		conn.Unbind()
		m.reg.UnbindIP(ip, dev.ID())
		dev.Update(func(i *registry.DeviceInfo) { i.SessionID = "" })
		return fmt.Errorf("register %s: %w", dev.ID(), err)
	}
	return nil
}

// attachLines attaches the configured lines up to limit. A line attached to
// another device is skipped unless both attachments are shared.
func (m *Manager) attachLines(dev *registry.Device, limit int) {
	attached := len(m.reg.LinesOf(dev.ID()))
	for _, lb := range dev.Config().Lines {
		if attached >= limit {
			m.logger.Warn("line buttons exhausted", "device", dev.ID(), "line", lb.Line, "max", limit)
			return
		}
		if _, ok := m.reg.InstanceOf(dev.ID(), lb.Line); ok {
			continue
		}
		if _, err := m.reg.AttachLine(dev.ID(), lb.Line, lb.Instance, lb.Shared); err != nil {
			m.logger.Warn("line not attached", "device", dev.ID(), "line", lb.Line, "err", err)
			continue
		}
		attached++
	}
}

// behindNAT reports whether the station is reached through address
// translation: its source is outside the local networks, or it reports an
// address other than the one it connects from.
func (m *Manager) behindNAT(src, reported netip.Addr) bool {
	src = src.Unmap()
	if reported.IsValid() && !reported.IsUnspecified() && reported.Unmap() != src {
		return true
	}
	if len(m.config.LocalNets) == 0 {
		return false
	}
	for _, p := range m.config.LocalNets {
		if p.Contains(src) {
			return false
		}
	}
	return true
}

// Capabilities stores the codec list a registered station reported.
func (m *Manager) Capabilities(deviceID string, msg *wire.CapabilitiesRes) error {
	dev, ok := m.reg.Device(deviceID)
	if !ok {
		return fmt.Errorf("capabilities: %s: %w", deviceID, registry.ErrUnknownDevice)
	}
	dev.Update(func(i *registry.DeviceInfo) {
		i.Capabilities = append([]wire.MediaCapability(nil), msg.Capabilities...)
	})
	return nil
}

// Token answers a RegisterTokenReq. The token is granted when the device is
// known, the address is admitted and no other session holds the device.
func (m *Manager) Token(ctx context.Context, conn transport.Conn, msg *wire.RegisterTokenReq) error {
	dev, ok := m.reg.Device(msg.DeviceName)
	reason := ""
	switch {
	case !ok:
		reason = station.NotifyUnknownDevice
	case dev.Registered() && dev.SessionID() != conn.ID():
		reason = station.NotifyRejectedToken
	default:
		if r, allowed := m.admit(ctx, dev, conn.RemoteIP()); !allowed {
			reason = r
		}
	}
	if reason != "" {
		m.logger.Info("token rejected", "device", msg.DeviceName, "reason", reason)
		conn.Send(&wire.RegisterTokenReject{WaitTime: TokenWaitTime})
		return &RejectError{Reason: reason}
	}
	return conn.Send(&wire.RegisterTokenAck{})
}

// Unregister acknowledges an Unregister, releases the device and closes the
// session.
func (m *Manager) Unregister(ctx context.Context, conn transport.Conn) error {
	deviceID := conn.DeviceID()
	if deviceID == "" {
		conn.Send(&wire.UnregisterAck{Status: wire.UnregisterNAK})
		return ErrNotRegistered
	}
	m.Release(ctx, deviceID, conn.ID(), "unregister")
	err := conn.Send(&wire.UnregisterAck{Status: wire.UnregisterOK})
	conn.Unbind()
	conn.Close(transport.ReasonUnregistered)
	return err
}

// Release clears a device whose session sessionID went away. Nothing
// happens when the device has since bound another session.
func (m *Manager) Release(ctx context.Context, deviceID, sessionID, reason string) {
	dev, ok := m.reg.Device(deviceID)
	if !ok || dev.SessionID() != sessionID {
		return
	}
	if m.config.OnRelease != nil {
		m.config.OnRelease(ctx, deviceID)
	}
	if err := fire(ctx, m.machine(dev), EventUnregister, reason); err != nil {
		m.logger.Debug("unregister transition failed", "device", deviceID, "err", err)
	}
	info := dev.Get()
	m.reg.UnbindIP(info.IP, deviceID)
	m.reg.DetachLines(deviceID)
	dev.Update(func(i *registry.DeviceInfo) {
		i.SessionID = ""
		i.ActiveChannel = 0
		i.TransferSource = 0
		i.Selected = nil
		i.Buttons = nil
	})
	m.logger.Info("device released", "device", deviceID, "reason", reason)
}

// Recover handles a call message on an unbound session. The device
// registered from the session's address is rebound to it; otherwise the
// station is told to restart and ErrNotRegistered is returned.
func (m *Manager) Recover(ctx context.Context, conn transport.Conn) (string, error) {
	ip := conn.RemoteIP()
	if dev, ok := m.reg.DeviceByIP(ip); ok && dev.Registered() {
		m.replaceSession(dev, conn)
		conn.Bind(dev.ID())
		conn.SetKeepAlive(dev.Get().KeepAlive)
		dev.Update(func(i *registry.DeviceInfo) { i.SessionID = conn.ID() })
		m.logger.Info("session recovered", "device", dev.ID(), "ip", ip, "session", conn.ID())
		return dev.ID(), nil
	}

	if !m.allowRestart(ip) {
		return "", fmt.Errorf("%s: %w: %w", ip, ErrNotRegistered, ErrThrottled)
	}
	m.logger.Info("unregistered station, requesting restart", "ip", ip)
	if err := conn.Send(&wire.Reset{Type: wire.ResetHard}); err != nil {
		m.logger.Debug("sending reset failed", "ip", ip, "err", err)
	}
	return "", fmt.Errorf("%s: %w", ip, ErrNotRegistered)
}

func (m *Manager) allowRestart(ip netip.Addr) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.restarts[ip]
	if !ok {
		if len(m.restarts) >= maxThrottled {
			clear(m.restarts)
		}
		l = rate.NewLimiter(rate.Every(m.config.RestartInterval), 1)
		m.restarts[ip] = l
	}
	return l.AllowN(m.now(), 1)
}

const maxThrottled = 4096
