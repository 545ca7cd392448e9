package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sccp-protocol/sccp-go/pkg/config"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/service"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Runner errors.
var (
	ErrStillOpen  = errors.New("connection still open")
	ErrNoMessage  = errors.New("expected message not received")
	ErrBadKeypad  = errors.New("not a keypad digit")
	ErrNotDialled = errors.New("phone is not connected")
)

// Config configures a Runner.
type Config struct {
	// Logger receives gateway logs. Nil discards them.
	Logger *slog.Logger

	// Timeout bounds a scenario without its own timeout.
	Timeout time.Duration

	// StepTimeout is how long expect steps wait by default.
	StepTimeout time.Duration
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:     10 * time.Second,
		StepTimeout: 2 * time.Second,
	}
}

// Runner plays scenarios against a freshly started gateway each.
type Runner struct {
	config Config
	logger *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg Config) *Runner {
	d := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = d.StepTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{config: cfg, logger: logger}
}

// run is the state of one scenario execution.
type run struct {
	r      *Runner
	gw     *service.Gateway
	codec  wire.Codec
	phones map[string]*phone
	vars   map[string]any
}

type phone struct {
	Phone
	conn *transport.ClientConn

	// backlog holds messages read while waiting for another kind.
	backlog []wire.Message
}

// Run executes sc. Steps stop at the first failure.
func (r *Runner) Run(ctx context.Context, sc *Scenario) *Result {
	result := &Result{Scenario: sc}

	timeout := r.config.Timeout
	if sc.Timeout != "" {
		d, err := time.ParseDuration(sc.Timeout)
		if err != nil {
			result.Error = fmt.Errorf("invalid timeout: %w", err)
			return result
		}
		timeout = d
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg, err := gatewayConfig(sc)
	if err != nil {
		result.Error = err
		return result
	}
	reg := registry.New()
	defer reg.Shutdown()
	if err := cfg.Populate(reg); err != nil {
		result.Error = err
		return result
	}

	svc, err := r.serviceConfig(cfg, reg)
	if err != nil {
		result.Error = err
		return result
	}
	gw, err := service.NewGateway(svc)
	if err != nil {
		result.Error = err
		return result
	}
	if err := gw.Start(ctx); err != nil {
		result.Error = fmt.Errorf("gateway start: %w", err)
		return result
	}
	defer gw.Stop()

	st := &run{r: r, gw: gw, codec: svc.Codec, phones: make(map[string]*phone), vars: make(map[string]any)}
	for _, p := range sc.Phones {
		st.phones[p.Name] = &phone{Phone: p}
	}
	defer st.closeAll()

	result.Passed = true
	for i := range sc.Steps {
		step := &sc.Steps[i]
		err := st.step(ctx, step)
		result.Steps = append(result.Steps, StepResult{Index: i + 1, Step: step, Passed: err == nil, Error: err})
		if err != nil {
			result.Passed = false
			result.Error = fmt.Errorf("step %d (%s %s): %w", i+1, step.Phone, step.Action, err)
			break
		}
		if ctx.Err() != nil {
			result.Passed = false
			result.Error = fmt.Errorf("scenario timed out after step %d", i+1)
			break
		}
	}
	return result
}

// gatewayConfig parses the inlined configuration of sc.
func gatewayConfig(sc *Scenario) (*config.Config, error) {
	if sc.Config.Kind == 0 {
		return config.Default(), nil
	}
	data, err := yaml.Marshal(&sc.Config)
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	return config.Parse(data)
}

func (r *Runner) serviceConfig(cfg *config.Config, reg *registry.Registry) (service.Config, error) {
	codec, err := cfg.Codec()
	if err != nil {
		return service.Config{}, err
	}
	sc := service.DefaultConfig()
	sc.Address = "127.0.0.1:0"
	sc.Codec = codec
	sc.Registry = reg
	sc.ACL = cfg.ACL()
	sc.LocalNets = cfg.LocalNets()
	sc.KeepAlive = cfg.Gateway.KeepAlive
	sc.DialTimer = cfg.DialTimer()
	sc.Features = cfg.Features
	sc.Logger = r.logger
	return sc, nil
}

func (st *run) closeAll() {
	for _, p := range st.phones {
		if p.conn != nil {
			p.conn.Close()
		}
	}
}

// conn returns the phone's connection, dialing on first use.
func (st *run) conn(ctx context.Context, p *phone) (*transport.ClientConn, error) {
	if p.conn != nil {
		return p.conn, nil
	}
	c, err := transport.Dial(ctx, st.gw.Addr().String(), transport.ClientConfig{Codec: st.codec})
	if err != nil {
		return nil, err
	}
	p.conn = c
	return c, nil
}

func (st *run) within(step *Step) (time.Duration, error) {
	if step.Within == "" {
		return st.r.config.StepTimeout, nil
	}
	return time.ParseDuration(step.Within)
}

func (st *run) step(ctx context.Context, step *Step) error {
	if step.Action == ActionSleep {
		d, err := st.within(step)
		if err != nil {
			return err
		}
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p := st.phones[step.Phone]
	if step.Action == ActionClose {
		if p.conn == nil {
			return ErrNotDialled
		}
		err := p.conn.Close()
		p.conn, p.backlog = nil, nil
		return err
	}

	c, err := st.conn(ctx, p)
	if err != nil {
		return err
	}

	switch step.Action {
	case ActionRegister:
		return st.register(c, p, step)
	case ActionSend:
		m, err := newMessage(step.Message, step.Fields, st.vars)
		if err != nil {
			return err
		}
		return c.Send(m)
	case ActionExpect:
		return st.expect(c, p, step)
	case ActionExpectClosed:
		return st.expectClosed(c, step)
	case ActionDial:
		return dial(c, step.Digits)
	case ActionSoftKey:
		return st.softKey(c, step)
	}
	return fmt.Errorf("%w: %q", ErrUnknownStep, step.Action)
}

func (st *run) register(c *transport.ClientConn, p *phone, step *Step) error {
	devType, proto := p.Type, p.Protocol
	if devType == 0 {
		devType = wire.DeviceType7960
	}
	if proto == 0 {
		proto = 11
	}
	if err := c.Send(&wire.Register{DeviceName: p.Device, DeviceType: devType, ProtocolVersion: proto}); err != nil {
		return err
	}
	d, err := st.within(step)
	if err != nil {
		return err
	}
	m, skipped, err := c.ReceiveUntil(wire.KindRegisterAck, d)
	p.backlog = append(p.backlog, skipped...)
	if err != nil {
		return err
	}
	return capture(m, step.Save, st.vars)
}

// expect waits for a message of the named kind matching every field.
// Messages of other kinds stay queued for later steps; earlier messages of
// the same kind that do not match are dropped.
func (st *run) expect(c *transport.ClientConn, p *phone, step *Step) error {
	kind, ok := wire.ParseKind(step.Message)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, step.Message)
	}
	d, err := st.within(step)
	if err != nil {
		return err
	}

	var mismatch error
	kept := p.backlog[:0]
	var found wire.Message
	for _, m := range p.backlog {
		if found != nil || m.Kind() != kind {
			kept = append(kept, m)
			continue
		}
		if mismatch = matchFields(m, step.Fields, st.vars); mismatch == nil {
			found = m
		} else if !errors.Is(mismatch, ErrFieldMismatch) {
			return mismatch
		}
	}
	p.backlog = kept
	if found != nil {
		return capture(found, step.Save, st.vars)
	}

	deadline := time.Now().Add(d)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			break
		}
		m, err := c.Receive(left)
		if errors.Is(err, transport.ErrTimeout) {
			break
		}
		if err != nil {
			return err
		}
		if m.Kind() != kind {
			p.backlog = append(p.backlog, m)
			continue
		}
		if mismatch = matchFields(m, step.Fields, st.vars); mismatch == nil {
			return capture(m, step.Save, st.vars)
		}
		if !errors.Is(mismatch, ErrFieldMismatch) {
			return mismatch
		}
	}
	if mismatch != nil {
		return fmt.Errorf("%w: %s (last: %v)", ErrNoMessage, step.Message, mismatch)
	}
	return fmt.Errorf("%w: %s", ErrNoMessage, step.Message)
}

func (st *run) expectClosed(c *transport.ClientConn, step *Step) error {
	d, err := st.within(step)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if _, err := c.Receive(time.Until(deadline)); err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				break
			}
			return nil
		}
	}
	return ErrStillOpen
}

// dial presses the keypad buttons of digits.
func dial(c *transport.ClientConn, digits string) error {
	for _, r := range digits {
		var button uint32
		switch {
		case r >= '0' && r <= '9':
			button = uint32(r - '0')
		case r == '*':
			button = 14
		case r == '#':
			button = 15
		default:
			return fmt.Errorf("%w: %q", ErrBadKeypad, r)
		}
		if err := c.Send(&wire.KeypadButton{Button: button}); err != nil {
			return err
		}
	}
	return nil
}

func (st *run) softKey(c *transport.ClientConn, step *Step) error {
	m, err := newMessage("SoftKeyEvent", step.Fields, st.vars)
	if err != nil {
		return err
	}
	ev := m.(*wire.SoftKeyEvent)
	if step.Key != "" {
		v, err := convert(step.Key, reflect.TypeOf(ev.Event), st.vars)
		if err != nil {
			return err
		}
		ev.Event = wire.SoftKey(v.Uint())
	}
	return c.Send(ev)
}
