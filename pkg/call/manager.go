package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sccp-protocol/sccp-go/pkg/dialtimer"
	"github.com/sccp-protocol/sccp-go/pkg/indicate"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Call control errors.
var (
	ErrInvalidState   = errors.New("invalid call state")
	ErrNoActiveCall   = errors.New("no active call")
	ErrNoLine         = errors.New("no line available")
	ErrHoldFailed     = errors.New("cannot hold active call")
	ErrNotRegistered  = errors.New("device not registered")
	ErrNoDestination  = errors.New("no device available")
	ErrTransferTarget = errors.New("no transfer target")
)

// Config configures a Manager.
type Config struct {
	Registry *registry.Registry
	Engine   *indicate.Engine
	Router   pbx.Router

	// Timers collects dialed digits. Optional.
	Timers *dialtimer.Manager

	Logger *slog.Logger
}

// Manager runs call control operations.
type Manager struct {
	reg    *registry.Registry
	engine *indicate.Engine
	router pbx.Router
	timers *dialtimer.Manager
	logger *slog.Logger
}

// NewManager creates a call manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		reg:    cfg.Registry,
		engine: cfg.Engine,
		router: cfg.Router,
		timers: cfg.Timers,
		logger: cfg.Logger,
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}
	return m
}

// Ref returns the collaborator reference of a channel.
func Ref(ch *registry.Channel) pbx.ChannelRef {
	return pbx.ChannelRef{CallID: ch.CallID(), Line: ch.Line(), Device: ch.Device()}
}

// Active returns the active channel of a device.
func (m *Manager) Active(deviceID string) (*registry.Channel, bool) {
	dev, ok := m.reg.Device(deviceID)
	if !ok {
		return nil, false
	}
	id := dev.ActiveChannel()
	if id == 0 {
		return nil, false
	}
	return m.reg.Channel(id)
}

// NewCall opens a call on line for a device. A non-empty number is dialed
// right away, otherwise the station gets dial tone and digits are collected.
func (m *Manager) NewCall(ctx context.Context, deviceID, lineName, number string) (*registry.Channel, error) {
	dev, ok := m.reg.Device(deviceID)
	if !ok {
		return nil, fmt.Errorf("new call: %s: %w", deviceID, registry.ErrUnknownDevice)
	}
	if !dev.Registered() {
		return nil, fmt.Errorf("new call: %s: %w", deviceID, ErrNotRegistered)
	}
	line, ok := m.reg.Line(lineName)
	if !ok {
		return nil, fmt.Errorf("new call: %s: %w", lineName, ErrNoLine)
	}
	if err := m.clearActive(ctx, dev); err != nil {
		return nil, err
	}

	ch, err := m.reg.AllocateChannel(lineName, deviceID, wire.CallTypeOutbound)
	if err != nil {
		return nil, fmt.Errorf("new call: %w", err)
	}
	name, num := line.CallerID()
	var private bool
	dev.Update(func(di *registry.DeviceInfo) {
		private = di.PrivateNext
		di.PrivateNext = false
	})
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.CallingName = name
		ci.CallingNumber = num
		ci.Private = private
	})

	if err := m.router.Allocate(ctx, Ref(ch)); err != nil {
		m.indicate(ctx, ch, registry.StateCongestion)
		m.reg.RemoveChannel(ch.CallID())
		return nil, fmt.Errorf("new call: allocate: %w", err)
	}
	m.logger.Info("new call", "device", deviceID, "line", lineName, "call", ch.CallID())

	m.indicate(ctx, ch, registry.StateOffHook)
	if number != "" {
		return ch, m.Dial(ctx, ch, number)
	}
	m.arm(ch, 0)
	return ch, nil
}

// clearActive holds the active call of a device. A call that cannot be
// held fails with ErrHoldFailed and stays active.
func (m *Manager) clearActive(ctx context.Context, dev *registry.Device) error {
	id := dev.ActiveChannel()
	if id == 0 {
		return nil
	}
	active, ok := m.reg.Channel(id)
	if !ok {
		dev.ClearActiveChannel(id)
		return nil
	}
	info := active.Get()
	if !info.State.Live() {
		dev.ClearActiveChannel(id)
		return nil
	}
	if err := m.Hold(ctx, active); err != nil {
		return fmt.Errorf("%w: %w", ErrHoldFailed, err)
	}
	return nil
}

// Digit adds a keypad digit to a dialing channel. '#' dials immediately.
func (m *Manager) Digit(ctx context.Context, ch *registry.Channel, digit byte) error {
	info := ch.Get()
	if info.Routed || (info.State != registry.StateOffHook && info.State != registry.StateDialing) {
		return fmt.Errorf("digit on call %d in %s: %w", ch.CallID(), info.State, ErrInvalidState)
	}
	info = ch.Update(func(ci *registry.ChannelInfo) { ci.Dialed += string(digit) })
	if number, done := dialtimer.Terminated(info.Dialed); done {
		return m.Dial(ctx, ch, number)
	}
	m.indicate(ctx, ch, registry.StateDialing)
	m.arm(ch, len(info.Dialed))
	return nil
}

// Backspace removes the last collected digit.
func (m *Manager) Backspace(ctx context.Context, ch *registry.Channel) error {
	info := ch.Get()
	if info.State != registry.StateDialing || info.Routed {
		return fmt.Errorf("backspace on call %d in %s: %w", ch.CallID(), info.State, ErrInvalidState)
	}
	info = ch.Update(func(ci *registry.ChannelInfo) {
		if n := len(ci.Dialed); n > 0 {
			ci.Dialed = ci.Dialed[:n-1]
		}
	})
	m.engine.Send(ch.Device(), &wire.BackSpaceReq{Line: m.instance(ch), CallRef: ch.CallID()})
	m.indicate(ctx, ch, registry.StateDialing)
	m.arm(ch, len(info.Dialed))
	return nil
}

// DialCollected dials what a channel has collected so far. It is called
// when the digit timer expires.
func (m *Manager) DialCollected(ctx context.Context, ch *registry.Channel) error {
	info := ch.Get()
	if info.Routed {
		return nil
	}
	if info.Dialed == "" {
		m.indicate(ctx, ch, registry.StateInvalidNumber)
		return nil
	}
	number, _ := dialtimer.Terminated(info.Dialed)
	return m.Dial(ctx, ch, number)
}

// Dial hands number to the router. Router failures become call progress
// states: unknown numbers, busy and congestion.
func (m *Manager) Dial(ctx context.Context, ch *registry.Channel, number string) error {
	m.cancelTimer(ch)
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.Dialed = number
		ci.CalledNumber = number
		ci.Routed = true
	})
	if dev, ok := m.reg.Device(ch.Device()); ok {
		dev.Update(func(di *registry.DeviceInfo) { di.LastNumber = number })
	}
	m.indicate(ctx, ch, registry.StateDialing)

	err := m.router.Dial(ctx, Ref(ch), number)
	switch {
	case err == nil:
		m.logger.Info("dial", "call", ch.CallID(), "number", number)
		return nil
	case errors.Is(err, pbx.ErrNotFound):
		m.indicate(ctx, ch, registry.StateInvalidNumber)
	case errors.Is(err, pbx.ErrBusy):
		m.indicate(ctx, ch, registry.StateBusy)
	default:
		m.indicate(ctx, ch, registry.StateCongestion)
	}
	m.logger.Info("dial failed", "call", ch.CallID(), "number", number, "err", err)
	return nil
}

// Answer answers a ringing channel, holding the active call first.
func (m *Manager) Answer(ctx context.Context, ch *registry.Channel) error {
	state := ch.State()
	if state != registry.StateRingIn && state != registry.StateCallWaiting {
		return fmt.Errorf("answer call %d in %s: %w", ch.CallID(), state, ErrInvalidState)
	}
	dev, ok := m.reg.Device(ch.Device())
	if !ok {
		return registry.ErrUnknownDevice
	}
	if dev.ActiveChannel() != ch.CallID() {
		if err := m.clearActive(ctx, dev); err != nil {
			return err
		}
	}
	if err := m.router.Answer(ctx, Ref(ch)); err != nil {
		return fmt.Errorf("answer call %d: %w", ch.CallID(), err)
	}
	m.indicate(ctx, ch, registry.StateConnected)
	return nil
}

// Hold puts a connected channel on hold.
func (m *Manager) Hold(ctx context.Context, ch *registry.Channel) error {
	state := ch.State()
	if state != registry.StateConnected && state != registry.StateProceed {
		return fmt.Errorf("hold call %d in %s: %w", ch.CallID(), state, ErrInvalidState)
	}
	m.indicate(ctx, ch, registry.StateHold)
	return nil
}

// Resume takes a held channel off hold, holding the active call first.
func (m *Manager) Resume(ctx context.Context, ch *registry.Channel) error {
	state := ch.State()
	if state != registry.StateHold && state != registry.StateCallTransfer {
		return fmt.Errorf("resume call %d in %s: %w", ch.CallID(), state, ErrInvalidState)
	}
	dev, ok := m.reg.Device(ch.Device())
	if !ok {
		return registry.ErrUnknownDevice
	}
	if err := m.clearActive(ctx, dev); err != nil {
		return err
	}
	dev.Update(func(di *registry.DeviceInfo) {
		if di.TransferSource == ch.CallID() {
			di.TransferSource = 0
		}
	})
	m.indicate(ctx, ch, registry.StateConnected)
	return nil
}

// Hangup ends a channel and releases its router leg.
func (m *Manager) Hangup(ctx context.Context, ch *registry.Channel) {
	m.end(ctx, ch, true)
}

// RemoteHangup ends a channel the router already released.
func (m *Manager) RemoteHangup(ctx context.Context, ch *registry.Channel) {
	m.end(ctx, ch, false)
}

func (m *Manager) end(ctx context.Context, ch *registry.Channel, release bool) {
	m.cancelTimer(ch)
	if release {
		if err := m.router.Hangup(ctx, Ref(ch)); err != nil {
			m.logger.Warn("router hangup failed", "call", ch.CallID(), "err", err)
		}
	}
	m.indicate(ctx, ch, registry.StateOnHook)
	m.reg.RemoveChannel(ch.CallID())
	if dev, ok := m.reg.Device(ch.Device()); ok {
		id := ch.CallID()
		dev.Update(func(di *registry.DeviceInfo) {
			if di.TransferSource == id {
				di.TransferSource = 0
			}
			di.Selected = slices.DeleteFunc(di.Selected, func(s uint32) bool { return s == id })
		})
	}
	m.logger.Info("call ended", "call", ch.CallID(), "device", ch.Device())
}

// Progress applies a call progress report from the router.
func (m *Manager) Progress(ctx context.Context, ch *registry.Channel, state registry.ChannelState) error {
	switch state {
	case registry.StateRingOut, registry.StateBusy, registry.StateCongestion,
		registry.StateProceed, registry.StateConnected:
	default:
		return fmt.Errorf("progress %s on call %d: %w", state, ch.CallID(), ErrInvalidState)
	}
	m.indicate(ctx, ch, state)
	return nil
}

// Incoming offers a call to a line. The first registered device on the line
// that is not rejecting calls rings; an occupied device gets call waiting.
func (m *Manager) Incoming(ctx context.Context, lineName string, in pbx.IncomingCall) (*registry.Channel, error) {
	line, ok := m.reg.Line(lineName)
	if !ok {
		return nil, fmt.Errorf("incoming: %s: %w", lineName, pbx.ErrNotFound)
	}
	dev := m.ringTarget(lineName)
	if dev == nil {
		return nil, fmt.Errorf("incoming on %s: %w", lineName, pbx.ErrBusy)
	}
	ch, err := m.reg.AllocateChannel(lineName, dev.ID(), wire.CallTypeInbound)
	if err != nil {
		return nil, fmt.Errorf("incoming on %s: %w: %w", lineName, pbx.ErrBusy, err)
	}
	name, num := line.CallerID()
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.CallingName = in.CallingName
		ci.CallingNumber = in.CallingNumber
		ci.CalledName = name
		ci.CalledNumber = num
		if in.CalledNumber != "" {
			ci.CalledNumber = in.CalledNumber
		}
		ci.Peer = in.Peer
	})

	state := registry.StateRingIn
	if active, ok := m.Active(dev.ID()); ok && active.State().Live() {
		state = registry.StateCallWaiting
	}
	m.indicate(ctx, ch, state)
	m.logger.Info("incoming call", "line", lineName, "device", dev.ID(), "call", ch.CallID(), "from", in.CallingNumber)
	return ch, nil
}

func (m *Manager) ringTarget(lineName string) *registry.Device {
	for _, att := range m.reg.DevicesOnLine(lineName) {
		dev, ok := m.reg.Device(att.Device)
		if !ok || !dev.Registered() {
			continue
		}
		if dev.Get().DND == registry.DNDReject {
			continue
		}
		return dev
	}
	return nil
}

func (m *Manager) indicate(ctx context.Context, ch *registry.Channel, state registry.ChannelState) {
	if err := m.engine.Indicate(ctx, ch, state); err != nil {
		m.logger.Debug("indicate failed", "call", ch.CallID(), "state", state.String(), "err", err)
	}
}

func (m *Manager) instance(ch *registry.Channel) uint32 {
	inst, _ := m.reg.InstanceOf(ch.Device(), ch.Line())
	return uint32(inst)
}

func (m *Manager) arm(ch *registry.Channel, digits int) {
	if m.timers != nil {
		m.timers.Arm(ch.CallID(), ch.Device(), digits)
	}
}

func (m *Manager) cancelTimer(ch *registry.Channel) {
	if m.timers != nil {
		m.timers.Cancel(ch.CallID())
	}
}
