package indicate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Sender delivers messages to a connected station.
// Implemented by transport.Session.
type Sender interface {
	SendAll(msgs ...wire.Message) error
}

// Notifier publishes hint events. Implemented by hint.Manager.
type Notifier interface {
	Notify(ev hint.Event) bool
}

// Config configures an Engine.
type Config struct {
	Registry *registry.Registry

	// Media opens and closes RTP resources. Defaults to pbx.NopMedia.
	Media pbx.Media

	// Hints receives line events. Optional.
	Hints Notifier

	// Lookup returns the sender of a connected device, or nil.
	Lookup func(deviceID string) Sender

	// SoftKeys returns the soft key layout of a device. Optional; without
	// it every key is enabled.
	SoftKeys func(deviceID string) *station.SoftKeys

	// Trace receives channel state changes.
	Trace log.Logger

	Logger *slog.Logger

	// Now is the clock used for DefineTimeDate. Defaults to time.Now.
	Now func() time.Time
}

// Engine applies channel transitions.
type Engine struct {
	reg      *registry.Registry
	media    pbx.Media
	hints    Notifier
	lookup   func(string) Sender
	softKeys func(string) *station.SoftKeys
	trace    log.Logger
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an engine.
func New(cfg Config) *Engine {
	e := &Engine{
		reg:      cfg.Registry,
		media:    cfg.Media,
		hints:    cfg.Hints,
		lookup:   cfg.Lookup,
		softKeys: cfg.SoftKeys,
		trace:    log.OrNoop(cfg.Trace),
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if e.media == nil {
		e.media = pbx.NopMedia{}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Indicate moves ch to state and sends the resulting messages to the owning
// station. The state change happens even when the station is not connected;
// the returned error only reports a failed send.
func (e *Engine) Indicate(ctx context.Context, ch *registry.Channel, state registry.ChannelState) error {
	dev, ok := e.reg.Device(ch.Device())
	if !ok {
		return fmt.Errorf("indicate call %d: %w", ch.CallID(), registry.ErrUnknownDevice)
	}
	line, ok := e.reg.Line(ch.Line())
	if !ok {
		return fmt.Errorf("indicate call %d: %w", ch.CallID(), registry.ErrUnknownLine)
	}
	inst, _ := e.reg.InstanceOf(dev.ID(), line.Name())

	info := ch.Update(func(ci *registry.ChannelInfo) {
		ci.PrevState = ci.State
		ci.State = state
	})

	t := &transition{
		e:      e,
		ctx:    ctx,
		ch:     ch,
		dev:    dev,
		line:   line,
		inst:   uint32(inst),
		callID: ch.CallID(),
		prev:   info.PrevState,
		info:   info,
	}
	t.apply(state)

	e.logger.Debug("indicate",
		"device", dev.ID(), "call", t.callID,
		"from", t.prev.String(), "to", state.String(), "messages", len(t.msgs))
	e.trace.Log(log.Event{
		Timestamp: e.now(),
		SessionID: dev.SessionID(),
		Direction: log.DirectionOut,
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		DeviceID:  dev.ID(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityChannel,
			OldState: t.prev.String(),
			NewState: state.String(),
			CallID:   t.callID,
		},
	})

	err := e.send(dev.ID(), t.msgs)
	e.notify(t, state)
	return err
}

// Send delivers msgs to a device if it is connected.
func (e *Engine) Send(deviceID string, msgs ...wire.Message) error {
	return e.send(deviceID, msgs)
}

func (e *Engine) send(deviceID string, msgs []wire.Message) error {
	if len(msgs) == 0 || e.lookup == nil {
		return nil
	}
	s := e.lookup(deviceID)
	if s == nil {
		return nil
	}
	if err := s.SendAll(msgs...); err != nil {
		return fmt.Errorf("send to %s: %w", deviceID, err)
	}
	return nil
}

func (e *Engine) notify(t *transition, state registry.ChannelState) {
	if e.hints == nil {
		return
	}
	if state == registry.StateDown && !t.prev.Live() {
		return
	}
	if state == t.prev && state != registry.StateOnHook {
		return
	}
	info := t.ch.Get()
	e.hints.Notify(hint.Event{
		Line:          t.line.Name(),
		Device:        t.dev.ID(),
		CallID:        t.callID,
		State:         state,
		Direction:     info.Direction,
		CallingName:   info.CallingName,
		CallingNumber: info.CallingNumber,
		CalledName:    info.CalledName,
		CalledNumber:  info.CalledNumber,
		Private:       info.Private,
	})
}

// CallInfo builds the CallInfo message for a channel shown on button inst.
func CallInfo(info registry.ChannelInfo, inst, callID uint32) *wire.CallInfo {
	m := &wire.CallInfo{
		CallingPartyName: info.CallingName,
		CallingParty:     info.CallingNumber,
		CalledPartyName:  info.CalledName,
		CalledParty:      info.CalledNumber,
		Line:             inst,
		CallRef:          callID,
		Type:             info.Direction,
		CallInstance:     callID,
	}
	if info.Private {
		m.PartyPIRestrictionBits = 0xF
	}
	return m
}
