package feature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sccp-protocol/sccp-go/pkg/call"
	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/indicate"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// StatusNotifier publishes line status to hint subscribers.
// Implemented by hint.Manager.
type StatusNotifier interface {
	NotifyStatus(st hint.LineStatus) bool
}

// Config configures a Dispatcher.
type Config struct {
	Registry *registry.Registry
	Calls    *call.Manager
	Engine   *indicate.Engine

	// Hints receives DND and forward changes. Optional.
	Hints StatusNotifier

	// Settings persists DND and forward changes. Optional.
	Settings pbx.SettingsStore

	Flags  Flags
	Logger *slog.Logger
}

// Dispatcher runs features for key presses.
type Dispatcher struct {
	reg      *registry.Registry
	calls    *call.Manager
	engine   *indicate.Engine
	hints    StatusNotifier
	settings pbx.SettingsStore
	logger   *slog.Logger

	mu    sync.RWMutex
	flags Flags
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		reg:      cfg.Registry,
		calls:    cfg.Calls,
		engine:   cfg.Engine,
		hints:    cfg.Hints,
		settings: cfg.Settings,
		logger:   cfg.Logger,
		flags:    cfg.Flags,
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d
}

// Flags returns the current feature flags.
func (d *Dispatcher) Flags() Flags {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.flags
}

// SetFlags replaces the feature flags. Presses already dispatched are not
// affected.
func (d *Dispatcher) SetFlags(f Flags) {
	d.mu.Lock()
	d.flags = f
	d.mu.Unlock()
}

// target is the context a key press refers to.
type target struct {
	dev  *registry.Device
	line *registry.Line
	inst uint8
	ch   *registry.Channel
}

// resolve finds the device, line and channel of a press. The line falls
// back to the device's current line and then to its first line; the
// channel is only set when callID names a channel of the device.
func (d *Dispatcher) resolve(deviceID string, instance, callID uint32) (target, error) {
	dev, ok := d.reg.Device(deviceID)
	if !ok {
		return target{}, fmt.Errorf("%s: %w", deviceID, registry.ErrUnknownDevice)
	}
	t := target{dev: dev}
	if callID != 0 {
		if ch, ok := d.reg.Channel(callID); ok && ch.Device() == deviceID {
			t.ch = ch
		}
	}
	if instance != 0 {
		if l, ok := d.reg.LineByInstance(deviceID, uint8(instance)); ok {
			t.line = l
		}
	}
	if t.line == nil && t.ch != nil {
		t.line, _ = d.reg.Line(t.ch.Line())
	}
	if t.line == nil {
		if cur := dev.Get().CurrentLine; cur != "" {
			t.line, _ = d.reg.Line(cur)
		}
	}
	if t.line == nil {
		if atts := d.reg.LinesOf(deviceID); len(atts) > 0 {
			t.line, _ = d.reg.Line(atts[0].Line)
		}
	}
	if t.line != nil {
		t.inst, _ = d.reg.InstanceOf(deviceID, t.line.Name())
	}
	return t, nil
}

// channel returns the channel of the press or the device's active channel.
func (d *Dispatcher) channel(t target) *registry.Channel {
	if t.ch != nil {
		return t.ch
	}
	ch, _ := d.calls.Active(t.dev.ID())
	return ch
}

// inState returns the first channel of the device in one of states,
// preferring channels on line l.
func (d *Dispatcher) inState(t target, states ...registry.ChannelState) *registry.Channel {
	var fallback *registry.Channel
	for _, ch := range d.reg.ChannelsByDevice(t.dev.ID()) {
		s := ch.State()
		for _, want := range states {
			if s != want {
				continue
			}
			if t.line == nil || ch.Line() == t.line.Name() {
				return ch
			}
			if fallback == nil {
				fallback = ch
			}
		}
	}
	return fallback
}

func (d *Dispatcher) notify(t target, text string) {
	if err := d.engine.Send(t.dev.ID(), &wire.DisplayNotify{Timeout: station.NotifyTimeout, Text: text}); err != nil {
		d.logger.Debug("notify failed", "device", t.dev.ID(), "err", err)
	}
}

// report turns a call control error into a station notification.
func (d *Dispatcher) report(t target, err error) {
	if err == nil {
		return
	}
	d.logger.Info("feature failed", "device", t.dev.ID(), "err", err)
	switch {
	case errors.Is(err, registry.ErrLineLimit):
		d.notify(t, station.NotifyLineLimit)
	case errors.Is(err, call.ErrHoldFailed):
		d.notify(t, station.NotifyHoldFailed)
	case errors.Is(err, call.ErrNoLine):
		d.notify(t, station.NotifyNoLine)
	case errors.Is(err, call.ErrTransferTarget):
		d.notify(t, station.NotifySelectTwo)
	case errors.Is(err, pbx.ErrUnsupported):
		d.notify(t, station.NotifyNotSupported)
	case errors.Is(err, call.ErrInvalidState):
		d.notify(t, station.NotifyNoActiveCall)
	default:
		d.notify(t, station.NotifyFeatureOff)
	}
}

// newCall opens a call on the target line, or dials number on an off-hook
// channel that has not been routed yet.
func (d *Dispatcher) newCall(ctx context.Context, t target, number string) {
	if t.line == nil {
		d.notify(t, station.NotifyNoLine)
		return
	}
	if number != "" {
		if ch := d.channel(t); ch != nil {
			info := ch.Get()
			if !info.Routed && (info.State == registry.StateOffHook || info.State == registry.StateDialing) {
				d.report(t, d.calls.Dial(ctx, ch, number))
				return
			}
		}
	}
	_, err := d.calls.NewCall(ctx, t.dev.ID(), t.line.Name(), number)
	d.report(t, err)
}
