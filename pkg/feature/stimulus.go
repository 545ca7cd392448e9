package feature

import (
	"context"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Stimulus runs the feature bound to a button press. instance is the button
// instance the station reported.
func (d *Dispatcher) Stimulus(ctx context.Context, deviceID string, stim wire.Stimulus, instance, callID uint32) error {
	lineInstance := uint32(0)
	if stim == wire.StimulusLine {
		lineInstance = instance
	}
	t, err := d.resolve(deviceID, lineInstance, callID)
	if err != nil {
		return err
	}
	d.logger.Debug("stimulus", "device", deviceID, "stimulus", stim.String(), "instance", instance)

	switch stim {
	case wire.StimulusLastNumberRedial:
		d.redial(ctx, t)
	case wire.StimulusSpeedDial:
		d.speedDial(ctx, t, uint8(instance))
	case wire.StimulusHold:
		d.hold(ctx, t)
	case wire.StimulusTransfer:
		d.transfer(ctx, t)
	case wire.StimulusForwardAll:
		d.forward(ctx, t, registry.ForwardAll)
	case wire.StimulusForwardBusy:
		d.forward(ctx, t, registry.ForwardBusy)
	case wire.StimulusDisplay, wire.StimulusServiceURL:
	case wire.StimulusLine:
		d.selectLine(ctx, t)
	case wire.StimulusVoiceMail:
		d.voicemail(ctx, t)
	case wire.StimulusFeature:
		d.featureButton(ctx, t, uint8(instance))
	case wire.StimulusConference, wire.StimulusMeetMeConference:
		d.conference(ctx, t, d.Flags().Conference)
	case wire.StimulusCallPark:
		d.park(ctx, t)
	case wire.StimulusCallPickup, wire.StimulusGroupCallPickup:
		d.pickup(ctx, t)
	default:
		d.notify(t, station.NotifyNotSupported)
	}
	return nil
}

func (d *Dispatcher) speedDial(ctx context.Context, t target, instance uint8) {
	b, ok := t.dev.Button(registry.ButtonSpeedDial, instance)
	cfg := t.dev.Config()
	if !ok || b.Index >= len(cfg.SpeedDials) || cfg.SpeedDials[b.Index].Number == "" {
		d.notify(t, station.NotifyNotSupported)
		return
	}
	d.newCall(ctx, t, cfg.SpeedDials[b.Index].Number)
}

// selectLine answers or resumes a call on the pressed line, or opens a new
// one.
func (d *Dispatcher) selectLine(ctx context.Context, t target) {
	if t.line == nil {
		d.notify(t, station.NotifyNoLine)
		return
	}
	t.dev.Update(func(i *registry.DeviceInfo) { i.CurrentLine = t.line.Name() })
	if ch := d.inState(t, registry.StateRingIn, registry.StateCallWaiting); ch != nil && ch.Line() == t.line.Name() {
		d.report(t, d.calls.Answer(ctx, ch))
		return
	}
	if ch := d.inState(t, registry.StateHold); ch != nil && ch.Line() == t.line.Name() {
		d.report(t, d.calls.Resume(ctx, ch))
		return
	}
	d.newCall(ctx, t, "")
}

func (d *Dispatcher) voicemail(ctx context.Context, t target) {
	if t.line == nil || t.line.Config().Voicemail == "" {
		d.notify(t, station.NotifyNoVoicemail)
		return
	}
	d.newCall(ctx, t, t.line.Config().Voicemail)
}

func (d *Dispatcher) featureButton(ctx context.Context, t target, instance uint8) {
	b, ok := t.dev.Button(registry.ButtonFeature, instance)
	cfg := t.dev.Config()
	if !ok || b.Index >= len(cfg.Features) {
		d.notify(t, station.NotifyNotSupported)
		return
	}
	switch cfg.Features[b.Index].Kind {
	case "dnd":
		d.toggleDND(ctx, t)
	case "private", "privacy":
		d.private(t)
	default:
		d.notify(t, station.NotifyNotSupported)
	}
}

// OffHook answers a ringing call or opens a new one.
func (d *Dispatcher) OffHook(ctx context.Context, deviceID string, instance, callID uint32) error {
	t, err := d.resolve(deviceID, instance, callID)
	if err != nil {
		return err
	}
	if ch := d.channel(t); ch != nil && ch.State().Live() {
		if s := ch.State(); s == registry.StateRingIn || s == registry.StateCallWaiting {
			d.report(t, d.calls.Answer(ctx, ch))
		}
		return nil
	}
	if ch := d.inState(t, registry.StateRingIn); ch != nil {
		d.report(t, d.calls.Answer(ctx, ch))
		return nil
	}
	d.newCall(ctx, t, "")
	return nil
}

// OnHook ends the active call.
func (d *Dispatcher) OnHook(ctx context.Context, deviceID string, instance, callID uint32) error {
	t, err := d.resolve(deviceID, instance, callID)
	if err != nil {
		return err
	}
	d.endCall(ctx, t)
	return nil
}

// Headset maps headset toggles to hook events.
func (d *Dispatcher) Headset(ctx context.Context, deviceID string, mode uint32) error {
	switch mode {
	case wire.HeadsetOn:
		return d.OffHook(ctx, deviceID, 0, 0)
	case wire.HeadsetOff:
		return d.OnHook(ctx, deviceID, 0, 0)
	}
	return nil
}

// Keypad adds a digit to the dial string of the call being dialed.
func (d *Dispatcher) Keypad(ctx context.Context, deviceID string, digit byte, instance, callID uint32) error {
	t, err := d.resolve(deviceID, instance, callID)
	if err != nil {
		return err
	}
	ch := d.channel(t)
	if ch == nil {
		return nil
	}
	if s := ch.State(); s != registry.StateOffHook && s != registry.StateDialing {
		return nil
	}
	if err := d.calls.Digit(ctx, ch, digit); err != nil {
		d.logger.Debug("digit ignored", "device", deviceID, "call", ch.CallID(), "err", err)
	}
	return nil
}

// Enbloc dials a complete number.
func (d *Dispatcher) Enbloc(ctx context.Context, deviceID, number string) error {
	t, err := d.resolve(deviceID, 0, 0)
	if err != nil {
		return err
	}
	if number == "" {
		return nil
	}
	d.newCall(ctx, t, number)
	return nil
}
