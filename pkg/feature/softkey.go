package feature

import (
	"context"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// SoftKey runs the feature bound to a soft key press. Failures are shown on
// the station; only an unknown device returns an error.
func (d *Dispatcher) SoftKey(ctx context.Context, deviceID string, key wire.SoftKey, instance, callID uint32) error {
	t, err := d.resolve(deviceID, instance, callID)
	if err != nil {
		return err
	}
	d.logger.Debug("soft key", "device", deviceID, "key", key.String(), "line", instance, "call", callID)

	switch key {
	case wire.SoftKeyRedial:
		d.redial(ctx, t)
	case wire.SoftKeyNewCall:
		d.newCall(ctx, t, "")
	case wire.SoftKeyHold:
		d.hold(ctx, t)
	case wire.SoftKeyResume:
		d.resume(ctx, t)
	case wire.SoftKeyTransfer:
		d.transfer(ctx, t)
	case wire.SoftKeyEndCall:
		d.endCall(ctx, t)
	case wire.SoftKeyBackSpace:
		if ch := d.channel(t); ch != nil && ch.State() == registry.StateDialing {
			d.report(t, d.calls.Backspace(ctx, ch))
		}
	case wire.SoftKeyAnswer:
		d.answer(ctx, t)
	case wire.SoftKeyDirTrfr:
		if !d.transferEnabled(t) {
			d.notify(t, station.NotifyTransferOff)
			return nil
		}
		d.report(t, d.calls.DirectTransfer(ctx, deviceID))
	case wire.SoftKeySelect:
		if ch := d.channel(t); ch != nil {
			_, err := d.calls.Select(ch)
			d.report(t, err)
		}
	case wire.SoftKeyCFwdAll:
		d.forward(ctx, t, registry.ForwardAll)
	case wire.SoftKeyCFwdBusy:
		d.forward(ctx, t, registry.ForwardBusy)
	case wire.SoftKeyPark:
		d.park(ctx, t)
	case wire.SoftKeyTrnsfVM, wire.SoftKeyIDivert:
		d.divert(ctx, t)
	case wire.SoftKeyPrivate:
		d.private(t)
	case wire.SoftKeyPickup, wire.SoftKeyGPickup:
		d.pickup(ctx, t)
	case wire.SoftKeyConfrn, wire.SoftKeyJoin, wire.SoftKeyMeetMe:
		d.conference(ctx, t, d.Flags().Conference)
	case wire.SoftKeyBarge:
		d.conference(ctx, t, d.Flags().Barge)
	case wire.SoftKeyDND:
		d.toggleDND(ctx, t)
	default:
		d.notify(t, station.NotifyNotSupported)
	}
	return nil
}

func (d *Dispatcher) redial(ctx context.Context, t target) {
	last := t.dev.Get().LastNumber
	if last == "" {
		d.notify(t, station.NotifyNoRedial)
		return
	}
	d.newCall(ctx, t, last)
}

func (d *Dispatcher) hold(ctx context.Context, t target) {
	ch := d.channel(t)
	if ch == nil || !ch.State().Live() {
		d.notify(t, station.NotifyNoCallToHold)
		return
	}
	d.report(t, d.calls.Hold(ctx, ch))
}

func (d *Dispatcher) resume(ctx context.Context, t target) {
	ch := t.ch
	if ch == nil {
		ch = d.inState(t, registry.StateHold, registry.StateCallTransfer)
	}
	if ch == nil {
		d.notify(t, station.NotifyCallNotFound)
		return
	}
	d.report(t, d.calls.Resume(ctx, ch))
}

func (d *Dispatcher) answer(ctx context.Context, t target) {
	ch := t.ch
	if ch == nil {
		ch = d.inState(t, registry.StateRingIn, registry.StateCallWaiting)
	}
	if ch == nil {
		d.notify(t, station.NotifyCallNotFound)
		return
	}
	d.report(t, d.calls.Answer(ctx, ch))
}

func (d *Dispatcher) endCall(ctx context.Context, t target) {
	if ch := d.channel(t); ch != nil {
		d.calls.Hangup(ctx, ch)
	}
}

func (d *Dispatcher) transferEnabled(t target) bool {
	if !d.Flags().Transfer || !t.dev.Config().Transfer {
		return false
	}
	return t.line == nil || t.line.Config().Transfer
}

func (d *Dispatcher) transfer(ctx context.Context, t target) {
	if !d.transferEnabled(t) {
		d.notify(t, station.NotifyTransferOff)
		return
	}
	ch := d.channel(t)
	if ch == nil {
		d.notify(t, station.NotifyNoActiveCall)
		return
	}
	_, err := d.calls.Transfer(ctx, ch)
	d.report(t, err)
}

func (d *Dispatcher) park(ctx context.Context, t target) {
	if !d.Flags().Park || !t.dev.Config().Park {
		d.notify(t, station.NotifyFeatureOff)
		return
	}
	ch := d.channel(t)
	if ch == nil {
		d.notify(t, station.NotifyNoActiveCall)
		return
	}
	d.report(t, d.calls.Park(ctx, ch))
}

// divert sends a ringing call to the line's voicemail.
func (d *Dispatcher) divert(ctx context.Context, t target) {
	ch := t.ch
	if ch == nil {
		ch = d.inState(t, registry.StateRingIn, registry.StateCallWaiting)
	}
	if ch == nil {
		d.notify(t, station.NotifyCallNotFound)
		return
	}
	line, ok := d.reg.Line(ch.Line())
	if !ok {
		d.notify(t, station.NotifyNoVoicemail)
		return
	}
	dest := line.Config().TransferToVM
	if dest == "" {
		dest = line.Config().Voicemail
	}
	if dest == "" {
		d.notify(t, station.NotifyNoVoicemail)
		return
	}
	d.report(t, d.calls.Redirect(ctx, ch, dest))
}

func (d *Dispatcher) private(t target) {
	if !d.Flags().Private || !t.dev.Config().Private {
		d.notify(t, station.NotifyPrivateOff)
		return
	}
	var on bool
	ch := d.channel(t)
	if ch != nil {
		on = ch.Update(func(c *registry.ChannelInfo) { c.Private = !c.Private }).Private
	} else {
		on = t.dev.Update(func(i *registry.DeviceInfo) { i.PrivateNext = !i.PrivateNext }).PrivateNext
	}
	text := station.PromptEnterNumber
	if on {
		text = station.PromptPrivate
	}
	msg := &wire.DisplayPromptStatus{Text: text, Line: uint32(t.inst)}
	if ch != nil {
		msg.CallRef = ch.CallID()
	}
	if err := d.engine.Send(t.dev.ID(), msg); err != nil {
		d.logger.Debug("private prompt failed", "device", t.dev.ID(), "err", err)
	}
}

func (d *Dispatcher) pickup(ctx context.Context, t target) {
	if !d.Flags().Pickup {
		d.notify(t, station.NotifyFeatureOff)
		return
	}
	if t.line == nil {
		d.notify(t, station.NotifyNoLine)
		return
	}
	name := t.line.Config().PickupGroup
	if name == "" {
		name = t.dev.Config().PickupGroup
	}
	if name == "" {
		d.notify(t, station.NotifyNoPickupGroup)
		return
	}
	_, err := d.calls.Pickup(ctx, t.dev.ID(), t.line.Name(), name)
	d.report(t, err)
}

func (d *Dispatcher) conference(ctx context.Context, t target, enabled bool) {
	if !enabled {
		d.notify(t, station.NotifyNotSupported)
		return
	}
	ch := d.channel(t)
	if ch == nil {
		d.notify(t, station.NotifyNoActiveCall)
		return
	}
	d.report(t, d.calls.Conference(ctx, ch))
}
