package indicate

import (
	"context"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// transition collects the effects of one Indicate call.
type transition struct {
	e      *Engine
	ctx    context.Context
	ch     *registry.Channel
	dev    *registry.Device
	line   *registry.Line
	inst   uint32
	callID uint32
	prev   registry.ChannelState
	info   registry.ChannelInfo
	msgs   []wire.Message
}

func (t *transition) add(msgs ...wire.Message) {
	t.msgs = append(t.msgs, msgs...)
}

func (t *transition) apply(state registry.ChannelState) {
	cfg := t.dev.Config()

	switch state {
	case registry.StateDown:
		t.dev.ClearActiveChannel(t.callID)

	case registry.StateOffHook:
		t.add(&wire.ClearNotify{}, &wire.ClearPromptStatus{})
		t.mwiOff(cfg)
		t.add(
			&wire.SetSpeakerMode{Mode: wire.SpeakerOn},
			t.lamp(wire.LampOn),
			t.callState(wire.CallStateOffHook),
			t.prompt(station.PromptEnterNumber),
			t.keys(wire.KeySetOffHook),
			&wire.ActivateCallPlane{Line: t.inst},
			t.tone(wire.ToneInsideDial),
		)
		t.activate()

	case registry.StateOnHook:
		wasActive := t.dev.ClearActiveChannel(t.callID)
		if wasActive {
			t.add(&wire.SetSpeakerMode{Mode: wire.SpeakerOff})
		}
		t.add(
			t.callState(wire.CallStateOnHook),
			t.callInfo(),
			&wire.ClearPromptStatus{Line: t.inst, CallRef: t.callID},
			t.keys(wire.KeySetOnHook),
		)
		if t.prev == registry.StateRingIn {
			t.add(t.ringer(wire.RingOff))
		}
		t.add(&wire.StopTone{Line: t.inst, CallRef: t.callID})
		if t.prev != registry.StateCallWaiting && !t.lineBusy() {
			t.add(t.lamp(wire.LampOff))
		}
		t.closeMedia()
		t.ch.Update(func(ci *registry.ChannelInfo) { ci.State = registry.StateDown })
		if t.dev.Get().DeviceType == wire.DeviceType7936 {
			t.add(&wire.Reset{Type: wire.ResetRestart})
		}

	case registry.StateRingOut:
		t.add(t.callState(wire.CallStateRingOut), t.callInfo())
		if cfg.EarlyRTP == registry.EarlyRTPDialing || cfg.EarlyRTP == registry.EarlyRTPRingOut {
			t.openReceive()
		}
		if !t.info.ReceiveOpen {
			t.add(t.tone(wire.ToneAlerting))
		}
		t.add(t.keys(wire.KeySetRingOut), t.prompt(station.PromptRingOut))

	case registry.StateRingIn:
		t.add(&wire.ClearNotify{}, &wire.ClearPromptStatus{Line: t.inst})
		t.mwiOff(cfg)
		t.add(
			t.callState(wire.CallStateRingIn),
			t.callInfo(),
			t.lamp(wire.LampBlink),
			t.ringer(t.ringStyle()),
			t.keys(wire.KeySetRingIn),
		)

	case registry.StateConnected:
		set := wire.KeySetConnected
		if cfg.Transfer {
			set = wire.KeySetConnTrans
		}
		t.add(
			t.ringer(wire.RingOff),
			&wire.SetSpeakerMode{Mode: wire.SpeakerOn},
			&wire.StopTone{Line: t.inst, CallRef: t.callID},
			t.lamp(wire.LampOn),
			t.callState(wire.CallStateConnected),
			t.callInfo(),
			&wire.ActivateCallPlane{Line: t.inst},
			t.keys(set),
			t.prompt(station.PromptConnected),
		)
		t.openReceive()
		t.activate()

	case registry.StateBusy:
		if !t.info.ReceiveOpen {
			t.add(t.tone(wire.ToneLineBusy))
		}
		t.add(t.prompt(station.PromptBusy))

	case registry.StateCongestion:
		if !t.info.ReceiveOpen {
			t.add(t.tone(wire.ToneReorder))
		}
		t.add(t.prompt(station.PromptTempFail))

	case registry.StateProceed:
		t.add(
			&wire.StopTone{Line: t.inst, CallRef: t.callID},
			t.callState(wire.CallStateProceed),
			t.callInfo(),
			t.prompt(station.PromptProceed),
		)
		t.openReceive()

	case registry.StateHold:
		t.closeMedia()
		t.add(
			wire.NewDefineTimeDate(t.e.now()),
			t.callState(wire.CallStateHold),
			t.keys(wire.KeySetOnHold),
			t.prompt(station.PromptHold),
			&wire.SetSpeakerMode{Mode: wire.SpeakerOff},
			t.lamp(wire.LampWink),
		)
		t.dev.ClearActiveChannel(t.callID)

	case registry.StateCallWaiting:
		t.add(
			t.tone(wire.ToneCallWaiting),
			t.callState(wire.CallStateRingIn),
			t.callInfo(),
			t.prompt(station.PromptCallWaiting),
			t.keys(wire.KeySetRingIn),
		)

	case registry.StateCallTransfer:
		t.add(t.prompt(station.PromptTransfer))

	case registry.StateCallPark:
		t.add(t.callState(wire.CallStateCallPark))

	case registry.StateDialing:
		t.add(&wire.StopTone{Line: t.inst, CallRef: t.callID})
		if t.info.Dialed != "" {
			t.add(&wire.DialedNumber{Number: t.info.Dialed, Line: t.inst, CallRef: t.callID})
		}
		t.add(
			t.keys(wire.KeySetDigitsFoll),
			&wire.ClearPromptStatus{Line: t.inst, CallRef: t.callID},
		)
		if cfg.EarlyRTP == registry.EarlyRTPDialing {
			t.openReceive()
		}

	case registry.StateInvalidNumber:
		t.closeMedia()
		t.add(
			t.tone(wire.ToneReorder),
			t.callInfo(),
			t.prompt(station.PromptUnknownNumber),
		)
	}
}

func (t *transition) activate() {
	t.dev.SetActiveChannel(t.callID)
	t.dev.Update(func(di *registry.DeviceInfo) { di.CurrentLine = t.line.Name() })
}

// lineBusy reports whether the device has another live channel on the line.
func (t *transition) lineBusy() bool {
	for _, other := range t.e.reg.ChannelsByDevice(t.dev.ID()) {
		if other.CallID() != t.callID && other.Line() == t.line.Name() && other.State().Live() {
			return true
		}
	}
	return false
}

func (t *transition) mwiOff(cfg registry.DeviceConfig) {
	if cfg.MWIOnCall {
		return
	}
	t.add(
		&wire.SetLamp{Stimulus: wire.StimulusVoiceMail, Instance: t.inst, Mode: wire.LampOff},
		&wire.SetLamp{Stimulus: wire.StimulusVoiceMail, Instance: 0, Mode: wire.LampOff},
	)
}

func (t *transition) ringStyle() wire.RingerMode {
	if t.dev.Get().DND == registry.DNDSilent {
		return wire.RingSilent
	}
	if t.info.RingStyle != 0 {
		return t.info.RingStyle
	}
	return wire.RingOutside
}

func (t *transition) lamp(mode wire.LampMode) *wire.SetLamp {
	return &wire.SetLamp{Stimulus: wire.StimulusLine, Instance: t.inst, Mode: mode}
}

func (t *transition) ringer(mode wire.RingerMode) *wire.SetRinger {
	return &wire.SetRinger{Mode: mode, Duration: 1, Line: t.inst, CallRef: t.callID}
}

func (t *transition) tone(tone wire.Tone) *wire.StartTone {
	return &wire.StartTone{Tone: tone, Line: t.inst, CallRef: t.callID}
}

func (t *transition) callState(s wire.CallState) *wire.CallStateMsg {
	return &wire.CallStateMsg{State: s, Line: t.inst, CallRef: t.callID, Priority: wire.CallPriorityNormal}
}

func (t *transition) callInfo() *wire.CallInfo {
	return CallInfo(t.ch.Get(), t.inst, t.callID)
}

func (t *transition) prompt(text string) *wire.DisplayPromptStatus {
	return &wire.DisplayPromptStatus{Text: text, Line: t.inst, CallRef: t.callID}
}

func (t *transition) keys(set wire.KeySet) *wire.SelectSoftKeys {
	mask := station.AllKeys
	if t.e.softKeys != nil {
		if sk := t.e.softKeys(t.dev.ID()); sk != nil {
			mask = sk.Mask(set, t.dev.Get().LastNumber != "")
		}
	}
	return &wire.SelectSoftKeys{Line: t.inst, CallRef: t.callID, Set: set, ValidKeyMask: mask}
}
