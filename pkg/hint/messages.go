package hint

import (
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

const offHookName = "Off Hook"

// EventMessages returns the updates for a subscriber button showing ev.
func EventMessages(ev Event, instance uint8) []wire.Message {
	inst := uint32(instance)
	switch ev.State {
	case registry.StateOnHook, registry.StateDown:
		return []wire.Message{
			&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: inst, Mode: wire.LampOff},
			&wire.CallStateMsg{State: wire.CallStateOnHook, Line: inst},
		}
	}

	lamp := wire.LampOn
	if ev.State == registry.StateRingIn {
		lamp = wire.LampBlink
	}
	info := &wire.CallInfo{
		CallingPartyName: ev.CallingName,
		CallingParty:     ev.CallingNumber,
		CalledPartyName:  ev.CalledName,
		CalledParty:      ev.CalledNumber,
		Line:             inst,
		CallRef:          ev.CallID,
		Type:             ev.Direction,
	}
	if ev.State == registry.StateOffHook {
		info.CallingPartyName = offHookName
		info.CalledPartyName = offHookName
	}
	return []wire.Message{
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: inst, Mode: lamp},
		&wire.CallStateMsg{State: wire.CallStateRemoteMultiline, Line: inst, CallRef: ev.CallID},
		info,
		&wire.SelectSoftKeys{Line: inst, CallRef: ev.CallID, Set: wire.KeySetInUseHint, ValidKeyMask: 0xFFFFFFFF},
	}
}

// StatusMessages returns the updates for a subscriber button showing the
// administrative state of a line. An idle line clears the lamp.
func StatusMessages(st LineStatus, instance uint8) []wire.Message {
	inst := uint32(instance)
	var name string
	switch {
	case st.DND:
		name = "DND"
	case st.ForwardAll != "":
		name = "Forwarded to " + st.ForwardAll
	default:
		return []wire.Message{&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: inst, Mode: wire.LampOff}}
	}
	return []wire.Message{
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: inst, Mode: wire.LampOn},
		&wire.CallInfo{CallingPartyName: name, CalledPartyName: name, Line: inst},
	}
}
