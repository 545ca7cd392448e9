package station

import (
	"strings"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Slot kinds used in templates. Multi slots take any configured button;
// line and speed dial slots only take their own kind. Every other value is
// a fixed feature button passed to the station unchanged.
const (
	SlotMulti     = wire.ButtonMulti
	SlotLine      = wire.ButtonLine
	SlotSpeedDial = wire.ButtonSpeedDial
)

// AddOnSlots is the number of multi slots a 7914 expansion module adds.
const AddOnSlots = 34

func repeat(t wire.ButtonType, n int) []wire.ButtonType {
	out := make([]wire.ButtonType, n)
	for i := range out {
		out[i] = t
	}
	return out
}

func concat(parts ...[]wire.ButtonType) []wire.ButtonType {
	var out []wire.ButtonType
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var (
	template7910 = []wire.ButtonType{
		SlotLine, wire.ButtonHold, wire.ButtonTransfer, wire.ButtonDisplay,
		wire.ButtonVoiceMail, wire.ButtonConference, wire.ButtonForwardAll,
		SlotSpeedDial, SlotSpeedDial, wire.ButtonLastNumberRedial,
	}
	template7902 = []wire.ButtonType{
		SlotLine, wire.ButtonHold, wire.ButtonTransfer, wire.ButtonDisplay,
		wire.ButtonVoiceMail, wire.ButtonConference, wire.ButtonForwardAll,
		SlotSpeedDial, SlotSpeedDial, SlotSpeedDial, SlotSpeedDial,
		wire.ButtonCallPark, wire.ButtonLastNumberRedial,
	}
	template7912    = concat([]wire.ButtonType{SlotLine, wire.ButtonHold}, repeat(SlotSpeedDial, 9))
	template7935    = repeat(SlotLine, 2)
	templateDefault = []wire.ButtonType{SlotLine}
)

// templates maps device types to their button layout.
var templates = map[uint32][]wire.ButtonType{
	wire.DeviceType7960:           repeat(SlotMulti, 6),
	wire.DeviceType7961:           repeat(SlotMulti, 6),
	wire.DeviceType7961GE:         repeat(SlotMulti, 6),
	wire.DeviceType7962:           repeat(SlotMulti, 6),
	wire.DeviceType7965:           repeat(SlotMulti, 6),
	wire.DeviceType7920:           repeat(SlotMulti, 6),
	wire.DeviceType7921:           repeat(SlotMulti, 6),
	wire.DeviceType7925:           repeat(SlotMulti, 6),
	wire.DeviceType7970:           repeat(SlotMulti, 8),
	wire.DeviceType7971:           repeat(SlotMulti, 8),
	wire.DeviceType7975:           repeat(SlotMulti, 8),
	wire.DeviceTypeIPCommunicator: repeat(SlotMulti, 8),
	wire.DeviceType7940:           repeat(SlotMulti, 2),
	wire.DeviceType7941:           repeat(SlotMulti, 2),
	wire.DeviceType7941GE:         repeat(SlotMulti, 2),
	wire.DeviceType7942:           repeat(SlotMulti, 2),
	wire.DeviceType7945:           repeat(SlotMulti, 2),
	wire.DeviceType7910:           template7910,
	wire.DeviceType7912:           template7912,
	wire.DeviceType7911:           template7912,
	wire.DeviceType7906:           template7912,
	wire.DeviceType7905:           template7912,
	wire.DeviceType7935:           template7935,
	wire.DeviceType7936:           template7935,
	wire.DeviceType7937:           template7935,
	wire.DeviceType7902:           template7902,
}

// profiles are the layouts selectable by name in device configuration.
var profiles = map[string][]wire.ButtonType{
	"7960":    repeat(SlotMulti, 6),
	"7970":    repeat(SlotMulti, 8),
	"7940":    repeat(SlotMulti, 2),
	"7910":    template7910,
	"7912":    template7912,
	"7935":    template7935,
	"7902":    template7902,
	"default": templateDefault,
}

// Template returns the slot layout for a device type. A known profile name
// overrides the type; each "7914" add-on appends AddOnSlots multi slots.
func Template(deviceType uint32, profile string, addOns []string) []wire.ButtonType {
	base, ok := profiles[strings.ToLower(profile)]
	if !ok {
		base, ok = templates[deviceType]
	}
	if !ok {
		base = templateDefault
	}
	out := append([]wire.ButtonType(nil), base...)
	for _, a := range addOns {
		if a == "7914" {
			out = append(out, repeat(SlotMulti, AddOnSlots)...)
		}
	}
	if len(out) > wire.MaxButtons {
		out = out[:wire.MaxButtons]
	}
	return out
}

// MaxLines returns the number of slots able to hold a line.
func MaxLines(tmpl []wire.ButtonType) int {
	n := 0
	for _, t := range tmpl {
		if t == SlotMulti || t == SlotLine {
			n++
		}
	}
	return n
}

// featureButtonType maps a configured feature kind to its button type.
func featureButtonType(kind string) wire.ButtonType {
	switch strings.ToLower(kind) {
	case "hold":
		return wire.ButtonHold
	case "transfer":
		return wire.ButtonTransfer
	case "conference":
		return wire.ButtonConference
	case "pickup":
		return wire.ButtonGroupCallPickup
	case "park":
		return wire.ButtonCallPark
	default:
		return wire.ButtonFeature
	}
}

// Layout fills a template with the device's lines, speed dials, service
// URLs and feature buttons, in that order. lines must be the device's
// attachments in configuration order. Slots left over are empty.
func Layout(tmpl []wire.ButtonType, cfg registry.DeviceConfig, lines []registry.Attachment) []registry.Button {
	out := make([]registry.Button, len(tmpl))
	used := make([]bool, len(tmpl))
	for i, t := range tmpl {
		out[i] = registry.Button{Kind: registry.ButtonEmpty, Type: t}
		if t != SlotMulti && t != SlotLine && t != SlotSpeedDial {
			out[i].Kind = registry.ButtonFeature
			out[i].Index = -1
			used[i] = true
		}
	}

	take := func(accept ...wire.ButtonType) int {
		for i, t := range tmpl {
			if used[i] {
				continue
			}
			for _, a := range accept {
				if t == a {
					used[i] = true
					return i
				}
			}
		}
		return -1
	}

	for _, a := range lines {
		i := take(SlotLine, SlotMulti)
		if i < 0 {
			break
		}
		out[i] = registry.Button{Kind: registry.ButtonLine, Instance: a.Instance, Type: wire.ButtonLine, Line: a.Line}
	}

	var speedDial uint8 = 1
	for n := range cfg.SpeedDials {
		i := take(SlotSpeedDial, SlotMulti)
		if i < 0 {
			break
		}
		out[i] = registry.Button{Kind: registry.ButtonSpeedDial, Instance: speedDial, Type: wire.ButtonSpeedDial, Index: n}
		speedDial++
	}

	var service uint8 = 1
	for n := range cfg.ServiceURLs {
		i := take(SlotMulti)
		if i < 0 {
			break
		}
		out[i] = registry.Button{Kind: registry.ButtonServiceURL, Instance: service, Type: wire.ButtonServiceURL, Index: n}
		service++
	}

	for n, f := range cfg.Features {
		i := take(SlotMulti)
		if i < 0 {
			break
		}
		out[i] = registry.Button{Kind: registry.ButtonFeature, Instance: speedDial, Type: featureButtonType(f.Kind), Index: n}
		speedDial++
	}

	for i := range out {
		if out[i].Kind == registry.ButtonEmpty {
			out[i].Type = wire.ButtonUndefined
		}
	}
	return out
}

// ButtonTemplate encodes a layout as the station's ButtonTemplate message.
func ButtonTemplate(buttons []registry.Button) *wire.ButtonTemplate {
	msg := &wire.ButtonTemplate{Buttons: make([]wire.ButtonDefinition, 0, len(buttons))}
	for _, b := range buttons {
		msg.Buttons = append(msg.Buttons, wire.ButtonDefinition{Instance: b.Instance, Type: b.Type})
	}
	msg.Total = uint32(len(msg.Buttons))
	return msg
}
