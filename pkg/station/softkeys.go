package station

import (
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Default soft key sets, indexed by key set.
var defaultSets = [wire.KeySetCount][]wire.SoftKey{
	wire.KeySetOnHook: {
		wire.SoftKeyRedial, wire.SoftKeyNewCall, wire.SoftKeyCFwdAll,
		wire.SoftKeyPickup, wire.SoftKeyGPickup, wire.SoftKeyDND,
	},
	wire.KeySetConnected: {
		wire.SoftKeyHold, wire.SoftKeyEndCall, wire.SoftKeyPark, wire.SoftKeySelect,
		wire.SoftKeyCFwdAll, wire.SoftKeyCFwdBusy, wire.SoftKeyIDivert,
	},
	wire.KeySetOnHold: {
		wire.SoftKeyResume, wire.SoftKeyNewCall, wire.SoftKeyEndCall, wire.SoftKeyTransfer,
		wire.SoftKeyConfList, wire.SoftKeySelect, wire.SoftKeyDirTrfr, wire.SoftKeyIDivert,
	},
	wire.KeySetRingIn: {
		wire.SoftKeyAnswer, wire.SoftKeyEndCall, wire.SoftKeyIDivert,
	},
	wire.KeySetOffHook: {
		wire.SoftKeyRedial, wire.SoftKeyEndCall, wire.SoftKeyPrivate, wire.SoftKeyCFwdAll,
		wire.SoftKeyCFwdBusy, wire.SoftKeyPickup, wire.SoftKeyGPickup, wire.SoftKeyMeetMe,
		wire.SoftKeyBarge,
	},
	wire.KeySetConnTrans: {
		wire.SoftKeyHold, wire.SoftKeyEndCall, wire.SoftKeyTransfer, wire.SoftKeyConfrn,
		wire.SoftKeyPark, wire.SoftKeySelect, wire.SoftKeyDirTrfr, wire.SoftKeyCFwdAll,
		wire.SoftKeyCFwdBusy,
	},
	wire.KeySetDigitsFoll: {
		wire.SoftKeyBackSpace, wire.SoftKeyEndCall,
	},
	wire.KeySetConnConf: {
		wire.SoftKeyHold, wire.SoftKeyEndCall, wire.SoftKeyJoin,
	},
	wire.KeySetRingOut: {
		wire.SoftKeyEndCall, wire.SoftKeyTransfer, wire.SoftKeyCFwdAll, wire.SoftKeyIDivert,
	},
	wire.KeySetOffHookFeat: {
		wire.SoftKeyRedial, wire.SoftKeyEndCall,
	},
	wire.KeySetInUseHint: {
		wire.SoftKeyPickup, wire.SoftKeyBarge,
	},
}

// KeyOptions says which optional soft keys a device shows.
type KeyOptions struct {
	Transfer     bool
	Park         bool
	DND          bool
	CFwdAll      bool
	CFwdBusy     bool
	CFwdNoAnswer bool
	Private      bool
	Conference   bool
	Barge        bool

	// TransferVM is set when a line of the device has a voicemail
	// transfer target.
	TransferVM bool
	MeetMe     bool
	Pickup     bool
	GPickup    bool
}

// OptionsFor derives the soft key options of a device from its
// configuration and the configuration of its lines.
func OptionsFor(dev registry.DeviceConfig, lines []registry.LineConfig) KeyOptions {
	opts := KeyOptions{
		Transfer: dev.Transfer,
		Park:     dev.Park,
		DND:      dev.DND != registry.DNDOff,
		CFwdAll:  dev.CFwdAll,
		CFwdBusy: dev.CFwdBusy,
		Private:  dev.Private,
		Pickup:   dev.PickupGroup != "",
		GPickup:  dev.PickupGroup != "",
	}
	for _, l := range lines {
		if l.TransferToVM != "" {
			opts.TransferVM = true
		}
		if l.PickupGroup != "" {
			opts.Pickup = true
			opts.GPickup = true
		}
	}
	return opts
}

func (o KeyOptions) shows(k wire.SoftKey) bool {
	switch k {
	case wire.SoftKeyPark:
		return o.Park
	case wire.SoftKeyTransfer:
		return o.Transfer
	case wire.SoftKeyDND:
		return o.DND
	case wire.SoftKeyCFwdAll:
		return o.CFwdAll
	case wire.SoftKeyCFwdBusy:
		return o.CFwdBusy
	case wire.SoftKeyCFwdNoAnswer:
		return o.CFwdNoAnswer
	case wire.SoftKeyTrnsfVM, wire.SoftKeyIDivert:
		return o.TransferVM
	case wire.SoftKeyMeetMe:
		return o.MeetMe
	case wire.SoftKeyBarge:
		return o.Barge
	case wire.SoftKeyJoin, wire.SoftKeyConfrn, wire.SoftKeyConfList:
		return o.Conference
	case wire.SoftKeyPickup:
		return o.Pickup
	case wire.SoftKeyGPickup:
		return o.GPickup
	case wire.SoftKeyPrivate:
		return o.Private
	default:
		return true
	}
}

// SoftKeys is the soft key configuration of one device.
type SoftKeys struct {
	sets [wire.KeySetCount][]wire.SoftKey
}

// NewSoftKeys filters the default sets by the device options.
func NewSoftKeys(opts KeyOptions) *SoftKeys {
	sk := &SoftKeys{}
	for i, set := range defaultSets {
		for _, k := range set {
			if opts.shows(k) && len(sk.sets[i]) < wire.MaxSoftKeyIndex {
				sk.sets[i] = append(sk.sets[i], k)
			}
		}
	}
	return sk
}

// Keys returns the keys of a set in display order.
func (sk *SoftKeys) Keys(set wire.KeySet) []wire.SoftKey {
	if int(set) >= len(sk.sets) {
		return nil
	}
	return append([]wire.SoftKey(nil), sk.sets[set]...)
}

// SetRes builds the SoftKeySetRes message. Template indexes are the 1-based
// soft key event values.
func (sk *SoftKeys) SetRes() *wire.SoftKeySetRes {
	msg := &wire.SoftKeySetRes{Sets: make([]wire.SoftKeySetDefinition, len(sk.sets))}
	for i, set := range sk.sets {
		for j, k := range set {
			msg.Sets[i].TemplateIndex[j] = uint8(k)
		}
	}
	msg.Total = uint32(len(msg.Sets))
	return msg
}

// AllKeys is the valid key mask with every key enabled.
const AllKeys uint32 = 0xFFFFFFFF

// Mask returns the valid key mask for a set. Without a number to redial the
// redial key is disabled in the idle and off-hook sets.
func (sk *SoftKeys) Mask(set wire.KeySet, canRedial bool) uint32 {
	mask := AllKeys
	if canRedial {
		return mask
	}
	switch set {
	case wire.KeySetOnHook, wire.KeySetOffHook, wire.KeySetOffHookFeat:
		for i, k := range sk.sets[set] {
			if k == wire.SoftKeyRedial {
				mask &^= 1 << i
			}
		}
	}
	return mask
}

// TemplateRes builds the SoftKeyTemplateRes message.
func TemplateRes() *wire.SoftKeyTemplateRes {
	msg := &wire.SoftKeyTemplateRes{
		Total:       uint32(wire.SoftKeyCount),
		Definitions: make([]wire.SoftKeyDefinition, 0, wire.SoftKeyCount),
	}
	for k := wire.SoftKey(1); int(k) <= wire.SoftKeyCount; k++ {
		msg.Definitions = append(msg.Definitions, wire.SoftKeyDefinition{Label: wire.LabelFor(k), Event: k})
	}
	return msg
}
