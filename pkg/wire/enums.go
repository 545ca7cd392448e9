package wire

// CallState is the call state shown by the station for a line/call reference.
type CallState uint32

const (
	CallStateOffHook         CallState = 1
	CallStateOnHook          CallState = 2
	CallStateRingOut         CallState = 3
	CallStateRingIn          CallState = 4
	CallStateConnected       CallState = 5
	CallStateBusy            CallState = 6
	CallStateCongestion      CallState = 7
	CallStateHold            CallState = 8
	CallStateCallWaiting     CallState = 9
	CallStateCallTransfer    CallState = 10
	CallStateCallPark        CallState = 11
	CallStateProceed         CallState = 12
	CallStateRemoteMultiline CallState = 13
	CallStateInvalidNumber   CallState = 14
)

// String returns the call state name.
func (s CallState) String() string {
	switch s {
	case CallStateOffHook:
		return "OFFHOOK"
	case CallStateOnHook:
		return "ONHOOK"
	case CallStateRingOut:
		return "RINGOUT"
	case CallStateRingIn:
		return "RINGIN"
	case CallStateConnected:
		return "CONNECTED"
	case CallStateBusy:
		return "BUSY"
	case CallStateCongestion:
		return "CONGESTION"
	case CallStateHold:
		return "HOLD"
	case CallStateCallWaiting:
		return "CALLWAITING"
	case CallStateCallTransfer:
		return "CALLTRANSFER"
	case CallStateCallPark:
		return "CALLPARK"
	case CallStateProceed:
		return "PROCEED"
	case CallStateRemoteMultiline:
		return "REMOTEMULTILINE"
	case CallStateInvalidNumber:
		return "INVALIDNUMBER"
	default:
		return "UNKNOWN"
	}
}

// CallPriority values carried in CallState.
const (
	CallPriorityHighest uint32 = 1
	CallPriorityNormal  uint32 = 4
)

// CallType is the direction shown in CallInfo.
type CallType uint32

const (
	CallTypeInbound  CallType = 1
	CallTypeOutbound CallType = 2
	CallTypeForward  CallType = 3
)

// String returns the call type name.
func (t CallType) String() string {
	switch t {
	case CallTypeInbound:
		return "INBOUND"
	case CallTypeOutbound:
		return "OUTBOUND"
	case CallTypeForward:
		return "FORWARD"
	default:
		return "UNKNOWN"
	}
}

// Tone is a station tone identifier.
type Tone uint32

const (
	ToneSilence         Tone = 0x00
	ToneInsideDial      Tone = 0x21
	ToneOutsideDial     Tone = 0x22
	ToneLineBusy        Tone = 0x23
	ToneAlerting        Tone = 0x24
	ToneReorder         Tone = 0x25
	ToneZipZip          Tone = 0x31
	ToneZip             Tone = 0x32
	ToneBeepBonk        Tone = 0x33
	ToneCallWaiting     Tone = 0x2D
	ToneConfirmation    Tone = 0x2E
	ToneNoSuchNumber    Tone = 0x2B
	ToneHold            Tone = 0x35
	ToneNone            Tone = 0x7F
	ToneDTMFStar        Tone = 0x0E
	ToneDTMFPound       Tone = 0x0F
	ToneDTMFZero        Tone = 0x0A
	ToneReceiverOffHook Tone = 0x29
)

// DigitTone returns the DTMF tone for a keypad button value (0-9, 14 for *, 15 for #).
func DigitTone(button uint32) Tone {
	switch {
	case button == 0:
		return ToneDTMFZero
	case button <= 9:
		return Tone(button)
	case button == 14:
		return ToneDTMFStar
	case button == 15:
		return ToneDTMFPound
	default:
		return ToneSilence
	}
}

// LampMode is the indicator state for a stimulus lamp.
type LampMode uint32

const (
	LampOff   LampMode = 1
	LampOn    LampMode = 2
	LampWink  LampMode = 3
	LampFlash LampMode = 4
	LampBlink LampMode = 5
)

// String returns the lamp mode name.
func (m LampMode) String() string {
	switch m {
	case LampOff:
		return "OFF"
	case LampOn:
		return "ON"
	case LampWink:
		return "WINK"
	case LampFlash:
		return "FLASH"
	case LampBlink:
		return "BLINK"
	default:
		return "UNKNOWN"
	}
}

// RingerMode is the ring style requested by SetRinger.
type RingerMode uint32

const (
	RingOff     RingerMode = 1
	RingInside  RingerMode = 2
	RingOutside RingerMode = 3
	RingFeature RingerMode = 4
	RingSilent  RingerMode = 5
	RingUrgent  RingerMode = 6
)

// String returns the ringer mode name.
func (m RingerMode) String() string {
	switch m {
	case RingOff:
		return "OFF"
	case RingInside:
		return "INSIDE"
	case RingOutside:
		return "OUTSIDE"
	case RingFeature:
		return "FEATURE"
	case RingSilent:
		return "SILENT"
	case RingUrgent:
		return "URGENT"
	default:
		return "UNKNOWN"
	}
}

// SpeakerMode switches the station speaker.
type SpeakerMode uint32

const (
	SpeakerOn  SpeakerMode = 1
	SpeakerOff SpeakerMode = 2
)

// Stimulus identifies a pressed feature button and the lamp it drives.
type Stimulus uint32

const (
	StimulusLastNumberRedial Stimulus = 0x01
	StimulusSpeedDial        Stimulus = 0x02
	StimulusHold             Stimulus = 0x03
	StimulusTransfer         Stimulus = 0x04
	StimulusForwardAll       Stimulus = 0x05
	StimulusForwardBusy      Stimulus = 0x06
	StimulusForwardNoAnswer  Stimulus = 0x07
	StimulusDisplay          Stimulus = 0x08
	StimulusLine             Stimulus = 0x09
	StimulusVoiceMail        Stimulus = 0x0F
	StimulusAutoAnswer       Stimulus = 0x11
	StimulusFeature          Stimulus = 0x13
	StimulusServiceURL       Stimulus = 0x14
	StimulusMeetMeConference Stimulus = 0x7B
	StimulusConference       Stimulus = 0x7D
	StimulusCallPark         Stimulus = 0x7E
	StimulusCallPickup       Stimulus = 0x7F
	StimulusGroupCallPickup  Stimulus = 0x80
)

// String returns the stimulus name.
func (s Stimulus) String() string {
	switch s {
	case StimulusLastNumberRedial:
		return "LASTNUMBERREDIAL"
	case StimulusSpeedDial:
		return "SPEEDDIAL"
	case StimulusHold:
		return "HOLD"
	case StimulusTransfer:
		return "TRANSFER"
	case StimulusForwardAll:
		return "FORWARDALL"
	case StimulusForwardBusy:
		return "FORWARDBUSY"
	case StimulusForwardNoAnswer:
		return "FORWARDNOANSWER"
	case StimulusDisplay:
		return "DISPLAY"
	case StimulusLine:
		return "LINE"
	case StimulusVoiceMail:
		return "VOICEMAIL"
	case StimulusAutoAnswer:
		return "AUTOANSWER"
	case StimulusFeature:
		return "FEATURE"
	case StimulusServiceURL:
		return "SERVICEURL"
	case StimulusMeetMeConference:
		return "MEETMECONFERENCE"
	case StimulusConference:
		return "CONFERENCE"
	case StimulusCallPark:
		return "CALLPARK"
	case StimulusCallPickup:
		return "CALLPICKUP"
	case StimulusGroupCallPickup:
		return "GROUPCALLPICKUP"
	default:
		return "UNKNOWN"
	}
}

// ButtonType is a button definition in the ButtonTemplate message.
type ButtonType uint8

const (
	ButtonUnused           ButtonType = 0x00
	ButtonLastNumberRedial ButtonType = 0x01
	ButtonSpeedDial        ButtonType = 0x02
	ButtonHold             ButtonType = 0x03
	ButtonTransfer         ButtonType = 0x04
	ButtonForwardAll       ButtonType = 0x05
	ButtonForwardBusy      ButtonType = 0x06
	ButtonForwardNoAnswer  ButtonType = 0x07
	ButtonDisplay          ButtonType = 0x08
	ButtonLine             ButtonType = 0x09
	ButtonVoiceMail        ButtonType = 0x0F
	ButtonAnswerRelease    ButtonType = 0x10
	ButtonAutoAnswer       ButtonType = 0x11
	ButtonFeature          ButtonType = 0x13
	ButtonServiceURL       ButtonType = 0x14
	ButtonConference       ButtonType = 0x7D
	ButtonCallPark         ButtonType = 0x7E
	ButtonCallPickup       ButtonType = 0x7F
	ButtonGroupCallPickup  ButtonType = 0x80
	// ButtonMulti is a server-side placeholder filled with a line,
	// speed dial, service URL or feature when the template is built.
	ButtonMulti     ButtonType = 0xC0
	ButtonUndefined ButtonType = 0xFF
)

// KeySet selects which soft key set the station shows.
type KeySet uint32

const (
	KeySetOnHook      KeySet = 0
	KeySetConnected   KeySet = 1
	KeySetOnHold      KeySet = 2
	KeySetRingIn      KeySet = 3
	KeySetOffHook     KeySet = 4
	KeySetConnTrans   KeySet = 5
	KeySetDigitsFoll  KeySet = 6
	KeySetConnConf    KeySet = 7
	KeySetRingOut     KeySet = 8
	KeySetOffHookFeat KeySet = 9
	KeySetInUseHint   KeySet = 10

	// KeySetCount is the number of defined key sets.
	KeySetCount = 11
)

// String returns the key set name.
func (k KeySet) String() string {
	switch k {
	case KeySetOnHook:
		return "ONHOOK"
	case KeySetConnected:
		return "CONNECTED"
	case KeySetOnHold:
		return "ONHOLD"
	case KeySetRingIn:
		return "RINGIN"
	case KeySetOffHook:
		return "OFFHOOK"
	case KeySetConnTrans:
		return "CONNTRANS"
	case KeySetDigitsFoll:
		return "DIGITSFOLL"
	case KeySetConnConf:
		return "CONNCONF"
	case KeySetRingOut:
		return "RINGOUT"
	case KeySetOffHookFeat:
		return "OFFHOOKFEAT"
	case KeySetInUseHint:
		return "INUSEHINT"
	default:
		return "UNKNOWN"
	}
}

// SoftKey is the event value a station reports for a pressed soft key.
// Values are the 1-based position of the key in the soft key template.
type SoftKey uint32

const (
	SoftKeyRedial SoftKey = iota + 1
	SoftKeyNewCall
	SoftKeyHold
	SoftKeyTransfer
	SoftKeyCFwdAll
	SoftKeyCFwdBusy
	SoftKeyCFwdNoAnswer
	SoftKeyBackSpace
	SoftKeyEndCall
	SoftKeyResume
	SoftKeyAnswer
	SoftKeyInfo
	SoftKeyConfrn
	SoftKeyPark
	SoftKeyJoin
	SoftKeyMeetMe
	SoftKeyPickup
	SoftKeyGPickup
	SoftKeyRmLstC
	SoftKeyCallBack
	SoftKeyBarge
	SoftKeyDND
	SoftKeyAcct
	SoftKeyFlash
	SoftKeyLogin
	SoftKeyHLog
	SoftKeyConfList
	SoftKeySelect
	SoftKeyPrivate
	SoftKeyTrnsfVM
	SoftKeyDirTrfr
	SoftKeyIDivert

	// SoftKeyCount is the number of entries in the soft key template.
	SoftKeyCount = int(SoftKeyIDivert)
)

// softKeyLabels holds the phone-resident label index for each soft key.
var softKeyLabels = [SoftKeyCount]uint8{
	101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115, 116,
	117, 118, 157, 165, 167, 163, 171, 172, 173, 0, 179, 178, 154, 162, 177, 180,
}

var softKeyNames = [SoftKeyCount]string{
	"Redial", "NewCall", "Hold", "Transfer", "CFwdAll", "CFwdBusy", "CFwdNoAnswer", "BackSpace",
	"EndCall", "Resume", "Answer", "Info", "Confrn", "Park", "Join", "MeetMe",
	"PickUp", "GPickUp", "RmLstC", "CallBack", "Barge", "DND", "Acct", "Flash",
	"Login", "HLog", "ConfList", "Select", "Private", "TrnsfVM", "DirTrfr", "iDivert",
}

// Label returns the phone-resident label index for the key, or 0 if unknown.
func (k SoftKey) Label() uint8 {
	if k < 1 || int(k) > SoftKeyCount {
		return 0
	}
	return softKeyLabels[k-1]
}

// String returns the soft key label text.
func (k SoftKey) String() string {
	if k < 1 || int(k) > SoftKeyCount {
		return "UNKNOWN"
	}
	return softKeyNames[k-1]
}

// ResetType is carried in Reset.
type ResetType uint32

const (
	ResetHard    ResetType = 1
	ResetRestart ResetType = 2
)

// Station device types that need special handling.
const (
	DeviceType7910           uint32 = 6
	DeviceType7960           uint32 = 7
	DeviceType7940           uint32 = 8
	DeviceType7935           uint32 = 9
	DeviceType7941           uint32 = 115
	DeviceType7971           uint32 = 119
	DeviceType7914           uint32 = 124
	DeviceType7911           uint32 = 307
	DeviceType7961GE         uint32 = 308
	DeviceType7941GE         uint32 = 309
	DeviceType7921           uint32 = 365
	DeviceType7906           uint32 = 369
	DeviceType7962           uint32 = 404
	DeviceType7937           uint32 = 431
	DeviceType7942           uint32 = 434
	DeviceType7945           uint32 = 435
	DeviceType7965           uint32 = 436
	DeviceType7975           uint32 = 437
	DeviceType7925           uint32 = 484
	DeviceType7905           uint32 = 20000
	DeviceType7920           uint32 = 30002
	DeviceType7970           uint32 = 30006
	DeviceType7912           uint32 = 30007
	DeviceType7902           uint32 = 30008
	DeviceTypeIPCommunicator uint32 = 30016
	DeviceType7961           uint32 = 30018
	DeviceType7936           uint32 = 30019
)

// Alarm severities.
const (
	AlarmCritical      uint32 = 0
	AlarmWarning       uint32 = 1
	AlarmInformational uint32 = 2
	AlarmUnknown       uint32 = 4
	AlarmMajor         uint32 = 7
	AlarmMinor         uint32 = 8
	AlarmMarginal      uint32 = 10
	AlarmTraceInfo     uint32 = 20
)
