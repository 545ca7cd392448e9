package wire

import "time"

// RegisterAck completes registration.
type RegisterAck struct {
	KeepAlive          uint32
	DateTemplate       string
	SecondaryKeepAlive uint32
	ProtocolVersion    uint8
	Features           [3]uint8
}

func (*RegisterAck) Kind() Kind { return KindRegisterAck }

func (m *RegisterAck) encode(e *encoder) {
	e.u32(m.KeepAlive)
	e.raw([]byte(m.DateTemplate), DateTemplateSize)
	e.u16(0)
	e.u32(m.SecondaryKeepAlive)
	e.u8(m.ProtocolVersion)
	e.u8(m.Features[0])
	e.u8(m.Features[1])
	e.u8(m.Features[2])
}

func (m *RegisterAck) decode(d *decoder) {
	m.KeepAlive = d.u32()
	m.DateTemplate = d.str(DateTemplateSize)
	d.u16()
	m.SecondaryKeepAlive = d.u32()
	m.ProtocolVersion = d.u8()
	m.Features[0] = d.u8()
	m.Features[1] = d.u8()
	m.Features[2] = d.u8()
}

// RegisterReject refuses registration with a reason shown on the station.
type RegisterReject struct {
	Text string
}

func (*RegisterReject) Kind() Kind { return KindRegisterReject }

func (m *RegisterReject) encode(e *encoder) { e.str(m.Text, DisplayTextSize) }

func (m *RegisterReject) decode(d *decoder) { m.Text = d.str(DisplayTextSize) }

// RegisterTokenAck grants a registration token.
type RegisterTokenAck struct{ empty }

func (*RegisterTokenAck) Kind() Kind { return KindRegisterTokenAck }

// RegisterTokenReject denies a token; the station retries after WaitTime seconds.
type RegisterTokenReject struct {
	WaitTime uint32
}

func (*RegisterTokenReject) Kind() Kind { return KindRegisterTokenReject }

func (m *RegisterTokenReject) encode(e *encoder) { e.u32(m.WaitTime) }

func (m *RegisterTokenReject) decode(d *decoder) { m.WaitTime = d.u32() }

// UnregisterAck confirms an Unregister.
type UnregisterAck struct {
	Status uint32
}

func (*UnregisterAck) Kind() Kind { return KindUnregisterAck }

func (m *UnregisterAck) encode(e *encoder) { e.u32(m.Status) }

func (m *UnregisterAck) decode(d *decoder) { m.Status = d.u32() }

// Unregister ack status values.
const (
	UnregisterOK    uint32 = 0
	UnregisterError uint32 = 1
	UnregisterNAK   uint32 = 2
)

// KeepAliveAck answers a KeepAlive.
type KeepAliveAck struct{ empty }

func (*KeepAliveAck) Kind() Kind { return KindKeepAliveAck }

// CapabilitiesReq asks the station for its codec list.
type CapabilitiesReq struct{ empty }

func (*CapabilitiesReq) Kind() Kind { return KindCapabilitiesReq }

// Reset restarts the station.
type Reset struct {
	Type ResetType
}

func (*Reset) Kind() Kind { return KindReset }

func (m *Reset) encode(e *encoder) { e.u32(uint32(m.Type)) }

func (m *Reset) decode(d *decoder) { m.Type = ResetType(d.u32()) }

// StartTone plays a tone on the station.
type StartTone struct {
	Tone    Tone
	Timeout uint32
	Line    uint32
	CallRef uint32
}

func (*StartTone) Kind() Kind { return KindStartTone }

func (m *StartTone) encode(e *encoder) {
	e.u32(uint32(m.Tone))
	e.u32(m.Timeout)
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *StartTone) decode(d *decoder) {
	m.Tone = Tone(d.u32())
	m.Timeout = d.u32()
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// StopTone stops any playing tone.
type StopTone struct {
	Line    uint32
	CallRef uint32
}

func (*StopTone) Kind() Kind { return KindStopTone }

func (m *StopTone) encode(e *encoder) {
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *StopTone) decode(d *decoder) {
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// SetRinger starts or stops the ringer.
type SetRinger struct {
	Mode RingerMode
	// Duration is 1 for continuous ringing, 2 for a single ring.
	Duration uint32
	Line     uint32
	CallRef  uint32
}

func (*SetRinger) Kind() Kind { return KindSetRinger }

func (m *SetRinger) encode(e *encoder) {
	e.u32(uint32(m.Mode))
	e.u32(m.Duration)
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *SetRinger) decode(d *decoder) {
	m.Mode = RingerMode(d.u32())
	m.Duration = d.u32()
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// SetLamp drives the lamp of a stimulus button.
type SetLamp struct {
	Stimulus Stimulus
	Instance uint32
	Mode     LampMode
}

func (*SetLamp) Kind() Kind { return KindSetLamp }

func (m *SetLamp) encode(e *encoder) {
	e.u32(uint32(m.Stimulus))
	e.u32(m.Instance)
	e.u32(uint32(m.Mode))
}

func (m *SetLamp) decode(d *decoder) {
	m.Stimulus = Stimulus(d.u32())
	m.Instance = d.u32()
	m.Mode = LampMode(d.u32())
}

// SetSpeakerMode switches the speaker.
type SetSpeakerMode struct {
	Mode SpeakerMode
}

func (*SetSpeakerMode) Kind() Kind { return KindSetSpeakerMode }

func (m *SetSpeakerMode) encode(e *encoder) { e.u32(uint32(m.Mode)) }

func (m *SetSpeakerMode) decode(d *decoder) { m.Mode = SpeakerMode(d.u32()) }

// CallStateMsg sets the call state of a line/call reference.
type CallStateMsg struct {
	State      CallState
	Line       uint32
	CallRef    uint32
	Visibility uint32
	Priority   uint32
	Reserved   uint32
}

func (*CallStateMsg) Kind() Kind { return KindCallState }

func (m *CallStateMsg) encode(e *encoder) {
	e.u32(uint32(m.State))
	e.u32(m.Line)
	e.u32(m.CallRef)
	e.u32(m.Visibility)
	e.u32(m.Priority)
	e.u32(m.Reserved)
}

func (m *CallStateMsg) decode(d *decoder) {
	m.State = CallState(d.u32())
	m.Line = d.u32()
	m.CallRef = d.u32()
	m.Visibility = d.u32()
	m.Priority = d.u32()
	m.Reserved = d.u32()
}

// CallInfo carries party information for a call.
type CallInfo struct {
	CallingPartyName            string
	CallingParty                string
	CalledPartyName             string
	CalledParty                 string
	Line                        uint32
	CallRef                     uint32
	Type                        CallType
	OriginalCalledPartyName     string
	OriginalCalledParty         string
	LastRedirectingPartyName    string
	LastRedirectingParty        string
	OriginalCdpnRedirectReason  uint32
	LastRedirectingReason       uint32
	CgpnVoiceMailbox            string
	CdpnVoiceMailbox            string
	OriginalCdpnVoiceMailbox    string
	LastRedirectingVoiceMailbox string
	CallInstance                uint32
	CallSecurityStatus          uint32
	PartyPIRestrictionBits      uint32
}

func (*CallInfo) Kind() Kind { return KindCallInfo }

func (m *CallInfo) encode(e *encoder) {
	e.str(m.CallingPartyName, NameSize)
	e.str(m.CallingParty, DirNumberSize)
	e.str(m.CalledPartyName, NameSize)
	e.str(m.CalledParty, DirNumberSize)
	e.u32(m.Line)
	e.u32(m.CallRef)
	e.u32(uint32(m.Type))
	e.str(m.OriginalCalledPartyName, NameSize)
	e.str(m.OriginalCalledParty, DirNumberSize)
	e.str(m.LastRedirectingPartyName, NameSize)
	e.str(m.LastRedirectingParty, DirNumberSize)
	e.u32(m.OriginalCdpnRedirectReason)
	e.u32(m.LastRedirectingReason)
	e.str(m.CgpnVoiceMailbox, DirNumberSize)
	e.str(m.CdpnVoiceMailbox, DirNumberSize)
	e.str(m.OriginalCdpnVoiceMailbox, DirNumberSize)
	e.str(m.LastRedirectingVoiceMailbox, DirNumberSize)
	e.u32(m.CallInstance)
	e.u32(m.CallSecurityStatus)
	e.u32(m.PartyPIRestrictionBits)
}

func (m *CallInfo) decode(d *decoder) {
	m.CallingPartyName = d.str(NameSize)
	m.CallingParty = d.str(DirNumberSize)
	m.CalledPartyName = d.str(NameSize)
	m.CalledParty = d.str(DirNumberSize)
	m.Line = d.u32()
	m.CallRef = d.u32()
	m.Type = CallType(d.u32())
	m.OriginalCalledPartyName = d.str(NameSize)
	m.OriginalCalledParty = d.str(DirNumberSize)
	m.LastRedirectingPartyName = d.str(NameSize)
	m.LastRedirectingParty = d.str(DirNumberSize)
	m.OriginalCdpnRedirectReason = d.u32()
	m.LastRedirectingReason = d.u32()
	m.CgpnVoiceMailbox = d.str(DirNumberSize)
	m.CdpnVoiceMailbox = d.str(DirNumberSize)
	m.OriginalCdpnVoiceMailbox = d.str(DirNumberSize)
	m.LastRedirectingVoiceMailbox = d.str(DirNumberSize)
	m.CallInstance = d.u32()
	m.CallSecurityStatus = d.u32()
	m.PartyPIRestrictionBits = d.u32()
}

// DialedNumber echoes the digits collected so far.
type DialedNumber struct {
	Number  string
	Line    uint32
	CallRef uint32
}

func (*DialedNumber) Kind() Kind { return KindDialedNumber }

func (m *DialedNumber) encode(e *encoder) {
	e.str(m.Number, DirNumberSize)
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *DialedNumber) decode(d *decoder) {
	m.Number = d.str(DirNumberSize)
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// SelectSoftKeys selects the active soft key set.
type SelectSoftKeys struct {
	Line         uint32
	CallRef      uint32
	Set          KeySet
	ValidKeyMask uint32
}

func (*SelectSoftKeys) Kind() Kind { return KindSelectSoftKeys }

func (m *SelectSoftKeys) encode(e *encoder) {
	e.u32(m.Line)
	e.u32(m.CallRef)
	e.u32(uint32(m.Set))
	e.u32(m.ValidKeyMask)
}

func (m *SelectSoftKeys) decode(d *decoder) {
	m.Line = d.u32()
	m.CallRef = d.u32()
	m.Set = KeySet(d.u32())
	m.ValidKeyMask = d.u32()
}

// DisplayPromptStatus shows a prompt in the call plane.
type DisplayPromptStatus struct {
	Timeout uint32
	Text    string
	Line    uint32
	CallRef uint32
}

func (*DisplayPromptStatus) Kind() Kind { return KindDisplayPromptStatus }

func (m *DisplayPromptStatus) encode(e *encoder) {
	e.u32(m.Timeout)
	e.str(m.Text, DisplayTextSize)
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *DisplayPromptStatus) decode(d *decoder) {
	m.Timeout = d.u32()
	m.Text = d.str(DisplayTextSize)
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// ClearPromptStatus clears the call plane prompt.
type ClearPromptStatus struct {
	Line    uint32
	CallRef uint32
}

func (*ClearPromptStatus) Kind() Kind { return KindClearPromptStatus }

func (m *ClearPromptStatus) encode(e *encoder) {
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *ClearPromptStatus) decode(d *decoder) {
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// DisplayNotify shows a transient notification.
type DisplayNotify struct {
	Timeout uint32
	Text    string
}

func (*DisplayNotify) Kind() Kind { return KindDisplayNotify }

func (m *DisplayNotify) encode(e *encoder) {
	e.u32(m.Timeout)
	e.str(m.Text, DisplayTextSize)
}

func (m *DisplayNotify) decode(d *decoder) {
	m.Timeout = d.u32()
	m.Text = d.str(DisplayTextSize)
}

// ClearNotify clears the notification area.
type ClearNotify struct{ empty }

func (*ClearNotify) Kind() Kind { return KindClearNotify }

// DisplayText shows text on legacy stations without a prompt area.
type DisplayText struct {
	Text string
}

func (*DisplayText) Kind() Kind { return KindDisplayText }

func (m *DisplayText) encode(e *encoder) { e.str(m.Text, DisplayTextSize) }

func (m *DisplayText) decode(d *decoder) { m.Text = d.str(DisplayTextSize) }

// ClearDisplay clears DisplayText output.
type ClearDisplay struct{}

func (*ClearDisplay) Kind() Kind { return KindClearDisplay }

func (*ClearDisplay) encode(e *encoder) { e.u32(0) }

func (*ClearDisplay) decode(d *decoder) { d.u32() }

// ActivateCallPlane switches the display to the call plane of a line.
type ActivateCallPlane struct {
	Line uint32
}

func (*ActivateCallPlane) Kind() Kind { return KindActivateCallPlane }

func (m *ActivateCallPlane) encode(e *encoder) { e.u32(m.Line) }

func (m *ActivateCallPlane) decode(d *decoder) { m.Line = d.u32() }

// DeactivateCallPlane leaves the call plane.
type DeactivateCallPlane struct{ empty }

func (*DeactivateCallPlane) Kind() Kind { return KindDeactivateCallPlane }

// BackSpaceReq removes the last dialed digit on the station display.
type BackSpaceReq struct {
	Line    uint32
	CallRef uint32
}

func (*BackSpaceReq) Kind() Kind { return KindBackSpaceReq }

func (m *BackSpaceReq) encode(e *encoder) {
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *BackSpaceReq) decode(d *decoder) {
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// CallSelectStat reports the select state of a call.
type CallSelectStat struct {
	Status  uint32
	CallRef uint32
	Line    uint32
}

func (*CallSelectStat) Kind() Kind { return KindCallSelectStat }

func (m *CallSelectStat) encode(e *encoder) {
	e.u32(m.Status)
	e.u32(m.CallRef)
	e.u32(m.Line)
}

func (m *CallSelectStat) decode(d *decoder) {
	m.Status = d.u32()
	m.CallRef = d.u32()
	m.Line = d.u32()
}

// DefineTimeDate sets the station clock.
type DefineTimeDate struct {
	Year         uint32
	Month        uint32
	DayOfWeek    uint32
	Day          uint32
	Hour         uint32
	Minute       uint32
	Second       uint32
	Milliseconds uint32
	SystemTime   uint32
}

// NewDefineTimeDate builds a DefineTimeDate for t.
func NewDefineTimeDate(t time.Time) *DefineTimeDate {
	return &DefineTimeDate{
		Year:         uint32(t.Year()),
		Month:        uint32(t.Month()),
		DayOfWeek:    uint32(t.Weekday()),
		Day:          uint32(t.Day()),
		Hour:         uint32(t.Hour()),
		Minute:       uint32(t.Minute()),
		Second:       uint32(t.Second()),
		Milliseconds: uint32(t.Nanosecond() / int(time.Millisecond)),
		SystemTime:   uint32(t.Unix()),
	}
}

func (*DefineTimeDate) Kind() Kind { return KindDefineTimeDate }

func (m *DefineTimeDate) encode(e *encoder) {
	e.u32(m.Year)
	e.u32(m.Month)
	e.u32(m.DayOfWeek)
	e.u32(m.Day)
	e.u32(m.Hour)
	e.u32(m.Minute)
	e.u32(m.Second)
	e.u32(m.Milliseconds)
	e.u32(m.SystemTime)
}

func (m *DefineTimeDate) decode(d *decoder) {
	m.Year = d.u32()
	m.Month = d.u32()
	m.DayOfWeek = d.u32()
	m.Day = d.u32()
	m.Hour = d.u32()
	m.Minute = d.u32()
	m.Second = d.u32()
	m.Milliseconds = d.u32()
	m.SystemTime = d.u32()
}
