package wire

import "net/netip"

// Field sizes fixed by the station firmware.
const (
	DeviceNameSize      = 16
	DirNumberSize       = 24
	NameSize            = 40
	DisplayTextSize     = 32
	DateTemplateSize    = 6
	VersionSize         = 16
	ButtonNameSize      = 44
	AlarmTextSize       = 80
	ServerNameSize      = 48
	ServiceURLSize      = 256
	SoftKeyLabelSize    = 16
	MaxButtons          = 42
	MaxSoftKeys         = 32
	MaxSoftKeySets      = 16
	MaxSoftKeyIndex     = 16
	MaxCapabilities     = 18
	MaxServers          = 5
	RegisterLegacyLimit = 56
)

// KeepAlive is sent by the station every keepalive interval.
type KeepAlive struct{ empty }

func (*KeepAlive) Kind() Kind { return KindKeepAlive }

// Register starts the registration handshake.
type Register struct {
	DeviceName      string
	UserID          uint32
	Instance        uint32
	StationIP       netip.Addr
	DeviceType      uint32
	MaxStreams      uint32
	ActiveStreams   uint32
	ProtocolVersion uint8
	// Legacy is set for bodies shorter than RegisterLegacyLimit. Such
	// stations predate protocol version negotiation.
	Legacy bool
}

func (*Register) Kind() Kind { return KindRegister }

func (*Register) minSize() int { return DeviceNameSize + 8 }

func (m *Register) encode(e *encoder) {
	e.str(m.DeviceName, DeviceNameSize)
	e.u32(m.UserID)
	e.u32(m.Instance)
	e.addr(m.StationIP)
	e.u32(m.DeviceType)
	e.u32(m.MaxStreams)
	if m.Legacy {
		return
	}
	e.u32(m.ActiveStreams)
	e.u8(m.ProtocolVersion)
	e.u8(0)
	e.u8(0)
	e.u8(0)
	e.u32(0)
	e.u32(0)
	e.u32(0)
}

func (m *Register) decode(d *decoder) {
	m.Legacy = len(d.buf) < RegisterLegacyLimit
	m.DeviceName = d.str(DeviceNameSize)
	m.UserID = d.u32()
	m.Instance = d.u32()
	m.StationIP = d.addr()
	m.DeviceType = d.u32()
	m.MaxStreams = d.u32()
	if m.Legacy {
		return
	}
	m.ActiveStreams = d.u32()
	m.ProtocolVersion = d.u8()
}

// RegisterTokenReq asks whether the station may register.
type RegisterTokenReq struct {
	DeviceName string
	UserID     uint32
	Instance   uint32
	StationIP  netip.Addr
	DeviceType uint32
}

func (*RegisterTokenReq) Kind() Kind { return KindRegisterTokenReq }

func (m *RegisterTokenReq) encode(e *encoder) {
	e.str(m.DeviceName, DeviceNameSize)
	e.u32(m.UserID)
	e.u32(m.Instance)
	e.addr(m.StationIP)
	e.u32(m.DeviceType)
}

func (m *RegisterTokenReq) decode(d *decoder) {
	m.DeviceName = d.str(DeviceNameSize)
	m.UserID = d.u32()
	m.Instance = d.u32()
	m.StationIP = d.addr()
	m.DeviceType = d.u32()
}

// IpPort announces the station RTP port.
type IpPort struct {
	Port uint16
}

func (*IpPort) Kind() Kind { return KindIpPort }

func (m *IpPort) encode(e *encoder) {
	e.u16(m.Port)
	e.u16(0)
}

func (m *IpPort) decode(d *decoder) {
	m.Port = d.u16()
}

// KeypadButton reports a dial pad press. Button 14 is '*', 15 is '#'.
type KeypadButton struct {
	Button  uint32
	Line    uint32
	CallRef uint32
}

func (*KeypadButton) Kind() Kind { return KindKeypadButton }

func (*KeypadButton) minSize() int { return 4 }

func (m *KeypadButton) encode(e *encoder) {
	e.u32(m.Button)
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *KeypadButton) decode(d *decoder) {
	m.Button = d.u32()
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// Digit returns the dialed character for the button.
func (m *KeypadButton) Digit() byte {
	switch {
	case m.Button <= 9:
		return '0' + byte(m.Button)
	case m.Button == 14:
		return '*'
	case m.Button == 15:
		return '#'
	default:
		return 0
	}
}

// EnblocCall carries a number dialed in one block.
type EnblocCall struct {
	Number string
}

func (*EnblocCall) Kind() Kind { return KindEnblocCall }

func (m *EnblocCall) encode(e *encoder) { e.str(m.Number, DirNumberSize) }

func (m *EnblocCall) decode(d *decoder) { m.Number = d.str(DirNumberSize) }

// StimulusMsg reports a feature button press.
type StimulusMsg struct {
	Stimulus Stimulus
	Instance uint32
}

func (*StimulusMsg) Kind() Kind { return KindStimulus }

func (m *StimulusMsg) encode(e *encoder) {
	e.u32(uint32(m.Stimulus))
	e.u32(m.Instance)
}

func (m *StimulusMsg) decode(d *decoder) {
	m.Stimulus = Stimulus(d.u32())
	m.Instance = d.u32()
}

// OffHook reports the handset was lifted.
type OffHook struct{ empty }

func (*OffHook) Kind() Kind { return KindOffHook }

// OnHook reports the handset was replaced.
type OnHook struct{ empty }

func (*OnHook) Kind() Kind { return KindOnHook }

// HookFlash reports a hook flash.
type HookFlash struct{ empty }

func (*HookFlash) Kind() Kind { return KindHookFlash }

// OffHookWithCgpn is an off-hook carrying the calling party number.
type OffHookWithCgpn struct {
	CallingParty string
}

func (*OffHookWithCgpn) Kind() Kind { return KindOffHookWithCgpn }

func (m *OffHookWithCgpn) encode(e *encoder) { e.str(m.CallingParty, DirNumberSize) }

func (m *OffHookWithCgpn) decode(d *decoder) { m.CallingParty = d.str(DirNumberSize) }

// ForwardStatReq requests the forward status of a line.
type ForwardStatReq struct {
	Line uint32
}

func (*ForwardStatReq) Kind() Kind { return KindForwardStatReq }

func (m *ForwardStatReq) encode(e *encoder) { e.u32(m.Line) }

func (m *ForwardStatReq) decode(d *decoder) { m.Line = d.u32() }

// SpeedDialStatReq requests a speed dial entry.
type SpeedDialStatReq struct {
	Number uint32
}

func (*SpeedDialStatReq) Kind() Kind { return KindSpeedDialStatReq }

func (m *SpeedDialStatReq) encode(e *encoder) { e.u32(m.Number) }

func (m *SpeedDialStatReq) decode(d *decoder) { m.Number = d.u32() }

// LineStatReq requests a line definition.
type LineStatReq struct {
	Line uint32
}

func (*LineStatReq) Kind() Kind { return KindLineStatReq }

func (m *LineStatReq) encode(e *encoder) { e.u32(m.Line) }

func (m *LineStatReq) decode(d *decoder) { m.Line = d.u32() }

// ConfigStatReq requests the device configuration summary.
type ConfigStatReq struct{ empty }

func (*ConfigStatReq) Kind() Kind { return KindConfigStatReq }

// TimeDateReq requests the current time.
type TimeDateReq struct{ empty }

func (*TimeDateReq) Kind() Kind { return KindTimeDateReq }

// ButtonTemplateReq requests the button layout.
type ButtonTemplateReq struct{ empty }

func (*ButtonTemplateReq) Kind() Kind { return KindButtonTemplateReq }

// VersionReq requests the firmware load name.
type VersionReq struct{ empty }

func (*VersionReq) Kind() Kind { return KindVersionReq }

// ServerReq requests the list of call managers.
type ServerReq struct{ empty }

func (*ServerReq) Kind() Kind { return KindServerReq }

// MediaCapability is one codec the station supports.
type MediaCapability struct {
	PayloadCapability  uint32
	MaxFramesPerPacket uint32
}

// CapabilitiesRes lists the station codecs.
type CapabilitiesRes struct {
	Capabilities []MediaCapability
}

func (*CapabilitiesRes) Kind() Kind { return KindCapabilitiesRes }

func (m *CapabilitiesRes) encode(e *encoder) {
	caps := m.Capabilities
	if len(caps) > MaxCapabilities {
		caps = caps[:MaxCapabilities]
	}
	e.u32(uint32(len(caps)))
	for _, c := range caps {
		e.u32(c.PayloadCapability)
		e.u32(c.MaxFramesPerPacket)
		e.raw(nil, 8)
	}
}

func (m *CapabilitiesRes) decode(d *decoder) {
	n := int(d.u32())
	if n > MaxCapabilities {
		n = MaxCapabilities
	}
	m.Capabilities = nil
	for i := 0; i < n && d.remaining() > 0; i++ {
		c := MediaCapability{PayloadCapability: d.u32(), MaxFramesPerPacket: d.u32()}
		d.take(8)
		m.Capabilities = append(m.Capabilities, c)
	}
}

// Alarm is a station diagnostic report.
type Alarm struct {
	Severity uint32
	Text     string
	Param1   uint32
	Param2   uint32
}

func (*Alarm) Kind() Kind { return KindAlarm }

func (m *Alarm) encode(e *encoder) {
	e.u32(m.Severity)
	e.str(m.Text, AlarmTextSize)
	e.u32(m.Param1)
	e.u32(m.Param2)
}

func (m *Alarm) decode(d *decoder) {
	m.Severity = d.u32()
	m.Text = d.str(AlarmTextSize)
	m.Param1 = d.u32()
	m.Param2 = d.u32()
}

// OpenReceiveChannelAck reports the station receive address for a call.
type OpenReceiveChannelAck struct {
	Status          uint32
	Addr            netip.Addr
	Port            uint32
	PassThruPartyID uint32
	CallRef         uint32
}

func (*OpenReceiveChannelAck) Kind() Kind { return KindOpenReceiveChannelAck }

func (m *OpenReceiveChannelAck) encode(e *encoder) {
	e.u32(m.Status)
	e.addr(m.Addr)
	e.u32(m.Port)
	e.u32(m.PassThruPartyID)
	e.u32(m.CallRef)
}

func (m *OpenReceiveChannelAck) decode(d *decoder) {
	m.Status = d.u32()
	m.Addr = d.addr()
	m.Port = d.u32()
	m.PassThruPartyID = d.u32()
	m.CallRef = d.u32()
}

// ConnectionStatisticsRes carries RTP counters for a finished stream.
type ConnectionStatisticsRes struct {
	DirNumber       string
	CallRef         uint32
	Processing      uint32
	PacketsSent     uint32
	OctetsSent      uint32
	PacketsReceived uint32
	OctetsReceived  uint32
	PacketsLost     uint32
	Jitter          uint32
	Latency         uint32
}

func (*ConnectionStatisticsRes) Kind() Kind { return KindConnectionStatisticsRes }

func (m *ConnectionStatisticsRes) encode(e *encoder) {
	e.str(m.DirNumber, DirNumberSize)
	e.u32(m.CallRef)
	e.u32(m.Processing)
	e.u32(m.PacketsSent)
	e.u32(m.OctetsSent)
	e.u32(m.PacketsReceived)
	e.u32(m.OctetsReceived)
	e.u32(m.PacketsLost)
	e.u32(m.Jitter)
	e.u32(m.Latency)
}

func (m *ConnectionStatisticsRes) decode(d *decoder) {
	m.DirNumber = d.str(DirNumberSize)
	m.CallRef = d.u32()
	m.Processing = d.u32()
	m.PacketsSent = d.u32()
	m.OctetsSent = d.u32()
	m.PacketsReceived = d.u32()
	m.OctetsReceived = d.u32()
	m.PacketsLost = d.u32()
	m.Jitter = d.u32()
	m.Latency = d.u32()
}

// SoftKeySetReq requests the soft key set layout.
type SoftKeySetReq struct{ empty }

func (*SoftKeySetReq) Kind() Kind { return KindSoftKeySetReq }

// SoftKeyTemplateReq requests the soft key template.
type SoftKeyTemplateReq struct{ empty }

func (*SoftKeyTemplateReq) Kind() Kind { return KindSoftKeyTemplateReq }

// SoftKeyEvent reports a soft key press.
type SoftKeyEvent struct {
	Event   SoftKey
	Line    uint32
	CallRef uint32
}

func (*SoftKeyEvent) Kind() Kind { return KindSoftKeyEvent }

func (m *SoftKeyEvent) encode(e *encoder) {
	e.u32(uint32(m.Event))
	e.u32(m.Line)
	e.u32(m.CallRef)
}

func (m *SoftKeyEvent) decode(d *decoder) {
	m.Event = SoftKey(d.u32())
	m.Line = d.u32()
	m.CallRef = d.u32()
}

// Unregister asks the server to release the device.
type Unregister struct{ empty }

func (*Unregister) Kind() Kind { return KindUnregister }

// HeadsetStatus reports a headset button toggle.
type HeadsetStatus struct {
	Mode uint32
}

func (*HeadsetStatus) Kind() Kind { return KindHeadsetStatus }

func (m *HeadsetStatus) encode(e *encoder) { e.u32(m.Mode) }

func (m *HeadsetStatus) decode(d *decoder) { m.Mode = d.u32() }

// Headset modes.
const (
	HeadsetOn  uint32 = 1
	HeadsetOff uint32 = 2
)

// MediaResourceNotification reports stream usage.
type MediaResourceNotification struct {
	DeviceType         uint32
	InServiceStreams   uint32
	MaxStreamsPerConf  uint32
	OutOfServiceStream uint32
}

func (*MediaResourceNotification) Kind() Kind { return KindMediaResourceNotification }

func (m *MediaResourceNotification) encode(e *encoder) {
	e.u32(m.DeviceType)
	e.u32(m.InServiceStreams)
	e.u32(m.MaxStreamsPerConf)
	e.u32(m.OutOfServiceStream)
}

func (m *MediaResourceNotification) decode(d *decoder) {
	m.DeviceType = d.u32()
	m.InServiceStreams = d.u32()
	m.MaxStreamsPerConf = d.u32()
	m.OutOfServiceStream = d.u32()
}

// RegisterAvailableLines reports how many lines the station can show.
type RegisterAvailableLines struct {
	Lines uint32
}

func (*RegisterAvailableLines) Kind() Kind { return KindRegisterAvailableLines }

func (m *RegisterAvailableLines) encode(e *encoder) { e.u32(m.Lines) }

func (m *RegisterAvailableLines) decode(d *decoder) { m.Lines = d.u32() }

// ServiceURLStatReq requests a service URL button definition.
type ServiceURLStatReq struct {
	Index uint32
}

func (*ServiceURLStatReq) Kind() Kind { return KindServiceURLStatReq }

func (m *ServiceURLStatReq) encode(e *encoder) { e.u32(m.Index) }

func (m *ServiceURLStatReq) decode(d *decoder) { m.Index = d.u32() }

// FeatureStatReq requests a feature button definition.
type FeatureStatReq struct {
	Index uint32
}

func (*FeatureStatReq) Kind() Kind { return KindFeatureStatReq }

func (m *FeatureStatReq) encode(e *encoder) { e.u32(m.Index) }

func (m *FeatureStatReq) decode(d *decoder) { m.Index = d.u32() }
