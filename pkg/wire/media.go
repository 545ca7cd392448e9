package wire

import "net/netip"

// Media defaults used when the collaborator does not override them.
const (
	DefaultPacketSize  = 20
	PayloadG711Ulaw    = 4
	PayloadG711Alaw    = 2
	PayloadG729        = 11
	mediaReservedWords = 10
)

// OpenReceiveChannel asks the station to open its RTP receiver.
type OpenReceiveChannel struct {
	ConferenceID    uint32
	PassThruPartyID uint32
	PacketSize      uint32
	PayloadType     uint32
	VAD             uint32
	G723BitRate     uint32
	ConferenceID1   uint32
}

func (*OpenReceiveChannel) Kind() Kind { return KindOpenReceiveChannel }

func (m *OpenReceiveChannel) encode(e *encoder) {
	e.u32(m.ConferenceID)
	e.u32(m.PassThruPartyID)
	e.u32(m.PacketSize)
	e.u32(m.PayloadType)
	e.u32(m.VAD)
	e.u32(m.G723BitRate)
	e.u32(m.ConferenceID1)
	for i := 0; i < mediaReservedWords; i++ {
		e.u32(0)
	}
}

func (m *OpenReceiveChannel) decode(d *decoder) {
	m.ConferenceID = d.u32()
	m.PassThruPartyID = d.u32()
	m.PacketSize = d.u32()
	m.PayloadType = d.u32()
	m.VAD = d.u32()
	m.G723BitRate = d.u32()
	m.ConferenceID1 = d.u32()
}

// CloseReceiveChannel closes the station RTP receiver.
type CloseReceiveChannel struct {
	ConferenceID    uint32
	PassThruPartyID uint32
	ConferenceID1   uint32
}

func (*CloseReceiveChannel) Kind() Kind { return KindCloseReceiveChannel }

func (m *CloseReceiveChannel) encode(e *encoder) {
	e.u32(m.ConferenceID)
	e.u32(m.PassThruPartyID)
	e.u32(m.ConferenceID1)
}

func (m *CloseReceiveChannel) decode(d *decoder) {
	m.ConferenceID = d.u32()
	m.PassThruPartyID = d.u32()
	m.ConferenceID1 = d.u32()
}

// StartMediaTransmission points the station RTP sender at a remote address.
type StartMediaTransmission struct {
	ConferenceID       uint32
	PassThruPartyID    uint32
	RemoteAddr         netip.Addr
	RemotePort         uint32
	PacketSize         uint32
	PayloadType        uint32
	Precedence         uint32
	SilenceSuppression uint32
	MaxFramesPerPacket uint32
	G723BitRate        uint32
	ConferenceID1      uint32
}

func (*StartMediaTransmission) Kind() Kind { return KindStartMediaTransmission }

func (m *StartMediaTransmission) encode(e *encoder) {
	e.u32(m.ConferenceID)
	e.u32(m.PassThruPartyID)
	e.addr(m.RemoteAddr)
	e.u32(m.RemotePort)
	e.u32(m.PacketSize)
	e.u32(m.PayloadType)
	e.u32(m.Precedence)
	e.u32(m.SilenceSuppression)
	e.u32(m.MaxFramesPerPacket)
	e.u32(m.G723BitRate)
	e.u32(m.ConferenceID1)
	for i := 0; i < mediaReservedWords; i++ {
		e.u32(0)
	}
}

func (m *StartMediaTransmission) decode(d *decoder) {
	m.ConferenceID = d.u32()
	m.PassThruPartyID = d.u32()
	m.RemoteAddr = d.addr()
	m.RemotePort = d.u32()
	m.PacketSize = d.u32()
	m.PayloadType = d.u32()
	m.Precedence = d.u32()
	m.SilenceSuppression = d.u32()
	m.MaxFramesPerPacket = d.u32()
	m.G723BitRate = d.u32()
	m.ConferenceID1 = d.u32()
}

// StopMediaTransmission stops the station RTP sender.
type StopMediaTransmission struct {
	ConferenceID    uint32
	PassThruPartyID uint32
	ConferenceID1   uint32
}

func (*StopMediaTransmission) Kind() Kind { return KindStopMediaTransmission }

func (m *StopMediaTransmission) encode(e *encoder) {
	e.u32(m.ConferenceID)
	e.u32(m.PassThruPartyID)
	e.u32(m.ConferenceID1)
}

func (m *StopMediaTransmission) decode(d *decoder) {
	m.ConferenceID = d.u32()
	m.PassThruPartyID = d.u32()
	m.ConferenceID1 = d.u32()
}

// ConnectionStatisticsReq asks for the RTP counters of a call.
type ConnectionStatisticsReq struct {
	DirNumber  string
	CallRef    uint32
	Processing uint32
}

func (*ConnectionStatisticsReq) Kind() Kind { return KindConnectionStatisticsReq }

func (m *ConnectionStatisticsReq) encode(e *encoder) {
	e.str(m.DirNumber, DirNumberSize)
	e.u32(m.CallRef)
	e.u32(m.Processing)
}

func (m *ConnectionStatisticsReq) decode(d *decoder) {
	m.DirNumber = d.str(DirNumberSize)
	m.CallRef = d.u32()
	m.Processing = d.u32()
}

// Statistics processing modes.
const (
	StatsClear      uint32 = 0
	StatsDoNotClear uint32 = 1
)
