package wire

import "net/netip"

// ForwardStat reports the call forward configuration of a line.
type ForwardStat struct {
	Active         uint32
	Line           uint32
	AllStatus      uint32
	AllNumber      string
	BusyStatus     uint32
	BusyNumber     string
	NoAnswerStatus uint32
	NoAnswerNumber string
}

func (*ForwardStat) Kind() Kind { return KindForwardStat }

func (m *ForwardStat) encode(e *encoder) {
	e.u32(m.Active)
	e.u32(m.Line)
	e.u32(m.AllStatus)
	e.str(m.AllNumber, DirNumberSize)
	e.u32(m.BusyStatus)
	e.str(m.BusyNumber, DirNumberSize)
	e.u32(m.NoAnswerStatus)
	e.str(m.NoAnswerNumber, DirNumberSize)
}

func (m *ForwardStat) decode(d *decoder) {
	m.Active = d.u32()
	m.Line = d.u32()
	m.AllStatus = d.u32()
	m.AllNumber = d.str(DirNumberSize)
	m.BusyStatus = d.u32()
	m.BusyNumber = d.str(DirNumberSize)
	m.NoAnswerStatus = d.u32()
	m.NoAnswerNumber = d.str(DirNumberSize)
}

// SpeedDialStat describes one speed dial button.
type SpeedDialStat struct {
	Number      uint32
	DirNumber   string
	DisplayName string
}

func (*SpeedDialStat) Kind() Kind { return KindSpeedDialStat }

func (m *SpeedDialStat) encode(e *encoder) {
	e.u32(m.Number)
	e.str(m.DirNumber, DirNumberSize)
	e.str(m.DisplayName, NameSize)
}

func (m *SpeedDialStat) decode(d *decoder) {
	m.Number = d.u32()
	m.DirNumber = d.str(DirNumberSize)
	m.DisplayName = d.str(NameSize)
}

// LineStat describes one line button.
type LineStat struct {
	Line               uint32
	DirNumber          string
	FullyQualifiedName string
	DisplayName        string
}

func (*LineStat) Kind() Kind { return KindLineStat }

func (m *LineStat) encode(e *encoder) {
	e.u32(m.Line)
	e.str(m.DirNumber, DirNumberSize)
	e.str(m.FullyQualifiedName, NameSize)
	e.str(m.DisplayName, ButtonNameSize)
}

func (m *LineStat) decode(d *decoder) {
	m.Line = d.u32()
	m.DirNumber = d.str(DirNumberSize)
	m.FullyQualifiedName = d.str(NameSize)
	m.DisplayName = d.str(ButtonNameSize)
}

// ConfigStat summarizes the device configuration.
type ConfigStat struct {
	DeviceName       string
	UserID           uint32
	Instance         uint32
	UserName         string
	ServerName       string
	NumberLines      uint32
	NumberSpeedDials uint32
}

func (*ConfigStat) Kind() Kind { return KindConfigStat }

func (m *ConfigStat) encode(e *encoder) {
	e.str(m.DeviceName, DeviceNameSize)
	e.u32(m.UserID)
	e.u32(m.Instance)
	e.str(m.UserName, NameSize)
	e.str(m.ServerName, NameSize)
	e.u32(m.NumberLines)
	e.u32(m.NumberSpeedDials)
}

func (m *ConfigStat) decode(d *decoder) {
	m.DeviceName = d.str(DeviceNameSize)
	m.UserID = d.u32()
	m.Instance = d.u32()
	m.UserName = d.str(NameSize)
	m.ServerName = d.str(NameSize)
	m.NumberLines = d.u32()
	m.NumberSpeedDials = d.u32()
}

// ButtonDefinition is one slot of the button template.
type ButtonDefinition struct {
	Instance uint8
	Type     ButtonType
}

// ButtonTemplate describes the physical button layout.
type ButtonTemplate struct {
	Offset  uint32
	Total   uint32
	Buttons []ButtonDefinition
}

func (*ButtonTemplate) Kind() Kind { return KindButtonTemplate }

func (m *ButtonTemplate) encode(e *encoder) {
	buttons := m.Buttons
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}
	e.u32(m.Offset)
	e.u32(uint32(len(buttons)))
	e.u32(m.Total)
	for i := 0; i < MaxButtons; i++ {
		if i < len(buttons) {
			e.u8(buttons[i].Instance)
			e.u8(uint8(buttons[i].Type))
			continue
		}
		e.u8(0)
		e.u8(uint8(ButtonUndefined))
	}
}

func (m *ButtonTemplate) decode(d *decoder) {
	m.Offset = d.u32()
	count := int(d.u32())
	m.Total = d.u32()
	if count > MaxButtons {
		count = MaxButtons
	}
	m.Buttons = make([]ButtonDefinition, 0, count)
	for i := 0; i < count; i++ {
		m.Buttons = append(m.Buttons, ButtonDefinition{Instance: d.u8(), Type: ButtonType(d.u8())})
	}
}

// Version carries the firmware load name.
type Version struct {
	Version string
}

func (*Version) Kind() Kind { return KindVersion }

func (m *Version) encode(e *encoder) { e.str(m.Version, VersionSize) }

func (m *Version) decode(d *decoder) { m.Version = d.str(VersionSize) }

// ServerEntry is one call manager in ServerRes.
type ServerEntry struct {
	Name string
	Port uint32
	Addr netip.Addr
}

// ServerRes lists the call managers the station may use.
type ServerRes struct {
	Servers []ServerEntry
}

func (*ServerRes) Kind() Kind { return KindServerRes }

func (m *ServerRes) entry(i int) ServerEntry {
	if i < len(m.Servers) {
		return m.Servers[i]
	}
	return ServerEntry{}
}

func (m *ServerRes) encode(e *encoder) {
	for i := 0; i < MaxServers; i++ {
		e.str(m.entry(i).Name, ServerNameSize)
	}
	for i := 0; i < MaxServers; i++ {
		e.u32(m.entry(i).Port)
	}
	for i := 0; i < MaxServers; i++ {
		e.addr(m.entry(i).Addr)
	}
}

func (m *ServerRes) decode(d *decoder) {
	entries := make([]ServerEntry, MaxServers)
	for i := range entries {
		entries[i].Name = d.str(ServerNameSize)
	}
	for i := range entries {
		entries[i].Port = d.u32()
	}
	for i := range entries {
		entries[i].Addr = d.addr()
	}
	m.Servers = nil
	for _, s := range entries {
		if s.Name == "" {
			break
		}
		m.Servers = append(m.Servers, s)
	}
}

// SoftKeyDefinition is one entry of the soft key template.
type SoftKeyDefinition struct {
	Label string
	Event SoftKey
}

// SoftKeyTemplateRes defines the soft keys known to the station.
type SoftKeyTemplateRes struct {
	Offset      uint32
	Total       uint32
	Definitions []SoftKeyDefinition
}

func (*SoftKeyTemplateRes) Kind() Kind { return KindSoftKeyTemplateRes }

func (m *SoftKeyTemplateRes) encode(e *encoder) {
	defs := m.Definitions
	if len(defs) > MaxSoftKeys {
		defs = defs[:MaxSoftKeys]
	}
	e.u32(m.Offset)
	e.u32(uint32(len(defs)))
	e.u32(m.Total)
	for i := 0; i < MaxSoftKeys; i++ {
		if i < len(defs) {
			e.str(defs[i].Label, SoftKeyLabelSize)
			e.u32(uint32(defs[i].Event))
			continue
		}
		e.raw(nil, SoftKeyLabelSize)
		e.u32(0)
	}
}

func (m *SoftKeyTemplateRes) decode(d *decoder) {
	m.Offset = d.u32()
	count := int(d.u32())
	m.Total = d.u32()
	if count > MaxSoftKeys {
		count = MaxSoftKeys
	}
	m.Definitions = make([]SoftKeyDefinition, 0, count)
	for i := 0; i < count; i++ {
		m.Definitions = append(m.Definitions, SoftKeyDefinition{
			Label: d.str(SoftKeyLabelSize),
			Event: SoftKey(d.u32()),
		})
	}
}

// LabelFor returns the phone-resident label encoding for a soft key.
func LabelFor(k SoftKey) string {
	return string([]byte{128, k.Label()})
}

// SoftKeySetDefinition lists the template indexes shown in one key set.
type SoftKeySetDefinition struct {
	TemplateIndex [MaxSoftKeyIndex]uint8
	InfoIndex     [MaxSoftKeyIndex]uint16
}

// SoftKeySetRes defines the soft key sets.
type SoftKeySetRes struct {
	Offset uint32
	Total  uint32
	Sets   []SoftKeySetDefinition
}

func (*SoftKeySetRes) Kind() Kind { return KindSoftKeySetRes }

func (m *SoftKeySetRes) encode(e *encoder) {
	sets := m.Sets
	if len(sets) > MaxSoftKeySets {
		sets = sets[:MaxSoftKeySets]
	}
	e.u32(m.Offset)
	e.u32(uint32(len(sets)))
	e.u32(m.Total)
	for i := 0; i < MaxSoftKeySets; i++ {
		var set SoftKeySetDefinition
		if i < len(sets) {
			set = sets[i]
		}
		for _, idx := range set.TemplateIndex {
			e.u8(idx)
		}
		for _, info := range set.InfoIndex {
			e.u16(info)
		}
	}
}

func (m *SoftKeySetRes) decode(d *decoder) {
	m.Offset = d.u32()
	count := int(d.u32())
	m.Total = d.u32()
	if count > MaxSoftKeySets {
		count = MaxSoftKeySets
	}
	m.Sets = make([]SoftKeySetDefinition, count)
	for i := range m.Sets {
		for j := range m.Sets[i].TemplateIndex {
			m.Sets[i].TemplateIndex[j] = d.u8()
		}
		for j := range m.Sets[i].InfoIndex {
			m.Sets[i].InfoIndex[j] = d.u16()
		}
	}
}

// FeatureStat describes a feature button and its state.
type FeatureStat struct {
	Index  uint32
	ID     uint32
	Label  string
	Status uint32
}

func (*FeatureStat) Kind() Kind { return KindFeatureStat }

func (m *FeatureStat) encode(e *encoder) {
	e.u32(m.Index)
	e.u32(m.ID)
	e.str(m.Label, NameSize)
	e.u32(m.Status)
}

func (m *FeatureStat) decode(d *decoder) {
	m.Index = d.u32()
	m.ID = d.u32()
	m.Label = d.str(NameSize)
	m.Status = d.u32()
}

// ServiceURLStat describes a service URL button.
type ServiceURLStat struct {
	Index uint32
	URL   string
	Label string
}

func (*ServiceURLStat) Kind() Kind { return KindServiceURLStat }

func (m *ServiceURLStat) encode(e *encoder) {
	e.u32(m.Index)
	e.str(m.URL, ServiceURLSize)
	e.str(m.Label, NameSize)
}

func (m *ServiceURLStat) decode(d *decoder) {
	m.Index = d.u32()
	m.URL = d.str(ServiceURLSize)
	m.Label = d.str(NameSize)
}
