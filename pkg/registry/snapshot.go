package registry

// DeviceSnapshot is a point-in-time copy of a device.
type DeviceSnapshot struct {
	ID          string
	Description string
	Info        DeviceInfo
	Lines       []Attachment
	Channels    []uint32
}

// LineSnapshot is a point-in-time copy of a line.
type LineSnapshot struct {
	Name     string
	Label    string
	Limit    int
	Info     LineInfo
	Devices  []Attachment
	Channels []uint32
}

// ChannelSnapshot is a point-in-time copy of a channel.
type ChannelSnapshot struct {
	CallID uint32
	Line   string
	Device string
	Info   ChannelInfo
}

// Snapshot is a deep copy of the registry for management use.
type Snapshot struct {
	Devices  []DeviceSnapshot
	Lines    []LineSnapshot
	Channels []ChannelSnapshot
}

// Snapshot copies the registry. Each element is copied under its own lock;
// the result is consistent per element, not across elements.
func (r *Registry) Snapshot() Snapshot {
	var s Snapshot
	for _, d := range r.Devices() {
		s.Devices = append(s.Devices, DeviceSnapshot{
			ID:          d.ID(),
			Description: d.config.Description,
			Info:        d.Get(),
			Lines:       r.LinesOf(d.ID()),
			Channels:    callIDs(r.ChannelsByDevice(d.ID())),
		})
	}
	for _, l := range r.Lines() {
		s.Lines = append(s.Lines, LineSnapshot{
			Name:     l.Name(),
			Label:    l.config.Label,
			Limit:    l.config.Limit(),
			Info:     l.Get(),
			Devices:  r.DevicesOnLine(l.Name()),
			Channels: callIDs(r.ChannelsByLine(l.Name())),
		})
	}
	for _, c := range r.Channels() {
		s.Channels = append(s.Channels, ChannelSnapshot{
			CallID: c.id,
			Line:   c.line,
			Device: c.device,
			Info:   c.Get(),
		})
	}
	return s
}

func callIDs(cs []*Channel) []uint32 {
	out := make([]uint32, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.id)
	}
	return out
}
