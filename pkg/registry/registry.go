package registry

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Registry errors.
var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrUnknownLine    = errors.New("unknown line")
	ErrUnknownChannel = errors.New("unknown channel")
	ErrDuplicate      = errors.New("already registered")
	ErrInstanceTaken  = errors.New("button instance taken")
	ErrLineAttached   = errors.New("line attached to another device")
	ErrLineLimit      = errors.New("line incoming limit reached")
	ErrShutdown       = errors.New("registry shut down")
)

// Attachment is a line as it appears on one device.
type Attachment struct {
	Line     string
	Device   string
	Instance uint8
	Shared   bool
}

type instanceKey struct {
	device   string
	instance uint8
}

// Registry holds devices, lines and channels with their derived indices.
//
// Each collection has its own mutex and each element its own; a collection
// mutex is always taken before an element mutex and neither is held across
// calls into collaborators or the network.
type Registry struct {
	devMu   sync.RWMutex
	devices map[string]*Device
	byIP    map[netip.Addr]string

	lineMu     sync.RWMutex
	lines      map[string]*Line
	attached   map[string]map[string]Attachment // line -> device
	byInstance map[instanceKey]string

	chanMu   sync.RWMutex
	channels map[uint32]*Channel
	order    []uint32
	byLine   map[string][]uint32
	byDevice map[string][]uint32

	nextCallID atomic.Uint32
	closed     atomic.Bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		devices:    make(map[string]*Device),
		byIP:       make(map[netip.Addr]string),
		lines:      make(map[string]*Line),
		attached:   make(map[string]map[string]Attachment),
		byInstance: make(map[instanceKey]string),
		channels:   make(map[uint32]*Channel),
		byLine:     make(map[string][]uint32),
		byDevice:   make(map[string][]uint32),
	}
}

// Devices

// AddDevice registers a device configuration.
func (r *Registry) AddDevice(cfg DeviceConfig) (*Device, error) {
	if r.closed.Load() {
		return nil, ErrShutdown
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("%w: empty device id", ErrUnknownDevice)
	}
	r.devMu.Lock()
	defer r.devMu.Unlock()
	if _, ok := r.devices[cfg.ID]; ok {
		return nil, fmt.Errorf("device %s: %w", cfg.ID, ErrDuplicate)
	}
	d := newDevice(cfg)
	r.devices[cfg.ID] = d
	return d, nil
}

// Device returns the device with the given id.
func (r *Registry) Device(id string) (*Device, bool) {
	r.devMu.RLock()
	defer r.devMu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// Devices returns all devices sorted by id.
func (r *Registry) Devices() []*Device {
	r.devMu.RLock()
	out := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.devMu.RUnlock()
	slices.SortFunc(out, func(a, b *Device) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// RemoveDevice deletes a device, its IP binding and its line attachments.
func (r *Registry) RemoveDevice(id string) error {
	r.devMu.Lock()
	if _, ok := r.devices[id]; !ok {
		r.devMu.Unlock()
		return fmt.Errorf("%s: %w", id, ErrUnknownDevice)
	}
	delete(r.devices, id)
	for ip, dev := range r.byIP {
		if dev == id {
			delete(r.byIP, ip)
		}
	}
	r.devMu.Unlock()

	r.DetachLines(id)
	return nil
}

// BindIP indexes a device by its source address.
func (r *Registry) BindIP(ip netip.Addr, deviceID string) {
	r.devMu.Lock()
	r.byIP[ip.Unmap()] = deviceID
	r.devMu.Unlock()
}

// UnbindIP removes ip from the index if it still points at deviceID.
func (r *Registry) UnbindIP(ip netip.Addr, deviceID string) {
	ip = ip.Unmap()
	r.devMu.Lock()
	if r.byIP[ip] == deviceID {
		delete(r.byIP, ip)
	}
	r.devMu.Unlock()
}

// DeviceByIP returns the device last bound to ip.
func (r *Registry) DeviceByIP(ip netip.Addr) (*Device, bool) {
	r.devMu.RLock()
	defer r.devMu.RUnlock()
	id, ok := r.byIP[ip.Unmap()]
	if !ok {
		return nil, false
	}
	d, ok := r.devices[id]
	return d, ok
}

// Lines

// AddLine registers a line configuration.
func (r *Registry) AddLine(cfg LineConfig) (*Line, error) {
	if r.closed.Load() {
		return nil, ErrShutdown
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty line name", ErrUnknownLine)
	}
	r.lineMu.Lock()
	defer r.lineMu.Unlock()
	if _, ok := r.lines[cfg.Name]; ok {
		return nil, fmt.Errorf("line %s: %w", cfg.Name, ErrDuplicate)
	}
	l := newLine(cfg)
	r.lines[cfg.Name] = l
	return l, nil
}

// Line returns the line with the given name.
func (r *Registry) Line(name string) (*Line, bool) {
	r.lineMu.RLock()
	defer r.lineMu.RUnlock()
	l, ok := r.lines[name]
	return l, ok
}

// Lines returns all lines sorted by name.
func (r *Registry) Lines() []*Line {
	r.lineMu.RLock()
	out := make([]*Line, 0, len(r.lines))
	for _, l := range r.lines {
		out = append(out, l)
	}
	r.lineMu.RUnlock()
	slices.SortFunc(out, func(a, b *Line) int {
		switch {
		case a.Name() < b.Name():
			return -1
		case a.Name() > b.Name():
			return 1
		}
		return 0
	})
	return out
}

// AttachLine attaches line to device at the given button instance (0 picks
// the next free instance). The first device to claim an instance keeps it:
// a conflicting claim fails with ErrInstanceTaken. A line attached to
// another device without sharing fails with ErrLineAttached.
func (r *Registry) AttachLine(deviceID, lineName string, instance uint8, shared bool) (Attachment, error) {
	r.lineMu.Lock()
	defer r.lineMu.Unlock()

	if _, ok := r.lines[lineName]; !ok {
		return Attachment{}, fmt.Errorf("%s: %w", lineName, ErrUnknownLine)
	}
	devs := r.attached[lineName]
	if a, ok := devs[deviceID]; ok {
		return a, nil
	}
	for dev, a := range devs {
		if !a.Shared || !shared {
			return Attachment{}, fmt.Errorf("%s on %s: %w", lineName, dev, ErrLineAttached)
		}
	}

	if instance == 0 {
		instance = 1
		for {
			if _, taken := r.byInstance[instanceKey{deviceID, instance}]; !taken {
				break
			}
			if instance == 255 {
				return Attachment{}, fmt.Errorf("%s: %w", deviceID, ErrInstanceTaken)
			}
			instance++
		}
	} else if other, taken := r.byInstance[instanceKey{deviceID, instance}]; taken {
		return Attachment{}, fmt.Errorf("instance %d on %s held by %s: %w", instance, deviceID, other, ErrInstanceTaken)
	}

	a := Attachment{Line: lineName, Device: deviceID, Instance: instance, Shared: shared}
	if devs == nil {
		devs = make(map[string]Attachment)
		r.attached[lineName] = devs
	}
	devs[deviceID] = a
	r.byInstance[instanceKey{deviceID, instance}] = lineName
	return a, nil
}

// DetachLines removes every line attachment of a device.
func (r *Registry) DetachLines(deviceID string) {
	r.lineMu.Lock()
	defer r.lineMu.Unlock()
	for name, devs := range r.attached {
		a, ok := devs[deviceID]
		if !ok {
			continue
		}
		delete(devs, deviceID)
		delete(r.byInstance, instanceKey{deviceID, a.Instance})
		if len(devs) == 0 {
			delete(r.attached, name)
		}
	}
}

// LineByInstance resolves a device button instance to its line.
func (r *Registry) LineByInstance(deviceID string, instance uint8) (*Line, bool) {
	r.lineMu.RLock()
	defer r.lineMu.RUnlock()
	name, ok := r.byInstance[instanceKey{deviceID, instance}]
	if !ok {
		return nil, false
	}
	l, ok := r.lines[name]
	return l, ok
}

// InstanceOf returns the button instance of line on device.
func (r *Registry) InstanceOf(deviceID, lineName string) (uint8, bool) {
	r.lineMu.RLock()
	defer r.lineMu.RUnlock()
	a, ok := r.attached[lineName][deviceID]
	return a.Instance, ok
}

// LinesOf returns the attachments of a device ordered by instance.
func (r *Registry) LinesOf(deviceID string) []Attachment {
	r.lineMu.RLock()
	var out []Attachment
	for _, devs := range r.attached {
		if a, ok := devs[deviceID]; ok {
			out = append(out, a)
		}
	}
	r.lineMu.RUnlock()
	slices.SortFunc(out, func(a, b Attachment) int { return int(a.Instance) - int(b.Instance) })
	return out
}

// DevicesOnLine returns the attachments of a line ordered by device id.
func (r *Registry) DevicesOnLine(lineName string) []Attachment {
	r.lineMu.RLock()
	out := make([]Attachment, 0, len(r.attached[lineName]))
	for _, a := range r.attached[lineName] {
		out = append(out, a)
	}
	r.lineMu.RUnlock()
	slices.SortFunc(out, func(a, b Attachment) int {
		switch {
		case a.Device < b.Device:
			return -1
		case a.Device > b.Device:
			return 1
		}
		return 0
	})
	return out
}

// Channels

// AllocateChannel creates a channel on line owned by device. It fails with
// ErrLineLimit when the line already carries its incoming limit of channels.
func (r *Registry) AllocateChannel(lineName, deviceID string, direction wire.CallType) (*Channel, error) {
	if r.closed.Load() {
		return nil, ErrShutdown
	}
	l, ok := r.Line(lineName)
	if !ok {
		return nil, fmt.Errorf("%s: %w", lineName, ErrUnknownLine)
	}
	if _, ok := r.Device(deviceID); !ok {
		return nil, fmt.Errorf("%s: %w", deviceID, ErrUnknownDevice)
	}

	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	if len(r.byLine[lineName]) >= l.config.Limit() {
		return nil, fmt.Errorf("%s: %w", lineName, ErrLineLimit)
	}
	c := &Channel{
		id:     r.nextCallID.Add(1),
		line:   lineName,
		device: deviceID,
		info:   ChannelInfo{State: StateDown, Direction: direction},
	}
	r.channels[c.id] = c
	r.order = append(r.order, c.id)
	r.byLine[lineName] = append(r.byLine[lineName], c.id)
	r.byDevice[deviceID] = append(r.byDevice[deviceID], c.id)
	return c, nil
}

// Channel returns a channel by call id.
func (r *Registry) Channel(id uint32) (*Channel, bool) {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()
	c, ok := r.channels[id]
	return c, ok
}

// RemoveChannel deletes a channel from every collection at once.
func (r *Registry) RemoveChannel(id uint32) (*Channel, error) {
	r.chanMu.Lock()
	defer r.chanMu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return nil, fmt.Errorf("call %d: %w", id, ErrUnknownChannel)
	}
	delete(r.channels, id)
	r.order = removeID(r.order, id)
	r.byLine[c.line] = removeID(r.byLine[c.line], id)
	if len(r.byLine[c.line]) == 0 {
		delete(r.byLine, c.line)
	}
	r.byDevice[c.device] = removeID(r.byDevice[c.device], id)
	if len(r.byDevice[c.device]) == 0 {
		delete(r.byDevice, c.device)
	}
	return c, nil
}

// Channels returns every channel in allocation order.
func (r *Registry) Channels() []*Channel {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()
	return r.resolve(r.order)
}

// ChannelsByLine returns the channels of a line in allocation order.
func (r *Registry) ChannelsByLine(lineName string) []*Channel {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()
	return r.resolve(r.byLine[lineName])
}

// ChannelsByDevice returns the channels of a device in allocation order.
func (r *Registry) ChannelsByDevice(deviceID string) []*Channel {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()
	return r.resolve(r.byDevice[deviceID])
}

// ChannelCount returns the number of channels on a line.
func (r *Registry) ChannelCount(lineName string) int {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()
	return len(r.byLine[lineName])
}

func (r *Registry) resolve(ids []uint32) []*Channel {
	out := make([]*Channel, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.channels[id])
	}
	return out
}

func removeID(ids []uint32, id uint32) []uint32 {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

// Shutdown drops all channels and refuses further additions. Devices and
// lines stay readable for a final snapshot.
func (r *Registry) Shutdown() {
	if r.closed.Swap(true) {
		return
	}
	r.chanMu.Lock()
	clear(r.channels)
	clear(r.byLine)
	clear(r.byDevice)
	r.order = nil
	r.chanMu.Unlock()

	r.devMu.Lock()
	clear(r.byIP)
	r.devMu.Unlock()
}

// Closed reports whether Shutdown was called.
func (r *Registry) Closed() bool { return r.closed.Load() }
