package registry

import "sync"

// Channel is one call leg on a line, owned by a device.
type Channel struct {
	id     uint32
	line   string
	device string

	mu   sync.Mutex
	info ChannelInfo
}

// CallID returns the process-wide call id.
func (c *Channel) CallID() uint32 { return c.id }

// Line returns the line name.
func (c *Channel) Line() string { return c.line }

// Device returns the owning device id.
func (c *Channel) Device() string { return c.device }

// Get returns a copy of the mutable state.
func (c *Channel) Get() ChannelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// Update applies fn under the element lock and returns the resulting copy.
func (c *Channel) Update(fn func(*ChannelInfo)) ChannelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.info)
	return c.info
}

// State returns the current indicate state.
func (c *Channel) State() ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info.State
}
