package registry

import "sync"

// Line is a directory number that can appear on several devices.
type Line struct {
	config LineConfig

	mu   sync.Mutex
	info LineInfo
}

func newLine(cfg LineConfig) *Line {
	return &Line{config: cfg}
}

// Name returns the line name.
func (l *Line) Name() string { return l.config.Name }

// Config returns the static configuration.
func (l *Line) Config() LineConfig { return l.config }

// Get returns a copy of the mutable state.
func (l *Line) Get() LineInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.info
}

// Update applies fn under the element lock and returns the resulting copy.
func (l *Line) Update(fn func(*LineInfo)) LineInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(&l.info)
	return l.info
}

// CallerID returns the configured caller id name and number. The number
// defaults to the line name.
func (l *Line) CallerID() (name, number string) {
	name, number = l.config.CIDName, l.config.CIDNumber
	if number == "" {
		number = l.config.Name
	}
	if name == "" {
		name = l.config.Label
	}
	return name, number
}
