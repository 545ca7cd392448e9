package dialtimer

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrTimerNotFound is returned when cancelling a channel without a timer.
var ErrTimerNotFound = errors.New("timer not found")

// Default timeouts.
const (
	DefaultFirstDigit = 15 * time.Second
	DefaultInterDigit = 5 * time.Second
)

// Config holds the digit timeouts.
type Config struct {
	FirstDigit time.Duration
	InterDigit time.Duration
}

// DefaultConfig returns the default timeouts.
func DefaultConfig() Config {
	return Config{FirstDigit: DefaultFirstDigit, InterDigit: DefaultInterDigit}
}

// Timer is an armed digit timeout.
type Timer struct {
	CallID    uint32
	Device    string
	StartTime time.Time
	Duration  time.Duration

	gen   uint64
	timer *time.Timer
}

// ExpiresAt returns when the timer will expire.
func (t *Timer) ExpiresAt() time.Time {
	return t.StartTime.Add(t.Duration)
}

// RemainingTime returns time until expiry.
func (t *Timer) RemainingTime() time.Duration {
	remaining := t.Duration - time.Since(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExpired returns true if the timer has expired.
func (t *Timer) IsExpired() bool {
	return time.Since(t.StartTime) >= t.Duration
}

// Manager tracks the digit timers of all dialing channels.
type Manager struct {
	mu sync.Mutex

	config Config
	timers map[uint32]*Timer
	gen    uint64

	onExpiry func(callID uint32, device string)
}

// NewManager creates a manager with the given timeouts. Zero values take
// the defaults.
func NewManager(config Config) *Manager {
	if config.FirstDigit <= 0 {
		config.FirstDigit = DefaultFirstDigit
	}
	if config.InterDigit <= 0 {
		config.InterDigit = DefaultInterDigit
	}
	return &Manager{
		config: config,
		timers: make(map[uint32]*Timer),
	}
}

// Arm starts or restarts the timer of a channel. digits is the number of
// digits collected so far.
func (m *Manager) Arm(callID uint32, device string, digits int) {
	d := m.config.InterDigit
	if digits == 0 {
		d = m.config.FirstDigit
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.timers[callID]; ok {
		existing.timer.Stop()
	}
	m.gen++
	gen := m.gen
	t := &Timer{
		CallID:    callID,
		Device:    device,
		StartTime: time.Now(),
		Duration:  d,
		gen:       gen,
	}
	t.timer = time.AfterFunc(d, func() { m.expire(callID, gen) })
	m.timers[callID] = t
}

// Cancel stops the timer of a channel without calling the expiry callback.
func (m *Manager) Cancel(callID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[callID]
	if !ok {
		return ErrTimerNotFound
	}
	t.timer.Stop()
	delete(m.timers, callID)
	return nil
}

// CancelDevice stops every timer of a device.
func (m *Manager) CancelDevice(device string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.timers {
		if t.Device == device {
			t.timer.Stop()
			delete(m.timers, id)
		}
	}
}

// Get returns a copy of the timer of a channel, or nil.
func (m *Manager) Get(callID uint32) *Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.timers[callID]
	if !ok {
		return nil
	}
	return &Timer{CallID: t.CallID, Device: t.Device, StartTime: t.StartTime, Duration: t.Duration}
}

// Count returns the number of armed timers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// OnExpiry sets the expiry callback. It runs on the timer goroutine.
func (m *Manager) OnExpiry(fn func(callID uint32, device string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpiry = fn
}

// Stop cancels all timers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.timer.Stop()
		delete(m.timers, id)
	}
}

func (m *Manager) expire(callID uint32, gen uint64) {
	m.mu.Lock()
	t, ok := m.timers[callID]
	if !ok || t.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(m.timers, callID)
	callback := m.onExpiry
	m.mu.Unlock()

	if callback != nil {
		callback(callID, t.Device)
	}
}

// Terminated reports whether number ends with the dial terminator '#' and
// returns the number without it.
func Terminated(number string) (string, bool) {
	if trimmed, ok := strings.CutSuffix(number, "#"); ok {
		return trimmed, true
	}
	return number, false
}
