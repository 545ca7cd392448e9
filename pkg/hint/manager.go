package hint

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Subscription errors.
var (
	ErrResourceExhausted    = errors.New("maximum subscriptions reached")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidSubscription  = errors.New("invalid subscription")
)

// DefaultMaxSubscriptions bounds the subscriptions of one gateway.
const DefaultMaxSubscriptions = 4096

// Config holds hint manager configuration.
type Config struct {
	// MaxSubscriptions is the maximum number of subscriptions allowed.
	MaxSubscriptions int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{MaxSubscriptions: DefaultMaxSubscriptions}
}

// Subscription is one watching button.
type Subscription struct {
	ID       uint32
	Device   string
	Instance uint8
	Line     string
}

// Event is a channel transition on a watched line.
type Event struct {
	Line   string
	Device string
	CallID uint32
	State  registry.ChannelState

	Direction     wire.CallType
	CallingName   string
	CallingNumber string
	CalledName    string
	CalledNumber  string
	Private       bool
}

// LineStatus is the administrative state of a watched line.
type LineStatus struct {
	Line       string
	DND        bool
	ForwardAll string
}

// Notification carries the messages for one subscriber.
type Notification struct {
	SubscriptionID uint32
	Device         string
	Instance       uint8
	Messages       []wire.Message
	Timestamp      time.Time
}

var subscriptionIDs atomic.Uint32

// Manager manages hint subscriptions.
type Manager struct {
	mu sync.RWMutex

	config Config

	subscriptions map[uint32]*Subscription

	// Index by line for event dispatch
	lineIndex map[string][]*Subscription

	onNotification func(Notification)
}

// NewManager creates a hint manager with default configuration.
func NewManager() *Manager {
	return NewManagerWithConfig(DefaultConfig())
}

// NewManagerWithConfig creates a hint manager with custom configuration.
func NewManagerWithConfig(config Config) *Manager {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	return &Manager{
		config:        config,
		subscriptions: make(map[uint32]*Subscription),
		lineIndex:     make(map[string][]*Subscription),
	}
}

// Subscribe watches line from a button of device. An existing subscription
// for the same button is returned unchanged.
func (m *Manager) Subscribe(device string, instance uint8, line string) (uint32, error) {
	if device == "" || line == "" || instance == 0 {
		return 0, ErrInvalidSubscription
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.lineIndex[line] {
		if sub.Device == device && sub.Instance == instance {
			return sub.ID, nil
		}
	}
	if len(m.subscriptions) >= m.config.MaxSubscriptions {
		return 0, ErrResourceExhausted
	}

	sub := &Subscription{
		ID:       subscriptionIDs.Add(1),
		Device:   device,
		Instance: instance,
		Line:     line,
	}
	m.subscriptions[sub.ID] = sub
	m.lineIndex[line] = append(m.lineIndex[line], sub)
	return sub.ID, nil
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.subscriptions[subscriptionID]
	if !exists {
		return ErrSubscriptionNotFound
	}
	m.remove(sub)
	return nil
}

// UnsubscribeDevice removes every subscription of a device and returns how
// many were removed.
func (m *Manager) UnsubscribeDevice(device string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, sub := range m.subscriptions {
		if sub.Device == device {
			m.remove(sub)
			n++
		}
	}
	return n
}

func (m *Manager) remove(sub *Subscription) {
	delete(m.subscriptions, sub.ID)
	subs := m.lineIndex[sub.Line]
	for i, s := range subs {
		if s.ID == sub.ID {
			m.lineIndex[sub.Line] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(m.lineIndex[sub.Line]) == 0 {
		delete(m.lineIndex, sub.Line)
	}
}

// Watching reports whether line has subscribers.
func (m *Manager) Watching(line string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lineIndex[line]) > 0
}

// Subscribers returns the subscriptions on a line.
func (m *Manager) Subscribers(line string) []Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subscription, 0, len(m.lineIndex[line]))
	for _, sub := range m.lineIndex[line] {
		out = append(out, *sub)
	}
	return out
}

// Count returns the number of subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// OnNotification sets the delivery callback.
func (m *Manager) OnNotification(fn func(Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNotification = fn
}

// Notify publishes a channel transition to the line's subscribers. The
// device that owns the channel is skipped. It reports whether anything was
// published.
func (m *Manager) Notify(ev Event) bool {
	if ev.Private && ev.State != registry.StateOnHook && ev.State != registry.StateDown {
		return false
	}
	return m.dispatch(ev.Line, ev.Device, func(instance uint8) []wire.Message {
		return EventMessages(ev, instance)
	})
}

// NotifyStatus publishes the administrative state of a line.
func (m *Manager) NotifyStatus(st LineStatus) bool {
	return m.dispatch(st.Line, "", func(instance uint8) []wire.Message {
		return StatusMessages(st, instance)
	})
}

// Prime sends the current state to one new subscriber.
func (m *Manager) Prime(subscriptionID uint32, ev Event) bool {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	onNotify := m.onNotification
	m.mu.RUnlock()
	if !ok || onNotify == nil {
		return false
	}
	onNotify(Notification{
		SubscriptionID: sub.ID,
		Device:         sub.Device,
		Instance:       sub.Instance,
		Messages:       EventMessages(ev, sub.Instance),
		Timestamp:      time.Now(),
	})
	return true
}

func (m *Manager) dispatch(line, skipDevice string, build func(uint8) []wire.Message) bool {
	m.mu.RLock()
	subs := make([]Subscription, 0, len(m.lineIndex[line]))
	for _, sub := range m.lineIndex[line] {
		if sub.Device != skipDevice {
			subs = append(subs, *sub)
		}
	}
	onNotify := m.onNotification
	m.mu.RUnlock()

	if onNotify == nil || len(subs) == 0 {
		return false
	}
	now := time.Now()
	for _, sub := range subs {
		onNotify(Notification{
			SubscriptionID: sub.ID,
			Device:         sub.Device,
			Instance:       sub.Instance,
			Messages:       build(sub.Instance),
			Timestamp:      now,
		})
	}
	return true
}

// ClearAll removes all subscriptions.
func (m *Manager) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[uint32]*Subscription)
	m.lineIndex = make(map[string][]*Subscription)
}
