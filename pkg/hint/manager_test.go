package hint

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

type collector struct {
	mu    sync.Mutex
	notes []Notification
}

func (c *collector) add(n Notification) {
	c.mu.Lock()
	c.notes = append(c.notes, n)
	c.mu.Unlock()
}

func newWatched(t *testing.T) (*Manager, *collector) {
	t.Helper()
	m := NewManager()
	c := &collector{}
	m.OnNotification(c.add)
	if _, err := m.Subscribe("SEP000000000002", 3, "100"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return m, c
}

func TestSubscribe(t *testing.T) {
	m := NewManagerWithConfig(Config{MaxSubscriptions: 2})

	id, err := m.Subscribe("SEP1", 2, "100")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	again, err := m.Subscribe("SEP1", 2, "100")
	if err != nil || again != id {
		t.Fatalf("re-subscribe = %d, %v; want %d", again, err, id)
	}
	if _, err := m.Subscribe("SEP2", 1, "100"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := m.Subscribe("SEP3", 1, "100"); err != ErrResourceExhausted {
		t.Errorf("over limit: %v", err)
	}
	if _, err := m.Subscribe("SEP3", 0, "100"); err != ErrInvalidSubscription {
		t.Errorf("instance 0: %v", err)
	}

	if got := len(m.Subscribers("100")); got != 2 {
		t.Errorf("Subscribers = %d", got)
	}
	if err := m.Unsubscribe(id); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := m.Unsubscribe(id); err != ErrSubscriptionNotFound {
		t.Errorf("second Unsubscribe: %v", err)
	}
	if n := m.UnsubscribeDevice("SEP2"); n != 1 {
		t.Errorf("UnsubscribeDevice = %d", n)
	}
	if m.Watching("100") || m.Count() != 0 {
		t.Error("line still watched")
	}
}

func TestNotifyRingIn(t *testing.T) {
	m, c := newWatched(t)

	ok := m.Notify(Event{
		Line:          "100",
		Device:        "SEP000000000001",
		CallID:        7,
		State:         registry.StateRingIn,
		Direction:     wire.CallTypeInbound,
		CallingName:   "Alice",
		CallingNumber: "201",
		CalledNumber:  "100",
	})
	if !ok || len(c.notes) != 1 {
		t.Fatalf("published=%v notes=%d", ok, len(c.notes))
	}

	n := c.notes[0]
	if n.Device != "SEP000000000002" || n.Instance != 3 {
		t.Errorf("routed to %s/%d", n.Device, n.Instance)
	}
	want := []wire.Message{
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 3, Mode: wire.LampBlink},
		&wire.CallStateMsg{State: wire.CallStateRemoteMultiline, Line: 3, CallRef: 7},
		&wire.CallInfo{CallingPartyName: "Alice", CallingParty: "201", CalledParty: "100", Line: 3, CallRef: 7, Type: wire.CallTypeInbound},
		&wire.SelectSoftKeys{Line: 3, CallRef: 7, Set: wire.KeySetInUseHint, ValidKeyMask: 0xFFFFFFFF},
	}
	if diff := cmp.Diff(want, n.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifyOffHookShowsPlaceholder(t *testing.T) {
	m, c := newWatched(t)
	m.Notify(Event{Line: "100", Device: "SEP000000000001", CallID: 1, State: registry.StateOffHook})

	info := c.notes[0].Messages[2].(*wire.CallInfo)
	if info.CallingPartyName != offHookName {
		t.Errorf("CallingPartyName = %q", info.CallingPartyName)
	}
	if lamp := c.notes[0].Messages[0].(*wire.SetLamp); lamp.Mode != wire.LampOn {
		t.Errorf("lamp = %v", lamp.Mode)
	}
}

func TestNotifyPrivacy(t *testing.T) {
	m, c := newWatched(t)

	if m.Notify(Event{Line: "100", Device: "SEP000000000001", State: registry.StateConnected, Private: true}) {
		t.Error("private transition published")
	}
	if !m.Notify(Event{Line: "100", Device: "SEP000000000001", State: registry.StateOnHook, Private: true}) {
		t.Error("private on-hook not published")
	}
	want := []wire.Message{
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 3, Mode: wire.LampOff},
		&wire.CallStateMsg{State: wire.CallStateOnHook, Line: 3},
	}
	if diff := cmp.Diff(want, c.notes[0].Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestNotifySkipsOwner(t *testing.T) {
	m, c := newWatched(t)
	if m.Notify(Event{Line: "100", Device: "SEP000000000002", State: registry.StateConnected}) {
		t.Error("owner notified about its own call")
	}
	if m.Notify(Event{Line: "200", Device: "SEP000000000001", State: registry.StateConnected}) {
		t.Error("unwatched line published")
	}
	if len(c.notes) != 0 {
		t.Errorf("notes = %d", len(c.notes))
	}
}

func TestNotifyStatus(t *testing.T) {
	tests := []struct {
		name string
		st   LineStatus
		want []wire.Message
	}{
		{
			name: "dnd",
			st:   LineStatus{Line: "100", DND: true},
			want: []wire.Message{
				&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 3, Mode: wire.LampOn},
				&wire.CallInfo{CallingPartyName: "DND", CalledPartyName: "DND", Line: 3},
			},
		},
		{
			name: "forward",
			st:   LineStatus{Line: "100", ForwardAll: "300"},
			want: []wire.Message{
				&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 3, Mode: wire.LampOn},
				&wire.CallInfo{CallingPartyName: "Forwarded to 300", CalledPartyName: "Forwarded to 300", Line: 3},
			},
		},
		{
			name: "idle",
			st:   LineStatus{Line: "100"},
			want: []wire.Message{
				&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 3, Mode: wire.LampOff},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, c := newWatched(t)
			m.NotifyStatus(tt.st)
			if diff := cmp.Diff(tt.want, c.notes[0].Messages); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrime(t *testing.T) {
	m := NewManager()
	c := &collector{}
	m.OnNotification(c.add)
	id, _ := m.Subscribe("SEP1", 1, "100")

	if !m.Prime(id, Event{Line: "100", State: registry.StateDown}) {
		t.Fatal("Prime returned false")
	}
	if m.Prime(id+1000, Event{}) {
		t.Error("Prime for unknown subscription")
	}
	if len(c.notes) != 1 || c.notes[0].SubscriptionID != id {
		t.Errorf("notes = %+v", c.notes)
	}
}
