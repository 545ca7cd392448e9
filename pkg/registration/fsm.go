package registration

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
)

// Registration events.
const (
	EventRegister   = "register"
	EventAccept     = "accept"
	EventReject     = "reject"
	EventUnregister = "unregister"
)

var stateOf = map[string]registry.RegistrationState{
	registry.Unregistered.String(): registry.Unregistered,
	registry.Pending.String():      registry.Pending,
	registry.Registered.String():   registry.Registered,
	registry.Rejected.String():     registry.Rejected,
}

// newMachine creates the state machine of one device. onEnter runs for
// every state change with the event's first argument as reason.
func newMachine(onEnter func(from, to registry.RegistrationState, reason string)) *fsm.FSM {
	unregistered := registry.Unregistered.String()
	pending := registry.Pending.String()
	registered := registry.Registered.String()
	rejected := registry.Rejected.String()

	return fsm.NewFSM(
		unregistered,
		fsm.Events{
			{Name: EventRegister, Src: []string{unregistered, registered, rejected}, Dst: pending},
			{Name: EventAccept, Src: []string{pending}, Dst: registered},
			{Name: EventReject, Src: []string{pending}, Dst: rejected},
			{Name: EventUnregister, Src: []string{pending, registered, rejected}, Dst: unregistered},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				var reason string
				if len(e.Args) > 0 {
					reason, _ = e.Args[0].(string)
				}
				onEnter(stateOf[e.Src], stateOf[e.Dst], reason)
			},
		},
	)
}

// fire runs an event. Events that leave the state unchanged are not errors.
func fire(ctx context.Context, m *fsm.FSM, event, reason string) error {
	err := m.Event(ctx, event, reason)
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return nil
	}
	return err
}
