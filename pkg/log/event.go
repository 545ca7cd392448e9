package log

import (
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Event is one entry of the protocol trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the station connection (UUID).
	SessionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// RemoteAddr is the station address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// DeviceID is the bound device name, empty before registration.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Exactly one of these is set.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates message flow relative to the gateway.
type Direction uint8

const (
	// DirectionIn is station to gateway.
	DirectionIn Direction = 0
	// DirectionOut is gateway to station.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which part of the gateway captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the decoded message layer.
	LayerWire Layer = 1
	// LayerService is registration and call control.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	// CategoryMessage is a protocol message other than keepalive.
	CategoryMessage Category = 0
	// CategoryKeepAlive is a KeepAlive or KeepAliveAck.
	CategoryKeepAlive Category = 1
	// CategoryState is a state change.
	CategoryState Category = 2
	// CategoryError is an error at any layer.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryKeepAlive:
		return "KEEPALIVE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// CategoryFor returns the category of a message of the given kind.
func CategoryFor(k wire.Kind) Category {
	if k == wire.KindKeepAlive || k == wire.KindKeepAliveAck {
		return CategoryKeepAlive
	}
	return CategoryMessage
}

// FrameEvent captures a raw frame.
type FrameEvent struct {
	// Size is the number of stream bytes the frame occupied.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated is set when the payload exceeded the maximum message size.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded message.
type MessageEvent struct {
	Kind wire.Kind `cbor:"1,keyasint"`
	Name string    `cbor:"2,keyasint"`

	// Payload is the decoded message struct.
	Payload any `cbor:"3,keyasint,omitempty"`

	// Raw is the wire payload without framing.
	Raw []byte `cbor:"4,keyasint,omitempty"`
}

// NewMessageEvent builds a MessageEvent for m.
func NewMessageEvent(m wire.Message) *MessageEvent {
	return &MessageEvent{Kind: m.Kind(), Name: m.Kind().String(), Payload: m, Raw: wire.Marshal(m)}
}

// StateChangeEvent captures session, registration and channel transitions.
type StateChangeEvent struct {
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`

	// CallID is set for channel transitions.
	CallID uint32 `cbor:"5,keyasint,omitempty"`
}

// Session state names carried by StateEntitySession events. A closed session
// reports SessionClosed followed by ": " and the close reason.
const (
	SessionConnected = "connected"
	SessionBound     = "bound"
	SessionUnbound   = "unbound"
	SessionClosed    = "closed"
)

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntitySession is a station connection.
	StateEntitySession StateEntity = 0
	// StateEntityRegistration is the device registration handshake.
	StateEntityRegistration StateEntity = 1
	// StateEntityChannel is a call leg.
	StateEntityChannel StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityRegistration:
		return "REGISTRATION"
	case StateEntityChannel:
		return "CHANNEL"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
