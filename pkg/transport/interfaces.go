package transport

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Conn is the gateway side of a station connection as seen by handlers.
// Implemented by Session.
type Conn interface {
	ID() string
	RemoteIP() netip.Addr
	Send(m wire.Message) error
	SendAll(msgs ...wire.Message) error
	Close(reason string) error
	Closed() bool
	Bind(deviceID string)
	Unbind()
	DeviceID() string
	SetKeepAlive(d time.Duration)
	Touch(now time.Time)
}

// StationConn is the station side of a connection.
// Implemented by ClientConn.
type StationConn interface {
	Send(m wire.Message) error
	Receive(timeout time.Duration) (wire.Message, error)
	LocalAddr() net.Addr
	Close() error
}

// Listener accepts station connections.
// Implemented by Server.
type Listener interface {
	Start(ctx context.Context) error
	Stop() error
	Addr() net.Addr
	SessionCount() int
}

var (
	_ Conn        = (*Session)(nil)
	_ StationConn = (*ClientConn)(nil)
	_ Listener    = (*Server)(nil)
)
