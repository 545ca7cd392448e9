package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Client errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrTimeout          = errors.New("receive timeout")
)

// ClientConfig configures the station side of a connection.
type ClientConfig struct {
	Codec wire.Codec

	// ConnectTimeout is the dial timeout (default: 10s).
	ConnectTimeout time.Duration
}

// ClientConn is a station-side connection, used by tests and tooling to
// play the phone.
type ClientConn struct {
	conn  net.Conn
	codec wire.Codec

	pending []wire.Message
	acc     []byte
	buf     []byte

	closeOnce sync.Once
	closeCh   chan struct{}
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// Dial connects to a gateway.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewClientConn(conn, config.Codec), nil
}

// NewClientConn wraps an established connection.
func NewClientConn(conn net.Conn, codec wire.Codec) *ClientConn {
	return &ClientConn{
		conn:    conn,
		codec:   codec,
		buf:     make([]byte, readChunkSize),
		closeCh: make(chan struct{}),
	}
}

// LocalAddr returns the station side address.
func (c *ClientConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the gateway address.
func (c *ClientConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send writes one message.
func (c *ClientConn) Send(m wire.Message) error {
	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(c.codec.Encode(m))
	return err
}

// SendRaw writes bytes unchanged, for malformed-input tests.
func (c *ClientConn) SendRaw(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Receive returns the next message, waiting at most timeout.
func (c *ClientConn) Receive(timeout time.Duration) (wire.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	deadline := time.Now().Add(timeout)
	for len(c.pending) == 0 {
		select {
		case <-c.closeCh:
			return nil, ErrConnectionClosed
		default:
		}
		if timeout > 0 {
			_ = c.conn.SetReadDeadline(deadline)
		}
		n, err := c.conn.Read(c.buf)
		if n > 0 {
			c.acc = append(c.acc, c.buf[:n]...)
			msgs, consumed, errs := c.codec.DecodeAll(c.acc)
			c.acc = c.acc[consumed:]
			c.pending = append(c.pending, msgs...)
			for _, e := range errs {
				if errors.Is(e, wire.ErrFrameTooLarge) {
					return nil, e
				}
			}
		}
		if err != nil && len(c.pending) == 0 {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, err
		}
	}

	m := c.pending[0]
	c.pending = c.pending[1:]
	return m, nil
}

// ReceiveUntil reads messages until one of kind arrives and returns it with
// every message read before it.
func (c *ClientConn) ReceiveUntil(kind wire.Kind, timeout time.Duration) (wire.Message, []wire.Message, error) {
	deadline := time.Now().Add(timeout)
	var skipped []wire.Message
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, skipped, fmt.Errorf("%w waiting for %s", ErrTimeout, kind)
		}
		m, err := c.Receive(left)
		if err != nil {
			return nil, skipped, err
		}
		if m.Kind() == kind {
			return m, skipped, nil
		}
		skipped = append(skipped, m)
	}
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
