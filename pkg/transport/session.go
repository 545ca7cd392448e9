package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Session errors.
var (
	// ErrSessionClosed is returned by Send after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrTruncated marks a message whose payload was cut to the maximum size.
	ErrTruncated = errors.New("payload truncated")
)

// Close reasons recorded on a session.
const (
	ReasonReadError     = "read error"
	ReasonWriteError    = "write error"
	ReasonDesync        = "stream desynchronized"
	ReasonKeepAlive     = "keepalive timeout"
	ReasonReplaced      = "replaced by new registration"
	ReasonUnregistered  = "unregistered"
	ReasonProtocol      = "protocol violation"
	ReasonNotRegistered = "not registered"
	ReasonRestart       = "restart requested"
	ReasonServerStopped = "server stopped"
)

const readChunkSize = 4096

// Session is one station connection. The receive accumulator is owned by the
// read loop; everything else is safe for concurrent use.
type Session struct {
	id         string
	conn       net.Conn
	codec      wire.Codec
	remoteAddr netip.AddrPort
	logger     log.Logger

	writeTimeout time.Duration

	// onProtocolError receives per-frame errors that do not close the session.
	onProtocolError func(*Session, error)

	acc []byte
	buf []byte

	lastKeepAlive atomic.Int64
	keepAlive     atomic.Int64

	mu       sync.Mutex
	deviceID string

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
	reason    atomic.Value
}

func newSession(id string, conn net.Conn, codec wire.Codec, logger log.Logger) *Session {
	s := &Session{
		id:      id,
		conn:    conn,
		codec:   codec,
		logger:  log.OrNoop(logger),
		buf:     make([]byte, readChunkSize),
		closeCh: make(chan struct{}),
	}
	if ap, err := netip.ParseAddrPort(conn.RemoteAddr().String()); err == nil {
		s.remoteAddr = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	s.Touch(time.Now())
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// RemoteAddr returns the station address.
func (s *Session) RemoteAddr() netip.AddrPort { return s.remoteAddr }

// RemoteIP returns the station IP address.
func (s *Session) RemoteIP() netip.Addr { return s.remoteAddr.Addr() }

// LocalAddr returns the gateway side of the connection.
func (s *Session) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Touch records station activity at now.
func (s *Session) Touch(now time.Time) { s.lastKeepAlive.Store(now.UnixNano()) }

// LastKeepAlive returns the time of the last recorded station activity.
func (s *Session) LastKeepAlive() time.Time { return time.Unix(0, s.lastKeepAlive.Load()) }

// SetKeepAlive sets the keepalive interval negotiated for the bound device.
func (s *Session) SetKeepAlive(d time.Duration) { s.keepAlive.Store(int64(d)) }

// KeepAlive returns the keepalive interval, zero when not yet negotiated.
func (s *Session) KeepAlive() time.Duration { return time.Duration(s.keepAlive.Load()) }

// Bind attaches the session to a device.
func (s *Session) Bind(deviceID string) {
	s.mu.Lock()
	s.deviceID = deviceID
	s.mu.Unlock()
	s.logState(deviceID, log.SessionBound)
}

// Unbind detaches the session from its device.
func (s *Session) Unbind() {
	s.mu.Lock()
	old := s.deviceID
	s.deviceID = ""
	s.mu.Unlock()
	if old != "" {
		s.logState(old, log.SessionUnbound)
	}
}

// DeviceID returns the bound device, or "" for an unbound session.
func (s *Session) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Send encodes and writes one message. A write failure closes the session.
func (s *Session) Send(m wire.Message) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	data := s.codec.Encode(m)

	s.writeMu.Lock()
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	_, err := s.conn.Write(data)
	s.writeMu.Unlock()

	if err != nil {
		s.logError(log.LayerTransport, err, "write "+m.Kind().String())
		s.Close(ReasonWriteError)
		return fmt.Errorf("send %s: %w", m.Kind(), err)
	}
	s.logMessage(log.DirectionOut, m)
	return nil
}

// SendAll writes messages in order, stopping at the first failure.
func (s *Session) SendAll(msgs ...wire.Message) error {
	for _, m := range msgs {
		if err := s.Send(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the connection once and records reason.
func (s *Session) Close(reason string) error {
	var err error
	s.closeOnce.Do(func() {
		s.reason.Store(reason)
		close(s.closeCh)
		err = s.conn.Close()
		s.logState(s.DeviceID(), log.SessionClosed+": "+reason)
	})
	return err
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.closeCh:
		return true
	default:
		return false
	}
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.closeCh }

// CloseReason returns the reason given to Close.
func (s *Session) CloseReason() string {
	if r, ok := s.reason.Load().(string); ok {
		return r
	}
	return ""
}

// ReadAvailable blocks for the next chunk of bytes, appends it to the
// accumulator and returns every complete message. Frames that cannot be
// decoded are reported through the protocol error callback and dropped.
// A returned error means the session is no longer usable.
func (s *Session) ReadAvailable() ([]wire.Message, error) {
	n, err := s.conn.Read(s.buf)
	if n > 0 {
		s.acc = append(s.acc, s.buf[:n]...)
	}

	msgs, splitErr := s.drain()
	if splitErr != nil {
		return msgs, splitErr
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return msgs, io.EOF
		}
		return msgs, fmt.Errorf("read: %w", err)
	}
	return msgs, nil
}

func (s *Session) drain() ([]wire.Message, error) {
	frames, consumed, err := s.codec.Split(s.acc)
	s.acc = s.acc[consumed:]
	if len(s.acc) == 0 {
		s.acc = s.acc[:0:0]
	}

	msgs := make([]wire.Message, 0, len(frames))
	for _, f := range frames {
		s.logFrame(f)
		m, derr := s.codec.Decode(f)
		if derr != nil {
			s.protocolError(derr)
			continue
		}
		if f.Truncated {
			s.protocolError(fmt.Errorf("%w: %s, %d bytes kept", ErrTruncated, f.Kind, len(f.Payload)))
		}
		s.logMessage(log.DirectionIn, m)
		msgs = append(msgs, m)
	}
	return msgs, err
}

func (s *Session) protocolError(err error) {
	s.logError(log.LayerWire, err, "decode")
	if s.onProtocolError != nil {
		s.onProtocolError(s, err)
	}
}

func (s *Session) logFrame(f wire.Frame) {
	data := f.Payload
	if len(data) > maxTraceFrameData {
		data = data[:maxTraceFrameData]
	}
	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Direction:  log.DirectionIn,
		Layer:      log.LayerTransport,
		Category:   log.CategoryFor(f.Kind),
		RemoteAddr: s.remoteAddr.String(),
		DeviceID:   s.DeviceID(),
		Frame:      &log.FrameEvent{Size: f.Size, Data: data, Truncated: f.Truncated},
	})
}

func (s *Session) logMessage(dir log.Direction, m wire.Message) {
	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Direction:  dir,
		Layer:      log.LayerWire,
		Category:   log.CategoryFor(m.Kind()),
		RemoteAddr: s.remoteAddr.String(),
		DeviceID:   s.DeviceID(),
		Message:    log.NewMessageEvent(m),
	})
}

func (s *Session) logState(device, state string) {
	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		RemoteAddr: s.remoteAddr.String(),
		DeviceID:   device,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			NewState: state,
		},
	})
}

func (s *Session) logError(layer log.Layer, err error, context string) {
	s.logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  s.id,
		Layer:      layer,
		Category:   log.CategoryError,
		RemoteAddr: s.remoteAddr.String(),
		DeviceID:   s.DeviceID(),
		Error:      &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context},
	})
}
