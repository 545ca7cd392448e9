package transport

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

type traceRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *traceRecorder) Log(e log.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *traceRecorder) count(layer log.Layer, dir log.Direction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Layer == layer && e.Direction == dir && (e.Frame != nil || e.Message != nil) {
			n++
		}
	}
	return n
}

func pipeSession(t *testing.T, logger log.Logger) (*Session, net.Conn) {
	t.Helper()
	gw, station := net.Pipe()
	t.Cleanup(func() {
		gw.Close()
		station.Close()
	})
	return newSession("test", gw, wire.DefaultCodec, logger), station
}

func TestSessionReadAvailableAccumulates(t *testing.T) {
	trace := &traceRecorder{}
	sess, station := pipeSession(t, trace)

	stream := append(wire.DefaultCodec.Encode(&wire.OffHook{}), wire.DefaultCodec.Encode(&wire.KeypadButton{Button: 7})...)
	go func() {
		for _, b := range stream {
			if _, err := station.Write([]byte{b}); err != nil {
				return
			}
		}
	}()

	var got []wire.Message
	for len(got) < 2 {
		msgs, err := sess.ReadAvailable()
		if err != nil {
			t.Fatalf("ReadAvailable: %v", err)
		}
		got = append(got, msgs...)
	}

	if got[0].Kind() != wire.KindOffHook || got[1].Kind() != wire.KindKeypadButton {
		t.Fatalf("got %v, %v", got[0].Kind(), got[1].Kind())
	}
	if len(sess.acc) != 0 {
		t.Errorf("accumulator holds %d bytes", len(sess.acc))
	}
	if n := trace.count(log.LayerTransport, log.DirectionIn); n != 2 {
		t.Errorf("frame events = %d, want 2", n)
	}
	if n := trace.count(log.LayerWire, log.DirectionIn); n != 2 {
		t.Errorf("message events = %d, want 2", n)
	}
}

func TestSessionTruncatedPayloadIsReported(t *testing.T) {
	sess, station := pipeSession(t, nil)
	var reported []error
	sess.onProtocolError = func(_ *Session, err error) { reported = append(reported, err) }

	big := wire.DefaultCodec.Encode(&wire.Unknown{ID: 0x7000, Raw: make([]byte, 2500)})
	go station.Write(big)

	var got []wire.Message
	for len(got) == 0 {
		msgs, err := sess.ReadAvailable()
		if err != nil {
			t.Fatalf("ReadAvailable: %v", err)
		}
		got = append(got, msgs...)
	}

	if len(got[0].(*wire.Unknown).Raw) != wire.DefaultMaxMessageSize {
		t.Errorf("payload = %d bytes", len(got[0].(*wire.Unknown).Raw))
	}
	if len(reported) != 1 || !errors.Is(reported[0], ErrTruncated) {
		t.Fatalf("reported = %v", reported)
	}
}

func TestSessionSendAndClose(t *testing.T) {
	trace := &traceRecorder{}
	sess, station := pipeSession(t, trace)
	station.SetReadDeadline(time.Now().Add(2 * time.Second))

	done := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := station.Read(buf)
		done <- buf[:n]
	}()

	if err := sess.Send(&wire.KeepAliveAck{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := <-done; len(got) != 8 {
		t.Fatalf("station read %d bytes, want 8", len(got))
	}
	if n := trace.count(log.LayerWire, log.DirectionOut); n != 1 {
		t.Errorf("outbound message events = %d", n)
	}

	sess.Close(ReasonProtocol)
	sess.Close(ReasonReadError)
	if sess.CloseReason() != ReasonProtocol {
		t.Errorf("CloseReason = %q, want first reason", sess.CloseReason())
	}
	if err := sess.Send(&wire.KeepAliveAck{}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send after close = %v", err)
	}
	select {
	case <-sess.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestSessionWriteFailureCloses(t *testing.T) {
	sess, station := pipeSession(t, nil)
	station.Close()

	if err := sess.Send(&wire.KeepAliveAck{}); err == nil {
		t.Fatal("Send should fail on a closed peer")
	}
	if !sess.Closed() || sess.CloseReason() != ReasonWriteError {
		t.Fatalf("closed=%v reason=%q", sess.Closed(), sess.CloseReason())
	}
}

func TestSessionBinding(t *testing.T) {
	sess, _ := pipeSession(t, nil)
	if sess.DeviceID() != "" {
		t.Fatal("new session should be unbound")
	}
	sess.Bind("SEP001122334455")
	if sess.DeviceID() != "SEP001122334455" {
		t.Fatalf("DeviceID = %q", sess.DeviceID())
	}
	sess.Unbind()
	if sess.DeviceID() != "" {
		t.Fatal("Unbind did not clear device")
	}
}

func TestSweeperClosesSilentSessions(t *testing.T) {
	now := time.Now()

	fresh, _ := pipeSession(t, nil)
	fresh.Touch(now.Add(-30 * time.Second))

	stale, _ := pipeSession(t, nil)
	stale.Touch(now.Add(-75 * time.Second))

	negotiated, _ := pipeSession(t, nil)
	negotiated.SetKeepAlive(20 * time.Second)
	negotiated.Touch(now.Add(-31 * time.Second))

	var expiredCB []*Session
	sw := NewSweeper(SweeperConfig{}, func() []*Session {
		return []*Session{fresh, stale, negotiated}
	}, func(s *Session) { expiredCB = append(expiredCB, s) })

	expired := sw.Sweep(now)
	if len(expired) != 2 || len(expiredCB) != 2 {
		t.Fatalf("expired %d sessions, want 2", len(expired))
	}
	if fresh.Closed() {
		t.Error("fresh session closed")
	}
	for _, s := range []*Session{stale, negotiated} {
		if !s.Closed() || s.CloseReason() != ReasonKeepAlive {
			t.Errorf("session closed=%v reason=%q", s.Closed(), s.CloseReason())
		}
	}
	if again := sw.Sweep(now); len(again) != 0 {
		t.Errorf("second sweep expired %d", len(again))
	}
}

func TestSweeperDeadline(t *testing.T) {
	cfg := DefaultSweeperConfig()
	last := time.Unix(1000, 0)
	if got := cfg.Deadline(last, 0); !got.Equal(last.Add(70 * time.Second)) {
		t.Errorf("default deadline = %v", got.Sub(last))
	}
	if got := cfg.Deadline(last, 30*time.Second); !got.Equal(last.Add(40 * time.Second)) {
		t.Errorf("negotiated deadline = %v", got.Sub(last))
	}
}

func TestSweeperStop(t *testing.T) {
	sw := NewSweeper(SweeperConfig{Interval: 10 * time.Millisecond}, func() []*Session { return nil }, nil)
	done := make(chan struct{})
	go func() {
		sw.Run(t.Context())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	sw.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
