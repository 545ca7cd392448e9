package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// DefaultPort is the registered SCCP port.
const DefaultPort = 2000

// maxTraceFrameData limits the payload bytes copied into frame trace events.
const maxTraceFrameData = 512

// Server errors.
var (
	ErrServerRunning = errors.New("server already running")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (default ":2000").
	Address string

	// Codec frames messages. The zero value is plain framing with the
	// default maximum message size.
	Codec wire.Codec

	// WriteTimeout bounds a single Send (zero disables the deadline).
	WriteTimeout time.Duration

	// TraceLogger receives protocol trace events (optional).
	TraceLogger log.Logger

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// OnSession is called from the session's read goroutine before the
	// first read.
	OnSession func(s *Session)

	// OnMessage is called for each decoded message, in stream order.
	OnMessage func(s *Session, m wire.Message)

	// OnProtocolError is called for frames that were dropped or truncated.
	OnProtocolError func(s *Session, err error)

	// OnClose is called once after the session has closed.
	OnClose func(s *Session)
}

// Server accepts station connections and runs one read loop per session.
type Server struct {
	config   ServerConfig
	listener net.Listener
	logger   *slog.Logger

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a Server.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Start binds the listener and begins accepting. A bind failure is returned
// to the caller; the gateway must not start without its listener.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Address, err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("listening", "addr", listener.Addr().String(), "framing", s.config.Codec.Framing.String())
	return nil
}

// Stop closes the listener and every session, then waits for the read loops.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	for _, sess := range s.Sessions() {
		sess.Close(ReasonServerStopped)
	}
	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// Sessions returns a snapshot of the open sessions.
func (s *Server) Sessions() []*Session {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Session returns the open session with the given id.
func (s *Server) Session(id string) (*Session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.logger.Error("accept failed", "err", err)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		s.wg.Add(1)
		go s.serve(conn)
	}
}

// Accept wraps an established connection in a Session and serves it until
// it closes. It is used by the accept loop and by tests with in-memory pipes.
func (s *Server) Accept(conn net.Conn) *Session {
	sess := newSession(uuid.New().String(), conn, s.config.Codec, s.config.TraceLogger)
	sess.writeTimeout = s.config.WriteTimeout
	sess.onProtocolError = s.config.OnProtocolError

	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()

	sess.logState("", log.SessionConnected)
	return sess
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	s.Serve(s.Accept(conn))
}

// Serve runs the read loop of sess until the session closes.
func (s *Server) Serve(sess *Session) {
	defer s.release(sess)

	if s.config.OnSession != nil {
		s.config.OnSession(sess)
	}

	for {
		msgs, err := sess.ReadAvailable()
		for _, m := range msgs {
			if sess.Closed() {
				return
			}
			if s.config.OnMessage != nil {
				s.config.OnMessage(sess, m)
			}
		}
		if err != nil {
			s.readFailed(sess, err)
			return
		}
		if sess.Closed() {
			return
		}
	}
}

func (s *Server) readFailed(sess *Session, err error) {
	switch {
	case sess.Closed():
	case errors.Is(err, wire.ErrFrameTooLarge):
		s.logger.Warn("closing desynchronized session", "session", sess.id, "remote", sess.remoteAddr, "err", err)
		sess.Close(ReasonDesync)
	case errors.Is(err, io.EOF):
		sess.Close(ReasonReadError)
	default:
		s.logger.Debug("session read failed", "session", sess.id, "err", err)
		sess.Close(ReasonReadError)
	}
}

func (s *Server) release(sess *Session) {
	sess.Close(ReasonReadError)

	s.sessionsMu.Lock()
	delete(s.sessions, sess.id)
	s.sessionsMu.Unlock()

	if s.config.OnClose != nil {
		s.config.OnClose(sess)
	}
}
