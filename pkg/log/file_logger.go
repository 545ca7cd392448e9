package log

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileStats counts what a FileLogger did with the events it was given.
type FileStats struct {
	Written    uint64
	KeepAlives uint64 // skipped
	Dropped    uint64 // failed to encode
}

// FileOption configures a FileLogger.
type FileOption func(*FileLogger)

// SkipKeepAlives leaves KeepAlive and KeepAliveAck traffic out of the file.
// Session state changes and errors are still written.
func SkipKeepAlives() FileOption {
	return func(l *FileLogger) { l.skipKeepAlive = true }
}

// FileLogger appends station trace events to a file.
//
// Frames read before a station registers carry no device name. The logger
// remembers which device each session bound and fills it into later events
// of that session that lack one, until the session closes.
type FileLogger struct {
	mu            sync.Mutex
	file          *os.File
	enc           *cbor.Encoder
	skipKeepAlive bool
	devices       map[string]string // session ID -> device name
	stats         FileStats
	closed        bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string, opts ...FileOption) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trace file %s: %w", path, err)
	}
	l := &FileLogger{
		file:    f,
		enc:     newTraceEncoder(f),
		devices: make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Log appends event. Events logged after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	l.bindDevice(&event)
	if l.skipKeepAlive && event.Category == CategoryKeepAlive {
		l.stats.KeepAlives++
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.stats.Dropped++
		return
	}
	l.stats.Written++
}

func (l *FileLogger) bindDevice(event *Event) {
	if event.SessionID == "" {
		return
	}
	if event.DeviceID == "" {
		event.DeviceID = l.devices[event.SessionID]
	} else {
		l.devices[event.SessionID] = event.DeviceID
	}
	if sc := event.StateChange; sc != nil && sc.Entity == StateEntitySession {
		if sc.NewState == SessionUnbound || strings.HasPrefix(sc.NewState, SessionClosed) {
			delete(l.devices, event.SessionID)
		}
	}
}

// Stats returns the counters so far.
func (l *FileLogger) Stats() FileStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Close closes the trace file. Further calls return nil.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.devices = nil
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
