package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/acl"
	"github.com/sccp-protocol/sccp-go/pkg/dialtimer"
	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/metrics"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registration"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/version"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted      = errors.New("gateway not started")
	ErrAlreadyStarted  = errors.New("gateway already started")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrNotConnected    = errors.New("device not connected")
	ErrStopTimeout     = errors.New("background tasks did not stop in time")
	ErrHandlerPanicked = errors.New("handler panicked")
)

// Defaults.
const (
	DefaultServerName = "sccp-gateway"
	DefaultStopGrace  = 5 * time.Second
)

// State is the lifecycle state of a Gateway.
type State uint8

const (
	// StateIdle - gateway created but not started.
	StateIdle State = iota

	// StateStarting - listener is being bound.
	StateStarting

	// StateRunning - accepting stations.
	StateRunning

	// StateStopping - shutting down.
	StateStopping

	// StateStopped - stopped; the gateway cannot be restarted.
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Gateway.
type Config struct {
	// Address is the listen address (e.g. ":2000").
	Address string

	// Codec frames station messages.
	Codec wire.Codec

	// WriteTimeout bounds a single send to a station.
	WriteTimeout time.Duration

	// Registry holds devices and lines. Required.
	Registry *registry.Registry

	// ACL is the global access list. Empty allows every address.
	ACL *acl.List

	// LocalNets lists the networks reached without NAT.
	LocalNets []netip.Prefix

	// Resolver resolves device permit hosts (default net.DefaultResolver).
	Resolver acl.Resolver

	KeepAlive          time.Duration
	SecondaryKeepAlive time.Duration
	DateTemplate       string
	MaxProtocol        version.Protocol

	// RestartInterval limits restart instructions per source address.
	RestartInterval time.Duration

	Sweeper   transport.SweeperConfig
	DialTimer dialtimer.Config
	Features  feature.Flags

	// MaxSubscriptions bounds the busy lamp subscriptions.
	MaxSubscriptions int

	// ServerName is reported in ConfigStat and ServerRes.
	ServerName string

	// StopGrace bounds how long Stop waits for background tasks.
	StopGrace time.Duration

	// Router routes calls. When nil a LocalRouter bridges the gateway's own
	// lines and also serves as Media.
	Router pbx.Router

	// Media manages RTP resources (default pbx.NopMedia with an external
	// router).
	Media pbx.Media

	// PostRegistration runs after each registration. Optional.
	PostRegistration pbx.PostRegistration

	// Settings persists DND and forward settings. Optional.
	Settings pbx.SettingsStore

	// Metrics receives counters; it is also fed from the protocol trace.
	// Optional.
	Metrics *metrics.Metrics

	// Trace receives protocol trace events. Optional.
	Trace log.Logger

	// Logger is the optional logger for operational output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	Now func() time.Time
}

// DefaultConfig returns a configuration with default timers and all
// features enabled. Registry must still be set.
func DefaultConfig() Config {
	return Config{
		Address:          fmt.Sprintf(":%d", transport.DefaultPort),
		KeepAlive:        registration.DefaultKeepAlive,
		DateTemplate:     registration.DefaultDateTemplate,
		RestartInterval:  registration.DefaultRestartInterval,
		Sweeper:          transport.DefaultSweeperConfig(),
		DialTimer:        dialtimer.DefaultConfig(),
		Features:         feature.DefaultFlags(),
		MaxSubscriptions: hint.DefaultMaxSubscriptions,
		ServerName:       DefaultServerName,
		StopGrace:        DefaultStopGrace,
	}
}

// SessionInfo describes a connected station.
type SessionInfo struct {
	ID            string
	Device        string
	Remote        netip.AddrPort
	KeepAlive     time.Duration
	LastKeepAlive time.Time
}

// Snapshot is a management view of the gateway.
type Snapshot struct {
	State    State
	Started  time.Time
	Registry registry.Snapshot
	Sessions []SessionInfo

	// Subscriptions and DialTimers count busy lamp subscriptions and armed
	// digit timers.
	Subscriptions int
	DialTimers    int
}
