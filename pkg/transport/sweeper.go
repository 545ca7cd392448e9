package transport

import (
	"context"
	"sync"
	"time"
)

// Liveness defaults.
const (
	// DefaultSweepInterval is how often sessions are checked.
	DefaultSweepInterval = 5 * time.Second

	// DefaultKeepAliveGrace is added to the keepalive interval before a
	// silent session is closed.
	DefaultKeepAliveGrace = 10 * time.Second

	// DefaultKeepAlive applies to sessions that have not negotiated one.
	DefaultKeepAlive = 60 * time.Second
)

// SweeperConfig configures liveness checking.
type SweeperConfig struct {
	Interval  time.Duration
	Grace     time.Duration
	KeepAlive time.Duration
}

// DefaultSweeperConfig returns the default liveness configuration.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:  DefaultSweepInterval,
		Grace:     DefaultKeepAliveGrace,
		KeepAlive: DefaultKeepAlive,
	}
}

// Deadline returns the time after which a session last heard from at last
// with keepalive interval ka counts as dead.
func (c SweeperConfig) Deadline(last time.Time, ka time.Duration) time.Time {
	if ka <= 0 {
		ka = c.KeepAlive
	}
	return last.Add(ka + c.Grace)
}

// Sweeper force-closes sessions whose station has gone silent.
type Sweeper struct {
	config   SweeperConfig
	sessions func() []*Session
	onExpire func(*Session)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a Sweeper over the sessions returned by list.
// onExpire, if set, is called after an expired session has been closed.
func NewSweeper(config SweeperConfig, list func() []*Session, onExpire func(*Session)) *Sweeper {
	def := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Grace <= 0 {
		config.Grace = def.Grace
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = def.KeepAlive
	}
	return &Sweeper{config: config, sessions: list, onExpire: onExpire}
}

// Run checks sessions every interval until ctx is done or Stop is called.
func (sw *Sweeper) Run(ctx context.Context) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = true
	sw.stopCh = make(chan struct{})
	stopCh := sw.stopCh
	sw.mu.Unlock()

	ticker := time.NewTicker(sw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.markStopped()
			return nil
		case <-stopCh:
			return nil
		case now := <-ticker.C:
			sw.Sweep(now)
		}
	}
}

// Stop ends Run.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.running {
		return
	}
	sw.running = false
	close(sw.stopCh)
}

func (sw *Sweeper) markStopped() {
	sw.mu.Lock()
	sw.running = false
	sw.mu.Unlock()
}

// Sweep closes every session whose deadline is before now and returns them.
func (sw *Sweeper) Sweep(now time.Time) []*Session {
	var expired []*Session
	for _, sess := range sw.sessions() {
		if sess.Closed() {
			continue
		}
		if now.After(sw.config.Deadline(sess.LastKeepAlive(), sess.KeepAlive())) {
			sess.Close(ReasonKeepAlive)
			expired = append(expired, sess)
			if sw.onExpire != nil {
				sw.onExpire(sess)
			}
		}
	}
	return expired
}
