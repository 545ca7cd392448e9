package pbx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
)

// LocalConfig configures a LocalRouter.
type LocalConfig struct {
	// Resolve maps a dialed number to the line that should ring. It applies
	// forwarding and returns false for unknown numbers.
	Resolve func(number string) (line string, ok bool)

	// CallerID returns the presentation of a calling leg. Defaults to the
	// line name as number.
	CallerID func(ch ChannelRef) (name, number string)

	// PickupGroup returns the pickup group of a line.
	PickupGroup func(line string) string

	Logger *slog.Logger
}

type leg struct {
	ref     ChannelRef
	peer    uint32
	ringing bool

	// rtp is the receive address the station reported for this leg.
	rtp netip.AddrPort
}

// LocalRouter bridges calls between lines of the same gateway. Callbacks
// into the gateway run on the router's own goroutine, started by Run.
//
// It also serves as the media layer for local calls: the receive address
// one station reports is handed to its peer, so the phones exchange RTP
// directly.
type LocalRouter struct {
	config LocalConfig
	logger *slog.Logger

	mu    sync.Mutex
	calls Calls
	legs  map[uint32]*leg
	queue []func(ctx context.Context)
	wake  chan struct{}
}

// NewLocalRouter creates a router. Attach must be called before Run.
func NewLocalRouter(cfg LocalConfig) *LocalRouter {
	r := &LocalRouter{
		config: cfg,
		logger: cfg.Logger,
		legs:   make(map[uint32]*leg),
		wake:   make(chan struct{}, 1),
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.config.CallerID == nil {
		r.config.CallerID = func(ch ChannelRef) (string, string) { return "", ch.Line }
	}
	return r
}

// Attach sets the gateway that receives call progress.
func (r *LocalRouter) Attach(c Calls) {
	r.mu.Lock()
	r.calls = c
	r.mu.Unlock()
}

// Run delivers queued callbacks until ctx is cancelled.
func (r *LocalRouter) Run(ctx context.Context) error {
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()
		for _, fn := range batch {
			fn(ctx)
		}
		if len(batch) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}
	}
}

// later queues fn for the Run goroutine. The queue is unbounded so a
// gateway worker never blocks on the router.
func (r *LocalRouter) later(fn func(ctx context.Context, c Calls)) {
	r.mu.Lock()
	c := r.calls
	r.queue = append(r.queue, func(ctx context.Context) {
		if c != nil {
			fn(ctx, c)
		}
	})
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Legs returns the number of legs the router tracks.
func (r *LocalRouter) Legs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.legs)
}

// Allocate registers a leg.
func (r *LocalRouter) Allocate(_ context.Context, ch ChannelRef) error {
	r.mu.Lock()
	r.legs[ch.CallID] = &leg{ref: ch}
	r.mu.Unlock()
	return nil
}

// Dial offers the call to the line number resolves to.
func (r *LocalRouter) Dial(_ context.Context, ch ChannelRef, number string) error {
	line, ok := r.resolve(number)
	if !ok {
		return fmt.Errorf("dial %s: %w", number, ErrNotFound)
	}
	name, num := r.config.CallerID(ch)
	r.logger.Debug("local dial", "from", ch.String(), "number", number, "line", line)
	r.offer(ch.CallID, line, IncomingCall{CallingName: name, CallingNumber: num, CalledNumber: number, Peer: ch.CallID})
	return nil
}

func (r *LocalRouter) resolve(number string) (string, bool) {
	if r.config.Resolve == nil {
		return number, number != ""
	}
	return r.config.Resolve(number)
}

// offer rings line on behalf of caller and links the new leg to it. An
// offer whose caller hung up in the meantime is hung up again.
func (r *LocalRouter) offer(caller uint32, line string, in IncomingCall) {
	r.later(func(ctx context.Context, c Calls) {
		ref, err := c.IncomingCall(ctx, line, in)
		if err != nil {
			r.logger.Debug("local offer failed", "line", line, "err", err)
			if errors.Is(err, ErrBusy) {
				c.RemoteBusy(caller)
			} else {
				c.RemoteCongestion(caller)
			}
			return
		}
		r.mu.Lock()
		l, ok := r.legs[caller]
		if !ok {
			r.mu.Unlock()
			r.logger.Debug("caller gone before offer", "caller", caller, "callee", ref.String())
			c.RemoteHangup(ref.CallID)
			return
		}
		l.peer = ref.CallID
		r.legs[ref.CallID] = &leg{ref: ref, peer: caller, ringing: true}
		r.mu.Unlock()
		c.RemoteRinging(caller)
	})
}

// Answer connects a ringing leg to its caller.
func (r *LocalRouter) Answer(_ context.Context, ch ChannelRef) error {
	r.mu.Lock()
	l, ok := r.legs[ch.CallID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("answer %s: %w", ch, ErrNotFound)
	}
	l.ringing = false
	peer := l.peer
	r.mu.Unlock()
	if peer != 0 {
		r.later(func(_ context.Context, c Calls) { c.RemoteAnswered(peer) })
	}
	return nil
}

// Hangup drops a leg and hangs up its peer.
func (r *LocalRouter) Hangup(_ context.Context, ch ChannelRef) error {
	r.mu.Lock()
	l, ok := r.legs[ch.CallID]
	delete(r.legs, ch.CallID)
	var peer uint32
	if ok && l.peer != 0 {
		if p, ok := r.legs[l.peer]; ok && p.peer == ch.CallID {
			peer = l.peer
			delete(r.legs, peer)
		}
	}
	r.mu.Unlock()
	if peer != 0 {
		r.later(func(_ context.Context, c Calls) { c.RemoteHangup(peer) })
	}
	return nil
}

// Transfer joins the remote parties of from and to. Both local legs are
// released; the gateway ends them without a further Hangup.
func (r *LocalRouter) Transfer(_ context.Context, from, to ChannelRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, okA := r.legs[from.CallID]
	b, okB := r.legs[to.CallID]
	if !okA || !okB || a.peer == 0 || b.peer == 0 {
		return fmt.Errorf("transfer %s to %s: %w", from, to, ErrNotFound)
	}
	x, okX := r.legs[a.peer]
	y, okY := r.legs[b.peer]
	if !okX || !okY {
		return fmt.Errorf("transfer %s to %s: %w", from, to, ErrNotFound)
	}
	x.peer, y.peer = y.ref.CallID, x.ref.CallID
	delete(r.legs, from.CallID)
	delete(r.legs, to.CallID)
	if !y.ringing {
		answered := x.ref.CallID
		r.queueLocked(func(_ context.Context, c Calls) { c.RemoteAnswered(answered) })
	}
	return nil
}

func (r *LocalRouter) queueLocked(fn func(ctx context.Context, c Calls)) {
	c := r.calls
	r.queue = append(r.queue, func(ctx context.Context) {
		if c != nil {
			fn(ctx, c)
		}
	})
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pickup connects ch to a call ringing on a line of group.
func (r *LocalRouter) Pickup(_ context.Context, ch ChannelRef, group string) error {
	if r.config.PickupGroup == nil {
		return fmt.Errorf("pickup: %w", ErrUnsupported)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	picker, ok := r.legs[ch.CallID]
	if !ok {
		return fmt.Errorf("pickup %s: %w", ch, ErrNotFound)
	}
	for id, l := range r.legs {
		if !l.ringing || id == ch.CallID || r.config.PickupGroup(l.ref.Line) != group {
			continue
		}
		caller, ok := r.legs[l.peer]
		if !ok {
			continue
		}
		delete(r.legs, id)
		caller.peer, picker.peer = ch.CallID, caller.ref.CallID
		ringing, callerID := id, caller.ref.CallID
		r.queueLocked(func(_ context.Context, c Calls) {
			c.RemoteHangup(ringing)
			c.RemoteAnswered(ch.CallID)
			c.RemoteAnswered(callerID)
		})
		return nil
	}
	return fmt.Errorf("pickup in %s: %w", group, ErrNotFound)
}

// Redirect moves a ringing leg's caller to target.
func (r *LocalRouter) Redirect(_ context.Context, ch ChannelRef, target string) error {
	line, ok := r.resolve(target)
	if !ok {
		return fmt.Errorf("redirect to %s: %w", target, ErrNotFound)
	}
	r.mu.Lock()
	l, ok := r.legs[ch.CallID]
	if !ok || l.peer == 0 {
		r.mu.Unlock()
		return fmt.Errorf("redirect %s: %w", ch, ErrNotFound)
	}
	delete(r.legs, ch.CallID)
	caller := l.peer
	var in IncomingCall
	if c, ok := r.legs[caller]; ok {
		in.CallingName, in.CallingNumber = r.config.CallerID(c.ref)
	}
	r.mu.Unlock()
	in.CalledNumber = target
	in.Peer = caller
	r.offer(caller, line, in)
	return nil
}

// Park is not available locally.
func (r *LocalRouter) Park(context.Context, ChannelRef) error {
	return fmt.Errorf("park: %w", ErrUnsupported)
}

// Conference is not available locally.
func (r *LocalRouter) Conference(context.Context, ChannelRef) error {
	return fmt.Errorf("conference: %w", ErrUnsupported)
}

// OpenReceive accepts the request; stations allocate their own ports.
func (r *LocalRouter) OpenReceive(context.Context, ChannelRef) error { return nil }

// CloseReceive forgets the receive address of a leg.
func (r *LocalRouter) CloseReceive(_ context.Context, ch ChannelRef) error {
	r.mu.Lock()
	if l, ok := r.legs[ch.CallID]; ok {
		l.rtp = netip.AddrPort{}
	}
	r.mu.Unlock()
	return nil
}

// ReceiveOpened records the receive address of a leg and points its peer's
// sender at it.
func (r *LocalRouter) ReceiveOpened(_ context.Context, ch ChannelRef, addr netip.AddrPort) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.legs[ch.CallID]
	if !ok {
		return fmt.Errorf("receive opened %s: %w", ch, ErrNotFound)
	}
	l.rtp = addr
	if peer := l.peer; peer != 0 {
		r.queueLocked(func(_ context.Context, c Calls) { c.MediaReady(peer, addr) })
	}
	return nil
}

var (
	_ Router = (*LocalRouter)(nil)
	_ Media  = (*LocalRouter)(nil)
)
