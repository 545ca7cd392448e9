package pbx_test

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/pbx"
)

type progress struct {
	kind   string
	callID uint32
}

// gateway records router callbacks and hands out call ids for offers.
type gateway struct {
	mu     sync.Mutex
	next   uint32
	offers []pbx.IncomingCall
	lines  []string
	events []progress
	refuse map[string]error
}

func newGateway() *gateway {
	return &gateway{next: 100, refuse: map[string]error{}}
}

func (g *gateway) IncomingCall(_ context.Context, line string, in pbx.IncomingCall) (pbx.ChannelRef, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.refuse[line]; err != nil {
		return pbx.ChannelRef{}, err
	}
	g.next++
	g.offers = append(g.offers, in)
	g.lines = append(g.lines, line)
	ref := pbx.ChannelRef{CallID: g.next, Line: line, Device: "SEP" + line}
	return ref, nil
}

func (g *gateway) record(kind string, id uint32) {
	g.mu.Lock()
	g.events = append(g.events, progress{kind, id})
	g.mu.Unlock()
}

func (g *gateway) RemoteRinging(id uint32)                { g.record("ringing", id) }
func (g *gateway) RemoteAnswered(id uint32)               { g.record("answered", id) }
func (g *gateway) RemoteBusy(id uint32)                   { g.record("busy", id) }
func (g *gateway) RemoteCongestion(id uint32)             { g.record("congestion", id) }
func (g *gateway) RemoteHangup(id uint32)                 { g.record("hangup", id) }
func (g *gateway) MediaReady(id uint32, _ netip.AddrPort) { g.record("media", id) }

func (g *gateway) has(kind string, id uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.events {
		if e.kind == kind && e.callID == id {
			return true
		}
	}
	return false
}

func (g *gateway) offered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.offers)
}

func startRouter(t *testing.T, cfg pbx.LocalConfig) (*pbx.LocalRouter, *gateway) {
	t.Helper()
	r := pbx.NewLocalRouter(cfg)
	g := newGateway()
	r.Attach(g)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return r, g
}

func knownLines(lines ...string) func(string) (string, bool) {
	return func(number string) (string, bool) {
		for _, l := range lines {
			if l == number {
				return l, true
			}
		}
		return "", false
	}
}

const wait, tick = 2 * time.Second, 5 * time.Millisecond

// call sets up caller on line 100 ringing line 101 and returns both refs.
func call(t *testing.T, r *pbx.LocalRouter, g *gateway, callerID uint32) (pbx.ChannelRef, pbx.ChannelRef) {
	t.Helper()
	ctx := context.Background()
	caller := pbx.ChannelRef{CallID: callerID, Line: "100", Device: "SEP100"}
	require.NoError(t, r.Allocate(ctx, caller))
	require.NoError(t, r.Dial(ctx, caller, "101"))
	require.Eventually(t, func() bool { return g.has("ringing", callerID) }, wait, tick)

	g.mu.Lock()
	callee := pbx.ChannelRef{CallID: g.next, Line: g.lines[len(g.lines)-1], Device: "SEP101"}
	g.mu.Unlock()
	return caller, callee
}

func TestLocalDialAnswerHangup(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{
		Resolve:  knownLines("100", "101"),
		CallerID: func(ch pbx.ChannelRef) (string, string) { return "Alice", ch.Line },
	})
	ctx := context.Background()

	caller, callee := call(t, r, g, 1)
	g.mu.Lock()
	assert.Equal(t, pbx.IncomingCall{CallingName: "Alice", CallingNumber: "100", CalledNumber: "101", Peer: 1}, g.offers[0])
	assert.Equal(t, "101", callee.Line)
	g.mu.Unlock()

	require.NoError(t, r.Answer(ctx, callee))
	assert.Eventually(t, func() bool { return g.has("answered", caller.CallID) }, wait, tick)

	require.NoError(t, r.Hangup(ctx, caller))
	assert.Eventually(t, func() bool { return g.has("hangup", callee.CallID) }, wait, tick)
	assert.Equal(t, 0, r.Legs())
}

func TestLocalDialFailures(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("100", "101", "102")})
	ctx := context.Background()
	g.refuse["101"] = fmt.Errorf("all devices occupied: %w", pbx.ErrBusy)
	g.refuse["102"] = pbx.ErrNotFound

	t.Run("unknown number", func(t *testing.T) {
		err := r.Dial(ctx, pbx.ChannelRef{CallID: 1, Line: "100"}, "999")
		assert.ErrorIs(t, err, pbx.ErrNotFound)
	})

	t.Run("busy", func(t *testing.T) {
		ch := pbx.ChannelRef{CallID: 2, Line: "100"}
		require.NoError(t, r.Allocate(ctx, ch))
		require.NoError(t, r.Dial(ctx, ch, "101"))
		assert.Eventually(t, func() bool { return g.has("busy", 2) }, wait, tick)
	})

	t.Run("congestion", func(t *testing.T) {
		ch := pbx.ChannelRef{CallID: 3, Line: "100"}
		require.NoError(t, r.Allocate(ctx, ch))
		require.NoError(t, r.Dial(ctx, ch, "102"))
		assert.Eventually(t, func() bool { return g.has("congestion", 3) }, wait, tick)
	})

	assert.Zero(t, g.offered())
}

func TestLocalAnswerUnknownLeg(t *testing.T) {
	r, _ := startRouter(t, pbx.LocalConfig{})
	err := r.Answer(context.Background(), pbx.ChannelRef{CallID: 9})
	assert.ErrorIs(t, err, pbx.ErrNotFound)
}

func TestLocalHangupUnansweredCaller(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("101")})
	caller, callee := call(t, r, g, 1)

	require.NoError(t, r.Hangup(context.Background(), caller))
	assert.Eventually(t, func() bool { return g.has("hangup", callee.CallID) }, wait, tick)
	assert.False(t, g.has("hangup", caller.CallID))
}

func TestLocalTransfer(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("101")})
	ctx := context.Background()

	// 1 talks to A; 2 consults B. Transferring joins A and B.
	a1, aRemote := call(t, r, g, 1)
	require.NoError(t, r.Answer(ctx, aRemote))
	b2, bRemote := call(t, r, g, 2)
	require.NoError(t, r.Answer(ctx, bRemote))
	require.Eventually(t, func() bool { return g.has("answered", 2) }, wait, tick)

	require.NoError(t, r.Transfer(ctx, a1, b2))
	assert.Equal(t, 2, r.Legs())
	assert.Eventually(t, func() bool { return g.has("answered", aRemote.CallID) }, wait, tick)

	require.NoError(t, r.Hangup(ctx, aRemote))
	assert.Eventually(t, func() bool { return g.has("hangup", bRemote.CallID) }, wait, tick)
	assert.Equal(t, 0, r.Legs())
}

func TestLocalTransferNeedsBothCalls(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("101")})
	ctx := context.Background()
	a1, _ := call(t, r, g, 1)
	lone := pbx.ChannelRef{CallID: 2, Line: "100"}
	require.NoError(t, r.Allocate(ctx, lone))

	assert.ErrorIs(t, r.Transfer(ctx, a1, lone), pbx.ErrNotFound)
}

func TestLocalPickup(t *testing.T) {
	groups := map[string]string{"101": "sales", "102": "sales", "103": "support"}
	r, g := startRouter(t, pbx.LocalConfig{
		Resolve:     knownLines("101", "102", "103"),
		PickupGroup: func(line string) string { return groups[line] },
	})
	ctx := context.Background()

	caller, ringing := call(t, r, g, 1)
	picker := pbx.ChannelRef{CallID: 50, Line: "102", Device: "SEP102"}
	require.NoError(t, r.Allocate(ctx, picker))

	assert.ErrorIs(t, r.Pickup(ctx, picker, "support"), pbx.ErrNotFound)
	require.NoError(t, r.Pickup(ctx, picker, "sales"))

	assert.Eventually(t, func() bool {
		return g.has("hangup", ringing.CallID) && g.has("answered", picker.CallID) && g.has("answered", caller.CallID)
	}, wait, tick)

	require.NoError(t, r.Hangup(ctx, caller))
	assert.Eventually(t, func() bool { return g.has("hangup", picker.CallID) }, wait, tick)
}

func TestLocalPickupWithoutGroups(t *testing.T) {
	r, _ := startRouter(t, pbx.LocalConfig{})
	err := r.Pickup(context.Background(), pbx.ChannelRef{CallID: 1}, "sales")
	assert.ErrorIs(t, err, pbx.ErrUnsupported)
}

func TestLocalRedirect(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("101", "8000")})
	ctx := context.Background()

	caller, ringing := call(t, r, g, 1)
	require.NoError(t, r.Redirect(ctx, ringing, "8000"))

	require.Eventually(t, func() bool { return g.offered() == 2 }, wait, tick)
	g.mu.Lock()
	assert.Equal(t, "8000", g.lines[1])
	assert.Equal(t, caller.CallID, g.offers[1].Peer)
	assert.Equal(t, "100", g.offers[1].CallingNumber)
	vm := pbx.ChannelRef{CallID: g.next, Line: "8000"}
	g.mu.Unlock()

	require.NoError(t, r.Answer(ctx, vm))
	assert.Eventually(t, func() bool { return g.has("answered", caller.CallID) }, wait, tick)

	assert.ErrorIs(t, r.Redirect(ctx, vm, "999"), pbx.ErrNotFound)
}

func TestLocalUnsupported(t *testing.T) {
	r, _ := startRouter(t, pbx.LocalConfig{})
	ctx := context.Background()
	assert.ErrorIs(t, r.Park(ctx, pbx.ChannelRef{}), pbx.ErrUnsupported)
	assert.ErrorIs(t, r.Conference(ctx, pbx.ChannelRef{}), pbx.ErrUnsupported)
}

func TestLocalDefaultResolveUsesNumberAsLine(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{})
	call(t, r, g, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, []string{"101"}, g.lines)
}

func TestLocalMediaBridging(t *testing.T) {
	r, g := startRouter(t, pbx.LocalConfig{Resolve: knownLines("100", "101")})
	ctx := context.Background()
	caller, callee := call(t, r, g, 7)
	require.NoError(t, r.Answer(ctx, callee))

	addr := netip.MustParseAddrPort("10.0.0.5:20000")
	require.NoError(t, r.ReceiveOpened(ctx, callee, addr))
	assert.Eventually(t, func() bool { return g.has("media", caller.CallID) }, wait, tick)

	require.NoError(t, r.CloseReceive(ctx, callee))
	require.NoError(t, r.OpenReceive(ctx, callee))

	err := r.ReceiveOpened(ctx, pbx.ChannelRef{CallID: 999}, addr)
	assert.ErrorIs(t, err, pbx.ErrNotFound)
}

func TestLocalCallerGoneBeforeOffer(t *testing.T) {
	r := pbx.NewLocalRouter(pbx.LocalConfig{Resolve: knownLines("101")})
	g := newGateway()
	r.Attach(g)
	ctx := context.Background()

	caller := pbx.ChannelRef{CallID: 1, Line: "100", Device: "SEP100"}
	require.NoError(t, r.Allocate(ctx, caller))
	require.NoError(t, r.Dial(ctx, caller, "101"))
	require.NoError(t, r.Hangup(ctx, caller))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		r.Run(runCtx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return g.offered() == 1 }, wait, tick)
	callee := uint32(101)
	require.Eventually(t, func() bool { return g.has("hangup", callee) }, wait, tick)
	assert.False(t, g.has("ringing", 1))
	assert.Zero(t, r.Legs())
}
