package service

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/acl"
	"github.com/sccp-protocol/sccp-go/pkg/metrics"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

const (
	phoneA = "SEP0000000000A1"
	phoneB = "SEP0000000000B2"

	waitFor = 2 * time.Second
)

func newTestRegistry(t *testing.T, limit int) *registry.Registry {
	t.Helper()
	reg := registry.New()
	_, err := reg.AddLine(registry.LineConfig{Name: "100", Label: "Alice", CIDName: "Alice", CIDNumber: "100"})
	require.NoError(t, err)
	_, err = reg.AddLine(registry.LineConfig{Name: "200", Label: "Bob", CIDName: "Bob", CIDNumber: "200", IncomingLimit: limit})
	require.NoError(t, err)
	_, err = reg.AddDevice(registry.DeviceConfig{ID: phoneA, Lines: []registry.LineButton{{Line: "100"}}})
	require.NoError(t, err)
	_, err = reg.AddDevice(registry.DeviceConfig{ID: phoneB, Lines: []registry.LineButton{{Line: "200"}}})
	require.NoError(t, err)
	return reg
}

func startGateway(t *testing.T, mutate func(*Config)) *Gateway {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.Registry = newTestRegistry(t, 0)
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGateway(cfg)
	require.NoError(t, err)
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(func() { g.Stop() })
	return g
}

func dialPhone(t *testing.T, g *Gateway) *transport.ClientConn {
	t.Helper()
	c, err := transport.Dial(context.Background(), g.Addr().String(), transport.ClientConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func registerPhone(t *testing.T, g *Gateway, id string) *transport.ClientConn {
	t.Helper()
	c := dialPhone(t, g)
	require.NoError(t, c.Send(&wire.Register{DeviceName: id, DeviceType: wire.DeviceType7960, ProtocolVersion: 11}))
	_, _, err := c.ReceiveUntil(wire.KindRegisterAck, waitFor)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		dev, ok := g.Registry().Device(id)
		return ok && dev.Registered()
	}, waitFor, 10*time.Millisecond)
	return c
}

// waitCallState reads until a CallState with state arrives.
func waitCallState(t *testing.T, c *transport.ClientConn, state wire.CallState) *wire.CallStateMsg {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		m, _, err := c.ReceiveUntil(wire.KindCallState, time.Until(deadline))
		require.NoError(t, err, "waiting for call state %v", state)
		if cs := m.(*wire.CallStateMsg); cs.State == state {
			return cs
		}
	}
	t.Fatalf("no call state %v", state)
	return nil
}

func waitTone(t *testing.T, c *transport.ClientConn, tone wire.Tone) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		m, _, err := c.ReceiveUntil(wire.KindStartTone, time.Until(deadline))
		require.NoError(t, err, "waiting for tone %v", tone)
		if m.(*wire.StartTone).Tone == tone {
			return
		}
	}
	t.Fatalf("no tone %v", tone)
}

// waitClosed reads until the gateway closes the connection.
func waitClosed(t *testing.T, c *transport.ClientConn) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if _, err := c.Receive(time.Until(deadline)); err != nil {
			require.NotErrorIs(t, err, transport.ErrTimeout)
			return
		}
	}
	t.Fatal("connection still open")
}

func TestNewGatewayRequiresRegistry(t *testing.T) {
	_, err := NewGateway(DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGatewayLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.Registry = newTestRegistry(t, 0)
	g, err := NewGateway(cfg)
	require.NoError(t, err)

	assert.Equal(t, StateIdle, g.State())
	assert.ErrorIs(t, g.Stop(), ErrNotStarted)

	require.NoError(t, g.Start(context.Background()))
	assert.Equal(t, StateRunning, g.State())
	assert.ErrorIs(t, g.Start(context.Background()), ErrAlreadyStarted)
	assert.True(t, g.Go("noop", func(context.Context) error { return nil }))

	require.NoError(t, g.Stop())
	assert.Equal(t, StateStopped, g.State())
	assert.False(t, g.Go("late", func(context.Context) error { return nil }))
	assert.ErrorIs(t, g.Stop(), ErrNotStarted)
}

func TestGatewayStartBindFailure(t *testing.T) {
	first := startGateway(t, nil)

	cfg := DefaultConfig()
	cfg.Address = first.Addr().String()
	cfg.Registry = newTestRegistry(t, 0)
	g, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.Error(t, g.Start(context.Background()))
	assert.Equal(t, StateIdle, g.State())
}

func TestGatewayKeepAlive(t *testing.T) {
	g := startGateway(t, nil)
	c := dialPhone(t, g)

	require.NoError(t, c.Send(&wire.KeepAlive{}))
	m, err := c.Receive(waitFor)
	require.NoError(t, err)
	assert.Equal(t, wire.KindKeepAliveAck, m.Kind())
}

func TestGatewayRegister(t *testing.T) {
	g := startGateway(t, nil)
	c := dialPhone(t, g)

	require.NoError(t, c.Send(&wire.Register{DeviceName: phoneA, DeviceType: wire.DeviceType7960, ProtocolVersion: 11}))
	ack, _, err := c.ReceiveUntil(wire.KindRegisterAck, waitFor)
	require.NoError(t, err)
	assert.Equal(t, uint32(60), ack.(*wire.RegisterAck).KeepAlive)

	m, err := c.Receive(waitFor)
	require.NoError(t, err)
	assert.Equal(t, wire.KindCapabilitiesReq, m.Kind())

	t.Run("configuration requests", func(t *testing.T) {
		require.NoError(t, c.Send(&wire.ButtonTemplateReq{}))
		res, _, err := c.ReceiveUntil(wire.KindButtonTemplate, waitFor)
		require.NoError(t, err)
		assert.NotEmpty(t, res.(*wire.ButtonTemplate).Buttons)

		require.NoError(t, c.Send(&wire.SoftKeySetReq{}))
		_, _, err = c.ReceiveUntil(wire.KindSoftKeySetRes, waitFor)
		require.NoError(t, err)
		sel, _, err := c.ReceiveUntil(wire.KindSelectSoftKeys, waitFor)
		require.NoError(t, err)
		assert.Equal(t, wire.KeySetOnHook, sel.(*wire.SelectSoftKeys).Set)
	})

	t.Run("snapshot", func(t *testing.T) {
		snap := g.Snapshot()
		assert.Equal(t, StateRunning, snap.State)
		require.Len(t, snap.Sessions, 1)
		assert.Equal(t, phoneA, snap.Sessions[0].Device)
		assert.Equal(t, 60*time.Second, snap.Sessions[0].KeepAlive)
	})

	t.Run("unregister", func(t *testing.T) {
		require.NoError(t, c.Send(&wire.Unregister{}))
		_, _, err := c.ReceiveUntil(wire.KindUnregisterAck, waitFor)
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			dev, _ := g.Registry().Device(phoneA)
			return !dev.Registered() && dev.SessionID() == ""
		}, waitFor, 10*time.Millisecond)
	})
}

func TestGatewayRejectsOutsideACL(t *testing.T) {
	list, err := acl.Parse([]acl.Entry{{Sense: "permit", Network: "10.0.0.0/8"}})
	require.NoError(t, err)
	g := startGateway(t, func(cfg *Config) { cfg.ACL = list })
	c := dialPhone(t, g)

	require.NoError(t, c.Send(&wire.Register{DeviceName: phoneA, DeviceType: wire.DeviceType7960}))
	m, _, err := c.ReceiveUntil(wire.KindRegisterReject, waitFor)
	require.NoError(t, err)
	assert.Equal(t, station.NotifyAccessDenied, m.(*wire.RegisterReject).Text)

	// The session stays open and unbound.
	require.NoError(t, c.Send(&wire.KeepAlive{}))
	_, _, err = c.ReceiveUntil(wire.KindKeepAliveAck, waitFor)
	require.NoError(t, err)
	dev, _ := g.Registry().Device(phoneA)
	assert.False(t, dev.Registered())
	assert.Empty(t, dev.SessionID())
}

func TestGatewayClosesUnregisteredSession(t *testing.T) {
	m := metrics.New()
	g := startGateway(t, func(cfg *Config) { cfg.Metrics = m })
	c := dialPhone(t, g)

	require.NoError(t, c.Send(&wire.ButtonTemplateReq{}))
	reset, _, err := c.ReceiveUntil(wire.KindReset, waitFor)
	require.NoError(t, err)
	assert.Equal(t, wire.ResetHard, reset.(*wire.Reset).Type)
	waitClosed(t, c)

	t.Run("restart instructions are throttled", func(t *testing.T) {
		c := dialPhone(t, g)
		require.NoError(t, c.Send(&wire.OffHook{}))
		waitClosed(t, c)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RestartsSuppressed))
	})
}

func TestGatewayRecoversSession(t *testing.T) {
	g := startGateway(t, nil)
	first := registerPhone(t, g, phoneA)
	dev, _ := g.Registry().Device(phoneA)
	oldSession := dev.SessionID()

	// The station reconnects without registering and goes off hook.
	c := dialPhone(t, g)
	require.NoError(t, c.Send(&wire.OffHook{}))
	waitCallState(t, c, wire.CallStateOffHook)

	assert.NotEqual(t, oldSession, dev.SessionID())
	waitClosed(t, first)
}

func TestGatewayLocalCall(t *testing.T) {
	g := startGateway(t, nil)
	a := registerPhone(t, g, phoneA)
	b := registerPhone(t, g, phoneB)

	require.NoError(t, a.Send(&wire.EnblocCall{Number: "200"}))
	ring := waitCallState(t, b, wire.CallStateRingIn)
	waitCallState(t, a, wire.CallStateRingOut)

	require.NoError(t, b.Send(&wire.OffHook{}))
	waitCallState(t, b, wire.CallStateConnected)
	waitCallState(t, a, wire.CallStateConnected)

	t.Run("media", func(t *testing.T) {
		orc, _, err := b.ReceiveUntil(wire.KindOpenReceiveChannel, waitFor)
		require.NoError(t, err)
		id := orc.(*wire.OpenReceiveChannel).PassThruPartyID
		assert.Equal(t, ring.CallRef, id)

		require.NoError(t, b.Send(&wire.OpenReceiveChannelAck{
			Addr:            netip.MustParseAddr("127.0.0.1"),
			Port:            20000,
			PassThruPartyID: id,
		}))
		smt, _, err := a.ReceiveUntil(wire.KindStartMediaTransmission, waitFor)
		require.NoError(t, err)
		assert.Equal(t, uint32(20000), smt.(*wire.StartMediaTransmission).RemotePort)
	})

	require.NoError(t, a.Send(&wire.OnHook{}))
	waitCallState(t, a, wire.CallStateOnHook)
	waitCallState(t, b, wire.CallStateOnHook)
	require.Eventually(t, func() bool { return len(g.Registry().Channels()) == 0 }, waitFor, 10*time.Millisecond)
}

func TestGatewayIncomingLimit(t *testing.T) {
	g := startGateway(t, func(cfg *Config) { cfg.Registry = newTestRegistry(t, 1) })
	a := registerPhone(t, g, phoneA)
	b := registerPhone(t, g, phoneB)

	// Bob's own call occupies line 200.
	require.NoError(t, b.Send(&wire.OffHook{}))
	waitCallState(t, b, wire.CallStateOffHook)
	require.Equal(t, 1, g.Registry().ChannelCount("200"))

	require.NoError(t, a.Send(&wire.EnblocCall{Number: "200"}))
	waitTone(t, a, wire.ToneLineBusy)
	assert.Equal(t, 1, g.Registry().ChannelCount("200"))
}

func TestGatewayDialUnknownNumber(t *testing.T) {
	g := startGateway(t, nil)
	a := registerPhone(t, g, phoneA)

	require.NoError(t, a.Send(&wire.EnblocCall{Number: "999"}))
	m, _, err := a.ReceiveUntil(wire.KindDisplayPromptStatus, waitFor)
	for err == nil && m.(*wire.DisplayPromptStatus).Text != station.PromptUnknownNumber {
		m, _, err = a.ReceiveUntil(wire.KindDisplayPromptStatus, waitFor)
	}
	require.NoError(t, err)
}

func TestWorkerRecoversPanic(t *testing.T) {
	m := metrics.New()
	g := startGateway(t, func(cfg *Config) { cfg.Metrics = m })

	require.True(t, g.submit(phoneA, "boom", func(context.Context) { panic("boom") }))
	done := make(chan struct{})
	require.True(t, g.submit(phoneA, "after", func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("worker stopped after panic")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerPanics))

	err := g.await(context.Background(), phoneA, "boom", func(context.Context) error { panic("again") })
	assert.ErrorIs(t, err, ErrHandlerPanicked)
}

func TestWorkerOrder(t *testing.T) {
	g := startGateway(t, nil)

	var got []int
	for i := range 50 {
		g.submit(phoneA, "order", func(context.Context) { got = append(got, i) })
	}
	err := g.await(context.Background(), phoneA, "sync", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestManagement(t *testing.T) {
	g := startGateway(t, nil)
	a := registerPhone(t, g, phoneA)
	ctx := context.Background()

	t.Run("restart", func(t *testing.T) {
		require.NoError(t, g.RestartDevice(ctx, phoneA, false))
		m, _, err := a.ReceiveUntil(wire.KindReset, waitFor)
		require.NoError(t, err)
		assert.Equal(t, wire.ResetRestart, m.(*wire.Reset).Type)
	})

	t.Run("display to all", func(t *testing.T) {
		require.NoError(t, g.DisplayMessage(ctx, "", "maintenance at 6", 10*time.Second))
		m, _, err := a.ReceiveUntil(wire.KindDisplayNotify, waitFor)
		require.NoError(t, err)
		assert.Equal(t, &wire.DisplayNotify{Timeout: 10, Text: "maintenance at 6"}, m)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, g.DisplayMessage(ctx, phoneA, "", 0))
		_, _, err := a.ReceiveUntil(wire.KindClearNotify, waitFor)
		require.NoError(t, err)
	})

	t.Run("errors", func(t *testing.T) {
		assert.ErrorIs(t, g.RestartDevice(ctx, "SEP000000000000", true), ErrDeviceNotFound)
		assert.ErrorIs(t, g.RestartDevice(ctx, phoneB, true), ErrNotConnected)
	})
}

func TestManagementNotStarted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Registry = newTestRegistry(t, 0)
	g, err := NewGateway(cfg)
	require.NoError(t, err)
	err = g.RestartDevice(context.Background(), phoneA, false)
	assert.True(t, errors.Is(err, ErrNotStarted))
}
