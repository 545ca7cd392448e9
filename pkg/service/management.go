package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Snapshot returns a management view of the gateway.
func (g *Gateway) Snapshot() Snapshot {
	g.mu.RLock()
	s := Snapshot{State: g.state, Started: g.started}
	g.mu.RUnlock()

	s.Registry = g.reg.Snapshot()
	for _, sess := range g.server.Sessions() {
		s.Sessions = append(s.Sessions, SessionInfo{
			ID:            sess.ID(),
			Device:        sess.DeviceID(),
			Remote:        sess.RemoteAddr(),
			KeepAlive:     sess.KeepAlive(),
			LastKeepAlive: sess.LastKeepAlive(),
		})
	}
	s.Subscriptions = g.hints.Count()
	s.DialTimers = g.timers.Count()
	return s
}

// RestartDevice tells a connected station to restart. With reset the
// station reboots fully.
func (g *Gateway) RestartDevice(ctx context.Context, deviceID string, reset bool) error {
	kind := wire.ResetRestart
	if reset {
		kind = wire.ResetHard
	}
	return g.onDevice(ctx, deviceID, "restart", &wire.Reset{Type: kind})
}

// DisplayMessage shows text in the notify area of a station, or of every
// connected station when deviceID is empty. Empty text clears the area.
func (g *Gateway) DisplayMessage(ctx context.Context, deviceID, text string, timeout time.Duration) error {
	var m wire.Message = &wire.DisplayNotify{Timeout: uint32(timeout / time.Second), Text: text}
	if text == "" {
		m = &wire.ClearNotify{}
	}
	if deviceID != "" {
		return g.onDevice(ctx, deviceID, "display", m)
	}

	var sent int
	for _, dev := range g.reg.Devices() {
		if !dev.Registered() {
			continue
		}
		if err := g.onDevice(ctx, dev.ID(), "display", m); err != nil {
			g.debugLog("display failed", "device", dev.ID(), "err", err)
			continue
		}
		sent++
	}
	g.logger.Info("message displayed", "devices", sent)
	return nil
}

// onDevice sends m to a device from its worker.
func (g *Gateway) onDevice(ctx context.Context, deviceID, name string, m wire.Message) error {
	if g.State() != StateRunning {
		return ErrNotStarted
	}
	if _, ok := g.reg.Device(deviceID); !ok {
		return fmt.Errorf("%s: %w", deviceID, ErrDeviceNotFound)
	}
	return g.await(ctx, deviceID, name, func(context.Context) error {
		sess, ok := g.session(deviceID)
		if !ok {
			return fmt.Errorf("%s: %w", deviceID, ErrNotConnected)
		}
		return sess.Send(m)
	})
}
