package service

import (
	"context"
	"net/netip"

	"github.com/sccp-protocol/sccp-go/pkg/call"
	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
)

// The router reports call progress through these methods. Each report is
// applied on the worker of the device owning the call.

// IncomingCall offers a call to a line and waits for the ringing device's
// worker to allocate the channel.
func (g *Gateway) IncomingCall(ctx context.Context, lineName string, in pbx.IncomingCall) (pbx.ChannelRef, error) {
	var ref pbx.ChannelRef
	offer := func(ctx context.Context) error {
		ch, err := g.calls.Incoming(ctx, lineName, in)
		if err != nil {
			return err
		}
		ref = call.Ref(ch)
		return nil
	}

	target := g.ringTarget(lineName)
	if target == "" {
		// Nobody can ring: the call manager reports busy or not found.
		return ref, offer(ctx)
	}
	err := g.await(ctx, target, "incoming", offer)
	return ref, err
}

// ringTarget returns the device that will ring for a call on a line: the
// first registered device not rejecting calls.
func (g *Gateway) ringTarget(lineName string) string {
	for _, att := range g.reg.DevicesOnLine(lineName) {
		dev, ok := g.reg.Device(att.Device)
		if !ok || !dev.Registered() || dev.Get().DND == registry.DNDReject {
			continue
		}
		return dev.ID()
	}
	return ""
}

// RemoteRinging reports that the called party is alerting.
func (g *Gateway) RemoteRinging(callID uint32) {
	g.progress(callID, registry.StateRingOut)
}

// RemoteAnswered reports that the called party answered.
func (g *Gateway) RemoteAnswered(callID uint32) {
	g.progress(callID, registry.StateConnected)
}

// RemoteBusy reports a busy destination.
func (g *Gateway) RemoteBusy(callID uint32) {
	g.progress(callID, registry.StateBusy)
}

// RemoteCongestion reports that the call could not be routed.
func (g *Gateway) RemoteCongestion(callID uint32) {
	g.progress(callID, registry.StateCongestion)
}

// RemoteHangup reports that the router released a call.
func (g *Gateway) RemoteHangup(callID uint32) {
	g.onChannel(callID, "remote-hangup", func(ctx context.Context, ch *registry.Channel) {
		g.calls.RemoteHangup(ctx, ch)
	})
}

// MediaReady points the station's RTP sender at remote.
func (g *Gateway) MediaReady(callID uint32, remote netip.AddrPort) {
	g.onChannel(callID, "media-ready", func(ctx context.Context, ch *registry.Channel) {
		if err := g.engine.StartTransmit(ctx, ch, remote); err != nil {
			g.logger.Warn("start transmit failed", "call", callID, "err", err)
		}
	})
}

func (g *Gateway) progress(callID uint32, state registry.ChannelState) {
	g.onChannel(callID, "progress", func(ctx context.Context, ch *registry.Channel) {
		if err := g.calls.Progress(ctx, ch, state); err != nil {
			g.logger.Warn("call progress failed", "call", callID, "state", state.String(), "err", err)
		}
	})
}

// onChannel runs fn on the worker of the call's device. The channel is
// looked up again on the worker since it may have ended meanwhile.
func (g *Gateway) onChannel(callID uint32, name string, fn func(ctx context.Context, ch *registry.Channel)) {
	ch, ok := g.reg.Channel(callID)
	if !ok {
		g.debugLog("router report for unknown call", "call", callID, "report", name)
		return
	}
	g.submit(ch.Device(), name, func(ctx context.Context) {
		ch, ok := g.reg.Channel(callID)
		if !ok {
			g.debugLog("call ended before router report", "call", callID, "report", name)
			return
		}
		fn(ctx, ch)
	})
}

// Registration hooks.

// onRegistered runs inside Register on the device's worker. The follow-up
// work is queued behind it.
func (g *Gateway) onRegistered(deviceID string) {
	dev, ok := g.reg.Device(deviceID)
	if !ok {
		return
	}
	g.buildSoftKeys(dev)

	g.submit(deviceID, "registered", func(ctx context.Context) {
		if err := g.features.Restore(ctx, deviceID); err != nil {
			g.logger.Warn("restoring device settings failed", "device", deviceID, "err", err)
		}
		g.subscribeHints(dev)
	})
	g.Go("post-registration "+deviceID, func(ctx context.Context) error {
		if err := g.post.Sync(ctx, deviceID); err != nil {
			g.logger.Warn("post-registration sync failed", "device", deviceID, "err", err)
		}
		return nil
	})
}

// buildSoftKeys derives and caches the soft key layout of a device.
func (g *Gateway) buildSoftKeys(dev *registry.Device) *station.SoftKeys {
	var lines []registry.LineConfig
	for _, att := range g.reg.LinesOf(dev.ID()) {
		if l, ok := g.reg.Line(att.Line); ok {
			lines = append(lines, l.Config())
		}
	}
	sk := station.NewSoftKeys(station.OptionsFor(dev.Config(), lines))
	g.mu.Lock()
	g.softKeys[dev.ID()] = sk
	g.mu.Unlock()
	return sk
}

// subscribeHints watches the lines of speed dials that carry a hint and
// shows their current state.
func (g *Gateway) subscribeHints(dev *registry.Device) {
	cfg := dev.Config()
	for _, b := range dev.Get().Buttons {
		if b.Kind != registry.ButtonSpeedDial || b.Index >= len(cfg.SpeedDials) {
			continue
		}
		watched := cfg.SpeedDials[b.Index].Hint
		if watched == "" {
			continue
		}
		id, err := g.hints.Subscribe(dev.ID(), b.Instance, watched)
		if err != nil {
			g.logger.Warn("hint subscription failed", "device", dev.ID(), "line", watched, "err", err)
			continue
		}
		g.hints.Prime(id, g.lineEvent(watched))
	}
}

// lineEvent describes the current state of a line for a new subscriber.
func (g *Gateway) lineEvent(lineName string) hint.Event {
	for _, ch := range g.reg.ChannelsByLine(lineName) {
		info := ch.Get()
		if !info.State.Live() {
			continue
		}
		return hint.Event{
			Line:          lineName,
			Device:        ch.Device(),
			CallID:        ch.CallID(),
			State:         info.State,
			Direction:     info.Direction,
			CallingName:   info.CallingName,
			CallingNumber: info.CallingNumber,
			CalledName:    info.CalledName,
			CalledNumber:  info.CalledNumber,
			Private:       info.Private,
		}
	}
	return hint.Event{Line: lineName, State: registry.StateOnHook}
}

// onRelease ends the calls of a device that lost its session and drops its
// subscriptions and timers.
func (g *Gateway) onRelease(ctx context.Context, deviceID string) {
	for _, ch := range g.reg.ChannelsByDevice(deviceID) {
		g.calls.Hangup(ctx, ch)
	}
	if n := g.hints.UnsubscribeDevice(deviceID); n > 0 {
		g.debugLog("hint subscriptions dropped", "device", deviceID, "count", n)
	}
	g.timers.CancelDevice(deviceID)
	g.mu.Lock()
	delete(g.softKeys, deviceID)
	g.mu.Unlock()
}

// deliverHint sends a hint update on the subscriber's worker.
func (g *Gateway) deliverHint(n hint.Notification) {
	g.submit(n.Device, "hint", func(context.Context) {
		sess, ok := g.session(n.Device)
		if !ok {
			return
		}
		if err := sess.SendAll(n.Messages...); err != nil {
			g.debugLog("hint delivery failed", "device", n.Device, "subscription", n.SubscriptionID, "err", err)
		}
	})
}

// dialExpired routes the collected digits once the digit timer fires.
func (g *Gateway) dialExpired(callID uint32, deviceID string) {
	g.submit(deviceID, "dial-timeout", func(ctx context.Context) {
		ch, ok := g.reg.Channel(callID)
		if !ok {
			return
		}
		if err := g.calls.DialCollected(ctx, ch); err != nil {
			g.logger.Info("dialing failed", "device", deviceID, "call", callID, "err", err)
		}
	})
}

var _ pbx.Calls = (*Gateway)(nil)
