package service

import (
	"context"
	"errors"
	"net"
	"net/netip"

	"github.com/sccp-protocol/sccp-go/pkg/registration"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/transport"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// handler processes one station message. deviceID is empty for messages
// allowed before registration.
type handler func(ctx context.Context, s *transport.Session, deviceID string, m wire.Message) error

func (g *Gateway) handlerTable() map[wire.Kind]handler {
	return map[wire.Kind]handler{
		wire.KindRegister:                  g.handleRegister,
		wire.KindRegisterTokenReq:          g.handleToken,
		wire.KindUnregister:                g.handleUnregister,
		wire.KindIpPort:                    g.handleIPPort,
		wire.KindAlarm:                     g.handleAlarm,
		wire.KindCapabilitiesRes:           g.handleCapabilities,
		wire.KindButtonTemplateReq:         g.handleButtonTemplate,
		wire.KindSoftKeyTemplateReq:        g.handleSoftKeyTemplate,
		wire.KindSoftKeySetReq:             g.handleSoftKeySet,
		wire.KindLineStatReq:               g.handleLineStat,
		wire.KindSpeedDialStatReq:          g.handleSpeedDialStat,
		wire.KindServiceURLStatReq:         g.handleServiceURLStat,
		wire.KindFeatureStatReq:            g.handleFeatureStat,
		wire.KindForwardStatReq:            g.handleForwardStat,
		wire.KindConfigStatReq:             g.handleConfigStat,
		wire.KindTimeDateReq:               g.handleTimeDate,
		wire.KindVersionReq:                g.handleVersion,
		wire.KindServerReq:                 g.handleServer,
		wire.KindOpenReceiveChannelAck:     g.handleReceiveOpened,
		wire.KindConnectionStatisticsRes:   g.handleStatistics,
		wire.KindRegisterAvailableLines:    g.handleInformational,
		wire.KindMediaResourceNotification: g.handleInformational,
		wire.KindStimulus:                  g.handleStimulus,
		wire.KindSoftKeyEvent:              g.handleSoftKey,
		wire.KindOffHook:                   g.handleOffHook,
		wire.KindOffHookWithCgpn:           g.handleOffHook,
		wire.KindOnHook:                    g.handleOnHook,
		wire.KindHookFlash:                 g.handleHookFlash,
		wire.KindHeadsetStatus:             g.handleHeadset,
		wire.KindKeypadButton:              g.handleKeypad,
		wire.KindEnblocCall:                g.handleEnbloc,
	}
}

// onMessage routes a decoded message. It runs on the session's read
// goroutine. KeepAlive is answered inline; messages of a device, or of a
// session that sent Register for it, go to that device's worker.
func (g *Gateway) onMessage(s *transport.Session, m wire.Message) {
	kind := m.Kind()
	if kind == wire.KindKeepAlive {
		s.Touch(g.now())
		if err := s.Send(&wire.KeepAliveAck{}); err != nil {
			g.debugLog("keepalive ack failed", "session", s.ID(), "err", err)
		}
		return
	}

	deviceID := s.DeviceID()
	if reg, ok := m.(*wire.Register); ok {
		if _, known := g.reg.Device(reg.DeviceName); known {
			g.claim(s.ID(), reg.DeviceName)
			deviceID = reg.DeviceName
		}
	}
	if deviceID == "" {
		deviceID = g.claimOf(s.ID())
	}
	if deviceID == "" && !kind.AllowedUnregistered() {
		// A station that lost its session may still be registered from
		// its address; recovery runs on that device's worker.
		if dev, ok := g.reg.DeviceByIP(s.RemoteIP()); ok && dev.Registered() {
			deviceID = dev.ID()
		}
	}
	if deviceID == "" || !g.submit(deviceID, kind.String(), func(ctx context.Context) { g.dispatch(ctx, s, m) }) {
		g.dispatch(g.runContext(), s, m)
	}
}

// runContext returns the run context, or a background context before Start.
func (g *Gateway) runContext() context.Context {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}

// dispatch runs the handler of m. A message that needs a registered device
// on an unbound session triggers recovery; when that fails the session is
// closed.
func (g *Gateway) dispatch(ctx context.Context, s *transport.Session, m wire.Message) {
	if s.Closed() {
		return
	}
	kind := m.Kind()
	h, ok := g.handlers[kind]
	if !ok {
		g.debugLog("unhandled message", "session", s.ID(), "kind", kind.String())
		s.Touch(g.now())
		return
	}

	deviceID := s.DeviceID()
	if deviceID == "" && !kind.AllowedUnregistered() {
		id, err := g.registration.Recover(ctx, s)
		if err != nil {
			if errors.Is(err, registration.ErrThrottled) {
				g.metrics.RecordRestartSuppressed()
			}
			g.logger.Info("message before registration", "session", s.ID(), "ip", s.RemoteIP(),
				"kind", kind.String(), "err", err)
			s.Close(transport.ReasonNotRegistered)
			return
		}
		deviceID = id
	}

	if err := h(ctx, s, deviceID, m); err != nil {
		var reject *registration.RejectError
		if errors.As(err, &reject) {
			g.logger.Info("registration rejected", "session", s.ID(), "ip", s.RemoteIP(), "reason", reject.Reason)
		} else {
			g.logger.Warn("handler failed", "session", s.ID(), "device", deviceID, "kind", kind.String(), "err", err)
		}
	}
	s.Touch(g.now())
}

func (g *Gateway) onProtocolError(s *transport.Session, err error) {
	g.logger.Warn("protocol error", "session", s.ID(), "device", s.DeviceID(), "err", err)
}

// onClose releases the device of a lost session on its worker.
func (g *Gateway) onClose(s *transport.Session) {
	g.unclaim(s.ID())
	deviceID := s.DeviceID()
	if deviceID == "" {
		return
	}
	reason := s.CloseReason()
	sessionID := s.ID()
	if !g.submit(deviceID, "release", func(ctx context.Context) {
		g.registration.Release(ctx, deviceID, sessionID, reason)
	}) {
		g.registration.Release(context.Background(), deviceID, sessionID, reason)
	}
}

func (g *Gateway) onExpired(s *transport.Session) {
	g.logger.Info("keepalive expired", "session", s.ID(), "device", s.DeviceID(), "ip", s.RemoteIP())
}

func (g *Gateway) claim(sessionID, deviceID string) {
	g.mu.Lock()
	g.claims[sessionID] = deviceID
	g.mu.Unlock()
}

func (g *Gateway) claimOf(sessionID string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.claims[sessionID]
}

func (g *Gateway) unclaim(sessionID string) {
	g.mu.Lock()
	delete(g.claims, sessionID)
	g.mu.Unlock()
}

// Registration.

func (g *Gateway) handleRegister(ctx context.Context, s *transport.Session, _ string, m wire.Message) error {
	err := g.registration.Register(ctx, s, m.(*wire.Register))
	if err != nil {
		g.unclaim(s.ID())
	}
	return err
}

func (g *Gateway) handleToken(ctx context.Context, s *transport.Session, _ string, m wire.Message) error {
	return g.registration.Token(ctx, s, m.(*wire.RegisterTokenReq))
}

func (g *Gateway) handleUnregister(ctx context.Context, s *transport.Session, _ string, _ wire.Message) error {
	err := g.registration.Unregister(ctx, s)
	if errors.Is(err, registration.ErrNotRegistered) {
		return nil
	}
	return err
}

func (g *Gateway) handleIPPort(_ context.Context, s *transport.Session, _ string, m wire.Message) error {
	g.debugLog("station rtp port", "session", s.ID(), "port", m.(*wire.IpPort).Port)
	return nil
}

func (g *Gateway) handleAlarm(_ context.Context, s *transport.Session, _ string, m wire.Message) error {
	a := m.(*wire.Alarm)
	g.logger.Info("station alarm", "session", s.ID(), "ip", s.RemoteIP(), "severity", a.Severity,
		"text", a.Text, "param1", a.Param1, "param2", a.Param2)
	return nil
}

func (g *Gateway) handleCapabilities(_ context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	return g.registration.Capabilities(deviceID, m.(*wire.CapabilitiesRes))
}

func (g *Gateway) handleInformational(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	g.debugLog("station report", "device", deviceID, "session", s.ID(), "kind", m.Kind().String())
	return nil
}

// Configuration requests.

func (g *Gateway) device(deviceID string) (*registry.Device, error) {
	dev, ok := g.reg.Device(deviceID)
	if !ok {
		return nil, registry.ErrUnknownDevice
	}
	return dev, nil
}

func (g *Gateway) handleButtonTemplate(_ context.Context, s *transport.Session, deviceID string, _ wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	return s.Send(station.ButtonTemplate(dev.Get().Buttons))
}

func (g *Gateway) handleSoftKeyTemplate(_ context.Context, s *transport.Session, _ string, _ wire.Message) error {
	return s.Send(station.TemplateRes())
}

// handleSoftKeySet sends the key sets and selects the on-hook set.
func (g *Gateway) handleSoftKeySet(_ context.Context, s *transport.Session, deviceID string, _ wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	sk := g.softKeysOf(deviceID)
	if sk == nil {
		sk = g.buildSoftKeys(dev)
	}
	return s.SendAll(
		sk.SetRes(),
		&wire.SelectSoftKeys{Set: wire.KeySetOnHook, ValidKeyMask: sk.Mask(wire.KeySetOnHook, dev.Get().LastNumber != "")},
	)
}

func (g *Gateway) handleLineStat(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	inst := m.(*wire.LineStatReq).Line
	line, _ := g.reg.LineByInstance(deviceID, uint8(inst))
	return s.Send(station.LineStat(inst, line, dev.Config()))
}

func (g *Gateway) handleSpeedDialStat(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	return s.Send(station.SpeedDialStat(m.(*wire.SpeedDialStatReq).Number, dev.Get().Buttons, dev.Config()))
}

func (g *Gateway) handleServiceURLStat(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	return s.Send(station.ServiceURLStat(m.(*wire.ServiceURLStatReq).Index, dev.Get().Buttons, dev.Config()))
}

// handleFeatureStat reports a feature button with its current state.
func (g *Gateway) handleFeatureStat(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	idx := m.(*wire.FeatureStatReq).Index
	info, cfg := dev.Get(), dev.Config()
	status := false
	if b, ok := dev.Button(registry.ButtonFeature, uint8(idx)); ok && b.Index < len(cfg.Features) {
		switch cfg.Features[b.Index].Kind {
		case "dnd":
			status = info.DND != registry.DNDOff
		case "private", "privacy":
			status = info.PrivateNext
		}
	}
	return s.Send(station.FeatureStat(idx, info.Buttons, cfg, status))
}

func (g *Gateway) handleForwardStat(_ context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	inst := m.(*wire.ForwardStatReq).Line
	var info registry.LineInfo
	if line, ok := g.reg.LineByInstance(deviceID, uint8(inst)); ok {
		info = line.Get()
	}
	return s.Send(station.ForwardStat(inst, info))
}

func (g *Gateway) handleConfigStat(_ context.Context, s *transport.Session, deviceID string, _ wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	return s.Send(station.ConfigStat(dev.Config(), dev.Get().Buttons, g.config.ServerName))
}

func (g *Gateway) handleTimeDate(_ context.Context, s *transport.Session, _ string, _ wire.Message) error {
	return s.Send(wire.NewDefineTimeDate(g.now()))
}

func (g *Gateway) handleVersion(_ context.Context, s *transport.Session, deviceID string, _ wire.Message) error {
	dev, err := g.device(deviceID)
	if err != nil {
		return err
	}
	return s.Send(&wire.Version{Version: dev.Config().ImageVersion})
}

// handleServer names this gateway, at the address the station reached.
func (g *Gateway) handleServer(_ context.Context, s *transport.Session, _ string, _ wire.Message) error {
	entry := wire.ServerEntry{Name: g.config.ServerName}
	if tcp, ok := s.LocalAddr().(*net.TCPAddr); ok {
		ap := tcp.AddrPort()
		entry.Addr = ap.Addr().Unmap()
		entry.Port = uint32(ap.Port())
	}
	return s.Send(&wire.ServerRes{Servers: []wire.ServerEntry{entry}})
}

// Media.

// handleReceiveOpened passes the station's RTP address on. A station behind
// NAT reports its private address; unless the device is trusted the source
// address of the session is used instead.
func (g *Gateway) handleReceiveOpened(ctx context.Context, s *transport.Session, deviceID string, m wire.Message) error {
	ack := m.(*wire.OpenReceiveChannelAck)
	callID := ack.CallRef
	if callID == 0 {
		callID = ack.PassThruPartyID
	}
	ch, ok := g.reg.Channel(callID)
	if !ok || ch.Device() != deviceID {
		g.debugLog("receive ack for unknown call", "device", deviceID, "call", callID)
		return nil
	}
	if ack.Status != 0 {
		g.logger.Warn("station could not open receive channel", "device", deviceID, "call", callID, "status", ack.Status)
		return nil
	}
	addr := ack.Addr
	if dev, ok := g.reg.Device(deviceID); ok && dev.Get().NAT && !dev.Config().TrustPhoneIP {
		addr = s.RemoteIP()
	}
	return g.engine.ReceiveOpened(ctx, ch, netip.AddrPortFrom(addr.Unmap(), uint16(ack.Port)))
}

func (g *Gateway) handleStatistics(_ context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	st := m.(*wire.ConnectionStatisticsRes)
	g.logger.Info("call statistics", "device", deviceID, "call", st.CallRef, "sent", st.PacketsSent,
		"received", st.PacketsReceived, "lost", st.PacketsLost, "jitter", st.Jitter, "latency", st.Latency)
	return nil
}

// Features.

func (g *Gateway) handleStimulus(ctx context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	st := m.(*wire.StimulusMsg)
	return g.features.Stimulus(ctx, deviceID, st.Stimulus, st.Instance, 0)
}

func (g *Gateway) handleSoftKey(ctx context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	ev := m.(*wire.SoftKeyEvent)
	return g.features.SoftKey(ctx, deviceID, ev.Event, ev.Line, ev.CallRef)
}

func (g *Gateway) handleOffHook(ctx context.Context, _ *transport.Session, deviceID string, _ wire.Message) error {
	return g.features.OffHook(ctx, deviceID, 0, 0)
}

func (g *Gateway) handleOnHook(ctx context.Context, _ *transport.Session, deviceID string, _ wire.Message) error {
	return g.features.OnHook(ctx, deviceID, 0, 0)
}

// handleHookFlash starts or completes a transfer of the active call.
func (g *Gateway) handleHookFlash(ctx context.Context, _ *transport.Session, deviceID string, _ wire.Message) error {
	if _, ok := g.calls.Active(deviceID); !ok {
		return nil
	}
	return g.features.SoftKey(ctx, deviceID, wire.SoftKeyTransfer, 0, 0)
}

func (g *Gateway) handleHeadset(ctx context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	return g.features.Headset(ctx, deviceID, m.(*wire.HeadsetStatus).Mode)
}

func (g *Gateway) handleKeypad(ctx context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	kp := m.(*wire.KeypadButton)
	digit := kp.Digit()
	if digit == 0 {
		g.debugLog("ignoring keypad button", "device", deviceID, "button", kp.Button)
		return nil
	}
	return g.features.Keypad(ctx, deviceID, digit, kp.Line, kp.CallRef)
}

func (g *Gateway) handleEnbloc(ctx context.Context, _ *transport.Session, deviceID string, m wire.Message) error {
	return g.features.Enbloc(ctx, deviceID, m.(*wire.EnblocCall).Number)
}
