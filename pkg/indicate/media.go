package indicate

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

func ref(ch *registry.Channel) pbx.ChannelRef {
	return pbx.ChannelRef{CallID: ch.CallID(), Line: ch.Line(), Device: ch.Device()}
}

// openReceive asks the station to open its RTP receiver once per channel.
func (t *transition) openReceive() {
	if t.ch.Get().ReceiveOpen {
		return
	}
	if err := t.e.media.OpenReceive(t.ctx, ref(t.ch)); err != nil {
		t.e.logger.Warn("open receive failed", "call", t.callID, "err", err)
		return
	}
	t.info = t.ch.Update(func(ci *registry.ChannelInfo) { ci.ReceiveOpen = true })
	t.add(&wire.OpenReceiveChannel{
		ConferenceID:    t.callID,
		PassThruPartyID: t.callID,
		PacketSize:      wire.DefaultPacketSize,
		PayloadType:     PayloadFor(t.dev.Get().Capabilities),
		ConferenceID1:   t.callID,
	})
}

// closeMedia tears down whatever RTP path is open.
func (t *transition) closeMedia() {
	info := t.ch.Get()
	if info.ReceiveOpen {
		t.add(&wire.CloseReceiveChannel{ConferenceID: t.callID, PassThruPartyID: t.callID, ConferenceID1: t.callID})
		if err := t.e.media.CloseReceive(t.ctx, ref(t.ch)); err != nil {
			t.e.logger.Warn("close receive failed", "call", t.callID, "err", err)
		}
	}
	if info.Transmit {
		t.add(&wire.StopMediaTransmission{ConferenceID: t.callID, PassThruPartyID: t.callID, ConferenceID1: t.callID})
	}
	if info.ReceiveOpen || info.Transmit {
		t.info = t.ch.Update(func(ci *registry.ChannelInfo) {
			ci.ReceiveOpen = false
			ci.Transmit = false
		})
	}
}

// StartTransmit points the station RTP sender at remote. It does nothing
// when the channel is already transmitting.
func (e *Engine) StartTransmit(ctx context.Context, ch *registry.Channel, remote netip.AddrPort) error {
	if !remote.IsValid() {
		return fmt.Errorf("start transmit call %d: invalid address %v", ch.CallID(), remote)
	}
	started := false
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.MediaReady = true
		if !ci.Transmit {
			ci.Transmit = true
			started = true
		}
	})
	if !started {
		return nil
	}
	var caps []wire.MediaCapability
	if dev, ok := e.reg.Device(ch.Device()); ok {
		caps = dev.Get().Capabilities
	}
	id := ch.CallID()
	return e.send(ch.Device(), []wire.Message{&wire.StartMediaTransmission{
		ConferenceID:       id,
		PassThruPartyID:    id,
		RemoteAddr:         remote.Addr(),
		RemotePort:         uint32(remote.Port()),
		PacketSize:         wire.DefaultPacketSize,
		PayloadType:        PayloadFor(caps),
		MaxFramesPerPacket: 1,
		ConferenceID1:      id,
	}})
}

// ReceiveOpened records the station's RTP address reported in
// OpenReceiveChannelAck and hands it to the media collaborator.
func (e *Engine) ReceiveOpened(ctx context.Context, ch *registry.Channel, addr netip.AddrPort) error {
	if err := e.media.ReceiveOpened(ctx, ref(ch), addr); err != nil {
		return fmt.Errorf("receive opened call %d: %w", ch.CallID(), err)
	}
	return nil
}

// CloseMedia closes the RTP path of a channel outside a state change,
// e.g. before a transfer re-bridges it.
func (e *Engine) CloseMedia(ctx context.Context, ch *registry.Channel) error {
	dev, ok := e.reg.Device(ch.Device())
	if !ok {
		return fmt.Errorf("close media call %d: %w", ch.CallID(), registry.ErrUnknownDevice)
	}
	inst, _ := e.reg.InstanceOf(dev.ID(), ch.Line())
	t := &transition{e: e, ctx: ctx, ch: ch, dev: dev, inst: uint32(inst), callID: ch.CallID()}
	t.closeMedia()
	return e.send(dev.ID(), t.msgs)
}

var preferredPayloads = []uint32{wire.PayloadG711Ulaw, wire.PayloadG711Alaw, wire.PayloadG729}

// PayloadFor picks the RTP payload type for a station from its capability
// list, G.711 u-law when the station reported nothing usable.
func PayloadFor(caps []wire.MediaCapability) uint32 {
	for _, c := range caps {
		for _, p := range preferredPayloads {
			if c.PayloadCapability == p {
				return p
			}
		}
	}
	return wire.PayloadG711Ulaw
}
