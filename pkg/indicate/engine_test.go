package indicate

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/pbx/mocks"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

const devID = "SEP000000000001"

var clock = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

var cmpMessages = cmp.Options{
	cmpopts.IgnoreUnexported(wire.ClearNotify{}),
	cmp.Comparer(func(a, b netip.Addr) bool { return a == b }),
}

type recorder struct {
	mu   sync.Mutex
	msgs []wire.Message
	err  error
}

func (r *recorder) SendAll(msgs ...wire.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recorder) take() []wire.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.msgs
	r.msgs = nil
	return out
}

type hintRecorder struct {
	events []hint.Event
}

func (h *hintRecorder) Notify(ev hint.Event) bool {
	h.events = append(h.events, ev)
	return true
}

type fixture struct {
	reg    *registry.Registry
	dev    *registry.Device
	engine *Engine
	out    *recorder
	hints  *hintRecorder
	media  *mocks.Media
}

func newFixture(t *testing.T, cfg registry.DeviceConfig) *fixture {
	t.Helper()
	reg := registry.New()
	_, err := reg.AddLine(registry.LineConfig{Name: "100", Label: "Reception"})
	require.NoError(t, err)
	cfg.ID = devID
	dev, err := reg.AddDevice(cfg)
	require.NoError(t, err)
	_, err = reg.AttachLine(devID, "100", 1, false)
	require.NoError(t, err)
	dev.Update(func(di *registry.DeviceInfo) {
		di.State = registry.Registered
		di.DeviceType = wire.DeviceType7960
	})

	f := &fixture{reg: reg, dev: dev, out: &recorder{}, hints: &hintRecorder{}, media: mocks.NewMedia(t)}
	f.engine = New(Config{
		Registry: reg,
		Media:    f.media,
		Hints:    f.hints,
		Lookup: func(id string) Sender {
			if id == devID {
				return f.out
			}
			return nil
		},
		Now: func() time.Time { return clock },
	})
	return f
}

func (f *fixture) channel(t *testing.T, dir wire.CallType) *registry.Channel {
	t.Helper()
	ch, err := f.reg.AllocateChannel("100", devID, dir)
	require.NoError(t, err)
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.CallingName = "Reception"
		ci.CallingNumber = "100"
		ci.CalledNumber = "200"
	})
	return ch
}

func connectedMessages(id uint32, ch *registry.Channel, set wire.KeySet) []wire.Message {
	return []wire.Message{
		&wire.SetRinger{Mode: wire.RingOff, Duration: 1, Line: 1, CallRef: id},
		&wire.SetSpeakerMode{Mode: wire.SpeakerOn},
		&wire.StopTone{Line: 1, CallRef: id},
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 1, Mode: wire.LampOn},
		&wire.CallStateMsg{State: wire.CallStateConnected, Line: 1, CallRef: id, Priority: wire.CallPriorityNormal},
		CallInfo(ch.Get(), 1, id),
		&wire.ActivateCallPlane{Line: 1},
		&wire.SelectSoftKeys{Line: 1, CallRef: id, Set: set, ValidKeyMask: station.AllKeys},
		&wire.DisplayPromptStatus{Text: station.PromptConnected, Line: 1, CallRef: id},
		&wire.OpenReceiveChannel{ConferenceID: id, PassThruPartyID: id, PacketSize: 20, PayloadType: wire.PayloadG711Ulaw, ConferenceID1: id},
	}
}

func TestConnectedHoldConnected(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{Transfer: true})
	ch := f.channel(t, wire.CallTypeOutbound)
	id := ch.CallID()
	ctx := context.Background()

	f.media.On("OpenReceive", mock.Anything, mock.Anything).Return(nil).Twice()
	f.media.On("CloseReceive", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateConnected))
	if diff := cmp.Diff(connectedMessages(id, ch, wire.KeySetConnTrans), f.out.take(), cmpMessages); diff != "" {
		t.Errorf("connected mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, id, f.dev.ActiveChannel())
	assert.True(t, ch.Get().ReceiveOpen)

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateHold))
	wantHold := []wire.Message{
		&wire.CloseReceiveChannel{ConferenceID: id, PassThruPartyID: id, ConferenceID1: id},
		wire.NewDefineTimeDate(clock),
		&wire.CallStateMsg{State: wire.CallStateHold, Line: 1, CallRef: id, Priority: wire.CallPriorityNormal},
		&wire.SelectSoftKeys{Line: 1, CallRef: id, Set: wire.KeySetOnHold, ValidKeyMask: station.AllKeys},
		&wire.DisplayPromptStatus{Text: station.PromptHold, Line: 1, CallRef: id},
		&wire.SetSpeakerMode{Mode: wire.SpeakerOff},
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 1, Mode: wire.LampWink},
	}
	if diff := cmp.Diff(wantHold, f.out.take(), cmpMessages); diff != "" {
		t.Errorf("hold mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, f.dev.ActiveChannel())
	assert.False(t, ch.Get().ReceiveOpen)

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateConnected))
	if diff := cmp.Diff(connectedMessages(id, ch, wire.KeySetConnTrans), f.out.take(), cmpMessages); diff != "" {
		t.Errorf("resume mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, registry.StateHold, ch.Get().PrevState)
}

func TestMediaPathIsIdempotent(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeOutbound)
	ctx := context.Background()

	f.media.On("OpenReceive", mock.Anything, mock.Anything).Return(nil).Once()
	f.media.On("CloseReceive", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateConnected))
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateProceed))
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateConnected))

	opens := 0
	for _, m := range f.out.take() {
		if m.Kind() == wire.KindOpenReceiveChannel {
			opens++
		}
	}
	assert.Equal(t, 1, opens)

	require.NoError(t, f.engine.CloseMedia(ctx, ch))
	require.NoError(t, f.engine.CloseMedia(ctx, ch))
	msgs := f.out.take()
	require.Len(t, msgs, 1)
	assert.Equal(t, wire.KindCloseReceiveChannel, msgs[0].Kind())
}

func TestOpenReceiveFailureSendsNothing(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeOutbound)

	f.media.On("OpenReceive", mock.Anything, mock.Anything).Return(errors.New("no ports")).Once()
	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateProceed))

	for _, m := range f.out.take() {
		assert.NotEqual(t, wire.KindOpenReceiveChannel, m.Kind())
	}
	assert.False(t, ch.Get().ReceiveOpen)
}

func TestOffHook(t *testing.T) {
	tests := []struct {
		name      string
		mwiOnCall bool
		lampCount int
	}{
		{name: "clears mwi", lampCount: 3},
		{name: "mwi on call", mwiOnCall: true, lampCount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, registry.DeviceConfig{MWIOnCall: tt.mwiOnCall})
			ch := f.channel(t, wire.CallTypeOutbound)
			id := ch.CallID()
			require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateOffHook))

			msgs := f.out.take()
			lamps := 0
			for _, m := range msgs {
				if m.Kind() == wire.KindSetLamp {
					lamps++
				}
			}
			assert.Equal(t, tt.lampCount, lamps)

			tail := []wire.Message{
				&wire.SetSpeakerMode{Mode: wire.SpeakerOn},
				&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 1, Mode: wire.LampOn},
				&wire.CallStateMsg{State: wire.CallStateOffHook, Line: 1, CallRef: id, Priority: wire.CallPriorityNormal},
				&wire.DisplayPromptStatus{Text: station.PromptEnterNumber, Line: 1, CallRef: id},
				&wire.SelectSoftKeys{Line: 1, CallRef: id, Set: wire.KeySetOffHook, ValidKeyMask: station.AllKeys},
				&wire.ActivateCallPlane{Line: 1},
				&wire.StartTone{Tone: wire.ToneInsideDial, Line: 1, CallRef: id},
			}
			require.GreaterOrEqual(t, len(msgs), len(tail))
			if diff := cmp.Diff(tail, msgs[len(msgs)-len(tail):], cmpMessages); diff != "" {
				t.Errorf("offhook mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, wire.KindClearNotify, msgs[0].Kind())
			assert.Equal(t, id, f.dev.ActiveChannel())
			assert.Equal(t, "100", f.dev.Get().CurrentLine)
		})
	}
}

func TestOnHook(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeInbound)
	id := ch.CallID()
	ctx := context.Background()

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateRingIn))
	f.out.take()
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateOnHook))

	want := []wire.Message{
		&wire.CallStateMsg{State: wire.CallStateOnHook, Line: 1, CallRef: id, Priority: wire.CallPriorityNormal},
		CallInfo(ch.Get(), 1, id),
		&wire.ClearPromptStatus{Line: 1, CallRef: id},
		&wire.SelectSoftKeys{Line: 1, CallRef: id, Set: wire.KeySetOnHook, ValidKeyMask: station.AllKeys},
		&wire.SetRinger{Mode: wire.RingOff, Duration: 1, Line: 1, CallRef: id},
		&wire.StopTone{Line: 1, CallRef: id},
		&wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 1, Mode: wire.LampOff},
	}
	if diff := cmp.Diff(want, f.out.take(), cmpMessages); diff != "" {
		t.Errorf("onhook mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, registry.StateDown, ch.State())
}

func TestOnHookKeepsLampForOtherCall(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	held := f.channel(t, wire.CallTypeOutbound)
	held.Update(func(ci *registry.ChannelInfo) { ci.State = registry.StateHold })
	ch := f.channel(t, wire.CallTypeOutbound)
	f.dev.SetActiveChannel(ch.CallID())
	ch.Update(func(ci *registry.ChannelInfo) { ci.State = registry.StateOffHook })

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateOnHook))
	msgs := f.out.take()
	assert.Equal(t, wire.KindSetSpeakerMode, msgs[0].Kind())
	for _, m := range msgs {
		if lamp, ok := m.(*wire.SetLamp); ok {
			t.Errorf("unexpected lamp change %v", lamp.Mode)
		}
	}
	assert.Zero(t, f.dev.ActiveChannel())
}

func TestOnHookResetsConferenceStation(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	f.dev.Update(func(di *registry.DeviceInfo) { di.DeviceType = wire.DeviceType7936 })
	ch := f.channel(t, wire.CallTypeOutbound)

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateOnHook))
	msgs := f.out.take()
	last, ok := msgs[len(msgs)-1].(*wire.Reset)
	require.True(t, ok, "last message %v", msgs[len(msgs)-1].Kind())
	assert.Equal(t, wire.ResetRestart, last.Type)
}

func TestRingInRingerStyle(t *testing.T) {
	tests := []struct {
		name  string
		style wire.RingerMode
		dnd   registry.DNDMode
		want  wire.RingerMode
	}{
		{name: "default", want: wire.RingOutside},
		{name: "configured", style: wire.RingInside, want: wire.RingInside},
		{name: "dnd silent", style: wire.RingInside, dnd: registry.DNDSilent, want: wire.RingSilent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, registry.DeviceConfig{MWIOnCall: true})
			f.dev.Update(func(di *registry.DeviceInfo) { di.DND = tt.dnd })
			ch := f.channel(t, wire.CallTypeInbound)
			ch.Update(func(ci *registry.ChannelInfo) { ci.RingStyle = tt.style })

			require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateRingIn))
			msgs := f.out.take()
			kinds := make([]wire.Kind, len(msgs))
			for i, m := range msgs {
				kinds[i] = m.Kind()
			}
			assert.Equal(t, []wire.Kind{
				wire.KindClearNotify, wire.KindClearPromptStatus, wire.KindCallState,
				wire.KindCallInfo, wire.KindSetLamp, wire.KindSetRinger, wire.KindSelectSoftKeys,
			}, kinds)
			assert.Equal(t, tt.want, msgs[5].(*wire.SetRinger).Mode)
			assert.Equal(t, wire.LampBlink, msgs[4].(*wire.SetLamp).Mode)
		})
	}
}

func TestRingOutEarlyRTP(t *testing.T) {
	t.Run("tone without media", func(t *testing.T) {
		f := newFixture(t, registry.DeviceConfig{})
		ch := f.channel(t, wire.CallTypeOutbound)
		require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateRingOut))
		msgs := f.out.take()
		tone, ok := msgs[2].(*wire.StartTone)
		require.True(t, ok)
		assert.Equal(t, wire.ToneAlerting, tone.Tone)
		assert.Equal(t, station.PromptRingOut, msgs[len(msgs)-1].(*wire.DisplayPromptStatus).Text)
	})
	t.Run("early media", func(t *testing.T) {
		f := newFixture(t, registry.DeviceConfig{EarlyRTP: registry.EarlyRTPRingOut})
		f.media.On("OpenReceive", mock.Anything, mock.Anything).Return(nil).Once()
		ch := f.channel(t, wire.CallTypeOutbound)
		require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateRingOut))
		for _, m := range f.out.take() {
			assert.NotEqual(t, wire.KindStartTone, m.Kind())
		}
		assert.True(t, ch.Get().ReceiveOpen)
	})
}

func TestBusyToneOnlyWithoutMedia(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeOutbound)
	ctx := context.Background()

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateBusy))
	id := ch.CallID()
	want := []wire.Message{
		&wire.StartTone{Tone: wire.ToneLineBusy, Line: 1, CallRef: id},
		&wire.DisplayPromptStatus{Text: station.PromptBusy, Line: 1, CallRef: id},
	}
	if diff := cmp.Diff(want, f.out.take(), cmpMessages); diff != "" {
		t.Errorf("busy mismatch (-want +got):\n%s", diff)
	}

	ch.Update(func(ci *registry.ChannelInfo) { ci.ReceiveOpen = true })
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateCongestion))
	want = []wire.Message{&wire.DisplayPromptStatus{Text: station.PromptTempFail, Line: 1, CallRef: id}}
	if diff := cmp.Diff(want, f.out.take(), cmpMessages); diff != "" {
		t.Errorf("congestion mismatch (-want +got):\n%s", diff)
	}
}

func TestDialingEchoesDigits(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeOutbound)
	ch.Update(func(ci *registry.ChannelInfo) { ci.Dialed = "20" })
	id := ch.CallID()

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateDialing))
	want := []wire.Message{
		&wire.StopTone{Line: 1, CallRef: id},
		&wire.DialedNumber{Number: "20", Line: 1, CallRef: id},
		&wire.SelectSoftKeys{Line: 1, CallRef: id, Set: wire.KeySetDigitsFoll, ValidKeyMask: station.AllKeys},
		&wire.ClearPromptStatus{Line: 1, CallRef: id},
	}
	if diff := cmp.Diff(want, f.out.take(), cmpMessages); diff != "" {
		t.Errorf("dialing mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidNumberClosesMedia(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	f.media.On("CloseReceive", mock.Anything, mock.Anything).Return(nil).Once()
	ch := f.channel(t, wire.CallTypeOutbound)
	ch.Update(func(ci *registry.ChannelInfo) {
		ci.ReceiveOpen = true
		ci.Transmit = true
	})

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateInvalidNumber))
	msgs := f.out.take()
	require.Len(t, msgs, 5)
	assert.Equal(t, wire.KindCloseReceiveChannel, msgs[0].Kind())
	assert.Equal(t, wire.KindStopMediaTransmission, msgs[1].Kind())
	assert.Equal(t, wire.ToneReorder, msgs[2].(*wire.StartTone).Tone)
	assert.Equal(t, station.PromptUnknownNumber, msgs[4].(*wire.DisplayPromptStatus).Text)
}

func TestSoftKeyMaskWithoutRedial(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	keys := station.NewSoftKeys(station.KeyOptions{})
	f.engine.softKeys = func(string) *station.SoftKeys { return keys }
	ch := f.channel(t, wire.CallTypeOutbound)

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateOnHook))
	for _, m := range f.out.take() {
		if sk, ok := m.(*wire.SelectSoftKeys); ok {
			assert.Equal(t, keys.Mask(wire.KeySetOnHook, false), sk.ValidKeyMask)
			assert.NotEqual(t, station.AllKeys, sk.ValidKeyMask)
		}
	}
}

func TestHintNotification(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	ch := f.channel(t, wire.CallTypeOutbound)
	ctx := context.Background()

	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateOffHook))
	ch.Update(func(ci *registry.ChannelInfo) { ci.Private = true })
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateDialing))
	require.NoError(t, f.engine.Indicate(ctx, ch, registry.StateOnHook))

	require.Len(t, f.hints.events, 3)
	assert.Equal(t, registry.StateOffHook, f.hints.events[0].State)
	assert.False(t, f.hints.events[0].Private)
	assert.True(t, f.hints.events[1].Private)
	assert.Equal(t, registry.StateOnHook, f.hints.events[2].State)
	assert.Equal(t, devID, f.hints.events[2].Device)
	assert.Equal(t, "100", f.hints.events[2].Line)
}

func TestDisconnectedDeviceStillTransitions(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	f.engine.lookup = func(string) Sender { return nil }
	ch := f.channel(t, wire.CallTypeOutbound)

	require.NoError(t, f.engine.Indicate(context.Background(), ch, registry.StateOffHook))
	assert.Equal(t, registry.StateOffHook, ch.State())
	assert.Empty(t, f.out.take())
}

func TestSendFailureIsReported(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	f.out.err = errors.New("broken pipe")
	ch := f.channel(t, wire.CallTypeOutbound)

	err := f.engine.Indicate(context.Background(), ch, registry.StateOffHook)
	require.Error(t, err)
	assert.Equal(t, registry.StateOffHook, ch.State())
}

func TestStartTransmit(t *testing.T) {
	f := newFixture(t, registry.DeviceConfig{})
	f.dev.Update(func(di *registry.DeviceInfo) {
		di.Capabilities = []wire.MediaCapability{{PayloadCapability: wire.PayloadG729}, {PayloadCapability: wire.PayloadG711Alaw}}
	})
	ch := f.channel(t, wire.CallTypeOutbound)
	remote := netip.MustParseAddrPort("192.0.2.10:16384")

	require.NoError(t, f.engine.StartTransmit(context.Background(), ch, remote))
	require.NoError(t, f.engine.StartTransmit(context.Background(), ch, remote))

	msgs := f.out.take()
	require.Len(t, msgs, 1)
	smt := msgs[0].(*wire.StartMediaTransmission)
	assert.Equal(t, remote.Addr(), smt.RemoteAddr)
	assert.Equal(t, uint32(16384), smt.RemotePort)
	assert.Equal(t, uint32(wire.PayloadG729), smt.PayloadType)
	assert.True(t, ch.Get().MediaReady)

	assert.Error(t, f.engine.StartTransmit(context.Background(), ch, netip.AddrPort{}))
}

func TestPayloadFor(t *testing.T) {
	assert.Equal(t, uint32(wire.PayloadG711Ulaw), PayloadFor(nil))
	assert.Equal(t, uint32(wire.PayloadG711Alaw), PayloadFor([]wire.MediaCapability{{PayloadCapability: 99}, {PayloadCapability: wire.PayloadG711Alaw}}))
}

func TestCallInfoPrivacy(t *testing.T) {
	info := registry.ChannelInfo{CallingName: "A", CallingNumber: "1", Private: true, Direction: wire.CallTypeInbound}
	m := CallInfo(info, 2, 9)
	assert.Equal(t, uint32(0xF), m.PartyPIRestrictionBits)
	assert.Equal(t, uint32(9), m.CallInstance)
	assert.Equal(t, uint32(2), m.Line)
}
