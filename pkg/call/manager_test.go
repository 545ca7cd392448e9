package call

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/dialtimer"
	"github.com/sccp-protocol/sccp-go/pkg/indicate"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/pbx/mocks"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

const (
	alice = "SEP00000000000A"
	bob   = "SEP00000000000B"
)

type sink struct {
	msgs map[string][]wire.Message
}

func (s *sink) sender(id string) indicate.Sender {
	return senderFunc(func(msgs ...wire.Message) error {
		s.msgs[id] = append(s.msgs[id], msgs...)
		return nil
	})
}

type senderFunc func(msgs ...wire.Message) error

func (f senderFunc) SendAll(msgs ...wire.Message) error { return f(msgs...) }

type fixture struct {
	reg    *registry.Registry
	router *mocks.Router
	timers *dialtimer.Manager
	calls  *Manager
	out    *sink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := registry.New()
	for _, l := range []registry.LineConfig{
		{Name: "100", Label: "Alice", IncomingLimit: 2},
		{Name: "200", Label: "Bob"},
	} {
		_, err := reg.AddLine(l)
		require.NoError(t, err)
	}
	for id, line := range map[string]string{alice: "100", bob: "200"} {
		dev, err := reg.AddDevice(registry.DeviceConfig{ID: id, Transfer: true})
		require.NoError(t, err)
		_, err = reg.AttachLine(id, line, 1, false)
		require.NoError(t, err)
		dev.Update(func(di *registry.DeviceInfo) { di.State = registry.Registered })
	}

	f := &fixture{
		reg:    reg,
		router: mocks.NewRouter(t),
		timers: dialtimer.NewManager(dialtimer.Config{}),
		out:    &sink{msgs: make(map[string][]wire.Message)},
	}
	t.Cleanup(f.timers.Stop)
	engine := indicate.New(indicate.Config{Registry: reg, Lookup: f.out.sender})
	f.calls = NewManager(Config{Registry: reg, Engine: engine, Router: f.router, Timers: f.timers})
	return f
}

func (f *fixture) device(t *testing.T, id string) *registry.Device {
	t.Helper()
	dev, ok := f.reg.Device(id)
	require.True(t, ok)
	return dev
}

// connected puts a new outbound call of alice into the connected state.
func (f *fixture) connected(t *testing.T, ctx context.Context) *registry.Channel {
	t.Helper()
	ch, err := f.calls.NewCall(ctx, alice, "100", "200")
	require.NoError(t, err)
	require.NoError(t, f.calls.Progress(ctx, ch, registry.StateConnected))
	return ch
}

func TestNewCallCollectsDigits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil).Once()

	ch, err := f.calls.NewCall(ctx, alice, "100", "")
	require.NoError(t, err)

	assert.Equal(t, registry.StateOffHook, ch.State())
	assert.Equal(t, ch.CallID(), f.device(t, alice).ActiveChannel())
	assert.Equal(t, "100", ch.Get().CallingNumber)
	assert.Equal(t, "Alice", ch.Get().CallingName)
	require.NotNil(t, f.timers.Get(ch.CallID()))
	assert.Equal(t, dialtimer.DefaultFirstDigit, f.timers.Get(ch.CallID()).Duration)

	require.NoError(t, f.calls.Digit(ctx, ch, '2'))
	assert.Equal(t, registry.StateDialing, ch.State())
	assert.Equal(t, dialtimer.DefaultInterDigit, f.timers.Get(ch.CallID()).Duration)
}

func TestPoundDialsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "20").Return(nil).Once()

	ch, err := f.calls.NewCall(ctx, alice, "100", "")
	require.NoError(t, err)
	for _, d := range []byte("20#") {
		require.NoError(t, f.calls.Digit(ctx, ch, d))
	}

	info := ch.Get()
	assert.True(t, info.Routed)
	assert.Equal(t, "20", info.CalledNumber)
	assert.Nil(t, f.timers.Get(ch.CallID()))
	assert.Equal(t, "20", f.device(t, alice).Get().LastNumber)
	assert.ErrorIs(t, f.calls.Digit(ctx, ch, '5'), ErrInvalidState)
}

func TestDialFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want registry.ChannelState
	}{
		{"unknown number", pbx.ErrNotFound, registry.StateInvalidNumber},
		{"busy", pbx.ErrBusy, registry.StateBusy},
		{"other", errors.New("trunk down"), registry.StateCongestion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
			f.router.On("Dial", mock.Anything, mock.Anything, "999").Return(tt.err)

			ch, err := f.calls.NewCall(context.Background(), alice, "100", "999")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ch.State())
		})
	}
}

func TestDialCollectedWithoutDigits(t *testing.T) {
	f := newFixture(t)
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	ch, err := f.calls.NewCall(context.Background(), alice, "100", "")
	require.NoError(t, err)

	require.NoError(t, f.calls.DialCollected(context.Background(), ch))
	assert.Equal(t, registry.StateInvalidNumber, ch.State())
}

func TestNewCallHoldsActiveCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	first := f.connected(t, ctx)
	second, err := f.calls.NewCall(ctx, alice, "100", "")
	require.NoError(t, err)

	assert.Equal(t, registry.StateHold, first.State())
	assert.Equal(t, second.CallID(), f.device(t, alice).ActiveChannel())
}

func TestNewCallAbortsWhenHoldFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil).Once()
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	first, err := f.calls.NewCall(ctx, alice, "100", "200")
	require.NoError(t, err)
	require.NoError(t, f.calls.Progress(ctx, first, registry.StateRingOut))

	_, err = f.calls.NewCall(ctx, alice, "100", "")
	assert.ErrorIs(t, err, ErrHoldFailed)
	assert.Equal(t, registry.StateRingOut, first.State())
	assert.Equal(t, 1, f.reg.ChannelCount("100"))
}

func TestNewCallAbortsOverOffHook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil).Once()

	first, err := f.calls.NewCall(ctx, alice, "100", "")
	require.NoError(t, err)

	_, err = f.calls.NewCall(ctx, alice, "100", "")
	assert.ErrorIs(t, err, ErrHoldFailed)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, stillThere := f.reg.Channel(first.CallID())
	assert.True(t, stillThere)
	assert.Equal(t, registry.StateOffHook, first.State())
	assert.Equal(t, first.CallID(), f.device(t, alice).ActiveChannel())
	assert.Equal(t, 1, f.reg.ChannelCount("100"))
	f.router.AssertNotCalled(t, "Hangup", mock.Anything, mock.Anything)
}

func TestNewCallAllocateFailure(t *testing.T) {
	f := newFixture(t)
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(errors.New("no resources"))

	_, err := f.calls.NewCall(context.Background(), alice, "100", "")
	require.Error(t, err)
	assert.Zero(t, f.reg.ChannelCount("100"))

	var tone *wire.StartTone
	var prompt *wire.DisplayPromptStatus
	for _, m := range f.out.msgs[alice] {
		switch m := m.(type) {
		case *wire.StartTone:
			tone = m
		case *wire.DisplayPromptStatus:
			prompt = m
		}
	}
	require.NotNil(t, tone)
	assert.Equal(t, wire.ToneReorder, tone.Tone)
	require.NotNil(t, prompt)
	assert.Equal(t, station.PromptTempFail, prompt.Text)
}

func TestNewCallUnregistered(t *testing.T) {
	f := newFixture(t)
	f.device(t, bob).Update(func(di *registry.DeviceInfo) { di.State = registry.Unregistered })

	_, err := f.calls.NewCall(context.Background(), bob, "200", "")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestIncoming(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ch, err := f.calls.Incoming(ctx, "200", pbx.IncomingCall{CallingName: "Alice", CallingNumber: "100"})
	require.NoError(t, err)
	assert.Equal(t, bob, ch.Device())
	assert.Equal(t, registry.StateRingIn, ch.State())
	assert.Equal(t, "200", ch.Get().CalledNumber)
	assert.Equal(t, wire.CallTypeInbound, ch.Get().Direction)

	f.router.On("Answer", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, f.calls.Answer(ctx, ch))
	assert.Equal(t, registry.StateConnected, ch.State())
	assert.Equal(t, ch.CallID(), f.device(t, bob).ActiveChannel())

	waiting, err := f.calls.Incoming(ctx, "200", pbx.IncomingCall{CallingNumber: "300"})
	require.NoError(t, err)
	assert.Equal(t, registry.StateCallWaiting, waiting.State())
}

func TestIncomingBusy(t *testing.T) {
	t.Run("dnd reject", func(t *testing.T) {
		f := newFixture(t)
		f.device(t, bob).Update(func(di *registry.DeviceInfo) { di.DND = registry.DNDReject })
		_, err := f.calls.Incoming(context.Background(), "200", pbx.IncomingCall{})
		assert.ErrorIs(t, err, pbx.ErrBusy)
	})
	t.Run("line limit", func(t *testing.T) {
		f := newFixture(t)
		for range 2 {
			_, err := f.calls.Incoming(context.Background(), "100", pbx.IncomingCall{})
			require.NoError(t, err)
		}
		_, err := f.calls.Incoming(context.Background(), "100", pbx.IncomingCall{})
		assert.ErrorIs(t, err, pbx.ErrBusy)
		assert.ErrorIs(t, err, registry.ErrLineLimit)
	})
	t.Run("unknown line", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.calls.Incoming(context.Background(), "999", pbx.IncomingCall{})
		assert.ErrorIs(t, err, pbx.ErrNotFound)
	})
}

func TestHoldResume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	ch := f.connected(t, ctx)
	require.NoError(t, f.calls.Hold(ctx, ch))
	assert.Equal(t, registry.StateHold, ch.State())
	assert.Zero(t, f.device(t, alice).ActiveChannel())
	assert.ErrorIs(t, f.calls.Hold(ctx, ch), ErrInvalidState)

	require.NoError(t, f.calls.Resume(ctx, ch))
	assert.Equal(t, registry.StateConnected, ch.State())
	assert.ErrorIs(t, f.calls.Resume(ctx, ch), ErrInvalidState)
}

func TestHangup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)
	f.router.On("Hangup", mock.Anything, mock.Anything).Return(nil).Once()

	ch := f.connected(t, ctx)
	f.calls.Hangup(ctx, ch)

	_, ok := f.reg.Channel(ch.CallID())
	assert.False(t, ok)
	assert.Equal(t, registry.StateDown, ch.State())
	assert.Zero(t, f.device(t, alice).ActiveChannel())
}

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	ch := f.connected(t, ctx)
	target, err := f.calls.Transfer(ctx, ch)
	require.NoError(t, err)

	assert.Equal(t, registry.StateCallTransfer, ch.State())
	assert.Equal(t, registry.StateOffHook, target.State())
	assert.Equal(t, ch.CallID(), f.device(t, alice).Get().TransferSource)
	assert.Equal(t, ch.CallID(), target.Get().Peer)

	f.router.On("Transfer", mock.Anything, Ref(ch), Ref(target)).Return(nil).Once()
	done, err := f.calls.Transfer(ctx, target)
	require.NoError(t, err)
	assert.Nil(t, done)
	assert.Zero(t, f.reg.ChannelCount("100"))
	assert.Zero(t, f.device(t, alice).Get().TransferSource)
}

func TestDirectTransferNeedsTwoSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	a := f.connected(t, ctx)
	selected, err := f.calls.Select(a)
	require.NoError(t, err)
	assert.True(t, selected)
	assert.ErrorIs(t, f.calls.DirectTransfer(ctx, alice), ErrTransferTarget)

	b := f.connected(t, ctx)
	_, err = f.calls.Select(b)
	require.NoError(t, err)

	f.router.On("Transfer", mock.Anything, Ref(a), Ref(b)).Return(nil).Once()
	require.NoError(t, f.calls.DirectTransfer(ctx, alice))
	assert.Empty(t, f.device(t, alice).Get().Selected)

	var stat *wire.CallSelectStat
	for _, m := range f.out.msgs[alice] {
		if s, ok := m.(*wire.CallSelectStat); ok && s.CallRef == a.CallID() {
			stat = s
		}
	}
	require.NotNil(t, stat)
	assert.Equal(t, uint32(1), stat.Status)
}

func TestSelectToggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)

	ch := f.connected(t, ctx)
	on, _ := f.calls.Select(ch)
	off, _ := f.calls.Select(ch)
	assert.True(t, on)
	assert.False(t, off)
	assert.Empty(t, f.device(t, alice).Get().Selected)
}

func TestParkAndRedirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Dial", mock.Anything, mock.Anything, "200").Return(nil)
	f.router.On("Park", mock.Anything, mock.Anything).Return(nil).Once()
	f.router.On("Redirect", mock.Anything, mock.Anything, "8000").Return(nil).Once()

	ch := f.connected(t, ctx)
	require.NoError(t, f.calls.Park(ctx, ch))
	_, ok := f.reg.Channel(ch.CallID())
	assert.False(t, ok)

	ringing, err := f.calls.Incoming(ctx, "200", pbx.IncomingCall{CallingNumber: "100"})
	require.NoError(t, err)
	require.NoError(t, f.calls.Redirect(ctx, ringing, "8000"))
	assert.Zero(t, f.reg.ChannelCount("200"))
}

func TestPickupFailureHangsUp(t *testing.T) {
	f := newFixture(t)
	f.router.On("Allocate", mock.Anything, mock.Anything).Return(nil)
	f.router.On("Pickup", mock.Anything, mock.Anything, "sales").Return(pbx.ErrNotFound).Once()
	f.router.On("Hangup", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.calls.Pickup(context.Background(), alice, "100", "sales")
	assert.ErrorIs(t, err, pbx.ErrNotFound)
	assert.Zero(t, f.reg.ChannelCount("100"))
}
