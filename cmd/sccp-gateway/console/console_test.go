package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/service"
)

type displayCall struct {
	device string
	text   string
}

type fakeGateway struct {
	snap     service.Snapshot
	restarts map[string]bool
	displays []displayCall
	err      error
}

func (f *fakeGateway) Snapshot() service.Snapshot { return f.snap }

func (f *fakeGateway) RestartDevice(_ context.Context, id string, reset bool) error {
	if f.err != nil {
		return f.err
	}
	if f.restarts == nil {
		f.restarts = make(map[string]bool)
	}
	f.restarts[id] = reset
	return nil
}

func (f *fakeGateway) DisplayMessage(_ context.Context, id, text string, _ time.Duration) error {
	f.displays = append(f.displays, displayCall{device: id, text: text})
	return f.err
}

type fakeFeatures struct{ flags feature.Flags }

func (f *fakeFeatures) Flags() feature.Flags      { return f.flags }
func (f *fakeFeatures) SetFlags(fl feature.Flags) { f.flags = fl }

func newTestConsole(gw *fakeGateway, fs FeatureSwitch) (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Console{out: &buf, gw: gw, features: fs}, &buf
}

func TestConsoleInspection(t *testing.T) {
	gw := &fakeGateway{snap: service.Snapshot{
		State: service.StateRunning,
		Registry: registry.Snapshot{
			Devices: []registry.DeviceSnapshot{{
				ID:    "SEP0000000000A1",
				Info:  registry.DeviceInfo{State: registry.Registered, SessionID: "s1"},
				Lines: []registry.Attachment{{Line: "100", Device: "SEP0000000000A1", Instance: 1}},
			}},
			Lines: []registry.LineSnapshot{{Name: "100", Label: "Alice", Limit: 2}},
		},
		Subscriptions: 3,
	}}
	c, out := newTestConsole(gw, nil)
	ctx := context.Background()

	t.Run("status", func(t *testing.T) {
		out.Reset()
		assert.True(t, c.Exec(ctx, "status"))
		assert.Contains(t, out.String(), "RUNNING")
		assert.Contains(t, out.String(), "1/1 registered")
		assert.Contains(t, out.String(), "Subscriptions: 3")
	})

	t.Run("devices", func(t *testing.T) {
		out.Reset()
		c.Exec(ctx, "devices")
		assert.Contains(t, out.String(), "SEP0000000000A1")
		assert.Contains(t, out.String(), "100")
	})

	t.Run("lines", func(t *testing.T) {
		out.Reset()
		c.Exec(ctx, "lines")
		assert.Contains(t, out.String(), "Alice")
		assert.Contains(t, out.String(), "0/2")
	})

	t.Run("no calls", func(t *testing.T) {
		out.Reset()
		c.Exec(ctx, "calls")
		assert.Contains(t, out.String(), "No active calls")
	})

	t.Run("unknown command", func(t *testing.T) {
		out.Reset()
		assert.True(t, c.Exec(ctx, "frobnicate"))
		assert.Contains(t, out.String(), "Unknown command")
	})

	t.Run("blank line", func(t *testing.T) {
		assert.True(t, c.Exec(ctx, "   "))
	})

	t.Run("quit", func(t *testing.T) {
		assert.False(t, c.Exec(ctx, "quit"))
	})
}

func TestConsoleStations(t *testing.T) {
	gw := &fakeGateway{}
	c, out := newTestConsole(gw, nil)
	ctx := context.Background()

	c.Exec(ctx, "restart SEP1")
	c.Exec(ctx, "reset SEP2")
	assert.Equal(t, map[string]bool{"SEP1": false, "SEP2": true}, gw.restarts)

	c.Exec(ctx, "display all hello there")
	c.Exec(ctx, "display SEP1 hi")
	c.Exec(ctx, "clear SEP1")
	require.Len(t, gw.displays, 3)
	assert.Equal(t, displayCall{device: "", text: "hello there"}, gw.displays[0])
	assert.Equal(t, displayCall{device: "SEP1", text: "hi"}, gw.displays[1])
	assert.Equal(t, displayCall{device: "SEP1", text: ""}, gw.displays[2])

	out.Reset()
	c.Exec(ctx, "restart")
	assert.Contains(t, out.String(), "Usage")

	gw.err = service.ErrDeviceNotFound
	out.Reset()
	c.Exec(ctx, "restart SEP9")
	assert.Contains(t, out.String(), "Error")
}

func TestConsoleFeatures(t *testing.T) {
	fs := &fakeFeatures{flags: feature.Flags{Park: true}}
	c, out := newTestConsole(&fakeGateway{}, fs)
	ctx := context.Background()

	c.Exec(ctx, "feature")
	assert.Contains(t, out.String(), "park")

	c.Exec(ctx, "feature park off")
	c.Exec(ctx, "feature DND on")
	assert.False(t, fs.flags.Park)
	assert.True(t, fs.flags.DND)

	out.Reset()
	c.Exec(ctx, "feature teleport on")
	assert.Contains(t, out.String(), "Unknown feature")

	out.Reset()
	c.Exec(ctx, "feature park maybe")
	assert.Contains(t, out.String(), "Usage")
}
