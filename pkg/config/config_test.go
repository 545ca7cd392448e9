package config

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

const sample = `
gateway:
  bind: "127.0.0.1:2000"
  keepalive: 30s
  framing: header-version
  acl:
    - {sense: deny, network: 0.0.0.0/0}
    - {sense: permit, network: 10.0.0.0/255.0.0.0}
  local_nets: [192.168.1.0/24]
features:
  park: false
  barge: false
lines:
  - name: "100"
    label: Alice
    cid_name: Alice
    cid_number: "100"
    voicemail: "8000"
  - name: "101"
    transfer: false
    incoming_limit: 2
devices:
  - id: SEP001122334455
    description: Desk
    lines:
      - {line: "100", instance: 1}
      - {line: "101", shared: true}
    speeddials:
      - {label: Bob, number: "101", hint: "101"}
    features:
      - {label: DND, kind: dnd}
    dnd: userdefined
    cfwd_busy: false
    early_rtp: ringout
    acl:
      - {sense: permit, network: 10.1.0.0/16}
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:2000", c.Gateway.Bind)
	assert.Equal(t, 30*time.Second, c.Gateway.KeepAlive)
	assert.Equal(t, "D/M/Y", c.Gateway.DateFormat)
	want := feature.DefaultFlags()
	want.Park, want.Barge = false, false
	assert.Equal(t, want, c.Features, "unlisted features stay enabled")

	codec, err := c.Codec()
	require.NoError(t, err)
	assert.Equal(t, wire.FramingHeaderVersion, codec.Framing)
	assert.Equal(t, wire.DefaultMaxMessageSize, codec.MaxMessageSize)

	assert.False(t, c.ACL().Allow(netip.MustParseAddr("192.168.1.5")))
	assert.True(t, c.ACL().Allow(netip.MustParseAddr("10.9.9.9")))
	assert.Equal(t, []netip.Prefix{netip.MustParsePrefix("192.168.1.0/24")}, c.LocalNets())
}

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("lines: []\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBind, c.Gateway.Bind)
	assert.Equal(t, 60*time.Second, c.Gateway.KeepAlive)
	assert.Equal(t, 10*time.Second, c.Gateway.RestartInterval)
	assert.Equal(t, 15*time.Second, c.DialTimer().FirstDigit)
	assert.Equal(t, 5*time.Second, c.DialTimer().InterDigit)
	assert.Equal(t, DefaultStopGrace, c.Gateway.StopGrace)
	assert.Equal(t, feature.DefaultFlags(), c.Features)
	assert.True(t, c.ACL().Empty())

	assert.Equal(t, Default().Gateway, c.Gateway)
}

func TestPopulate(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	reg := registry.New()
	require.NoError(t, c.Populate(reg))

	l100, ok := reg.Line("100")
	require.True(t, ok)
	assert.True(t, l100.Config().Transfer, "line transfer defaults to on")
	assert.Equal(t, "8000", l100.Config().Voicemail)

	l101, ok := reg.Line("101")
	require.True(t, ok)
	assert.False(t, l101.Config().Transfer)
	assert.Equal(t, 2, l101.Config().Limit())

	dev, ok := reg.Device("SEP001122334455")
	require.True(t, ok)
	cfg := dev.Config()
	assert.Equal(t, []registry.LineButton{{Line: "100", Instance: 1}, {Line: "101", Shared: true}}, cfg.Lines)
	assert.Equal(t, registry.DNDUserDefined, cfg.DND)
	assert.True(t, cfg.Transfer)
	assert.True(t, cfg.CFwdAll)
	assert.False(t, cfg.CFwdBusy)
	assert.Equal(t, registry.EarlyRTPRingOut, cfg.EarlyRTP)
	assert.Equal(t, "101", cfg.SpeedDials[0].Hint)
	assert.Equal(t, "dnd", cfg.Features[0].Kind)
	require.NotNil(t, cfg.ACL)
	assert.True(t, cfg.ACL.Allow(netip.MustParseAddr("10.1.2.3")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "gateway: [\n"},
		{"unknown framing", "gateway: {framing: tcp}\n"},
		{"protocol too high", "gateway: {max_protocol: 40}\n"},
		{"bad acl", "gateway: {acl: [{sense: permit, network: nowhere}]}\n"},
		{"bad local net", "gateway: {local_nets: [10.0.0.0]}\n"},
		{"unnamed line", "lines: [{label: x}]\n"},
		{"duplicate line", "lines: [{name: a}, {name: a}]\n"},
		{"device without id", "devices: [{description: x}]\n"},
		{"duplicate device", "devices: [{id: SEPA}, {id: SEPA}]\n"},
		{"unknown line", "devices: [{id: SEPA, lines: [{line: missing}]}]\n"},
		{"instance claimed twice", "lines: [{name: a}, {name: b}]\ndevices: [{id: SEPA, lines: [{line: a, instance: 1}, {line: b, instance: 1}]}]\n"},
		{"bad dnd", "devices: [{id: SEPA, dnd: sometimes}]\n"},
		{"bad early rtp", "devices: [{id: SEPA, early_rtp: always}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			var le *LoadError
			assert.True(t, errors.As(err, &le), "err = %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
		c, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, c.Devices, 1)
	})

	t.Run("missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "none.yaml")
		_, err := Load(path)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("invalid content names file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("lines: [{label: x}]\n"), 0644))
		_, err := Load(path)
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, path, le.File)
		assert.Contains(t, err.Error(), "line name is required")
	})
}
