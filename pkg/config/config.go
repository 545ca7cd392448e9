// Package config loads the gateway configuration file.
//
// The file is YAML with four sections:
//
//	gateway:   listener, keepalive, access lists, storage and observability
//	features:  runtime feature switches
//	lines:     line records
//	devices:   device records and their line attachments
package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sccp-protocol/sccp-go/pkg/acl"
	"github.com/sccp-protocol/sccp-go/pkg/dialtimer"
	"github.com/sccp-protocol/sccp-go/pkg/feature"
	"github.com/sccp-protocol/sccp-go/pkg/registration"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/version"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Defaults.
const (
	DefaultBind      = ":2000"
	DefaultMDNSName  = "sccp-gateway"
	DefaultStopGrace = 5 * time.Second
)

// Config is the whole configuration file.
type Config struct {
	Gateway  Gateway       `yaml:"gateway"`
	Features feature.Flags `yaml:"features"`
	Lines    []Line        `yaml:"lines"`
	Devices  []Device      `yaml:"devices"`
}

// Gateway holds the global settings.
type Gateway struct {
	Bind               string        `yaml:"bind"`
	KeepAlive          time.Duration `yaml:"keepalive"`
	SecondaryKeepAlive time.Duration `yaml:"secondary_keepalive"`
	DateFormat         string        `yaml:"date_format"`
	MaxProtocol        uint8         `yaml:"max_protocol"`
	MaxMessageSize     int           `yaml:"max_message_size"`

	// Framing is "plain" or "header-version".
	Framing string `yaml:"framing"`

	ACL       []acl.Entry `yaml:"acl"`
	LocalNets []string    `yaml:"local_nets"`

	RestartInterval time.Duration `yaml:"restart_interval"`
	FirstDigit      time.Duration `yaml:"first_digit_timeout"`
	InterDigit      time.Duration `yaml:"inter_digit_timeout"`
	StopGrace       time.Duration `yaml:"stop_grace"`

	SettingsFile string `yaml:"settings_file"`
	TraceFile    string `yaml:"trace_file"`
	MetricsAddr  string `yaml:"metrics_addr"`

	// TraceSkipKeepAlives leaves KeepAlive traffic out of the trace file.
	TraceSkipKeepAlives bool `yaml:"trace_skip_keepalives"`

	// MDNS advertises the listener as _sccp._tcp when set.
	MDNS     bool   `yaml:"mdns"`
	MDNSName string `yaml:"mdns_name"`
}

// Line is a line record.
type Line struct {
	Name          string `yaml:"name"`
	Label         string `yaml:"label"`
	Description   string `yaml:"description"`
	CIDName       string `yaml:"cid_name"`
	CIDNumber     string `yaml:"cid_number"`
	Voicemail     string `yaml:"voicemail"`
	TransferToVM  string `yaml:"transfer_to_vm"`
	IncomingLimit int    `yaml:"incoming_limit"`
	PickupGroup   string `yaml:"pickup_group"`

	// Transfer defaults to true.
	Transfer *bool `yaml:"transfer"`
}

// Device is a device record.
type Device struct {
	ID           string `yaml:"id"`
	Description  string `yaml:"description"`
	ImageVersion string `yaml:"image_version"`

	Lines       []DeviceLine             `yaml:"lines"`
	SpeedDials  []registry.SpeedDial     `yaml:"speeddials"`
	ServiceURLs []registry.ServiceURL    `yaml:"service_urls"`
	Features    []registry.FeatureButton `yaml:"features"`

	Profile string   `yaml:"profile"`
	AddOns  []string `yaml:"addons"`

	ACL         []acl.Entry `yaml:"acl"`
	PermitHosts []string    `yaml:"permit_hosts"`

	KeepAlive time.Duration `yaml:"keepalive"`

	// DND is off, reject, silent or userdefined.
	DND       string `yaml:"dnd"`
	DNDActive bool   `yaml:"dnd_active"`

	Transfer  *bool `yaml:"transfer"`
	Park      bool  `yaml:"park"`
	Private   bool  `yaml:"private"`
	CFwdAll   *bool `yaml:"cfwd_all"`
	CFwdBusy  *bool `yaml:"cfwd_busy"`
	MWIOnCall bool  `yaml:"mwi_on_call"`

	// EarlyRTP is none, dialing, ringout or progress.
	EarlyRTP string `yaml:"early_rtp"`

	PickupGroup  string `yaml:"pickup_group"`
	TrustPhoneIP bool   `yaml:"trust_phone_ip"`
	DTMFMode     string `yaml:"dtmf_mode"`
}

// DeviceLine attaches a line to a device.
type DeviceLine struct {
	Line     string `yaml:"line"`
	Instance uint8  `yaml:"instance"`
	Shared   bool   `yaml:"shared"`
}

// Default returns a configuration with every default applied and no lines
// or devices.
func Default() *Config {
	c := &Config{Features: feature.DefaultFlags()}
	c.applyDefaults()
	return c
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	c, err := Parse(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return c, nil
}

// Parse decodes and validates a configuration. Missing values take their
// defaults; features not listed stay enabled.
func Parse(data []byte) (*Config, error) {
	c := &Config{Features: feature.DefaultFlags()}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	g := &c.Gateway
	if g.Bind == "" {
		g.Bind = DefaultBind
	}
	if g.KeepAlive == 0 {
		g.KeepAlive = registration.DefaultKeepAlive
	}
	if g.DateFormat == "" {
		g.DateFormat = registration.DefaultDateTemplate
	}
	if g.MaxMessageSize == 0 {
		g.MaxMessageSize = wire.DefaultMaxMessageSize
	}
	if g.RestartInterval == 0 {
		g.RestartInterval = registration.DefaultRestartInterval
	}
	if g.FirstDigit == 0 {
		g.FirstDigit = dialtimer.DefaultFirstDigit
	}
	if g.InterDigit == 0 {
		g.InterDigit = dialtimer.DefaultInterDigit
	}
	if g.StopGrace == 0 {
		g.StopGrace = DefaultStopGrace
	}
	if g.MDNSName == "" {
		g.MDNSName = DefaultMDNSName
	}
}

// Validate checks references and value ranges.
func (c *Config) Validate() error {
	if _, err := c.Codec(); err != nil {
		return err
	}
	if c.Gateway.MaxProtocol > uint8(version.ServerMax) {
		return &LoadError{Message: fmt.Sprintf("max_protocol %d above %d", c.Gateway.MaxProtocol, version.ServerMax)}
	}
	if _, err := acl.Parse(c.Gateway.ACL); err != nil {
		return &LoadError{Message: "gateway acl", Cause: err}
	}
	if _, err := c.localNets(); err != nil {
		return err
	}

	lines := make(map[string]bool, len(c.Lines))
	for _, l := range c.Lines {
		if l.Name == "" {
			return &LoadError{Message: "line name is required"}
		}
		if lines[l.Name] {
			return &LoadError{Message: fmt.Sprintf("duplicate line %q", l.Name)}
		}
		lines[l.Name] = true
	}

	devices := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			return &LoadError{Message: "device id is required"}
		}
		if devices[d.ID] {
			return &LoadError{Message: fmt.Sprintf("duplicate device %q", d.ID)}
		}
		devices[d.ID] = true
		claimed := make(map[uint8]string, len(d.Lines))
		for _, dl := range d.Lines {
			if !lines[dl.Line] {
				return &LoadError{Message: fmt.Sprintf("device %s: unknown line %q", d.ID, dl.Line)}
			}
			if dl.Instance == 0 {
				continue
			}
			if other, ok := claimed[dl.Instance]; ok {
				return &LoadError{Message: fmt.Sprintf("device %s: lines %q and %q both claim instance %d",
					d.ID, other, dl.Line, dl.Instance)}
			}
			claimed[dl.Instance] = dl.Line
		}
		if _, err := d.record(); err != nil {
			return &LoadError{Message: "device " + d.ID, Cause: err}
		}
	}
	return nil
}

// Codec returns the wire codec for the listener.
func (c *Config) Codec() (wire.Codec, error) {
	codec := wire.Codec{MaxMessageSize: c.Gateway.MaxMessageSize}
	switch c.Gateway.Framing {
	case "", "plain":
		codec.Framing = wire.FramingPlain
	case "header-version":
		codec.Framing = wire.FramingHeaderVersion
	default:
		return codec, &LoadError{Message: fmt.Sprintf("unknown framing %q", c.Gateway.Framing)}
	}
	if codec.MaxMessageSize < 0 {
		return codec, &LoadError{Message: "max_message_size must be positive"}
	}
	return codec, nil
}

// ACL returns the parsed global access list.
func (c *Config) ACL() *acl.List {
	l, _ := acl.Parse(c.Gateway.ACL)
	return l
}

// LocalNets returns the parsed local networks.
func (c *Config) LocalNets() []netip.Prefix {
	nets, _ := c.localNets()
	return nets
}

func (c *Config) localNets() ([]netip.Prefix, error) {
	nets := make([]netip.Prefix, 0, len(c.Gateway.LocalNets))
	for _, s := range c.Gateway.LocalNets {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, &LoadError{Message: "local_nets", Cause: err}
		}
		nets = append(nets, p.Masked())
	}
	return nets, nil
}

// DialTimer returns the digit timeouts.
func (c *Config) DialTimer() dialtimer.Config {
	return dialtimer.Config{FirstDigit: c.Gateway.FirstDigit, InterDigit: c.Gateway.InterDigit}
}

// Populate adds the configured lines and devices to reg. Lines are added
// first so device attachments resolve.
func (c *Config) Populate(reg *registry.Registry) error {
	for _, l := range c.Lines {
		if _, err := reg.AddLine(l.record()); err != nil {
			return fmt.Errorf("line %s: %w", l.Name, err)
		}
	}
	for _, d := range c.Devices {
		rec, err := d.record()
		if err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
		if _, err := reg.AddDevice(rec); err != nil {
			return fmt.Errorf("device %s: %w", d.ID, err)
		}
	}
	return nil
}

func (l Line) record() registry.LineConfig {
	return registry.LineConfig{
		Name:          l.Name,
		Label:         l.Label,
		Description:   l.Description,
		CIDName:       l.CIDName,
		CIDNumber:     l.CIDNumber,
		Voicemail:     l.Voicemail,
		TransferToVM:  l.TransferToVM,
		IncomingLimit: l.IncomingLimit,
		Transfer:      boolOr(l.Transfer, true),
		PickupGroup:   l.PickupGroup,
	}
}

func (d Device) record() (registry.DeviceConfig, error) {
	dnd, err := registry.ParseDNDMode(d.DND)
	if err != nil {
		return registry.DeviceConfig{}, err
	}
	early, err := parseEarlyRTP(d.EarlyRTP)
	if err != nil {
		return registry.DeviceConfig{}, err
	}
	var rules *acl.List
	if len(d.ACL) > 0 {
		if rules, err = acl.Parse(d.ACL); err != nil {
			return registry.DeviceConfig{}, err
		}
	}

	lines := make([]registry.LineButton, 0, len(d.Lines))
	for _, dl := range d.Lines {
		lines = append(lines, registry.LineButton{Line: dl.Line, Instance: dl.Instance, Shared: dl.Shared})
	}
	return registry.DeviceConfig{
		ID:           d.ID,
		Description:  d.Description,
		ImageVersion: d.ImageVersion,
		Lines:        lines,
		SpeedDials:   d.SpeedDials,
		ServiceURLs:  d.ServiceURLs,
		Features:     d.Features,
		Profile:      d.Profile,
		AddOns:       d.AddOns,
		ACL:          rules,
		PermitHosts:  d.PermitHosts,
		KeepAlive:    d.KeepAlive,
		DND:          dnd,
		DNDActive:    d.DNDActive,
		Transfer:     boolOr(d.Transfer, true),
		Park:         d.Park,
		Private:      d.Private,
		CFwdAll:      boolOr(d.CFwdAll, true),
		CFwdBusy:     boolOr(d.CFwdBusy, true),
		MWIOnCall:    d.MWIOnCall,
		EarlyRTP:     early,
		PickupGroup:  d.PickupGroup,
		TrustPhoneIP: d.TrustPhoneIP,
		DTMFMode:     d.DTMFMode,
	}, nil
}

func parseEarlyRTP(s string) (registry.EarlyRTP, error) {
	switch s {
	case "", "none":
		return registry.EarlyRTPNone, nil
	case "dialing":
		return registry.EarlyRTPDialing, nil
	case "ringout":
		return registry.EarlyRTPRingOut, nil
	case "progress":
		return registry.EarlyRTPProgress, nil
	default:
		return registry.EarlyRTPNone, fmt.Errorf("invalid early_rtp %q", s)
	}
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
