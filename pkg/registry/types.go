package registry

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/acl"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// RegistrationState is the registration state of a device.
type RegistrationState uint8

const (
	Unregistered RegistrationState = iota
	Pending
	Registered
	Rejected
)

// String returns the state name as used by the registration state machine.
func (s RegistrationState) String() string {
	switch s {
	case Unregistered:
		return "unregistered"
	case Pending:
		return "pending"
	case Registered:
		return "registered"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ChannelState is the indicate state of a call leg. Values shared with the
// station call states use the same numbers.
type ChannelState uint8

const (
	StateDown          ChannelState = 0
	StateOffHook       ChannelState = 1
	StateOnHook        ChannelState = 2
	StateRingOut       ChannelState = 3
	StateRingIn        ChannelState = 4
	StateConnected     ChannelState = 5
	StateBusy          ChannelState = 6
	StateCongestion    ChannelState = 7
	StateHold          ChannelState = 8
	StateCallWaiting   ChannelState = 9
	StateCallTransfer  ChannelState = 10
	StateCallPark      ChannelState = 11
	StateProceed       ChannelState = 12
	StateInvalidNumber ChannelState = 14
	StateDialing       ChannelState = 20
)

var channelStateNames = map[ChannelState]string{
	StateDown:          "Down",
	StateOffHook:       "OffHook",
	StateOnHook:        "OnHook",
	StateRingOut:       "RingOut",
	StateRingIn:        "RingIn",
	StateConnected:     "Connected",
	StateBusy:          "Busy",
	StateCongestion:    "Congestion",
	StateHold:          "Hold",
	StateCallWaiting:   "CallWaiting",
	StateCallTransfer:  "CallTransfer",
	StateCallPark:      "CallPark",
	StateProceed:       "Proceed",
	StateInvalidNumber: "InvalidNumber",
	StateDialing:       "Dialing",
}

// String returns the state name.
func (s ChannelState) String() string {
	if n, ok := channelStateNames[s]; ok {
		return n
	}
	return "Unknown"
}

// Live reports whether the channel still carries a call.
func (s ChannelState) Live() bool {
	return s != StateDown && s != StateOnHook
}

// DNDMode is a do-not-disturb setting.
type DNDMode uint8

const (
	DNDOff DNDMode = iota
	DNDReject
	DNDSilent
	// DNDUserDefined lets the station cycle between the other modes.
	DNDUserDefined
)

// String returns the mode name.
func (m DNDMode) String() string {
	switch m {
	case DNDOff:
		return "off"
	case DNDReject:
		return "reject"
	case DNDSilent:
		return "silent"
	case DNDUserDefined:
		return "userdefined"
	default:
		return "unknown"
	}
}

// ParseDNDMode parses a mode name as returned by DNDMode.String. "on" is
// accepted for reject.
func ParseDNDMode(s string) (DNDMode, error) {
	switch s {
	case "", "off":
		return DNDOff, nil
	case "reject", "on":
		return DNDReject, nil
	case "silent":
		return DNDSilent, nil
	case "userdefined":
		return DNDUserDefined, nil
	default:
		return DNDOff, fmt.Errorf("invalid dnd mode %q", s)
	}
}

// EarlyRTP selects the state in which the receive path opens before answer.
type EarlyRTP uint8

const (
	EarlyRTPNone EarlyRTP = iota
	EarlyRTPDialing
	EarlyRTPRingOut
	EarlyRTPProgress
)

// AutoAnswer is the auto-answer policy of an inbound channel.
type AutoAnswer uint8

const (
	AutoAnswerNone AutoAnswer = iota
	AutoAnswerSpeaker
	AutoAnswerMute
)

// ForwardMode selects a call-forward condition.
type ForwardMode uint8

const (
	ForwardNone ForwardMode = iota
	ForwardAll
	ForwardBusy
)

// ButtonKind classifies a slot of a device's button layout.
type ButtonKind uint8

const (
	ButtonEmpty ButtonKind = iota
	ButtonLine
	ButtonSpeedDial
	ButtonServiceURL
	ButtonFeature
)

// String returns the button kind name.
func (k ButtonKind) String() string {
	switch k {
	case ButtonLine:
		return "line"
	case ButtonSpeedDial:
		return "speeddial"
	case ButtonServiceURL:
		return "service"
	case ButtonFeature:
		return "feature"
	default:
		return "empty"
	}
}

// Button is one slot of a device's layout after template resolution.
type Button struct {
	Kind     ButtonKind
	Instance uint8
	Type     wire.ButtonType

	// Line is set for line buttons.
	Line string

	// Index into the device's speed dials, service URLs or features.
	Index int
}

// SpeedDial is a configured speed dial button.
type SpeedDial struct {
	Label  string `yaml:"label"`
	Number string `yaml:"number"`

	// Hint watches the named line for busy lamp display.
	Hint string `yaml:"hint,omitempty"`
}

// ServiceURL is a configured service button.
type ServiceURL struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// FeatureButton is a configured feature button.
type FeatureButton struct {
	Label  string `yaml:"label"`
	Kind   string `yaml:"kind"`
	Option string `yaml:"option,omitempty"`
}

// LineButton attaches a line to a device.
type LineButton struct {
	Line string

	// Instance requests a specific button instance (0 = next free).
	Instance uint8

	// Shared allows the line to be attached to other devices as well.
	Shared bool
}

// DeviceConfig is the static configuration record of a device.
type DeviceConfig struct {
	ID           string
	Description  string
	ImageVersion string

	Lines       []LineButton
	SpeedDials  []SpeedDial
	ServiceURLs []ServiceURL
	Features    []FeatureButton

	// Profile overrides the template chosen by device type.
	Profile string
	AddOns  []string

	ACL         *acl.List
	PermitHosts []string

	KeepAlive time.Duration

	DND       DNDMode
	DNDActive bool
	Transfer  bool
	Park      bool
	Private   bool
	CFwdAll   bool
	CFwdBusy  bool
	MWIOnCall bool
	EarlyRTP  EarlyRTP

	PickupGroup  string
	TrustPhoneIP bool
	DTMFMode     string
}

// DeviceInfo is the mutable state of a device.
type DeviceInfo struct {
	State      RegistrationState
	SessionID  string
	IP         netip.Addr
	DeviceType uint32

	ProtocolVersion uint8
	Capabilities    []wire.MediaCapability
	Buttons         []Button

	ActiveChannel  uint32
	TransferSource uint32
	Selected       []uint32

	CurrentLine string
	LastNumber  string
	KeepAlive   time.Duration
	NAT         bool

	DND DNDMode

	// PrivateNext marks the next outgoing call private.
	PrivateNext bool
	MWILight    bool

	RegisteredAt time.Time
}

func (d DeviceInfo) clone() DeviceInfo {
	d.Capabilities = append([]wire.MediaCapability(nil), d.Capabilities...)
	d.Buttons = append([]Button(nil), d.Buttons...)
	d.Selected = append([]uint32(nil), d.Selected...)
	return d
}

// DefaultIncomingLimit is the channel limit of a line without configuration.
const DefaultIncomingLimit = 3

// LineConfig is the static configuration record of a line.
type LineConfig struct {
	Name        string
	Label       string
	Description string

	CIDName   string
	CIDNumber string

	Voicemail     string
	TransferToVM  string
	IncomingLimit int
	Transfer      bool
	PickupGroup   string
}

// Limit returns the incoming limit clamped to 1..99.
func (c LineConfig) Limit() int {
	switch {
	case c.IncomingLimit <= 0:
		return DefaultIncomingLimit
	case c.IncomingLimit > 99:
		return 99
	default:
		return c.IncomingLimit
	}
}

// LineInfo is the mutable state of a line.
type LineInfo struct {
	ForwardAll  string
	ForwardBusy string
	DND         DNDMode
	NewMessages int
	OldMessages int
}

// ChannelInfo is the mutable state of a call leg.
type ChannelInfo struct {
	State     ChannelState
	PrevState ChannelState
	Direction wire.CallType

	Dialed        string
	CallingName   string
	CallingNumber string
	CalledName    string
	CalledNumber  string

	AutoAnswer AutoAnswer
	RingStyle  wire.RingerMode

	// MediaReady is set by the media collaborator.
	MediaReady  bool
	ReceiveOpen bool
	Transmit    bool

	Private bool

	// Routed is set once the dialed number was handed to the router.
	Routed bool

	// Peer is the call id of the other leg of a local call or transfer.
	Peer uint32
}
