// Package pbx defines the collaborators the gateway core drives: the call
// router, the media layer, the post-registration sync task and the device
// settings store. LocalRouter is an in-process router for stand-alone use.
package pbx

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
)

// Collaborator errors.
var (
	ErrNotFound    = errors.New("number not found")
	ErrBusy        = errors.New("destination busy")
	ErrUnsupported = errors.New("operation not supported")
)

// ChannelRef identifies a call leg to a collaborator.
type ChannelRef struct {
	CallID uint32
	Line   string
	Device string
}

// String returns a log-friendly form.
func (r ChannelRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Device, r.Line, r.CallID)
}

// Router allocates call legs and routes them. Implementations must not call
// back into the gateway synchronously from these methods.
type Router interface {
	Allocate(ctx context.Context, ch ChannelRef) error
	Dial(ctx context.Context, ch ChannelRef, number string) error
	Answer(ctx context.Context, ch ChannelRef) error
	Hangup(ctx context.Context, ch ChannelRef) error
	Transfer(ctx context.Context, from, to ChannelRef) error
	Park(ctx context.Context, ch ChannelRef) error
	Pickup(ctx context.Context, ch ChannelRef, group string) error
	Redirect(ctx context.Context, ch ChannelRef, target string) error
	Conference(ctx context.Context, ch ChannelRef) error
}

// Media manages RTP resources for call legs.
type Media interface {
	OpenReceive(ctx context.Context, ch ChannelRef) error
	CloseReceive(ctx context.Context, ch ChannelRef) error
	ReceiveOpened(ctx context.Context, ch ChannelRef, addr netip.AddrPort) error
}

// PostRegistration synchronizes lamp, MWI and hint state after a device
// registers. It runs in the background.
type PostRegistration interface {
	Sync(ctx context.Context, deviceID string) error
}

// DeviceSettings are the persisted per-device settings.
type DeviceSettings struct {
	DND         string `json:"dnd,omitempty"`
	ForwardAll  string `json:"forward_all,omitempty"`
	ForwardBusy string `json:"forward_busy,omitempty"`
}

// SettingsStore persists device settings across restarts.
type SettingsStore interface {
	LoadDeviceSettings(ctx context.Context, deviceID string) (DeviceSettings, error)
	SaveDeviceSettings(ctx context.Context, deviceID string, s DeviceSettings) error
}

// Calls is the gateway side a router reports call progress to.
type Calls interface {
	IncomingCall(ctx context.Context, line string, in IncomingCall) (ChannelRef, error)
	RemoteRinging(callID uint32)
	RemoteAnswered(callID uint32)
	RemoteBusy(callID uint32)
	RemoteCongestion(callID uint32)
	RemoteHangup(callID uint32)
	MediaReady(callID uint32, remote netip.AddrPort)
}

// IncomingCall describes a call offered to a line.
type IncomingCall struct {
	CallingName   string
	CallingNumber string
	CalledNumber  string

	// Peer is the call id of the originating leg for local calls.
	Peer uint32
}

// NopMedia accepts every media request without allocating anything.
type NopMedia struct{}

func (NopMedia) OpenReceive(context.Context, ChannelRef) error  { return nil }
func (NopMedia) CloseReceive(context.Context, ChannelRef) error { return nil }
func (NopMedia) ReceiveOpened(context.Context, ChannelRef, netip.AddrPort) error {
	return nil
}

// NopPostRegistration does nothing.
type NopPostRegistration struct{}

func (NopPostRegistration) Sync(context.Context, string) error { return nil }

var (
	_ Media            = NopMedia{}
	_ PostRegistration = NopPostRegistration{}
)
