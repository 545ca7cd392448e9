package call

import (
	"context"
	"fmt"
	"slices"

	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// Transfer starts or completes a consultative transfer from a device.
//
// Without a transfer in progress ch is held, marked as the transfer source
// and a new call is opened on the same line. With a transfer in progress
// from another channel, the two legs are joined by the router and both
// leave the device.
func (m *Manager) Transfer(ctx context.Context, ch *registry.Channel) (*registry.Channel, error) {
	dev, ok := m.reg.Device(ch.Device())
	if !ok {
		return nil, registry.ErrUnknownDevice
	}
	source := dev.Get().TransferSource
	if source != 0 && source != ch.CallID() {
		if src, ok := m.reg.Channel(source); ok {
			return nil, m.complete(ctx, src, ch)
		}
		dev.Update(func(di *registry.DeviceInfo) { di.TransferSource = 0 })
	}

	switch ch.State() {
	case registry.StateConnected, registry.StateProceed:
		if err := m.Hold(ctx, ch); err != nil {
			return nil, err
		}
	case registry.StateHold:
	default:
		return nil, fmt.Errorf("transfer call %d in %s: %w", ch.CallID(), ch.State(), ErrInvalidState)
	}
	dev.Update(func(di *registry.DeviceInfo) { di.TransferSource = ch.CallID() })
	m.indicate(ctx, ch, registry.StateCallTransfer)

	target, err := m.NewCall(ctx, dev.ID(), ch.Line(), "")
	if err != nil {
		dev.Update(func(di *registry.DeviceInfo) { di.TransferSource = 0 })
		return nil, fmt.Errorf("transfer call %d: %w", ch.CallID(), err)
	}
	target.Update(func(ci *registry.ChannelInfo) { ci.Peer = ch.CallID() })
	return target, nil
}

// DirectTransfer joins the two selected channels of a device.
func (m *Manager) DirectTransfer(ctx context.Context, deviceID string) error {
	dev, ok := m.reg.Device(deviceID)
	if !ok {
		return registry.ErrUnknownDevice
	}
	sel := dev.Get().Selected
	if len(sel) != 2 {
		return fmt.Errorf("direct transfer with %d selected calls: %w", len(sel), ErrTransferTarget)
	}
	a, okA := m.reg.Channel(sel[0])
	b, okB := m.reg.Channel(sel[1])
	if !okA || !okB {
		return fmt.Errorf("direct transfer: %w", registry.ErrUnknownChannel)
	}
	return m.complete(ctx, a, b)
}

func (m *Manager) complete(ctx context.Context, from, to *registry.Channel) error {
	if err := m.router.Transfer(ctx, Ref(from), Ref(to)); err != nil {
		return fmt.Errorf("transfer %d to %d: %w", from.CallID(), to.CallID(), err)
	}
	m.logger.Info("transfer", "from", from.CallID(), "to", to.CallID())
	m.end(ctx, from, false)
	m.end(ctx, to, false)
	return nil
}

// Select toggles the selection of a channel for direct transfer and
// reports whether it is now selected.
func (m *Manager) Select(ch *registry.Channel) (bool, error) {
	dev, ok := m.reg.Device(ch.Device())
	if !ok {
		return false, registry.ErrUnknownDevice
	}
	id := ch.CallID()
	var selected bool
	dev.Update(func(di *registry.DeviceInfo) {
		if i := slices.Index(di.Selected, id); i >= 0 {
			di.Selected = slices.Delete(di.Selected, i, i+1)
			return
		}
		di.Selected = append(di.Selected, id)
		selected = true
	})
	status := uint32(0)
	if selected {
		status = 1
	}
	inst := m.instance(ch)
	m.engine.Send(ch.Device(),
		&wire.CallSelectStat{Status: status, Line: inst, CallRef: id},
		&wire.SelectSoftKeys{Line: inst, CallRef: id, Set: wire.KeySetConnTrans, ValidKeyMask: 0xFFFFFFFF},
	)
	return selected, nil
}

// Park parks a channel through the router.
func (m *Manager) Park(ctx context.Context, ch *registry.Channel) error {
	if s := ch.State(); s != registry.StateConnected && s != registry.StateHold {
		return fmt.Errorf("park call %d in %s: %w", ch.CallID(), s, ErrInvalidState)
	}
	m.indicate(ctx, ch, registry.StateCallPark)
	if err := m.router.Park(ctx, Ref(ch)); err != nil {
		m.indicate(ctx, ch, registry.StateConnected)
		return fmt.Errorf("park call %d: %w", ch.CallID(), err)
	}
	m.end(ctx, ch, false)
	return nil
}

// Pickup opens a call on line and asks the router to bridge it to a call
// ringing in group.
func (m *Manager) Pickup(ctx context.Context, deviceID, lineName, group string) (*registry.Channel, error) {
	ch, err := m.NewCall(ctx, deviceID, lineName, "")
	if err != nil {
		return nil, err
	}
	m.cancelTimer(ch)
	ch.Update(func(ci *registry.ChannelInfo) { ci.Routed = true })
	if err := m.router.Pickup(ctx, Ref(ch), group); err != nil {
		m.end(ctx, ch, true)
		return nil, fmt.Errorf("pickup in %s: %w", group, err)
	}
	return ch, nil
}

// Redirect sends a ringing channel to target, e.g. voicemail.
func (m *Manager) Redirect(ctx context.Context, ch *registry.Channel, target string) error {
	if s := ch.State(); s != registry.StateRingIn && s != registry.StateCallWaiting {
		return fmt.Errorf("redirect call %d in %s: %w", ch.CallID(), s, ErrInvalidState)
	}
	if err := m.router.Redirect(ctx, Ref(ch), target); err != nil {
		return fmt.Errorf("redirect call %d: %w", ch.CallID(), err)
	}
	m.end(ctx, ch, false)
	return nil
}

// Conference asks the router to add ch to a conference.
func (m *Manager) Conference(ctx context.Context, ch *registry.Channel) error {
	if err := m.router.Conference(ctx, Ref(ch)); err != nil {
		return fmt.Errorf("conference call %d: %w", ch.CallID(), err)
	}
	return nil
}
