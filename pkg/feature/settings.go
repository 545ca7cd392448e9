package feature

import (
	"context"
	"fmt"

	"github.com/sccp-protocol/sccp-go/pkg/hint"
	"github.com/sccp-protocol/sccp-go/pkg/pbx"
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/station"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// nextDND returns the mode after a DND press. A user defined device cycles
// off, reject, silent; any other device toggles its configured mode.
func nextDND(configured, current registry.DNDMode) registry.DNDMode {
	if configured == registry.DNDUserDefined {
		switch current {
		case registry.DNDOff:
			return registry.DNDReject
		case registry.DNDReject:
			return registry.DNDSilent
		default:
			return registry.DNDOff
		}
	}
	if current == registry.DNDOff {
		return configured
	}
	return registry.DNDOff
}

func (d *Dispatcher) toggleDND(ctx context.Context, t target) {
	configured := t.dev.Config().DND
	if !d.Flags().DND || configured == registry.DNDOff {
		d.notify(t, station.NotifyDNDInactive)
		return
	}
	mode := t.dev.Update(func(i *registry.DeviceInfo) { i.DND = nextDND(configured, i.DND) }).DND
	d.logger.Info("dnd changed", "device", t.dev.ID(), "mode", mode.String())
	d.applyDND(t, mode)
	d.persist(ctx, t)
}

// applyDND pushes a DND mode to the device's lines, feature buttons and
// hint subscribers.
func (d *Dispatcher) applyDND(t target, mode registry.DNDMode) {
	var msgs []wire.Message
	switch mode {
	case registry.DNDReject:
		msgs = append(msgs, &wire.DisplayNotify{Timeout: station.NotifyTimeout, Text: station.NotifyDNDReject})
	case registry.DNDSilent:
		msgs = append(msgs, &wire.DisplayNotify{Timeout: station.NotifyTimeout, Text: station.NotifyDNDSilent})
	default:
		msgs = append(msgs, &wire.ClearNotify{})
	}

	info := t.dev.Get()
	cfg := t.dev.Config()
	for _, b := range info.Buttons {
		if b.Kind != registry.ButtonFeature || b.Index >= len(cfg.Features) || cfg.Features[b.Index].Kind != "dnd" {
			continue
		}
		msgs = append(msgs, station.FeatureStat(uint32(b.Instance), info.Buttons, cfg, mode != registry.DNDOff))
	}
	if err := d.engine.Send(t.dev.ID(), msgs...); err != nil {
		d.logger.Debug("dnd status failed", "device", t.dev.ID(), "err", err)
	}

	for _, att := range d.reg.LinesOf(t.dev.ID()) {
		line, ok := d.reg.Line(att.Line)
		if !ok {
			continue
		}
		li := line.Update(func(l *registry.LineInfo) { l.DND = mode })
		d.publish(line.Name(), li)
	}
}

func (d *Dispatcher) forward(ctx context.Context, t target, mode registry.ForwardMode) {
	cfg := t.dev.Config()
	enabled := d.Flags().CallForward
	switch mode {
	case registry.ForwardAll:
		enabled = enabled && cfg.CFwdAll
	case registry.ForwardBusy:
		enabled = enabled && cfg.CFwdBusy
	}
	if !enabled {
		d.notify(t, station.NotifyFeatureOff)
		return
	}
	if t.line == nil {
		d.notify(t, station.NotifyNoLine)
		return
	}

	var number string
	if ch := d.channel(t); ch != nil {
		if s := ch.State(); s == registry.StateRingOut || s == registry.StateConnected {
			number = ch.Get().Dialed
		}
	}
	li := t.line.Update(func(l *registry.LineInfo) {
		switch mode {
		case registry.ForwardAll:
			l.ForwardAll = number
		case registry.ForwardBusy:
			l.ForwardBusy = number
		}
	})
	d.logger.Info("forward changed", "line", t.line.Name(), "mode", mode, "number", number)

	text := station.NotifyForwardCleared
	if number != "" {
		text = station.NotifyForwardedTo + number
	}
	err := d.engine.Send(t.dev.ID(),
		station.ForwardStat(uint32(t.inst), li),
		&wire.DisplayNotify{Timeout: station.NotifyTimeout, Text: text},
	)
	if err != nil {
		d.logger.Debug("forward status failed", "device", t.dev.ID(), "err", err)
	}
	d.publish(t.line.Name(), li)
	d.persist(ctx, t)
}

func (d *Dispatcher) publish(line string, li registry.LineInfo) {
	if d.hints == nil {
		return
	}
	d.hints.NotifyStatus(hint.LineStatus{
		Line:       line,
		DND:        li.DND != registry.DNDOff,
		ForwardAll: li.ForwardAll,
	})
}

func (d *Dispatcher) persist(ctx context.Context, t target) {
	if d.settings == nil {
		return
	}
	var s pbx.DeviceSettings
	if mode := t.dev.Get().DND; mode != registry.DNDOff {
		s.DND = mode.String()
	}
	if t.line != nil {
		li := t.line.Get()
		s.ForwardAll, s.ForwardBusy = li.ForwardAll, li.ForwardBusy
	}
	if err := d.settings.SaveDeviceSettings(ctx, t.dev.ID(), s); err != nil {
		d.logger.Warn("saving device settings failed", "device", t.dev.ID(), "err", err)
	}
}

// Restore applies persisted settings to a freshly registered device. The
// forward targets go to the device's first line.
func (d *Dispatcher) Restore(ctx context.Context, deviceID string) error {
	if d.settings == nil {
		return nil
	}
	t, err := d.resolve(deviceID, 0, 0)
	if err != nil {
		return err
	}
	s, err := d.settings.LoadDeviceSettings(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("loading settings of %s: %w", deviceID, err)
	}
	mode, err := registry.ParseDNDMode(s.DND)
	if err != nil {
		return fmt.Errorf("settings of %s: %w", deviceID, err)
	}
	if t.dev.Config().DND == registry.DNDOff {
		mode = registry.DNDOff
	}
	t.dev.Update(func(i *registry.DeviceInfo) { i.DND = mode })
	if mode != registry.DNDOff {
		d.applyDND(t, mode)
	}
	if t.line != nil && (s.ForwardAll != "" || s.ForwardBusy != "") {
		li := t.line.Update(func(l *registry.LineInfo) {
			l.ForwardAll, l.ForwardBusy = s.ForwardAll, s.ForwardBusy
		})
		if err := d.engine.Send(deviceID, station.ForwardStat(uint32(t.inst), li)); err != nil {
			d.logger.Debug("forward status failed", "device", deviceID, "err", err)
		}
		d.publish(t.line.Name(), li)
	}
	return nil
}
