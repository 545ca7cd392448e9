package station

import (
	"github.com/sccp-protocol/sccp-go/pkg/registry"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

// LineStat describes a line button. An unknown instance yields an empty
// record so the station stops asking.
func LineStat(instance uint32, line *registry.Line, dev registry.DeviceConfig) *wire.LineStat {
	msg := &wire.LineStat{Line: instance}
	if line == nil {
		return msg
	}
	cfg := line.Config()
	msg.DirNumber = cfg.Name
	msg.FullyQualifiedName = cfg.Description
	if msg.FullyQualifiedName == "" {
		msg.FullyQualifiedName = dev.Description
	}
	msg.DisplayName = cfg.Label
	if msg.DisplayName == "" {
		msg.DisplayName = cfg.Name
	}
	return msg
}

// SpeedDialStat describes the speed dial at a button instance.
func SpeedDialStat(instance uint32, buttons []registry.Button, dev registry.DeviceConfig) *wire.SpeedDialStat {
	msg := &wire.SpeedDialStat{Number: instance}
	for _, b := range buttons {
		if b.Kind == registry.ButtonSpeedDial && uint32(b.Instance) == instance && b.Index < len(dev.SpeedDials) {
			sd := dev.SpeedDials[b.Index]
			msg.DirNumber = sd.Number
			msg.DisplayName = sd.Label
			break
		}
	}
	return msg
}

// ServiceURLStat describes the service URL at a button instance.
func ServiceURLStat(instance uint32, buttons []registry.Button, dev registry.DeviceConfig) *wire.ServiceURLStat {
	msg := &wire.ServiceURLStat{Index: instance}
	for _, b := range buttons {
		if b.Kind == registry.ButtonServiceURL && uint32(b.Instance) == instance && b.Index < len(dev.ServiceURLs) {
			u := dev.ServiceURLs[b.Index]
			msg.URL = u.URL
			msg.Label = u.Label
			break
		}
	}
	return msg
}

// FeatureStat describes the feature button at a button instance. status is
// the current on/off state of the feature.
func FeatureStat(instance uint32, buttons []registry.Button, dev registry.DeviceConfig, status bool) *wire.FeatureStat {
	msg := &wire.FeatureStat{Index: instance}
	for _, b := range buttons {
		if b.Kind == registry.ButtonFeature && b.Index >= 0 && uint32(b.Instance) == instance && b.Index < len(dev.Features) {
			msg.ID = uint32(b.Type)
			msg.Label = dev.Features[b.Index].Label
			break
		}
	}
	if status {
		msg.Status = 1
	}
	return msg
}

// ForwardStat reports the forward state of a line.
func ForwardStat(instance uint32, info registry.LineInfo) *wire.ForwardStat {
	msg := &wire.ForwardStat{Line: instance}
	if info.ForwardAll != "" {
		msg.AllStatus = 1
		msg.AllNumber = info.ForwardAll
	}
	if info.ForwardBusy != "" {
		msg.BusyStatus = 1
		msg.BusyNumber = info.ForwardBusy
	}
	if msg.AllStatus != 0 || msg.BusyStatus != 0 {
		msg.Active = 1
	}
	return msg
}

// ConfigStat summarizes the device configuration.
func ConfigStat(dev registry.DeviceConfig, buttons []registry.Button, serverName string) *wire.ConfigStat {
	msg := &wire.ConfigStat{
		DeviceName: dev.ID,
		UserName:   dev.Description,
		ServerName: serverName,
	}
	for _, b := range buttons {
		switch b.Kind {
		case registry.ButtonLine:
			msg.NumberLines++
		case registry.ButtonSpeedDial:
			msg.NumberSpeedDials++
		}
	}
	return msg
}
