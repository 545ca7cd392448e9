package registry

import "sync"

// Device is a configured station. The configuration is immutable; mutable
// state lives in DeviceInfo behind the element mutex.
type Device struct {
	config DeviceConfig

	mu   sync.Mutex
	info DeviceInfo
}

func newDevice(cfg DeviceConfig) *Device {
	d := &Device{config: cfg}
	d.info.DND = DNDOff
	if cfg.DNDActive {
		d.info.DND = cfg.DND
		if d.info.DND == DNDUserDefined {
			d.info.DND = DNDReject
		}
	}
	d.info.KeepAlive = cfg.KeepAlive
	return d
}

// ID returns the device name, e.g. SEP001122334455.
func (d *Device) ID() string { return d.config.ID }

// Config returns the static configuration.
func (d *Device) Config() DeviceConfig { return d.config }

// Get returns a copy of the mutable state.
func (d *Device) Get() DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.clone()
}

// Update applies fn to the mutable state under the element lock and returns
// the resulting copy. fn must not call back into the registry.
func (d *Device) Update(fn func(*DeviceInfo)) DeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.info)
	return d.info.clone()
}

// State returns the registration state.
func (d *Device) State() RegistrationState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.State
}

// Registered reports whether the device completed registration.
func (d *Device) Registered() bool { return d.State() == Registered }

// SessionID returns the bound session id, or "" when unbound.
func (d *Device) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.SessionID
}

// ActiveChannel returns the active call id, 0 when idle.
func (d *Device) ActiveChannel() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.ActiveChannel
}

// SetActiveChannel makes id the active channel; 0 clears it.
func (d *Device) SetActiveChannel(id uint32) {
	d.mu.Lock()
	d.info.ActiveChannel = id
	d.mu.Unlock()
}

// ClearActiveChannel clears the active channel if it is id.
func (d *Device) ClearActiveChannel(id uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info.ActiveChannel != id {
		return false
	}
	d.info.ActiveChannel = 0
	return true
}

// Button returns the layout slot with the given type and instance.
func (d *Device) Button(t ButtonKind, instance uint8) (Button, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.info.Buttons {
		if b.Kind == t && b.Instance == instance {
			return b, true
		}
	}
	return Button{}, false
}
