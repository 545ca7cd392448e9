package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/pbx"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// GatewayState is the on-disk form of the settings file.
type GatewayState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Devices holds settings by device name.
	Devices map[string]pbx.DeviceSettings `json:"devices,omitempty"`
}

// SettingsStore persists device settings to a JSON file. Settings are
// cached in memory; Load must be called once before use when the file may
// already exist.
type SettingsStore struct {
	mu      sync.Mutex
	path    string
	devices map[string]pbx.DeviceSettings
	now     func() time.Time
}

// NewSettingsStore creates a store backed by path.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{
		path:    path,
		devices: make(map[string]pbx.DeviceSettings),
		now:     time.Now,
	}
}

// Load reads the settings file. A missing file is an empty state.
func (s *SettingsStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var state GatewayState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	if state.Version > StateVersion {
		return fmt.Errorf("parse %s: unsupported version %d", s.path, state.Version)
	}
	s.devices = make(map[string]pbx.DeviceSettings, len(state.Devices))
	maps.Copy(s.devices, state.Devices)
	return nil
}

// LoadDeviceSettings returns the stored settings of a device, or zero
// settings when none were saved.
func (s *SettingsStore) LoadDeviceSettings(_ context.Context, deviceID string) (pbx.DeviceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.devices[deviceID], nil
}

// SaveDeviceSettings stores the settings of a device and rewrites the file.
// Zero settings remove the device entry.
func (s *SettingsStore) SaveDeviceSettings(_ context.Context, deviceID string, ds pbx.DeviceSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.devices[deviceID]
	if ds == (pbx.DeviceSettings{}) {
		delete(s.devices, deviceID)
	} else {
		s.devices[deviceID] = ds
	}
	if err := s.write(); err != nil {
		if had {
			s.devices[deviceID] = prev
		} else {
			delete(s.devices, deviceID)
		}
		return err
	}
	return nil
}

// write saves the cache through a temp file so a crash never leaves a
// truncated state file.
func (s *SettingsStore) write() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state := GatewayState{
		Version: StateVersion,
		SavedAt: s.now(),
		Devices: s.devices,
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Clear removes the state file and forgets all settings.
func (s *SettingsStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.devices)
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

var _ pbx.SettingsStore = (*SettingsStore)(nil)
