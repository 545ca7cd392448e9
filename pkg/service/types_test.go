package service

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Address != ":2000" {
		t.Errorf("Address: got %q, want %q", cfg.Address, ":2000")
	}
	if cfg.KeepAlive != 60*time.Second {
		t.Errorf("KeepAlive: got %v, want %v", cfg.KeepAlive, 60*time.Second)
	}
	if cfg.StopGrace != DefaultStopGrace {
		t.Errorf("StopGrace: got %v, want %v", cfg.StopGrace, DefaultStopGrace)
	}
	if cfg.ServerName != DefaultServerName {
		t.Errorf("ServerName: got %q, want %q", cfg.ServerName, DefaultServerName)
	}
	if cfg.Registry != nil {
		t.Error("Registry should be left to the caller")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateStarting, "STARTING"},
		{StateRunning, "RUNNING"},
		{StateStopping, "STOPPING"},
		{StateStopped, "STOPPED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String(): got %q, want %q", got, tt.want)
			}
		})
	}
}
