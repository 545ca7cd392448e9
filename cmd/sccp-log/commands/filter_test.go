package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

func readTrace(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}

func TestFilterBySessionID(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	path := createTestTrace(t, []log.Event{
		{Timestamp: ts, SessionID: "sess-1"},
		{Timestamp: ts, SessionID: "sess-2"},
		{Timestamp: ts, SessionID: "sess-1"},
	})
	outPath := filepath.Join(t.TempDir(), "filtered.strace")

	n, err := RunFilter(path, outPath, FilterOptions{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("RunFilter wrote %d events, want 2", n)
	}

	events := readTrace(t, outPath)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.SessionID != "sess-1" {
			t.Errorf("expected sess-1, got %s", e.SessionID)
		}
	}
}

func TestFilterByDeviceAndKind(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	path := createTestTrace(t, []log.Event{
		{Timestamp: ts, DeviceID: "SEPA", Message: log.NewMessageEvent(&wire.OffHook{})},
		{Timestamp: ts, DeviceID: "SEPA", Message: log.NewMessageEvent(&wire.OnHook{})},
		{Timestamp: ts, DeviceID: "SEPB", Message: log.NewMessageEvent(&wire.OffHook{})},
	})
	outPath := filepath.Join(t.TempDir(), "filtered.strace")

	if _, err := RunFilter(path, outPath, FilterOptions{DeviceID: "SEPA", Kind: "OffHook"}); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	events := readTrace(t, outPath)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Message.Kind != wire.KindOffHook || events[0].DeviceID != "SEPA" {
		t.Errorf("unexpected event: %+v", events[0])
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestTrace(t, []log.Event{
		{Timestamp: base},
		{Timestamp: base.Add(30 * time.Minute)},
		{Timestamp: base.Add(time.Hour)},
	})
	outPath := filepath.Join(t.TempDir(), "filtered.strace")

	n, err := RunFilter(path, outPath, FilterOptions{
		TimeStart: "2026-01-28T10:15:00Z",
		TimeEnd:   "2026-01-28T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 event in range, got %d", n)
	}
}

func TestFilterOptionsInvalid(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{"time-start", FilterOptions{TimeStart: "yesterday"}},
		{"time-end", FilterOptions{TimeEnd: "10:00"}},
		{"layer", FilterOptions{Layer: "session"}},
		{"direction", FilterOptions{Direction: "up"}},
		{"category", FilterOptions{Category: "snapshot"}},
		{"kind", FilterOptions{Kind: "Teleport"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.opts.Build(); err == nil {
				t.Errorf("expected error for %+v", tt.opts)
			}
		})
	}
}
