package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

func runStats(t *testing.T, events []log.Event) string {
	t.Helper()
	path := createTestTrace(t, events)
	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	return buf.String()
}

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: ts, Layer: log.LayerTransport},
		{Timestamp: ts, Layer: log.LayerTransport},
		{Timestamp: ts, Layer: log.LayerWire},
		{Timestamp: ts, Layer: log.LayerService},
	})

	for _, want := range []string{"TRANSPORT:", "WIRE:", "SERVICE:", "Total Events: 4"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestStatsCountsByCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryKeepAlive},
		{Timestamp: ts, Category: log.CategoryState},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "test"}},
	})

	for _, want := range []string{"MESSAGE:", "KEEPALIVE:", "STATE:", "ERROR:", "Errors: 1"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestStatsTopMessages(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: ts, Message: log.NewMessageEvent(&wire.KeepAlive{})},
		{Timestamp: ts, Message: log.NewMessageEvent(&wire.KeepAlive{})},
		{Timestamp: ts, Message: log.NewMessageEvent(&wire.OffHook{})},
	})

	if !strings.Contains(output, "Top Messages:") {
		t.Fatalf("expected message table, got:\n%s", output)
	}
	keepAlive := strings.Index(output, "KeepAlive:")
	offHook := strings.Index(output, "OffHook:")
	if keepAlive < 0 || offHook < 0 || keepAlive > offHook {
		t.Errorf("expected KeepAlive listed before OffHook, got:\n%s", output)
	}
}

func TestStatsSessions(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: ts, SessionID: "sess-aaaa-bbbb", RemoteAddr: "10.0.0.20:49152"},
		{Timestamp: ts.Add(time.Second), SessionID: "sess-aaaa-bbbb", DeviceID: "SEP001122334455"},
		{Timestamp: ts, SessionID: "sess-cccc-dddd"},
	})

	for _, want := range []string{"Sessions: 2", "[sess-aaa", "Device: SEP001122334455", "Remote: 10.0.0.20:49152"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: start},
		{Timestamp: start.Add(time.Hour)},
	})

	if !strings.Contains(output, "Duration:   1h0m0s") {
		t.Errorf("expected 1h0m0s duration, got:\n%s", output)
	}
}
