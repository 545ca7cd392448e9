package commands

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sccp-protocol/sccp-go/pkg/log"
	"github.com/sccp-protocol/sccp-go/pkg/wire"
)

func createTestTrace(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.strace")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestFormatFrameEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp:  ts,
		SessionID:  "abc12345-6789-0123-4567-890abcdef012",
		Direction:  log.DirectionIn,
		Layer:      log.LayerTransport,
		Category:   log.CategoryMessage,
		RemoteAddr: "10.0.0.20:49152",
		Frame: &log.FrameEvent{
			Size: 16,
			Data: []byte{0x03, 0x00, 0x00, 0x00},
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[session:abc12345]",
		"IN ",
		"TRANSPORT Frame",
		"Remote: 10.0.0.20:49152",
		"Size: 16 bytes",
		"Data: 03000000",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatMessageEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC),
		SessionID: "abc12345",
		Direction: log.DirectionIn,
		Layer:     log.LayerWire,
		DeviceID:  "SEP001122334455",
		Message:   log.NewMessageEvent(&wire.KeypadButton{Button: 5, Line: 1, CallRef: 7}),
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "WIRE KeypadButton") {
		t.Errorf("expected message name in header, got:\n%s", output)
	}
	if !strings.Contains(output, "Device: SEP001122334455") {
		t.Errorf("expected device, got:\n%s", output)
	}
	if !strings.Contains(output, "Kind: 0x0003") {
		t.Errorf("expected kind, got:\n%s", output)
	}
	if !strings.Contains(output, `"Button":5`) {
		t.Errorf("expected payload, got:\n%s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityChannel,
			OldState: "Connected",
			NewState: "Hold",
			Reason:   "softkey",
			CallID:   42,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{"SERVICE State", "Entity: CHANNEL", "Call: 42", "Connected -> Hold", "Reason: softkey"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestFormatErrorEvent(t *testing.T) {
	event := log.Event{
		Timestamp: time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC),
		Layer:     log.LayerWire,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: "short payload",
			Context: "decode CallState",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Message: short payload") || !strings.Contains(output, "Context: decode CallState") {
		t.Errorf("expected error details, got:\n%s", output)
	}
}

func TestRunViewDecodesPayload(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestTrace(t, []log.Event{
		{Timestamp: ts, SessionID: "s1", Layer: log.LayerWire, Message: log.NewMessageEvent(&wire.KeypadButton{Button: 9})},
		{Timestamp: ts, SessionID: "s1", Layer: log.LayerWire, Category: log.CategoryKeepAlive, Message: log.NewMessageEvent(&wire.KeepAlive{})},
	})

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, `"Button":9`) {
		t.Errorf("expected decoded payload, got:\n%s", output)
	}
	if !strings.Contains(output, "KeepAlive") {
		t.Errorf("expected keepalive event, got:\n%s", output)
	}
}

func TestFormatMessageShowsWireBytes(t *testing.T) {
	lamp := &wire.SetLamp{Stimulus: wire.StimulusLine, Instance: 1, Mode: wire.LampOn}
	var buf bytes.Buffer
	formatMessageDetails(&buf, log.NewMessageEvent(lamp))
	output := buf.String()

	if !strings.Contains(output, "Wire: "+hex.EncodeToString(wire.Marshal(lamp))) {
		t.Errorf("expected wire bytes, got:\n%s", output)
	}
	if !strings.Contains(output, `"Instance":1`) {
		t.Errorf("expected decoded payload, got:\n%s", output)
	}

	// A payload too short for its kind is reported, the raw bytes still shown.
	buf.Reset()
	formatMessageDetails(&buf, &log.MessageEvent{Kind: wire.KindKeypadButton, Name: "KeypadButton", Raw: []byte{1}})
	if !strings.Contains(buf.String(), "Wire: 01") || !strings.Contains(buf.String(), "Decode: ") {
		t.Errorf("expected decode error, got:\n%s", buf.String())
	}
}

func TestRunViewFilters(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestTrace(t, []log.Event{
		{Timestamp: ts, SessionID: "s1", Direction: log.DirectionIn, Layer: log.LayerWire, Message: log.NewMessageEvent(&wire.OffHook{})},
		{Timestamp: ts, SessionID: "s1", Direction: log.DirectionOut, Layer: log.LayerWire, Message: log.NewMessageEvent(&wire.KeepAliveAck{})},
		{Timestamp: ts, SessionID: "s1", Layer: log.LayerTransport, Frame: &log.FrameEvent{Size: 12}},
	})

	tests := []struct {
		name    string
		opts    FilterOptions
		want    string
		notWant string
	}{
		{"direction", FilterOptions{Direction: "out"}, "KeepAliveAck", "OffHook"},
		{"layer", FilterOptions{Layer: "transport"}, "Frame", "OffHook"},
		{"kind", FilterOptions{Kind: "offhook"}, "OffHook", "KeepAliveAck"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := tt.opts.Build()
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			var buf bytes.Buffer
			if err := RunView(path, filter, &buf); err != nil {
				t.Fatalf("RunView failed: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q, got:\n%s", tt.want, buf.String())
			}
			if strings.Contains(buf.String(), tt.notWant) {
				t.Errorf("unexpected %q, got:\n%s", tt.notWant, buf.String())
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayer("WIRE"); err != nil || l != log.LayerWire {
		t.Errorf("ParseLayer(WIRE) = %v, %v", l, err)
	}
	if _, err := ParseLayer("session"); err == nil {
		t.Error("ParseLayer accepted an invalid layer")
	}
	if d, err := ParseDirection("In"); err != nil || d != log.DirectionIn {
		t.Errorf("ParseDirection(In) = %v, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("ParseDirection accepted an invalid direction")
	}
	if c, err := ParseCategory("keepalive"); err != nil || c != log.CategoryKeepAlive {
		t.Errorf("ParseCategory(keepalive) = %v, %v", c, err)
	}
	if _, err := ParseCategory("snapshot"); err == nil {
		t.Error("ParseCategory accepted an invalid category")
	}
	if _, err := ParseKind("NotAMessage"); err == nil {
		t.Error("ParseKind accepted an invalid kind")
	}
}

func TestJSONValue(t *testing.T) {
	in := map[any]any{
		uint64(1): "a",
		"nested":  []any{map[any]any{"x": 1}},
	}
	out, ok := jsonValue(in).(map[string]any)
	if !ok {
		t.Fatalf("jsonValue returned %T", jsonValue(in))
	}
	if out["1"] != "a" {
		t.Errorf("integer key not converted: %v", out)
	}
	nested := out["nested"].([]any)
	if _, ok := nested[0].(map[string]any); !ok {
		t.Errorf("nested map not converted: %T", nested[0])
	}
}
