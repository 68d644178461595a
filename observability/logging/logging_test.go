package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "tipd", Env: "test", Level: "debug"})
	logger.Debug("tip phase", "phase", "validating", MaskField("paymentProof", "sig-abc"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["message"] != "tip phase" || entry["severity"] != "DEBUG" || entry["service"] != "tipd" || entry["env"] != "test" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Fatalf("timestamp key missing: %v", entry)
	}
	if entry["paymentProof"] != RedactedValue {
		t.Fatalf("payment proof must be masked, got %v", entry["paymentProof"])
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("WARN") != slog.LevelWarn || ParseLevel("") != slog.LevelInfo || ParseLevel("debug") != slog.LevelDebug {
		t.Fatalf("unexpected level mapping")
	}
}

func TestMaskFieldAllowlist(t *testing.T) {
	if got := MaskField("handle", "alice"); got.Value.String() != "alice" {
		t.Fatalf("allowlisted key must not be masked")
	}
	if got := MaskField("token", ""); got.Value.String() != "" {
		t.Fatalf("empty values stay empty")
	}
}
