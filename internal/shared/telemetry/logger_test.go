package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteIncludesLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Warn("conversion.failed", map[string]any{"conversion_id": "c-1", "error": errors.New("boom"), "level": "ignored"})

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("expected level warn, got %v", payload["level"])
	}
	if payload["msg"] != "conversion.failed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["error"] != "boom" {
		t.Fatalf("expected error string, got %v", payload["error"])
	}
	if payload["conversion_id"] != "c-1" {
		t.Fatalf("unexpected conversion_id: %v", payload["conversion_id"])
	}
}
