package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, line)
	}
	return out
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-1")
	ctx = WithField(ctx, FieldLanguage, "fr")

	CtxInfo(ctx, "resolved %s", "B2")

	line := decodeLine(t, &buf)
	if line["message"] != "resolved B2" {
		t.Errorf("message = %v", line["message"])
	}
	if line[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v", line[FieldRequestID])
	}
	if line[FieldLanguage] != "fr" {
		t.Errorf("language = %v", line[FieldLanguage])
	}
	if line["service"] != "test" {
		t.Errorf("service = %v", line["service"])
	}
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
}

func TestEntryMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Format: "json", Output: &buf}).WithContext(context.Background())

	With(Fields{FieldOutcome: "remote"}).
		WithDuration(1500 * time.Millisecond).
		WithCount(3).
		Info(ctx, "done")

	line := decodeLine(t, &buf)
	if line[FieldOutcome] != "remote" {
		t.Errorf("outcome = %v", line[FieldOutcome])
	}
	if line[FieldDurationMs] != float64(1500) {
		t.Errorf("duration_ms = %v", line[FieldDurationMs])
	}
	if line[FieldCount] != float64(3) {
		t.Errorf("count = %v", line[FieldCount])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Level: "warn", Output: &buf}).WithContext(context.Background())

	CtxInfo(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	CtxWarn(ctx, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
}
