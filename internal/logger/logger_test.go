package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("log output is not one JSON line: %v\n%s", err, buf.String())
	}
	return line
}

func useBuffer(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := GetDefault()
	SetDefaultLogger(New(&Config{Level: "debug", Format: "json", Output: buf, ServiceName: "test"}))
	t.Cleanup(func() { SetDefaultLogger(prev) })
	return buf
}

func TestNewFromEnvWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewFromEnv(&EnvConfig{Level: "info", Format: "json", Output: buf, ServiceName: "mygoreply-test"})

	l.WithField(FieldMode, "sticker").Info("hello")

	line := decodeLine(t, buf)
	if line["message"] != "hello" {
		t.Errorf("message = %v", line["message"])
	}
	if line["service"] != "mygoreply-test" {
		t.Errorf("service = %v", line["service"])
	}
	if line[FieldMode] != "sticker" {
		t.Errorf("mode = %v", line[FieldMode])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Errorf("timestamp field missing: %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{Level: "warn", Format: "json", Output: buf})

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %s", buf.String())
	}
	l.Warn("kept")
	if decodeLine(t, buf)["level"] != "warning" {
		t.Errorf("unexpected level in %s", buf.String())
	}
}

func TestContextFields(t *testing.T) {
	buf := useBuffer(t)

	ctx := SetRequestID(context.Background(), "req-1")
	ctx = SetJobID(ctx, "job-7")
	CtxInfo(ctx, "processing %d", 3)

	line := decodeLine(t, buf)
	if line[FieldRequestID] != "req-1" || line[FieldJobID] != "job-7" {
		t.Errorf("context fields missing: %v", line)
	}
	if line["message"] != "processing 3" {
		t.Errorf("message = %v", line["message"])
	}
	if GetRequestID(ctx) != "req-1" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
	if GetRequestID(context.Background()) != "" {
		t.Errorf("GetRequestID on bare context should be empty")
	}
}

func TestEntryMergesMetricAndContextFields(t *testing.T) {
	buf := useBuffer(t)

	ctx := SetComponent(context.Background(), "tagging")
	With(Fields{FieldCount: 25}).WithDuration(12).Info(ctx, "Checkpoint saved")

	line := decodeLine(t, buf)
	if line[FieldComponent] != "tagging" {
		t.Errorf("component = %v", line[FieldComponent])
	}
	// JSON numbers decode as float64
	if line[FieldCount] != float64(25) || line[FieldDurationMs] != float64(12) {
		t.Errorf("metric fields = %v", line)
	}
}

func TestEntryWithDoesNotMutateParent(t *testing.T) {
	base := With(Fields{FieldCount: 1})
	child := base.With(Fields{FieldSize: 2})

	if _, ok := base.fields[FieldSize]; ok {
		t.Fatalf("parent entry gained child field")
	}
	if child.fields[FieldCount] != 1 || child.fields[FieldSize] != 2 {
		t.Fatalf("child fields = %v", child.fields)
	}
}

func TestWithServiceCopies(t *testing.T) {
	base := &EnvConfig{ServiceName: "a"}
	derived := base.WithService("b")
	if base.ServiceName != "a" || derived.ServiceName != "b" {
		t.Fatalf("WithService changed the original: %q %q", base.ServiceName, derived.ServiceName)
	}
}
