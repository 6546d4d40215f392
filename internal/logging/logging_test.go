package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	New(&buf, "json", "warn").Info("hidden")
	New(&buf, "", "warn").Warn("visible", "visit_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json output, got %q", lines[0])
	}
	if entry["msg"] != "visible" || entry["visit_id"] != float64(7) {
		t.Fatalf("unexpected entry %v", entry)
	}

	buf.Reset()
	New(&buf, "TEXT", "").Info("plain")
	if !strings.Contains(buf.String(), "msg=plain") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if ParseLevel("debug") != slog.LevelDebug || ParseLevel(" ERROR ") != slog.LevelError {
		t.Fatalf("expected named levels to parse")
	}
	if ParseLevel("loud") != slog.LevelInfo {
		t.Fatalf("expected unknown levels to fall back to info")
	}
}

func TestContextWithLogger(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger to round trip through context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger for bare context")
	}
	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("expected nil logger to be ignored")
	}
}
