package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewJSONHandlerWritesStructuredRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")
	logger.Info("hello", "player_id", "p-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["player_id"] != "p-1" {
		t.Fatalf("unexpected record: %#v", record)
	}
}

func TestNewTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info record should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=kept") {
		t.Fatalf("expected text record, got %q", out)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil logger on empty context")
	}
	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected logger from context")
	}
	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatal("nil logger must return the context unchanged")
	}
}

func TestScopedPrefersContextLogger(t *testing.T) {
	var fromCtx, fallback bytes.Buffer
	ctx := ContextWithLogger(context.Background(), New(&fromCtx, "info", "text"))

	Scoped(ctx, New(&fallback, "info", "text"), "service", "MatchService").Info("scoped")
	if fallback.Len() != 0 {
		t.Fatalf("fallback should stay unused, got %q", fallback.String())
	}
	if !strings.Contains(fromCtx.String(), "service=MatchService") {
		t.Fatalf("expected attrs on the context logger, got %q", fromCtx.String())
	}

	Scoped(context.Background(), New(&fallback, "info", "text")).Info("plain")
	if !strings.Contains(fallback.String(), "msg=plain") {
		t.Fatalf("expected fallback logger, got %q", fallback.String())
	}
	if Scoped(context.Background(), nil) != slog.Default() {
		t.Fatal("expected slog.Default without context or fallback logger")
	}
}
