package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/galera-volei/internal/config"
)

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	values := map[string]string{
		"GALERA_JWT_SECRET":      strings.Repeat("s", 40),
		"GALERA_DATABASE_DRIVER": config.DriverMemory,
	}
	for k, v := range env {
		values[k] = v
	}
	cfg, err := config.LoadFrom(func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	return cfg
}

func TestNewAppServesHealthAndWelcome(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "galera.db")
	cfg := testConfig(t, map[string]string{"GALERA_DATABASE_DRIVER": config.DriverSQLite, "GALERA_DATABASE_DSN": dsn})

	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	for path, want := range map[string]string{"/healthz": `"status":"ok"`, "/": "Bem-vindo"} {
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("GET %s: %d %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jogadores/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected protected route to require a token, got %d", rec.Code)
	}
}

func TestRunInviteCommand(t *testing.T) {
	cfg := testConfig(t, map[string]string{"GALERA_LOG_FORMAT": "text"})
	load := func() (config.Config, error) { return cfg, nil }

	// Mail workers log to the same writer as the command output.
	out := &lockedBuffer{}
	if err := run(context.Background(), []string{"invite", "-email", "Primeiro@Example.com"}, out, load); err != nil {
		t.Fatalf("invite: %v", err)
	}
	if !strings.Contains(out.String(), "enviado para primeiro@example.com") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !strings.Contains(out.String(), "msg=email to=primeiro@example.com") {
		t.Fatalf("expected the invitation email to be delivered before exit, got %q", out.String())
	}

	if err := run(context.Background(), []string{"invite"}, io.Discard, load); err == nil {
		t.Fatal("expected missing -email to fail")
	}
	if err := run(context.Background(), []string{"migrate"}, io.Discard, load); err == nil || !strings.Contains(err.Error(), "comando desconhecido") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestRandomHex(t *testing.T) {
	token := randomHex(32)
	if len(token) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(token))
	}
	if token == randomHex(32) {
		t.Fatal("expected distinct tokens")
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
