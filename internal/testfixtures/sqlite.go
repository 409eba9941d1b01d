package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/galera-volei/internal/config"
	"github.com/example/galera-volei/internal/store"
)

// NewSQLiteStore opens a migrated store over a temporary SQLite file. The
// store is closed when tb finishes.
func NewSQLiteStore(tb testing.TB) *store.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "galera.db")
	s, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    path,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}

	tb.Cleanup(func() {
		if err := s.Close(); err != nil {
			tb.Errorf("failed to close sqlite store: %v", err)
		}
	})
	return s
}
