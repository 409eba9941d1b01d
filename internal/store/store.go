// Package store selects a persistence backend and adapts it to the
// repository interfaces consumed by the application services.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/galera-volei/internal/config"
	"github.com/example/galera-volei/internal/persistence"
	"github.com/example/galera-volei/internal/persistence/memory"
	"github.com/example/galera-volei/internal/persistence/sqlite"
)

// Backend is the full set of persistence repositories behind one store.
type Backend struct {
	Players     persistence.PlayerRepository
	Invitations persistence.InvitationRepository
	Resets      persistence.PasswordResetRepository
	Venues      persistence.VenueRepository
	Matches     persistence.MatchRepository
	Enrollments persistence.EnrollmentRepository
}

// Store exposes application-facing repositories over a backend.
type Store struct {
	Players     *PlayerRepository
	Invitations *InvitationRepository
	Resets      *PasswordResetRepository
	Venues      *VenueRepository
	Matches     *MatchRepository
	Enrollments *EnrollmentRepository

	driver string
	ping   func(context.Context) error
	close  func() error
}

// New adapts backend. ping and closeFn may be nil.
func New(driver string, backend Backend, ping func(context.Context) error, closeFn func() error) *Store {
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &Store{
		Players:     NewPlayerRepository(backend.Players),
		Invitations: NewInvitationRepository(backend.Invitations),
		Resets:      NewPasswordResetRepository(backend.Resets),
		Venues:      NewVenueRepository(backend.Venues),
		Matches:     NewMatchRepository(backend.Matches),
		Enrollments: NewEnrollmentRepository(backend.Enrollments),
		driver:      driver,
		ping:        ping,
		close:       closeFn,
	}
}

// NewMemory returns a Store over a fresh in-memory backend.
func NewMemory() *Store {
	storage := memory.New()
	return New(config.DriverMemory, Backend{
		Players:     storage,
		Invitations: storage,
		Resets:      storage,
		Venues:      storage,
		Matches:     storage,
		Enrollments: storage,
	}, storage.Ping, storage.Close)
}

// NewSQL returns a Store over an opened SQL store.
func NewSQL(driver string, db *sqlite.Store) *Store {
	return New(driver, Backend{
		Players:     db.Players,
		Invitations: db.Invitations,
		Resets:      db.Resets,
		Venues:      db.Venues,
		Matches:     db.Matches,
		Enrollments: db.Enrollments,
	}, db.Ping, db.Close)
}

// Open connects the backend named by cfg.Driver and, for SQL backends,
// applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var dialect sqlite.Dialect
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return NewMemory(), nil
	case config.DriverSQLite, "":
		dialect = sqlite.DialectSQLite
	case config.DriverPostgres:
		dialect = sqlite.DialectPostgres
	default:
		return nil, fmt.Errorf("store: unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlite.Open(sqlite.DefaultConfig(dialect, cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dialect, err)
	}
	if err := db.Migrate(ctx, logger); err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Error("failed to close store after migration error", "error", cerr)
		}
		return nil, fmt.Errorf("store: migrate %s: %w", dialect, err)
	}

	logger.Info("store ready", "driver", string(dialect))
	return NewSQL(string(dialect), db), nil
}

// Driver names the backend in use.
func (s *Store) Driver() string { return s.driver }

// Ping checks backend connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases backend resources.
func (s *Store) Close() error { return s.close() }
