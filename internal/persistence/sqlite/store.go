// Package sqlite implements the persistence repositories on database/sql.
// SQLite (modernc.org/sqlite) is the default engine; the same queries run on
// PostgreSQL through the pgx stdlib driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store bundles the repositories sharing one connection pool.
type Store struct {
	Pool        *ConnectionPool
	Players     *PlayerRepository
	Invitations *InvitationRepository
	Resets      *PasswordResetRepository
	Venues      *VenueRepository
	Matches     *MatchRepository
	Enrollments *EnrollmentRepository
}

// Open connects to the database described by config.
func Open(config Config) (*Store, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore builds the repositories over an existing pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		Pool:        pool,
		Players:     NewPlayerRepository(pool),
		Invitations: NewInvitationRepository(pool),
		Resets:      NewPasswordResetRepository(pool),
		Venues:      NewVenueRepository(pool),
		Matches:     NewMatchRepository(pool),
		Enrollments: NewEnrollmentRepository(pool),
	}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	return NewMigrator(s.Pool, logger).Run(ctx)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.Pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
