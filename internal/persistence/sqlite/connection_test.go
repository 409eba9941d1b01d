package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/galera-volei/internal/persistence"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty dsn", mutate: func(c *Config) { c.DSN = "  " }, wantErr: true},
		{name: "unknown dialect", mutate: func(c *Config) { c.Dialect = "mysql" }, wantErr: true},
		{name: "negative busy timeout", mutate: func(c *Config) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "bad journal mode", mutate: func(c *Config) { c.JournalMode = "SIDEWAYS" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *Config) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool", mutate: func(c *Config) { c.MaxOpenConns = -1 }, wantErr: true},
		{name: "lowercase journal mode", mutate: func(c *Config) { c.JournalMode = "wal" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(DialectSQLite, "galera.db")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSQLiteDSNCarriesPragmas(t *testing.T) {
	dsn := sqliteDSN(DefaultConfig(DialectSQLite, "/tmp/galera.db"))
	if !strings.HasPrefix(dsn, "file:/tmp/galera.db?") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	query, err := url.ParseQuery(dsn[strings.Index(dsn, "?")+1:])
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	pragmas := strings.Join(query["_pragma"], ",")
	for _, want := range []string{"busy_timeout(10000)", "foreign_keys(1)", "journal_mode(WAL)", "synchronous(NORMAL)"} {
		if !strings.Contains(pragmas, want) {
			t.Errorf("expected pragma %s in %s", want, pragmas)
		}
	}
	if query.Get("_txlock") != "immediate" {
		t.Errorf("expected immediate txlock, got %q", query.Get("_txlock"))
	}

	memory := sqliteDSN(DefaultConfig(DialectSQLite, ":memory:"))
	if strings.Contains(memory, "journal_mode") {
		t.Errorf("in-memory dsn should not set journal mode: %s", memory)
	}
}

func TestQueryHelperRebind(t *testing.T) {
	query := `SELECT * FROM matches WHERE id = ? AND version = ?`

	sqliteHelper := &QueryHelper{pool: &ConnectionPool{dialect: DialectSQLite}}
	if got := sqliteHelper.Rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %s", got)
	}

	pgHelper := &QueryHelper{pool: &ConnectionPool{dialect: DialectPostgres}}
	want := `SELECT * FROM matches WHERE id = $1 AND version = $2`
	if got := pgHelper.Rebind(query); got != want {
		t.Errorf("postgres rebind = %s, want %s", got, want)
	}
}

func TestErrorMapper(t *testing.T) {
	mapper := NewErrorMapper()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "sqlite unique", err: errors.New("constraint failed: UNIQUE constraint failed: players.email (2067)"), want: persistence.ErrDuplicate},
		{name: "postgres unique", err: errors.New(`ERROR: duplicate key value violates unique constraint "players_email_key" (SQLSTATE 23505)`), want: persistence.ErrDuplicate},
		{name: "sqlite check", err: errors.New("CHECK constraint failed: confirmed_count"), want: persistence.ErrConstraintViolation},
		{name: "sqlite foreign key", err: errors.New("FOREIGN KEY constraint failed"), want: persistence.ErrConstraintViolation},
		{name: "postgres foreign key", err: errors.New("violates foreign key constraint (SQLSTATE 23503)"), want: persistence.ErrConstraintViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapper.MapError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}

	if mapper.MapError(nil) != nil {
		t.Error("expected nil for nil error")
	}
	other := errors.New("disk full")
	if got := mapper.MapError(other); got != other {
		t.Errorf("expected passthrough, got %v", got)
	}
}

func TestRetryHelper(t *testing.T) {
	helper := NewRetryHelper(RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2})

	t.Run("retries busy errors", func(t *testing.T) {
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			if attempts < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			return fmt.Errorf("commit: %w", errors.New("SQLSTATE 40001"))
		})
		if err == nil || attempts != 3 {
			t.Fatalf("expected failure after 3 attempts, got err=%v attempts=%d", err, attempts)
		}
	})

	t.Run("does not retry domain errors", func(t *testing.T) {
		attempts := 0
		err := helper.WithRetry(context.Background(), func() error {
			attempts++
			return persistence.ErrConcurrentModification
		})
		if !errors.Is(err, persistence.ErrConcurrentModification) || attempts != 1 {
			t.Fatalf("expected single attempt with sentinel, got err=%v attempts=%d", err, attempts)
		}
	})
}
