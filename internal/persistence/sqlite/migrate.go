package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Migration is one embedded schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	Checksum    string
}

// Migrator applies embedded migrations and records them in schema_migrations.
type Migrator struct {
	pool   *ConnectionPool
	helper *QueryHelper
	files  fs.FS
	logger *slog.Logger
}

// NewMigrator returns a Migrator over the embedded migration files.
func NewMigrator(pool *ConnectionPool, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &Migrator{pool: pool, helper: NewQueryHelper(pool), files: sub, logger: logger}
}

// Run applies pending migrations in version order. Each migration and its
// bookkeeping row commit in the same transaction.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.initializeVersionTable(ctx); err != nil {
		return err
	}

	migrations, err := m.scan()
	if err != nil {
		return err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, migration := range migrations {
		if checksum, ok := applied[migration.Version]; ok {
			if checksum != "" && checksum != migration.Checksum {
				m.logger.WarnContext(ctx, "applied migration changed on disk", "version", migration.Version)
			}
			continue
		}
		pending++

		start := time.Now()
		if err := m.execute(ctx, migration, start); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", migration.Version, migration.Description, err)
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"duration", time.Since(start),
		)
	}

	m.logger.InfoContext(ctx, "schema up to date", "applied_now", pending, "total", len(migrations))
	return nil
}

func (m *Migrator) initializeVersionTable(ctx context.Context) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TEXT NOT NULL,
			execution_time_ms BIGINT NOT NULL
		)`
	if _, err := m.helper.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) scan() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migrations []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration file name: %s", entry.Name())
		}
		if other, dup := seen[match[1]]; dup {
			return nil, fmt.Errorf("duplicate migration version %s: %s and %s", match[1], other, entry.Name())
		}
		seen[match[1]] = entry.Name()

		raw, err := fs.ReadFile(m.files, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(raw)
		migrations = append(migrations, Migration{
			Version:     match[1],
			Description: strings.ReplaceAll(match[2], "_", " "),
			SQL:         string(raw),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]string, error) {
	rows, err := m.helper.Query(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (m *Migrator) execute(ctx context.Context, migration Migration, start time.Time) error {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return fmt.Errorf("no SQL statements found")
	}

	return m.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}
		_, err := m.helper.ExecTx(ctx, tx,
			`INSERT INTO schema_migrations (version, description, checksum, applied_at, execution_time_ms) VALUES (?, ?, ?, ?, ?)`,
			migration.Version,
			migration.Description,
			migration.Checksum,
			formatTime(time.Now()),
			time.Since(start).Milliseconds(),
		)
		return err
	})
}

// splitStatements splits a migration on ";" and drops "--" comment lines.
func splitStatements(content string) []string {
	var statements []string
	for _, chunk := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
