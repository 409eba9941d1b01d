package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/galera-volei/internal/persistence"
)

const birthDateLayout = "2006-01-02"

const playerColumns = `id, name, email, sex, birth_date, skill_level, preferred_positions, password_hash, created_at, updated_at`

// PlayerRepository implements persistence.PlayerRepository.
type PlayerRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPlayerRepository creates a new player repository.
func NewPlayerRepository(pool *ConnectionPool) *PlayerRepository {
	return &PlayerRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePlayerWithInvitation inserts the player and redeems the invitation in
// one transaction. The conditional UPDATE is what makes a token single-use
// under concurrent registrations.
func (r *PlayerRepository) CreatePlayerWithInvitation(ctx context.Context, player persistence.Player, redemption persistence.Redemption) error {
	if player.ID == "" || strings.TrimSpace(redemption.Token) == "" {
		return persistence.ErrConstraintViolation
	}
	positions, err := encodePositions(player.PreferredPositions)
	if err != nil {
		return err
	}
	redeemedAt := formatTime(redemption.RedeemedAt)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var pending int
		err := r.helper.QueryRowTx(ctx, tx,
			`SELECT COUNT(*) FROM invitations WHERE token = ? AND status = ? AND expires_at > ?`,
			redemption.Token, persistence.InvitationPending, redeemedAt,
		).Scan(&pending)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if pending == 0 {
			return persistence.ErrNotFound
		}

		_, err = r.helper.ExecTx(ctx, tx,
			`INSERT INTO players (`+playerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			player.ID,
			player.Name,
			normalizeEmail(player.Email),
			player.Sex,
			player.BirthDate.Format(birthDateLayout),
			player.SkillLevel,
			positions,
			player.PasswordHash,
			formatTime(player.CreatedAt),
			formatTime(player.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(ctx, tx,
			`UPDATE invitations SET status = ?, accepted_at = ?, accepted_player_id = ?
			 WHERE token = ? AND status = ? AND expires_at > ?`,
			persistence.InvitationAccepted, redeemedAt, player.ID,
			redemption.Token, persistence.InvitationPending, redeemedAt,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected != 1 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// GetPlayer retrieves a player by ID.
func (r *PlayerRepository) GetPlayer(ctx context.Context, id string) (persistence.Player, error) {
	if id == "" {
		return persistence.Player{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	return r.scanPlayer(row)
}

// GetPlayerByEmail retrieves a player by email address.
func (r *PlayerRepository) GetPlayerByEmail(ctx context.Context, email string) (persistence.Player, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.Player{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE email = ?`, normalized)
	return r.scanPlayer(row)
}

// UpdatePlayer updates the profile fields of a player.
func (r *PlayerRepository) UpdatePlayer(ctx context.Context, player persistence.Player) error {
	positions, err := encodePositions(player.PreferredPositions)
	if err != nil {
		return err
	}
	result, err := r.helper.Exec(ctx,
		`UPDATE players SET name = ?, email = ?, sex = ?, birth_date = ?, skill_level = ?, preferred_positions = ?, updated_at = ?
		 WHERE id = ?`,
		player.Name,
		normalizeEmail(player.Email),
		player.Sex,
		player.BirthDate.Format(birthDateLayout),
		player.SkillLevel,
		positions,
		formatTime(player.UpdatedAt),
		player.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectOneRow(result)
}

// UpdatePasswordHash stores a new password hash.
func (r *PlayerRepository) UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error {
	result, err := r.helper.Exec(ctx,
		`UPDATE players SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(updatedAt), playerID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return expectOneRow(result)
}

func (r *PlayerRepository) scanPlayer(row rowScanner) (persistence.Player, error) {
	var (
		player                     persistence.Player
		birthDate, positions       string
		createdAtStr, updatedAtStr string
	)
	err := row.Scan(
		&player.ID,
		&player.Name,
		&player.Email,
		&player.Sex,
		&birthDate,
		&player.SkillLevel,
		&positions,
		&player.PasswordHash,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Player{}, persistence.ErrNotFound
		}
		return persistence.Player{}, r.mapper.MapError(err)
	}

	if player.BirthDate, err = time.Parse(birthDateLayout, birthDate); err != nil {
		return persistence.Player{}, fmt.Errorf("failed to parse birth_date: %w", err)
	}
	if err = json.Unmarshal([]byte(positions), &player.PreferredPositions); err != nil {
		return persistence.Player{}, fmt.Errorf("failed to decode preferred_positions: %w", err)
	}
	if player.PreferredPositions == nil {
		player.PreferredPositions = []string{}
	}
	if player.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Player{}, err
	}
	if player.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Player{}, err
	}
	return player, nil
}

func encodePositions(positions []string) (string, error) {
	if positions == nil {
		positions = []string{}
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		return "", fmt.Errorf("failed to encode preferred_positions: %w", err)
	}
	return string(raw), nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// normalizeEmail normalizes email addresses for consistent storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
