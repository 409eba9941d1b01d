package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/galera-volei/internal/persistence"
)

const invitationColumns = `id, email, inviter_id, token, status, sent_at, expires_at, accepted_at, accepted_player_id`

// InvitationRepository implements persistence.InvitationRepository.
type InvitationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInvitationRepository creates a new invitation repository.
func NewInvitationRepository(pool *ConnectionPool) *InvitationRepository {
	return &InvitationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateInvitation stores a new invitation.
func (r *InvitationRepository) CreateInvitation(ctx context.Context, invitation persistence.Invitation) error {
	if invitation.ID == "" || invitation.Token == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invitation.ID,
		normalizeEmail(invitation.Email),
		invitation.InviterID,
		invitation.Token,
		invitation.Status,
		formatTime(invitation.SentAt),
		formatTime(invitation.ExpiresAt),
		nullTime(invitation.AcceptedAt),
		nullString(invitation.AcceptedPlayerID),
	)
	return r.mapper.MapError(err)
}

// GetInvitationByToken retrieves an invitation by token.
func (r *InvitationRepository) GetInvitationByToken(ctx context.Context, token string) (persistence.Invitation, error) {
	if token == "" {
		return persistence.Invitation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations WHERE token = ?`, token)
	return r.scanInvitation(row)
}

// ListInvitationsByInviter lists invitations ordered by send time then ID.
func (r *InvitationRepository) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]persistence.Invitation, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE inviter_id = ? ORDER BY sent_at ASC, id ASC`,
		inviterID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	invitations := make([]persistence.Invitation, 0)
	for rows.Next() {
		invitation, err := r.scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return invitations, nil
}

func (r *InvitationRepository) scanInvitation(row rowScanner) (persistence.Invitation, error) {
	var (
		invitation         persistence.Invitation
		sentAt, expiresAt  string
		acceptedAt, player sql.NullString
	)
	err := row.Scan(
		&invitation.ID,
		&invitation.Email,
		&invitation.InviterID,
		&invitation.Token,
		&invitation.Status,
		&sentAt,
		&expiresAt,
		&acceptedAt,
		&player,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Invitation{}, persistence.ErrNotFound
		}
		return persistence.Invitation{}, r.mapper.MapError(err)
	}

	if invitation.SentAt, err = parseTime(sentAt); err != nil {
		return persistence.Invitation{}, err
	}
	if invitation.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Invitation{}, err
	}
	if invitation.AcceptedAt, err = parseNullTime(acceptedAt); err != nil {
		return persistence.Invitation{}, err
	}
	invitation.AcceptedPlayerID = stringPtr(player)
	return invitation, nil
}

// PasswordResetRepository implements persistence.PasswordResetRepository.
type PasswordResetRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPasswordResetRepository creates a new password reset repository.
func NewPasswordResetRepository(pool *ConnectionPool) *PasswordResetRepository {
	return &PasswordResetRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePasswordReset stores a reset token hash.
func (r *PasswordResetRepository) CreatePasswordReset(ctx context.Context, reset persistence.PasswordReset) error {
	_, err := r.helper.Exec(ctx,
		`INSERT INTO password_resets (id, player_id, token_hash, expires_at, created_at, used_at) VALUES (?, ?, ?, ?, ?, ?)`,
		reset.ID,
		reset.PlayerID,
		reset.TokenHash,
		formatTime(reset.ExpiresAt),
		formatTime(reset.CreatedAt),
		nullTime(reset.UsedAt),
	)
	return r.mapper.MapError(err)
}

// ConsumePasswordReset marks an unused, unexpired reset as used and replaces
// the player's password hash in the same transaction.
func (r *PasswordResetRepository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (persistence.PasswordReset, error) {
	var reset persistence.PasswordReset
	stamp := formatTime(now)

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var expiresAt, createdAt string
		err := r.helper.QueryRowTx(ctx, tx,
			`SELECT id, player_id, token_hash, expires_at, created_at FROM password_resets
			 WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?`,
			tokenHash, stamp,
		).Scan(&reset.ID, &reset.PlayerID, &reset.TokenHash, &expiresAt, &createdAt)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if reset.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return err
		}
		if reset.CreatedAt, err = parseTime(createdAt); err != nil {
			return err
		}

		result, err := r.helper.ExecTx(ctx, tx,
			`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
			stamp, reset.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := expectOneRow(result); err != nil {
			return err
		}

		result, err = r.helper.ExecTx(ctx, tx,
			`UPDATE players SET password_hash = ?, updated_at = ? WHERE id = ?`,
			passwordHash, stamp, reset.PlayerID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return expectOneRow(result)
	})
	if err != nil {
		return persistence.PasswordReset{}, err
	}

	usedAt := now.UTC()
	reset.UsedAt = &usedAt
	return reset, nil
}
