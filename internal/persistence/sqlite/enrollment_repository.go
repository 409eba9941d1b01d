package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/galera-volei/internal/persistence"
)

const enrollmentColumns = `id, match_id, player_id, status, created_at, updated_at`

// EnrollmentRepository implements persistence.EnrollmentRepository. The
// partial unique index idx_enrollments_active backs the one-active-enrollment
// rule.
type EnrollmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(pool *ConnectionPool) *EnrollmentRepository {
	return &EnrollmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// CreateEnrollment stores a new enrollment.
func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx,
			`INSERT INTO enrollments (`+enrollmentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			enrollment.ID,
			enrollment.MatchID,
			enrollment.PlayerID,
			enrollment.Status,
			formatTime(enrollment.CreatedAt),
			formatTime(enrollment.UpdatedAt),
		)
		return r.mapper.MapError(err)
	})
}

// GetEnrollment retrieves an enrollment by ID.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ?`, id)
	return r.scanEnrollment(row)
}

// FindActiveEnrollment returns the pending or confirmed enrollment of a player in a match.
func (r *EnrollmentRepository) FindActiveEnrollment(ctx context.Context, matchID, playerID string) (persistence.Enrollment, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments
		 WHERE match_id = ? AND player_id = ? AND status IN (?, ?)`,
		matchID, playerID, persistence.EnrollmentPending, persistence.EnrollmentConfirmed,
	)
	return r.scanEnrollment(row)
}

// ListEnrollments lists the enrollments of a match ordered by creation time then ID.
func (r *EnrollmentRepository) ListEnrollments(ctx context.Context, matchID string) ([]persistence.Enrollment, error) {
	rows, err := r.helper.Query(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE match_id = ? ORDER BY created_at ASC, id ASC`,
		matchID,
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	enrollments := make([]persistence.Enrollment, 0)
	for rows.Next() {
		enrollment, err := r.scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return enrollments, nil
}

// SaveEnrollmentTransition updates the enrollment status and the versioned
// match row in one transaction.
func (r *EnrollmentRepository) SaveEnrollmentTransition(ctx context.Context, match persistence.Match, enrollment persistence.Enrollment) (persistence.Match, error) {
	var updated persistence.Match
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE enrollments SET status = ?, updated_at = ? WHERE id = ? AND match_id = ?`,
				enrollment.Status, formatTime(enrollment.UpdatedAt), enrollment.ID, match.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := expectOneRow(result); err != nil {
				return err
			}
			updated, err = updateMatchTx(ctx, tx, r.helper, r.mapper, match)
			return err
		})
	})
	if err != nil {
		return persistence.Match{}, err
	}
	return updated, nil
}

// DeleteEnrollmentTransition deletes the enrollment and writes the versioned
// match row in one transaction.
func (r *EnrollmentRepository) DeleteEnrollmentTransition(ctx context.Context, match persistence.Match, enrollmentID string) (persistence.Match, error) {
	var updated persistence.Match
	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			result, err := r.helper.ExecTx(ctx, tx,
				`DELETE FROM enrollments WHERE id = ? AND match_id = ?`,
				enrollmentID, match.ID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			if err := expectOneRow(result); err != nil {
				return err
			}
			updated, err = updateMatchTx(ctx, tx, r.helper, r.mapper, match)
			return err
		})
	})
	if err != nil {
		return persistence.Match{}, err
	}
	return updated, nil
}

func (r *EnrollmentRepository) scanEnrollment(row rowScanner) (persistence.Enrollment, error) {
	var (
		enrollment           persistence.Enrollment
		createdAt, updatedAt string
	)
	err := row.Scan(&enrollment.ID, &enrollment.MatchID, &enrollment.PlayerID, &enrollment.Status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Enrollment{}, persistence.ErrNotFound
		}
		return persistence.Enrollment{}, r.mapper.MapError(err)
	}
	if enrollment.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Enrollment{}, err
	}
	if enrollment.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Enrollment{}, err
	}
	return enrollment, nil
}
