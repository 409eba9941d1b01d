package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/galera-volei/internal/persistence"
)

const venueColumns = `id, name, address, city, state, court_type, created_by, created_at, updated_at`

// VenueRepository implements persistence.VenueRepository.
type VenueRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewVenueRepository creates a new venue repository.
func NewVenueRepository(pool *ConnectionPool) *VenueRepository {
	return &VenueRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateVenue stores a new venue.
func (r *VenueRepository) CreateVenue(ctx context.Context, venue persistence.Venue) error {
	_, err := r.helper.Exec(ctx,
		`INSERT INTO venues (`+venueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		venue.ID,
		venue.Name,
		nullString(venue.Address),
		venue.City,
		venue.State,
		nullString(venue.CourtType),
		venue.CreatedBy,
		formatTime(venue.CreatedAt),
		formatTime(venue.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetVenue retrieves a venue by ID.
func (r *VenueRepository) GetVenue(ctx context.Context, id string) (persistence.Venue, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	return r.scanVenue(row)
}

// ListVenues lists venues ordered by name, optionally filtered by city.
func (r *VenueRepository) ListVenues(ctx context.Context, filter persistence.VenueFilter) ([]persistence.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues`
	var args []any
	if city := strings.TrimSpace(filter.City); city != "" {
		query += ` WHERE LOWER(city) = LOWER(?)`
		args = append(args, city)
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	venues := make([]persistence.Venue, 0)
	for rows.Next() {
		venue, err := r.scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, venue)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return venues, nil
}

func (r *VenueRepository) scanVenue(row rowScanner) (persistence.Venue, error) {
	var (
		venue                persistence.Venue
		address, courtType   sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&venue.ID, &venue.Name, &address, &venue.City, &venue.State, &courtType, &venue.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Venue{}, persistence.ErrNotFound
		}
		return persistence.Venue{}, r.mapper.MapError(err)
	}
	venue.Address = stringPtr(address)
	venue.CourtType = stringPtr(courtType)
	if venue.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Venue{}, err
	}
	if venue.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Venue{}, err
	}
	return venue, nil
}

const matchColumns = `id, title, venue_id, starts_at, duration_minutes, kind, category, max_players, cost_cents, description, organizer_id, status, confirmed_count, version, created_at, updated_at`

// MatchRepository implements persistence.MatchRepository.
type MatchRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(pool *ConnectionPool) *MatchRepository {
	return &MatchRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateMatch stores a new match with version 1.
func (r *MatchRepository) CreateMatch(ctx context.Context, match persistence.Match) error {
	if match.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if match.Version == 0 {
		match.Version = 1
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO matches (`+matchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		match.ID,
		match.Title,
		match.VenueID,
		formatTime(match.StartsAt),
		match.DurationMinutes,
		match.Kind,
		match.Category,
		match.MaxPlayers,
		match.CostCents,
		nullString(match.Description),
		match.OrganizerID,
		match.Status,
		match.ConfirmedCount,
		match.Version,
		formatTime(match.CreatedAt),
		formatTime(match.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetMatch retrieves a match by ID.
func (r *MatchRepository) GetMatch(ctx context.Context, id string) (persistence.Match, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	return scanMatch(row, r.mapper)
}

// UpdateMatch writes the match if its version is current.
func (r *MatchRepository) UpdateMatch(ctx context.Context, match persistence.Match) (persistence.Match, error) {
	var updated persistence.Match
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = updateMatchTx(ctx, tx, r.helper, r.mapper, match)
		return err
	})
	if err != nil {
		return persistence.Match{}, err
	}
	return updated, nil
}

// ListMatches lists matches ordered by start time then ID.
func (r *MatchRepository) ListMatches(ctx context.Context, filter persistence.MatchFilter) ([]persistence.Match, error) {
	if filter.VenueIDs != nil && len(filter.VenueIDs) == 0 {
		return []persistence.Match{}, nil
	}

	var (
		conditions []string
		args       []any
	)
	if len(filter.VenueIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.VenueIDs)), ", ")
		conditions = append(conditions, "venue_id IN ("+placeholders+")")
		for _, id := range filter.VenueIDs {
			args = append(args, id)
		}
	}
	if filter.StartsAfter != nil {
		conditions = append(conditions, "starts_at >= ?")
		args = append(args, formatTime(*filter.StartsAfter))
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "starts_at < ?")
		args = append(args, formatTime(*filter.StartsBefore))
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY starts_at ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	matches := make([]persistence.Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows, r.mapper)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return matches, nil
}

// updateMatchTx performs the versioned write shared by match updates and
// enrollment transitions.
func updateMatchTx(ctx context.Context, tx *sql.Tx, helper *QueryHelper, mapper *ErrorMapper, match persistence.Match) (persistence.Match, error) {
	result, err := helper.ExecTx(ctx, tx,
		`UPDATE matches SET title = ?, venue_id = ?, starts_at = ?, duration_minutes = ?, kind = ?, category = ?,
		 max_players = ?, cost_cents = ?, description = ?, status = ?, confirmed_count = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		match.Title,
		match.VenueID,
		formatTime(match.StartsAt),
		match.DurationMinutes,
		match.Kind,
		match.Category,
		match.MaxPlayers,
		match.CostCents,
		nullString(match.Description),
		match.Status,
		match.ConfirmedCount,
		formatTime(match.UpdatedAt),
		match.ID,
		match.Version,
	)
	if err != nil {
		return persistence.Match{}, mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Match{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := helper.QueryRowTx(ctx, tx, `SELECT COUNT(*) FROM matches WHERE id = ?`, match.ID).Scan(&exists); err != nil {
			return persistence.Match{}, mapper.MapError(err)
		}
		if exists == 0 {
			return persistence.Match{}, persistence.ErrNotFound
		}
		return persistence.Match{}, persistence.ErrConcurrentModification
	}

	row := helper.QueryRowTx(ctx, tx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, match.ID)
	return scanMatch(row, mapper)
}

func scanMatch(row rowScanner, mapper *ErrorMapper) (persistence.Match, error) {
	var (
		match                          persistence.Match
		description                    sql.NullString
		startsAt, createdAt, updatedAt string
	)
	err := row.Scan(
		&match.ID,
		&match.Title,
		&match.VenueID,
		&startsAt,
		&match.DurationMinutes,
		&match.Kind,
		&match.Category,
		&match.MaxPlayers,
		&match.CostCents,
		&description,
		&match.OrganizerID,
		&match.Status,
		&match.ConfirmedCount,
		&match.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Match{}, persistence.ErrNotFound
		}
		return persistence.Match{}, mapper.MapError(err)
	}
	match.Description = stringPtr(description)
	if match.StartsAt, err = parseTime(startsAt); err != nil {
		return persistence.Match{}, err
	}
	if match.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Match{}, err
	}
	if match.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Match{}, err
	}
	return match, nil
}
