package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// MatchRepository captures the persistence operations needed for matches.
// UpdateMatch is versioned and returns ErrConcurrentUpdate when the stored
// version moved on.
type MatchRepository interface {
	CreateMatch(ctx context.Context, match Match) (Match, error)
	GetMatch(ctx context.Context, id string) (Match, error)
	UpdateMatch(ctx context.Context, match Match) (Match, error)
	ListMatches(ctx context.Context, filter MatchRepositoryFilter) ([]Match, error)
}

// EnrollmentRepository captures the persistence operations needed for
// enrollments. The transition methods write the enrollment together with its
// versioned match.
type EnrollmentRepository interface {
	CreateEnrollment(ctx context.Context, enrollment Enrollment) (Enrollment, error)
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	FindActiveEnrollment(ctx context.Context, matchID, playerID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, matchID string) ([]Enrollment, error)
	SaveTransition(ctx context.Context, match Match, enrollment Enrollment) (Match, error)
	DeleteTransition(ctx context.Context, match Match, enrollmentID string) (Match, error)
}

// VenueLookup resolves venues referenced by matches.
type VenueLookup interface {
	GetVenue(ctx context.Context, id string) (Venue, error)
	ListVenues(ctx context.Context, city string) ([]Venue, error)
}

// MatchService owns the match lifecycle and its enrollments. Mutations of a
// match run under a per-match lock.
type MatchService struct {
	matches     MatchRepository
	enrollments EnrollmentRepository
	venues      VenueLookup
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	locks       *matchLocks
	logger      *slog.Logger
}

// NewMatchService wires dependencies for the match service.
func NewMatchService(matches MatchRepository, enrollments EnrollmentRepository, venues VenueLookup, idGenerator func() string, now func() time.Time, location *time.Location) *MatchService {
	return NewMatchServiceWithLogger(matches, enrollments, venues, idGenerator, now, location, nil)
}

// NewMatchServiceWithLogger wires dependencies and a logger for the match service.
// Calendar-day filters are evaluated in location.
func NewMatchServiceWithLogger(matches MatchRepository, enrollments EnrollmentRepository, venues VenueLookup, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) *MatchService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &MatchService{
		matches:     matches,
		enrollments: enrollments,
		venues:      venues,
		idGenerator: idGenerator,
		now:         now,
		location:    location,
		locks:       newMatchLocks(),
		logger:      defaultLogger(logger),
	}
}

func (s *MatchService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MatchService", operation, attrs...)
}

// CreateMatch validates input and stores an open match organized by the caller.
func (s *MatchService) CreateMatch(ctx context.Context, principal Principal, input MatchInput) (match Match, err error) {
	if s == nil {
		err = fmt.Errorf("MatchService is nil")
		return
	}
	if s.matches == nil {
		err = fmt.Errorf("match repository not configured")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	input = normalizeMatchInput(input)
	logger := s.loggerWith(ctx, "CreateMatch", "organizer_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "match creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("match_id", match.ID, "venue_id", match.VenueID).InfoContext(ctx, "match created")
	}()

	now := s.now()
	vErr := validateMatchInput(input, now)
	if input.VenueID != "" {
		var venueErr *ValidationError
		if venueErr, err = s.checkVenue(ctx, input.VenueID); err != nil {
			return
		}
		vErr.merge(venueErr)
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	candidate := Match{
		ID:              s.idGenerator(),
		Title:           input.Title,
		VenueID:         input.VenueID,
		StartsAt:        input.StartsAt.UTC(),
		DurationMinutes: input.DurationMinutes,
		Kind:            input.Kind,
		Category:        input.Category,
		MaxPlayers:      input.MaxPlayers,
		CostCents:       input.CostCents,
		Description:     input.Description,
		OrganizerID:     principal.PlayerID,
		Status:          MatchOpen,
		ConfirmedCount:  0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	match, err = s.matches.CreateMatch(ctx, candidate)
	return
}

// GetMatch returns a match by id.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (Match, error) {
	if s == nil {
		return Match{}, fmt.Errorf("MatchService is nil")
	}
	return s.matches.GetMatch(ctx, strings.TrimSpace(matchID))
}

// ListMatches returns matches ordered by start time then id.
func (s *MatchService) ListMatches(ctx context.Context, filter MatchFilter) ([]Match, error) {
	if s == nil {
		return nil, fmt.Errorf("MatchService is nil")
	}

	repoFilter := MatchRepositoryFilter{Status: filter.Status}

	if city := strings.TrimSpace(filter.City); city != "" {
		if s.venues == nil {
			return nil, fmt.Errorf("venue lookup not configured")
		}
		venues, err := s.venues.ListVenues(ctx, city)
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(venues))
		for _, venue := range venues {
			ids = append(ids, venue.ID)
		}
		repoFilter.VenueIDs = ids
	}

	if filter.Date != nil {
		start, end := s.dayBounds(*filter.Date)
		repoFilter.StartsAfter = &start
		repoFilter.StartsBefore = &end
	}

	matches, err := s.matches.ListMatches(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	out := make([]Match, len(matches))
	copy(out, matches)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

// UpdateMatch applies the non-nil fields of update when the caller organizes the match.
func (s *MatchService) UpdateMatch(ctx context.Context, principal Principal, matchID string, update MatchUpdate) (match Match, err error) {
	if s == nil {
		err = fmt.Errorf("MatchService is nil")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	logger := s.loggerWith(ctx, "UpdateMatch", "match_id", matchID, "player_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "match update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", match.Status, "version", match.Version).InfoContext(ctx, "match updated")
	}()

	unlock := s.locks.Lock(matchID)
	defer unlock()

	var existing Match
	existing, err = s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return
	}
	if existing.OrganizerID != principal.PlayerID {
		err = ErrForbidden
		return
	}
	if existing.Status.IsTerminal() {
		err = ErrMatchClosed
		return
	}

	now := s.now()
	vErr := validateMatchUpdate(update, now)
	if update.VenueID != nil {
		if venueID := strings.TrimSpace(*update.VenueID); venueID != "" && venueID != existing.VenueID {
			var venueErr *ValidationError
			if venueErr, err = s.checkVenue(ctx, venueID); err != nil {
				return
			}
			vErr.merge(venueErr)
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := applyMatchUpdate(existing, update)
	if updated.MaxPlayers < updated.ConfirmedCount {
		err = ErrCapacityBelowConfirmed
		return
	}
	if update.Status != nil {
		if err = organizerTransition(existing.Status, *update.Status); err != nil {
			return
		}
		updated.Status = *update.Status
	}
	updated.Status = capacityStatus(updated.Status, updated.ConfirmedCount, updated.MaxPlayers)
	updated.UpdatedAt = now

	match, err = s.matches.UpdateMatch(ctx, updated)
	return
}

// checkVenue reports a missing venue as a field error.
func (s *MatchService) checkVenue(ctx context.Context, venueID string) (*ValidationError, error) {
	if s.venues == nil {
		return nil, nil
	}
	if _, err := s.venues.GetVenue(ctx, venueID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewValidationError("id_local", "local não encontrado"), nil
		}
		return nil, err
	}
	return nil, nil
}

// dayBounds returns [start, end) of the calendar day containing t in the service time zone.
func (s *MatchService) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

func normalizeMatchInput(input MatchInput) MatchInput {
	input.Title = strings.TrimSpace(input.Title)
	input.VenueID = strings.TrimSpace(input.VenueID)
	input.Kind = strings.TrimSpace(input.Kind)
	input.Category = strings.TrimSpace(input.Category)
	input.Description = trimOptional(input.Description)
	return input
}

func validateMatchInput(input MatchInput, now time.Time) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("titulo", "título é obrigatório")
	}
	if input.VenueID == "" {
		vErr.add("id_local", "local é obrigatório")
	}
	if input.StartsAt.IsZero() {
		vErr.add("data_hora", "data e hora são obrigatórias")
	} else if !input.StartsAt.After(now) {
		vErr.add("data_hora", "a partida deve começar no futuro")
	}
	if input.DurationMinutes <= 0 {
		vErr.add("duracao_estimada_min", "duração deve ser maior que zero")
	}
	if input.Kind == "" {
		vErr.add("tipo", "tipo é obrigatório")
	}
	if input.Category == "" {
		vErr.add("categoria", "categoria é obrigatória")
	}
	if input.MaxPlayers < 2 {
		vErr.add("max_jogadores", "a partida precisa de pelo menos 2 jogadores")
	}
	if input.CostCents < 0 {
		vErr.add("custo_por_jogador", "custo não pode ser negativo")
	}
	return vErr
}

func validateMatchUpdate(update MatchUpdate, now time.Time) *ValidationError {
	vErr := &ValidationError{}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		vErr.add("titulo", "título não pode ser vazio")
	}
	if update.VenueID != nil && strings.TrimSpace(*update.VenueID) == "" {
		vErr.add("id_local", "local não pode ser vazio")
	}
	if update.StartsAt != nil && !update.StartsAt.After(now) {
		vErr.add("data_hora", "a partida deve começar no futuro")
	}
	if update.DurationMinutes != nil && *update.DurationMinutes <= 0 {
		vErr.add("duracao_estimada_min", "duração deve ser maior que zero")
	}
	if update.MaxPlayers != nil && *update.MaxPlayers < 2 {
		vErr.add("max_jogadores", "a partida precisa de pelo menos 2 jogadores")
	}
	if update.CostCents != nil && *update.CostCents < 0 {
		vErr.add("custo_por_jogador", "custo não pode ser negativo")
	}
	if update.Status != nil {
		if _, ok := ParseMatchStatus(string(*update.Status)); !ok {
			vErr.add("status", "status inválido")
		}
	}
	return vErr
}

func applyMatchUpdate(match Match, update MatchUpdate) Match {
	if update.Title != nil {
		match.Title = strings.TrimSpace(*update.Title)
	}
	if update.VenueID != nil {
		match.VenueID = strings.TrimSpace(*update.VenueID)
	}
	if update.StartsAt != nil {
		match.StartsAt = update.StartsAt.UTC()
	}
	if update.DurationMinutes != nil {
		match.DurationMinutes = *update.DurationMinutes
	}
	if update.MaxPlayers != nil {
		match.MaxPlayers = *update.MaxPlayers
	}
	if update.CostCents != nil {
		match.CostCents = *update.CostCents
	}
	if update.Description != nil {
		match.Description = trimOptional(update.Description)
	}
	return match
}
