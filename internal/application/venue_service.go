package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// VenueRepository captures the persistence operations needed by the venue service.
type VenueRepository interface {
	CreateVenue(ctx context.Context, venue Venue) (Venue, error)
	GetVenue(ctx context.Context, id string) (Venue, error)
	ListVenues(ctx context.Context, city string) ([]Venue, error)
}

// VenueService manages the catalog of places where matches are played.
type VenueService struct {
	venues      VenueRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewVenueService wires dependencies for the venue service.
func NewVenueService(venues VenueRepository, idGenerator func() string, now func() time.Time) *VenueService {
	return NewVenueServiceWithLogger(venues, idGenerator, now, nil)
}

// NewVenueServiceWithLogger wires dependencies and a logger for the venue service.
func NewVenueServiceWithLogger(venues VenueRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *VenueService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &VenueService{venues: venues, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

// CreateVenue validates and stores a venue registered by the caller.
func (s *VenueService) CreateVenue(ctx context.Context, principal Principal, input VenueInput) (venue Venue, err error) {
	if s == nil {
		err = fmt.Errorf("VenueService is nil")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	input = normalizeVenueInput(input)
	logger := serviceLogger(ctx, s.logger, "VenueService", "CreateVenue", "player_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "venue creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("venue_id", venue.ID).InfoContext(ctx, "venue created")
	}()

	if vErr := validateVenueInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	venue, err = s.venues.CreateVenue(ctx, Venue{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Address:   input.Address,
		City:      input.City,
		State:     input.State,
		CourtType: input.CourtType,
		CreatedBy: principal.PlayerID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return
}

// GetVenue returns a venue by id.
func (s *VenueService) GetVenue(ctx context.Context, id string) (Venue, error) {
	if s == nil {
		return Venue{}, fmt.Errorf("VenueService is nil")
	}
	return s.venues.GetVenue(ctx, strings.TrimSpace(id))
}

// ListVenues lists venues ordered by name, optionally restricted to a city.
func (s *VenueService) ListVenues(ctx context.Context, city string) ([]Venue, error) {
	if s == nil {
		return nil, fmt.Errorf("VenueService is nil")
	}
	venues, err := s.venues.ListVenues(ctx, strings.TrimSpace(city))
	if err != nil {
		return nil, err
	}
	if venues == nil {
		venues = []Venue{}
	}
	return venues, nil
}

func normalizeVenueInput(input VenueInput) VenueInput {
	return VenueInput{
		Name:      strings.TrimSpace(input.Name),
		Address:   trimOptional(input.Address),
		City:      strings.TrimSpace(input.City),
		State:     strings.ToUpper(strings.TrimSpace(input.State)),
		CourtType: trimOptional(input.CourtType),
	}
}

func validateVenueInput(input VenueInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Name == "" {
		vErr.add("nome", "nome é obrigatório")
	}
	if input.City == "" {
		vErr.add("cidade", "cidade é obrigatória")
	}
	if len(input.State) != 2 {
		vErr.add("estado", "estado deve ser a sigla da UF com 2 letras")
	}
	return vErr
}

// trimOptional trims an optional string, turning blanks into nil.
func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
