package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/persistence"
)

var (
	playerCounter uint64
	venueCounter  uint64
	matchCounter  uint64
)

var referenceTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Player fixtures -----------------------------

// PlayerFixture is a deterministic player record for application or
// persistence tests.
type PlayerFixture struct {
	ID                 string
	Name               string
	Email              string
	Sex                string
	BirthDate          time.Time
	SkillLevel         string
	PreferredPositions []string
	PasswordHash       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PlayerOption configures a PlayerFixture.
type PlayerOption func(*PlayerFixture)

// NewPlayerFixture returns a deterministic player with optional overrides.
func NewPlayerFixture(opts ...PlayerOption) PlayerFixture {
	idx := atomic.AddUint64(&playerCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := PlayerFixture{
		ID:                 IDFor("player-fixture", idx),
		Name:               fmt.Sprintf("Jogador %03d", idx),
		Email:              fmt.Sprintf("jogador%03d@example.com", idx),
		Sex:                "F",
		BirthDate:          time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC),
		SkillLevel:         application.DefaultSkillLevel,
		PreferredPositions: []string{},
		PasswordHash:       fmt.Sprintf("hash-%03d", idx),
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPlayerID overrides the generated player ID.
func WithPlayerID(id string) PlayerOption {
	return func(f *PlayerFixture) { f.ID = id }
}

// WithPlayerEmail overrides the generated email address.
func WithPlayerEmail(email string) PlayerOption {
	return func(f *PlayerFixture) { f.Email = email }
}

// WithPlayerName overrides the generated name.
func WithPlayerName(name string) PlayerOption {
	return func(f *PlayerFixture) { f.Name = name }
}

// WithPlayerPasswordHash overrides the stored hash.
func WithPlayerPasswordHash(hash string) PlayerOption {
	return func(f *PlayerFixture) { f.PasswordHash = hash }
}

// Application converts the fixture into the service model.
func (f PlayerFixture) Application() application.Player {
	return application.Player{
		ID:                 f.ID,
		Name:               f.Name,
		Email:              f.Email,
		Sex:                f.Sex,
		BirthDate:          f.BirthDate,
		SkillLevel:         f.SkillLevel,
		PreferredPositions: append([]string{}, f.PreferredPositions...),
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// Principal returns the authenticated identity of the player.
func (f PlayerFixture) Principal() application.Principal {
	return application.Principal{PlayerID: f.ID, Email: f.Email}
}

// Persistence converts the fixture into the stored record.
func (f PlayerFixture) Persistence() persistence.Player {
	return persistence.Player{
		ID:                 f.ID,
		Name:               f.Name,
		Email:              f.Email,
		Sex:                f.Sex,
		BirthDate:          f.BirthDate,
		SkillLevel:         f.SkillLevel,
		PreferredPositions: append([]string{}, f.PreferredPositions...),
		PasswordHash:       f.PasswordHash,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
}

// ----------------------------- Venue fixtures -----------------------------

// VenueFixture is a deterministic venue record.
type VenueFixture struct {
	ID        string
	Name      string
	City      string
	State     string
	CreatedBy string
	CreatedAt time.Time
}

// VenueOption configures a VenueFixture.
type VenueOption func(*VenueFixture)

// NewVenueFixture returns a deterministic venue with optional overrides.
func NewVenueFixture(opts ...VenueOption) VenueFixture {
	idx := atomic.AddUint64(&venueCounter, 1)
	fixture := VenueFixture{
		ID:        IDFor("venue-fixture", idx),
		Name:      fmt.Sprintf("Quadra %03d", idx),
		City:      "Fortaleza",
		State:     "CE",
		CreatedBy: application.SystemInviterID,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithVenueCity overrides the venue city.
func WithVenueCity(city, state string) VenueOption {
	return func(f *VenueFixture) {
		f.City = city
		f.State = state
	}
}

// WithVenueCreator overrides the player who registered the venue.
func WithVenueCreator(playerID string) VenueOption {
	return func(f *VenueFixture) { f.CreatedBy = playerID }
}

// Application converts the fixture into the service model.
func (f VenueFixture) Application() application.Venue {
	return application.Venue{
		ID:        f.ID,
		Name:      f.Name,
		City:      f.City,
		State:     f.State,
		CreatedBy: f.CreatedBy,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Input returns the caller-provided fields that create this venue.
func (f VenueFixture) Input() application.VenueInput {
	return application.VenueInput{Name: f.Name, City: f.City, State: f.State}
}

// ----------------------------- Match fixtures -----------------------------

// MatchFixture is a deterministic match record. StartsAt defaults to two
// days after ReferenceTime so it is in the future for a default Clock.
type MatchFixture struct {
	ID              string
	Title           string
	VenueID         string
	StartsAt        time.Time
	DurationMinutes int
	Kind            string
	Category        string
	MaxPlayers      int
	CostCents       int64
	OrganizerID     string
	Status          application.MatchStatus
	ConfirmedCount  int
	CreatedAt       time.Time
}

// MatchOption configures a MatchFixture.
type MatchOption func(*MatchFixture)

// NewMatchFixture returns a deterministic open match with optional overrides.
func NewMatchFixture(opts ...MatchOption) MatchFixture {
	idx := atomic.AddUint64(&matchCounter, 1)
	fixture := MatchFixture{
		ID:              IDFor("match-fixture", idx),
		Title:           fmt.Sprintf("Vôlei %03d", idx),
		StartsAt:        referenceTime.Add(48 * time.Hour),
		DurationMinutes: 90,
		Kind:            "Misto",
		Category:        "Amador",
		MaxPlayers:      12,
		CostCents:       1500,
		Status:          application.MatchOpen,
		CreatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMatchVenue sets the venue hosting the match.
func WithMatchVenue(venueID string) MatchOption {
	return func(f *MatchFixture) { f.VenueID = venueID }
}

// WithMatchOrganizer sets the organizer.
func WithMatchOrganizer(playerID string) MatchOption {
	return func(f *MatchFixture) { f.OrganizerID = playerID }
}

// WithMatchCapacity sets max players.
func WithMatchCapacity(maxPlayers int) MatchOption {
	return func(f *MatchFixture) { f.MaxPlayers = maxPlayers }
}

// WithMatchStartsAt overrides the start time.
func WithMatchStartsAt(t time.Time) MatchOption {
	return func(f *MatchFixture) { f.StartsAt = t }
}

// WithMatchStatus overrides the stored status and confirmed count.
func WithMatchStatus(status application.MatchStatus, confirmed int) MatchOption {
	return func(f *MatchFixture) {
		f.Status = status
		f.ConfirmedCount = confirmed
	}
}

// Input returns the caller-provided fields that create this match.
func (f MatchFixture) Input() application.MatchInput {
	return application.MatchInput{
		Title:           f.Title,
		VenueID:         f.VenueID,
		StartsAt:        f.StartsAt,
		DurationMinutes: f.DurationMinutes,
		Kind:            f.Kind,
		Category:        f.Category,
		MaxPlayers:      f.MaxPlayers,
		CostCents:       f.CostCents,
	}
}

// Application converts the fixture into the service model.
func (f MatchFixture) Application() application.Match {
	return application.Match{
		ID:              f.ID,
		Title:           f.Title,
		VenueID:         f.VenueID,
		StartsAt:        f.StartsAt,
		DurationMinutes: f.DurationMinutes,
		Kind:            f.Kind,
		Category:        f.Category,
		MaxPlayers:      f.MaxPlayers,
		CostCents:       f.CostCents,
		OrganizerID:     f.OrganizerID,
		Status:          f.Status,
		ConfirmedCount:  f.ConfirmedCount,
		Version:         1,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}
