package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/persistence"
)

// PlayerRepository adapts persistence players to the application's player,
// credential and directory ports.
type PlayerRepository struct {
	repo persistence.PlayerRepository
}

// NewPlayerRepository wraps repo.
func NewPlayerRepository(repo persistence.PlayerRepository) *PlayerRepository {
	return &PlayerRepository{repo: repo}
}

// CreatePlayer redeems the invitation and stores the player.
func (a *PlayerRepository) CreatePlayer(ctx context.Context, player application.Player, passwordHash string, redemption application.InvitationRedemption) (application.Player, error) {
	record := toPersistencePlayer(player)
	record.PasswordHash = passwordHash
	if err := a.repo.CreatePlayerWithInvitation(ctx, record, persistence.Redemption{
		Token:      redemption.Token,
		RedeemedAt: redemption.RedeemedAt,
	}); err != nil {
		return application.Player{}, translateError(err)
	}
	return a.GetPlayer(ctx, player.ID)
}

// GetPlayer retrieves a player without credentials.
func (a *PlayerRepository) GetPlayer(ctx context.Context, id string) (application.Player, error) {
	stored, err := a.repo.GetPlayer(ctx, id)
	if err != nil {
		return application.Player{}, translateError(err)
	}
	return toApplicationPlayer(stored), nil
}

// GetCredentials retrieves a player together with the password hash.
func (a *PlayerRepository) GetCredentials(ctx context.Context, id string) (application.PlayerCredentials, error) {
	stored, err := a.repo.GetPlayer(ctx, id)
	if err != nil {
		return application.PlayerCredentials{}, translateError(err)
	}
	return application.PlayerCredentials{Player: toApplicationPlayer(stored), PasswordHash: stored.PasswordHash}, nil
}

// GetCredentialsByEmail looks a player up by email for login.
func (a *PlayerRepository) GetCredentialsByEmail(ctx context.Context, email string) (application.PlayerCredentials, error) {
	stored, err := a.repo.GetPlayerByEmail(ctx, email)
	if err != nil {
		return application.PlayerCredentials{}, translateError(err)
	}
	return application.PlayerCredentials{Player: toApplicationPlayer(stored), PasswordHash: stored.PasswordHash}, nil
}

// EmailRegistered reports whether a player already uses email.
func (a *PlayerRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := a.repo.GetPlayerByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, persistence.ErrNotFound):
		return false, nil
	default:
		return false, translateError(err)
	}
}

// UpdatePlayer stores profile changes and returns the stored player.
func (a *PlayerRepository) UpdatePlayer(ctx context.Context, player application.Player) (application.Player, error) {
	if err := a.repo.UpdatePlayer(ctx, toPersistencePlayer(player)); err != nil {
		return application.Player{}, translateError(err)
	}
	return a.GetPlayer(ctx, player.ID)
}

// UpdatePasswordHash replaces the stored password hash.
func (a *PlayerRepository) UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error {
	return translateError(a.repo.UpdatePasswordHash(ctx, playerID, hash, updatedAt))
}

// InvitationRepository adapts persistence invitations.
type InvitationRepository struct {
	repo persistence.InvitationRepository
}

// NewInvitationRepository wraps repo.
func NewInvitationRepository(repo persistence.InvitationRepository) *InvitationRepository {
	return &InvitationRepository{repo: repo}
}

// CreateInvitation stores invitation and returns it as persisted.
func (a *InvitationRepository) CreateInvitation(ctx context.Context, invitation application.Invitation) (application.Invitation, error) {
	if err := a.repo.CreateInvitation(ctx, persistence.Invitation(invitation)); err != nil {
		return application.Invitation{}, translateError(err)
	}
	stored, err := a.repo.GetInvitationByToken(ctx, invitation.Token)
	if err != nil {
		return application.Invitation{}, translateError(err)
	}
	return application.Invitation(stored), nil
}

// ListInvitationsByInviter returns the invitations sent by inviterID.
func (a *InvitationRepository) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]application.Invitation, error) {
	stored, err := a.repo.ListInvitationsByInviter(ctx, inviterID)
	if err != nil {
		return nil, translateError(err)
	}
	result := make([]application.Invitation, 0, len(stored))
	for _, invitation := range stored {
		result = append(result, application.Invitation(invitation))
	}
	return result, nil
}

// PasswordResetRepository adapts persistence password resets.
type PasswordResetRepository struct {
	repo persistence.PasswordResetRepository
}

// NewPasswordResetRepository wraps repo.
func NewPasswordResetRepository(repo persistence.PasswordResetRepository) *PasswordResetRepository {
	return &PasswordResetRepository{repo: repo}
}

func (a *PasswordResetRepository) CreatePasswordReset(ctx context.Context, reset application.PasswordReset) error {
	return translateError(a.repo.CreatePasswordReset(ctx, persistence.PasswordReset(reset)))
}

func (a *PasswordResetRepository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (application.PasswordReset, error) {
	stored, err := a.repo.ConsumePasswordReset(ctx, tokenHash, passwordHash, now)
	if err != nil {
		return application.PasswordReset{}, translateError(err)
	}
	return application.PasswordReset(stored), nil
}

// VenueRepository adapts persistence venues.
type VenueRepository struct {
	repo persistence.VenueRepository
}

// NewVenueRepository wraps repo.
func NewVenueRepository(repo persistence.VenueRepository) *VenueRepository {
	return &VenueRepository{repo: repo}
}

func (a *VenueRepository) CreateVenue(ctx context.Context, venue application.Venue) (application.Venue, error) {
	if err := a.repo.CreateVenue(ctx, persistence.Venue(venue)); err != nil {
		return application.Venue{}, translateError(err)
	}
	return a.GetVenue(ctx, venue.ID)
}

func (a *VenueRepository) GetVenue(ctx context.Context, id string) (application.Venue, error) {
	stored, err := a.repo.GetVenue(ctx, id)
	if err != nil {
		return application.Venue{}, translateError(err)
	}
	return application.Venue(stored), nil
}

// ListVenues returns venues, optionally narrowed to city.
func (a *VenueRepository) ListVenues(ctx context.Context, city string) ([]application.Venue, error) {
	stored, err := a.repo.ListVenues(ctx, persistence.VenueFilter{City: city})
	if err != nil {
		return nil, translateError(err)
	}
	result := make([]application.Venue, 0, len(stored))
	for _, venue := range stored {
		result = append(result, application.Venue(venue))
	}
	return result, nil
}

// MatchRepository adapts persistence matches.
type MatchRepository struct {
	repo persistence.MatchRepository
}

// NewMatchRepository wraps repo.
func NewMatchRepository(repo persistence.MatchRepository) *MatchRepository {
	return &MatchRepository{repo: repo}
}

func (a *MatchRepository) CreateMatch(ctx context.Context, match application.Match) (application.Match, error) {
	if err := a.repo.CreateMatch(ctx, toPersistenceMatch(match)); err != nil {
		return application.Match{}, translateError(err)
	}
	return a.GetMatch(ctx, match.ID)
}

func (a *MatchRepository) GetMatch(ctx context.Context, id string) (application.Match, error) {
	stored, err := a.repo.GetMatch(ctx, id)
	if err != nil {
		return application.Match{}, translateError(err)
	}
	return toApplicationMatch(stored)
}

// UpdateMatch performs a versioned write.
func (a *MatchRepository) UpdateMatch(ctx context.Context, match application.Match) (application.Match, error) {
	stored, err := a.repo.UpdateMatch(ctx, toPersistenceMatch(match))
	if err != nil {
		return application.Match{}, translateError(err)
	}
	return toApplicationMatch(stored)
}

func (a *MatchRepository) ListMatches(ctx context.Context, filter application.MatchRepositoryFilter) ([]application.Match, error) {
	stored, err := a.repo.ListMatches(ctx, persistence.MatchFilter{
		VenueIDs:     filter.VenueIDs,
		StartsAfter:  filter.StartsAfter,
		StartsBefore: filter.StartsBefore,
		Status:       string(filter.Status),
	})
	if err != nil {
		return nil, translateError(err)
	}
	result := make([]application.Match, 0, len(stored))
	for _, match := range stored {
		converted, err := toApplicationMatch(match)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

// EnrollmentRepository adapts persistence enrollments.
type EnrollmentRepository struct {
	repo persistence.EnrollmentRepository
}

// NewEnrollmentRepository wraps repo.
func NewEnrollmentRepository(repo persistence.EnrollmentRepository) *EnrollmentRepository {
	return &EnrollmentRepository{repo: repo}
}

func (a *EnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment application.Enrollment) (application.Enrollment, error) {
	if err := a.repo.CreateEnrollment(ctx, toPersistenceEnrollment(enrollment)); err != nil {
		return application.Enrollment{}, translateError(err)
	}
	return a.GetEnrollment(ctx, enrollment.ID)
}

func (a *EnrollmentRepository) GetEnrollment(ctx context.Context, id string) (application.Enrollment, error) {
	stored, err := a.repo.GetEnrollment(ctx, id)
	if err != nil {
		return application.Enrollment{}, translateError(err)
	}
	return toApplicationEnrollment(stored)
}

func (a *EnrollmentRepository) FindActiveEnrollment(ctx context.Context, matchID, playerID string) (application.Enrollment, error) {
	stored, err := a.repo.FindActiveEnrollment(ctx, matchID, playerID)
	if err != nil {
		return application.Enrollment{}, translateError(err)
	}
	return toApplicationEnrollment(stored)
}

func (a *EnrollmentRepository) ListEnrollments(ctx context.Context, matchID string) ([]application.Enrollment, error) {
	stored, err := a.repo.ListEnrollments(ctx, matchID)
	if err != nil {
		return nil, translateError(err)
	}
	result := make([]application.Enrollment, 0, len(stored))
	for _, enrollment := range stored {
		converted, err := toApplicationEnrollment(enrollment)
		if err != nil {
			return nil, err
		}
		result = append(result, converted)
	}
	return result, nil
}

// SaveTransition writes enrollment and the versioned match together.
func (a *EnrollmentRepository) SaveTransition(ctx context.Context, match application.Match, enrollment application.Enrollment) (application.Match, error) {
	stored, err := a.repo.SaveEnrollmentTransition(ctx, toPersistenceMatch(match), toPersistenceEnrollment(enrollment))
	if err != nil {
		return application.Match{}, translateError(err)
	}
	return toApplicationMatch(stored)
}

// DeleteTransition removes the enrollment and writes the versioned match together.
func (a *EnrollmentRepository) DeleteTransition(ctx context.Context, match application.Match, enrollmentID string) (application.Match, error) {
	stored, err := a.repo.DeleteEnrollmentTransition(ctx, toPersistenceMatch(match), enrollmentID)
	if err != nil {
		return application.Match{}, translateError(err)
	}
	return toApplicationMatch(stored)
}

func toPersistencePlayer(player application.Player) persistence.Player {
	return persistence.Player{
		ID:                 player.ID,
		Name:               player.Name,
		Email:              player.Email,
		Sex:                player.Sex,
		BirthDate:          player.BirthDate,
		SkillLevel:         player.SkillLevel,
		PreferredPositions: append([]string(nil), player.PreferredPositions...),
		CreatedAt:          player.CreatedAt,
		UpdatedAt:          player.UpdatedAt,
	}
}

func toApplicationPlayer(player persistence.Player) application.Player {
	return application.Player{
		ID:                 player.ID,
		Name:               player.Name,
		Email:              player.Email,
		Sex:                player.Sex,
		BirthDate:          player.BirthDate,
		SkillLevel:         player.SkillLevel,
		PreferredPositions: append([]string(nil), player.PreferredPositions...),
		CreatedAt:          player.CreatedAt,
		UpdatedAt:          player.UpdatedAt,
	}
}

func toPersistenceMatch(match application.Match) persistence.Match {
	return persistence.Match{
		ID:              match.ID,
		Title:           match.Title,
		VenueID:         match.VenueID,
		StartsAt:        match.StartsAt,
		DurationMinutes: match.DurationMinutes,
		Kind:            match.Kind,
		Category:        match.Category,
		MaxPlayers:      match.MaxPlayers,
		CostCents:       match.CostCents,
		Description:     match.Description,
		OrganizerID:     match.OrganizerID,
		Status:          string(match.Status),
		ConfirmedCount:  match.ConfirmedCount,
		Version:         match.Version,
		CreatedAt:       match.CreatedAt,
		UpdatedAt:       match.UpdatedAt,
	}
}

func toApplicationMatch(match persistence.Match) (application.Match, error) {
	status, ok := application.ParseMatchStatus(match.Status)
	if !ok {
		return application.Match{}, fmt.Errorf("store: match %s has unknown status %q", match.ID, match.Status)
	}
	return application.Match{
		ID:              match.ID,
		Title:           match.Title,
		VenueID:         match.VenueID,
		StartsAt:        match.StartsAt,
		DurationMinutes: match.DurationMinutes,
		Kind:            match.Kind,
		Category:        match.Category,
		MaxPlayers:      match.MaxPlayers,
		CostCents:       match.CostCents,
		Description:     match.Description,
		OrganizerID:     match.OrganizerID,
		Status:          status,
		ConfirmedCount:  match.ConfirmedCount,
		Version:         match.Version,
		CreatedAt:       match.CreatedAt,
		UpdatedAt:       match.UpdatedAt,
	}, nil
}

func toPersistenceEnrollment(enrollment application.Enrollment) persistence.Enrollment {
	return persistence.Enrollment{
		ID:        enrollment.ID,
		MatchID:   enrollment.MatchID,
		PlayerID:  enrollment.PlayerID,
		Status:    string(enrollment.Status),
		CreatedAt: enrollment.CreatedAt,
		UpdatedAt: enrollment.UpdatedAt,
	}
}

func toApplicationEnrollment(enrollment persistence.Enrollment) (application.Enrollment, error) {
	status, ok := application.ParseEnrollmentStatus(enrollment.Status)
	if !ok {
		return application.Enrollment{}, fmt.Errorf("store: enrollment %s has unknown status %q", enrollment.ID, enrollment.Status)
	}
	return application.Enrollment{
		ID:        enrollment.ID,
		MatchID:   enrollment.MatchID,
		PlayerID:  enrollment.PlayerID,
		Status:    status,
		CreatedAt: enrollment.CreatedAt,
		UpdatedAt: enrollment.UpdatedAt,
	}, nil
}

// translateError maps persistence sentinels onto the application errors the
// services branch on. Other errors pass through unchanged.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return application.ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return application.ErrAlreadyExists
	case errors.Is(err, persistence.ErrConcurrentModification):
		return application.ErrConcurrentUpdate
	default:
		return err
	}
}
