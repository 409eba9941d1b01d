// Package memory provides a process-local implementation of the persistence
// repositories. It backs the "memory" database driver and fast tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/galera-volei/internal/persistence"
)

// Storage keeps every collection in maps guarded by a single RWMutex, which
// makes each multi-record write atomic.
type Storage struct {
	mu          sync.RWMutex
	players     map[string]persistence.Player
	invitations map[string]persistence.Invitation
	resets      map[string]persistence.PasswordReset
	venues      map[string]persistence.Venue
	matches     map[string]persistence.Match
	enrollments map[string]persistence.Enrollment
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		players:     make(map[string]persistence.Player),
		invitations: make(map[string]persistence.Invitation),
		resets:      make(map[string]persistence.PasswordReset),
		venues:      make(map[string]persistence.Venue),
		matches:     make(map[string]persistence.Match),
		enrollments: make(map[string]persistence.Enrollment),
	}
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Storage) Close() error { return nil }

// --- PlayerRepository ---

// CreatePlayerWithInvitation redeems the invitation and stores the player.
func (s *Storage) CreatePlayerWithInvitation(ctx context.Context, player persistence.Player, redemption persistence.Redemption) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var invitation persistence.Invitation
	found := false
	for _, inv := range s.invitations {
		if inv.Token == redemption.Token {
			invitation = inv
			found = true
			break
		}
	}
	if !found || invitation.Status != persistence.InvitationPending || !invitation.ExpiresAt.After(redemption.RedeemedAt) {
		return persistence.ErrNotFound
	}

	if _, ok := s.players[player.ID]; ok {
		return fmt.Errorf("memory: player %s: %w", player.ID, persistence.ErrDuplicate)
	}
	if err := s.ensureUniqueEmailLocked(player.ID, player.Email); err != nil {
		return err
	}

	acceptedAt := redemption.RedeemedAt
	playerID := player.ID
	invitation.Status = persistence.InvitationAccepted
	invitation.AcceptedAt = &acceptedAt
	invitation.AcceptedPlayerID = &playerID
	s.invitations[invitation.ID] = invitation
	s.players[player.ID] = clonePlayer(player)
	return nil
}

// GetPlayer retrieves a player by ID.
func (s *Storage) GetPlayer(ctx context.Context, id string) (persistence.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, ok := s.players[id]
	if !ok {
		return persistence.Player{}, persistence.ErrNotFound
	}
	return clonePlayer(player), nil
}

// GetPlayerByEmail retrieves a player by email address, ignoring case.
func (s *Storage) GetPlayerByEmail(ctx context.Context, email string) (persistence.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, player := range s.players {
		if strings.EqualFold(player.Email, email) {
			return clonePlayer(player), nil
		}
	}
	return persistence.Player{}, persistence.ErrNotFound
}

// UpdatePlayer replaces the profile fields of an existing player. The
// password hash is left untouched.
func (s *Storage) UpdatePlayer(ctx context.Context, player persistence.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.players[player.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.ensureUniqueEmailLocked(player.ID, player.Email); err != nil {
		return err
	}

	updated := clonePlayer(player)
	updated.PasswordHash = current.PasswordHash
	updated.CreatedAt = current.CreatedAt
	s.players[player.ID] = updated
	return nil
}

// UpdatePasswordHash stores a new password hash.
func (s *Storage) UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return persistence.ErrNotFound
	}
	player.PasswordHash = hash
	player.UpdatedAt = updatedAt
	s.players[playerID] = player
	return nil
}

func (s *Storage) ensureUniqueEmailLocked(id, email string) error {
	for existingID, player := range s.players {
		if existingID == id {
			continue
		}
		if strings.EqualFold(player.Email, email) {
			return fmt.Errorf("memory: email %s: %w", email, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- InvitationRepository ---

// CreateInvitation stores a new invitation.
func (s *Storage) CreateInvitation(ctx context.Context, invitation persistence.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invitations[invitation.ID]; ok {
		return fmt.Errorf("memory: invitation %s: %w", invitation.ID, persistence.ErrDuplicate)
	}
	for _, existing := range s.invitations {
		if existing.Token == invitation.Token {
			return fmt.Errorf("memory: invitation token: %w", persistence.ErrDuplicate)
		}
	}
	s.invitations[invitation.ID] = cloneInvitation(invitation)
	return nil
}

// GetInvitationByToken retrieves an invitation by its token.
func (s *Storage) GetInvitationByToken(ctx context.Context, token string) (persistence.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.invitations {
		if inv.Token == token {
			return cloneInvitation(inv), nil
		}
	}
	return persistence.Invitation{}, persistence.ErrNotFound
}

// ListInvitationsByInviter returns the invitations sent by a player ordered by SentAt.
func (s *Storage) ListInvitationsByInviter(ctx context.Context, inviterID string) ([]persistence.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Invitation, 0)
	for _, inv := range s.invitations {
		if inv.InviterID == inviterID {
			out = append(out, cloneInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

// --- PasswordResetRepository ---

// CreatePasswordReset stores a reset token hash.
func (s *Storage) CreatePasswordReset(ctx context.Context, reset persistence.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[reset.PlayerID]; !ok {
		return persistence.ErrConstraintViolation
	}
	for _, existing := range s.resets {
		if existing.TokenHash == reset.TokenHash {
			return fmt.Errorf("memory: reset token: %w", persistence.ErrDuplicate)
		}
	}
	s.resets[reset.ID] = cloneReset(reset)
	return nil
}

// ConsumePasswordReset marks the reset as used and stores the new hash.
func (s *Storage) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (persistence.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, reset := range s.resets {
		if reset.TokenHash != tokenHash {
			continue
		}
		if reset.UsedAt != nil || !reset.ExpiresAt.After(now) {
			return persistence.PasswordReset{}, persistence.ErrNotFound
		}
		player, ok := s.players[reset.PlayerID]
		if !ok {
			return persistence.PasswordReset{}, persistence.ErrNotFound
		}
		usedAt := now
		reset.UsedAt = &usedAt
		s.resets[id] = reset
		player.PasswordHash = passwordHash
		player.UpdatedAt = now
		s.players[player.ID] = player
		return cloneReset(reset), nil
	}
	return persistence.PasswordReset{}, persistence.ErrNotFound
}

// --- VenueRepository ---

// CreateVenue stores a new venue.
func (s *Storage) CreateVenue(ctx context.Context, venue persistence.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.venues[venue.ID]; ok {
		return fmt.Errorf("memory: venue %s: %w", venue.ID, persistence.ErrDuplicate)
	}
	s.venues[venue.ID] = cloneVenue(venue)
	return nil
}

// GetVenue retrieves a venue by ID.
func (s *Storage) GetVenue(ctx context.Context, id string) (persistence.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	venue, ok := s.venues[id]
	if !ok {
		return persistence.Venue{}, persistence.ErrNotFound
	}
	return cloneVenue(venue), nil
}

// ListVenues returns venues ordered by name, optionally restricted to a city.
func (s *Storage) ListVenues(ctx context.Context, filter persistence.VenueFilter) ([]persistence.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	city := strings.TrimSpace(filter.City)
	out := make([]persistence.Venue, 0, len(s.venues))
	for _, venue := range s.venues {
		if city != "" && !strings.EqualFold(venue.City, city) {
			continue
		}
		out = append(out, cloneVenue(venue))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- MatchRepository ---

// CreateMatch stores a new match.
func (s *Storage) CreateMatch(ctx context.Context, match persistence.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[match.ID]; ok {
		return fmt.Errorf("memory: match %s: %w", match.ID, persistence.ErrDuplicate)
	}
	if _, ok := s.venues[match.VenueID]; !ok {
		return persistence.ErrConstraintViolation
	}
	if match.Version == 0 {
		match.Version = 1
	}
	s.matches[match.ID] = cloneMatch(match)
	return nil
}

// GetMatch retrieves a match by ID.
func (s *Storage) GetMatch(ctx context.Context, id string) (persistence.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	match, ok := s.matches[id]
	if !ok {
		return persistence.Match{}, persistence.ErrNotFound
	}
	return cloneMatch(match), nil
}

// UpdateMatch stores the match when its version matches the stored one.
func (s *Storage) UpdateMatch(ctx context.Context, match persistence.Match) (persistence.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateMatchLocked(match)
}

func (s *Storage) updateMatchLocked(match persistence.Match) (persistence.Match, error) {
	current, ok := s.matches[match.ID]
	if !ok {
		return persistence.Match{}, persistence.ErrNotFound
	}
	if current.Version != match.Version {
		return persistence.Match{}, persistence.ErrConcurrentModification
	}
	if match.ConfirmedCount < 0 || match.ConfirmedCount > match.MaxPlayers {
		return persistence.Match{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.venues[match.VenueID]; !ok {
		return persistence.Match{}, persistence.ErrConstraintViolation
	}

	updated := cloneMatch(match)
	updated.Version = current.Version + 1
	updated.CreatedAt = current.CreatedAt
	updated.OrganizerID = current.OrganizerID
	s.matches[match.ID] = updated
	return cloneMatch(updated), nil
}

// ListMatches returns matches ordered by start time then ID.
func (s *Storage) ListMatches(ctx context.Context, filter persistence.MatchFilter) ([]persistence.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var venues map[string]struct{}
	if filter.VenueIDs != nil {
		venues = make(map[string]struct{}, len(filter.VenueIDs))
		for _, id := range filter.VenueIDs {
			venues[id] = struct{}{}
		}
	}

	out := make([]persistence.Match, 0, len(s.matches))
	for _, match := range s.matches {
		if venues != nil {
			if _, ok := venues[match.VenueID]; !ok {
				continue
			}
		}
		if filter.StartsAfter != nil && match.StartsAt.Before(*filter.StartsAfter) {
			continue
		}
		if filter.StartsBefore != nil && !match.StartsAt.Before(*filter.StartsBefore) {
			continue
		}
		if filter.Status != "" && match.Status != filter.Status {
			continue
		}
		out = append(out, cloneMatch(match))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

// --- EnrollmentRepository ---

// CreateEnrollment stores a new enrollment, rejecting a second active
// enrollment for the same match and player.
func (s *Storage) CreateEnrollment(ctx context.Context, enrollment persistence.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[enrollment.MatchID]; !ok {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.enrollments[enrollment.ID]; ok {
		return fmt.Errorf("memory: enrollment %s: %w", enrollment.ID, persistence.ErrDuplicate)
	}
	if enrollment.IsActive() {
		if _, ok := s.findActiveLocked(enrollment.MatchID, enrollment.PlayerID); ok {
			return fmt.Errorf("memory: active enrollment: %w", persistence.ErrDuplicate)
		}
	}
	s.enrollments[enrollment.ID] = enrollment
	return nil
}

// GetEnrollment retrieves an enrollment by ID.
func (s *Storage) GetEnrollment(ctx context.Context, id string) (persistence.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enrollment, ok := s.enrollments[id]
	if !ok {
		return persistence.Enrollment{}, persistence.ErrNotFound
	}
	return enrollment, nil
}

// FindActiveEnrollment returns the pending or confirmed enrollment of a player in a match.
func (s *Storage) FindActiveEnrollment(ctx context.Context, matchID, playerID string) (persistence.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enrollment, ok := s.findActiveLocked(matchID, playerID)
	if !ok {
		return persistence.Enrollment{}, persistence.ErrNotFound
	}
	return enrollment, nil
}

func (s *Storage) findActiveLocked(matchID, playerID string) (persistence.Enrollment, bool) {
	for _, enrollment := range s.enrollments {
		if enrollment.MatchID == matchID && enrollment.PlayerID == playerID && enrollment.IsActive() {
			return enrollment, true
		}
	}
	return persistence.Enrollment{}, false
}

// ListEnrollments returns the enrollments of a match ordered by creation time.
func (s *Storage) ListEnrollments(ctx context.Context, matchID string) ([]persistence.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Enrollment, 0)
	for _, enrollment := range s.enrollments {
		if enrollment.MatchID == matchID {
			out = append(out, enrollment)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SaveEnrollmentTransition writes the enrollment and its match together.
func (s *Storage) SaveEnrollmentTransition(ctx context.Context, match persistence.Match, enrollment persistence.Enrollment) (persistence.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.enrollments[enrollment.ID]
	if !ok || current.MatchID != match.ID {
		return persistence.Match{}, persistence.ErrNotFound
	}
	if enrollment.IsActive() && !current.IsActive() {
		if _, ok := s.findActiveLocked(enrollment.MatchID, enrollment.PlayerID); ok {
			return persistence.Match{}, fmt.Errorf("memory: active enrollment: %w", persistence.ErrDuplicate)
		}
	}

	updated, err := s.updateMatchLocked(match)
	if err != nil {
		return persistence.Match{}, err
	}
	enrollment.CreatedAt = current.CreatedAt
	s.enrollments[enrollment.ID] = enrollment
	return updated, nil
}

// DeleteEnrollmentTransition removes the enrollment and writes its match together.
func (s *Storage) DeleteEnrollmentTransition(ctx context.Context, match persistence.Match, enrollmentID string) (persistence.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.enrollments[enrollmentID]
	if !ok || current.MatchID != match.ID {
		return persistence.Match{}, persistence.ErrNotFound
	}

	updated, err := s.updateMatchLocked(match)
	if err != nil {
		return persistence.Match{}, err
	}
	delete(s.enrollments, enrollmentID)
	return updated, nil
}

func clonePlayer(player persistence.Player) persistence.Player {
	positions := make([]string, len(player.PreferredPositions))
	copy(positions, player.PreferredPositions)
	player.PreferredPositions = positions
	return player
}

func cloneInvitation(inv persistence.Invitation) persistence.Invitation {
	inv.AcceptedAt = cloneTime(inv.AcceptedAt)
	inv.AcceptedPlayerID = cloneString(inv.AcceptedPlayerID)
	return inv
}

func cloneReset(reset persistence.PasswordReset) persistence.PasswordReset {
	reset.UsedAt = cloneTime(reset.UsedAt)
	return reset
}

func cloneVenue(venue persistence.Venue) persistence.Venue {
	venue.Address = cloneString(venue.Address)
	venue.CourtType = cloneString(venue.CourtType)
	return venue
}

func cloneMatch(match persistence.Match) persistence.Match {
	match.Description = cloneString(match.Description)
	return match
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
