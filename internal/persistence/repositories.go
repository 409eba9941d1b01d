package persistence

import (
	"context"
	"time"
)

// PlayerRepository stores player profiles and credentials.
type PlayerRepository interface {
	// CreatePlayerWithInvitation redeems the pending, unexpired invitation
	// identified by the redemption token and inserts the player in the same
	// transaction. It returns ErrNotFound when no such invitation exists and
	// ErrDuplicate when the email is taken.
	CreatePlayerWithInvitation(ctx context.Context, player Player, redemption Redemption) error
	GetPlayer(ctx context.Context, id string) (Player, error)
	GetPlayerByEmail(ctx context.Context, email string) (Player, error)
	UpdatePlayer(ctx context.Context, player Player) error
	UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error
}

// InvitationRepository stores invitations.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, invitation Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (Invitation, error)
	ListInvitationsByInviter(ctx context.Context, inviterID string) ([]Invitation, error)
}

// PasswordResetRepository stores password reset tokens.
type PasswordResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset PasswordReset) error
	// ConsumePasswordReset marks the unused, unexpired reset matching tokenHash
	// as used and stores the new password hash for its player atomically.
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (PasswordReset, error)
}

// VenueFilter narrows venue queries.
type VenueFilter struct {
	City string
}

// VenueRepository stores venues.
type VenueRepository interface {
	CreateVenue(ctx context.Context, venue Venue) error
	GetVenue(ctx context.Context, id string) (Venue, error)
	ListVenues(ctx context.Context, filter VenueFilter) ([]Venue, error)
}

// MatchFilter narrows match queries. A nil VenueIDs slice means any venue;
// an empty non-nil slice matches nothing.
type MatchFilter struct {
	VenueIDs     []string
	StartsAfter  *time.Time
	StartsBefore *time.Time
	Status       string
}

// MatchRepository stores matches. UpdateMatch compares match.Version with
// the stored version, increments it on success and returns
// ErrConcurrentModification on mismatch.
type MatchRepository interface {
	CreateMatch(ctx context.Context, match Match) error
	GetMatch(ctx context.Context, id string) (Match, error)
	UpdateMatch(ctx context.Context, match Match) (Match, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]Match, error)
}

// EnrollmentRepository stores enrollments. The transition methods write the
// enrollment and its match (versioned) in one transaction.
type EnrollmentRepository interface {
	CreateEnrollment(ctx context.Context, enrollment Enrollment) error
	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	FindActiveEnrollment(ctx context.Context, matchID, playerID string) (Enrollment, error)
	ListEnrollments(ctx context.Context, matchID string) ([]Enrollment, error)
	SaveEnrollmentTransition(ctx context.Context, match Match, enrollment Enrollment) (Match, error)
	DeleteEnrollmentTransition(ctx context.Context, match Match, enrollmentID string) (Match, error)
}
