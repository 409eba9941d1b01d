package application

import "time"

// Principal represents the authenticated player invoking a service method.
type Principal struct {
	PlayerID string
	Email    string
}

// DefaultSkillLevel is assigned to newly registered players.
const DefaultSkillLevel = "Iniciante"

// Player is a registered player as exposed by the services. The password
// hash never leaves the credential types.
type Player struct {
	ID                 string
	Name               string
	Email              string
	Sex                string
	BirthDate          time.Time
	SkillLevel         string
	PreferredPositions []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PublicProfile is the subset of a player visible to anyone.
type PublicProfile struct {
	ID   string
	Name string
}

// PlayerCredentials pairs a player with the stored password hash.
type PlayerCredentials struct {
	Player       Player
	PasswordHash string
}

// RegisterPlayerParams captures a registration submitted with an invitation token.
type RegisterPlayerParams struct {
	Name            string
	Email           string
	Sex             string
	BirthDate       time.Time
	Password        string
	InvitationToken string
}

// PlayerUpdate holds the editable profile fields; nil fields are left unchanged.
type PlayerUpdate struct {
	Name               *string
	SkillLevel         *string
	PreferredPositions *[]string
}

// ChangePasswordParams captures a password change by the owner.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
}

// InvitationRedemption identifies the invitation consumed by a registration.
type InvitationRedemption struct {
	Token      string
	RedeemedAt time.Time
}

// Invitation statuses.
const (
	InvitationPending  = "pendente"
	InvitationAccepted = "aceito"
)

// Invitation is a single-use registration token sent to an email address.
type Invitation struct {
	ID               string
	Email            string
	InviterID        string
	Token            string
	Status           string
	SentAt           time.Time
	ExpiresAt        time.Time
	AcceptedAt       *time.Time
	AcceptedPlayerID *string
}

// VenueInput captures caller provided venue fields.
type VenueInput struct {
	Name      string
	Address   *string
	City      string
	State     string
	CourtType *string
}

// Venue is a court or gym where matches take place.
type Venue struct {
	ID        string
	Name      string
	Address   *string
	City      string
	State     string
	CourtType *string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchInput captures caller provided fields for a new match.
type MatchInput struct {
	Title           string
	VenueID         string
	StartsAt        time.Time
	DurationMinutes int
	Kind            string
	Category        string
	MaxPlayers      int
	CostCents       int64
	Description     *string
}

// MatchUpdate holds the editable match fields; nil fields are left unchanged.
type MatchUpdate struct {
	Title           *string
	VenueID         *string
	StartsAt        *time.Time
	DurationMinutes *int
	MaxPlayers      *int
	CostCents       *int64
	Description     *string
	Status          *MatchStatus
}

// Match is a scheduled volleyball session.
type Match struct {
	ID              string
	Title           string
	VenueID         string
	StartsAt        time.Time
	DurationMinutes int
	Kind            string
	Category        string
	MaxPlayers      int
	CostCents       int64
	Description     *string
	OrganizerID     string
	Status          MatchStatus
	ConfirmedCount  int
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MatchFilter narrows public match listings. Date selects a calendar day in
// the service time zone.
type MatchFilter struct {
	City   string
	Date   *time.Time
	Status MatchStatus
}

// MatchRepositoryFilter is the store-level form of MatchFilter. A nil
// VenueIDs means any venue; an empty non-nil slice matches nothing.
type MatchRepositoryFilter struct {
	VenueIDs     []string
	StartsAfter  *time.Time
	StartsBefore *time.Time
	Status       MatchStatus
}

// Enrollment is a player's request to join a match.
type Enrollment struct {
	ID        string
	MatchID   string
	PlayerID  string
	Status    EnrollmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the enrollment blocks another request by the same player.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentPending || e.Status == EnrollmentConfirmed
}

// AccessToken is the bearer credential returned by Login.
type AccessToken struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
}

// PasswordReset stores the digest of a reset token sent by email.
type PasswordReset struct {
	ID        string
	PlayerID  string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}
