package persistence

import "time"

// Stored status values.
const (
	InvitationPending  = "pendente"
	InvitationAccepted = "aceito"

	EnrollmentPending   = "Pendente"
	EnrollmentConfirmed = "Confirmada"
	EnrollmentRejected  = "Rejeitada"
)

// Player represents a registered player including the password hash.
type Player struct {
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

// Invitation represents a single-use registration token.
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

// Redemption describes the invitation consumed by a player registration.
type Redemption struct {
	Token      string
	RedeemedAt time.Time
}

// PasswordReset stores the hash of a password reset token.
type PasswordReset struct {
	ID        string
	PlayerID  string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}

// Venue represents a court or gym where matches are played.
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

// Match represents a scheduled volleyball match.
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
	Status          string
	ConfirmedCount  int
	Version         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Enrollment represents a player's request to join a match.
type Enrollment struct {
	ID        string
	MatchID   string
	PlayerID  string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the enrollment still counts against the one-per-player rule.
func (e Enrollment) IsActive() bool {
	return e.Status == EnrollmentPending || e.Status == EnrollmentConfirmed
}
