package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"time"
)

// SystemInviterID marks invitations created from the command line to bootstrap
// the first players.
const SystemInviterID = "system"

// InvitationRepository captures the persistence operations needed by the invitation service.
type InvitationRepository interface {
	CreateInvitation(ctx context.Context, invitation Invitation) (Invitation, error)
	ListInvitationsByInviter(ctx context.Context, inviterID string) ([]Invitation, error)
}

// PlayerDirectory answers whether an email already belongs to a player.
type PlayerDirectory interface {
	EmailRegistered(ctx context.Context, email string) (bool, error)
}

// InvitationNotifier delivers invitation emails. Implementations must not
// block on delivery.
type InvitationNotifier interface {
	SendInvitation(ctx context.Context, email, token string, expiresAt time.Time) error
}

// InvitationService issues and lists single-use registration invitations.
type InvitationService struct {
	invitations    InvitationRepository
	directory      PlayerDirectory
	notifier       InvitationNotifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	ttl            time.Duration
	logger         *slog.Logger
}

// NewInvitationService wires dependencies for the invitation service.
func NewInvitationService(invitations InvitationRepository, directory PlayerDirectory, notifier InvitationNotifier, idGenerator, tokenGenerator func() string, now func() time.Time, ttl time.Duration) *InvitationService {
	return NewInvitationServiceWithLogger(invitations, directory, notifier, idGenerator, tokenGenerator, now, ttl, nil)
}

// NewInvitationServiceWithLogger wires dependencies and a logger for the invitation service.
func NewInvitationServiceWithLogger(invitations InvitationRepository, directory PlayerDirectory, notifier InvitationNotifier, idGenerator, tokenGenerator func() string, now func() time.Time, ttl time.Duration, logger *slog.Logger) *InvitationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InvitationService{
		invitations:    invitations,
		directory:      directory,
		notifier:       notifier,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		ttl:            ttl,
		logger:         defaultLogger(logger),
	}
}

func (s *InvitationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "InvitationService", operation, attrs...)
}

// CreateInvitation issues a pending invitation for email and queues its delivery.
func (s *InvitationService) CreateInvitation(ctx context.Context, principal Principal, email string) (invitation Invitation, err error) {
	if s == nil {
		err = fmt.Errorf("InvitationService is nil")
		return
	}
	if s.invitations == nil {
		err = fmt.Errorf("invitation repository not configured")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "CreateInvitation", "inviter_id", principal.PlayerID, "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "invitation creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("invitation_id", invitation.ID).InfoContext(ctx, "invitation created")
	}()

	if email == "" {
		err = NewValidationError("email_convidado", "email é obrigatório")
		return
	}
	if _, perr := mail.ParseAddress(email); perr != nil {
		err = NewValidationError("email_convidado", "email inválido")
		return
	}

	if s.directory != nil {
		var registered bool
		registered, err = s.directory.EmailRegistered(ctx, email)
		if err != nil {
			return
		}
		if registered {
			err = ErrAlreadyExists
			return
		}
	}

	now := s.now()
	candidate := Invitation{
		ID:        s.idGenerator(),
		Email:     email,
		InviterID: principal.PlayerID,
		Token:     s.tokenGenerator(),
		Status:    InvitationPending,
		SentAt:    now,
		ExpiresAt: now.Add(s.ttl),
	}

	invitation, err = s.invitations.CreateInvitation(ctx, candidate)
	if err != nil {
		invitation = Invitation{}
		return
	}

	// Delivery problems are logged and never fail the request.
	if s.notifier != nil {
		if nerr := s.notifier.SendInvitation(ctx, invitation.Email, invitation.Token, invitation.ExpiresAt); nerr != nil {
			logger.WarnContext(ctx, "invitation email not queued", "error", nerr)
		}
	}
	return
}

// ListSent returns the caller's invitations ordered by send time.
func (s *InvitationService) ListSent(ctx context.Context, principal Principal) ([]Invitation, error) {
	if s == nil {
		return nil, fmt.Errorf("InvitationService is nil")
	}
	if principal.PlayerID == "" {
		return nil, ErrUnauthenticated
	}
	if s.invitations == nil {
		return []Invitation{}, nil
	}

	invitations, err := s.invitations.ListInvitationsByInviter(ctx, principal.PlayerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Invitation{}, nil
		}
		return nil, err
	}

	out := make([]Invitation, len(invitations))
	copy(out, invitations)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}
