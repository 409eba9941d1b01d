package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// PlayerRepository captures the persistence operations needed by the player service.
type PlayerRepository interface {
	// CreatePlayer redeems the invitation and stores the player atomically.
	// It returns ErrNotFound when the invitation cannot be redeemed.
	CreatePlayer(ctx context.Context, player Player, passwordHash string, redemption InvitationRedemption) (Player, error)
	GetPlayer(ctx context.Context, id string) (Player, error)
	GetCredentials(ctx context.Context, id string) (PlayerCredentials, error)
	UpdatePlayer(ctx context.Context, player Player) (Player, error)
	UpdatePasswordHash(ctx context.Context, playerID, hash string, updatedAt time.Time) error
}

// PlayerService orchestrates registration and self-service profile changes.
type PlayerService struct {
	players     PlayerRepository
	hash        PasswordHasher
	verify      PasswordVerifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPlayerService wires dependencies for the player service.
func NewPlayerService(players PlayerRepository, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time) *PlayerService {
	return NewPlayerServiceWithLogger(players, hash, verify, idGenerator, now, nil)
}

// NewPlayerServiceWithLogger wires dependencies and a logger for the player service.
func NewPlayerServiceWithLogger(players PlayerRepository, hash PasswordHasher, verify PasswordVerifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PlayerService {
	if hash == nil {
		hash = NewPasswordHasher(DefaultArgon2idParams)
	}
	if verify == nil {
		verify = VerifyPassword
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PlayerService{
		players:     players,
		hash:        hash,
		verify:      verify,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PlayerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PlayerService", operation, attrs...)
}

// Register creates a player from a pending invitation token.
func (s *PlayerService) Register(ctx context.Context, params RegisterPlayerParams) (player Player, err error) {
	if s == nil {
		err = fmt.Errorf("PlayerService is nil")
		return
	}
	if s.players == nil {
		err = fmt.Errorf("player repository not configured")
		return
	}

	params.Name = strings.TrimSpace(params.Name)
	params.Email = normalizeEmail(params.Email)
	params.Sex = strings.TrimSpace(params.Sex)
	params.InvitationToken = strings.TrimSpace(params.InvitationToken)

	logger := s.loggerWith(ctx, "Register", "email", params.Email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "player registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("player_id", player.ID).InfoContext(ctx, "player registered")
	}()

	now := s.now()
	if vErr := validateRegistration(params, now); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hash(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	candidate := Player{
		ID:                 s.idGenerator(),
		Name:               params.Name,
		Email:              params.Email,
		Sex:                params.Sex,
		BirthDate:          params.BirthDate,
		SkillLevel:         DefaultSkillLevel,
		PreferredPositions: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	player, err = s.players.CreatePlayer(ctx, candidate, hash, InvitationRedemption{Token: params.InvitationToken, RedeemedAt: now})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidInvitation
		}
		player = Player{}
		return
	}
	return
}

// GetSelf returns the caller's own record.
func (s *PlayerService) GetSelf(ctx context.Context, principal Principal) (Player, error) {
	if s == nil {
		return Player{}, fmt.Errorf("PlayerService is nil")
	}
	if principal.PlayerID == "" {
		return Player{}, ErrUnauthenticated
	}
	return s.players.GetPlayer(ctx, principal.PlayerID)
}

// UpdateSelf applies the non-nil fields of update to the caller's record.
func (s *PlayerService) UpdateSelf(ctx context.Context, principal Principal, update PlayerUpdate) (player Player, err error) {
	if s == nil {
		err = fmt.Errorf("PlayerService is nil")
		return
	}
	if principal.PlayerID == "" {
		err = ErrUnauthenticated
		return
	}

	logger := s.loggerWith(ctx, "UpdateSelf", "player_id", principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "profile update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	if vErr := validatePlayerUpdate(update); vErr.HasErrors() {
		err = vErr
		return
	}

	var existing Player
	existing, err = s.players.GetPlayer(ctx, principal.PlayerID)
	if err != nil {
		return
	}

	updated := existing
	if update.Name != nil {
		updated.Name = strings.TrimSpace(*update.Name)
	}
	if update.SkillLevel != nil {
		updated.SkillLevel = strings.TrimSpace(*update.SkillLevel)
	}
	if update.PreferredPositions != nil {
		updated.PreferredPositions = normalizePositions(*update.PreferredPositions)
	}
	updated.UpdatedAt = s.now()

	player, err = s.players.UpdatePlayer(ctx, updated)
	return
}

// GetPublicProfile returns the id and name of any player.
func (s *PlayerService) GetPublicProfile(ctx context.Context, playerID string) (PublicProfile, error) {
	if s == nil {
		return PublicProfile{}, fmt.Errorf("PlayerService is nil")
	}
	player, err := s.players.GetPlayer(ctx, strings.TrimSpace(playerID))
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{ID: player.ID, Name: player.Name}, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *PlayerService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if s == nil {
		return fmt.Errorf("PlayerService is nil")
	}
	if params.Principal.PlayerID == "" {
		return ErrUnauthenticated
	}

	logger := s.loggerWith(ctx, "ChangePassword", "player_id", params.Principal.PlayerID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if len(params.NewPassword) < MinPasswordLength {
		return NewValidationError("nova_senha", fmt.Sprintf("a senha deve ter pelo menos %d caracteres", MinPasswordLength))
	}

	creds, err := s.players.GetCredentials(ctx, params.Principal.PlayerID)
	if err != nil {
		return err
	}
	if verr := s.verify(creds.PasswordHash, params.CurrentPassword); verr != nil {
		return ErrInvalidCredentials
	}

	hash, err := s.hash(params.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.players.UpdatePasswordHash(ctx, params.Principal.PlayerID, hash, s.now())
}

func validateRegistration(params RegisterPlayerParams, now time.Time) *ValidationError {
	vErr := &ValidationError{}

	if params.Name == "" {
		vErr.add("nome", "nome é obrigatório")
	}
	if params.Email == "" {
		vErr.add("email", "email é obrigatório")
	} else if _, err := mail.ParseAddress(params.Email); err != nil {
		vErr.add("email", "email inválido")
	}
	if params.Sex == "" {
		vErr.add("sexo", "sexo é obrigatório")
	}
	if params.BirthDate.IsZero() {
		vErr.add("data_nascimento", "data de nascimento é obrigatória")
	} else if !params.BirthDate.Before(now) {
		vErr.add("data_nascimento", "data de nascimento deve estar no passado")
	}
	if len(params.Password) < MinPasswordLength {
		vErr.add("senha", fmt.Sprintf("a senha deve ter pelo menos %d caracteres", MinPasswordLength))
	}
	if params.InvitationToken == "" {
		vErr.add("token_convite", "token de convite é obrigatório")
	}

	return vErr
}

func validatePlayerUpdate(update PlayerUpdate) *ValidationError {
	vErr := &ValidationError{}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		vErr.add("nome", "nome não pode ser vazio")
	}
	if update.SkillLevel != nil && strings.TrimSpace(*update.SkillLevel) == "" {
		vErr.add("nivel_habilidade", "nível de habilidade não pode ser vazio")
	}
	return vErr
}

// normalizePositions trims entries and drops blanks and duplicates, keeping order.
func normalizePositions(positions []string) []string {
	out := make([]string, 0, len(positions))
	seen := make(map[string]struct{}, len(positions))
	for _, position := range positions {
		trimmed := strings.TrimSpace(position)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
