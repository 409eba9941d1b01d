package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// CredentialStore exposes player credential lookups required by the auth service.
type CredentialStore interface {
	GetCredentialsByEmail(ctx context.Context, email string) (PlayerCredentials, error)
	GetPlayer(ctx context.Context, id string) (Player, error)
}

// PasswordResetRepository stores reset token digests.
type PasswordResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset PasswordReset) error
	// ConsumePasswordReset marks the unused, unexpired reset matching
	// tokenHash as used and stores passwordHash for its player atomically.
	// It returns ErrNotFound when no such reset exists.
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (PasswordReset, error)
}

// TokenManager issues and verifies signed access tokens.
type TokenManager interface {
	Issue(playerID, email string, issuedAt time.Time) (token string, expiresAt time.Time, err error)
	Verify(token string, now time.Time) (playerID string, err error)
}

// PasswordResetNotifier delivers reset tokens by email without blocking.
type PasswordResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Credentials    CredentialStore
	Resets         PasswordResetRepository
	Tokens         TokenManager
	Notifier       PasswordResetNotifier
	Hash           PasswordHasher
	Verify         PasswordVerifier
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	ResetTTL       time.Duration
	Logger         *slog.Logger
}

// AuthService coordinates login, bearer token validation and password recovery.
type AuthService struct {
	credentials    CredentialStore
	resets         PasswordResetRepository
	tokens         TokenManager
	notifier       PasswordResetNotifier
	hash           PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	resetTTL       time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService, filling defaults for optional collaborators.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Hash == nil {
		deps.Hash = NewPasswordHasher(DefaultArgon2idParams)
	}
	if deps.Verify == nil {
		deps.Verify = VerifyPassword
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = deps.IDGenerator
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ResetTTL <= 0 {
		deps.ResetTTL = time.Hour
	}
	return &AuthService{
		credentials:    deps.Credentials,
		resets:         deps.Resets,
		tokens:         deps.Tokens,
		notifier:       deps.Notifier,
		hash:           deps.Hash,
		verifyPassword: deps.Verify,
		idGenerator:    deps.IDGenerator,
		tokenGenerator: deps.TokenGenerator,
		now:            deps.Now,
		resetTTL:       deps.ResetTTL,
		logger:         defaultLogger(deps.Logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies an email/password pair and issues a bearer access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (token AccessToken, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "Login", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds PlayerCredentials
	creds, err = s.credentials.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if verr := s.verifyPassword(creds.PasswordHash, password); verr != nil {
		err = ErrInvalidCredentials
		return
	}

	var (
		signed    string
		expiresAt time.Time
	)
	signed, expiresAt, err = s.tokens.Issue(creds.Player.ID, creds.Player.Email, s.now())
	if err != nil {
		err = fmt.Errorf("issue access token: %w", err)
		return
	}

	token = AccessToken{Token: signed, TokenType: "bearer", ExpiresAt: expiresAt}
	return
}

// ValidateSession resolves the player behind a bearer token.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		err = ErrUnauthenticated
		return
	}

	playerID, verr := s.tokens.Verify(trimmed, s.now())
	if verr != nil {
		s.loggerWith(ctx, "ValidateSession").DebugContext(ctx, "token rejected", "error", verr)
		err = ErrUnauthenticated
		return
	}

	var player Player
	player, err = s.credentials.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthenticated
		}
		return
	}

	principal = Principal{PlayerID: player.ID, Email: player.Email}
	return
}

// ForgotPassword stores a reset token for a registered email and queues the
// email. Unknown addresses succeed silently so callers cannot probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.credentials == nil || s.resets == nil {
		return fmt.Errorf("auth service not configured")
	}

	email = normalizeEmail(email)
	logger := s.loggerWith(ctx, "ForgotPassword", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset request failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if email == "" {
		return nil
	}

	creds, err := s.credentials.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return err
	}

	now := s.now()
	plain := s.tokenGenerator()
	reset := PasswordReset{
		ID:        s.idGenerator(),
		PlayerID:  creds.Player.ID,
		TokenHash: hashResetToken(plain),
		ExpiresAt: now.Add(s.resetTTL),
		CreatedAt: now,
	}
	if err = s.resets.CreatePasswordReset(ctx, reset); err != nil {
		return err
	}

	if s.notifier != nil {
		if nerr := s.notifier.SendPasswordReset(ctx, creds.Player.Email, creds.Player.Name, plain, reset.ExpiresAt); nerr != nil {
			logger.WarnContext(ctx, "password reset email not queued", "error", nerr)
		}
	}
	logger.With("player_id", creds.Player.ID).InfoContext(ctx, "password reset issued")
	return nil
}

// ResetPassword consumes a reset token and replaces the player's password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.resets == nil {
		return fmt.Errorf("password reset repository not configured")
	}

	logger := s.loggerWith(ctx, "ResetPassword")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password reset failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset completed")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) < MinPasswordLength {
		return NewValidationError("nova_senha", fmt.Sprintf("a senha deve ter pelo menos %d caracteres", MinPasswordLength))
	}

	hash, err := s.hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	reset, err := s.resets.ConsumePasswordReset(ctx, hashResetToken(token), hash, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	logger.DebugContext(ctx, "reset token consumed", "player_id", reset.PlayerID)
	return nil
}

// hashResetToken keeps only a digest of reset tokens at rest.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
