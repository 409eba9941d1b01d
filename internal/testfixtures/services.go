package testfixtures

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/auth"
	"github.com/example/galera-volei/internal/store"
)

// SigningSecret signs the access tokens issued by factory-built services.
const SigningSecret = "testfixtures-signing-secret-0123456789abcdef"

// FastArgon2idParams keeps password hashing cheap in tests. Hashes remain
// verifiable by application.VerifyPassword because the parameters are
// encoded in each hash.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Outbox records the emails the services would send, keyed by recipient.
type Outbox struct {
	mu          sync.Mutex
	invitations map[string]string
	resets      map[string]string
	count       int
}

// NewOutbox returns an empty Outbox.
func NewOutbox() *Outbox {
	return &Outbox{invitations: map[string]string{}, resets: map[string]string{}}
}

func (o *Outbox) SendInvitation(ctx context.Context, email, token string, expiresAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invitations[strings.ToLower(email)] = token
	o.count++
	return nil
}

func (o *Outbox) SendPasswordReset(ctx context.Context, email, name, token string, expiresAt time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resets[strings.ToLower(email)] = token
	o.count++
	return nil
}

// InvitationToken returns the last invitation token sent to email.
func (o *Outbox) InvitationToken(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	token, ok := o.invitations[strings.ToLower(email)]
	return token, ok
}

// ResetToken returns the last password reset token sent to email.
func (o *Outbox) ResetToken(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	token, ok := o.resets[strings.ToLower(email)]
	return token, ok
}

// Sent reports how many emails were recorded.
func (o *Outbox) Sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, tokens and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Tokens      *TokenGenerator
	Outbox      *Outbox
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Tokens:      &TokenGenerator{},
		Outbox:      NewOutbox(),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Tokens == nil {
		factory.Tokens = &TokenGenerator{}
	}
	if factory.Outbox == nil {
		factory.Outbox = NewOutbox()
	}
	if factory.Location == nil {
		factory.Location = time.UTC
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Clock = clock }
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.IDGenerator = generator }
}

// WithLocation sets the time zone used for match date filters.
func WithLocation(location *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Location = location }
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) { factory.Logger = logger }
}

// Services is a fully wired set of application services over one store.
type Services struct {
	Store       *store.Store
	Tokens      *auth.Manager
	Players     *application.PlayerService
	Invitations *application.InvitationService
	Venues      *application.VenueService
	Matches     *application.MatchService
	Auth        *application.AuthService
}

// Build wires every service over s. A nil s selects a fresh in-memory store.
func (f *ServiceFactory) Build(s *store.Store) (*Services, error) {
	if s == nil {
		s = store.NewMemory()
	}
	tokens, err := auth.NewManager([]byte(SigningSecret), auth.DefaultTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("testfixtures: token manager: %w", err)
	}

	hash := application.NewPasswordHasher(FastArgon2idParams)
	ids := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()

	return &Services{
		Store:       s,
		Tokens:      tokens,
		Players:     application.NewPlayerServiceWithLogger(s.Players, hash, application.VerifyPassword, ids, now, f.Logger),
		Invitations: application.NewInvitationServiceWithLogger(s.Invitations, s.Players, f.Outbox, ids, f.Tokens.Next, now, 7*24*time.Hour, f.Logger),
		Venues:      application.NewVenueServiceWithLogger(s.Venues, ids, now, f.Logger),
		Matches:     application.NewMatchServiceWithLogger(s.Matches, s.Enrollments, s.Venues, ids, now, f.Location, f.Logger),
		Auth: application.NewAuthService(application.AuthDependencies{
			Credentials:    s.Players,
			Resets:         s.Resets,
			Tokens:         tokens,
			Notifier:       f.Outbox,
			Hash:           hash,
			Verify:         application.VerifyPassword,
			IDGenerator:    ids,
			TokenGenerator: f.Tokens.Next,
			Now:            now,
			ResetTTL:       time.Hour,
			Logger:         f.Logger,
		}),
	}, nil
}

// RegisterPlayer invites email on behalf of the system inviter and redeems
// the invitation, returning the new player.
func (f *ServiceFactory) RegisterPlayer(ctx context.Context, svc *Services, name, email, password string) (application.Player, error) {
	if _, err := svc.Invitations.CreateInvitation(ctx, application.Principal{PlayerID: application.SystemInviterID}, email); err != nil {
		return application.Player{}, fmt.Errorf("testfixtures: invite %s: %w", email, err)
	}
	token, ok := f.Outbox.InvitationToken(email)
	if !ok {
		return application.Player{}, fmt.Errorf("testfixtures: no invitation recorded for %s", email)
	}
	return svc.Players.Register(ctx, application.RegisterPlayerParams{
		Name:            name,
		Email:           email,
		Sex:             "F",
		BirthDate:       time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC),
		Password:        password,
		InvitationToken: token,
	})
}
