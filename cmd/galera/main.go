package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/auth"
	"github.com/example/galera-volei/internal/config"
	httptransport "github.com/example/galera-volei/internal/http"
	"github.com/example/galera-volei/internal/logging"
	"github.com/example/galera-volei/internal/notify"
	"github.com/example/galera-volei/internal/store"
)

const usage = `uso: galera [serve | invite -email <endereço>]

  serve   inicia a API HTTP (padrão)
  invite  emite um convite em nome do sistema, usado para cadastrar o primeiro jogador`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, config.Load); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, load func() (config.Config, error)) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := load()
	if err != nil {
		return err
	}
	logger := logging.New(stdout, cfg.LogLevel, cfg.LogFormat)

	switch command {
	case "serve":
		return serve(ctx, cfg, logger)
	case "invite":
		return invite(ctx, cfg, logger, args, stdout)
	default:
		return fmt.Errorf("comando desconhecido %q\n%s", command, usage)
	}
}

// app holds the wired process components.
type app struct {
	store       *store.Store
	dispatcher  *notify.Dispatcher
	invitations *application.InvitationService
	handler     http.Handler
	logger      *slog.Logger
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	s, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(mailer, notify.DispatcherConfig{
		Workers:   cfg.Mail.Workers,
		QueueSize: cfg.Mail.QueueSize,
	}, logger)
	notifier := notify.NewNotifier(dispatcher, cfg.PublicURL, cfg.Location)

	tokens, err := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTokenTTL)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to build token manager: %w", err)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now
	hash := application.NewPasswordHasher(application.DefaultArgon2idParams)

	playerService := application.NewPlayerServiceWithLogger(s.Players, hash, application.VerifyPassword, idGenerator, now, logger)
	invitationService := application.NewInvitationServiceWithLogger(s.Invitations, s.Players, notifier, idGenerator, tokenGenerator, now, cfg.InvitationTTL, logger)
	venueService := application.NewVenueServiceWithLogger(s.Venues, idGenerator, now, logger)
	matchService := application.NewMatchServiceWithLogger(s.Matches, s.Enrollments, s.Venues, idGenerator, now, cfg.Location, logger)
	authService := application.NewAuthService(application.AuthDependencies{
		Credentials:    s.Players,
		Resets:         s.Resets,
		Tokens:         tokens,
		Notifier:       notifier,
		Hash:           hash,
		Verify:         application.VerifyPassword,
		IDGenerator:    idGenerator,
		TokenGenerator: tokenGenerator,
		Now:            now,
		ResetTTL:       cfg.PasswordResetTTL,
		Logger:         logger,
	})

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Players:        httptransport.NewPlayerHandler(playerService, logger),
		Invitations:    httptransport.NewInvitationHandler(invitationService, logger),
		Venues:         httptransport.NewVenueHandler(venueService, logger),
		Matches:        httptransport.NewMatchHandler(matchService, cfg.Location, logger),
		Sessions:       authService,
		Health:         s,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	return &app{
		store:       s,
		dispatcher:  dispatcher,
		invitations: invitationService,
		handler:     router,
		logger:      logger,
	}, nil
}

// Close drains queued email until ctx expires and then closes the store.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("mail dispatcher: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}

func newMailer(cfg config.MailConfig, logger *slog.Logger) (notify.Mailer, error) {
	switch cfg.Driver {
	case config.MailDriverSMTP:
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure smtp mailer: %w", err)
		}
		return mailer, nil
	default:
		return notify.NewLogMailer(logger), nil
	}
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
		if err := a.Close(shutdownCtx); err != nil {
			logger.Error("failed to release resources", "error", err)
		}
	}()

	logger.Info("galera API listening", "addr", server.Addr, "database", a.store.Driver(), "mail", cfg.Mail.Driver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Join(fmt.Errorf("server encountered error: %w", err), a.Close(closeCtx))
	}
	<-shutdownDone
	return nil
}

func invite(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	flags := flag.NewFlagSet("invite", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	email := flags.String("email", "", "endereço do convidado")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if *email == "" {
		return fmt.Errorf("o parâmetro -email é obrigatório\n%s", usage)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	invitation, err := a.invitations.CreateInvitation(ctx, application.Principal{PlayerID: application.SystemInviterID}, *email)
	if err != nil {
		return fmt.Errorf("falha ao criar convite: %w", err)
	}
	_, err = fmt.Fprintf(stdout, "convite %s enviado para %s (token %s, expira em %s)\n",
		invitation.ID, invitation.Email, invitation.Token, invitation.ExpiresAt.In(cfg.Location).Format(time.RFC3339))
	return err
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
