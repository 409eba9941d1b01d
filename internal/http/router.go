package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const welcomeMessage = "Bem-vindo à API Galera do Vôlei!"

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig wires handlers and cross-cutting collaborators into the router.
type RouterConfig struct {
	Auth        *AuthHandler
	Players     *PlayerHandler
	Invitations *InvitationHandler
	Venues      *VenueHandler
	Matches     *MatchHandler

	Sessions       SessionValidator
	Health         HealthChecker
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter builds the API router. Routes whose handler is nil are not mounted.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.Timeout(timeout))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, codeNotFound, "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Método não permitido.", nil)
	})

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"message": welcomeMessage})
	})
	r.Get("/healthz", healthHandler(cfg.Health, responder))

	requireSession := func(next http.Handler) http.Handler { return next }
	if cfg.Sessions != nil {
		requireSession = RequireSession(cfg.Sessions, logger)
	}

	if h := cfg.Auth; h != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
		})
	}

	if h := cfg.Players; h != nil {
		r.Route("/jogadores", func(r chi.Router) {
			r.Post("/", h.Register)
			r.Group(func(r chi.Router) {
				r.Use(requireSession)
				r.Get("/me", h.GetSelf)
				r.Put("/me", h.UpdateSelf)
				r.Post("/me/change-password", h.ChangePassword)
			})
			r.Get("/{playerID}", h.GetPublic)
		})
	}

	if h := cfg.Invitations; h != nil {
		r.Route("/convites", func(r chi.Router) {
			r.Use(requireSession)
			r.Post("/", h.Create)
			r.Get("/me", h.ListMine)
		})
	}

	if h := cfg.Venues; h != nil {
		r.Route("/locais", func(r chi.Router) {
			r.Get("/", h.List)
			r.Get("/{venueID}", h.Get)
			r.With(requireSession).Post("/", h.Create)
		})
	}

	if h := cfg.Matches; h != nil {
		r.Route("/partidas", func(r chi.Router) {
			r.Get("/", h.List)
			r.With(requireSession).Post("/", h.Create)
			r.Route("/{matchID}", func(r chi.Router) {
				r.Get("/", h.Get)
				r.Group(func(r chi.Router) {
					r.Use(requireSession)
					r.Put("/", h.Update)
					r.Post("/inscricoes", h.RequestEnrollment)
					r.Get("/inscricoes", h.ListEnrollments)
					r.Delete("/inscricoes/me", h.CancelOwnEnrollment)
					r.Put("/inscricoes/{enrollmentID}", h.DecideEnrollment)
				})
			})
		})
	}

	return r
}

func healthHandler(checker HealthChecker, responder responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// pathID returns the named URL parameter in canonical UUID form. Malformed
// ids cannot name an existing resource, so callers answer them with 404.
func pathID(r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
