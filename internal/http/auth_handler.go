package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/galera-volei/internal/application"
)

const (
	forgotPasswordMessage = "Se um usuário com este e-mail estiver cadastrado, um link para recuperação de senha foi enviado."
	resetPasswordMessage  = "Senha alterada com sucesso."
)

type authService interface {
	Login(ctx context.Context, email, password string) (application.AccessToken, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler serves login and password recovery.
type AuthHandler struct {
	service   authService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), validator: newRequestValidator(), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Login", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode login request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, tokenResponse{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "ForgotPassword", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode forgot password request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: forgotPasswordMessage})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "ResetPassword", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode reset password request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: resetPasswordMessage})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"senha" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   string `json:"expires_at"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"nova_senha" validate:"required,min=8"`
}
