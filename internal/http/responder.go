package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/galera-volei/internal/application"
	"github.com/example/galera-volei/internal/logging"
)

// Stable error codes carried in error bodies.
const (
	codeBadRequest         = "BAD_REQUEST"
	codeValidation         = "VALIDATION_FAILED"
	codeNotFound           = "NOT_FOUND"
	codeForbidden          = "FORBIDDEN"
	codeConflict           = "CONFLICT"
	codeAlreadyExists      = "ALREADY_EXISTS"
	codeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	codeWrongPassword      = "AUTH_WRONG_PASSWORD"
	codeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	codeInvalidInvitation  = "INVALID_INVITATION"
	codeInvalidResetToken  = "INVALID_RESET_TOKEN"
	codeInternal           = "INTERNAL_ERROR"
)

const badRequestMessage = "Formato de requisição inválido."

var errTrailingData = errors.New("request body must hold a single JSON document")

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	if message == "" {
		message = statusMessage(status)
	}
	r.writeJSON(ctx, w, status, errorResponse{
		ErrorCode: code,
		Message:   message,
		Errors:    fields,
		RequestID: middleware.GetReqID(ctx),
	})
}

func (r responder) badRequest(ctx context.Context, w http.ResponseWriter) {
	r.writeError(ctx, w, http.StatusBadRequest, codeBadRequest, badRequestMessage, nil)
}

func (r responder) invalid(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.writeError(ctx, w, http.StatusUnprocessableEntity, codeValidation, "", fields)
}

// handleServiceError maps application errors onto the HTTP error contract.
// Handlers that give ErrInvalidCredentials a different meaning check for it
// before delegating here.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, "", nil)
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.invalid(ctx, w, vErr.FieldErrors)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, codeNotFound, "", nil)
	case errors.Is(err, application.ErrForbidden):
		r.writeError(ctx, w, http.StatusForbidden, codeForbidden, "", nil)
	case errors.Is(err, application.ErrConflict):
		r.writeError(ctx, w, http.StatusConflict, codeConflict, conflictMessage(err), nil)
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeError(ctx, w, http.StatusConflict, codeAlreadyExists, "Este e-mail já pertence a um usuário cadastrado.", nil)
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, codeInvalidCredentials, "Email ou senha incorretos", nil)
	case errors.Is(err, application.ErrInvalidInvitation):
		r.writeError(ctx, w, http.StatusBadRequest, codeInvalidInvitation, "Token de convite inválido ou expirado.", nil)
	case errors.Is(err, application.ErrInvalidResetToken):
		r.writeError(ctx, w, http.StatusBadRequest, codeInvalidResetToken, "Token inválido ou expirado.", nil)
	case errors.Is(err, application.ErrUnauthenticated):
		r.writeError(ctx, w, http.StatusUnauthorized, codeUnauthenticated, "", nil)
	default:
		r.writeError(ctx, w, http.StatusInternalServerError, codeInternal, "", nil)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Scoped(ctx, r.logger)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Não autenticado."
	case http.StatusForbidden:
		return "Você não tem permissão para realizar esta operação."
	case http.StatusNotFound:
		return "Recurso não encontrado."
	case http.StatusConflict:
		return "A operação conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Dados de entrada inválidos."
	default:
		return "Erro interno do servidor."
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrMatchNotOpen):
		return "Esta partida não está aceitando inscrições."
	case errors.Is(err, application.ErrMatchFull):
		return "A partida já atingiu o número máximo de jogadores."
	case errors.Is(err, application.ErrDuplicateEnrollment):
		return "Você já possui uma inscrição ativa nesta partida."
	case errors.Is(err, application.ErrInvalidTransition):
		return "Mudança de status não permitida."
	case errors.Is(err, application.ErrMatchClosed):
		return "A partida está encerrada."
	case errors.Is(err, application.ErrCapacityBelowConfirmed):
		return "O máximo de jogadores não pode ficar abaixo dos confirmados."
	case errors.Is(err, application.ErrConcurrentUpdate):
		return "A partida foi alterada por outra requisição. Tente novamente."
	default:
		return statusMessage(http.StatusConflict)
	}
}

// decodeJSON reads a single JSON document from r into dst, rejecting
// unknown fields and trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.ErrUnexpectedEOF
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

type errorResponse struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type messageResponse struct {
	Message string `json:"mensagem"`
}
