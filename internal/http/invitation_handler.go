package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/galera-volei/internal/application"
)

type invitationService interface {
	CreateInvitation(ctx context.Context, principal application.Principal, email string) (application.Invitation, error)
	ListSent(ctx context.Context, principal application.Principal) ([]application.Invitation, error)
}

// InvitationHandler serves /convites. Tokens travel only by email and are
// never part of a response.
type InvitationHandler struct {
	service   invitationService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

func NewInvitationHandler(service invitationService, logger *slog.Logger) *InvitationHandler {
	base := defaultLogger(logger)
	return &InvitationHandler{service: service, responder: newResponder(base), validator: newRequestValidator(), logger: base}
}

func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req invitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "InvitationHandler", "Create", "error_kind", "bad_request").
			WarnContext(r.Context(), "failed to decode invitation request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	invitation, err := h.service.CreateInvitation(r.Context(), principal, req.Email)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toInvitationDTO(invitation))
}

func (h *InvitationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	invitations, err := h.service.ListSent(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]invitationDTO, 0, len(invitations))
	for _, invitation := range invitations {
		out = append(out, toInvitationDTO(invitation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

type invitationRequest struct {
	Email string `json:"email_convidado" validate:"required,email"`
}

type invitationDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email_convidado"`
	InviterID string `json:"id_convidou"`
	Status    string `json:"status"`
	SentAt    string `json:"data_envio"`
	ExpiresAt string `json:"data_expiracao"`
}

func toInvitationDTO(invitation application.Invitation) invitationDTO {
	return invitationDTO{
		ID:        invitation.ID,
		Email:     invitation.Email,
		InviterID: invitation.InviterID,
		Status:    invitation.Status,
		SentAt:    invitation.SentAt.UTC().Format(time.RFC3339),
		ExpiresAt: invitation.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
