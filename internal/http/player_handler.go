package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/galera-volei/internal/application"
)

const (
	dateLayout            = "2006-01-02"
	changePasswordMessage = "Sua senha foi alterada com sucesso."
)

type playerService interface {
	Register(ctx context.Context, params application.RegisterPlayerParams) (application.Player, error)
	GetSelf(ctx context.Context, principal application.Principal) (application.Player, error)
	UpdateSelf(ctx context.Context, principal application.Principal, update application.PlayerUpdate) (application.Player, error)
	GetPublicProfile(ctx context.Context, playerID string) (application.PublicProfile, error)
	ChangePassword(ctx context.Context, params application.ChangePasswordParams) error
}

// PlayerHandler serves registration and the /jogadores resources.
type PlayerHandler struct {
	service   playerService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

func NewPlayerHandler(service playerService, logger *slog.Logger) *PlayerHandler {
	base := defaultLogger(logger)
	return &PlayerHandler{service: service, responder: newResponder(base), validator: newRequestValidator(), logger: base}
}

func (h *PlayerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "PlayerHandler", operation, attrs...)
}

func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode registration", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	birthDate, _ := time.Parse(dateLayout, req.BirthDate)
	player, err := h.service.Register(r.Context(), application.RegisterPlayerParams{
		Name:            req.Name,
		Email:           req.Email,
		Sex:             req.Sex,
		BirthDate:       birthDate,
		Password:        req.Password,
		InvitationToken: req.InvitationToken,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPlayerDTO(player))
}

func (h *PlayerHandler) GetSelf(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	player, err := h.service.GetSelf(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPlayerDTO(player))
}

func (h *PlayerHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req updatePlayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "UpdateSelf", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode player update", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	player, err := h.service.UpdateSelf(r.Context(), principal, application.PlayerUpdate{
		Name:               req.Name,
		SkillLevel:         req.SkillLevel,
		PreferredPositions: req.PreferredPositions,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPlayerDTO(player))
}

func (h *PlayerHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "ChangePassword", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode password change", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	err := h.service.ChangePassword(r.Context(), application.ChangePasswordParams{
		Principal:       principal,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		// A wrong current password is a bad request here, not a failed login.
		if errors.Is(err, application.ErrInvalidCredentials) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeWrongPassword, "A senha atual está incorreta.", nil)
			return
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: changePasswordMessage})
}

func (h *PlayerHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "playerID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}
	profile, err := h.service.GetPublicProfile(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, publicPlayerDTO{ID: profile.ID, Name: profile.Name})
}

type registerPlayerRequest struct {
	Name            string `json:"nome" validate:"required,max=120"`
	Email           string `json:"email" validate:"required,email"`
	Sex             string `json:"sexo" validate:"required"`
	BirthDate       string `json:"data_nascimento" validate:"required,datetime=2006-01-02"`
	Password        string `json:"senha" validate:"required,min=8"`
	InvitationToken string `json:"token_convite" validate:"required"`
}

type updatePlayerRequest struct {
	Name               *string   `json:"nome" validate:"omitnil,min=1,max=120"`
	SkillLevel         *string   `json:"nivel_habilidade" validate:"omitnil,min=1"`
	PreferredPositions *[]string `json:"posicoes_preferidas" validate:"omitnil,dive,required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"senha_atual" validate:"required"`
	NewPassword     string `json:"nova_senha" validate:"required,min=8"`
}

type playerDTO struct {
	ID                 string   `json:"id"`
	Name               string   `json:"nome"`
	Email              string   `json:"email"`
	Sex                string   `json:"sexo"`
	BirthDate          string   `json:"data_nascimento"`
	SkillLevel         string   `json:"nivel_habilidade"`
	PreferredPositions []string `json:"posicoes_preferidas"`
}

type publicPlayerDTO struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
}

func toPlayerDTO(player application.Player) playerDTO {
	positions := player.PreferredPositions
	if positions == nil {
		positions = []string{}
	}
	return playerDTO{
		ID:                 player.ID,
		Name:               player.Name,
		Email:              player.Email,
		Sex:                player.Sex,
		BirthDate:          player.BirthDate.Format(dateLayout),
		SkillLevel:         player.SkillLevel,
		PreferredPositions: positions,
	}
}
