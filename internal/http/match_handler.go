package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/example/galera-volei/internal/application"
)

type matchService interface {
	CreateMatch(ctx context.Context, principal application.Principal, input application.MatchInput) (application.Match, error)
	GetMatch(ctx context.Context, matchID string) (application.Match, error)
	ListMatches(ctx context.Context, filter application.MatchFilter) ([]application.Match, error)
	UpdateMatch(ctx context.Context, principal application.Principal, matchID string, update application.MatchUpdate) (application.Match, error)
	RequestEnrollment(ctx context.Context, principal application.Principal, matchID string) (application.Enrollment, error)
	ListEnrollments(ctx context.Context, principal application.Principal, matchID string) ([]application.Enrollment, error)
	DecideEnrollment(ctx context.Context, principal application.Principal, matchID, enrollmentID string, target application.EnrollmentStatus) (application.Enrollment, error)
	CancelOwnEnrollment(ctx context.Context, principal application.Principal, matchID string) error
}

// MatchHandler serves /partidas and the nested enrollment routes.
type MatchHandler struct {
	service   matchService
	location  *time.Location
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

// NewMatchHandler builds a MatchHandler. location interprets the data query
// parameter; nil means UTC.
func NewMatchHandler(service matchService, location *time.Location, logger *slog.Logger) *MatchHandler {
	if location == nil {
		location = time.UTC
	}
	base := defaultLogger(logger)
	return &MatchHandler{service: service, location: location, responder: newResponder(base), validator: newRequestValidator(), logger: base}
}

func (h *MatchHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MatchHandler", operation, attrs...)
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode match request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	match, err := h.service.CreateMatch(r.Context(), principal, application.MatchInput{
		Title:           req.Title,
		VenueID:         req.VenueID,
		StartsAt:        *req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		Kind:            req.Kind,
		Category:        req.Category,
		MaxPlayers:      req.MaxPlayers,
		CostCents:       toCents(req.Cost),
		Description:     req.Description,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMatchDTO(match))
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.MatchFilter{City: query.Get("cidade")}
	fields := map[string]string{}

	if raw := strings.TrimSpace(query.Get("data")); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, h.location)
		if err != nil {
			fields["data"] = "data inválida, use o formato AAAA-MM-DD"
		} else {
			filter.Date = &day
		}
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := application.ParseMatchStatus(raw)
		if !ok {
			fields["status"] = "status inválido"
		} else {
			filter.Status = status
		}
	}
	if len(fields) > 0 {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	matches, err := h.service.ListMatches(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]matchDTO, 0, len(matches))
	for _, match := range matches {
		out = append(out, toMatchDTO(match))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathID(r, "matchID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}
	match, err := h.service.GetMatch(r.Context(), matchID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMatchDTO(match))
}

func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matchID, ok := pathID(r, "matchID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	var req updateMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Update", "match_id", matchID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode match update", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	update := application.MatchUpdate{
		Title:           req.Title,
		VenueID:         req.VenueID,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
		MaxPlayers:      req.MaxPlayers,
		Description:     req.Description,
	}
	if req.Cost != nil {
		cents := toCents(*req.Cost)
		update.CostCents = &cents
	}
	if req.Status != nil {
		status, _ := application.ParseMatchStatus(*req.Status)
		update.Status = &status
	}

	match, err := h.service.UpdateMatch(r.Context(), principal, matchID, update)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMatchDTO(match))
}

func (h *MatchHandler) RequestEnrollment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matchID, ok := pathID(r, "matchID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	enrollment, err := h.service.RequestEnrollment(r.Context(), principal, matchID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, toEnrollmentDTO(enrollment))
}

func (h *MatchHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matchID, ok := pathID(r, "matchID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	enrollments, err := h.service.ListEnrollments(r.Context(), principal, matchID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]enrollmentDTO, 0, len(enrollments))
	for _, enrollment := range enrollments {
		out = append(out, toEnrollmentDTO(enrollment))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *MatchHandler) DecideEnrollment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matchID, okMatch := pathID(r, "matchID")
	enrollmentID, okEnrollment := pathID(r, "enrollmentID")
	if !okMatch || !okEnrollment {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	var req decideEnrollmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "DecideEnrollment", "match_id", matchID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode enrollment decision", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	enrollment, err := h.service.DecideEnrollment(r.Context(), principal, matchID, enrollmentID, application.EnrollmentStatus(req.Status))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEnrollmentDTO(enrollment))
}

func (h *MatchHandler) CancelOwnEnrollment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	matchID, ok := pathID(r, "matchID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}

	if err := h.service.CancelOwnEnrollment(r.Context(), principal, matchID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type createMatchRequest struct {
	Title           string     `json:"titulo" validate:"required,max=120"`
	VenueID         string     `json:"id_local" validate:"required,uuid"`
	StartsAt        *time.Time `json:"data_hora" validate:"required"`
	DurationMinutes int        `json:"duracao_estimada_min" validate:"gt=0"`
	Kind            string     `json:"tipo" validate:"required"`
	Category        string     `json:"categoria" validate:"required"`
	MaxPlayers      int        `json:"max_jogadores" validate:"gte=2"`
	Cost            float64    `json:"custo_por_jogador" validate:"gte=0"`
	Description     *string    `json:"descricao" validate:"omitnil,max=1000"`
}

type updateMatchRequest struct {
	Title           *string    `json:"titulo" validate:"omitnil,min=1,max=120"`
	VenueID         *string    `json:"id_local" validate:"omitnil,uuid"`
	StartsAt        *time.Time `json:"data_hora"`
	DurationMinutes *int       `json:"duracao_estimada_min" validate:"omitnil,gt=0"`
	MaxPlayers      *int       `json:"max_jogadores" validate:"omitnil,gte=2"`
	Cost            *float64   `json:"custo_por_jogador" validate:"omitnil,gte=0"`
	Description     *string    `json:"descricao" validate:"omitnil,max=1000"`
	Status          *string    `json:"status" validate:"omitnil,oneof=AbertaParaAdesao Lotada EmAndamento Finalizada Cancelada"`
}

type decideEnrollmentRequest struct {
	Status string `json:"status" validate:"required,oneof=Confirmada Rejeitada"`
}

type matchDTO struct {
	ID              string  `json:"id"`
	Title           string  `json:"titulo"`
	VenueID         string  `json:"id_local"`
	StartsAt        string  `json:"data_hora"`
	DurationMinutes int     `json:"duracao_estimada_min"`
	Kind            string  `json:"tipo"`
	Category        string  `json:"categoria"`
	MaxPlayers      int     `json:"max_jogadores"`
	Cost            float64 `json:"custo_por_jogador"`
	Description     *string `json:"descricao"`
	OrganizerID     string  `json:"id_organizador"`
	Status          string  `json:"status"`
	ConfirmedCount  int     `json:"jogadores_confirmados_count"`
}

type enrollmentDTO struct {
	ID       string `json:"id"`
	MatchID  string `json:"id_partida"`
	PlayerID string `json:"id_jogador"`
	Status   string `json:"status"`
}

func toMatchDTO(match application.Match) matchDTO {
	return matchDTO{
		ID:              match.ID,
		Title:           match.Title,
		VenueID:         match.VenueID,
		StartsAt:        match.StartsAt.UTC().Format(time.RFC3339),
		DurationMinutes: match.DurationMinutes,
		Kind:            match.Kind,
		Category:        match.Category,
		MaxPlayers:      match.MaxPlayers,
		Cost:            float64(match.CostCents) / 100,
		Description:     match.Description,
		OrganizerID:     match.OrganizerID,
		Status:          string(match.Status),
		ConfirmedCount:  match.ConfirmedCount,
	}
}

func toEnrollmentDTO(enrollment application.Enrollment) enrollmentDTO {
	return enrollmentDTO{
		ID:       enrollment.ID,
		MatchID:  enrollment.MatchID,
		PlayerID: enrollment.PlayerID,
		Status:   string(enrollment.Status),
	}
}

// toCents converts a currency amount to integer cents, rounding half away
// from zero.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
