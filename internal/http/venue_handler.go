package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/galera-volei/internal/application"
)

type venueService interface {
	CreateVenue(ctx context.Context, principal application.Principal, input application.VenueInput) (application.Venue, error)
	GetVenue(ctx context.Context, id string) (application.Venue, error)
	ListVenues(ctx context.Context, city string) ([]application.Venue, error)
}

// VenueHandler serves /locais.
type VenueHandler struct {
	service   venueService
	responder responder
	validator *requestValidator
	logger    *slog.Logger
}

func NewVenueHandler(service venueService, logger *slog.Logger) *VenueHandler {
	base := defaultLogger(logger)
	return &VenueHandler{service: service, responder: newResponder(base), validator: newRequestValidator(), logger: base}
}

func (h *VenueHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req venueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "VenueHandler", "Create", "error_kind", "bad_request").
			WarnContext(r.Context(), "failed to decode venue request", "error", err)
		h.responder.badRequest(r.Context(), w)
		return
	}
	if fields := h.validator.Check(req); fields != nil {
		h.responder.invalid(r.Context(), w, fields)
		return
	}

	venue, err := h.service.CreateVenue(r.Context(), principal, application.VenueInput{
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		CourtType: req.CourtType,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toVenueDTO(venue))
}

func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	venues, err := h.service.ListVenues(r.Context(), r.URL.Query().Get("cidade"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	out := make([]venueDTO, 0, len(venues))
	for _, venue := range venues {
		out = append(out, toVenueDTO(venue))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "venueID")
	if !ok {
		h.responder.handleServiceError(r.Context(), w, application.ErrNotFound)
		return
	}
	venue, err := h.service.GetVenue(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toVenueDTO(venue))
}

type venueRequest struct {
	Name      string  `json:"nome" validate:"required,max=120"`
	Address   *string `json:"endereco" validate:"omitnil,max=255"`
	City      string  `json:"cidade" validate:"required,max=120"`
	State     string  `json:"estado" validate:"required,len=2"`
	CourtType *string `json:"tipo_quadra" validate:"omitnil,max=60"`
}

type venueDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"nome"`
	Address   *string `json:"endereco"`
	City      string  `json:"cidade"`
	State     string  `json:"estado"`
	CourtType *string `json:"tipo_quadra"`
}

func toVenueDTO(venue application.Venue) venueDTO {
	return venueDTO{
		ID:        venue.ID,
		Name:      venue.Name,
		Address:   venue.Address,
		City:      venue.City,
		State:     venue.State,
		CourtType: venue.CourtType,
	}
}
