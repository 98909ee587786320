package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/auth"
	"valet-ticketing/internal/logger"
	tickets "valet-ticketing/internal/tickets/service"
	"valet-ticketing/internal/utils"
)

type Handler struct {
	TicketService *tickets.TicketService
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.TicketService, log *logger.Logger) *Handler {
	return &Handler{TicketService: ticketService, Logger: log}
}

// CarIn handles POST /tickets/in. The body is a strict input struct;
// unknown fields are rejected at this boundary.
func (h *Handler) CarIn(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	var req tickets.CarInRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CarIn: invalid request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.TicketService.CarIn(actor, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CarIn: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}
	h.Logger.LogTicket("CAR_IN", ticket.ID, fmt.Sprintf("point=%s seq=%d vehicle=%s", ticket.PointID, ticket.SequenceNumber, ticket.VehicleNumber))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("ticket created", ticket))
}

// CarOut handles POST /tickets/out/{ticketID}.
func (h *Handler) CarOut(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	ticketID := chi.URLParam(r, "ticketID")

	ticket, err := h.TicketService.CarOut(actor, ticketID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CarOut: ticket %s: %v", ticketID, err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}
	h.Logger.LogTicket("CAR_OUT", ticket.ID, fmt.Sprintf("point=%s seq=%d", ticket.PointID, ticket.SequenceNumber))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.SuccessResponse("ticket closed", ticket))
}

// ListTickets handles GET /tickets?point=<id>&sort=recent|sequence.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	pointID := r.URL.Query().Get("point")
	sortKey := r.URL.Query().Get("sort")

	list, err := h.TicketService.List(actor, pointID, sortKey)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListTickets: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// LiveStatus handles GET /tickets/live: open tickets per point.
func (h *Handler) LiveStatus(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	counts, err := h.TicketService.LiveStatus(actor)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("LiveStatus: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(counts)
}
