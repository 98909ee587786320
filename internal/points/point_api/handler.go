package point_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/auth"
	"valet-ticketing/internal/logger"
	points "valet-ticketing/internal/points/service"
	"valet-ticketing/internal/utils"
)

type Handler struct {
	PointService *points.PointService
	Logger       *logger.Logger
}

func NewHandler(pointService *points.PointService, log *logger.Logger) *Handler {
	return &Handler{PointService: pointService, Logger: log}
}

func (h *Handler) CreatePoint(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	var req points.CreatePointRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	point, err := h.PointService.CreatePoint(actor, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreatePoint: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreatePoint: %s by %s", point.Name, actor.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("point created", point))
}

func (h *Handler) ListPoints(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	list, err := h.PointService.ListPoints(actor)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListPoints: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) DeletePoint(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	pointID := chi.URLParam(r, "pointID")

	if err := h.PointService.DeletePoint(actor, pointID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeletePoint: %s: %v", pointID, err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("DeletePoint: %s by %s (actor references cleared)", pointID, actor.ID))

	w.WriteHeader(http.StatusNoContent)
}
