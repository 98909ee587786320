package user_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"valet-ticketing/internal/apperr"
	"valet-ticketing/internal/auth"
	"valet-ticketing/internal/logger"
	users "valet-ticketing/internal/users/service"
	"valet-ticketing/internal/utils"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

func NewHandler(userService *users.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: userService, Logger: log}
}

func (h *Handler) CreateActor(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	var req users.CreateActorRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.UserService.CreateActor(actor, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateActor: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateActor: %s role=%s by %s", user.Username, user.Role, actor.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(utils.SuccessResponse("actor created", user))
}

func (h *Handler) UpdateActor(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	var req users.UpdateActorRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.UserService.UpdateActor(actor, userID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("UpdateActor: %s: %v", userID, err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.SuccessResponse("actor updated", user))
}

func (h *Handler) DeleteActor(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())
	userID := chi.URLParam(r, "userID")

	if err := h.UserService.DeleteActor(actor, userID); err != nil {
		h.Logger.Error("API", fmt.Sprintf("DeleteActor: %s: %v", userID, err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFromContext(r.Context())

	staff, err := h.UserService.ListStaff(actor)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListStaff: %v", err))
		http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(staff)
}
