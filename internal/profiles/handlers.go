package profiles

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/httpx"
	"github.com/orbitha/orbitha/internal/userctx"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleGet handles GET /v1/profile.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := userctx.GetUserID(r.Context())
	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

// HandleUpdate handles PATCH /v1/profile.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, 8<<10, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrInvalidCalorieGoal), errors.Is(err, ErrNothingToUpdate):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("profile request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
