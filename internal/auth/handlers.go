package auth

import (
	"errors"
	"io"
	"net/http"

	"github.com/orbitha/orbitha/internal/httpx"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleDevAuth handles POST /v1/auth/dev. The body is optional.
func (h *Handlers) HandleDevAuth(w http.ResponseWriter, r *http.Request) {
	var req DevAuthRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, 4<<10, &req); err != nil && !errors.Is(err, io.EOF) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.SignInDev(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrDevAuthDisabled) {
			httpx.WriteError(w, http.StatusForbidden, err.Error())
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
