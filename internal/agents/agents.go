// Package agents serves the public profile of assistant personas.
package agents

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/httpx"
	"github.com/orbitha/orbitha/internal/storage"
)

var ErrNotFound = errors.New("agent not found")

// AgentDTO leaves out the system prompt and model.
type AgentDTO struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AvatarURL   string    `json:"avatar_url"`
}

type Service struct {
	agents storage.AgentsStorage
}

func NewService(agents storage.AgentsStorage) *Service {
	return &Service{agents: agents}
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (AgentDTO, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return AgentDTO{}, ErrNotFound
	}
	a, err := s.agents.GetAgentBySlug(ctx, slug)
	if errors.Is(err, storage.ErrNotFound) {
		return AgentDTO{}, ErrNotFound
	}
	if err != nil {
		return AgentDTO{}, fmt.Errorf("get agent: %w", err)
	}
	return AgentDTO{
		ID:          a.ID,
		Slug:        a.Slug,
		Name:        a.Name,
		Description: a.Description,
		AvatarURL:   a.AvatarURL,
	}, nil
}

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// HandleGet handles GET /v1/agents/{slug}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	agent, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, agent)
	case errors.Is(err, ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("agent lookup failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
