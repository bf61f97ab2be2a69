package agents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/memory"
)

func TestHandleGet(t *testing.T) {
	store := memory.New()
	h := NewHandler(NewService(store.Agents()), zap.NewNop())

	r := chi.NewRouter()
	r.Get("/v1/agents/{slug}", h.HandleGet)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agents/orbitha-fitness", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var dto AgentDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, storage.DefaultAgentID, dto.ID)
	assert.Equal(t, "Orbitha Fit", dto.Name)
	assert.NotContains(t, w.Body.String(), "system_prompt")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agents/desconhecido", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
