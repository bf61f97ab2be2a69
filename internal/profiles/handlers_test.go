package profiles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/memory"
	"github.com/orbitha/orbitha/internal/userctx"
)

func setupProfileHandler(t *testing.T) (*Handler, *memory.MemoryStorage) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Profiles().UpsertProfile(context.Background(), &storage.Profile{
		UserID:      "ana",
		DisplayName: "Ana",
	}))
	return NewHandler(NewService(store.Profiles()), zap.NewNop()), store
}

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(userctx.WithUserID(r.Context(), userID))
}

func TestHandleGet(t *testing.T) {
	h, _ := setupProfileHandler(t)

	w := httptest.NewRecorder()
	h.HandleGet(w, authed(httptest.NewRequest(http.MethodGet, "/v1/profile", nil), "ana"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ProfileDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ana", resp.UserID)
	assert.Equal(t, "Ana", resp.DisplayName)
	assert.Nil(t, resp.CalorieGoal)

	w = httptest.NewRecorder()
	h.HandleGet(w, authed(httptest.NewRequest(http.MethodGet, "/v1/profile", nil), "bruno"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.HandleGet(w, httptest.NewRequest(http.MethodGet, "/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleUpdate(t *testing.T) {
	h, store := setupProfileHandler(t)

	w := httptest.NewRecorder()
	body := `{"display_name":"  Ana Paula ","calorie_goal":1800}`
	h.HandleUpdate(w, authed(httptest.NewRequest(http.MethodPatch, "/v1/profile", strings.NewReader(body)), "ana"))
	require.Equal(t, http.StatusOK, w.Code)

	p, err := store.Profiles().GetProfile(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", p.DisplayName)
	require.NotNil(t, p.CalorieGoal)
	assert.Equal(t, 1800, *p.CalorieGoal)

	// Only the name: the goal survives.
	w = httptest.NewRecorder()
	h.HandleUpdate(w, authed(httptest.NewRequest(http.MethodPatch, "/v1/profile", strings.NewReader(`{"display_name":"Ana"}`)), "ana"))
	require.Equal(t, http.StatusOK, w.Code)
	p, err = store.Profiles().GetProfile(context.Background(), "ana")
	require.NoError(t, err)
	require.NotNil(t, p.CalorieGoal)

	// Explicit null clears it.
	w = httptest.NewRecorder()
	h.HandleUpdate(w, authed(httptest.NewRequest(http.MethodPatch, "/v1/profile", strings.NewReader(`{"calorie_goal":null}`)), "ana"))
	require.Equal(t, http.StatusOK, w.Code)
	p, err = store.Profiles().GetProfile(context.Background(), "ana")
	require.NoError(t, err)
	assert.Nil(t, p.CalorieGoal)
}

func TestHandleUpdate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		body   string
		want   int
	}{
		{"unauthenticated", "", `{"display_name":"x"}`, http.StatusUnauthorized},
		{"invalid json", "ana", `{`, http.StatusBadRequest},
		{"empty body", "ana", `{}`, http.StatusBadRequest},
		{"blank name", "ana", `{"display_name":"   "}`, http.StatusBadRequest},
		{"goal too low", "ana", `{"calorie_goal":500}`, http.StatusBadRequest},
		{"goal too high", "ana", `{"calorie_goal":9000}`, http.StatusBadRequest},
		{"goal not a number", "ana", `{"calorie_goal":"muito"}`, http.StatusBadRequest},
		{"unknown user", "bruno", `{"display_name":"Bruno"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := setupProfileHandler(t)
			req := httptest.NewRequest(http.MethodPatch, "/v1/profile", strings.NewReader(tt.body))
			if tt.userID != "" {
				req = authed(req, tt.userID)
			}
			w := httptest.NewRecorder()
			h.HandleUpdate(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
