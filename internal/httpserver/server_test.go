package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/ai"
	"github.com/orbitha/orbitha/internal/blob"
	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/nutrition"
	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                 "local",
		Port:                8080,
		JWTSecret:           "test-secret",
		JWTIssuer:           "orbitha",
		JWTTTLMinutes:       60,
		AuthDevEnabled:      true,
		DemoChatPerMinute:   10,
		DemoChatBurst:       3,
		UploadMaxImageBytes: 1 << 20,
		AI:                  config.AIConfig{Mode: config.AIModeMock, MaxOutputTokens: 800},
		Chat:                config.ChatConfig{HistoryLimit: 20, TimeZone: nutrition.DefaultTimeZone},
	}
}

func newTestServer(t *testing.T) (*Server, *memory.MemoryStorage) {
	t.Helper()
	return newTestServerWithConfig(t, testConfig())
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config) (*Server, *memory.MemoryStorage) {
	t.Helper()
	store := memory.New()
	loc := nutrition.LoadLocation(nutrition.DefaultTimeZone)
	srv := NewWithDependencies(cfg, zap.NewNop(), Dependencies{
		Storage:  store,
		Blobs:    blob.NewMemoryStore(),
		Provider: ai.NewMockProvider(),
		Now:      func() time.Time { return time.Date(2025, 3, 10, 12, 30, 0, 0, loc) },
	})
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func devToken(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/v1/auth/dev", "", map[string]string{"user_id": "ana", "display_name": "Ana"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, srv, http.MethodPost, "/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/profile", "/v1/nutrition/daily-summary", "/v1/conversations?agent_id=" + storage.DefaultAgentID.String()} {
		w := do(t, srv, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := do(t, srv, http.MethodPost, "/v1/chat/fitness", "", map[string]string{"agentId": storage.DefaultAgentID.String(), "message": "oi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, srv, http.MethodGet, "/v1/profile", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid or expired token"}`, w.Body.String())
}

func TestChatFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	token := devToken(t, srv)

	w := do(t, srv, http.MethodGet, "/v1/agents/orbitha-fitness", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPatch, "/v1/profile", token, map[string]any{"calorie_goal": 2000})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodPost, "/v1/chat/fitness", token, map[string]string{
		"agentId": storage.DefaultAgentID.String(),
		"message": "Acabei de comer arroz e feijão",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.Equal(t, 1, strings.Count(body, "[DONE]"))
	convID := w.Header().Get("X-Conversation-Id")
	require.NotEmpty(t, convID)

	w = do(t, srv, http.MethodGet, "/v1/nutrition/daily-summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary nutrition.DailySummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "2025-03-10", summary.Date)
	assert.Equal(t, 272, summary.TotalCalories)
	assert.Equal(t, 1, summary.MealCount)
	require.NotNil(t, summary.RemainingCalories)
	assert.Equal(t, 1728, *summary.RemainingCalories)

	w = do(t, srv, http.MethodGet, "/v1/conversations/"+convID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "```")

	w = do(t, srv, http.MethodDelete, "/v1/conversations/"+convID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDemoChatIsPublic(t *testing.T) {
	srv, _ := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/v1/chat/demo", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "Quantas calorias tem um ovo?"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasSuffix(w.Body.String(), "data: [DONE]\n\n"))
}

func postDemoFrom(t *testing.T, srv *Server, forwardedFor string) int {
	t.Helper()
	body := `{"messages":[{"role":"user","content":"oi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/demo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.RemoteAddr = "203.0.113.7:51000"
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w.Code
}

func TestDemoLimitIgnoresForwardedFor(t *testing.T) {
	srv, _ := newTestServer(t)

	// Burst is 3; rotating the header must not reset the peer's bucket.
	for i, xff := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		assert.Equal(t, http.StatusOK, postDemoFrom(t, srv, xff), "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, postDemoFrom(t, srv, "4.4.4.4"))
}

func TestDemoLimitTrustsProxyWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.TrustProxyHeaders = true
	srv, _ := newTestServerWithConfig(t, cfg)

	for i, xff := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "4.4.4.4"} {
		assert.Equal(t, http.StatusOK, postDemoFrom(t, srv, xff), "request %d", i)
	}
	assert.Equal(t, http.StatusOK, postDemoFrom(t, srv, "1.1.1.1"))
	assert.Equal(t, http.StatusOK, postDemoFrom(t, srv, "1.1.1.1"))
	assert.Equal(t, http.StatusTooManyRequests, postDemoFrom(t, srv, "1.1.1.1"))
}
