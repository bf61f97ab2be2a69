package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/storage/memory"
)

func setupTestService(devEnabled bool) (*Service, *memory.MemoryStorage) {
	store := memory.New()
	cfg := &config.Config{
		JWTSecret:      "test-secret-key-for-testing-only",
		JWTIssuer:      "orbitha-test",
		JWTTTLMinutes:  60,
		AuthDevEnabled: devEnabled,
	}
	return NewService(cfg, store.Profiles(), zap.NewNop()), store
}

func TestHandleDevAuth(t *testing.T) {
	service, store := setupTestService(true)
	handler := NewHandlers(service)

	body, _ := json.Marshal(DevAuthRequest{UserID: "ana", DisplayName: "Ana"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/dev", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.HandleDevAuth(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp DevAuthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "ana", resp.UserID)
	assert.Equal(t, int64((30 * 24 * time.Hour).Seconds()), resp.ExpiresIn)

	profile, err := store.Profiles().GetProfile(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, "Ana", profile.DisplayName)
}

func TestHandleDevAuth_EmptyBodyUsesDevUser(t *testing.T) {
	service, _ := setupTestService(true)
	handler := NewHandlers(service)

	w := httptest.NewRecorder()
	handler.HandleDevAuth(w, httptest.NewRequest(http.MethodPost, "/v1/auth/dev", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp DevAuthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "dev-user", resp.UserID)
}

func TestHandleDevAuth_Disabled(t *testing.T) {
	service, _ := setupTestService(false)
	handler := NewHandlers(service)

	w := httptest.NewRecorder()
	handler.HandleDevAuth(w, httptest.NewRequest(http.MethodPost, "/v1/auth/dev", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignInDevKeepsCalorieGoal(t *testing.T) {
	service, store := setupTestService(true)
	ctx := context.Background()

	_, err := service.SignInDev(ctx, DevAuthRequest{UserID: "bia"})
	require.NoError(t, err)

	p, err := store.Profiles().GetProfile(ctx, "bia")
	require.NoError(t, err)
	goal := 2000
	p.CalorieGoal = &goal
	require.NoError(t, store.Profiles().UpsertProfile(ctx, p))

	_, err = service.SignInDev(ctx, DevAuthRequest{UserID: "bia"})
	require.NoError(t, err)

	p, err = store.Profiles().GetProfile(ctx, "bia")
	require.NoError(t, err)
	require.NotNil(t, p.CalorieGoal)
	assert.Equal(t, 2000, *p.CalorieGoal)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	service, _ := setupTestService(true)
	middleware := NewMiddleware(service, zap.NewNop())

	t.Run("NoTokenPasses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
		w := httptest.NewRecorder()

		var called, hasUser bool
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			_, hasUser = GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		assert.True(t, called)
		assert.False(t, hasUser)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ValidTokenAddsContext", func(t *testing.T) {
		token, err := service.IssueToken("test_user_123", 0)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		var gotSub string
		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotSub, _ = GetUserID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "test_user_123", gotSub)
	})

	t.Run("InvalidTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
		req.Header.Set("Authorization", "Bearer invalid")
		w := httptest.NewRecorder()

		handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("should not call next handler")
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid or expired token"}`, w.Body.String())
	})

	t.Run("PublicPathAlwaysAccessible", func(t *testing.T) {
		for _, path := range []string{"/v1/auth/dev", "/healthz", "/v1/chat/demo"} {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			req.Header.Set("Authorization", "Bearer invalid")
			w := httptest.NewRecorder()

			var called bool
			handler := middleware.OptionalAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			handler.ServeHTTP(w, req)
			assert.True(t, called, path)
		}
	})
}

func TestRequireUser(t *testing.T) {
	service, _ := setupTestService(true)
	middleware := NewMiddleware(service, zap.NewNop())

	handler := middleware.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req = req.WithContext(WithUserID(req.Context(), "ana"))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestVerifyJWT(t *testing.T) {
	service, _ := setupTestService(true)

	token, err := service.IssueToken("test_user_123", time.Hour)
	require.NoError(t, err)

	sub, err := service.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "test_user_123", sub)

	t.Run("NonPositiveTTLUsesConfigured", func(t *testing.T) {
		token, err := service.IssueToken("test_user_123", -time.Minute)
		require.NoError(t, err)
		_, err = service.VerifyJWT(token)
		assert.NoError(t, err)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewService(&config.Config{JWTSecret: "other", JWTIssuer: "orbitha-test", JWTTTLMinutes: 5}, nil, zap.NewNop())
		foreign, err := other.IssueToken("intruder", time.Hour)
		require.NoError(t, err)
		_, err = service.VerifyJWT(foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewService(&config.Config{JWTSecret: "test-secret-key-for-testing-only", JWTIssuer: "elsewhere", JWTTTLMinutes: 5}, nil, zap.NewNop())
		foreign, err := other.IssueToken("intruder", time.Hour)
		require.NoError(t, err)
		_, err = service.VerifyJWT(foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
