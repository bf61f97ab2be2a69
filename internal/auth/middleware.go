package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/httpx"
)

type Middleware struct {
	service *Service
	logger  *zap.Logger
}

func NewMiddleware(service *Service, logger *zap.Logger) *Middleware {
	return &Middleware{service: service, logger: logger}
}

// OptionalAuth validates a Bearer token only when one is provided.
// A bad token is rejected with 401; no token leaves the request anonymous.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticateHeader(authHeader)
		if err != nil {
			m.logger.Debug("auth token rejected", zap.String("path", r.URL.Path), zap.Error(err))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireUser rejects anonymous requests. It runs after OptionalAuth.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) authenticateHeader(authHeader string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidToken
	}
	return m.service.VerifyJWT(strings.TrimSpace(parts[1]))
}

func isPublicPath(path string) bool {
	return path == "/healthz" ||
		strings.HasPrefix(path, "/v1/auth/") ||
		path == "/v1/chat/demo"
}
