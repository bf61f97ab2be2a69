package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/storage"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrDevAuthDisabled = errors.New("dev auth is disabled")
)

const (
	defaultDevUserID      = "dev-user"
	defaultDevDisplayName = "Atleta"
	devTokenTTL           = 30 * 24 * time.Hour
)

// Service issues and verifies HS256 bearer tokens.
type Service struct {
	config   *config.Config
	profiles storage.ProfilesStorage
	logger   *zap.Logger
}

func NewService(cfg *config.Config, profiles storage.ProfilesStorage, logger *zap.Logger) *Service {
	return &Service{
		config:   cfg,
		profiles: profiles,
		logger:   logger,
	}
}

// SignInDev issues a 30-day token and makes sure the user has a profile row.
// An existing calorie goal is preserved.
func (s *Service) SignInDev(ctx context.Context, req DevAuthRequest) (*DevAuthResponse, error) {
	if !s.config.AuthDevEnabled {
		return nil, ErrDevAuthDisabled
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = defaultDevUserID
	}

	profile := &storage.Profile{UserID: userID, DisplayName: strings.TrimSpace(req.DisplayName)}
	existing, err := s.profiles.GetProfile(ctx, userID)
	switch {
	case err == nil:
		profile.CalorieGoal = existing.CalorieGoal
		if profile.DisplayName == "" {
			profile.DisplayName = existing.DisplayName
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.DisplayName == "" {
		profile.DisplayName = defaultDevDisplayName
	}

	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	token, err := s.IssueToken(userID, devTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate dev JWT: %w", err)
	}

	s.logger.Info("dev token issued", zap.String("user_id", userID))

	return &DevAuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(devTokenTTL.Seconds()),
		UserID:      userID,
	}, nil
}

// IssueToken signs a token for userID. A non-positive ttl uses JWT_TTL_MINUTES.
func (s *Service) IssueToken(userID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Duration(s.config.JWTTTLMinutes) * time.Minute
	}
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.config.JWTIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT returns the subject of a valid token.
func (s *Service) VerifyJWT(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			return []byte(s.config.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
