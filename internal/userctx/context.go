// Package userctx carries the authenticated caller through request contexts.
package userctx

import (
	"context"
	"strings"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, strings.TrimSpace(userID))
}

// GetUserID reports the caller set by the auth middleware. An empty id counts as absent.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
