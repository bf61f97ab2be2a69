package userctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUserID(t *testing.T) {
	_, ok := GetUserID(context.Background())
	assert.False(t, ok)

	ctx := WithUserID(context.Background(), "  user-1 ")
	id, ok := GetUserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user-1", id)

	_, ok = GetUserID(WithUserID(context.Background(), "   "))
	assert.False(t, ok)
}
