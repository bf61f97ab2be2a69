package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s Stream) (string, *Usage) {
	t.Helper()
	var b strings.Builder
	var usage *Usage
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), usage
		}
		require.NoError(t, err)
		b.WriteString(d.Content)
		if d.Usage != nil {
			usage = d.Usage
		}
	}
}

func TestMockProviderEmitsMealBlockForFood(t *testing.T) {
	p := NewMockProvider()
	stream, err := p.Stream(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Text: "Acabei de comer arroz e feijão"}},
	})
	require.NoError(t, err)

	text, usage := drain(t, stream)
	assert.Contains(t, text, "```json")
	assert.Contains(t, text, `"action":"save_meal"`)
	assert.Contains(t, text, `"total_calories":272`)
	require.NotNil(t, usage)
	assert.Positive(t, usage.CompletionTokens)
	assert.Len(t, p.Requests(), 1)
}

func TestMockProviderSmallTalk(t *testing.T) {
	stream, err := NewMockProvider().Stream(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Text: "bom dia"}},
	})
	require.NoError(t, err)

	text, _ := drain(t, stream)
	assert.NotContains(t, text, "```")
}

func TestMockProviderChunksOnRuneBoundaries(t *testing.T) {
	p := &MockProvider{ChunkSize: 1, Reply: func(CompletionRequest) string { return "açaí" }}
	stream, err := p.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	var chunks []string
	for {
		d, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if d.Content != "" {
			chunks = append(chunks, d.Content)
		}
	}
	assert.Equal(t, []string{"a", "ç", "a", "í"}, chunks)
}

func TestMockProviderError(t *testing.T) {
	p := &MockProvider{Err: ErrRateLimited}
	_, err := p.Stream(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestMockStreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := NewMockProvider().Stream(ctx, CompletionRequest{})
	require.NoError(t, err)
	cancel()

	_, err = stream.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}
