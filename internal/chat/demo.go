package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitha/orbitha/internal/ai"
)

const demoMaxTokens = 400

// StartDemo opens an anonymous completion. Only the usage log is persisted.
func (s *Service) StartDemo(ctx context.Context, req DemoRequest) (*Turn, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", ErrInvalidRequest)
	}
	if req.Messages[len(req.Messages)-1].Role != ai.RoleUser {
		return nil, fmt.Errorf("%w: last message must come from the user", ErrInvalidRequest)
	}

	messages := make([]ai.Message, 0, len(req.Messages)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Text: strings.TrimSpace(demoSystemPrompt)})
	for _, m := range req.Messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		messages = append(messages, ai.Message{Role: m.Role, Text: text})
	}

	model := s.provider.DefaultModel()
	maxTokens := s.opts.MaxTokens
	if maxTokens <= 0 || maxTokens > demoMaxTokens {
		maxTokens = demoMaxTokens
	}

	startedAt := s.now()
	stream, err := s.provider.Stream(ctx, ai.CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	return &Turn{
		svc:       s,
		stream:    stream,
		function:  functionDemo,
		startedAt: startedAt,
		Model:     model,
	}, nil
}
