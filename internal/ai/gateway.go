package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// GatewayProvider talks to any OpenAI-compatible chat completions endpoint.
type GatewayProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

type GatewayOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

func NewGatewayProvider(opts GatewayOptions, logger *zap.Logger) *GatewayProvider {
	cfg := openai.DefaultConfig(opts.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &GatewayProvider{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		logger:      logger,
	}
}

func (p *GatewayProvider) DefaultModel() string { return p.model }

func (p *GatewayProvider) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = p.temperature
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:         model,
		Messages:      toOpenAIMessages(req.Messages),
		MaxTokens:     maxTokens,
		Temperature:   float32(temperature),
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		classified := classifyError(err)
		p.logger.Warn("ai gateway request failed",
			zap.String("model", model),
			zap.Int("status", statusCode(err)),
			zap.Error(err),
		)
		return nil, classified
	}

	return &gatewayStream{stream: stream}, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ImageURL == "" {
			out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Text})
			continue
		}

		parts := make([]openai.ChatMessagePart, 0, 2)
		if m.Text != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: m.Text})
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    m.ImageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, MultiContent: parts})
	}
	return out
}

type gatewayStream struct {
	stream *openai.ChatCompletionStream
}

func (s *gatewayStream) Recv() (Delta, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Delta{}, io.EOF
		}
		return Delta{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	var d Delta
	for _, choice := range resp.Choices {
		d.Content += choice.Delta.Content
	}
	if resp.Usage != nil {
		d.Usage = &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}
	}
	return d, nil
}

func (s *gatewayStream) Close() error {
	s.stream.Close()
	return nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyError(err error) error {
	switch statusCode(err) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %v", ErrPaymentRequired, err)
	default:
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
}
