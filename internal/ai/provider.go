// Package ai streams chat completions from an OpenAI-compatible gateway.
package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrRateLimited     = errors.New("ai gateway rate limited")
	ErrPaymentRequired = errors.New("ai gateway payment required")
	ErrGateway         = errors.New("ai gateway error")
)

// Message is one prompt turn. ImageURL, usually a data URL, makes the turn multimodal.
type Message struct {
	Role     string
	Text     string
	ImageURL string
}

type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Delta is one stream event. Usage is only set on the final accounting chunk.
type Delta struct {
	Content string
	Usage   *Usage
}

// Stream yields deltas until Recv returns io.EOF.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

// Provider opens completion streams. Errors from Stream are classified as
// ErrRateLimited, ErrPaymentRequired or ErrGateway and happen before any delta.
type Provider interface {
	Stream(ctx context.Context, req CompletionRequest) (Stream, error)
	DefaultModel() string
}
