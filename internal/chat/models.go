package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/orbitha/orbitha/internal/storage"
)

// Communication styles stored per conversation.
const (
	StyleNormal      = "normal"
	StyleAprendizado = "aprendizado"
	StyleConciso     = "conciso"
	StyleExplicativo = "explicativo"
	StyleFormal      = "formal"
)

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrAgentNotFound        = errors.New("agent not found")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrPhotoNotFound        = errors.New("photo not found")
)

// ValidStyle reports whether s is one of the known styles.
func ValidStyle(s string) bool {
	switch s {
	case StyleNormal, StyleAprendizado, StyleConciso, StyleExplicativo, StyleFormal:
		return true
	}
	return false
}

// CompletionRequest is the body of POST /v1/chat/fitness.
type CompletionRequest struct {
	AgentID        string `json:"agentId" validate:"required,uuid"`
	Message        string `json:"message" validate:"max=8000"`
	ImageBase64    string `json:"imageBase64"`
	ConversationID string `json:"conversationId" validate:"omitempty,uuid"`
	Style          string `json:"style" validate:"omitempty,oneof=normal aprendizado conciso explicativo formal"`
}

// ContentFrame is the payload of every streamed data frame.
type ContentFrame struct {
	Content string `json:"content"`
}

type ConversationDTO struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Title     *string   `json:"title"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListConversationsResponse struct {
	Conversations []ConversationDTO `json:"conversations"`
}

type CreateConversationRequest struct {
	AgentID string  `json:"agent_id" validate:"required,uuid"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Style   string  `json:"style" validate:"omitempty,oneof=normal aprendizado conciso explicativo formal"`
}

// UpdateConversationRequest changes the title, the style or both.
type UpdateConversationRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Style *string `json:"style" validate:"omitempty,oneof=normal aprendizado conciso explicativo formal"`
}

type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages []MessageDTO `json:"messages"`
}

// DemoRequest is the body of the anonymous POST /v1/chat/demo.
type DemoRequest struct {
	Messages []DemoMessage `json:"messages" validate:"required,min=1,max=10,dive"`
}

type DemoMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required,max=2000"`
}

func conversationToDTO(c storage.Conversation) ConversationDTO {
	return ConversationDTO{
		ID:        c.ID,
		AgentID:   c.AgentID,
		Title:     c.Title,
		Style:     c.Style,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
