// Package chatclient is the chat surface state machine shared by the
// terminal client and any other front end.
package chatclient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// State is the top-level client state.
type State string

const (
	StateLoadingAgent       State = "loading-agent"
	StateReady              State = "ready"
	StateConversationActive State = "conversation-active"
	StateSending            State = "sending"
)

const (
	StyleNormal      = "normal"
	StyleAprendizado = "aprendizado"
	StyleConciso     = "conciso"
	StyleExplicativo = "explicativo"
	StyleFormal      = "formal"
)

// Styles lists the communication styles in display order.
var Styles = []string{StyleNormal, StyleAprendizado, StyleConciso, StyleExplicativo, StyleFormal}

var (
	ErrNoAgent        = errors.New("agent not loaded")
	ErrNothingToSend  = errors.New("nothing to send")
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrUnknownStyle   = errors.New("unknown style")
	ErrNoConversation = errors.New("conversation not found")
)

type Agent struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AvatarURL   string    `json:"avatar_url"`
}

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	AgentID   uuid.UUID `json:"agent_id"`
	Title     *string   `json:"title"`
	Style     string    `json:"style"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type DailySummary struct {
	Date              string `json:"date"`
	TotalCalories     int    `json:"total_calories"`
	MealCount         int    `json:"meal_count"`
	CalorieGoal       *int   `json:"calorie_goal"`
	RemainingCalories *int   `json:"remaining_calories"`
	GoalMet           bool   `json:"goal_met"`
}

// SendRequest is the body of the streaming chat call.
type SendRequest struct {
	AgentID        uuid.UUID `json:"agentId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Message        string    `json:"message,omitempty"`
	ImageBase64    string    `json:"imageBase64,omitempty"`
	Style          string    `json:"style,omitempty"`
}

func validStyle(s string) bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}
