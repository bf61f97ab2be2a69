package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by every backend when a row does not exist for the caller.
var ErrNotFound = errors.New("not found")

// Store bundles the per-table storages of one backend.
type Store interface {
	Profiles() ProfilesStorage
	Agents() AgentsStorage
	Conversations() ConversationsStorage
	Messages() MessagesStorage
	Meals() MealsStorage
	Usage() UsageStorage

	// Close releases the underlying connection (no-op for memory).
	Close() error
}

// Profile is the per-user row read by the chat pipeline.
type Profile struct {
	UserID      string
	DisplayName string
	CalorieGoal *int
	LastSeenAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProfilesStorage interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// UpsertProfile creates the profile or replaces display name and calorie goal.
	UpsertProfile(ctx context.Context, profile *Profile) error

	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}

// Agent is an assistant persona selectable by end users.
type Agent struct {
	ID           uuid.UUID
	Slug         string
	Name         string
	Description  string
	AvatarURL    string
	SystemPrompt string
	Model        string
	CreatedAt    time.Time
}

type AgentsStorage interface {
	GetAgent(ctx context.Context, id uuid.UUID) (*Agent, error)
	GetAgentBySlug(ctx context.Context, slug string) (*Agent, error)
	UpsertAgent(ctx context.Context, agent *Agent) error
}

// Conversation is one chat thread between a user and an agent.
type Conversation struct {
	ID        uuid.UUID
	UserID    string
	AgentID   uuid.UUID
	Title     *string
	Style     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ConversationsStorage interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, userID string, id uuid.UUID) (*Conversation, error)

	// ListConversations returns the user's conversations with the agent, most recently updated first.
	ListConversations(ctx context.Context, userID string, agentID uuid.UUID) ([]Conversation, error)

	TouchConversation(ctx context.Context, userID string, id uuid.UUID, at time.Time) error
	UpdateConversationTitle(ctx context.Context, userID string, id uuid.UUID, title string, at time.Time) error
	UpdateConversationStyle(ctx context.Context, userID string, id uuid.UUID, style string, at time.Time) error
	DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error
}

// Message is one turn within a conversation.
type Message struct {
	ID             uuid.UUID
	UserID         string
	AgentID        uuid.UUID
	ConversationID uuid.UUID
	Role           string // user | assistant
	Content        string
	ImageKey       *string
	CreatedAt      time.Time
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type MessagesStorage interface {
	InsertMessage(ctx context.Context, msg *Message) error

	// ListMessages returns every message of the conversation, oldest first.
	ListMessages(ctx context.Context, userID string, conversationID uuid.UUID) ([]Message, error)

	// ListRecentMessages returns at most limit of the newest messages of the conversation,
	// oldest first, never including the message with id excludeID.
	ListRecentMessages(ctx context.Context, userID string, conversationID uuid.UUID, limit int, excludeID uuid.UUID) ([]Message, error)

	DeleteConversationMessages(ctx context.Context, userID string, conversationID uuid.UUID) error
}

type MealItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Calories int    `json:"calories"`
}

// MealEntry is one logged meal. LocalDate is the calendar day in the chat time zone.
type MealEntry struct {
	ID            uuid.UUID
	UserID        string
	MealName      string
	Items         []MealItem
	TotalCalories int
	LocalDate     string // YYYY-MM-DD
	CreatedAt     time.Time
}

// DailyTotals is the result of the get_daily_summary aggregation.
type DailyTotals struct {
	TotalCalories int
	MealCount     int
}

type MealsStorage interface {
	InsertMealEntry(ctx context.Context, entry *MealEntry) error
	ListMealEntries(ctx context.Context, userID string, date string) ([]MealEntry, error)
	GetDailySummary(ctx context.Context, userID string, date string) (DailyTotals, error)
}

// UsageLog is write-only telemetry for one completed LLM call.
type UsageLog struct {
	ID               uuid.UUID
	UserID           string
	FunctionName     string
	Model            string
	PromptTokens     int
	CompletionTokens int
	EstimatedCostUSD float64
	DurationMs       int64
	CreatedAt        time.Time
}

type UsageStorage interface {
	InsertUsageLog(ctx context.Context, log *UsageLog) error
}

// DefaultAgentID identifies the fitness agent seeded into every backend.
var DefaultAgentID = uuid.MustParse("0b6f1d7e-5c2a-4d8e-9a63-1f0c2e7b4a90")

// DefaultAgent returns the fitness agent row seeded on open.
func DefaultAgent() Agent {
	return Agent{
		ID:          DefaultAgentID,
		Slug:        "orbitha-fitness",
		Name:        "Orbitha Fit",
		Description: "Nutricionista e personal trainer virtual: registra refeições por texto ou foto e acompanha suas calorias do dia.",
		AvatarURL:   "/avatars/orbitha-fit.png",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
