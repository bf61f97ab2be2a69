package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/actions"
	"github.com/orbitha/orbitha/internal/ai"
	"github.com/orbitha/orbitha/internal/blob"
	"github.com/orbitha/orbitha/internal/nutrition"
	"github.com/orbitha/orbitha/internal/storage"
)

const (
	functionFitness = "chat-fitness"
	functionDemo    = "chat-demo"

	defaultImagePrompt  = "Analise esta foto da minha refeição."
	historyImageText    = "[foto de refeição enviada]"
	mealOnlyReplyText   = "Refeição registrada."
	summaryUnavailable  = "Resumo do dia indisponível no momento."
	defaultHistoryLimit = 20
)

type Options struct {
	HistoryLimit  int
	MaxImageBytes int
	MaxTokens     int
	Temperature   float64
	PresignTTL    time.Duration
}

// Service runs chat completions and owns conversations and their messages.
type Service struct {
	store     storage.Store
	nutrition *nutrition.Service
	provider  ai.Provider
	blobs     blob.Store
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewService(store storage.Store, nutritionSvc *nutrition.Service, provider ai.Provider, blobs blob.Store, opts Options, logger *zap.Logger) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 8 << 20
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		nutrition: nutritionSvc,
		provider:  provider,
		blobs:     blobs,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// WithClock replaces the time source for the service and its nutrition service.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.nutrition.WithClock(now)
	return s
}

// Turn is an opened completion whose deltas have not been relayed yet.
type Turn struct {
	svc       *Service
	stream    ai.Stream
	function  string
	persist   bool
	startedAt time.Time

	UserID        string
	Model         string
	Conversation  storage.Conversation
	UserMessageID uuid.UUID
	MealSlot      string
}

// TurnResult describes what the relay streamed and persisted.
type TurnResult struct {
	Raw         string
	Content     string
	Action      actions.Result
	Meal        *storage.MealEntry
	Assistant   *storage.Message
	Usage       ai.Usage
	Interrupted bool
}

// Start performs every step that can still fail with an HTTP error: it
// resolves the conversation, stores the user message and opens the upstream
// stream. Nothing has been written to the client when it returns.
func (s *Service) Start(ctx context.Context, userID string, req CompletionRequest) (*Turn, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	text := strings.TrimSpace(req.Message)
	if text == "" && strings.TrimSpace(req.ImageBase64) == "" {
		return nil, fmt.Errorf("%w: message or imageBase64 is required", ErrInvalidRequest)
	}
	if req.Style != "" && !ValidStyle(req.Style) {
		return nil, fmt.Errorf("%w: unknown style", ErrInvalidRequest)
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("%w: agentId must be a uuid", ErrInvalidRequest)
	}

	var img *blob.Image
	if strings.TrimSpace(req.ImageBase64) != "" {
		decoded, err := blob.DecodeImage(req.ImageBase64, s.opts.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		img = &decoded
	}

	agent, err := s.store.Agents().GetAgent(ctx, agentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}

	profile, err := s.store.Profiles().GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	now := s.now()
	if err := s.store.Profiles().TouchLastSeen(ctx, userID, now); err != nil {
		s.logger.Warn("touch last seen failed", zap.String("user_id", userID), zap.Error(err))
	}

	conv, err := s.resolveConversation(ctx, userID, agent.ID, req, text, img != nil, now)
	if err != nil {
		return nil, err
	}
	style := req.Style
	if style == "" {
		style = conv.Style
	}

	userMsg := &storage.Message{
		UserID:         userID,
		AgentID:        agent.ID,
		ConversationID: conv.ID,
		Role:           storage.RoleUser,
		Content:        text,
		CreatedAt:      now,
	}
	if img != nil {
		userMsg.ImageKey = s.storeImage(ctx, userID, conv.ID, *img)
	}
	if err := s.store.Messages().InsertMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("insert user message: %w", err)
	}

	history, err := s.store.Messages().ListRecentMessages(ctx, userID, conv.ID, s.opts.HistoryLimit, userMsg.ID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	daySummary, err := s.nutrition.PromptSummary(ctx, userID, now)
	if err != nil {
		s.logger.Warn("daily summary for prompt failed", zap.String("user_id", userID), zap.Error(err))
		daySummary = summaryUnavailable
	}

	loc := s.nutrition.Location()
	slot := nutrition.MealSlot(now, loc)
	system := buildSystemPrompt(promptContext{
		Domain:      agent.SystemPrompt,
		Style:       style,
		DisplayName: profile.DisplayName,
		LocalTime:   now.In(loc),
		MealSlot:    slot,
		DaySummary:  daySummary,
	})

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Text: system})
	messages = append(messages, historyMessages(history)...)

	turn := ai.Message{Role: ai.RoleUser, Text: text}
	if img != nil {
		if turn.Text == "" {
			turn.Text = defaultImagePrompt
		}
		turn.ImageURL = img.DataURL()
	}
	messages = append(messages, turn)

	model := agent.Model
	if model == "" {
		model = s.provider.DefaultModel()
	}

	stream, err := s.provider.Stream(ctx, ai.CompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		// The user turn stays in the transcript so it can be resent.
		s.logger.Warn("upstream refused turn",
			zap.String("event", "chat.upstream_failed"),
			zap.String("conversation_id", conv.ID.String()),
			zap.String("message_id", userMsg.ID.String()),
			zap.Error(err))
		return nil, err
	}

	return &Turn{
		svc:           s,
		stream:        stream,
		function:      functionFitness,
		persist:       true,
		startedAt:     now,
		UserID:        userID,
		Model:         model,
		Conversation:  *conv,
		UserMessageID: userMsg.ID,
		MealSlot:      slot,
	}, nil
}

func (s *Service) resolveConversation(ctx context.Context, userID string, agentID uuid.UUID, req CompletionRequest, text string, hasImage bool, now time.Time) (*storage.Conversation, error) {
	if req.ConversationID == "" {
		style := req.Style
		if style == "" {
			style = StyleNormal
		}
		title := titleFromMessage(text, hasImage)
		conv := &storage.Conversation{
			UserID:    userID,
			AgentID:   agentID,
			Title:     &title,
			Style:     style,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.Conversations().CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return conv, nil
	}

	convID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: conversationId must be a uuid", ErrInvalidRequest)
	}
	conv, err := s.store.Conversations().GetConversation(ctx, userID, convID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv.AgentID != agentID {
		return nil, ErrConversationNotFound
	}
	if err := s.store.Conversations().TouchConversation(ctx, userID, conv.ID, now); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	conv.UpdatedAt = now
	return conv, nil
}

// storeImage uploads the meal photo. A failed upload keeps the turn going without a key.
func (s *Service) storeImage(ctx context.Context, userID string, convID uuid.UUID, img blob.Image) *string {
	if s.blobs == nil {
		return nil
	}
	key := blob.MealPhotoKey(userID, convID, img)
	if _, err := s.blobs.PutObject(ctx, key, img.Data, img.ContentType); err != nil {
		s.logger.Warn("meal photo upload failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &key
}

func historyMessages(history []storage.Message) []ai.Message {
	out := make([]ai.Message, 0, len(history))
	for _, m := range history {
		text := m.Content
		if text == "" {
			if m.ImageKey == nil {
				continue
			}
			text = historyImageText
		}
		role := ai.RoleUser
		if m.Role == storage.RoleAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Text: text})
	}
	return out
}

// Relay forwards every upstream delta to emit, then persists the outcome.
// A failing emit stops forwarding but the upstream is still drained so the
// reply is stored. Persistence runs detached from ctx cancellation and its
// errors are only logged.
func (t *Turn) Relay(ctx context.Context, emit func(content string) error) TurnResult {
	defer t.stream.Close()

	var (
		full       strings.Builder
		usage      ai.Usage
		clientGone bool
		result     TurnResult
	)
	for {
		delta, err := t.stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Interrupted = true
			t.svc.logger.Warn("upstream stream interrupted",
				zap.String("event", "chat.stream_interrupted"),
				zap.String("conversation_id", t.Conversation.ID.String()),
				zap.Error(err))
			break
		}
		if delta.Usage != nil {
			usage = *delta.Usage
		}
		if delta.Content == "" {
			continue
		}
		full.WriteString(delta.Content)
		if clientGone {
			continue
		}
		if err := emit(delta.Content); err != nil {
			clientGone = true
			t.svc.logger.Debug("client stopped reading", zap.String("conversation_id", t.Conversation.ID.String()), zap.Error(err))
		}
	}

	result.Raw = full.String()
	result.Usage = usage
	t.finish(context.WithoutCancel(ctx), &result)
	return result
}

func (t *Turn) finish(ctx context.Context, result *TurnResult) {
	s := t.svc
	now := s.now()
	result.Content = actions.Clean(result.Raw)

	if t.persist {
		result.Action = actions.Parse(result.Raw)
		t.logAction(result.Action)

		if result.Action.Kind == actions.KindMeal {
			entry, err := s.nutrition.RecordMeal(ctx, t.UserID, *result.Action.Meal, t.startedAt)
			if err != nil {
				t.persistFailed("meal_entry", err)
			} else {
				result.Meal = entry
			}
		}

		content := result.Content
		if content == "" && result.Meal != nil {
			content = mealOnlyReplyText
		}
		if content != "" {
			msg := &storage.Message{
				UserID:         t.UserID,
				AgentID:        t.Conversation.AgentID,
				ConversationID: t.Conversation.ID,
				Role:           storage.RoleAssistant,
				Content:        content,
				CreatedAt:      now,
			}
			if err := s.store.Messages().InsertMessage(ctx, msg); err != nil {
				t.persistFailed("assistant_message", err)
			} else {
				result.Assistant = msg
			}
			if err := s.store.Conversations().TouchConversation(ctx, t.UserID, t.Conversation.ID, now); err != nil {
				t.persistFailed("conversation_touch", err)
			}
		}
	}

	usageLog := &storage.UsageLog{
		UserID:           t.UserID,
		FunctionName:     t.function,
		Model:            t.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		EstimatedCostUSD: ai.EstimateCost(t.Model, result.Usage),
		DurationMs:       now.Sub(t.startedAt).Milliseconds(),
		CreatedAt:        now,
	}
	if err := s.store.Usage().InsertUsageLog(ctx, usageLog); err != nil {
		t.persistFailed("usage_log", err)
	}
}

func (t *Turn) logAction(res actions.Result) {
	logger := t.svc.logger.With(zap.String("conversation_id", t.Conversation.ID.String()))
	switch res.Kind {
	case actions.KindMeal:
		logger.Info("structured action parsed",
			zap.String("event", "chat.action_parsed"),
			zap.String("action", res.Action),
			zap.Int("total_calories", res.Meal.TotalCalories),
			zap.Int("items", len(res.Meal.Items)))
	case actions.KindUnsupported:
		logger.Info("structured action ignored",
			zap.String("event", "chat.action_unsupported"),
			zap.String("action", res.Action))
	case actions.KindMalformed:
		logger.Warn("structured action malformed",
			zap.String("event", "chat.action_malformed"),
			zap.String("action", res.Action),
			zap.String("reason", res.Reason))
	default:
		logger.Debug("no structured action", zap.String("event", "chat.action_none"))
	}
}

func (t *Turn) persistFailed(what string, err error) {
	t.svc.logger.Error("post-stream persistence failed",
		zap.String("event", "chat.persist_failed"),
		zap.String("what", what),
		zap.String("user_id", t.UserID),
		zap.String("conversation_id", t.Conversation.ID.String()),
		zap.Error(err))
}
