package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/blob"
	"github.com/orbitha/orbitha/internal/storage"
)

func (s *Service) ListConversations(ctx context.Context, userID string, agentID uuid.UUID) (ListConversationsResponse, error) {
	if userID == "" {
		return ListConversationsResponse{}, ErrUnauthorized
	}
	convs, err := s.store.Conversations().ListConversations(ctx, userID, agentID)
	if err != nil {
		return ListConversationsResponse{}, fmt.Errorf("list conversations: %w", err)
	}
	resp := ListConversationsResponse{Conversations: make([]ConversationDTO, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, conversationToDTO(c))
	}
	return resp, nil
}

func (s *Service) CreateConversation(ctx context.Context, userID string, req CreateConversationRequest) (ConversationDTO, error) {
	if userID == "" {
		return ConversationDTO{}, ErrUnauthorized
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		return ConversationDTO{}, fmt.Errorf("%w: agent_id must be a uuid", ErrInvalidRequest)
	}
	if _, err := s.store.Agents().GetAgent(ctx, agentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ConversationDTO{}, ErrAgentNotFound
		}
		return ConversationDTO{}, fmt.Errorf("get agent: %w", err)
	}

	style := req.Style
	if style == "" {
		style = StyleNormal
	}
	var title *string
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			title = &t
		}
	}

	now := s.now()
	conv := &storage.Conversation{
		UserID:    userID,
		AgentID:   agentID,
		Title:     title,
		Style:     style,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Conversations().CreateConversation(ctx, conv); err != nil {
		return ConversationDTO{}, fmt.Errorf("create conversation: %w", err)
	}
	return conversationToDTO(*conv), nil
}

// UpdateConversation sets the title and/or style. The chat client uses it to
// store the derived title and every style change.
func (s *Service) UpdateConversation(ctx context.Context, userID string, id uuid.UUID, req UpdateConversationRequest) (ConversationDTO, error) {
	if userID == "" {
		return ConversationDTO{}, ErrUnauthorized
	}
	if req.Title == nil && req.Style == nil {
		return ConversationDTO{}, fmt.Errorf("%w: title or style is required", ErrInvalidRequest)
	}

	now := s.now()
	convs := s.store.Conversations()
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return ConversationDTO{}, fmt.Errorf("%w: title must not be blank", ErrInvalidRequest)
		}
		if err := convs.UpdateConversationTitle(ctx, userID, id, title, now); err != nil {
			return ConversationDTO{}, conversationErr("update title", err)
		}
	}
	if req.Style != nil {
		if !ValidStyle(*req.Style) {
			return ConversationDTO{}, fmt.Errorf("%w: unknown style", ErrInvalidRequest)
		}
		if err := convs.UpdateConversationStyle(ctx, userID, id, *req.Style, now); err != nil {
			return ConversationDTO{}, conversationErr("update style", err)
		}
	}

	conv, err := convs.GetConversation(ctx, userID, id)
	if err != nil {
		return ConversationDTO{}, conversationErr("get conversation", err)
	}
	return conversationToDTO(*conv), nil
}

// DeleteConversation removes the messages first, then the conversation row.
// Meal photos are removed on a best-effort basis.
func (s *Service) DeleteConversation(ctx context.Context, userID string, id uuid.UUID) error {
	if userID == "" {
		return ErrUnauthorized
	}
	if _, err := s.store.Conversations().GetConversation(ctx, userID, id); err != nil {
		return conversationErr("get conversation", err)
	}

	msgs, err := s.store.Messages().ListMessages(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if s.blobs != nil {
		for _, m := range msgs {
			if m.ImageKey == nil {
				continue
			}
			if err := s.blobs.DeleteObject(ctx, *m.ImageKey); err != nil {
				s.logger.Warn("meal photo delete failed", zap.String("key", *m.ImageKey), zap.Error(err))
			}
		}
	}

	if err := s.store.Messages().DeleteConversationMessages(ctx, userID, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := s.store.Conversations().DeleteConversation(ctx, userID, id); err != nil {
		return conversationErr("delete conversation", err)
	}
	return nil
}

// ListMessages returns the transcript oldest first, with short-lived photo URLs.
func (s *Service) ListMessages(ctx context.Context, userID string, id uuid.UUID) (ListMessagesResponse, error) {
	if userID == "" {
		return ListMessagesResponse{}, ErrUnauthorized
	}
	if _, err := s.store.Conversations().GetConversation(ctx, userID, id); err != nil {
		return ListMessagesResponse{}, conversationErr("get conversation", err)
	}
	msgs, err := s.store.Messages().ListMessages(ctx, userID, id)
	if err != nil {
		return ListMessagesResponse{}, fmt.Errorf("list messages: %w", err)
	}

	resp := ListMessagesResponse{Messages: make([]MessageDTO, 0, len(msgs))}
	for _, m := range msgs {
		dto := MessageDTO{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
		if m.ImageKey != nil && s.blobs != nil {
			url, err := s.blobs.PresignGet(ctx, *m.ImageKey, s.opts.PresignTTL)
			if err != nil {
				s.logger.Warn("meal photo presign failed", zap.String("key", *m.ImageKey), zap.Error(err))
			} else {
				dto.ImageURL = &url
			}
		}
		resp.Messages = append(resp.Messages, dto)
	}
	return resp, nil
}

// MessagePhoto streams a stored meal photo back through the API, for clients
// that cannot reach the presigned URL directly.
func (s *Service) MessagePhoto(ctx context.Context, userID string, convID, msgID uuid.UUID) ([]byte, string, error) {
	if userID == "" {
		return nil, "", ErrUnauthorized
	}
	if _, err := s.store.Conversations().GetConversation(ctx, userID, convID); err != nil {
		return nil, "", conversationErr("get conversation", err)
	}
	msgs, err := s.store.Messages().ListMessages(ctx, userID, convID)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}

	var key string
	for _, m := range msgs {
		if m.ID == msgID && m.ImageKey != nil {
			key = *m.ImageKey
			break
		}
	}
	if key == "" || s.blobs == nil {
		return nil, "", ErrPhotoNotFound
	}

	data, err := s.blobs.GetObject(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			return nil, "", ErrPhotoNotFound
		}
		return nil, "", fmt.Errorf("get photo: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

func conversationErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrConversationNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
