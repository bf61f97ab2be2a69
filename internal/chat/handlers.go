package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/ai"
	"github.com/orbitha/orbitha/internal/blob"
	"github.com/orbitha/orbitha/internal/httpx"
	"github.com/orbitha/orbitha/internal/ratelimit"
	"github.com/orbitha/orbitha/internal/userctx"
)

const (
	msgRateLimited     = "Muitas requisições no momento. Aguarde alguns segundos e tente novamente."
	msgPaymentRequired = "Os créditos de IA acabaram. Tente novamente mais tarde."
	msgGateway         = "Não foi possível falar com a IA agora. Tente novamente."
	msgDemoLimited     = "Limite da demonstração atingido. Crie uma conta para continuar conversando."

	smallBodyBytes = 64 << 10
)

type Handler struct {
	service      *Service
	demoLimiter  *ratelimit.Limiter
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHandler builds the chat handlers. demoLimiter may be nil to disable
// demo throttling.
func NewHandler(service *Service, demoLimiter *ratelimit.Limiter, logger *zap.Logger) *Handler {
	// base64 inflates by 4/3; the rest covers the text fields.
	maxBody := int64(service.opts.MaxImageBytes)*4/3 + smallBodyBytes
	return &Handler{
		service:      service,
		demoLimiter:  demoLimiter,
		maxBodyBytes: maxBody,
		logger:       logger,
	}
}

// HandleChat handles POST /v1/chat/fitness.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}

	var req CompletionRequest
	if err := httpx.DecodeJSON(r, h.maxBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.service.Start(r.Context(), userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	w.Header().Set("X-Conversation-Id", turn.Conversation.ID.String())
	h.relay(w, r, turn)
}

// HandleDemo handles the anonymous POST /v1/chat/demo.
func (h *Handler) HandleDemo(w http.ResponseWriter, r *http.Request) {
	if !h.demoLimiter.Allow(ratelimit.ClientIP(r)) {
		w.Header().Set("Retry-After", "60")
		httpx.WriteError(w, http.StatusTooManyRequests, msgDemoLimited)
		return
	}

	var req DemoRequest
	if err := httpx.DecodeJSON(r, smallBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := h.service.StartDemo(r.Context(), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.relay(w, r, turn)
}

func (h *Handler) relay(w http.ResponseWriter, r *http.Request, turn *Turn) {
	events, err := httpx.NewEventWriter(w)
	if err != nil {
		turn.stream.Close()
		h.handleError(w, err)
		return
	}

	turn.Relay(r.Context(), func(content string) error {
		return events.Data(ContentFrame{Content: content})
	})

	if err := events.Done(); err != nil {
		h.logger.Debug("write done frame failed", zap.Error(err))
	}
}

// HandleListConversations handles GET /v1/conversations?agent_id=
func (h *Handler) HandleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}
	agentID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("agent_id")))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "agent_id must be a uuid")
		return
	}

	resp, err := h.service.ListConversations(r.Context(), userID, agentID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreateConversation handles POST /v1/conversations.
func (h *Handler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}

	var req CreateConversationRequest
	if err := httpx.DecodeJSON(r, smallBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.CreateConversation(r.Context(), userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, conv)
}

// HandleUpdateConversation handles PATCH /v1/conversations/{id}.
func (h *Handler) HandleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}
	id, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := httpx.DecodeJSON(r, smallBodyBytes, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := httpx.Validate(req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.UpdateConversation(r.Context(), userID, id, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, conv)
}

// HandleDeleteConversation handles DELETE /v1/conversations/{id}.
func (h *Handler) HandleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}
	id, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(r.Context(), userID, id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListMessages handles GET /v1/conversations/{id}/messages.
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}
	id, ok := conversationIDParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.ListMessages(r.Context(), userID, id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleMessagePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := userctx.GetUserID(r.Context())
	if !ok {
		h.handleError(w, ErrUnauthorized)
		return
	}
	id, ok := conversationIDParam(w, r)
	if !ok {
		return
	}
	msgID, err := uuid.Parse(chi.URLParam(r, "messageId"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	data, contentType, err := h.service.MessagePhoto(r.Context(), userID, id, msgID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("write photo failed", zap.Error(err))
	}
}

func conversationIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, blob.ErrInvalidImage),
		errors.Is(err, blob.ErrImageTooLarge):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAgentNotFound),
		errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrPhotoNotFound):
		httpx.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ai.ErrRateLimited):
		httpx.WriteError(w, http.StatusTooManyRequests, msgRateLimited)
	case errors.Is(err, ai.ErrPaymentRequired):
		httpx.WriteError(w, http.StatusPaymentRequired, msgPaymentRequired)
	case errors.Is(err, ai.ErrGateway):
		h.logger.Error("ai gateway failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, msgGateway)
	default:
		h.logger.Error("chat request failed", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
