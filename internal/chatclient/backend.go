package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backend is everything the client needs from the server.
type Backend interface {
	GetAgent(ctx context.Context, slug string) (Agent, error)
	ListConversations(ctx context.Context, agentID uuid.UUID) ([]Conversation, error)
	CreateConversation(ctx context.Context, agentID uuid.UUID, style string) (Conversation, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, title, style *string) (Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
	DailySummary(ctx context.Context) (DailySummary, error)

	// StreamChat posts req and calls onContent for every content frame until
	// the terminal frame. The user message is stored before the stream opens.
	StreamChat(ctx context.Context, req SendRequest, onContent func(content string)) error
}

// APIError is a non-2xx response with its {"error": ...} message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

const (
	doneMarker   = "[DONE]"
	maxFrameSize = 1 << 20
)

// HTTPBackend talks to the Orbitha API with a bearer token.
type HTTPBackend struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPBackend builds a backend. The client has no overall timeout so streams can run long.
func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 90 * time.Second,
		}},
	}
}

func (b *HTTPBackend) Token() string { return b.token }

// SignInDev fetches a local development token and keeps it for later calls.
func (b *HTTPBackend) SignInDev(ctx context.Context, userID, displayName string) error {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	body := map[string]string{"user_id": userID, "display_name": displayName}
	if err := b.do(ctx, http.MethodPost, "/v1/auth/dev", body, &resp); err != nil {
		return err
	}
	b.token = resp.AccessToken
	return nil
}

func (b *HTTPBackend) GetAgent(ctx context.Context, slug string) (Agent, error) {
	var a Agent
	err := b.do(ctx, http.MethodGet, "/v1/agents/"+url.PathEscape(slug), nil, &a)
	return a, err
}

func (b *HTTPBackend) ListConversations(ctx context.Context, agentID uuid.UUID) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	err := b.do(ctx, http.MethodGet, "/v1/conversations?agent_id="+agentID.String(), nil, &resp)
	return resp.Conversations, err
}

func (b *HTTPBackend) CreateConversation(ctx context.Context, agentID uuid.UUID, style string) (Conversation, error) {
	var c Conversation
	body := map[string]string{"agent_id": agentID.String(), "style": style}
	err := b.do(ctx, http.MethodPost, "/v1/conversations", body, &c)
	return c, err
}

func (b *HTTPBackend) UpdateConversation(ctx context.Context, id uuid.UUID, title, style *string) (Conversation, error) {
	var c Conversation
	body := map[string]*string{}
	if title != nil {
		body["title"] = title
	}
	if style != nil {
		body["style"] = style
	}
	err := b.do(ctx, http.MethodPatch, "/v1/conversations/"+id.String(), body, &c)
	return c, err
}

func (b *HTTPBackend) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	return b.do(ctx, http.MethodDelete, "/v1/conversations/"+id.String(), nil, nil)
}

func (b *HTTPBackend) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	err := b.do(ctx, http.MethodGet, "/v1/conversations/"+conversationID.String()+"/messages", nil, &resp)
	return resp.Messages, err
}

func (b *HTTPBackend) DailySummary(ctx context.Context) (DailySummary, error) {
	var s DailySummary
	err := b.do(ctx, http.MethodGet, "/v1/nutrition/daily-summary", nil, &s)
	return s, err
}

func (b *HTTPBackend) StreamChat(ctx context.Context, req SendRequest, onContent func(content string)) error {
	httpReq, err := b.newRequest(ctx, http.MethodPost, "/v1/chat/fitness", req)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return readEvents(resp.Body, onContent)
}

// readEvents pulls `data:` lines off body until the done marker or EOF.
func readEvents(body io.Reader, onContent func(string)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64<<10), maxFrameSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == doneMarker {
			return nil
		}
		var frame struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			continue
		}
		if frame.Content != "" {
			onContent(frame.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

func (b *HTTPBackend) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	return req, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, body, out any) error {
	req, err := b.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}
