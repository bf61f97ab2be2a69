package chatclient

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/orbitha/orbitha/internal/actions"
)

const (
	titleMaxRunes = 50
	imageTitle    = "Foto de refeição"
)

type Options struct {
	AgentSlug string
	// ResumeLatestOnLoad selects the most recent conversation after the agent
	// loads. When false every visit starts a new conversation.
	ResumeLatestOnLoad bool
	// OnChange is called with a fresh snapshot after every state change.
	OnChange func(View)
}

// View is an immutable snapshot for renderers.
type View struct {
	State         State
	Thinking      bool
	Agent         *Agent
	Conversations []Conversation
	Active        *Conversation
	Messages      []Message
	Style         string
	LiveText      string
	Summary       *DailySummary
	Err           error
}

// Client drives one chat surface. It is safe for concurrent use; only one
// send may be in flight at a time.
type Client struct {
	backend Backend
	opts    Options

	mu            sync.Mutex
	state         State
	thinking      bool
	agent         *Agent
	conversations []Conversation
	active        *Conversation
	messages      []Message
	style         string
	live          string
	summary       *DailySummary
	err           error
}

func New(backend Backend, opts Options) *Client {
	return &Client{
		backend: backend,
		opts:    opts,
		state:   StateLoadingAgent,
		style:   StyleNormal,
	}
}

func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Client) viewLocked() View {
	v := View{
		State:         c.state,
		Thinking:      c.thinking,
		Conversations: slices.Clone(c.conversations),
		Messages:      slices.Clone(c.messages),
		Style:         c.style,
		LiveText:      c.live,
		Err:           c.err,
	}
	if c.agent != nil {
		a := *c.agent
		v.Agent = &a
	}
	if c.active != nil {
		conv := *c.active
		v.Active = &conv
	}
	if c.summary != nil {
		s := *c.summary
		v.Summary = &s
	}
	return v
}

// update applies fn under the lock and notifies OnChange outside it.
func (c *Client) update(fn func()) {
	c.mu.Lock()
	fn()
	v := c.viewLocked()
	c.mu.Unlock()

	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}
}

// Load fetches the agent by slug and opens a conversation. On failure the
// client stays without an agent and every later operation fails.
func (c *Client) Load(ctx context.Context) error {
	c.update(func() {
		c.state = StateLoadingAgent
		c.err = nil
	})

	agent, err := c.backend.GetAgent(ctx, c.opts.AgentSlug)
	if err != nil {
		err = fmt.Errorf("load agent %q: %w", c.opts.AgentSlug, err)
		c.update(func() { c.err = err })
		return err
	}
	c.update(func() {
		c.agent = &agent
		c.state = StateReady
	})

	convs, err := c.backend.ListConversations(ctx, agent.ID)
	if err != nil {
		c.update(func() { c.err = err })
		return fmt.Errorf("list conversations: %w", err)
	}
	c.update(func() { c.conversations = convs })

	if c.opts.ResumeLatestOnLoad && len(convs) > 0 {
		err = c.SelectConversation(ctx, convs[0].ID)
	} else {
		_, err = c.CreateConversation(ctx)
	}
	if err != nil {
		return err
	}

	c.RefreshSummary(ctx)
	return nil
}

// CreateConversation starts an empty conversation with the current style and makes it active.
func (c *Client) CreateConversation(ctx context.Context) (Conversation, error) {
	agent, style, err := c.agentAndStyle()
	if err != nil {
		return Conversation{}, err
	}

	conv, err := c.backend.CreateConversation(ctx, agent.ID, style)
	if err != nil {
		c.update(func() { c.err = err })
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	c.update(func() {
		c.conversations = append([]Conversation{conv}, c.conversations...)
		active := conv
		c.active = &active
		c.messages = nil
		c.live = ""
		c.state = StateConversationActive
		c.err = nil
	})
	return conv, nil
}

// SelectConversation loads the transcript of id and makes it active.
func (c *Client) SelectConversation(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	idx := slices.IndexFunc(c.conversations, func(conv Conversation) bool { return conv.ID == id })
	c.mu.Unlock()
	if idx < 0 {
		return ErrNoConversation
	}

	msgs, err := c.backend.ListMessages(ctx, id)
	if err != nil {
		c.update(func() { c.err = err })
		return fmt.Errorf("list messages: %w", err)
	}

	c.update(func() {
		i := slices.IndexFunc(c.conversations, func(conv Conversation) bool { return conv.ID == id })
		if i < 0 {
			return
		}
		conv := c.conversations[i]
		c.active = &conv
		c.messages = msgs
		if validStyle(conv.Style) {
			c.style = conv.Style
		}
		c.live = ""
		c.state = StateConversationActive
		c.err = nil
	})
	return nil
}

// DeleteConversation removes id. The server drops the messages before the
// conversation row. Deleting the active conversation selects the most recent
// remaining one, or starts a new one.
func (c *Client) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	if err := c.backend.DeleteConversation(ctx, id); err != nil {
		c.update(func() { c.err = err })
		return fmt.Errorf("delete conversation: %w", err)
	}

	var wasActive bool
	var next *uuid.UUID
	c.update(func() {
		c.conversations = slices.DeleteFunc(c.conversations, func(conv Conversation) bool { return conv.ID == id })
		wasActive = c.active != nil && c.active.ID == id
		if wasActive {
			c.active = nil
			c.messages = nil
			c.state = StateReady
			if len(c.conversations) > 0 {
				nextID := c.conversations[0].ID
				next = &nextID
			}
		}
	})

	if !wasActive {
		return nil
	}
	if next != nil {
		return c.SelectConversation(ctx, *next)
	}
	_, err := c.CreateConversation(ctx)
	return err
}

// ChangeStyle applies style locally at once and stores it on the active conversation.
func (c *Client) ChangeStyle(ctx context.Context, style string) error {
	if !validStyle(style) {
		return ErrUnknownStyle
	}

	var activeID uuid.UUID
	c.update(func() {
		c.style = style
		if c.active != nil {
			c.active.Style = style
			activeID = c.active.ID
		}
	})
	if activeID == uuid.Nil {
		return nil
	}

	if _, err := c.backend.UpdateConversation(ctx, activeID, nil, &style); err != nil {
		c.update(func() { c.err = err })
		return fmt.Errorf("save style: %w", err)
	}
	c.update(func() { c.setConversationStyle(activeID, style) })
	return nil
}

// Send runs one round trip. Empty input and overlapping sends are refused
// without touching any state.
func (c *Client) Send(ctx context.Context, text, imageBase64 string) error {
	text = strings.TrimSpace(text)
	if text == "" && imageBase64 == "" {
		return ErrNothingToSend
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	if c.agent == nil {
		c.mu.Unlock()
		return ErrNoAgent
	}
	prevState := c.state
	c.state = StateSending
	c.thinking = true
	c.live = ""
	c.err = nil
	v := c.viewLocked()
	c.mu.Unlock()
	if c.opts.OnChange != nil {
		c.opts.OnChange(v)
	}

	err := c.send(ctx, text, imageBase64)

	c.update(func() {
		c.thinking = false
		c.live = ""
		if c.active != nil {
			c.state = StateConversationActive
		} else {
			c.state = prevState
		}
		if err != nil {
			c.err = err
		}
	})
	if err != nil {
		return err
	}

	c.RefreshSummary(ctx)
	return nil
}

func (c *Client) send(ctx context.Context, text, imageBase64 string) error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil {
		conv, err := c.CreateConversation(ctx)
		if err != nil {
			return err
		}
		// CreateConversation leaves the sending state; restore it.
		c.update(func() {
			c.state = StateSending
			c.thinking = true
		})
		active = &conv
	}

	c.mu.Lock()
	firstMessage := len(c.messages) == 0
	agentID := c.agent.ID
	style := c.style
	c.messages = append(c.messages, Message{Role: "user", Content: text})
	c.mu.Unlock()

	if firstMessage && active.Title == nil {
		title := deriveTitle(text, imageBase64 != "")
		if _, err := c.backend.UpdateConversation(ctx, active.ID, &title, nil); err != nil {
			return fmt.Errorf("save title: %w", err)
		}
		c.update(func() { c.setConversationTitle(active.ID, title) })
	}

	var raw strings.Builder
	err := c.backend.StreamChat(ctx, SendRequest{
		AgentID:        agentID,
		ConversationID: active.ID,
		Message:        text,
		ImageBase64:    imageBase64,
		Style:          style,
	}, func(content string) {
		raw.WriteString(content)
		cleaned := actions.Clean(raw.String())
		c.update(func() {
			if content != "" {
				c.thinking = false
			}
			c.live = cleaned
		})
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("stream chat: %w", err)
	}

	final := actions.Clean(raw.String())
	if final != "" {
		c.update(func() {
			c.messages = append(c.messages, Message{Role: "assistant", Content: final})
		})
	}
	return nil
}

// RefreshSummary reloads today's aggregate. Failures keep the previous summary.
func (c *Client) RefreshSummary(ctx context.Context) {
	summary, err := c.backend.DailySummary(ctx)
	if err != nil {
		return
	}
	c.update(func() { c.summary = &summary })
}

func (c *Client) agentAndStyle() (Agent, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agent == nil {
		return Agent{}, "", ErrNoAgent
	}
	return *c.agent, c.style, nil
}

func (c *Client) setConversationTitle(id uuid.UUID, title string) {
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			t := title
			c.conversations[i].Title = &t
		}
	}
	if c.active != nil && c.active.ID == id {
		t := title
		c.active.Title = &t
	}
}

func (c *Client) setConversationStyle(id uuid.UUID, style string) {
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			c.conversations[i].Style = style
		}
	}
}

func deriveTitle(text string, hasImage bool) string {
	if text == "" {
		if hasImage {
			return imageTitle
		}
		return "Nova conversa"
	}
	runes := []rune(text)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes)
}
