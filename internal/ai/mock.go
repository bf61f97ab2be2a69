package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// MockProvider streams canned replies in fixed-size chunks. Food mentions or
// a photo produce a save_meal block so the whole pipeline can run offline.
type MockProvider struct {
	// Reply overrides the canned reply when set.
	Reply func(req CompletionRequest) string
	// Err is returned by Stream before any delta when set.
	Err       error
	ChunkSize int

	mu       sync.Mutex
	requests []CompletionRequest
}

func NewMockProvider() *MockProvider {
	return &MockProvider{ChunkSize: 12}
}

func (p *MockProvider) DefaultModel() string { return "mock" }

// Requests returns every request seen so far.
func (p *MockProvider) Requests() []CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompletionRequest(nil), p.requests...)
}

func (p *MockProvider) Stream(ctx context.Context, req CompletionRequest) (Stream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}

	reply := ""
	if p.Reply != nil {
		reply = p.Reply(req)
	} else {
		reply = cannedReply(req)
	}

	size := p.ChunkSize
	if size <= 0 {
		size = 12
	}

	prompt := 0
	for _, m := range req.Messages {
		prompt += approxTokens(m.Text)
		if m.ImageURL != "" {
			prompt += 258
		}
	}

	return &mockStream{
		ctx:    ctx,
		chunks: splitRunes(reply, size),
		usage:  Usage{PromptTokens: prompt, CompletionTokens: approxTokens(reply)},
	}, nil
}

type mockStream struct {
	ctx       context.Context
	chunks    []string
	pos       int
	usageSent bool
	usage     Usage
}

func (s *mockStream) Recv() (Delta, error) {
	if err := s.ctx.Err(); err != nil {
		return Delta{}, err
	}
	if s.pos < len(s.chunks) {
		c := s.chunks[s.pos]
		s.pos++
		return Delta{Content: c}, nil
	}
	if !s.usageSent {
		s.usageSent = true
		u := s.usage
		return Delta{Usage: &u}, nil
	}
	return Delta{}, io.EOF
}

func (s *mockStream) Close() error { return nil }

func splitRunes(text string, size int) []string {
	var chunks []string
	for len(text) > 0 {
		n, i := 0, 0
		for i < len(text) && n < size {
			_, w := utf8.DecodeRuneInString(text[i:])
			i += w
			n++
		}
		chunks = append(chunks, text[:i])
		text = text[i:]
	}
	return chunks
}

func approxTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

type mockFood struct {
	keyword  string
	name     string
	quantity string
	calories int
}

var mockFoods = []mockFood{
	{"arroz", "arroz branco", "150g", 195},
	{"feijão", "feijão carioca", "100g", 77},
	{"feijao", "feijão carioca", "100g", 77},
	{"frango", "peito de frango grelhado", "120g", 198},
	{"salada", "salada verde", "1 prato", 25},
	{"pão", "pão francês", "1 un", 135},
	{"ovo", "ovo cozido", "1 un", 78},
	{"banana", "banana prata", "1 un", 89},
	{"café", "café sem açúcar", "1 xícara", 2},
	{"iogurte", "iogurte natural", "170g", 105},
}

var mealVerbs = []string{"comi", "comer", "almocei", "jantei", "lanchei", "tomei café", "refeição"}

func cannedReply(req CompletionRequest) string {
	var last Message
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i]
			break
		}
	}
	text := strings.ToLower(last.Text)

	var items []map[string]any
	total := 0
	for _, f := range mockFoods {
		if strings.Contains(text, f.keyword) && !hasItem(items, f.name) {
			items = append(items, map[string]any{"name": f.name, "quantity": f.quantity, "calories": f.calories})
			total += f.calories
		}
	}
	if len(items) == 0 && last.ImageURL != "" {
		items = append(items, map[string]any{"name": "prato da foto", "quantity": "1 porção", "calories": 450})
		total = 450
	}

	mentionsMeal := last.ImageURL != ""
	for _, v := range mealVerbs {
		if strings.Contains(text, v) {
			mentionsMeal = true
		}
	}

	if len(items) == 0 || !mentionsMeal {
		return "Estou aqui para ajudar com sua alimentação e seus treinos! " +
			"Me conte o que você comeu ou mande uma foto do prato que eu registro as calorias."
	}

	block, _ := json.Marshal(map[string]any{
		"action":         "save_meal",
		"items":          items,
		"total_calories": total,
	})
	return fmt.Sprintf("Boa! Registrei sua refeição com cerca de %d kcal. "+
		"Lembre de beber água e manter uma boa fonte de proteína.\n\n```json\n%s\n```", total, block)
}

func hasItem(items []map[string]any, name string) bool {
	for _, it := range items {
		if it["name"] == name {
			return true
		}
	}
	return false
}
