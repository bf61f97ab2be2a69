package memory

import (
	"context"

	"github.com/orbitha/orbitha/internal/storage"
)

// MemoryStorage is the in-memory backend used for local runs and tests.
type MemoryStorage struct {
	profiles      *ProfilesMemoryStorage
	agents        *AgentsMemoryStorage
	conversations *ConversationsMemoryStorage
	messages      *MessagesMemoryStorage
	meals         *MealsMemoryStorage
	usage         *UsageMemoryStorage
}

// New creates a MemoryStorage with the default agent seeded.
func New() *MemoryStorage {
	m := &MemoryStorage{
		profiles:      NewProfilesMemoryStorage(),
		agents:        NewAgentsMemoryStorage(),
		conversations: NewConversationsMemoryStorage(),
		messages:      NewMessagesMemoryStorage(),
		meals:         NewMealsMemoryStorage(),
		usage:         NewUsageMemoryStorage(),
	}

	agent := storage.DefaultAgent()
	_ = m.agents.UpsertAgent(context.Background(), &agent)

	return m
}

func (m *MemoryStorage) Profiles() storage.ProfilesStorage           { return m.profiles }
func (m *MemoryStorage) Agents() storage.AgentsStorage               { return m.agents }
func (m *MemoryStorage) Conversations() storage.ConversationsStorage { return m.conversations }
func (m *MemoryStorage) Messages() storage.MessagesStorage           { return m.messages }
func (m *MemoryStorage) Meals() storage.MealsStorage                 { return m.meals }
func (m *MemoryStorage) Usage() storage.UsageStorage                 { return m.usage }

// UsageLogs exposes recorded telemetry for tests.
func (m *MemoryStorage) UsageLogs() []storage.UsageLog {
	return m.usage.All()
}

func (m *MemoryStorage) Close() error {
	return nil
}
