// Package sqlite is the single-file backend for deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orbitha/orbitha/internal/storage"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL DEFAULT '',
	calorie_goal INTEGER,
	last_seen_at TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS agents (
	id            TEXT PRIMARY KEY,
	slug          TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	avatar_url    TEXT NOT NULL DEFAULT '',
	system_prompt TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	agent_id   TEXT NOT NULL REFERENCES agents(id),
	title      TEXT,
	style      TEXT NOT NULL DEFAULT 'normal',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_user_agent ON conversations (user_id, agent_id, updated_at);
CREATE TABLE IF NOT EXISTS messages (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	user_id         TEXT NOT NULL,
	agent_id        TEXT NOT NULL,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	image_key       TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, seq);
CREATE TABLE IF NOT EXISTS meal_entries (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	meal_name      TEXT NOT NULL,
	items          TEXT NOT NULL DEFAULT '[]',
	total_calories INTEGER NOT NULL,
	local_date     TEXT NOT NULL,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meal_entries_user_date ON meal_entries (user_id, local_date);
CREATE TABLE IF NOT EXISTS usage_logs (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT,
	function_name      TEXT NOT NULL,
	model              TEXT NOT NULL,
	prompt_tokens      INTEGER NOT NULL DEFAULT 0,
	completion_tokens  INTEGER NOT NULL DEFAULT 0,
	estimated_cost_usd REAL NOT NULL DEFAULT 0,
	duration_ms        INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT NOT NULL
);
`

// SQLiteStorage implements storage.Store on top of database/sql.
type SQLiteStorage struct {
	db            *sql.DB
	profiles      *ProfilesStorage
	agents        *AgentsStorage
	conversations *ConversationsStorage
	messages      *MessagesStorage
	meals         *MealsStorage
	usage         *UsageStorage
}

// Open opens (or creates) the database file, applies the schema and seeds the default agent.
func Open(ctx context.Context, path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	s := New(db)
	agent := storage.DefaultAgent()
	if err := s.agents.UpsertAgent(ctx, &agent); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed default agent: %w", err)
	}
	return s, nil
}

// New wraps an already opened database without touching the schema.
func New(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{
		db:            db,
		profiles:      &ProfilesStorage{db: db},
		agents:        &AgentsStorage{db: db},
		conversations: &ConversationsStorage{db: db},
		messages:      &MessagesStorage{db: db},
		meals:         &MealsStorage{db: db},
		usage:         &UsageStorage{db: db},
	}
}

func (s *SQLiteStorage) Profiles() storage.ProfilesStorage           { return s.profiles }
func (s *SQLiteStorage) Agents() storage.AgentsStorage               { return s.agents }
func (s *SQLiteStorage) Conversations() storage.ConversationsStorage { return s.conversations }
func (s *SQLiteStorage) Messages() storage.MessagesStorage           { return s.messages }
func (s *SQLiteStorage) Meals() storage.MealsStorage                 { return s.meals }
func (s *SQLiteStorage) Usage() storage.UsageStorage                 { return s.usage }

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
