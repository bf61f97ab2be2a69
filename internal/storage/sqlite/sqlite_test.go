package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/sqlite"
)

func newMock(t *testing.T) (*sqlite.SQLiteStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.New(db), mock
}

func TestGetProfile_NotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT user_id, display_name, calorie_goal`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "display_name", "calorie_goal", "last_seen_at", "created_at", "updated_at"}))

	_, err := s.Profiles().GetProfile(context.Background(), " user-1 ")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_ParsesNullableColumns(t *testing.T) {
	s, mock := newMock(t)
	created := "2025-03-01T10:00:00Z"

	mock.ExpectQuery(`SELECT user_id, display_name, calorie_goal`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "display_name", "calorie_goal", "last_seen_at", "created_at", "updated_at"}).
			AddRow("user-1", "Ana", int64(1800), nil, created, created))

	p, err := s.Profiles().GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.DisplayName)
	require.NotNil(t, p.CalorieGoal)
	assert.Equal(t, 1800, *p.CalorieGoal)
	assert.Nil(t, p.LastSeenAt)
	assert.Equal(t, 2025, p.CreatedAt.Year())
}

func TestUpdateConversationTitle_NoRowsIsNotFound(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE conversations SET title = \?`).
		WithArgs("Almoço", sqlmock.AnyArg(), id.String(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Conversations().UpdateConversationTitle(context.Background(), "user-1", id, "Almoço", time.Now())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListConversations_ScansRows(t *testing.T) {
	s, mock := newMock(t)
	id := uuid.New()
	ts := "2025-03-01T12:30:00Z"

	mock.ExpectQuery(`FROM conversations\s+WHERE user_id = \? AND agent_id = \?\s+ORDER BY updated_at DESC`).
		WithArgs("user-1", storage.DefaultAgentID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "agent_id", "title", "style", "created_at", "updated_at"}).
			AddRow(id.String(), "user-1", storage.DefaultAgentID.String(), nil, "normal", ts, ts))

	convs, err := s.Conversations().ListConversations(context.Background(), "user-1", storage.DefaultAgentID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, id, convs[0].ID)
	assert.Nil(t, convs[0].Title)
	assert.Equal(t, "normal", convs[0].Style)
}

func TestListRecentMessages_ExcludesIDAndLimits(t *testing.T) {
	s, mock := newMock(t)
	convID := uuid.New()
	exclude := uuid.New()
	msgID := uuid.New()

	mock.ExpectQuery(`AND id <> \?\s+ORDER BY seq DESC\s+LIMIT \?\s+\) ORDER BY seq ASC`).
		WithArgs("user-1", convID.String(), exclude.String(), 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "agent_id", "conversation_id", "role", "content", "image_key", "created_at"}).
			AddRow(msgID.String(), "user-1", storage.DefaultAgentID.String(), convID.String(), "user", "oi", "photos/a.jpg", "2025-03-01T12:30:00Z"))

	msgs, err := s.Messages().ListRecentMessages(context.Background(), "user-1", convID, 20, exclude)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgID, msgs[0].ID)
	require.NotNil(t, msgs[0].ImageKey)
	assert.Equal(t, "photos/a.jpg", *msgs[0].ImageKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentMessages_ZeroLimitSkipsQuery(t *testing.T) {
	s, mock := newMock(t)

	msgs, err := s.Messages().ListRecentMessages(context.Background(), "user-1", uuid.New(), 0, uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMealEntry_WritesItemsAsJSON(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO meal_entries`).
		WithArgs(sqlmock.AnyArg(), "user-1", "almoço",
			`[{"name":"arroz","quantity":"100g","calories":130}]`,
			130, "2025-03-01", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	entry := &storage.MealEntry{
		UserID:        "user-1",
		MealName:      "almoço",
		Items:         []storage.MealItem{{Name: "arroz", Quantity: "100g", Calories: 130}},
		TotalCalories: 130,
		LocalDate:     "2025-03-01",
	}
	require.NoError(t, s.Meals().InsertMealEntry(context.Background(), entry))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDailySummary(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_calories\), 0\), COUNT\(\*\)`).
		WithArgs("user-1", "2025-03-01").
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow(int64(950), int64(2)))

	totals, err := s.Meals().GetDailySummary(context.Background(), "user-1", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, storage.DailyTotals{TotalCalories: 950, MealCount: 2}, totals)
}

func TestInsertUsageLog_AnonymousUserIsNull(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO usage_logs`).
		WithArgs(sqlmock.AnyArg(), nil, "chat-demo", "gpt-4o-mini", 10, 20, 0.5, int64(120), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Usage().InsertUsageLog(context.Background(), &storage.UsageLog{
		FunctionName:     "chat-demo",
		Model:            "gpt-4o-mini",
		PromptTokens:     10,
		CompletionTokens: 20,
		EstimatedCostUSD: 0.5,
		DurationMs:       120,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
