package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/actions"
	"github.com/orbitha/orbitha/internal/userctx"
)

func authed(r *http.Request, userID string) *http.Request {
	return r.WithContext(userctx.WithUserID(r.Context(), userID))
}

func TestHandleDailySummary(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	_, err := svc.RecordMeal(context.Background(), "ana", actions.Meal{
		Items:         []actions.MealItem{{Name: "arroz", Calories: 195}},
		TotalCalories: 196,
	}, at(12, 30))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleDailySummary(w, authed(httptest.NewRequest(http.MethodGet, "/v1/nutrition/daily-summary", nil), "ana"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp DailySummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 196, resp.TotalCalories)
	assert.Equal(t, 1, resp.MealCount)
}

func TestHandleDailySummary_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleDailySummary(w, httptest.NewRequest(http.MethodGet, "/v1/nutrition/daily-summary", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.HandleDailySummary(w, authed(httptest.NewRequest(http.MethodGet, "/v1/nutrition/daily-summary?date=ontem", nil), "ana"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListMeals(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleListMeals(w, authed(httptest.NewRequest(http.MethodGet, "/v1/nutrition/meals?date=2025-03-10", nil), "ana"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2025-03-10","meals":[]}`, w.Body.String())
}

func TestHandleDiaryPDF(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleDiaryPDF(w, authed(httptest.NewRequest(http.MethodGet, "/v1/nutrition/diary.pdf", nil), "ana"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "diario-2025-03-10.pdf")
}
