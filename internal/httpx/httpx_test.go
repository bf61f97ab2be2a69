package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "agent not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"agent not found"}`, w.Body.String())
}

func TestValidate(t *testing.T) {
	type payload struct {
		Style string `validate:"omitempty,oneof=normal formal"`
	}

	assert.NoError(t, Validate(payload{Style: "formal"}))

	err := Validate(payload{Style: "loud"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "oneof")
}

func TestDecodeJSON_Invalid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var dst map[string]any
	assert.ErrorIs(t, DecodeJSON(r, 1024, &dst), ErrInvalidJSON)
}

func TestEventWriter_DoneOnce(t *testing.T) {
	w := httptest.NewRecorder()
	ew, err := NewEventWriter(w)
	require.NoError(t, err)

	require.NoError(t, ew.Data(map[string]string{"content": "oi"}))
	require.NoError(t, ew.Done())
	require.NoError(t, ew.Done())
	assert.Error(t, ew.Data(map[string]string{"content": "late"}))

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "data: {\"content\":\"oi\"}\n\ndata: [DONE]\n\n", w.Body.String())
}
