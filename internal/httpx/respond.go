// Package httpx holds the JSON, validation and server-sent-event helpers shared by the handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorResponse is the body of every non-stream error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrInvalidJSON is returned by DecodeJSON for bodies that are not a single JSON object.
var ErrInvalidJSON = errors.New("invalid JSON body")

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// DecodeJSON reads at most maxBytes of body into dst. Unknown fields are ignored.
func DecodeJSON(r *http.Request, maxBytes int64, dst any) error {
	body := io.LimitReader(r.Body, maxBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return nil
}
