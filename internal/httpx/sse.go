package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// DoneMarker is the payload of the terminal frame.
const DoneMarker = "[DONE]"

var ErrStreamingUnsupported = errors.New("streaming unsupported")

// EventWriter writes `data:` frames and flushes after each one.
type EventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	done    bool
}

// NewEventWriter sets the event-stream headers and commits a 200 status.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &EventWriter{w: w, flusher: flusher}, nil
}

// Data marshals payload into one frame. A write error means the client went away.
func (e *EventWriter) Data(payload any) error {
	if e.done {
		return errors.New("stream already terminated")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", raw); err != nil {
		return fmt.Errorf("write stream frame: %w", err)
	}
	e.flusher.Flush()
	return nil
}

// Done writes the terminal frame once; later calls are no-ops.
func (e *EventWriter) Done() error {
	if e.done {
		return nil
	}
	e.done = true
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", DoneMarker); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}
