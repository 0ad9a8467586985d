package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"vin_appraisal/internal/results"
)

// Marker prefixes every event line in the feed.
const Marker = "data: "

// Event kinds.
const (
	TypeProgress = "progress"
	TypeLog      = "log"
	TypeResult   = "result"
	TypeComplete = "complete"
	TypeError    = "error"
)

// Event is one decoded feed message.
type Event struct {
	Type     string          `json:"type"`
	Message  string          `json:"message,omitempty"`
	Progress *float64        `json:"progress,omitempty"`
	Result   *results.Result `json:"result,omitempty"`
	Level    string          `json:"level,omitempty"`
}

// Encode writes ev as a single marker line followed by a blank line.
func Encode(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s%s\n\n", Marker, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Progress builds a progress event.
func Progress(fraction float64, message string) Event {
	return Event{Type: TypeProgress, Progress: &fraction, Message: message}
}

// Log builds a log event.
func Log(level, message string) Event {
	return Event{Type: TypeLog, Level: level, Message: message}
}

// Result builds a result event.
func Result(r results.Result) Event {
	return Event{Type: TypeResult, Result: &r}
}

// Complete builds a complete event.
func Complete(message string) Event {
	return Event{Type: TypeComplete, Message: message}
}

// Error builds an error event.
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}
