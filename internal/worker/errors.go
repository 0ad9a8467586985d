package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 4 << 10

// Error is a non-success answer from the worker.
type Error struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("worker %s failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("worker %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Message returns the worker's own error text when the body carries one.
func (e *Error) Message() string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return e.Body
}

// Busy reports whether the worker refused because a run is already active.
func (e *Error) Busy() bool {
	return e.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(e.Body), "already in progress")
}

func (e *Error) IsRetryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

func newError(op string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
