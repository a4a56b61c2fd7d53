package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnauthorized matches any *APIError carrying a 401 status.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUnreachable matches transport failures.
	ErrUnreachable = errors.New("could not reach server")
	// ErrNoGroup means the user does not belong to a family group yet. Callers treat it as a
	// valid state, not a failure.
	ErrNoGroup = errors.New("user has no family group")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TransportError wraps a request that never got an HTTP answer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return ErrUnreachable.Error()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnreachable, e.Err}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

const maxPlainMessage = 300

// extractMessage pulls a user-facing message out of an error body: a JSON "message" field,
// a bare JSON string, or a short plain-text body.
func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil {
		return strings.TrimSpace(envelope.Message)
	}

	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return strings.TrimSpace(s)
	}

	if strings.HasPrefix(trimmed, "<") || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	if !utf8.ValidString(trimmed) || len(trimmed) > maxPlainMessage {
		return ""
	}
	return trimmed
}
