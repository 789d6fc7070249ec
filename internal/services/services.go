package services

import (
	"fmt"
	"io"
	"strings"
)

const maxErrorBody = 512

// APIError is a non-2xx response from an external service.
type APIError struct {
	Service    string
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s %s: status %d: %s", e.Service, e.Method, e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s %s: status %d", e.Service, e.Method, e.Endpoint, e.StatusCode)
}

// readErrorBody returns a trimmed prefix of an error response body for messages.
func readErrorBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
