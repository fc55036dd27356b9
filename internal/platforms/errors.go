// Package platforms holds the error types shared by the third-party API clients.
package platforms

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotConfigured means the client has no credentials for the call.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrMalformedResponse means a 2xx response lacked a required field.
	ErrMalformedResponse = errors.New("malformed provider response")
)

const maxErrorBody = 2048

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// NewAPIError reads (a bounded prefix of) resp.Body into an APIError.
func NewAPIError(provider, operation string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		Provider:   provider,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// NotConfigured wraps ErrNotConfigured with the missing setting names.
func NotConfigured(provider string, missing ...string) error {
	if len(missing) == 0 {
		return fmt.Errorf("%s: %w", provider, ErrNotConfigured)
	}
	return fmt.Errorf("%s: %w: missing %s", provider, ErrNotConfigured, strings.Join(missing, ", "))
}

// Malformed wraps ErrMalformedResponse with what was missing.
func Malformed(provider, what string) error {
	return fmt.Errorf("%s: %w: %s", provider, ErrMalformedResponse, what)
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// StatusCode extracts the provider status from err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
