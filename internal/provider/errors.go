// Package provider holds the HTTP plumbing and error types shared by the
// speech recognition, translation and synthesis clients.
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNoAPIKey is returned when a vendor credential is missing.
var ErrNoAPIKey = errors.New("provider: API key required")

// APIError represents an error response from a vendor API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Message is the error message from the API.
	Message string
	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsUnauthorized returns true for HTTP 401.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsRetryable returns true for rate limiting and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Error wraps an error with provider context.
type Error struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches the provider name to err.
func Wrap(name string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) && perr.Provider == name {
		return err
	}
	return &Error{Provider: name, Err: err}
}

// ReadAPIError drains resp and builds an APIError, extracting common vendor
// error shapes when the body is JSON.
func ReadAPIError(name string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var shaped struct {
		Error  json.RawMessage `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &shaped) == nil {
		if m := messageFrom(shaped.Error); m != "" {
			message = m
		} else if m := messageFrom(shaped.Detail); m != "" {
			message = m
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message, Provider: name}
}

func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Message
	}
	return ""
}
