package provider

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func response(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestReadAPIErrorShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "openai", body: `{"error":{"message":"bad key"}}`, want: "bad key"},
		{name: "libre", body: `{"error":"unsupported language"}`, want: "unsupported language"},
		{name: "elevenlabs", body: `{"detail":{"message":"quota","status":"quota_exceeded"}}`, want: "quota"},
		{name: "plain", body: "upstream down", want: "upstream down"},
		{name: "empty", body: "", want: "Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status := http.StatusBadRequest
			if tc.name == "empty" {
				status = http.StatusBadGateway
			}
			apiErr := ReadAPIError("vendor", response(status, tc.body))
			if apiErr.Message != tc.want {
				t.Fatalf("message=%q, want %q", apiErr.Message, tc.want)
			}
		})
	}
}

func TestWrapKeepsChain(t *testing.T) {
	err := Wrap("whisper", ErrNoAPIKey)
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("errors.Is(%v, ErrNoAPIKey)=false", err)
	}
	if again := Wrap("whisper", err); again != err {
		t.Fatal("Wrap double-wrapped the same provider")
	}
	if Wrap("whisper", nil) != nil {
		t.Fatal("Wrap(nil) != nil")
	}
}

func TestAPIErrorClassification(t *testing.T) {
	if !(&APIError{StatusCode: 429}).IsRetryable() {
		t.Fatal("429 IsRetryable=false")
	}
	if !(&APIError{StatusCode: 401}).IsUnauthorized() {
		t.Fatal("401 IsUnauthorized=false")
	}
	if (&APIError{StatusCode: 400}).IsRetryable() {
		t.Fatal("400 IsRetryable=true")
	}
}
