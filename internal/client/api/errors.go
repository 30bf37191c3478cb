package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error categories returned by the client. Every error produced by a
// request wraps exactly one of them.
var (
	// ErrAuth means the token is missing, invalid or expired (401).
	ErrAuth = errors.New("authentication required")
	// ErrPermission means the caller may not act on the resource (403).
	ErrPermission = errors.New("permission denied")
	// ErrNotFound means the referenced resource no longer exists (404).
	ErrNotFound = errors.New("not found")
	// ErrTransient covers every other remote or network failure.
	ErrTransient = errors.New("remote request failed")
)

// StatusError is a non-2xx response from the API.
type StatusError struct {
	// Code is the HTTP status code.
	Code int
	// Message is the API's "error" or "message" field, if any.
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d", e.Code)
}

// Unwrap exposes the error category for errors.Is.
func (e *StatusError) Unwrap() error {
	return e.kind
}

// NewStatusError returns the error the client produces for a response with
// the given status code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message, kind: classify(code)}
}

// newStatusError classifies a response status and extracts its message.
func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{Code: code, Message: remoteMessage(body), kind: classify(code)}
}

func classify(code int) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrTransient
	}
}

// remoteMessage pulls the human readable message out of an error body.
// JSON bodies use "error" or "message"; anything else is used verbatim.
func remoteMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}

// RemoteMessage returns the API-provided message carried by err, if any.
func RemoteMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// transportError wraps a network-level failure as ErrTransient.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}
