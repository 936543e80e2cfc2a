package oracle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType classifies oracle failures.
type ErrorType string

const (
	ErrAuthentication ErrorType = "authentication"
	ErrRateLimited    ErrorType = "rate_limited"
	ErrTimeout        ErrorType = "timeout"
	ErrNetwork        ErrorType = "network"
	ErrServer         ErrorType = "server_error"
	ErrMalformed      ErrorType = "malformed_response"
)

// Error is a classified failure of a generation call.
type Error struct {
	Type       ErrorType
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("oracle %s", e.Type)
	if e.Provider != "" {
		msg += " (" + e.Provider + ")"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Type {
	case ErrRateLimited, ErrTimeout, ErrServer:
		return true
	}
	return false
}

// TypeOf returns the error type of err, or "" when err is not an oracle Error.
func TypeOf(err error) ErrorType {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Type
	}
	return ""
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	return TypeOf(err) == ErrAuthentication
}

// Options tune a single generation call.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// Oracle is an opaque text-completion capability.
type Oracle interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// classifyStatus maps an HTTP status code to an error type.
func classifyStatus(code int) ErrorType {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrAuthentication
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrServer
	default:
		return ErrMalformed
	}
}

// classifyTransport maps a transport-level failure to an error type.
func classifyTransport(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}
