package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnrecognizedOutput = errors.New("unexpected output format from AI model")
	ErrPaymentsDisabled   = errors.New("payment processing is not configured")
	ErrEmailDisabled      = errors.New("email service not configured")
	ErrBlobDisabled       = errors.New("blob storage not configured")
)

// Invalid wraps ErrInvalidInput with a caller-facing reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Kind is the closed set of failure categories surfaced to clients.
type Kind string

const (
	KindProviderAuth    Kind = "provider_auth"
	KindProviderQuota   Kind = "provider_quota"
	KindProviderTimeout Kind = "provider_timeout"
	KindInvalidInput    Kind = "invalid_input"
	KindUnknown         Kind = "unknown_provider_error"
)

// HTTPStatus maps a kind onto the status code handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindProviderQuota:
		return http.StatusTooManyRequests
	case KindProviderTimeout:
		return http.StatusGatewayTimeout
	case KindProviderAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ProviderError describes a failed call to an external collaborator.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Status > 0 {
		fmt.Fprintf(&b, ": http %d", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Classify reduces any error produced while talking to providers to a Kind.
// Typed information (sentinels, HTTP status, timeouts) wins over keywords;
// keyword matching only applies to errors that carry nothing else.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidInput) {
		return KindInvalidInput
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindProviderTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindProviderTimeout
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		if kind, ok := kindForStatus(perr.Status); ok {
			return kind
		}
	}
	return classifyMessage(err.Error())
}

func kindForStatus(status int) (Kind, bool) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindProviderAuth, true
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return KindProviderQuota, true
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindProviderTimeout, true
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return KindInvalidInput, true
	}
	return "", false
}

func classifyMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid api key"), strings.Contains(msg, "api key is invalid"):
		return KindProviderAuth
	case strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return KindProviderQuota
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return KindProviderTimeout
	case strings.Contains(msg, "invalid input"):
		return KindInvalidInput
	}
	return KindUnknown
}

// UserMessage returns the client-facing message for a kind. fallback is used
// for KindUnknown so each operation can name what failed.
func UserMessage(kind Kind, fallback string) string {
	switch kind {
	case KindProviderAuth:
		return "Authentication failed - please check API credentials"
	case KindProviderQuota:
		return "API quota exceeded - please try again later"
	case KindProviderTimeout:
		return "Processing timeout - please try with a smaller image"
	case KindInvalidInput:
		return "Invalid request - please check the submitted data"
	}
	return fallback
}
