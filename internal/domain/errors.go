package domain

import (
	"errors"
	"strings"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so callers can branch with errors.Is without depending on infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrNotification = errors.New("notification failed")
)

// FieldError is a single violated field constraint with its human-readable message.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned before any persistence attempt when a record is malformed.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Messages returns the per-field messages in field order.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// NotificationError reports that the verification email could not be dispatched.
// Reason carries the transport error's message; the transport error itself is not wrapped.
type NotificationError struct {
	Reason string
}

func (e *NotificationError) Error() string {
	if e.Reason == "" {
		return "failed to send verification email"
	}
	return "failed to send verification email: " + e.Reason
}

func (e *NotificationError) Is(target error) bool { return target == ErrNotification }
