package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrAuth              = errors.New("authentication error")
	ErrTransport         = errors.New("transport error")
	ErrNotFound          = errors.New("not found")
	ErrUnexpectedContent = errors.New("unexpected content")
	ErrConfiguration     = errors.New("configuration error")
	ErrIO                = errors.New("io error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error represents a transient failure worth
// retrying. Auth failures and missing resources are never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrAuth), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConfiguration), errors.Is(err, ErrUnexpectedContent):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrTransport):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
