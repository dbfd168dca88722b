package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// ValidationError carries field-scoped messages for a rejected request
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ItemError is the failure of a single order line
type ItemError struct {
	Index   int
	Message string
}

// Key names the failing line the way clients address it, e.g. items[2]
func (e ItemError) Key() string {
	return fmt.Sprintf("items[%d]", e.Index)
}

// ItemErrors lists every failing order line, in input order
type ItemErrors []ItemError

func (e ItemErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, item.Key()+": "+item.Message)
	}
	return "invalid order items: " + strings.Join(parts, "; ")
}
