// Package validation provides validation utilities for the chatflow store:
// payload and position checks, snapshot graph checks, and HTTP body
// validation, all reporting through ValidationErrors.
package validation

import (
	"fmt"
	"strings"

	"github.com/flowgraph/chatflow/internal/core/graph"
)

// Validator interface for custom validation
// PRINCIPLES:
// - ISP: Simple interface with single method
// - DIP: Depend on interface, not concrete types
type Validator interface {
	Validate() error
}

// ValidationError represents a validation error with details
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Message string      `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s (got: %v)", e.Field, e.Message, e.Value)
}

// Is makes every validation error match graph.ErrValidation.
func (e ValidationError) Is(target error) bool {
	return target == graph.ErrValidation
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes the error list match graph.ErrValidation.
func (e ValidationErrors) Is(target error) bool {
	return target == graph.ErrValidation
}

// Fields returns the names of the offending fields in order.
func (e ValidationErrors) Fields() []string {
	out := make([]string, 0, len(e))
	for _, ve := range e {
		out = append(out, ve.Field)
	}
	return out
}

// orNil keeps a nil interface when there is nothing to report.
func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
