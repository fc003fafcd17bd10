// Package validation provides enhanced validation with go-playground/validator integration
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/go-playground/validator/v10"
)

// Validate is the main validator instance
var Validate *validator.Validate

var (
	identPattern    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	sqlIdentPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("node_id", validateNodeID)
	_ = Validate.RegisterValidation("node_type", validateNodeType)
	_ = Validate.RegisterValidation("sql_ident", validateSQLIdent)

	// Register tag name function to use JSON tags for field names
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
}

// ValidateWithPlayground validates using go-playground/validator
func ValidateWithPlayground(s interface{}) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return formatValidationErrors(fieldErrs)
	}
	return err
}

// formatValidationErrors converts validator errors to our custom format
func formatValidationErrors(fieldErrs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

// getErrorMessage returns a human-readable error message
func getErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("minimum value/length is %s", fe.Param())
	case "max":
		return fmt.Sprintf("maximum value/length is %s", fe.Param())
	case "len":
		return fmt.Sprintf("length must be exactly %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "email":
		return "must be a valid email address"
	case "node_id":
		return "must be a valid node identifier (alphanumeric, underscore, hyphen)"
	case "sql_ident":
		return "must contain only letters, digits and underscores"
	case "node_type":
		return "must be one of intent, userResponse, botReply, conditional, delay"
	default:
		return fmt.Sprintf("validation failed: %s", fe.Tag())
	}
}

// validateNodeID validates node identifier format
func validateNodeID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return IsValidID(id)
}

// validateSQLIdent accepts names the repository adapters can use as a table
func validateSQLIdent(fl validator.FieldLevel) bool {
	return sqlIdentPattern.MatchString(fl.Field().String())
}

// validateNodeType accepts registered node types only
func validateNodeType(fl validator.FieldLevel) bool {
	return graph.NodeType(fl.Field().String()).Valid()
}

// IsValidID reports whether s is a usable node or edge identifier. Generated
// UUIDs and the seed ids ("1", "e1-2") both qualify.
func IsValidID(s string) bool {
	return len(s) >= 1 && len(s) <= 100 && identPattern.MatchString(s)
}

// ValidatePatch checks a partial payload against the schema of nodeType:
// every field it sets must belong to that type, and values must satisfy the
// type's constraints (delaySeconds >= 0).
func ValidatePatch(nodeType graph.NodeType, patch graph.DataPatch) error {
	schema, ok := graph.SchemaFor(nodeType)
	if !ok {
		return graph.ErrInvalidNodeType
	}

	var errs ValidationErrors
	for _, f := range patch.Fields() {
		if !schema.Allows(f) {
			errs = append(errs, ValidationError{
				Field:   f,
				Value:   nil,
				Message: fmt.Sprintf("field is not part of the %s payload", nodeType),
			})
		}
	}
	if err := ValidateWithPlayground(patch); err != nil {
		var ve ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		errs = append(errs, ve...)
	}
	return errs.orNil()
}

// ValidateNodeData checks a complete payload: exactly the schema's fields are
// present and every constraint holds.
func ValidateNodeData(nodeType graph.NodeType, data graph.NodeData) error {
	schema, ok := graph.SchemaFor(nodeType)
	if !ok {
		return graph.ErrInvalidNodeType
	}

	var errs ValidationErrors
	missing, extra := schema.Check(data)
	for _, f := range missing {
		errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("field is required for %s nodes", nodeType)})
	}
	for _, f := range extra {
		errs = append(errs, ValidationError{Field: f, Message: fmt.Sprintf("field is not part of the %s payload", nodeType)})
	}
	if len(errs) > 0 {
		return errs
	}
	return ValidatePatch(nodeType, patchOf(data))
}

// ValidatePosition rejects coordinates a canvas cannot place.
func ValidatePosition(p graph.Position) error {
	var errs ValidationErrors
	if math.IsNaN(p.X) || math.IsInf(p.X, 0) {
		errs = append(errs, ValidationError{Field: "x", Value: p.X, Message: "coordinate must be finite"})
	}
	if math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
		errs = append(errs, ValidationError{Field: "y", Value: p.Y, Message: "coordinate must be finite"})
	}
	return errs.orNil()
}

// patchOf views a full payload as a patch that sets every present field.
func patchOf(d graph.NodeData) graph.DataPatch {
	label := d.Label
	return graph.DataPatch{
		Label:           &label,
		Description:     d.Description,
		ResponseOptions: d.ResponseOptions,
		Message:         d.Message,
		Condition:       d.Condition,
		DelaySeconds:    d.DelaySeconds,
	}
}

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxErrors int `json:"max_errors"`
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{MaxErrors: 10}
}

// ValidateWithConfig validates with specific configuration
func ValidateWithConfig(s interface{}, config *ValidationConfig) error {
	if config == nil {
		config = DefaultValidationConfig()
	}

	err := ValidateWithPlayground(s)
	if err == nil {
		if v, ok := s.(Validator); ok {
			return v.Validate()
		}
		return nil
	}
	var ve ValidationErrors
	if errors.As(err, &ve) && config.MaxErrors > 0 && len(ve) > config.MaxErrors {
		return ve[:config.MaxErrors]
	}
	return err
}

type errorResponse struct {
	Errors []ValidationError `json:"errors"`
	Count  int               `json:"count"`
}

// MarshalValidationErrors marshals validation errors to JSON
func MarshalValidationErrors(errs ValidationErrors) ([]byte, error) {
	return json.Marshal(errorResponse{Errors: errs, Count: len(errs)})
}

// UnmarshalValidationErrors unmarshals validation errors from JSON
func UnmarshalValidationErrors(data []byte) (ValidationErrors, error) {
	var response errorResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, err
	}
	return ValidationErrors(response.Errors), nil
}
