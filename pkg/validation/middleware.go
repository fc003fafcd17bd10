// Package validation provides middleware for HTTP request validation
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

type bodyKey struct{}

// Middleware provides validation middleware for HTTP handlers
type Middleware struct {
	config *ValidationConfig
}

// NewMiddleware creates a new validation middleware
func NewMiddleware(config *ValidationConfig) *Middleware {
	if config == nil {
		config = DefaultValidationConfig()
	}
	return &Middleware{config: config}
}

// ValidateJSON decodes the request body into a fresh value of the type of
// structType, validates it and hands it to the next handler through the
// request context (see Body). Invalid bodies are answered with 400.
func (m *Middleware) ValidateJSON(structType interface{}) func(http.Handler) http.Handler {
	typ := reflect.TypeOf(structType)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			val := reflect.New(typ).Interface()

			decoder := json.NewDecoder(r.Body)
			decoder.DisallowUnknownFields()
			if err := decoder.Decode(val); err != nil {
				m.writeErrorResponse(w, http.StatusBadRequest, ValidationErrors{{
					Field:   "request_body",
					Message: fmt.Sprintf("invalid JSON: %v", err),
				}})
				return
			}

			if err := ValidateWithConfig(val, m.config); err != nil {
				var ve ValidationErrors
				if errors.As(err, &ve) {
					m.writeErrorResponse(w, http.StatusBadRequest, ve)
					return
				}
				m.writeErrorResponse(w, http.StatusBadRequest, ValidationErrors{{
					Field:   "request_body",
					Message: err.Error(),
				}})
				return
			}

			ctx := context.WithValue(r.Context(), bodyKey{}, val)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Body returns the validated body stored by ValidateJSON.
func Body[T any](r *http.Request) (*T, bool) {
	v, ok := r.Context().Value(bodyKey{}).(*T)
	return v, ok
}

// writeErrorResponse writes validation errors as JSON response
func (m *Middleware) writeErrorResponse(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	WriteErrors(w, statusCode, errs)
}

// WriteErrors renders validation errors as the standard JSON error body.
func WriteErrors(w http.ResponseWriter, statusCode int, errs ValidationErrors) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	data, err := MarshalValidationErrors(errs)
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"validation failed","message":"internal validation error"}`))
		return
	}
	_, _ = w.Write(data)
}
