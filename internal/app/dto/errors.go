package dto

import "github.com/flowgraph/chatflow/internal/core/graph"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// NewErrorResponse describes err and the error kind it wraps.
func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Kind: graph.KindOf(err)}
}
