// Package dto holds the request and response bodies of the flow API.
package dto

import (
	"github.com/flowgraph/chatflow/internal/core/checkpoint"
	"github.com/flowgraph/chatflow/internal/core/graph"
)

// AddNodeRequest creates a node of Type at Position.
type AddNodeRequest struct {
	Type     string         `json:"type" validate:"required,node_type"`
	Position graph.Position `json:"position"`
}

// MoveNodeRequest places a node on the canvas. Both coordinates are required.
type MoveNodeRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

// Position returns the requested coordinates.
func (r *MoveNodeRequest) Position() graph.Position {
	return graph.Position{X: *r.X, Y: *r.Y}
}

// ConnectRequest links Source to Target. Ids are not checked against any
// pattern; an id with no node behind it is an invalid reference.
type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// CommentRequest attaches Text to a node id. Any values are accepted.
type CommentRequest struct {
	NodeID string `json:"nodeId"`
	Text   string `json:"text"`
}

// CollaboratorRequest adds a participant to the session. Any values are
// accepted.
type CollaboratorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// IDResponse carries the id generated by a create call.
type IDResponse struct {
	ID string `json:"id"`
}

// VersionResponse carries a version number.
type VersionResponse struct {
	VersionNumber int `json:"versionNumber"`
}

// VersionsResponse lists the saved versions and the current one.
type VersionsResponse struct {
	CurrentVersion int   `json:"currentVersion"`
	Versions       []int `json:"versions"`
}

// FlowResponse is the live graph as rendered by the editor.
type FlowResponse struct {
	FlowID         string       `json:"flowId"`
	CurrentVersion int          `json:"currentVersion"`
	Nodes          []graph.Node `json:"nodes"`
	Edges          []graph.Edge `json:"edges"`
}

// HistoryResponse is the exported version history.
type HistoryResponse struct {
	FlowID   string              `json:"flowId"`
	Versions []checkpoint.Record `json:"versions"`
}

// NodeTypesResponse lists the node palette with the payload fields per type.
type NodeTypesResponse struct {
	Types []graph.NodeSchema `json:"types"`
}
