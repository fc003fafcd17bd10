// Package graph provides node definitions
package graph

import "slices"

// NodeType represents the type of node
type NodeType string

const (
	// NodeTypeIntent opens a conversation branch on a recognised user intent
	NodeTypeIntent NodeType = "intent"
	// NodeTypeUserResponse offers the user a fixed set of answers
	NodeTypeUserResponse NodeType = "userResponse"
	// NodeTypeBotReply sends a message to the user
	NodeTypeBotReply NodeType = "botReply"
	// NodeTypeConditional routes on an uninterpreted condition expression
	NodeTypeConditional NodeType = "conditional"
	// NodeTypeDelay pauses the conversation
	NodeTypeDelay NodeType = "delay"
)

// Position is the canvas coordinate of a node.
type Position struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// NodeData is the type-specific payload of a node. Label is shared by every
// type; the remaining fields are non-nil only for the type that owns them, so
// the encoded shape of a node depends on its type alone.
type NodeData struct {
	Label           string   `json:"label" msgpack:"label"`
	Description     *string  `json:"description,omitempty" msgpack:"description,omitempty"`
	ResponseOptions []string `json:"responseOptions,omitzero" msgpack:"responseOptions"`
	Message         *string  `json:"message,omitempty" msgpack:"message,omitempty"`
	Condition       *string  `json:"condition,omitempty" msgpack:"condition,omitempty"`
	DelaySeconds    *int     `json:"delaySeconds,omitempty" msgpack:"delaySeconds,omitempty"`
}

// Clone returns a copy that shares no memory with d.
func (d NodeData) Clone() NodeData {
	out := NodeData{Label: d.Label}
	out.Description = clonePtr(d.Description)
	out.Message = clonePtr(d.Message)
	out.Condition = clonePtr(d.Condition)
	out.DelaySeconds = clonePtr(d.DelaySeconds)
	if d.ResponseOptions != nil {
		out.ResponseOptions = slices.Clone(d.ResponseOptions)
	}
	return out
}

// DataPatch is a partial NodeData. Nil fields are left untouched when the
// patch is applied; a non-nil empty ResponseOptions clears the option list.
type DataPatch struct {
	Label           *string  `json:"label,omitempty"`
	Description     *string  `json:"description,omitempty"`
	ResponseOptions []string `json:"responseOptions,omitzero"`
	Message         *string  `json:"message,omitempty"`
	Condition       *string  `json:"condition,omitempty"`
	DelaySeconds    *int     `json:"delaySeconds,omitempty" validate:"omitempty,min=0"`
}

// Fields lists the payload fields set by the patch, using their JSON names.
func (p DataPatch) Fields() []string {
	var fields []string
	if p.Label != nil {
		fields = append(fields, FieldLabel)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.ResponseOptions != nil {
		fields = append(fields, FieldResponseOptions)
	}
	if p.Message != nil {
		fields = append(fields, FieldMessage)
	}
	if p.Condition != nil {
		fields = append(fields, FieldCondition)
	}
	if p.DelaySeconds != nil {
		fields = append(fields, FieldDelaySeconds)
	}
	return fields
}

// Apply merges the patch into d and returns the result; d is not modified.
func (d NodeData) Apply(p DataPatch) NodeData {
	out := d.Clone()
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.Description != nil {
		out.Description = clonePtr(p.Description)
	}
	if p.ResponseOptions != nil {
		out.ResponseOptions = slices.Clone(p.ResponseOptions)
	}
	if p.Message != nil {
		out.Message = clonePtr(p.Message)
	}
	if p.Condition != nil {
		out.Condition = clonePtr(p.Condition)
	}
	if p.DelaySeconds != nil {
		out.DelaySeconds = clonePtr(p.DelaySeconds)
	}
	return out
}

// Node represents a vertex in the conversation flow
// PRINCIPLES:
// - KISS: Simple node representation
// - SRP: Only responsible for node data
type Node struct {
	ID       string   `json:"id" msgpack:"id"`
	Type     NodeType `json:"type" msgpack:"type"`
	Position Position `json:"position" msgpack:"position"`
	Data     NodeData `json:"data" msgpack:"data"`
}

// Validate ensures node integrity
// PRINCIPLES:
// - SRP: Single responsibility - validation only
// - KISS: Simple validation, <10 lines
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if !n.Type.Valid() {
		return ErrInvalidNodeType
	}
	return nil
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	return &Node{ID: n.ID, Type: n.Type, Position: n.Position, Data: n.Data.Clone()}
}

// IsConditional checks if node is conditional
func (n *Node) IsConditional() bool {
	return n.Type == NodeTypeConditional
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
