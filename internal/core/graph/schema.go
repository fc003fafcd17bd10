package graph

import (
	"fmt"
	"slices"
)

// Payload field names as they appear on the wire.
const (
	FieldLabel           = "label"
	FieldDescription     = "description"
	FieldResponseOptions = "responseOptions"
	FieldMessage         = "message"
	FieldCondition       = "condition"
	FieldDelaySeconds    = "delaySeconds"
)

// NodeSchema describes the payload carried by one node type.
type NodeSchema struct {
	Type   NodeType `json:"type"`
	Fields []string `json:"fields"`
}

// schemas is the node-type registry. Order of nodeTypes is the palette order
// of the flow editor.
var (
	nodeTypes = []NodeType{
		NodeTypeIntent,
		NodeTypeUserResponse,
		NodeTypeBotReply,
		NodeTypeConditional,
		NodeTypeDelay,
	}
	schemas = map[NodeType]NodeSchema{
		NodeTypeIntent:       {Type: NodeTypeIntent, Fields: []string{FieldLabel, FieldDescription}},
		NodeTypeUserResponse: {Type: NodeTypeUserResponse, Fields: []string{FieldLabel, FieldResponseOptions}},
		NodeTypeBotReply:     {Type: NodeTypeBotReply, Fields: []string{FieldLabel, FieldMessage}},
		NodeTypeConditional:  {Type: NodeTypeConditional, Fields: []string{FieldLabel, FieldCondition}},
		NodeTypeDelay:        {Type: NodeTypeDelay, Fields: []string{FieldLabel, FieldDelaySeconds}},
	}
)

// Valid reports whether t is a registered node type.
func (t NodeType) Valid() bool {
	_, ok := schemas[t]
	return ok
}

// NodeTypes returns every registered node type in palette order.
func NodeTypes() []NodeType {
	return slices.Clone(nodeTypes)
}

// SchemaFor returns the payload schema of t.
func SchemaFor(t NodeType) (NodeSchema, bool) {
	s, ok := schemas[t]
	if !ok {
		return NodeSchema{}, false
	}
	return NodeSchema{Type: s.Type, Fields: slices.Clone(s.Fields)}, true
}

// Allows reports whether the schema carries field.
func (s NodeSchema) Allows(field string) bool {
	return slices.Contains(s.Fields, field)
}

// DefaultData builds the payload of a freshly added node: a generated label,
// empty strings, an empty option list and a zero delay.
func (s NodeSchema) DefaultData() NodeData {
	d := NodeData{Label: fmt.Sprintf("New %s node", s.Type)}
	empty := ""
	zero := 0
	switch s.Type {
	case NodeTypeIntent:
		d.Description = &empty
	case NodeTypeUserResponse:
		d.ResponseOptions = []string{}
	case NodeTypeBotReply:
		d.Message = &empty
	case NodeTypeConditional:
		d.Condition = &empty
	case NodeTypeDelay:
		d.DelaySeconds = &zero
	}
	return d
}

// Check compares a payload against the schema and returns the fields the
// schema requires but d lacks, and the fields d carries that the schema
// does not allow.
func (s NodeSchema) Check(d NodeData) (missing, extra []string) {
	present := d.Fields()
	for _, f := range s.Fields {
		if !slices.Contains(present, f) {
			missing = append(missing, f)
		}
	}
	for _, f := range present {
		if !s.Allows(f) {
			extra = append(extra, f)
		}
	}
	return missing, extra
}

// Fields lists the payload fields present in d. Label is always present.
func (d NodeData) Fields() []string {
	fields := []string{FieldLabel}
	if d.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if d.ResponseOptions != nil {
		fields = append(fields, FieldResponseOptions)
	}
	if d.Message != nil {
		fields = append(fields, FieldMessage)
	}
	if d.Condition != nil {
		fields = append(fields, FieldCondition)
	}
	if d.DelaySeconds != nil {
		fields = append(fields, FieldDelaySeconds)
	}
	return fields
}

// Normalize restores an empty option list on userResponse payloads that lost
// it in a codec round trip.
func (d *NodeData) Normalize(t NodeType) {
	if t == NodeTypeUserResponse && d.ResponseOptions == nil {
		d.ResponseOptions = []string{}
	}
}
