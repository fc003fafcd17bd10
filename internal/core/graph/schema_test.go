package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_DefaultData(t *testing.T) {
	for _, nt := range NodeTypes() {
		t.Run(string(nt), func(t *testing.T) {
			schema, ok := SchemaFor(nt)
			require.True(t, ok)

			d := schema.DefaultData()
			assert.Equal(t, "New "+string(nt)+" node", d.Label)

			missing, extra := schema.Check(d)
			assert.Empty(t, missing)
			assert.Empty(t, extra)
			assert.ElementsMatch(t, schema.Fields, d.Fields())
		})
	}
}

func TestSchema_DefaultValues(t *testing.T) {
	intent, _ := SchemaFor(NodeTypeIntent)
	assert.Equal(t, "", *intent.DefaultData().Description)

	ur, _ := SchemaFor(NodeTypeUserResponse)
	opts := ur.DefaultData().ResponseOptions
	assert.NotNil(t, opts)
	assert.Empty(t, opts)

	delay, _ := SchemaFor(NodeTypeDelay)
	assert.Equal(t, 0, *delay.DefaultData().DelaySeconds)
}

func TestSchema_Check(t *testing.T) {
	schema, _ := SchemaFor(NodeTypeBotReply)
	msg := "hi"
	delay := 3

	missing, extra := schema.Check(NodeData{Label: "x", DelaySeconds: &delay})
	assert.Equal(t, []string{FieldMessage}, missing)
	assert.Equal(t, []string{FieldDelaySeconds}, extra)

	missing, extra = schema.Check(NodeData{Label: "x", Message: &msg})
	assert.Empty(t, missing)
	assert.Empty(t, extra)
}

func TestSchemaFor_Unknown(t *testing.T) {
	_, ok := SchemaFor("tool")
	assert.False(t, ok)
	assert.False(t, NodeType("tool").Valid())
}

func TestNodeData_Apply(t *testing.T) {
	schema, _ := SchemaFor(NodeTypeDelay)
	base := schema.DefaultData()
	five := 5

	patched := base.Apply(DataPatch{DelaySeconds: &five})
	assert.Equal(t, 5, *patched.DelaySeconds)
	assert.Equal(t, base.Label, patched.Label)
	// the original is untouched
	assert.Equal(t, 0, *base.DelaySeconds)

	label := "Wait"
	patched = patched.Apply(DataPatch{Label: &label})
	assert.Equal(t, "Wait", patched.Label)
	assert.Equal(t, 5, *patched.DelaySeconds)
}

func TestNodeData_ApplyClearsOptions(t *testing.T) {
	d := NodeData{Label: "q", ResponseOptions: []string{"yes", "no"}}

	assert.Equal(t, []string{"yes", "no"}, d.Apply(DataPatch{}).ResponseOptions)
	cleared := d.Apply(DataPatch{ResponseOptions: []string{}})
	assert.NotNil(t, cleared.ResponseOptions)
	assert.Empty(t, cleared.ResponseOptions)
}

func TestDataPatch_Fields(t *testing.T) {
	label, cond := "l", "x > 1"
	p := DataPatch{Label: &label, Condition: &cond}
	assert.Equal(t, []string{FieldLabel, FieldCondition}, p.Fields())
	assert.Empty(t, DataPatch{}.Fields())
}

func TestNodeData_Normalize(t *testing.T) {
	d := NodeData{Label: "q"}
	d.Normalize(NodeTypeUserResponse)
	assert.NotNil(t, d.ResponseOptions)

	b := NodeData{Label: "b"}
	b.Normalize(NodeTypeBotReply)
	assert.Nil(t, b.ResponseOptions)
}
