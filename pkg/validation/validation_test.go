package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowgraph/chatflow/internal/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "delaySeconds", Value: -1, Message: "minimum value/length is 0"}
	assert.Equal(t, "validation error on field 'delaySeconds': minimum value/length is 0 (got: -1)", err.Error())
	assert.ErrorIs(t, err, graph.ErrValidation)
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	assert.Contains(t, errs.Error(), "'a'")
	assert.Contains(t, errs.Error(), "; ")
	assert.Equal(t, []string{"a", "b"}, errs.Fields())
	assert.ErrorIs(t, errs, graph.ErrValidation)

	var wrapped error = errs
	var target ValidationErrors
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
}

func TestValidatePatch(t *testing.T) {
	tests := []struct {
		name       string
		nodeType   graph.NodeType
		patch      graph.DataPatch
		wantFields []string
	}{
		{name: "label on any type", nodeType: graph.NodeTypeIntent, patch: graph.DataPatch{Label: ptr("x")}},
		{name: "delay zero", nodeType: graph.NodeTypeDelay, patch: graph.DataPatch{DelaySeconds: ptr(0)}},
		{name: "delay positive", nodeType: graph.NodeTypeDelay, patch: graph.DataPatch{DelaySeconds: ptr(30)}},
		{name: "empty patch", nodeType: graph.NodeTypeBotReply, patch: graph.DataPatch{}},
		{name: "negative delay", nodeType: graph.NodeTypeDelay, patch: graph.DataPatch{DelaySeconds: ptr(-1)}, wantFields: []string{"delaySeconds"}},
		{name: "message on intent", nodeType: graph.NodeTypeIntent, patch: graph.DataPatch{Message: ptr("hi")}, wantFields: []string{"message"}},
		{name: "options on conditional", nodeType: graph.NodeTypeConditional, patch: graph.DataPatch{ResponseOptions: []string{"a"}}, wantFields: []string{"responseOptions"}},
		{name: "negative delay on botReply", nodeType: graph.NodeTypeBotReply, patch: graph.DataPatch{DelaySeconds: ptr(-2)}, wantFields: []string{"delaySeconds", "delaySeconds"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePatch(tt.nodeType, tt.patch)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, graph.ErrValidation)
			var ve ValidationErrors
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantFields, ve.Fields())
		})
	}
}

func TestValidatePatch_UnknownType(t *testing.T) {
	err := ValidatePatch("tool", graph.DataPatch{})
	assert.ErrorIs(t, err, graph.ErrInvalidNodeType)
}

func TestValidateNodeData(t *testing.T) {
	schema, _ := graph.SchemaFor(graph.NodeTypeDelay)
	assert.NoError(t, ValidateNodeData(graph.NodeTypeDelay, schema.DefaultData()))

	err := ValidateNodeData(graph.NodeTypeDelay, graph.NodeData{Label: "w", DelaySeconds: ptr(-4)})
	assert.ErrorIs(t, err, graph.ErrValidation)

	err = ValidateNodeData(graph.NodeTypeDelay, graph.NodeData{Label: "w"})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"delaySeconds"}, ve.Fields())

	err = ValidateNodeData(graph.NodeTypeIntent, graph.NodeData{Label: "i", Description: ptr(""), Message: ptr("m")})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"message"}, ve.Fields())
}

func TestValidatePosition(t *testing.T) {
	assert.NoError(t, ValidatePosition(graph.Position{X: -10.5, Y: 1e6}))

	err := ValidatePosition(graph.Position{X: math.NaN(), Y: math.Inf(1)})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"x", "y"}, ve.Fields())
}

func TestCustomTags(t *testing.T) {
	type request struct {
		Type   string `json:"type" validate:"required,node_type"`
		Source string `json:"source" validate:"required,node_id"`
	}

	assert.NoError(t, ValidateWithPlayground(request{Type: "botReply", Source: "e1-2"}))
	assert.NoError(t, ValidateWithPlayground(request{Type: "delay", Source: "3f1c0a52-6f6e-4c1e-9c59-1c1f7c0b8a11"}))

	err := ValidateWithPlayground(request{Type: "function", Source: "bad id!"})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"type", "source"}, ve.Fields())
}

func TestSQLIdentTag(t *testing.T) {
	type storage struct {
		Table string `json:"table" validate:"sql_ident"`
	}

	assert.NoError(t, ValidateWithPlayground(storage{Table: "bot_versions_2"}))
	for _, bad := range []string{"bad-name", "x; drop", "with space", ""} {
		err := ValidateWithPlayground(storage{Table: bad})
		var ve ValidationErrors
		require.True(t, errors.As(err, &ve), bad)
		assert.Equal(t, []string{"table"}, ve.Fields())
	}
}

func TestIsValidID(t *testing.T) {
	assert.True(t, IsValidID("1"))
	assert.True(t, IsValidID("node_A-2"))
	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID("has space"))
	assert.False(t, IsValidID(string(make([]byte, 101))))
}

func TestValidateWithConfig_MaxErrors(t *testing.T) {
	type many struct {
		A string `json:"a" validate:"required"`
		B string `json:"b" validate:"required"`
		C string `json:"c" validate:"required"`
	}

	err := ValidateWithConfig(many{}, &ValidationConfig{MaxErrors: 2})
	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve, 2)
}

func TestValidationMiddleware(t *testing.T) {
	type RequestBody struct {
		Name string `json:"name" validate:"required"`
		Age  int    `json:"age" validate:"min=0"`
	}

	middleware := NewMiddleware(DefaultValidationConfig())

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := Body[RequestBody](r)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body.Name))
	})

	t.Run("Valid JSON request", func(t *testing.T) {
		bodyBytes, _ := json.Marshal(RequestBody{Name: "John", Age: 25})
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(bodyBytes))
		rr := httptest.NewRecorder()

		middleware.ValidateJSON(RequestBody{})(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "John", rr.Body.String())
	})

	t.Run("Invalid JSON request", func(t *testing.T) {
		bodyBytes, _ := json.Marshal(RequestBody{Name: "", Age: -5})
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBuffer(bodyBytes))
		rr := httptest.NewRecorder()

		middleware.ValidateJSON(RequestBody{})(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		errs, err := UnmarshalValidationErrors(rr.Body.Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{"name", "age"}, errs.Fields())
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString("{invalid json"))
		rr := httptest.NewRecorder()

		middleware.ValidateJSON(RequestBody{})(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(`{"name":"a","extra":1}`))
		rr := httptest.NewRecorder()

		middleware.ValidateJSON(&RequestBody{})(handler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestMarshalUnmarshalValidationErrors(t *testing.T) {
	original := ValidationErrors{{Field: "label", Value: "x", Message: "too long"}}

	data, err := MarshalValidationErrors(original)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"count":1`)

	decoded, err := UnmarshalValidationErrors(data)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, "label", decoded[0].Field)
	assert.Equal(t, "too long", decoded[0].Message)
}
