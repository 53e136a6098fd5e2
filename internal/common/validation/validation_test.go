package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent"},
	"properties": map[string]interface{}{
		"intent":     map[string]interface{}{"type": "string", "enum": []interface{}{"list_leads", "unknown"}},
		"confidence": map[string]interface{}{"type": []interface{}{"number", "null"}, "minimum": 0, "maximum": 1},
	},
}

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestSchemaValidator(t *testing.T) {
	v, err := NewSchemaValidator(testSchema)
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"valid", `{"intent":"list_leads","confidence":0.8}`, true},
		{"null confidence", `{"intent":"unknown","confidence":null}`, true},
		{"intent not whitelisted", `{"intent":"delete_everything"}`, false},
		{"missing intent", `{"confidence":0.3}`, false},
		{"confidence out of range", `{"intent":"list_leads","confidence":1.5}`, false},
		{"not an object", `["list_leads"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(decode(t, tt.doc))
			assert.Equal(t, tt.valid, res.Valid, res.Error())
			if !tt.valid {
				assert.NotEmpty(t, res.GetErrorMessages())
			}
		})
	}
}

func TestNewSchemaValidator_BadSchema(t *testing.T) {
	_, err := NewSchemaValidator(map[string]interface{}{"type": 42})
	assert.Error(t, err)
}

func TestIsFalsy(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"blank string", "   ", true},
		{"string", "신규 사업", false},
		{"zero float", float64(0), true},
		{"float", float64(12), false},
		{"zero int", 0, true},
		{"int64", int64(7), false},
		{"false", false, true},
		{"true", true, false},
		{"empty slice", []interface{}{}, true},
		{"slice", []interface{}{"a"}, false},
		{"empty map", map[string]interface{}{}, true},
		{"map", map[string]interface{}{"name": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFalsy(tt.value))
		})
	}
}

func TestMissingFields(t *testing.T) {
	params := map[string]interface{}{
		"projectId":       float64(3),
		"leadId":          "",
		"feedbackSummary": nil,
	}

	assert.Equal(t, []string{"leadId", "feedbackSummary"}, MissingFields(params, "projectId", "leadId", "feedbackSummary"))
	assert.Empty(t, MissingFields(params, "projectId"))
}

func TestFirstPresent(t *testing.T) {
	params := map[string]interface{}{"description": "", "userPrompt": "프로젝트 등록"}

	key, ok := FirstPresent(params, "description", "userPrompt")
	assert.True(t, ok)
	assert.Equal(t, "userPrompt", key)

	_, ok = FirstPresent(params, "leads")
	assert.False(t, ok)
}
