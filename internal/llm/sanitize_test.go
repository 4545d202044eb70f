package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strictTestSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"invoice_number": map[string]any{"type": "string"},
			"total":          map[string]any{"type": "string"},
		},
		"required": []string{"invoice_number"},
	}
}

func TestSanitizeToSchemaDropsNullsAndUnknowns(t *testing.T) {
	raw := []byte(`{"invoice_number":" INV-1 ","total":null,"vendor_note":"x","_source_page":2}`)

	out, dropped, err := SanitizeToSchema(raw, strictTestSchema(), nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))

	assert.Equal(t, "INV-1", m["invoice_number"])
	_, hasTotal := m["total"]
	assert.False(t, hasTotal)
	_, hasNote := m["vendor_note"]
	assert.False(t, hasNote)
	// Provenance keys survive strict cleanup.
	assert.Equal(t, float64(2), m["_source_page"])

	assert.Contains(t, dropped, "total(null)")
	assert.Contains(t, dropped, "vendor_note(unknown)")
}

func TestSanitizeToSchemaLenientWhenNotStrict(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"invoice_number": map[string]any{"type": "string"}},
	}
	raw := []byte(`{"invoice_number":"A1","extra":"kept"}`)

	out, _, err := SanitizeToSchema(raw, schema, nil)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Equal(t, "kept", m["extra"])
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := strictTestSchema()

	err := ValidateJSONAgainstSchema(schema, []byte(`{"invoice_number":"INV-1"}`))
	assert.NoError(t, err)

	err = ValidateJSONAgainstSchema(schema, []byte(`{"total":"100"}`))
	assert.Error(t, err)
}

func TestLineItemPropertyNames(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": "string"},
						"amount":      map[string]any{"type": "string"},
					},
				},
			},
		},
	}

	names := LineItemPropertyNames(schema)
	assert.Contains(t, names, "description")
	assert.Contains(t, names, "amount")
	assert.Len(t, names, 2)

	assert.Nil(t, LineItemPropertyNames(map[string]any{"type": "object"}))
}
