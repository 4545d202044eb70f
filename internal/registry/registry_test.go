package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/entity"
)

func testSchemaJSON(t *testing.T) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)
	return b
}

func TestResolveBrandSpecific(t *testing.T) {
	store := NewMemoryStore()
	special := "Dates are DD.MM.YYYY."
	store.PutTemplate(entity.PromptTemplate{
		CountryCode:         "DE",
		BrandName:           "acme",
		ProcessingMethod:    "text",
		SchemaJSON:          testSchemaJSON(t),
		Prompt:              "Extract all invoice fields.",
		SpecialInstructions: &special,
		IsActive:            true,
	})

	cfg, err := NewResolver(store, nil).Resolve(context.Background(), "DE", "Acme", "text")
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.BrandName)
	assert.Contains(t, cfg.Instructions, "Extract all invoice fields.")
	assert.Contains(t, cfg.Instructions, "Special Instructions:\nDates are DD.MM.YYYY.")
	assert.Contains(t, cfg.Schema["properties"].(map[string]any), "invoice_number")
}

func TestResolveDefaultFallback(t *testing.T) {
	store := NewMemoryStore()
	store.PutTemplate(entity.PromptTemplate{
		CountryCode:      "US",
		BrandName:        "default",
		ProcessingMethod: "text",
		SchemaJSON:       testSchemaJSON(t),
		Prompt:           "Default extraction prompt.",
		IsActive:         true,
	})

	cfg, err := NewResolver(store, nil).Resolve(context.Background(), "US", "Unseen Brand", "text")
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.BrandName)
	assert.Equal(t, "Default extraction prompt.", cfg.Instructions)
}

func TestResolveNoDefault(t *testing.T) {
	store := NewMemoryStore()

	_, err := NewResolver(store, nil).Resolve(context.Background(), "FR", "acme", "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfigNotFound)
}

func TestResolveFeedbackAppended(t *testing.T) {
	store := NewMemoryStore()
	store.PutTemplate(entity.PromptTemplate{
		CountryCode:      "GB",
		BrandName:        "acme",
		ProcessingMethod: "image",
		SchemaJSON:       testSchemaJSON(t),
		Prompt:           "Base prompt.",
		IsActive:         true,
	})
	store.PutFeedback(entity.BrandFeedback{
		CountryCode: "GB",
		BrandName:   "acme",
		Feedback:    "Quantities are often in the second column.",
	})

	cfg, err := NewResolver(store, nil).Resolve(context.Background(), "GB", "ACME", "image")
	require.NoError(t, err)
	assert.Contains(t, cfg.Instructions,
		"Feedback Notes from end users during previous episodes:\nQuantities are often in the second column.")
}

func TestResolveInactiveTemplateIgnored(t *testing.T) {
	store := NewMemoryStore()
	store.PutTemplate(entity.PromptTemplate{
		CountryCode:      "US",
		BrandName:        "acme",
		ProcessingMethod: "text",
		SchemaJSON:       testSchemaJSON(t),
		Prompt:           "Old prompt.",
		IsActive:         false,
	})
	store.PutTemplate(entity.PromptTemplate{
		CountryCode:      "US",
		BrandName:        "default",
		ProcessingMethod: "text",
		SchemaJSON:       testSchemaJSON(t),
		Prompt:           "Default prompt.",
		IsActive:         true,
	})

	cfg, err := NewResolver(store, nil).Resolve(context.Background(), "US", "acme", "text")
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.BrandName)
}
