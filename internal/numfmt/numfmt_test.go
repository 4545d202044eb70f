package numfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     any
		currency string
	}{
		{"us grouping", "5,123.45", 5123.45, ""},
		{"us grouping with symbol", "$5,123.45", 5123.45, "$"},
		{"european grouping decimal comma", "5 123,45", 5123.45, ""},
		{"european with euro", "5 123,45 €", 5123.45, "€"},
		{"decimal comma", "123,45", 123.45, ""},
		{"plain decimal", "123.45", 123.45, ""},
		{"space thousands integer", "5 123", int64(5123), ""},
		{"plain integer", "42", int64(42), ""},
		{"iso code prefix", "USD 1,234.56", 1234.56, "USD"},
		{"iso code suffix", "1234,56 SEK", 1234.56, "SEK"},
		{"pound symbol", "£99.99", 99.99, "£"},
		{"yen integer", "¥1200", int64(1200), "¥"},
		{"decimal comma wins over grouping", "1,200", 1.2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cur := Normalize(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.currency, cur)
		})
	}
}

func TestNormalizeUnparseable(t *testing.T) {
	// Values that cannot be interpreted come back unchanged.
	got, cur := Normalize("1,2,3.4.5")
	assert.Equal(t, "1,2,3.4.5", got)
	assert.Equal(t, "", cur)

	got, cur = Normalize("N/A")
	assert.Equal(t, "N/A", got)
	assert.Equal(t, "", cur)
}

func TestCleanAmountsHeaderFields(t *testing.T) {
	record := map[string]any{
		"subtotal": "1 250,00",
		"tax":      "250,00 €",
		"total":    "1,500.00",
		"notes":    "thirty days net",
	}

	cleaned := CleanAmounts(record)

	assert.Equal(t, 1250.0, cleaned["subtotal"])
	assert.Equal(t, 250.0, cleaned["tax"])
	assert.Equal(t, 1500.0, cleaned["total"])
	assert.Equal(t, "€", cleaned["currency"])
	assert.Equal(t, "thirty days net", cleaned["notes"])

	// Original untouched.
	assert.Equal(t, "1 250,00", record["subtotal"])
	_, hasCurrency := record["currency"]
	assert.False(t, hasCurrency)
}

func TestCleanAmountsDoesNotOverrideCurrency(t *testing.T) {
	record := map[string]any{
		"total":    "$100.00",
		"currency": "EUR",
	}

	cleaned := CleanAmounts(record)
	assert.Equal(t, "EUR", cleaned["currency"])
}

func TestCleanAmountsLineItems(t *testing.T) {
	record := map[string]any{
		"line_items": []any{
			map[string]any{
				"description": "widgets",
				"quantity":    "2",
				"unit_price":  "12,50",
				"amount":      "25,00 SEK",
			},
			map[string]any{
				"description": "freight",
				"amount":      5.0,
			},
		},
	}

	cleaned := CleanAmounts(record)

	items, ok := cleaned["line_items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Equal(t, int64(2), first["quantity"])
	assert.Equal(t, 12.5, first["unit_price"])
	assert.Equal(t, 25.0, first["amount"])
	assert.Equal(t, "SEK", cleaned["currency"])

	second := items[1].(map[string]any)
	assert.Equal(t, 5.0, second["amount"])
}

func TestCleanAmountsNil(t *testing.T) {
	assert.Nil(t, CleanAmounts(nil))
}
