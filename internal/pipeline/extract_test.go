package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePages(t *testing.T) {
	tests := []struct {
		name  string
		total int
		spec  string
		want  []int
	}{
		{"all", 3, "all", []int{1, 2, 3}},
		{"empty means all", 3, "", []int{1, 2, 3}},
		{"first", 5, "first", []int{1}},
		{"explicit list", 10, "2,4,7", []int{2, 4, 7}},
		{"range", 10, "3-5", []int{3, 4, 5}},
		{"mixed list and range", 10, "3-5,8", []int{3, 4, 5, 8}},
		{"out of range dropped", 3, "2,9", []int{2}},
		{"all out of range falls back", 3, "7-9", []int{1, 2, 3}},
		{"garbage falls back", 3, "x,y", []int{1, 2, 3}},
		{"whitespace tolerated", 10, " 1 , 3 - 4 ", []int{1, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolvePages(tt.total, tt.spec, nil))
		})
	}
}

func TestSplitBatches(t *testing.T) {
	pages := []int{1, 2, 3, 4, 5}

	assert.Equal(t, [][]int{pages}, splitBatches(pages, 0), "no limit keeps one batch")
	assert.Equal(t, [][]int{pages}, splitBatches(pages, 5))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, splitBatches(pages, 2))
	assert.Equal(t, [][]int{{1}, {2}, {3}, {4}, {5}}, splitBatches(pages, 1))
}

func TestAccumulateHeader(t *testing.T) {
	header := map[string]any{}

	accumulateHeader(header, map[string]any{
		"invoice_number": "INV-1",
		"issue_date":     "2026-02-01",
		"subtotal":       100.0,
		"total":          100.0,
	}, false)
	accumulateHeader(header, map[string]any{
		"invoice_number": "WRONG",
		"issue_date":     "",
		"subtotal":       100.0,
		"total":          105.0,
		"customer_id":    "C-42",
	}, false)

	assert.Equal(t, "INV-1", header["invoice_number"], "identifiers keep the first value")
	assert.Equal(t, "2026-02-01", header["issue_date"])
	assert.Equal(t, 100.0, header["total"], "middle pages never override amounts")
	assert.Equal(t, "C-42", header["customer_id"])

	accumulateHeader(header, map[string]any{
		"invoice_number": "WRONG-2",
		"total":          110.0,
	}, true)

	assert.Equal(t, 110.0, header["total"], "the final page overrides amounts")
	assert.Equal(t, 100.0, header["subtotal"], "untouched amounts keep their value")
	assert.Equal(t, "INV-1", header["invoice_number"])
}

func TestBackfillCriticalFields(t *testing.T) {
	col := newInvoiceCollection([]int{1, 2})
	col.Header["invoice_number"] = "INV-1"
	col.PageData[1] = &PageData{Header: map[string]any{"po_number": "PO-77"}}
	col.PageData[2] = &PageData{Header: map[string]any{"po_number": "PO-99", "due_date": "2026-03-01"}}

	backfillCriticalFields(col)

	assert.Equal(t, "PO-77", col.Header["po_number"], "earliest page wins on backfill")
	assert.Equal(t, "2026-03-01", col.Header["due_date"])
	assert.Equal(t, "INV-1", col.Header["invoice_number"])
}

func TestNormalizeSourcePages(t *testing.T) {
	items := []map[string]any{
		{"description": "a", "_source_page": float64(3)},
		{"description": "b", "_source_page": "4"},
		{"description": "c", "_source_page": float64(9)},
		{"description": "d"},
	}

	normalizeSourcePages(items, []int{3, 4})

	assert.Equal(t, 3, items[0]["_source_page"])
	assert.Equal(t, 4, items[1]["_source_page"])
	assert.Equal(t, 3, items[2]["_source_page"], "pages outside the batch clamp to its first page")
	assert.Equal(t, 3, items[3]["_source_page"])
}

func TestStripInternalKeys(t *testing.T) {
	data := map[string]any{
		"invoice_number": "INV-1",
		"_page_tracking": map[string]any{"pages": []int{1}},
		"line_items": []map[string]any{
			{"description": "Widget", "_source_page": 1},
		},
	}

	out := stripInternalKeys(data)

	assert.NotContains(t, out, "_page_tracking")
	items, ok := out["line_items"].([]any)
	require.True(t, ok)
	item := items[0].(map[string]any)
	assert.Equal(t, "Widget", item["description"])
	assert.NotContains(t, item, "_source_page")

	// input untouched
	assert.Contains(t, data, "_page_tracking")
	assert.Contains(t, data["line_items"].([]map[string]any)[0], "_source_page")
}

func TestStripForPersistenceKeepsSourcePage(t *testing.T) {
	data := map[string]any{
		"invoice_number": "INV-1",
		"_page_tracking": map[string]any{},
		"line_items": []map[string]any{
			{"description": "Widget", "_source_page": 2},
		},
	}

	out := stripForPersistence(data)

	assert.NotContains(t, out, "_page_tracking")
	items := out["line_items"].([]map[string]any)
	assert.Equal(t, 2, items[0]["_source_page"])
}
