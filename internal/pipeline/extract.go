package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/numfmt"
)

// pageExtractFunc runs one structured extraction call for a single page of
// one invoice. headerOpts carries the brand name, resolved instructions and
// the invoice number under extraction.
type pageExtractFunc func(ctx context.Context, opts pagePromptOpts, page int) (map[string]any, error)

// batchExtractFunc runs one structured extraction call covering a batch of
// an invoice's pages.
type batchExtractFunc func(ctx context.Context, opts pagePromptOpts, pages []int, batchNum, totalBatches int) (map[string]any, error)

// extractPerPage processes every classified invoice one page at a time and
// accumulates results into st.Collections. A page whose extraction call
// fails contributes nothing: the failure is logged and the remaining pages
// still run. Fields keep the first non-empty value seen, except that amount
// fields are overridden by the last page of a multi-page invoice; every line
// item is tagged with the page it came from.
func (p *Pipeline) extractPerPage(ctx context.Context, st *State, opts pagePromptOpts, extract pageExtractFunc) {
	if st.Collections == nil {
		st.Collections = map[string]*InvoiceCollection{}
	}

	for _, inv := range st.InvoiceOrder {
		if _, done := st.Collections[inv]; done {
			continue
		}
		pages := st.InvoicePages[inv]
		multi := len(pages) > 1
		col := newInvoiceCollection(pages)

		for i, page := range pages {
			opts.InvoiceNumber = inv
			data, err := extract(ctx, opts, page)
			if err != nil {
				p.Logger.Warn("pipeline.extract.page_failed",
					"transaction_id", st.TransactionID,
					"invoice_number", inv, "page", page, "error", err)
				continue
			}
			data = numfmt.CleanAmounts(data)

			items := lineItemMaps(data["line_items"])
			for _, item := range items {
				item["_source_page"] = page
			}
			col.LineItems = append(col.LineItems, items...)

			header := map[string]any{}
			for k, v := range data {
				if k == "line_items" {
					continue
				}
				header[k] = v
			}
			accumulateHeader(col.Header, header, multi && i == len(pages)-1)

			col.PageData[page] = &PageData{
				Header:      header,
				LineItems:   items,
				IsLastPage:  i == len(pages)-1,
				IsMultiPage: multi,
			}
			p.Logger.Info("pipeline.extract.page_ok",
				"transaction_id", st.TransactionID,
				"invoice_number", inv, "page", page, "line_items", len(items))
		}

		if multi {
			backfillCriticalFields(col)
		}
		st.Collections[inv] = col
	}
}

// extractPerInvoice processes each invoice's pages in whole-invoice calls,
// split into batches of at most maxPagesPerBatch pages when set. A failed
// invoice-level call downgrades that invoice and every invoice not yet
// processed to the per-page path; invoices already extracted keep their
// invoice-level results.
func (p *Pipeline) extractPerInvoice(ctx context.Context, st *State, opts pagePromptOpts,
	extractBatch batchExtractFunc, extractPage pageExtractFunc) (downgraded bool) {

	if st.Collections == nil {
		st.Collections = map[string]*InvoiceCollection{}
	}

	for _, inv := range st.InvoiceOrder {
		pages := st.InvoicePages[inv]
		batches := splitBatches(pages, st.MaxPagesPerBatch)
		col := newInvoiceCollection(pages)
		opts.InvoiceNumber = inv

		failed := false
		for bi, batch := range batches {
			data, berr := extractBatch(ctx, opts, batch, bi+1, len(batches))
			if berr != nil {
				p.Logger.Warn("pipeline.extract.invoice_level_failed",
					"transaction_id", st.TransactionID,
					"invoice_number", inv, "batch", bi+1, "error", berr)
				failed = true
				break
			}
			data = numfmt.CleanAmounts(data)

			items := lineItemMaps(data["line_items"])
			normalizeSourcePages(items, batch)
			col.LineItems = append(col.LineItems, items...)

			header := map[string]any{}
			for k, v := range data {
				if k == "line_items" {
					continue
				}
				header[k] = v
			}
			accumulateHeader(col.Header, header, bi == len(batches)-1)

			col.PageData[batch[0]] = &PageData{
				Header:      header,
				LineItems:   items,
				IsLastPage:  bi == len(batches)-1,
				IsMultiPage: len(batches) > 1,
				BatchNum:    bi + 1,
				BatchTotal:  len(batches),
			}
			p.Logger.Info("pipeline.extract.batch_ok",
				"transaction_id", st.TransactionID,
				"invoice_number", inv, "batch", bi+1, "batches", len(batches),
				"pages", len(batch), "line_items", len(items))
		}

		if failed {
			// Fall back to page level for this invoice and the rest; the
			// per-page loop skips invoices that already have a collection.
			p.extractPerPage(ctx, st, opts, extractPage)
			return true
		}

		if len(batches) > 1 {
			backfillCriticalFields(col)
		}
		st.Collections[inv] = col
	}
	return false
}

// accumulateHeader folds one page's (or batch's) header fields into the
// invoice header. Every field keeps the first non-empty value seen, except
// amount fields when the source is the final page of a multi-page invoice or
// the final batch: those override so the document's closing totals stand.
func accumulateHeader(dst, src map[string]any, financialOverride bool) {
	for k, v := range src {
		if isEmptyValue(v) {
			continue
		}
		if financialOverride && constants.IsFinancialField(k) {
			dst[k] = v
			continue
		}
		if isEmptyValue(dst[k]) {
			dst[k] = v
		}
	}
}

// backfillCriticalFields fills identifier fields that ended up empty from
// the per-page snapshots, earliest page first.
func backfillCriticalFields(col *InvoiceCollection) {
	for _, field := range constants.CriticalFields {
		if !isEmptyValue(col.Header[field]) {
			continue
		}
		for _, page := range col.Pages {
			pd, ok := col.PageData[page]
			if !ok {
				continue
			}
			if v, exists := pd.Header[field]; exists && !isEmptyValue(v) {
				col.Header[field] = v
				break
			}
		}
	}
}

// splitBatches divides pages into consecutive batches of at most max pages.
// max <= 0 means one batch with everything.
func splitBatches(pages []int, max int) [][]int {
	if max <= 0 || len(pages) <= max {
		return [][]int{pages}
	}
	n := int(math.Ceil(float64(len(pages)) / float64(max)))
	batches := make([][]int, 0, n)
	for start := 0; start < len(pages); start += max {
		end := start + max
		if end > len(pages) {
			end = len(pages)
		}
		batches = append(batches, pages[start:end])
	}
	return batches
}

// lineItemMaps coerces the model's line_items value into a slice of maps,
// dropping anything that is not an object.
func lineItemMaps(v any) []map[string]any {
	raw, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]map[string]any); ok {
			return typed
		}
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

// normalizeSourcePages coerces model-assigned _source_page values to ints
// and clamps them to pages that were actually in the batch.
func normalizeSourcePages(items []map[string]any, batch []int) {
	valid := map[int]bool{}
	for _, p := range batch {
		valid[p] = true
	}
	fallback := 0
	if len(batch) > 0 {
		fallback = batch[0]
	}
	for _, item := range items {
		page := 0
		switch v := item["_source_page"].(type) {
		case float64:
			page = int(v)
		case int:
			page = v
		case string:
			fmt.Sscanf(v, "%d", &page)
		}
		if !valid[page] {
			page = fallback
		}
		item["_source_page"] = page
	}
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
