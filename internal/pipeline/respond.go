package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gwh-ap/invoice-agent/constants"
)

const responseTimeFormat = "2006-01-02 15:04:05"

// prepareResponse assembles the success envelope: internal keys are
// stripped from the merged data, page tracking is summarized, and the final
// invoice payload is checkpointed.
func (p *Pipeline) prepareResponse(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}
	if len(st.InvoiceData) == 0 {
		return st.fail("no invoice data available for response")
	}

	tracking := p.buildPageTracking(st)

	out := map[string]any{
		"status":            "success",
		"supplier_name":     st.SupplierName,
		"brand_name":        st.BrandName,
		"extraction_method": st.ExtractionMethod,
		"page_tracking":     tracking,
		"timestamp":         time.Now().Format(responseTimeFormat),
	}

	if st.Status == constants.StatusDataMergedMultiple {
		invoices := make([]map[string]any, 0, len(st.AllInvoices))
		for _, inv := range st.AllInvoices {
			invoices = append(invoices, stripInternalKeys(inv))
		}
		out["invoice_count"] = len(invoices)
		out["invoices"] = invoices
	} else {
		out["invoice_data"] = stripInternalKeys(st.InvoiceData)
	}

	st.Output = out
	st.Status = constants.StatusResponsePrepared

	if cerr := p.Checkpoints.UpdateFullInvoiceData(ctx, st.TransactionID,
		stripForPersistence(st.InvoiceData),
		string(st.ProcessingMethod), st.ExtractionMethod); cerr != nil {
		p.Logger.Warn("pipeline.respond.checkpoint_failed",
			"transaction_id", st.TransactionID, "error", cerr)
	}

	p.Logger.Info("pipeline.respond.ok",
		"transaction_id", st.TransactionID,
		"extraction_method", st.ExtractionMethod,
		"invoices", len(st.InvoiceOrder),
	)
	st.Status = constants.StatusSuccess
	return StageDone
}

// handleError is the terminal error stage: every failure in the run funnels
// here and becomes the error envelope.
func (p *Pipeline) handleError(ctx context.Context, st *State) Stage {
	p.Logger.Error("pipeline.failed",
		"transaction_id", st.TransactionID,
		"error", st.Err,
		"error_origin", string(st.ErrOrigin),
	)

	st.Output = map[string]any{
		"status":       "error",
		"error":        st.Err,
		"error_origin": string(st.ErrOrigin),
		"timestamp":    time.Now().Format(responseTimeFormat),
	}

	if st.TransactionID != "" {
		if cerr := p.Checkpoints.UpdateInvoiceStatusByID(ctx,
			st.TransactionID, constants.InvoiceStatusFailed); cerr != nil {
			p.Logger.Warn("pipeline.respond.checkpoint_failed",
				"transaction_id", st.TransactionID, "error", cerr)
		}
	}
	return StageDone
}

// buildPageTracking summarizes which pages fed which invoice and how many
// line items each page produced. Page lists are rendered as strings and
// counts are keyed "{invoice}_{page}".
func (p *Pipeline) buildPageTracking(st *State) map[string]any {
	invoiceToPages := map[string][]string{}
	counts := map[string]int{}

	for _, inv := range st.InvoiceOrder {
		col, ok := st.Collections[inv]
		if !ok {
			continue
		}
		pages := make([]string, 0, len(col.Pages))
		for _, page := range sortedPages(col.Pages) {
			pages = append(pages, strconv.Itoa(page))
		}
		invoiceToPages[inv] = pages

		for _, item := range col.LineItems {
			if page, ok := item["_source_page"].(int); ok {
				counts[fmt.Sprintf("%s_%d", inv, page)]++
			}
		}
	}

	return map[string]any{
		"method":                st.ExtractionMethod,
		"invoice_to_pages":      invoiceToPages,
		"page_line_item_counts": counts,
	}
}

// stripInternalKeys removes underscore-prefixed keys from a map and from any
// nested maps or slices, without mutating the input.
func stripInternalKeys(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = stripInternalValue(v)
	}
	return out
}

func stripInternalValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return stripInternalKeys(typed)
	case []map[string]any:
		out := make([]any, 0, len(typed))
		for _, e := range typed {
			out = append(out, stripInternalKeys(e))
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, e := range typed {
			out = append(out, stripInternalValue(e))
		}
		return out
	default:
		return v
	}
}

// stripForPersistence keeps _source_page on line items (the repository maps
// it to the source_page column) but drops the other internal keys.
func stripForPersistence(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if strings.HasPrefix(k, "_") && k != "_source_page" {
			continue
		}
		switch typed := v.(type) {
		case map[string]any:
			out[k] = stripForPersistence(typed)
		case []map[string]any:
			items := make([]map[string]any, 0, len(typed))
			for _, e := range typed {
				items = append(items, stripForPersistence(e))
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
