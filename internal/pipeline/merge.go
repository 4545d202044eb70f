package pipeline

import (
	"context"
	"strings"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// mergeInvoiceData projects every accumulated collection onto the resolved
// schema. The classified invoice number overrides whatever the model
// extracted, and the country stage's codes and region are folded in before
// projection, so codes the schema does not declare are dropped with the rest.
// Internal keys (leading underscore) survive the projection so later stages
// can use them. When nothing at all was extracted a fallback invoice carrying
// the supplier-level data is produced instead of failing the run.
func (p *Pipeline) mergeInvoiceData(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}

	headerKeys := llm.SchemaPropertyNames(st.Schema)
	delete(headerKeys, "line_items")
	lineKeys := llm.LineItemPropertyNames(st.Schema)

	project := func(raw map[string]any) map[string]any {
		data := make(map[string]any, len(raw))
		for k, v := range raw {
			if _, known := headerKeys[k]; known || strings.HasPrefix(k, "_") {
				data[k] = v
			}
		}
		return data
	}

	merged := make([]map[string]any, 0, len(st.InvoiceOrder))
	for _, inv := range st.InvoiceOrder {
		col, ok := st.Collections[inv]
		if !ok {
			continue
		}

		header := make(map[string]any, len(col.Header)+5)
		for k, v := range col.Header {
			header[k] = v
		}
		// The classification token is authoritative, unknown bucket included.
		header["invoice_number"] = inv
		injectIfEmpty(header, "supplier_country_code", st.SupplierCountry)
		injectIfEmpty(header, "buyer_country_code", st.BuyerCountry)
		injectIfEmpty(header, "ship_to_country_code", st.ShipToCountry)
		injectIfEmpty(header, "region", st.Region)

		data := project(header)

		items := make([]map[string]any, 0, len(col.LineItems))
		counts := map[int]int{}
		for _, item := range col.LineItems {
			projected := map[string]any{}
			for k, v := range item {
				if _, known := lineKeys[k]; known || strings.HasPrefix(k, "_") {
					projected[k] = v
				}
			}
			if page, ok := projected["_source_page"].(int); ok {
				counts[page]++
			}
			items = append(items, projected)
		}
		data["line_items"] = items

		data["_page_tracking"] = map[string]any{
			"pages":            col.Pages,
			"line_item_counts": counts,
		}

		merged = append(merged, data)
		p.Logger.Info("pipeline.merge.invoice_ok",
			"transaction_id", st.TransactionID,
			"invoice_number", inv, "pages", len(col.Pages), "line_items", len(items))
	}

	if len(merged) == 0 {
		// Nothing extracted anywhere; answer with what the supplier and
		// country stages produced rather than erroring out.
		p.Logger.Warn("pipeline.merge.fallback_invoice",
			"transaction_id", st.TransactionID)
		fallback := project(map[string]any{
			"invoice_number":        constants.UnknownInvoice,
			"supplier_details":      st.SupplierName,
			"supplier_country_code": st.SupplierCountry,
			"buyer_details":         st.BuyerAddress,
			"buyer_country_code":    st.BuyerCountry,
			"ship_to_details":       st.ShipToAddress,
			"ship_to_country_code":  st.ShipToCountry,
			"region":                st.Region,
		})
		fallback["invoice_number"] = constants.UnknownInvoice
		fallback["line_items"] = []map[string]any{}
		fallback["_page_tracking"] = map[string]any{
			"pages":            []int{},
			"line_item_counts": map[int]int{},
		}
		merged = append(merged, fallback)
	}

	if len(merged) == 1 {
		st.InvoiceData = merged[0]
		st.Status = constants.StatusDataMerged
	} else {
		st.AllInvoices = merged
		st.InvoiceData = merged[0]
		st.ExtractionMethod += constants.MultipleSuffix
		st.Status = constants.StatusDataMergedMultiple
	}
	return StagePrepareResponse
}

func injectIfEmpty(data map[string]any, key, value string) {
	if value == "" {
		return
	}
	if isEmptyValue(data[key]) {
		data[key] = value
	}
}
