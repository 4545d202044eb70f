package constants

// FinancialFields are header amounts that refresh on every page, so the
// value from the last page (or last batch) of an invoice wins.
var FinancialFields = []string{
	"subtotal",
	"total",
	"tax",
	"items_total",
	"total_amount_due",
	"output_tax",
	"discount",
	"shipping_cost",
	"vat",
}

// CriticalFields are header identifiers that usually appear only on the
// first page of an invoice: the first non-empty value wins and missing
// values are backfilled from earlier pages after the merge.
var CriticalFields = []string{
	"invoice_number",
	"issue_date",
	"po_number",
	"due_date",
	"order_number",
	"customer_id",
	"payment_terms",
	"shipping_terms",
}

// IsFinancialField reports whether key participates in last-page-wins
// merging.
func IsFinancialField(key string) bool {
	for _, f := range FinancialFields {
		if key == f {
			return true
		}
	}
	return false
}

// IsCriticalField reports whether key participates in first-page-wins
// merging and backfill.
func IsCriticalField(key string) bool {
	for _, f := range CriticalFields {
		if key == f {
			return true
		}
	}
	return false
}
