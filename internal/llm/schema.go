package llm

// SupplierJSONSchema constrains the supplier identification call: legal name,
// public brand name, and the three address blocks.
func SupplierJSONSchema() map[string]any {
	return map[string]any{
		"title": "SupplierInfo",
		"type":  "object",
		"properties": map[string]any{
			"supplier_name": map[string]any{
				"description": "Name of the supplier or vendor on the invoice",
				"type":        "string",
			},
			"brand_name": map[string]any{
				"description": "The company's commonly used brand name or public-facing name, " +
					"prioritizing names in the logo or header; just return the first name if this " +
					"is a two worded brand name; if only the legal name is present, return it. " +
					"E.g., 'Apple Inc.' → 'Apple', 'Tata Consultancy Services Limited' → 'TCS'. " +
					"Return in title case only.",
				"type": "string",
			},
			"supplier_address": map[string]any{
				"description": "Complete address of the supplier or vendor, including street, city, state/province, postal code and country",
				"type":        "string",
			},
			"buyer_address": map[string]any{
				"description": "Complete address of the buyer, including street, city, state/province, postal code and country",
				"type":        "string",
			},
			"ship_to_address": map[string]any{
				"description": "Complete ship-to address if different from buyer address, including street, city, state/province, postal code and country",
				"type":        "string",
			},
		},
		"required": []string{"supplier_name", "brand_name", "supplier_address"},
	}
}

// CountryCodeJSONSchema constrains the country-code and region call.
func CountryCodeJSONSchema() map[string]any {
	ccProp := func(which string) map[string]any {
		return map[string]any{
			"description": "ISO 3166-1 alpha-2 country code for the " + which + " address (e.g., US, GB, DE, IN), or XX when unknown",
			"type":        "string",
		}
	}
	return map[string]any{
		"title": "CountryCodeAndRegion",
		"type":  "object",
		"properties": map[string]any{
			"supplier_country_code": ccProp("supplier"),
			"buyer_country_code":    ccProp("buyer"),
			"ship_to_country_code":  ccProp("ship-to"),
			"region": map[string]any{
				"description": "Geographic region based on supplier country: NA, EMEA, APAC or LATAM",
				"type":        "string",
			},
		},
		"required": []string{"region"},
	}
}

// DefaultInvoiceJSONSchema is the extraction schema used when the prompt
// registry has no entry for a brand or country. It mirrors the invoice_headers
// columns plus a line_items array.
func DefaultInvoiceJSONSchema() map[string]any {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	return map[string]any{
		"title": "InvoiceData",
		"type":  "object",
		"properties": map[string]any{
			"invoice_number":   str("Unique invoice identifier"),
			"invoice_type":     str("Type of document, e.g. Invoice or Credit Note"),
			"issue_date":       str("Invoice issue date"),
			"due_date":         str("Payment due date"),
			"tax_point_date":   str("Tax point or supply date"),
			"po_number":        str("Purchase order number"),
			"order_number":     str("Sales or order number"),
			"customer_id":      str("Customer account identifier"),
			"supplier_tax_id":  str("Supplier tax or VAT registration number"),
			"buyer_tax_id":     str("Buyer tax or VAT registration number"),
			"payment_terms":    str("Payment terms, e.g. Net 30"),
			"shipping_terms":   str("Shipping or delivery terms"),
			"subtotal":         str("Net amount before tax"),
			"tax":              str("Total tax amount"),
			"total":            str("Gross invoice total"),
			"currency":         str("Currency symbol or ISO 4217 code"),
			"notes":            str("Free-form notes on the invoice"),
			"delivery_note":    str("Delivery note reference"),
			"payment_information": str("Bank or remittance details"),
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"line_number":  map[string]any{"type": "integer"},
						"item_code":    str("Item or article code"),
						"description":  str("Line description"),
						"quantity":     str("Quantity as printed"),
						"unit_price":   str("Unit price as printed"),
						"amount":       str("Line amount as printed"),
						"tax_rate":     str("Tax rate for the line"),
						"_source_page": map[string]any{"type": "integer", "description": "Page the line was read from"},
					},
				},
			},
		},
		"required": []string{"invoice_number"},
	}
}
