package pipeline

import (
	"fmt"
	"strings"
)

const supplierSystemPrompt = `You are an expert invoice data extraction AI.
Analyze the invoice and extract the following information:

1. Supplier Name: The full legal name of the supplier or vendor as it appears on the invoice.
2. Brand Name: The company's commonly used brand name or public-facing name, prioritizing names in the logo or header.
   - For example: 'Apple Inc.' → 'Apple', 'Tata Consultancy Services Limited' → 'TCS'
   - Just return the first name if this is a two-worded brand name
   - If only the legal name is present, return it
   - Return the brand name in title case only
3. Supplier Address: The complete address of the supplier, including street, city, state/province, postal code and country
4. Buyer Address: The complete address of the buyer, including street, city, state/province, postal code and country
5. Ship-to Address: The complete ship-to address if different from buyer address

Return ONLY JSON matching the provided schema. If any address is not found, include an empty string for that field.`

const supplierVisionUserPrompt = "Extract the supplier name, brand name, and addresses from this invoice."

func supplierTextUserPrompt(pageText string) string {
	return "Extract the supplier name, brand name, and addresses from this invoice text:\n\n" + pageText
}

const countryCodeSystemPrompt = `You are an expert in geography and global addressing standards.
Analyze the given addresses and extract ISO 3166-1 alpha-2 country codes (two letters)
and determine the geographic region based on the supplier country.

For country codes, return ONLY the two-letter country code in uppercase (e.g., US, GB, DE, IN).
If a country cannot be determined with certainty, return XX for that address.

For region determination, use the supplier country and apply these rules:
- NA (North America): US, CA, MX, and other North American countries
- EMEA (Europe, Middle East, Africa): all European, Middle Eastern and African countries
- APAC (Asia-Pacific): Asian and Pacific countries
- LATAM (Latin America): South and Central American countries, except Mexico which is in NA

Examples: US supplier = NA, GB supplier = EMEA, DE supplier = EMEA, CN supplier = APAC, BR supplier = LATAM.

Return ONLY JSON matching the provided schema.`

func countryCodeUserPrompt(supplierAddr, buyerAddr, shipToAddr string) string {
	orNotProvided := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "Not provided"
		}
		return s
	}
	return fmt.Sprintf("Supplier Address: %s\nBuyer Address: %s\nShip-to Address: %s",
		orNotProvided(supplierAddr), orNotProvided(buyerAddr), orNotProvided(shipToAddr))
}

func countryCodeFallbackPrompt(address string) string {
	return "Extract only the ISO 3166-1 alpha-2 country code from this address: " + address +
		". Return only the two-letter code in uppercase."
}

const classifySystemPrompt = `You are a specialized invoice analyzer. Your only task is to identify the invoice number(s)
present in this invoice. Return ONLY the invoice number without any additional text.
If you can't find an invoice number, respond with 'unknown'.`

func classifyTextUserPrompt(pageText string) string {
	return "What is the invoice number in this text?\n\n" + pageText
}

const classifyVisionUserPrompt = "What is the invoice number on this invoice page?"

// pagePromptOpts parametrizes the extraction prompt builders.
type pagePromptOpts struct {
	BrandName     string
	InvoiceNumber string
	Instructions  string
}

// buildPageExtractionPrompt targets a single page of one invoice.
func buildPageExtractionPrompt(opts pagePromptOpts, pageNum int, pageText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a data extraction specialist for %s invoices.

Your task is to extract ALL information from invoice number %s.
This is page %d of the invoice.
`, opts.BrandName, opts.InvoiceNumber, pageNum)

	if pageText != "" {
		b.WriteString("\nTEXT CONTENT:\n")
		b.WriteString(pageText)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
IMPORTANT INSTRUCTIONS:
1. FOCUS ONLY on invoice number %s
2. Extract ALL line items visible - this is critical
3. Pay special attention to surcharges, fees, or additional charges even if they don't have the same format as main line items
4. Include EVERY SINGLE line item, surcharge, or additional fee visible for this invoice
5. Do not include line items from other invoices
6. Extract all header information (dates, customer info, totals, etc.)
7. If a line item has no explicit charge, still include it but do not assign a unit price or amount
8. Look specifically for fields like "Items Total", "Total Amount Due", "Output Tax", "Total Amount" which represent the FINAL invoice totals
9. The financial totals on this page are likely to represent the COMPLETE invoice totals
10. Look for fields with labels like "subtotal", "tax", "total", "items total", or "total amount due"
11. For each distinct part number and quantity combination, create a separate line item entry
`, opts.InvoiceNumber)

	appendInstructions(&b, opts.Instructions)
	b.WriteString("\nReturn the complete invoice data in a structured format.")
	return b.String()
}

// buildInvoiceExtractionPrompt targets all pages of one invoice in a single
// call. batchNum/totalBatches are 1/1 when the invoice fits in one batch.
func buildInvoiceExtractionPrompt(opts pagePromptOpts, pageCount int, combinedText string, batchNum, totalBatches int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a data extraction specialist for %s invoices.

Your task is to extract ALL information from invoice number %s.
`, opts.BrandName, opts.InvoiceNumber)

	if totalBatches > 1 {
		fmt.Fprintf(&b, "This is BATCH %d OF %d. The text below contains %d page(s) of this invoice.\n", batchNum, totalBatches, pageCount)
		switch {
		case batchNum == 1:
			b.WriteString("This batch contains the FIRST pages: prioritize header information (invoice number, dates, customer info, references).\n")
		case batchNum == totalBatches:
			b.WriteString("This batch contains the LAST pages: prioritize the FINAL financial totals (subtotal, tax, total, items total, total amount due).\n")
		default:
			b.WriteString("This is a MIDDLE batch: prioritize complete line item extraction.\n")
		}
	} else {
		fmt.Fprintf(&b, "The text below contains ALL PAGES (%d) of this invoice combined.\n", pageCount)
	}
	b.WriteString("Each page is marked with \"--- PAGE X ---\" to help you understand page boundaries.\n")

	if combinedText != "" {
		b.WriteString("\nTEXT CONTENT:\n")
		b.WriteString(combinedText)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
IMPORTANT INSTRUCTIONS:
1. FOCUS ONLY on invoice number %s
2. Extract ALL line items visible across all pages - this is critical
3. Pay special attention to surcharges, fees, or additional charges even if they don't have the same format as main line items
4. Include EVERY SINGLE line item, surcharge, or additional fee visible for this invoice
5. Do not include line items from other invoices
6. Extract all header information (dates, customer info, totals, etc.)
7. If a line item has no explicit charge, still include it but do not assign a unit price or amount
8. Look specifically for fields like "Items Total", "Total Amount Due", "Output Tax", "Total Amount" which represent the FINAL invoice totals
9. The financial totals are likely to be on the last page of the invoice
10. Look for fields with labels like "subtotal", "tax", "total", "items total", or "total amount due"
11. Assign each line item to the page where it appears by including a "_source_page" field with the page number
12. For each distinct part number and quantity combination, create a separate line item entry
13. Pay attention to line items that may span across page boundaries
`, opts.InvoiceNumber)

	appendInstructions(&b, opts.Instructions)
	b.WriteString("\nReturn the complete invoice data in a structured format.")
	return b.String()
}

func appendInstructions(b *strings.Builder, instructions string) {
	if strings.TrimSpace(instructions) == "" {
		return
	}
	b.WriteString("\nSUPPLIER-SPECIFIC INSTRUCTIONS:\n")
	b.WriteString(instructions)
	b.WriteString("\n")
}

// combinePages joins page texts with the page markers the extraction prompts
// reference.
func combinePages(pages []int, texts map[int]string) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "\n\n--- PAGE %d ---\n\n%s", p, texts[p])
	}
	return b.String()
}
