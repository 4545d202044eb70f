// Package numfmt normalizes monetary strings captured from invoices into
// numeric values, handling US/UK and European digit grouping plus embedded
// currency symbols and ISO codes. Parsing never fails loudly: a value that
// cannot be interpreted is returned unchanged.
package numfmt

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	numericHint     = regexp.MustCompile(`[\d.,\s]`)
	currencyPattern = regexp.MustCompile(`([$€£¥]|[A-Z]{3})`)
)

// Normalize parses a monetary string and returns the numeric value plus any
// currency symbol or ISO 4217 code found in it. The returned value is a
// float64 or int64 on success, or the original string when the input cannot
// be parsed. currency is "" when none was found.
//
// Formats handled:
//
//	5,123.45    US/UK grouping
//	5 123,45    European grouping with decimal comma
//	123,45      European decimal comma
//	123.45      plain decimal
//	5 123       European grouping, integer
//	5123        plain number
func Normalize(value string) (any, string) {
	if !numericHint.MatchString(value) {
		return value, ""
	}

	value = strings.TrimSpace(value)

	currency := currencyPattern.FindString(value)
	cleaned := strings.TrimSpace(currencyPattern.ReplaceAllString(value, ""))

	hasComma := strings.Contains(cleaned, ",")
	hasPeriod := strings.Contains(cleaned, ".")
	hasSpace := strings.Contains(cleaned, " ")

	switch {
	case hasComma && hasPeriod:
		// US/UK grouping: commas separate thousands.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		return parseFloatOr(value, cleaned, currency)

	case hasSpace && hasComma:
		// European grouping with decimal comma.
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		return parseFloatOr(value, cleaned, currency)

	case hasComma:
		// Bare decimal comma.
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		return parseFloatOr(value, cleaned, currency)

	case hasPeriod:
		return parseFloatOr(value, cleaned, currency)

	case hasSpace:
		// Spaces as thousands separators, integer value.
		cleaned = strings.ReplaceAll(cleaned, " ", "")
		if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return n, currency
		}
		return value, currency

	default:
		if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return n, currency
		}
		return parseFloatOr(value, cleaned, currency)
	}
}

func parseFloatOr(original, cleaned, currency string) (any, string) {
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return f, currency
	}
	return original, currency
}

// Header amounts and line-item amounts that go through Normalize.
var (
	headerAmountFields = []string{"subtotal", "tax", "total"}
	lineAmountFields   = []string{"quantity", "unit_price", "amount"}
)

// CleanAmounts normalizes the monetary fields of an extracted invoice record
// in place-copy fashion: the input map is not modified. The first currency
// detected anywhere populates the record's "currency" key when it is unset.
func CleanAmounts(record map[string]any) map[string]any {
	if record == nil {
		return nil
	}

	result := make(map[string]any, len(record))
	for k, v := range record {
		result[k] = v
	}

	setCurrency := func(c string) {
		if c == "" {
			return
		}
		if cur, ok := result["currency"].(string); !ok || cur == "" {
			result["currency"] = c
		}
	}

	for _, field := range headerAmountFields {
		if s, ok := result[field].(string); ok {
			val, cur := Normalize(s)
			result[field] = val
			setCurrency(cur)
		}
	}

	items, ok := result["line_items"].([]any)
	if !ok {
		return result
	}
	cleanedItems := make([]any, len(items))
	copy(cleanedItems, items)
	for i, raw := range cleanedItems {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		cleanedItem := make(map[string]any, len(item))
		for k, v := range item {
			cleanedItem[k] = v
		}
		for _, field := range lineAmountFields {
			if s, ok := cleanedItem[field].(string); ok {
				val, cur := Normalize(s)
				cleanedItem[field] = val
				setCurrency(cur)
			}
		}
		cleanedItems[i] = cleanedItem
	}
	result["line_items"] = cleanedItems
	return result
}
