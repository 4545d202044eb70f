package pipeline

import (
	"context"
	"strings"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// extractCountryCodes determines ISO country codes for the three address
// blocks and the reporting region in a single model call. If the structured
// call fails, a simpler completion plus the static region table takes over.
// This stage also writes the initial header checkpoint.
func (p *Pipeline) extractCountryCodes(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}

	p.Logger.Info("pipeline.country.start", "transaction_id", st.TransactionID)

	result, _, err := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
		System: countryCodeSystemPrompt,
		User:   countryCodeUserPrompt(st.SupplierAddress, st.BuyerAddress, st.ShipToAddress),
		Schema: llm.CountryCodeJSONSchema(),
	})
	if err == nil {
		st.SupplierCountry = countryOrEmpty(stringField(result, "supplier_country_code"))
		st.BuyerCountry = countryOrEmpty(stringField(result, "buyer_country_code"))
		st.ShipToCountry = countryOrEmpty(stringField(result, "ship_to_country_code"))
		st.Region = stringField(result, "region")
	} else {
		// Model-side failure is recoverable: a one-line completion for the
		// supplier country plus the static country table still yields a
		// region.
		p.Logger.Warn("pipeline.country.structured_failed",
			"transaction_id", st.TransactionID, "error", err)
		st.Region = constants.RegionUnknown

		if st.SupplierAddress != "" {
			cc, ferr := p.Extractor.Complete(ctx, llm.CompletionRequest{
				System: "You extract country codes from postal addresses.",
				User:   countryCodeFallbackPrompt(st.SupplierAddress),
			})
			if ferr != nil {
				p.Logger.Warn("pipeline.country.fallback_failed",
					"transaction_id", st.TransactionID, "error", ferr)
			} else {
				st.SupplierCountry = countryOrEmpty(strings.TrimSpace(cc))
				if st.SupplierCountry != "" {
					st.Region = constants.RegionForCountry(st.SupplierCountry)
				}
			}
		}
	}

	if st.Region == "" {
		st.Region = constants.RegionForCountry(st.SupplierCountry)
	}

	p.Logger.Info("pipeline.country.ok",
		"transaction_id", st.TransactionID,
		"supplier_country_code", st.SupplierCountry,
		"buyer_country_code", st.BuyerCountry,
		"ship_to_country_code", st.ShipToCountry,
		"region", st.Region,
	)

	// Best-effort initial checkpoint; persistence problems never sink a run.
	if cerr := p.Checkpoints.InsertInitialHeader(ctx, HeaderSnapshot{
		ID:               st.TransactionID,
		SupplierName:     st.SupplierName,
		BrandName:        st.BrandName,
		SupplierDetails:  st.SupplierAddress,
		BuyerDetails:     st.BuyerAddress,
		ShipToDetails:    st.ShipToAddress,
		SupplierCountry:  st.SupplierCountry,
		BuyerCountry:     st.BuyerCountry,
		ShipToCountry:    st.ShipToCountry,
		Region:           st.Region,
		ExtractionMethod: st.ExtractionMethod,
		ProcessingMethod: string(st.ProcessingMethod),
		Status:           constants.InvoiceStatusReceived,
	}); cerr != nil {
		p.Logger.Warn("pipeline.country.checkpoint_failed",
			"transaction_id", st.TransactionID, "error", cerr)
	}

	st.Status = constants.StatusCountryCodesExtracted
	if st.ExtractionMethod == constants.ExtractionVision {
		return StageExtractVision
	}
	return StageExtractText
}

// countryOrEmpty treats the model's XX placeholder as absent.
func countryOrEmpty(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == "XX" {
		return ""
	}
	return code
}
