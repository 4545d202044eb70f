package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// extractInvoiceData is the text-modality extraction stage. It resolves the
// brand's prompt configuration, reads and classifies the requested pages,
// and runs page-level or invoice-level extraction into st.Collections.
func (p *Pipeline) extractInvoiceData(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}

	if !constants.IsPDF(st.InvoicePath) {
		return st.fail(fmt.Sprintf("text extraction only works with PDF files, got %q",
			filepath.Ext(st.InvoicePath)))
	}

	cfg, err := p.Registry.Resolve(ctx, st.SupplierCountry, st.BrandName, string(constants.MethodText))
	if err != nil {
		return st.fail(fmt.Sprintf("error loading extraction configuration: %v", err))
	}
	st.Schema = cfg.Schema

	fullPath := p.docPath(st.InvoicePath)
	doc, err := p.OpenDoc(fullPath)
	if err != nil {
		return st.fail(fmt.Sprintf("error opening document: %v", err))
	}
	total, err := doc.PageCount(ctx, fullPath)
	if err != nil {
		return st.fail(fmt.Sprintf("error counting pages: %v", err))
	}
	pages := resolvePages(total, st.Pages, p.Logger)

	texts := make(map[int]string, len(pages))
	for _, page := range pages {
		text, terr := doc.PageText(ctx, fullPath, page)
		if terr != nil {
			return st.fail(fmt.Sprintf("error reading page %d: %v", page, terr))
		}
		texts[page] = text
	}

	p.Logger.Info("pipeline.extract.text_start",
		"transaction_id", st.TransactionID,
		"pages", len(pages), "total_pages", total,
		"processing_level", string(st.ProcessingLevel),
		"brand_config", cfg.BrandName,
	)

	p.classifyPages(ctx, st, pages, p.classifyText(texts))

	opts := pagePromptOpts{BrandName: st.BrandName, Instructions: cfg.Instructions}

	extractPage := func(ctx context.Context, opts pagePromptOpts, page int) (map[string]any, error) {
		data, _, xerr := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
			System: buildPageExtractionPrompt(opts, page, texts[page]),
			User:   "Extract the complete invoice data now.",
			Schema: st.Schema,
		})
		return data, xerr
	}
	extractBatch := func(ctx context.Context, opts pagePromptOpts, batch []int, batchNum, totalBatches int) (map[string]any, error) {
		data, _, xerr := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
			System: buildInvoiceExtractionPrompt(opts, len(batch), combinePages(batch, texts), batchNum, totalBatches),
			User:   "Extract the complete invoice data now.",
			Schema: st.Schema,
		})
		return data, xerr
	}

	method := constants.ExtractionTextPerPage
	if st.ProcessingLevel == constants.LevelInvoice {
		if !p.extractPerInvoice(ctx, st, opts, extractBatch, extractPage) {
			method = constants.ExtractionTextPerInvoice
		}
	} else {
		p.extractPerPage(ctx, st, opts, extractPage)
	}

	// A run that dropped out of the vision path keeps text_fallback so the
	// caller can see the modality actually used.
	if st.ExtractionMethod != constants.ExtractionTextFallback {
		st.ExtractionMethod = method
	}

	st.Status = constants.StatusDataExtractedPerPage
	return StageMerge
}
