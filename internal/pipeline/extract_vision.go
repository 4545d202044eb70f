package pipeline

import (
	"context"
	"fmt"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// extractInvoiceDataImage is the vision-modality extraction stage. Pages are
// rendered to images and sent to the vision model. When a PDF cannot be
// rendered the run drops to the text path and records text_fallback as its
// extraction method.
func (p *Pipeline) extractInvoiceDataImage(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}

	cfg, err := p.Registry.Resolve(ctx, st.SupplierCountry, st.BrandName, string(constants.MethodImage))
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

	images := make(map[int]string, len(pages))
	for _, page := range pages {
		img, rerr := doc.PageImage(ctx, fullPath, page)
		if rerr != nil {
			if constants.IsPDF(st.InvoicePath) {
				p.Logger.Warn("pipeline.extract.render_failed_falling_back",
					"transaction_id", st.TransactionID, "page", page, "error", rerr)
				st.ExtractionMethod = constants.ExtractionTextFallback
				return StageExtractText
			}
			return st.fail(fmt.Sprintf("error rendering page %d: %v", page, rerr))
		}
		images[page] = img
	}

	p.Logger.Info("pipeline.extract.vision_start",
		"transaction_id", st.TransactionID,
		"pages", len(pages), "total_pages", total,
		"processing_level", string(st.ProcessingLevel),
		"brand_config", cfg.BrandName,
	)

	p.classifyPages(ctx, st, pages, p.classifyVision(images))

	opts := pagePromptOpts{BrandName: st.BrandName, Instructions: cfg.Instructions}

	extractPage := func(ctx context.Context, opts pagePromptOpts, page int) (map[string]any, error) {
		data, _, xerr := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
			System: buildPageExtractionPrompt(opts, page, ""),
			User:   "Extract the complete invoice data from this page.",
			Schema: st.Schema,
			Images: []string{images[page]},
		})
		return data, xerr
	}
	extractBatch := func(ctx context.Context, opts pagePromptOpts, batch []int, batchNum, totalBatches int) (map[string]any, error) {
		batchImages := make([]string, 0, len(batch))
		for _, page := range batch {
			batchImages = append(batchImages, images[page])
		}
		data, _, xerr := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
			System: buildInvoiceExtractionPrompt(opts, len(batch), "", batchNum, totalBatches),
			User:   "Extract the complete invoice data from these pages. The images are in page order.",
			Schema: st.Schema,
			Images: batchImages,
		})
		return data, xerr
	}

	method := constants.ExtractionVisionPerPage
	if st.ProcessingLevel == constants.LevelInvoice {
		if !p.extractPerInvoice(ctx, st, opts, extractBatch, extractPage) {
			method = constants.ExtractionVisionPerInvoice
		}
	} else {
		p.extractPerPage(ctx, st, opts, extractPage)
	}
	st.ExtractionMethod = method

	st.Status = constants.StatusDataExtractedPerPage
	return StageMerge
}
