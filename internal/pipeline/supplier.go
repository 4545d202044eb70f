package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/document"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// identifySupplier extracts the supplier's legal name, brand name and the
// three address blocks from the first page of the document. Image inputs and
// PDFs requested with the image method go through the vision model; PDF text
// is the default. A vision failure on a PDF falls back to the text path.
func (p *Pipeline) identifySupplier(ctx context.Context, st *State) Stage {
	if st.failed() {
		return StageHandleError
	}

	fullPath := p.docPath(st.InvoicePath)
	doc, err := p.OpenDoc(fullPath)
	if err != nil {
		return st.fail(fmt.Sprintf("error opening document: %v", err))
	}

	isImage := constants.IsImage(st.InvoicePath)
	isPDF := constants.IsPDF(st.InvoicePath)
	useVision := isImage || (isPDF && st.ProcessingMethod == constants.MethodImage)

	p.Logger.Info("pipeline.supplier.start",
		"transaction_id", st.TransactionID,
		"invoice_path", st.InvoicePath,
		"use_vision", useVision,
	)

	var info map[string]any

	if useVision {
		info, err = p.supplierFromImage(ctx, doc, fullPath)
		if err != nil && isPDF {
			// Rasterization or the vision call failed; the PDF still has a
			// text layer to fall back to.
			p.Logger.Warn("pipeline.supplier.vision_failed_falling_back",
				"transaction_id", st.TransactionID, "error", err)
			useVision = false
		} else if err != nil {
			return st.fail(fmt.Sprintf("error extracting supplier information: %v", err))
		}
	}

	if !useVision {
		if !isPDF {
			return st.fail(fmt.Sprintf("text extraction only works with PDF files, got %q",
				filepath.Ext(st.InvoicePath)))
		}
		pageText, terr := doc.PageText(ctx, fullPath, 1)
		if terr != nil {
			return st.fail(fmt.Sprintf("error reading first page: %v", terr))
		}
		info, _, err = p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
			System: supplierSystemPrompt,
			User:   supplierTextUserPrompt(pageText),
			Schema: llm.SupplierJSONSchema(),
		})
		if err != nil {
			return st.fail(fmt.Sprintf("error extracting supplier information: %v", err))
		}
	}

	st.SupplierName = stringField(info, "supplier_name")
	st.BrandName = stringField(info, "brand_name")
	st.SupplierAddress = stringField(info, "supplier_address")
	st.BuyerAddress = stringField(info, "buyer_address")
	st.ShipToAddress = stringField(info, "ship_to_address")

	if st.BrandName == "" {
		return st.fail("supplier identification returned no brand name")
	}

	if useVision {
		st.ExtractionMethod = constants.ExtractionVision
	} else {
		st.ExtractionMethod = constants.ExtractionText
	}

	p.Logger.Info("pipeline.supplier.ok",
		"transaction_id", st.TransactionID,
		"supplier_name", st.SupplierName,
		"brand_name", st.BrandName,
		"extraction_method", st.ExtractionMethod,
	)

	st.Status = constants.StatusSupplierExtracted
	return StageExtractCountryCodes
}

func (p *Pipeline) supplierFromImage(ctx context.Context, doc document.Store, fullPath string) (map[string]any, error) {
	img, err := doc.PageImage(ctx, fullPath, 1)
	if err != nil {
		return nil, fmt.Errorf("render first page: %w", err)
	}
	info, _, err := p.Extractor.ExtractStructured(ctx, llm.StructuredRequest{
		System: supplierSystemPrompt,
		User:   supplierVisionUserPrompt,
		Schema: llm.SupplierJSONSchema(),
		Images: []string{img},
	})
	return info, err
}

func (p *Pipeline) docPath(invoicePath string) string {
	if filepath.IsAbs(invoicePath) || p.Docs.StoreDir == "" {
		return invoicePath
	}
	return filepath.Join(p.Docs.StoreDir, invoicePath)
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
