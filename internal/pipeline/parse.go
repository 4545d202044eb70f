package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/gwh-ap/invoice-agent/constants"
)

// Request is the wire shape of an extraction request.
type Request struct {
	InvoicePath        string `json:"invoice_path"`
	ProcessingMethod   string `json:"processing_method,omitempty"`
	ProcessingLevel    string `json:"processing_level,omitempty"`
	Pages              string `json:"pages,omitempty"`
	ProcessingMaxPages int    `json:"processing_max_pages,omitempty"`
	TransactionID      string `json:"transaction_id,omitempty"`
}

// parseRequest validates the raw request and seeds the run state with
// defaults for everything the caller left out.
func (p *Pipeline) parseRequest(ctx context.Context, st *State, input []byte) Stage {
	var req Request
	if err := json.Unmarshal(input, &req); err != nil {
		return st.fail(fmt.Sprintf("failed to parse request: %v", err))
	}

	if req.InvoicePath == "" {
		return st.fail("missing invoice_path in request")
	}

	st.InvoicePath = req.InvoicePath

	st.ProcessingMethod = constants.ProcessingMethod(req.ProcessingMethod)
	if st.ProcessingMethod == "" {
		st.ProcessingMethod = constants.MethodText
	}
	if st.ProcessingMethod != constants.MethodText && st.ProcessingMethod != constants.MethodImage {
		return st.fail(fmt.Sprintf("invalid processing_method %q", req.ProcessingMethod))
	}

	st.Pages = req.Pages
	if st.Pages == "" {
		st.Pages = "all"
	}

	st.ProcessingLevel = constants.ProcessingLevel(req.ProcessingLevel)
	if st.ProcessingLevel != constants.LevelPage && st.ProcessingLevel != constants.LevelInvoice {
		if req.ProcessingLevel != "" {
			p.Logger.Warn("pipeline.parse.invalid_processing_level",
				"processing_level", req.ProcessingLevel, "default", string(constants.LevelPage))
		}
		st.ProcessingLevel = constants.LevelPage
	}

	st.MaxPagesPerBatch = req.ProcessingMaxPages
	if st.MaxPagesPerBatch < 0 {
		p.Logger.Warn("pipeline.parse.invalid_max_pages",
			"processing_max_pages", req.ProcessingMaxPages)
		st.MaxPagesPerBatch = 0
	}

	st.TransactionID = req.TransactionID
	if st.TransactionID == "" {
		st.TransactionID = uuid.New().String()
	}

	p.Logger.Info("pipeline.parse.ok",
		"transaction_id", st.TransactionID,
		"invoice_path", st.InvoicePath,
		"processing_method", string(st.ProcessingMethod),
		"processing_level", string(st.ProcessingLevel),
		"pages", st.Pages,
		"max_pages_per_batch", st.MaxPagesPerBatch,
	)

	st.Status = constants.StatusParsed
	return StageIdentifySupplier
}
