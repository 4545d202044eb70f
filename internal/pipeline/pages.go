package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/llm"
)

// resolvePages expands a pages specification against the document's page
// count. Accepted forms: "first", "all", and comma-separated page numbers
// with optional ranges ("3-5,8"). Out-of-range pages are dropped; a spec
// that yields nothing falls back to all pages.
func resolvePages(totalPages int, spec string, logger *slog.Logger) []int {
	if logger == nil {
		logger = slog.Default()
	}

	allPages := func() []int {
		pages := make([]int, totalPages)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	switch strings.TrimSpace(spec) {
	case "", "all":
		return allPages()
	case "first":
		if totalPages < 1 {
			return nil
		}
		return []int{1}
	}

	var pages []int
	valid := true
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				valid = false
				break
			}
			for p := start; p <= end; p++ {
				pages = append(pages, p)
			}
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				valid = false
				break
			}
			pages = append(pages, n)
		}
	}

	if !valid {
		logger.Warn("pipeline.pages.invalid_spec", "pages", spec)
		return allPages()
	}

	inRange := pages[:0]
	for _, p := range pages {
		if p >= 1 && p <= totalPages {
			inRange = append(inRange, p)
		}
	}
	if len(inRange) == 0 {
		logger.Warn("pipeline.pages.no_valid_pages", "pages", spec)
		return allPages()
	}
	return inRange
}

// classifyPages asks the model which invoice number each page belongs to and
// groups pages accordingly, in the order invoice numbers are first seen.
// pageContent yields either a page's text or its rendered image depending on
// the modality. Pages that classify as unknown join no group unless the
// whole document is unclassified, in which case every processed page lands
// in a single unknown bucket.
func (p *Pipeline) classifyPages(ctx context.Context, st *State, pages []int,
	classify func(ctx context.Context, page int) (string, error)) {

	for _, page := range pages {
		token, err := classify(ctx, page)
		if err != nil {
			p.Logger.Warn("pipeline.classify.page_failed",
				"transaction_id", st.TransactionID, "page", page, "error", err)
			continue
		}
		token = strings.TrimSpace(token)
		if strings.EqualFold(token, constants.UnknownInvoice) || token == "" {
			// Dropped unless nothing else classifies either; the all-unknown
			// fallback below is the only way these pages are processed.
			p.Logger.Warn("pipeline.classify.page_unknown",
				"transaction_id", st.TransactionID, "page", page)
			continue
		}
		st.addInvoicePage(token, page)
		p.Logger.Info("pipeline.classify.page_ok",
			"transaction_id", st.TransactionID, "page", page, "invoice_number", token)
	}

	if len(st.InvoiceOrder) == 0 {
		p.Logger.Warn("pipeline.classify.no_invoice_numbers",
			"transaction_id", st.TransactionID, "pages", len(pages))
		for _, page := range pages {
			st.addInvoicePage(constants.UnknownInvoice, page)
		}
	}
	if len(st.InvoiceOrder) == 0 {
		return
	}

	first := st.InvoiceOrder[0]
	if cerr := p.Checkpoints.UpdateHeaderWithInvoiceNumber(ctx,
		st.TransactionID, first, constants.InvoiceStatusProcessing); cerr != nil {
		p.Logger.Warn("pipeline.classify.checkpoint_failed",
			"transaction_id", st.TransactionID, "error", cerr)
	}
}

// classifyText is the text-modality page classifier.
func (p *Pipeline) classifyText(texts map[int]string) func(context.Context, int) (string, error) {
	return func(ctx context.Context, page int) (string, error) {
		return p.Extractor.Complete(ctx, llm.CompletionRequest{
			System: classifySystemPrompt,
			User:   classifyTextUserPrompt(texts[page]),
		})
	}
}

// classifyVision is the image-modality page classifier.
func (p *Pipeline) classifyVision(images map[int]string) func(context.Context, int) (string, error) {
	return func(ctx context.Context, page int) (string, error) {
		return p.Extractor.Complete(ctx, llm.CompletionRequest{
			System: classifySystemPrompt,
			User:   classifyVisionUserPrompt,
			Images: []string{images[page]},
		})
	}
}

func sortedPages(pages []int) []int {
	out := make([]int, len(pages))
	copy(out, pages)
	sort.Ints(out)
	return out
}
