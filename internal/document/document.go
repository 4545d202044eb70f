// Package document gives the extraction pipeline uniform access to invoice
// documents: page counts, per-page text, and page images for vision calls.
package document

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/common"
)

// Store reads pages out of a single invoice document.
type Store interface {
	// PageCount returns the number of pages in the document.
	PageCount(ctx context.Context, path string) (int, error)
	// PageText returns the extracted text of a 1-based page.
	PageText(ctx context.Context, path string, page int) (string, error)
	// PageImage returns a base64 data URL of a rendered 1-based page,
	// suitable for a vision model.
	PageImage(ctx context.Context, path string, page int) (string, error)
}

// Open picks a Store implementation based on the file extension.
func Open(cfg common.DocumentConfig, path string) (Store, error) {
	switch {
	case constants.IsPDF(path):
		return NewPDFStore(cfg), nil
	case constants.IsImage(path):
		return NewImageStore(), nil
	default:
		return nil, common.NewAppError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("unsupported document type %q", filepath.Ext(path)),
			common.ErrInvalidInput)
	}
}
