package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gwh-ap/invoice-agent/internal/common"
)

// PDFStore reads PDF documents via poppler tools (pdftotext, pdftoppm) and
// pdfcpu for page counting.
type PDFStore struct {
	cfg    common.DocumentConfig
	runner Runner
}

// NewPDFStore builds a PDFStore. A nil runner defaults to real command
// execution.
func NewPDFStore(cfg common.DocumentConfig, opts ...PDFOption) *PDFStore {
	s := &PDFStore{cfg: cfg, runner: newExecRunner(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PDFOption configures a PDFStore.
type PDFOption func(*PDFStore)

// WithRunner substitutes the command runner, for tests.
func WithRunner(r Runner) PDFOption {
	return func(s *PDFStore) { s.runner = r }
}

func (s *PDFStore) PageCount(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, common.WrapError(err, "open pdf")
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, common.WrapError(err, "count pdf pages")
	}
	if s.cfg.MaxPageCount > 0 && n > s.cfg.MaxPageCount {
		return 0, common.NewAppError("PAGE_LIMIT",
			fmt.Sprintf("document has %d pages, limit is %d", n, s.cfg.MaxPageCount),
			common.ErrInvalidInput)
	}
	return n, nil
}

func (s *PDFStore) PageText(ctx context.Context, path string, page int) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix -f N -l N <path> -
	out, errb, err := s.runner.Run(ctx, s.cfg.PdfToText,
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		"-f", fmt.Sprintf("%d", page), "-l", fmt.Sprintf("%d", page),
		path, "-")
	if err != nil {
		return "", common.NewAppError("PDFTOTEXT",
			fmt.Sprintf("page %d: %s", page, truncate(string(errb), 1<<10)),
			common.WrapError(err, "pdftotext"))
	}
	return string(out), nil
}

func (s *PDFStore) PageImage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp(s.cfg.ArtifactDir, "inv-pp-*")
	if err != nil {
		return "", common.WrapError(err, "create raster dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r DPI -png -f N -l N <in.pdf> <tmp/page>
	_, errb, err := s.runner.Run(ctx, s.cfg.PdfToPpm,
		"-r", fmt.Sprintf("%d", s.cfg.RasterDPI), "-png",
		"-f", fmt.Sprintf("%d", page), "-l", fmt.Sprintf("%d", page),
		path, prefix)
	if err != nil {
		return "", common.NewAppError("PDFTOPPM",
			fmt.Sprintf("page %d: %s", page, truncate(string(errb), 1<<10)),
			common.WrapError(err, "pdftoppm"))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", common.NewAppError("PDFTOPPM",
			fmt.Sprintf("page %d rendered no image", page), common.ErrDocument)
	}

	dataURL, _, err := readAsDataURL(matches[0])
	if err != nil {
		return "", common.WrapError(err, "encode page image")
	}
	return dataURL, nil
}
