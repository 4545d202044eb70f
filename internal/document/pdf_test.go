package document

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwh-ap/invoice-agent/internal/common"
)

type fakeRunner struct {
	calls  [][]string
	stdout []byte
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.stdout, nil, f.err
}

func TestPDFStorePageText(t *testing.T) {
	runner := &fakeRunner{stdout: []byte("INVOICE INV-001\nTotal: 100.00\n")}
	store := NewPDFStore(common.DocumentConfig{PdfToText: "pdftotext"}, WithRunner(runner))

	text, err := store.PageText(context.Background(), "/tmp/inv.pdf", 3)
	require.NoError(t, err)
	assert.Contains(t, text, "INV-001")

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "pdftotext", call[0])
	assert.Contains(t, call, "-f")
	assert.Contains(t, call, "3")
	assert.Contains(t, call, "-layout")
	assert.Equal(t, "-", call[len(call)-1])
}

func TestPDFStorePageTextError(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("exit status 1")}
	store := NewPDFStore(common.DocumentConfig{PdfToText: "pdftotext"}, WithRunner(runner))

	_, err := store.PageText(context.Background(), "/tmp/inv.pdf", 1)
	require.Error(t, err)
}

func TestImageStoreSinglePage(t *testing.T) {
	store := NewImageStore()

	_, err := store.PageText(context.Background(), "/tmp/inv.png", 1)
	require.Error(t, err)

	_, err = store.PageImage(context.Background(), "/tmp/inv.png", 2)
	require.Error(t, err)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open(common.DocumentConfig{}, "/tmp/invoice.docx")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
