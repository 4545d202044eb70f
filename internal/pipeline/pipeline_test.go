package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwh-ap/invoice-agent/constants"
	"github.com/gwh-ap/invoice-agent/internal/common"
	"github.com/gwh-ap/invoice-agent/internal/document"
	"github.com/gwh-ap/invoice-agent/internal/entity"
	"github.com/gwh-ap/invoice-agent/internal/llm"
	"github.com/gwh-ap/invoice-agent/internal/registry"
)

type fakeExtractor struct {
	structured func(req llm.StructuredRequest) (map[string]any, error)
	complete   func(req llm.CompletionRequest) (string, error)
}

func (f *fakeExtractor) ExtractStructured(_ context.Context, req llm.StructuredRequest) (map[string]any, []byte, error) {
	m, err := f.structured(req)
	if err != nil {
		return nil, nil, err
	}
	b, _ := json.Marshal(m)
	return m, b, nil
}

func (f *fakeExtractor) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	return f.complete(req)
}

type fakeDoc struct {
	mu         sync.Mutex
	texts      map[int]string
	images     map[int]string
	imageCalls int
	imageLimit int // render fails after this many calls when > 0
}

func (d *fakeDoc) PageCount(context.Context, string) (int, error) {
	if len(d.texts) > 0 {
		return len(d.texts), nil
	}
	return len(d.images), nil
}

func (d *fakeDoc) PageText(_ context.Context, _ string, page int) (string, error) {
	text, ok := d.texts[page]
	if !ok {
		return "", fmt.Errorf("no text for page %d", page)
	}
	return text, nil
}

func (d *fakeDoc) PageImage(_ context.Context, _ string, page int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.imageCalls++
	if d.imageLimit > 0 && d.imageCalls > d.imageLimit {
		return "", errors.New("render failed")
	}
	img, ok := d.images[page]
	if !ok {
		return "", fmt.Errorf("no image for page %d", page)
	}
	return img, nil
}

type recordingCheckpointer struct {
	mu            sync.Mutex
	inserted      []HeaderSnapshot
	invoiceNumber string
	statuses      []constants.InvoiceStatus
	fullInvoice   map[string]any
	fullMethod    string
}

func (c *recordingCheckpointer) InsertInitialHeader(_ context.Context, snap HeaderSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inserted = append(c.inserted, snap)
	return nil
}

func (c *recordingCheckpointer) UpdateHeaderWithInvoiceNumber(_ context.Context, _, invoiceNumber string, status constants.InvoiceStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invoiceNumber = invoiceNumber
	c.statuses = append(c.statuses, status)
	return nil
}

func (c *recordingCheckpointer) UpdateInvoiceStatusByID(_ context.Context, _ string, status constants.InvoiceStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, status)
	return nil
}

func (c *recordingCheckpointer) UpdateFullInvoiceData(_ context.Context, _ string, invoice map[string]any, _, extractionMethod string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullInvoice = invoice
	c.fullMethod = extractionMethod
	return nil
}

func invoiceSchemaJSON(t *testing.T) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number":        map[string]any{"type": "string"},
			"issue_date":            map[string]any{"type": "string"},
			"currency":              map[string]any{"type": "string"},
			"subtotal":              map[string]any{"type": "number"},
			"total":                 map[string]any{"type": "number"},
			"supplier_country_code": map[string]any{"type": "string"},
			"region":                map[string]any{"type": "string"},
			"line_items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"description": map[string]any{"type": "string"},
						"quantity":    map[string]any{"type": "number"},
						"unit_price":  map[string]any{"type": "number"},
						"amount":      map[string]any{"type": "number"},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return b
}

func newTestPipeline(t *testing.T, ext llm.Extractor, doc document.Store, cp Checkpointer) *Pipeline {
	t.Helper()

	store := registry.NewMemoryStore()
	for _, method := range []string{"text", "image"} {
		store.PutTemplate(entity.PromptTemplate{
			CountryCode:      "US",
			BrandName:        "default",
			ProcessingMethod: method,
			SchemaJSON:       invoiceSchemaJSON(t),
			Prompt:           "Extract every field on the invoice.",
			IsActive:         true,
		})
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []Option{
		WithLogger(quiet),
		WithDocumentOpener(func(string) (document.Store, error) { return doc, nil }),
	}
	if cp != nil {
		opts = append(opts, WithCheckpointer(cp))
	}
	return New(ext, registry.NewResolver(store, quiet), common.DocumentConfig{}, opts...)
}

func supplierResult() map[string]any {
	return map[string]any{
		"supplier_name":    "Acme Corp GmbH",
		"brand_name":       "Acme",
		"supplier_address": "1 Main St, Springfield, IL, USA",
		"buyer_address":    "5 Oak Ave, Portland, OR, USA",
	}
}

func countryResult() map[string]any {
	return map[string]any{
		"supplier_country_code": "US",
		"buyer_country_code":    "US",
		"ship_to_country_code":  "XX",
		"region":                "AMS",
	}
}

func schemaHas(req llm.StructuredRequest, key string) bool {
	props, _ := req.Schema["properties"].(map[string]any)
	_, ok := props[key]
	return ok
}

func TestRunSinglePDFInvoiceTextPerPage(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			case strings.Contains(req.System, "This is page 1"):
				return map[string]any{
					"invoice_number": "",
					"issue_date":     "2026-01-15",
					"currency":       "USD",
					"subtotal":       "100.00",
					"total":          "",
					"line_items": []any{
						map[string]any{"description": "Widget", "quantity": "2", "unit_price": "50.00", "amount": "100.00"},
					},
				}, nil
			default:
				return map[string]any{
					"subtotal": "100.00",
					"total":    "$110.00",
					"line_items": []any{
						map[string]any{"description": "Freight", "amount": "10.00"},
					},
				}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "INV-100", nil },
	}

	doc := &fakeDoc{texts: map[int]string{1: "page one", 2: "page two"}}
	cp := &recordingCheckpointer{}
	p := newTestPipeline(t, ext, doc, cp)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"inv.pdf","transaction_id":"tx-1"}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, "Acme Corp GmbH", out["supplier_name"])
	assert.Equal(t, "Acme", out["brand_name"])
	assert.Equal(t, constants.ExtractionTextPerPage, out["extraction_method"])

	data, ok := out["invoice_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "INV-100", data["invoice_number"])
	assert.Equal(t, "2026-01-15", data["issue_date"])
	assert.Equal(t, "USD", data["currency"])
	assert.Equal(t, 100.0, data["subtotal"])
	assert.Equal(t, 110.0, data["total"], "last page totals win")
	assert.Equal(t, "US", data["supplier_country_code"])
	assert.Equal(t, "AMS", data["region"], "resolved region is filled in")
	assert.NotContains(t, data, "buyer_country_code",
		"filled-in codes outside the schema are dropped like any other field")

	items, ok := data["line_items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.NotContains(t, first, "_source_page", "internal keys stripped from the response")

	tracking, ok := out["page_tracking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string][]string{"INV-100": {"1", "2"}}, tracking["invoice_to_pages"])
	assert.Equal(t, map[string]int{"INV-100_1": 1, "INV-100_2": 1}, tracking["page_line_item_counts"])

	require.Len(t, cp.inserted, 1)
	assert.Equal(t, "tx-1", cp.inserted[0].ID)
	assert.Equal(t, "AMS", cp.inserted[0].Region)
	assert.Equal(t, constants.InvoiceStatusReceived, cp.inserted[0].Status)
	assert.Equal(t, "INV-100", cp.invoiceNumber)
	assert.Contains(t, cp.statuses, constants.InvoiceStatusProcessing)

	require.NotNil(t, cp.fullInvoice)
	persisted := cp.fullInvoice["line_items"].([]map[string]any)
	assert.Equal(t, 1, persisted[0]["_source_page"], "source page survives into persistence")
}

func TestRunMultipleInvoicesInOneDocument(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			default:
				return map[string]any{"subtotal": "10.00", "line_items": []any{}}, nil
			}
		},
		complete: func(req llm.CompletionRequest) (string, error) {
			if strings.Contains(req.User, "page one") {
				return "INV-A", nil
			}
			return "INV-B", nil
		},
	}

	doc := &fakeDoc{texts: map[int]string{1: "page one", 2: "page two"}}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"inv.pdf"}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, constants.ExtractionTextPerPage+constants.MultipleSuffix, out["extraction_method"])
	assert.Equal(t, 2, out["invoice_count"])

	invoices, ok := out["invoices"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, invoices, 2)
	assert.Equal(t, "INV-A", invoices[0]["invoice_number"], "first classified invoice comes first")
	assert.Equal(t, "INV-B", invoices[1]["invoice_number"])
	assert.NotContains(t, out, "invoice_data")
}

func TestRunUnclassifiedPagesFallToSingleBucket(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			default:
				return map[string]any{"invoice_number": "ZZ-9", "line_items": []any{}}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "unknown", nil },
	}

	doc := &fakeDoc{texts: map[int]string{1: "p1", 2: "p2"}}
	cp := &recordingCheckpointer{}
	p := newTestPipeline(t, ext, doc, cp)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"inv.pdf","transaction_id":"tx-u"}`))

	require.Equal(t, "success", out["status"])
	data := out["invoice_data"].(map[string]any)
	assert.Equal(t, constants.UnknownInvoice, data["invoice_number"],
		"the bucket's token overrides the extracted number")

	tracking := out["page_tracking"].(map[string]any)
	assert.Equal(t, map[string][]string{"unknown": {"1", "2"}}, tracking["invoice_to_pages"])

	assert.Equal(t, constants.UnknownInvoice, cp.invoiceNumber)
	assert.Contains(t, cp.statuses, constants.InvoiceStatusProcessing,
		"unclassified documents still advance to processing")
}

func TestRunInvoiceLevelBatching(t *testing.T) {
	var batchPrompts []string
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			default:
				if strings.Contains(req.System, "BATCH") {
					batchPrompts = append(batchPrompts, req.System)
				}
				return map[string]any{
					"invoice_number": "INV-7",
					"total":          "50.00",
					"line_items": []any{
						map[string]any{"description": "Part", "amount": "50.00", "_source_page": float64(1)},
					},
				}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "INV-7", nil },
	}

	doc := &fakeDoc{texts: map[int]string{1: "a", 2: "b", 3: "c", 4: "d"}}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(
		`{"invoice_path":"inv.pdf","processing_level":"invoice","processing_max_pages":2}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, constants.ExtractionTextPerInvoice, out["extraction_method"])
	require.Len(t, batchPrompts, 2)
	assert.Contains(t, batchPrompts[0], "BATCH 1 OF 2")
	assert.Contains(t, batchPrompts[1], "BATCH 2 OF 2")
}

func TestRunInvoiceLevelFailureDowngradesToPageLevel(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			case strings.Contains(req.System, "ALL PAGES") || strings.Contains(req.System, "BATCH"):
				return nil, errors.New("context length exceeded")
			default:
				return map[string]any{"invoice_number": "INV-5", "line_items": []any{}}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "INV-5", nil },
	}

	doc := &fakeDoc{texts: map[int]string{1: "a", 2: "b"}}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(
		`{"invoice_path":"inv.pdf","processing_level":"invoice"}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, constants.ExtractionTextPerPage, out["extraction_method"],
		"failed invoice-level call falls back to page level")
}

func TestRunVisionForImageFile(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				require.Len(t, req.Images, 1)
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			default:
				require.Len(t, req.Images, 1)
				return map[string]any{"total": "99.00", "line_items": []any{}}, nil
			}
		},
		complete: func(req llm.CompletionRequest) (string, error) {
			require.Len(t, req.Images, 1)
			return "INV-IMG", nil
		},
	}

	doc := &fakeDoc{images: map[int]string{1: "data:image/png;base64,Zm9v"}}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"scan.png"}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, constants.ExtractionVisionPerPage, out["extraction_method"])
	data := out["invoice_data"].(map[string]any)
	assert.Equal(t, "INV-IMG", data["invoice_number"])
	assert.Equal(t, 99.0, data["total"])
}

func TestRunPDFRenderFailureFallsBackToText(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			default:
				return map[string]any{"total": "12.00", "line_items": []any{}}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "INV-F", nil },
	}

	// The first render (supplier identification) succeeds; the extraction
	// stage's render fails and drops the run to the text path.
	doc := &fakeDoc{
		texts:      map[int]string{1: "text layer"},
		images:     map[int]string{1: "data:image/png;base64,Zm9v"},
		imageLimit: 1,
	}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(
		`{"invoice_path":"inv.pdf","processing_method":"image"}`))

	require.Equal(t, "success", out["status"])
	assert.Equal(t, constants.ExtractionTextFallback, out["extraction_method"])
}

func TestRunSupplierFailureProducesErrorEnvelope(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			return nil, errors.New("model unavailable")
		},
		complete: func(llm.CompletionRequest) (string, error) { return "", errors.New("model unavailable") },
	}

	doc := &fakeDoc{texts: map[int]string{1: "p1"}}
	cp := &recordingCheckpointer{}
	p := newTestPipeline(t, ext, doc, cp)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"inv.pdf","transaction_id":"tx-9"}`))

	require.Equal(t, "error", out["status"])
	assert.Contains(t, out["error"], "error extracting supplier information")
	assert.Equal(t, string(constants.StatusParsed), out["error_origin"])
	assert.NotEmpty(t, out["timestamp"])
	assert.Contains(t, cp.statuses, constants.InvoiceStatusFailed)
}

func TestRunPageFailureKeepsRemainingPages(t *testing.T) {
	ext := &fakeExtractor{
		structured: func(req llm.StructuredRequest) (map[string]any, error) {
			switch {
			case schemaHas(req, "supplier_name"):
				return supplierResult(), nil
			case strings.Contains(req.User, "Supplier Address:"):
				return countryResult(), nil
			case strings.Contains(req.System, "This is page 2"):
				return nil, errors.New("model unavailable")
			default:
				return map[string]any{
					"issue_date": "2026-03-03",
					"total":      "40.00",
					"line_items": []any{
						map[string]any{"description": "Widget", "amount": "40.00"},
					},
				}, nil
			}
		},
		complete: func(llm.CompletionRequest) (string, error) { return "INV-1", nil },
	}

	doc := &fakeDoc{texts: map[int]string{1: "page one", 2: "page two"}}
	p := newTestPipeline(t, ext, doc, nil)

	out := p.Run(context.Background(), []byte(`{"invoice_path":"inv.pdf"}`))

	require.Equal(t, "success", out["status"], "one failed page does not sink the run")
	data := out["invoice_data"].(map[string]any)
	assert.Equal(t, "2026-03-03", data["issue_date"])
	assert.Equal(t, 40.0, data["total"])

	tracking := out["page_tracking"].(map[string]any)
	assert.Equal(t, map[string]int{"INV-1_1": 1}, tracking["page_line_item_counts"],
		"the failed page contributed no line items")
}

func TestMergeFallbackWhenNothingExtracted(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, &fakeDoc{}, nil)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(invoiceSchemaJSON(t), &schema))

	st := &State{
		Status:          constants.StatusDataExtractedPerPage,
		Schema:          schema,
		SupplierName:    "Acme Corp GmbH",
		SupplierCountry: "US",
		Region:          "AMS",
	}

	next := p.mergeInvoiceData(context.Background(), st)

	assert.Equal(t, StagePrepareResponse, next)
	assert.Equal(t, constants.StatusDataMerged, st.Status)
	require.NotNil(t, st.InvoiceData)
	assert.Equal(t, constants.UnknownInvoice, st.InvoiceData["invoice_number"])
	assert.Equal(t, "US", st.InvoiceData["supplier_country_code"])
	assert.Equal(t, "AMS", st.InvoiceData["region"])
	assert.Empty(t, st.InvoiceData["line_items"])
	assert.NotContains(t, st.InvoiceData, "supplier_details",
		"schema projection applies to the fallback too")
}

func TestPrepareResponseWithoutDataFails(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, &fakeDoc{}, nil)

	st := &State{Status: constants.StatusDataMerged}
	next := p.prepareResponse(context.Background(), st)

	assert.Equal(t, StageHandleError, next)
	assert.Equal(t, constants.StatusError, st.Status)
	assert.Contains(t, st.Err, "no invoice data")
}

func TestRunRejectsBadRequests(t *testing.T) {
	p := newTestPipeline(t, &fakeExtractor{}, &fakeDoc{}, nil)

	out := p.Run(context.Background(), []byte(`{}`))
	require.Equal(t, "error", out["status"])
	assert.Contains(t, out["error"], "invoice_path")

	out = p.Run(context.Background(), []byte(`{"invoice_path":"a.pdf","processing_method":"ocr"}`))
	require.Equal(t, "error", out["status"])
	assert.Contains(t, out["error"], "processing_method")
}
