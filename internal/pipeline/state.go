package pipeline

import (
	"github.com/gwh-ap/invoice-agent/constants"
)

// Stage enumerates the transitions of an extraction run. Every stage
// function returns the next Stage; the driver loop in Run switches on it.
type Stage int

const (
	StageParseRequest Stage = iota
	StageIdentifySupplier
	StageExtractCountryCodes
	StageExtractText
	StageExtractVision
	StageMerge
	StagePrepareResponse
	StageHandleError
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageParseRequest:
		return "parse_request"
	case StageIdentifySupplier:
		return "identify_supplier"
	case StageExtractCountryCodes:
		return "extract_country_codes"
	case StageExtractText:
		return "extract_invoice_data"
	case StageExtractVision:
		return "extract_invoice_data_image"
	case StageMerge:
		return "merge_invoice_data"
	case StagePrepareResponse:
		return "prepare_response"
	case StageHandleError:
		return "handle_error"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// PageData keeps one page's extraction result, for backfill and tracking.
type PageData struct {
	Header      map[string]any
	LineItems   []map[string]any
	IsLastPage  bool
	IsMultiPage bool
	BatchNum    int
	BatchTotal  int
}

// InvoiceCollection accumulates extraction results for one invoice number
// across the pages it spans.
type InvoiceCollection struct {
	Header    map[string]any
	LineItems []map[string]any
	Pages     []int
	PageData  map[int]*PageData
}

func newInvoiceCollection(pages []int) *InvoiceCollection {
	return &InvoiceCollection{
		Header:    map[string]any{},
		LineItems: nil,
		Pages:     pages,
		PageData:  map[int]*PageData{},
	}
}

// State is the working set of a single extraction run. It is owned by one
// goroutine; stages only add or overwrite fields, never remove them.
type State struct {
	TransactionID string

	// Parsed request.
	InvoicePath      string
	ProcessingMethod constants.ProcessingMethod
	ProcessingLevel  constants.ProcessingLevel
	Pages            string
	MaxPagesPerBatch int

	Status    constants.ExtractionStatus
	Err       string
	ErrOrigin constants.ExtractionStatus

	// Supplier identification.
	SupplierName    string
	BrandName       string
	SupplierAddress string
	BuyerAddress    string
	ShipToAddress   string

	// Country codes; empty when unknown.
	SupplierCountry string
	BuyerCountry    string
	ShipToCountry   string
	Region          string

	ExtractionMethod string

	// Extraction results.
	Schema       map[string]any
	InvoiceOrder []string                      // invoice numbers in discovery order
	InvoicePages map[string][]int              // invoice number -> pages
	Collections  map[string]*InvoiceCollection // invoice number -> accumulated data

	InvoiceData map[string]any
	AllInvoices []map[string]any

	Output map[string]any
}

// fail records an error and remembers the status it interrupted.
func (st *State) fail(msg string) Stage {
	st.ErrOrigin = st.Status
	st.Status = constants.StatusError
	st.Err = msg
	return StageHandleError
}

// failed reports whether the run is already in the error funnel; stages call
// this on entry so a failure propagates without re-processing.
func (st *State) failed() bool {
	return st.Status == constants.StatusError
}

// addInvoicePage groups a page under an invoice number, preserving the order
// invoice numbers were first seen.
func (st *State) addInvoicePage(invoiceNumber string, page int) {
	if st.InvoicePages == nil {
		st.InvoicePages = map[string][]int{}
	}
	if _, ok := st.InvoicePages[invoiceNumber]; !ok {
		st.InvoiceOrder = append(st.InvoiceOrder, invoiceNumber)
	}
	st.InvoicePages[invoiceNumber] = append(st.InvoicePages[invoiceNumber], page)
}
