package pipeline

import (
	"context"

	"github.com/gwh-ap/invoice-agent/constants"
)

// HeaderSnapshot carries the fields written to the initial invoice header
// checkpoint, before any invoice data has been extracted.
type HeaderSnapshot struct {
	ID               string
	SupplierName     string
	BrandName        string
	SupplierDetails  string
	BuyerDetails     string
	ShipToDetails    string
	SupplierCountry  string
	BuyerCountry     string
	ShipToCountry    string
	Region           string
	ExtractionMethod string
	ProcessingMethod string
	Status           constants.InvoiceStatus
}

// Checkpointer persists run progress. All calls are fire-and-forget: the
// pipeline logs failures and keeps going, extraction results must never be
// lost to a persistence hiccup.
type Checkpointer interface {
	InsertInitialHeader(ctx context.Context, snap HeaderSnapshot) error
	UpdateHeaderWithInvoiceNumber(ctx context.Context, headerID, invoiceNumber string, status constants.InvoiceStatus) error
	UpdateInvoiceStatusByID(ctx context.Context, headerID string, status constants.InvoiceStatus) error
	UpdateFullInvoiceData(ctx context.Context, headerID string, invoice map[string]any, processingMethod, extractionMethod string) error
}

// NopCheckpointer is the default when no persistence is wired, e.g. in the
// one-shot CLI.
type NopCheckpointer struct{}

func (NopCheckpointer) InsertInitialHeader(context.Context, HeaderSnapshot) error {
	return nil
}

func (NopCheckpointer) UpdateHeaderWithInvoiceNumber(context.Context, string, string, constants.InvoiceStatus) error {
	return nil
}

func (NopCheckpointer) UpdateInvoiceStatusByID(context.Context, string, constants.InvoiceStatus) error {
	return nil
}

func (NopCheckpointer) UpdateFullInvoiceData(context.Context, string, map[string]any, string, string) error {
	return nil
}
