package entity

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceHeader represents an invoice header for data transfer between layers.
type InvoiceHeader struct {
	ID                 uuid.UUID  `json:"id"`
	BrandName          *string    `json:"brand_name,omitempty"`
	SupplierName       *string    `json:"supplier_name,omitempty"`
	InvoiceType        *string    `json:"invoice_type,omitempty"`
	InvoiceNumber      *string    `json:"invoice_number,omitempty"`
	IssueDate          *string    `json:"issue_date,omitempty"`
	DueDate            *string    `json:"due_date,omitempty"`
	TaxPointDate       *string    `json:"tax_point_date,omitempty"`
	InvoiceReceiptDate *time.Time `json:"invoice_receipt_date,omitempty"`
	PONumber           *string    `json:"po_number,omitempty"`
	SupplierTaxID      *string    `json:"supplier_tax_id,omitempty"`
	BuyerCompanyRegID  *string    `json:"buyer_company_reg_id,omitempty"`
	BuyerTaxID         *string    `json:"buyer_tax_id,omitempty"`
	SupplierDetails    *string    `json:"supplier_details,omitempty"`
	SupplierCountry    *string    `json:"supplier_country_code,omitempty"`
	BuyerDetails       *string    `json:"buyer_details,omitempty"`
	BuyerCountry       *string    `json:"buyer_country_code,omitempty"`
	ShipToDetails      *string    `json:"ship_to_details,omitempty"`
	ShipToCountry      *string    `json:"ship_to_country_code,omitempty"`
	PaymentInformation *string    `json:"payment_information,omitempty"`
	PaymentTerms       *string    `json:"payment_terms,omitempty"`
	Subtotal           *float64   `json:"subtotal,omitempty"`
	Tax                *float64   `json:"tax,omitempty"`
	Total              *float64   `json:"total,omitempty"`
	Currency           *string    `json:"currency,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	DeliveryNote       *string    `json:"delivery_note,omitempty"`
	ExchangeRate       *float64   `json:"exchange_rate,omitempty"`
	SystemRouting      *string    `json:"system_routing,omitempty"`
	Region             *string    `json:"region,omitempty"`
	Status             string     `json:"status"`
	Feedback           string     `json:"feedback"`
	ExtractionMethod   *string    `json:"extraction_method,omitempty"`
	ProcessingMethod   *string    `json:"processing_method,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	LineItems []InvoiceLineItem `json:"line_items,omitempty"`
	Payments  []InvoicePayment  `json:"payments,omitempty"`
}

// InvoiceLineItem represents one line of an invoice.
type InvoiceLineItem struct {
	ID                 uuid.UUID `json:"id"`
	InvoiceHeaderID    uuid.UUID `json:"invoice_header_id"`
	LineNumber         *int      `json:"line_number,omitempty"`
	ItemNumber         *string   `json:"item_number,omitempty"`
	ItemCode           *string   `json:"item_code,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Quantity           *float64  `json:"quantity,omitempty"`
	UnitOfMeasure      *string   `json:"unit_of_measure,omitempty"`
	UnitPrice          *float64  `json:"unit_price,omitempty"`
	Amount             *float64  `json:"amount,omitempty"`
	PricePer           *float64  `json:"price_per,omitempty"`
	AmountGrossPerLine *float64  `json:"amount_gross_per_line,omitempty"`
	AmountNetPerLine   *float64  `json:"amount_net_per_line,omitempty"`
	TaxAmountPerLine   *float64  `json:"tax_amount_per_line,omitempty"`
	TaxRate            *float64  `json:"tax_rate,omitempty"`
	DeliveryNote       *string   `json:"delivery_note,omitempty"`
	MaterialNumber     *string   `json:"material_number,omitempty"`
	CustomerPO         *string   `json:"customer_po,omitempty"`
	PONumber           *string   `json:"po_number,omitempty"`
	CurrencyPerLine    *string   `json:"currency_per_line,omitempty"`
	IsAdditionalCharge bool      `json:"is_additional_charge"`
	SourcePage         *int      `json:"source_page,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// InvoiceFile holds the original document content for an invoice header.
type InvoiceFile struct {
	ID               uuid.UUID `json:"id"`
	InvoiceHeaderID  uuid.UUID `json:"invoice_header_id"`
	OriginalFilePath string    `json:"original_file_path"`
	FileName         string    `json:"file_name"`
	FileSize         int64     `json:"file_size"`
	FileBase64       string    `json:"file_base64_content,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
