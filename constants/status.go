package constants

// ExtractionStatus tracks a pipeline run as it moves between stages.
type ExtractionStatus string

// Stable values (these exact strings appear in responses).
const (
	StatusParsed                ExtractionStatus = "parsed"
	StatusSupplierExtracted     ExtractionStatus = "supplier_extracted"
	StatusCountryCodesExtracted ExtractionStatus = "country_codes_extracted"
	StatusDataExtractedPerPage  ExtractionStatus = "data_extracted_per_page"
	StatusDataMerged            ExtractionStatus = "data_merged"
	StatusDataMergedMultiple    ExtractionStatus = "data_merged_multiple"
	StatusResponsePrepared      ExtractionStatus = "response_prepared"
	StatusError                 ExtractionStatus = "error"
	StatusSuccess               ExtractionStatus = "success"
)

// InvoiceStatus is the canonical status for rows in invoice_headers.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	InvoiceStatusReceived   InvoiceStatus = "Received"
	InvoiceStatusProcessing InvoiceStatus = "Processing"
	InvoiceStatusProcessed  InvoiceStatus = "Processed"
	InvoiceStatusFailed     InvoiceStatus = "Failed"
)
