package constants

// ProcessingMethod selects the extraction modality requested by the caller.
type ProcessingMethod string

const (
	MethodText  ProcessingMethod = "text"
	MethodImage ProcessingMethod = "image"
)

// ProcessingLevel selects whether pages are extracted one at a time or
// grouped per invoice before being sent to the model.
type ProcessingLevel string

const (
	LevelPage    ProcessingLevel = "page"
	LevelInvoice ProcessingLevel = "invoice"
)

// Extraction method values surfaced in responses and persisted on headers.
// The "_multiple" suffix is appended when a document yields more than one
// invoice.
const (
	ExtractionText            = "text"
	ExtractionVision          = "vision"
	ExtractionTextPerPage     = "text_per_page"
	ExtractionTextPerInvoice  = "text_per_invoice"
	ExtractionVisionPerPage   = "vision_per_page"
	ExtractionVisionPerInvoice = "vision_per_invoice"
	ExtractionTextFallback     = "text_fallback"
	MultipleSuffix             = "_multiple"
)

// UnknownInvoice is the bucket key for pages whose invoice number could not
// be classified.
const UnknownInvoice = "unknown"
