package llm

import "context"

// StructuredRequest asks the model for a JSON object. When Schema is set the
// response is validated against it locally, with one lenient sanitize retry.
// When Images carries data URLs the request goes through the vision model.
type StructuredRequest struct {
	System string
	User   string
	Schema map[string]any
	Images []string
}

// CompletionRequest asks the model for a short free-form answer, e.g. a
// classification token. Images are optional data URLs for vision runs.
type CompletionRequest struct {
	System string
	User   string
	Images []string
}

// Extractor is the model interface the extraction pipeline depends on.
type Extractor interface {
	ExtractStructured(ctx context.Context, req StructuredRequest) (map[string]any, []byte, error)
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
