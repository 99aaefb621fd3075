package llm

import "context"

// ExtractRequest is everything one extraction attempt sends to the model.
type ExtractRequest struct {
	Document     Document
	Instructions string
	Schema       Schema
}

// Extractor is the capability boundary to the external extraction service.
// Implementations return the raw model text; parsing and validation are the caller's job.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]byte, error)
}
