package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PromptTemplate represents one row of the prompt registry: the extraction
// configuration for a (country, brand, processing method) combination.
type PromptTemplate struct {
	ID                  uuid.UUID       `json:"id"`
	CountryCode         string          `json:"country_code"`
	BrandName           string          `json:"brand_name"`
	ProcessingMethod    string          `json:"processing_method"`
	SchemaJSON          json.RawMessage `json:"schema_json"`
	Prompt              string          `json:"prompt"`
	SpecialInstructions *string         `json:"special_instructions,omitempty"`
	IsActive            bool            `json:"is_active"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// BrandFeedback is free-form reviewer feedback attached to a brand within a
// country, folded into extraction instructions on later runs.
type BrandFeedback struct {
	ID          uuid.UUID `json:"id"`
	CountryCode string    `json:"country_code"`
	BrandName   string    `json:"brand_name"`
	Feedback    string    `json:"feedback"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
