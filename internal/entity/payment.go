package entity

import (
	"time"

	"github.com/google/uuid"
)

// InvoicePayment records a payment applied against an invoice header.
type InvoicePayment struct {
	ID              uuid.UUID `json:"id"`
	InvoiceHeaderID uuid.UUID `json:"invoice_header_id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	PaidAt          time.Time `json:"paid_at"`
	Method          *string   `json:"method,omitempty"`
	Reference       *string   `json:"reference,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// RegionCountry maps a country to its reporting region.
type RegionCountry struct {
	RegionCode  string `json:"region_code"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
}
