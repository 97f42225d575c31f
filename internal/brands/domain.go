// Package brands manages the brand catalogue behind items and customer
// pricing assignments.
package brands

import "time"

// VAT classifications a brand can carry.
const (
	VATClassVAT    = "VAT"
	VATClassNonVAT = "NON_VAT"
	VATClassBoth   = "BOTH"
)

// Brand is a product brand carried by the distributor.
type Brand struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	Address           string    `json:"address,omitempty"`
	TIN               string    `json:"tin,omitempty"`
	ContactPerson     string    `json:"contact_person,omitempty"`
	ContactNumber     string    `json:"contact_number,omitempty"`
	VATClassification string    `json:"vat_classification"`
	IsActive          bool      `json:"is_active"`
	ItemCount         int       `json:"item_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListFilters narrows brand listings.
type ListFilters struct {
	Search     string
	IncludeAll bool
	Ordering   string
	Limit      int
	Offset     int
}
