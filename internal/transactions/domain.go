// Package transactions owns the transaction ledger: creation with batch
// effects, listing, status updates, and cancellation.
package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TypeIncoming   = "INCOMING"
	TypeOutgoing   = "OUTGOING"
	TypeAdjustment = "ADJUSTMENT"
)

// VAT classifications.
const (
	VATTypeVAT    = "VAT"
	VATTypeNonVAT = "NON_VAT"
	VATTypeMixed  = "MIXED"
)

// VATRate is the statutory VAT fraction applied to VAT-registered totals.
var VATRate = decimal.NewFromFloat(0.12)

// Transaction is one ledger entry with its completion flags. INCOMING and
// ADJUSTMENT entries are always complete; an OUTGOING entry completes when
// released, paid, and the official receipt is sent.
type Transaction struct {
	ID              int64           `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	Type            string          `json:"type"`
	BrandID         int64           `json:"brand_id,omitempty"`
	BrandName       string          `json:"brand_name,omitempty"`
	CustomerID      int64           `json:"customer_id,omitempty"`
	CustomerName    string          `json:"customer_name,omitempty"`
	AccountID       int64           `json:"account_id"`
	VATType         string          `json:"vat_type"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	VATAmount       decimal.Decimal `json:"vat_amount"`
	IsReleased      bool            `json:"is_released"`
	IsPaid          bool            `json:"is_paid"`
	IsORSent        bool            `json:"is_or_sent"`
	TransactedAt    time.Time       `json:"transacted_date"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Lines           []Line          `json:"lines,omitempty"`
}

// Completed reports whether the transaction needs no further action.
func (t Transaction) Completed() bool {
	if t.Type != TypeOutgoing {
		return true
	}
	return t.IsReleased && t.IsPaid && t.IsORSent
}

// Line is one item movement on a transaction. Quantity is a magnitude; the
// transaction type carries the sign.
type Line struct {
	ID          int64           `json:"id"`
	ItemID      int64           `json:"item_id"`
	ItemName    string          `json:"item_name"`
	BatchID     int64           `json:"batch_id,omitempty"`
	BatchNumber string          `json:"batch_number,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	PricingTier string          `json:"pricing_tier,omitempty"`
}

// ListFilters narrows transaction listings.
type ListFilters struct {
	Status          string // Pending | Completed
	Type            string
	ReleaseStatus   string // released | unreleased
	PaymentStatus   string // paid | unpaid
	ORInvoiceStatus string // sent | unsent
	StartDate       *time.Time
	EndDate         *time.Time
	Search          string
	Ordering        string
	AccountID       int64
	Limit           int
	Offset          int
}

// StatusUpdate carries the PATCH payload for OUTGOING completion flags.
// Nil fields stay unchanged.
type StatusUpdate struct {
	IsReleased *bool `json:"is_released,omitempty"`
	IsPaid     *bool `json:"is_paid,omitempty"`
	IsORSent   *bool `json:"is_or_sent,omitempty"`
}
