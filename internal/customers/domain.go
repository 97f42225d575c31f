// Package customers manages customer records, their per-brand pricing tier
// assignments, and special price requests.
package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer status values.
const (
	StatusActive   = "Active"
	StatusArchived = "Archived"
)

// Customer type values.
const (
	TypeInternational  = "International"
	TypeDistributor    = "Distributor"
	TypePhysicalStore  = "Physical Store"
	TypeReseller       = "Reseller"
	TypeDirectCustomer = "Direct Customer"
)

// Special pricing approval states.
const (
	ApprovalPending  = "Pending"
	ApprovalApproved = "Approved"
	ApprovalRejected = "Rejected"
)

// Customer is a buyer the business sells to.
type Customer struct {
	ID            int64     `json:"id"`
	CompanyName   string    `json:"company_name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Address       string    `json:"address,omitempty"`
	ContactNumber string    `json:"contact_number,omitempty"`
	TIN           string    `json:"tin,omitempty"`
	CustomerType  string    `json:"customer_type"`
	Platform      string    `json:"platform,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BrandPricing is the tier a customer buys a brand at.
type BrandPricing struct {
	BrandID     int64  `json:"brand_id"`
	BrandName   string `json:"brand_name"`
	PricingTier string `json:"pricing_tier"`
}

// SpecialPricing is a per-item discount request for a customer. The discount
// is always negative; it goes through an approval workflow before pricing
// resolution picks it up.
type SpecialPricing struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customer_id"`
	ItemID         int64           `json:"item_id"`
	ItemName       string          `json:"item_name"`
	Discount       decimal.Decimal `json:"discount"`
	ApprovalStatus string          `json:"approval_status"`
	CreatedBy      int64           `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ListFilters narrows customer listings.
type ListFilters struct {
	Status       string
	CustomerType string
	Search       string
	Ordering     string
	Limit        int
	Offset       int
}
