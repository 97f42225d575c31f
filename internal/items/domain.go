// Package items manages the item catalogue, tier price tables, and the batch
// ledger stock is derived from.
package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Units of measure.
const (
	UOMPiece = "pc"
	UOMPack  = "pack"
)

// Item is a sellable product under a brand. Stock is never stored on the
// item row: total quantity is the sum of remaining quantities over its
// batches.
type Item struct {
	ID            int64     `json:"id"`
	BrandID       int64     `json:"brand_id"`
	BrandName     string    `json:"brand_name"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	UOM           string    `json:"uom"`
	TotalQuantity int64     `json:"total_quantity"`
	ActiveBatches int       `json:"active_batches"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TierPrice is one row of an item's price table.
type TierPrice struct {
	PricingTier string          `json:"pricing_tier"`
	Price       decimal.Decimal `json:"price"`
}

// Batch is one received lot of an item. Batch numbers are sequential per
// item and never reused.
type Batch struct {
	ID                int64           `json:"id"`
	ItemID            int64           `json:"item_id"`
	BatchNumber       string          `json:"batch_number"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	InitialQuantity   int64           `json:"initial_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	TransactionID     int64           `json:"transaction_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// HistoryEntry is one stock movement from the item's point of view. The
// quantity change is signed: receipts positive, sales negative.
type HistoryEntry struct {
	TransactionID   int64     `json:"transaction_id"`
	ReferenceNumber string    `json:"reference_number"`
	Type            string    `json:"type"`
	QuantityChange  int64     `json:"quantity_change"`
	TransactedAt    time.Time `json:"transacted_at"`
}

// BatchVerdict is the answer to a batch number validation request.
type BatchVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ListFilters narrows item listings.
type ListFilters struct {
	BrandID  int64
	Search   string
	Ordering string
	Limit    int
	Offset   int
}
