// Package reports serves the dashboard statistics and the CSV exports.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLowStockThreshold marks an item as low stock when its total
// remaining quantity is at or below it.
const DefaultLowStockThreshold = 10

// Stats is the dashboard summary, assembled from independent queries.
type Stats struct {
	TotalBrands       int                 `json:"total_brands"`
	TotalItems        int                 `json:"total_items"`
	TotalCustomers    int                 `json:"total_customers"`
	TotalTransactions int                 `json:"total_transactions"`
	PendingOutgoing   int                 `json:"pending_outgoing"`
	CompletedOutgoing int                 `json:"completed_outgoing"`
	LowStockItems     int                 `json:"low_stock_items"`
	OutOfStockItems   int                 `json:"out_of_stock_items"`
	Recent            []RecentTransaction `json:"recent_transactions"`
}

// RecentTransaction is one row of the dashboard's recent activity feed.
type RecentTransaction struct {
	ID              int64           `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	Type            string          `json:"type"`
	Counterparty    string          `json:"counterparty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	TransactedAt    time.Time       `json:"transacted_date"`
}

// SalesRow is one exported OUTGOING line.
type SalesRow struct {
	ReferenceNumber string
	CustomerName    string
	ItemName        string
	SKU             string
	Quantity        int64
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	PricingTier     string
	TransactedAt    time.Time
}

// InventoryRow is one exported item stock line.
type InventoryRow struct {
	SKU           string
	ItemName      string
	BrandName     string
	UOM           string
	TotalQuantity int64
	ActiveBatches int
}

// CustomerRow is one exported customer line.
type CustomerRow struct {
	CompanyName   string
	CustomerType  string
	ContactPerson string
	ContactNumber string
	Status        string
	CreatedAt     time.Time
}

// LowStockItem is one item at or below the threshold, as found by the
// nightly scan.
type LowStockItem struct {
	ID            int64
	SKU           string
	Name          string
	TotalQuantity int64
}
