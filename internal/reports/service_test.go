package reports

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	brands       int
	items        int
	customers    int
	transactions int
	pending      int
	completed    int
	low          int
	out          int
	recent       []RecentTransaction
	sales        []SalesRow
	inventory    []InventoryRow
	customerRows []CustomerRow
	lowItems     []LowStockItem
	failCounts   bool
}

func (m *memoryRepo) CountBrands(context.Context) (int, error)    { return m.brands, nil }
func (m *memoryRepo) CountItems(context.Context) (int, error)     { return m.items, nil }
func (m *memoryRepo) CountCustomers(context.Context) (int, error) { return m.customers, nil }

func (m *memoryRepo) CountTransactions(context.Context) (int, error) {
	if m.failCounts {
		return 0, errors.New("boom")
	}
	return m.transactions, nil
}

func (m *memoryRepo) OutgoingStatusCounts(context.Context) (int, int, error) {
	return m.pending, m.completed, nil
}

func (m *memoryRepo) StockLevelCounts(_ context.Context, threshold int64) (int, int, error) {
	return m.low, m.out, nil
}

func (m *memoryRepo) RecentTransactions(_ context.Context, limit int) ([]RecentTransaction, error) {
	if len(m.recent) > limit {
		return m.recent[:limit], nil
	}
	return m.recent, nil
}

func (m *memoryRepo) SalesRows(context.Context) ([]SalesRow, error)         { return m.sales, nil }
func (m *memoryRepo) InventoryRows(context.Context) ([]InventoryRow, error) { return m.inventory, nil }
func (m *memoryRepo) CustomerRows(context.Context) ([]CustomerRow, error)   { return m.customerRows, nil }

func (m *memoryRepo) LowStockItems(_ context.Context, threshold int64) ([]LowStockItem, error) {
	var result []LowStockItem
	for _, li := range m.lowItems {
		if li.TotalQuantity <= threshold {
			result = append(result, li)
		}
	}
	return result, nil
}

func TestStatsAggregatesAllQueries(t *testing.T) {
	repo := &memoryRepo{
		brands: 3, items: 40, customers: 12, transactions: 200,
		pending: 5, completed: 80, low: 4, out: 2,
		recent: []RecentTransaction{
			{ID: 1, ReferenceNumber: "2026-0001", Type: "OUTGOING"},
		},
	}
	svc := NewService(repo, 0)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalBrands)
	require.Equal(t, 40, stats.TotalItems)
	require.Equal(t, 12, stats.TotalCustomers)
	require.Equal(t, 200, stats.TotalTransactions)
	require.Equal(t, 5, stats.PendingOutgoing)
	require.Equal(t, 80, stats.CompletedOutgoing)
	require.Equal(t, 4, stats.LowStockItems)
	require.Equal(t, 2, stats.OutOfStockItems)
	require.Len(t, stats.Recent, 1)
}

func TestStatsFailsWhenAnyQueryFails(t *testing.T) {
	svc := NewService(&memoryRepo{failCounts: true}, 0)
	_, err := svc.Stats(context.Background())
	require.Error(t, err)
}

func TestLowStockUsesConfiguredThreshold(t *testing.T) {
	repo := &memoryRepo{lowItems: []LowStockItem{
		{ID: 1, SKU: "102-001", Name: "Widget", TotalQuantity: 3},
		{ID: 2, SKU: "102-002", Name: "Gadget", TotalQuantity: 25},
	}}

	svc := NewService(repo, 20)
	require.EqualValues(t, 20, svc.Threshold())

	items, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Widget", items[0].Name)
}

func TestExportSalesCSV(t *testing.T) {
	repo := &memoryRepo{sales: []SalesRow{
		{
			ReferenceNumber: "2026-0001",
			CustomerName:    "Acme Store",
			ItemName:        "Widget",
			SKU:             "102-001",
			Quantity:        5,
			UnitPrice:       decimal.RequireFromString("100"),
			TotalPrice:      decimal.RequireFromString("1500.50"),
			PricingTier:     "SRP",
			TransactedAt:    time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewService(repo, 0)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportSales(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "reference_number,customer,item,sku,quantity,unit_price,total_price,pricing_tier,transacted_date", lines[0])
	require.Contains(t, lines[1], "2026-0001,Acme Store,Widget,102-001,5,100.00")
	require.Contains(t, lines[1], "1,500.50")
	require.Contains(t, lines[1], "2026-08-20")
}

func TestExportInventoryCSV(t *testing.T) {
	repo := &memoryRepo{inventory: []InventoryRow{
		{SKU: "102-001", ItemName: "Widget", BrandName: "Lumina Foods", UOM: "pc", TotalQuantity: 42, ActiveBatches: 3},
	}}
	svc := NewService(repo, 0)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportInventory(context.Background(), &buf))
	require.Contains(t, buf.String(), "102-001,Widget,Lumina Foods,pc,42,3")
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "sales-export-2026-08-25.csv", ExportFilename("sales", now))
}
