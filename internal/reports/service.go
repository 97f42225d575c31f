package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const recentLimit = 5

// Service assembles dashboard statistics and writes exports.
type Service struct {
	repo      Repository
	threshold int64
	printer   *message.Printer
}

// NewService creates a reports service. A non-positive threshold falls back
// to the default.
func NewService(repo Repository, threshold int64) *Service {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{
		repo:      repo,
		threshold: threshold,
		printer:   message.NewPrinter(language.English),
	}
}

// Threshold returns the low stock cutoff in effect.
func (s *Service) Threshold() int64 {
	return s.threshold
}

// Stats fans the dashboard queries out concurrently; one failure fails the
// whole summary.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.repo.CountBrands(ctx)
		stats.TotalBrands = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountItems(ctx)
		stats.TotalItems = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountCustomers(ctx)
		stats.TotalCustomers = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountTransactions(ctx)
		stats.TotalTransactions = n
		return err
	})
	g.Go(func() error {
		pending, completed, err := s.repo.OutgoingStatusCounts(ctx)
		stats.PendingOutgoing = pending
		stats.CompletedOutgoing = completed
		return err
	})
	g.Go(func() error {
		low, out, err := s.repo.StockLevelCounts(ctx, s.threshold)
		stats.LowStockItems = low
		stats.OutOfStockItems = out
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.RecentTransactions(ctx, recentLimit)
		stats.Recent = recent
		return err
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	if stats.Recent == nil {
		stats.Recent = []RecentTransaction{}
	}
	return stats, nil
}

// LowStock lists items at or below the threshold.
func (s *Service) LowStock(ctx context.Context) ([]LowStockItem, error) {
	return s.repo.LowStockItems(ctx, s.threshold)
}

// ExportSales streams the OUTGOING lines as CSV.
func (s *Service) ExportSales(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.SalesRows(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"reference_number", "customer", "item", "sku", "quantity", "unit_price", "total_price", "pricing_tier", "transacted_date"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ReferenceNumber,
			row.CustomerName,
			row.ItemName,
			row.SKU,
			strconv.FormatInt(row.Quantity, 10),
			row.UnitPrice.StringFixed(2),
			s.amount(row.TotalPrice.InexactFloat64()),
			row.PricingTier,
			row.TransactedAt.Format(time.DateOnly),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportInventory streams the item stock levels as CSV.
func (s *Service) ExportInventory(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.InventoryRows(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sku", "item", "brand", "uom", "total_quantity", "active_batches"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.SKU,
			row.ItemName,
			row.BrandName,
			row.UOM,
			strconv.FormatInt(row.TotalQuantity, 10),
			strconv.Itoa(row.ActiveBatches),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCustomers streams the customer list as CSV.
func (s *Service) ExportCustomers(ctx context.Context, w io.Writer) error {
	rows, err := s.repo.CustomerRows(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"company_name", "customer_type", "contact_person", "contact_number", "status", "created_at"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.CompanyName,
			row.CustomerType,
			row.ContactPerson,
			row.ContactNumber,
			row.Status,
			row.CreatedAt.Format(time.DateOnly),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// amount renders a grand total with thousands separators for the export.
func (s *Service) amount(v float64) string {
	return s.printer.Sprintf("%.2f", v)
}

// ExportFilename names a download by type and day.
func ExportFilename(kind string, now time.Time) string {
	return fmt.Sprintf("%s-export-%s.csv", kind, now.Format(time.DateOnly))
}
