package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines the read queries behind the dashboard and exports.
type Repository interface {
	CountBrands(ctx context.Context) (int, error)
	CountItems(ctx context.Context) (int, error)
	CountCustomers(ctx context.Context) (int, error)
	CountTransactions(ctx context.Context) (int, error)
	OutgoingStatusCounts(ctx context.Context) (pending, completed int, err error)
	StockLevelCounts(ctx context.Context, threshold int64) (low, out int, err error)
	RecentTransactions(ctx context.Context, limit int) ([]RecentTransaction, error)
	SalesRows(ctx context.Context) ([]SalesRow, error)
	InventoryRows(ctx context.Context) ([]InventoryRow, error)
	CustomerRows(ctx context.Context) ([]CustomerRow, error)
	LowStockItems(ctx context.Context, threshold int64) ([]LowStockItem, error)
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new reports repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

func (r *repo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *repo) CountBrands(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM brands WHERE is_active`)
}

func (r *repo) CountItems(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM items`)
}

func (r *repo) CountCustomers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE status = 'Active'`)
}

func (r *repo) CountTransactions(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM transactions`)
}

func (r *repo) OutgoingStatusCounts(ctx context.Context) (int, int, error) {
	var pending, completed int
	err := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE NOT (is_released AND is_paid AND is_or_sent)),
		   COUNT(*) FILTER (WHERE is_released AND is_paid AND is_or_sent)
		 FROM transactions WHERE type = 'OUTGOING'`).Scan(&pending, &completed)
	return pending, completed, err
}

// StockLevelCounts derives levels from batch remainders: out of stock means
// nothing left anywhere, low stock means a positive total at or below the
// threshold.
func (r *repo) StockLevelCounts(ctx context.Context, threshold int64) (int, int, error) {
	var low, out int
	err := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE stock > 0 AND stock <= $1),
		   COUNT(*) FILTER (WHERE stock = 0)
		 FROM (
		   SELECT COALESCE(SUM(b.remaining_quantity), 0) AS stock
		   FROM items i LEFT JOIN batches b ON b.item_id = i.id
		   GROUP BY i.id
		 ) levels`, threshold).Scan(&low, &out)
	return low, out, err
}

func (r *repo) RecentTransactions(ctx context.Context, limit int) ([]RecentTransaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.reference_number, t.type,
		   COALESCE(c.company_name, b.name, ''),
		   t.total_amount, t.transacted_at
		 FROM transactions t
		 LEFT JOIN customers c ON c.id = t.customer_id
		 LEFT JOIN brands b ON b.id = t.brand_id
		 ORDER BY t.created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecentTransaction
	for rows.Next() {
		var rt RecentTransaction
		if err := rows.Scan(&rt.ID, &rt.ReferenceNumber, &rt.Type, &rt.Counterparty,
			&rt.TotalAmount, &rt.TransactedAt); err != nil {
			return nil, err
		}
		result = append(result, rt)
	}
	return result, rows.Err()
}

func (r *repo) SalesRows(ctx context.Context) ([]SalesRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.reference_number, COALESCE(c.company_name, ''), i.name, i.sku,
		   l.quantity, l.unit_price, l.total_price, COALESCE(l.pricing_tier, ''),
		   t.transacted_at
		 FROM transaction_lines l
		 JOIN transactions t ON t.id = l.transaction_id
		 JOIN items i ON i.id = l.item_id
		 LEFT JOIN customers c ON c.id = t.customer_id
		 WHERE t.type = 'OUTGOING'
		 ORDER BY t.transacted_at DESC, t.id, l.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SalesRow
	for rows.Next() {
		var sr SalesRow
		if err := rows.Scan(&sr.ReferenceNumber, &sr.CustomerName, &sr.ItemName, &sr.SKU,
			&sr.Quantity, &sr.UnitPrice, &sr.TotalPrice, &sr.PricingTier, &sr.TransactedAt); err != nil {
			return nil, err
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

func (r *repo) InventoryRows(ctx context.Context) ([]InventoryRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT i.sku, i.name, b.name, i.uom,
		   COALESCE((SELECT SUM(remaining_quantity) FROM batches WHERE item_id = i.id), 0),
		   (SELECT COUNT(*) FROM batches WHERE item_id = i.id AND remaining_quantity > 0)
		 FROM items i JOIN brands b ON b.id = i.brand_id
		 ORDER BY i.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []InventoryRow
	for rows.Next() {
		var ir InventoryRow
		if err := rows.Scan(&ir.SKU, &ir.ItemName, &ir.BrandName, &ir.UOM,
			&ir.TotalQuantity, &ir.ActiveBatches); err != nil {
			return nil, err
		}
		result = append(result, ir)
	}
	return result, rows.Err()
}

func (r *repo) CustomerRows(ctx context.Context) ([]CustomerRow, error) {
	rows, err := r.db.Query(ctx,
		`SELECT company_name, customer_type, COALESCE(contact_person, ''),
		   COALESCE(contact_number, ''), status, created_at
		 FROM customers ORDER BY company_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CustomerRow
	for rows.Next() {
		var cr CustomerRow
		if err := rows.Scan(&cr.CompanyName, &cr.CustomerType, &cr.ContactPerson,
			&cr.ContactNumber, &cr.Status, &cr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}

func (r *repo) LowStockItems(ctx context.Context, threshold int64) ([]LowStockItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT i.id, i.sku, i.name,
		   COALESCE((SELECT SUM(remaining_quantity) FROM batches WHERE item_id = i.id), 0) AS stock
		 FROM items i
		 WHERE COALESCE((SELECT SUM(remaining_quantity) FROM batches WHERE item_id = i.id), 0) <= $1
		 ORDER BY stock, i.sku`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LowStockItem
	for rows.Next() {
		var li LowStockItem
		if err := rows.Scan(&li.ID, &li.SKU, &li.Name, &li.TotalQuantity); err != nil {
			return nil, err
		}
		result = append(result, li)
	}
	return result, rows.Err()
}
