package items

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumina-dist/lumina/internal/shared"
)

// Repository defines persistence operations for items and batches.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) error
	MaxSKUSequence(ctx context.Context, prefix string) (int, error)

	TierPricing(ctx context.Context, itemID int64) ([]TierPrice, error)
	UpsertTierPrice(ctx context.Context, itemID int64, tp TierPrice) error

	History(ctx context.Context, itemID int64) ([]HistoryEntry, error)

	Batches(ctx context.Context, itemID int64, activeOnly bool) ([]Batch, error)
	MaxBatchSequence(ctx context.Context, itemID int64) (int, error)
	BatchNumberExists(ctx context.Context, itemID int64, number string) (bool, error)
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new item repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const itemColumns = `i.id, i.brand_id, b.name, i.name, i.sku, i.uom,
	COALESCE((SELECT SUM(bt.remaining_quantity) FROM item_batches bt WHERE bt.item_id = i.id), 0),
	COALESCE((SELECT COUNT(*) FROM item_batches bt WHERE bt.item_id = i.id AND bt.remaining_quantity > 0), 0),
	i.created_at, i.updated_at`

var itemOrderings = map[string]string{
	"name":       "i.name",
	"sku":        "i.sku",
	"brand_name": "b.name",
	"created_at": "i.created_at",
	"updated_at": "i.updated_at",
}

func (r *repo) List(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	where := "TRUE"
	args := []any{}
	if filters.BrandID > 0 {
		args = append(args, filters.BrandID)
		where += fmt.Sprintf(" AND i.brand_id = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (i.name ILIKE $%d OR i.sku ILIKE $%d OR b.name ILIKE $%d)", len(args), len(args), len(args))
	}

	var count int
	countQuery := `SELECT COUNT(*) FROM items i JOIN brands b ON b.id = i.brand_id WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	order := shared.OrderClause(filters.Ordering, itemOrderings, "i.name")
	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(`SELECT %s FROM items i JOIN brands b ON b.id = i.brand_id WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		itemColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.BrandID, &it.BrandName, &it.Name, &it.SKU, &it.UOM,
			&it.TotalQuantity, &it.ActiveBatches, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, it)
	}
	return result, count, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (Item, error) {
	var it Item
	err := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items i JOIN brands b ON b.id = i.brand_id WHERE i.id = $1`, id).
		Scan(&it.ID, &it.BrandID, &it.BrandName, &it.Name, &it.SKU, &it.UOM,
			&it.TotalQuantity, &it.ActiveBatches, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repo) Create(ctx context.Context, item Item) (Item, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO items (brand_id, name, sku, uom, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		item.BrandID, item.Name, item.SKU, item.UOM, now).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Item{}, ErrDuplicate
		}
		return Item{}, err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repo) Update(ctx context.Context, id int64, item Item) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE items SET name = $1, uom = $2, updated_at = $3 WHERE id = $4`,
		item.Name, item.UOM, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MaxSKUSequence returns the highest numeric suffix among SKUs with the
// given prefix, 0 when none exist.
func (r *repo) MaxSKUSequence(ctx context.Context, prefix string) (int, error) {
	var max int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(split_part(sku, '-', 2)::int), 0) FROM items WHERE sku LIKE $1 || '-%'`,
		prefix).Scan(&max)
	return max, err
}

func (r *repo) TierPricing(ctx context.Context, itemID int64) ([]TierPrice, error) {
	rows, err := r.db.Query(ctx,
		`SELECT pricing_tier, price FROM item_tier_pricing WHERE item_id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TierPrice
	for rows.Next() {
		var tp TierPrice
		if err := rows.Scan(&tp.PricingTier, &tp.Price); err != nil {
			return nil, err
		}
		result = append(result, tp)
	}
	return result, rows.Err()
}

func (r *repo) UpsertTierPrice(ctx context.Context, itemID int64, tp TierPrice) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO item_tier_pricing (item_id, pricing_tier, price)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (item_id, pricing_tier) DO UPDATE SET price = EXCLUDED.price`,
		itemID, tp.PricingTier, tp.Price)
	return err
}

func (r *repo) History(ctx context.Context, itemID int64) ([]HistoryEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.reference_number, t.type,
		        CASE WHEN t.type = 'OUTGOING' THEN -l.quantity ELSE l.quantity END,
		        t.transacted_at
		 FROM transaction_lines l JOIN transactions t ON t.id = l.transaction_id
		 WHERE l.item_id = $1
		 ORDER BY t.transacted_at DESC, t.id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.TransactionID, &e.ReferenceNumber, &e.Type, &e.QuantityChange, &e.TransactedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

const batchColumns = `id, item_id, batch_number, cost_price, initial_quantity, remaining_quantity, expiry_date, COALESCE(transaction_id, 0), created_at`

func (r *repo) Batches(ctx context.Context, itemID int64, activeOnly bool) ([]Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM item_batches WHERE item_id = $1`
	if activeOnly {
		query += ` AND remaining_quantity > 0`
	}
	query += ` ORDER BY batch_number`

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BatchNumber, &b.CostPrice, &b.InitialQuantity,
			&b.RemainingQuantity, &b.ExpiryDate, &b.TransactionID, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// MaxBatchSequence returns the highest numeric suffix among an item's batch
// numbers, 0 when the item has none.
func (r *repo) MaxBatchSequence(ctx context.Context, itemID int64) (int, error) {
	var max int
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(split_part(batch_number, '-', 2)::int), 0) FROM item_batches WHERE item_id = $1`,
		itemID).Scan(&max)
	return max, err
}

func (r *repo) BatchNumberExists(ctx context.Context, itemID int64, number string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM item_batches WHERE item_id = $1 AND batch_number = $2)`,
		itemID, number).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
