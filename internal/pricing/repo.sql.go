package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) CustomerBrandTier(ctx context.Context, customerID, brandID int64) (Tier, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT pricing_tier FROM customer_brand_pricing WHERE customer_id=$1 AND brand_id=$2`, customerID, brandID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoBrandTier
		}
		return "", err
	}
	tier, ok := ParseTier(raw)
	if !ok {
		return "", ErrNoBrandTier
	}
	return tier, nil
}

func (r *PGRepository) ItemTierPrice(ctx context.Context, itemID int64, tier Tier) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT price FROM item_tier_pricing WHERE item_id=$1 AND pricing_tier=$2`, itemID, string(tier)).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrNoTierPrice
		}
		return decimal.Zero, err
	}
	return price, nil
}

func (r *PGRepository) ApprovedSpecialDiscount(ctx context.Context, customerID, itemID int64) (decimal.Decimal, bool, error) {
	var discount decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT discount FROM customer_special_pricing WHERE customer_id=$1 AND item_id=$2 AND approval_status='Approved'`, customerID, itemID).Scan(&discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	return discount, true, nil
}

var _ Repository = (*PGRepository)(nil)
