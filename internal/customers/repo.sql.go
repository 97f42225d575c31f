package customers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/shared"
)

// Repository defines persistence operations for customers.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	FindByName(ctx context.Context, companyName string) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, c Customer) error
	SetStatus(ctx context.Context, id int64, status string) error

	BrandPricing(ctx context.Context, customerID int64) ([]BrandPricing, error)
	UpsertBrandPricing(ctx context.Context, customerID, brandID int64, tier string) error
	RemoveBrandPricing(ctx context.Context, customerID, brandID int64) error
	ActiveBrandIDs(ctx context.Context) ([]int64, error)

	SpecialPricing(ctx context.Context, customerID int64) ([]SpecialPricing, error)
	AddSpecialPricing(ctx context.Context, sp SpecialPricing) (SpecialPricing, error)
	RemoveSpecialPricing(ctx context.Context, customerID, pricingID int64) error
	SetApproval(ctx context.Context, customerID, pricingID int64, status string) error
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new customer repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const customerColumns = `c.id, c.company_name, COALESCE(c.contact_person,''), COALESCE(c.address,''),
	COALESCE(c.contact_number,''), COALESCE(c.tin,''), c.customer_type, COALESCE(c.platform,''),
	c.status, c.created_at, c.updated_at`

var customerOrderings = map[string]string{
	"company_name":  "c.company_name",
	"customer_type": "c.customer_type",
	"created_at":    "c.created_at",
	"updated_at":    "c.updated_at",
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.CompanyName, &c.ContactPerson, &c.Address, &c.ContactNumber,
		&c.TIN, &c.CustomerType, &c.Platform, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, shared.ErrNotFound
		}
		return Customer{}, err
	}
	return c, nil
}

func (r *repo) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	where := "TRUE"
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND c.status = $%d", len(args))
	}
	if filters.CustomerType != "" {
		args = append(args, filters.CustomerType)
		where += fmt.Sprintf(" AND c.customer_type = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (c.company_name ILIKE $%d OR c.contact_person ILIKE $%d)", len(args), len(args))
	}

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM customers c WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	order := shared.OrderClause(filters.Ordering, customerOrderings, "c.company_name")
	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(`SELECT %s FROM customers c WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		customerColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.CompanyName, &c.ContactPerson, &c.Address, &c.ContactNumber,
			&c.TIN, &c.CustomerType, &c.Platform, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, count, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers c WHERE c.id = $1`, id)
	return scanCustomer(row)
}

func (r *repo) FindByName(ctx context.Context, companyName string) (Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers c WHERE lower(c.company_name) = lower($1)`, companyName)
	return scanCustomer(row)
}

func (r *repo) Create(ctx context.Context, c Customer) (Customer, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO customers (company_name, contact_person, address, contact_number, tin, customer_type, platform, status, created_at, updated_at)
		 VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, NULLIF($7,''), $8, $9, $9)
		 RETURNING id`,
		c.CompanyName, c.ContactPerson, c.Address, c.ContactNumber, c.TIN, c.CustomerType, c.Platform, StatusActive, now).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Customer{}, ErrDuplicateName
		}
		return Customer{}, err
	}
	c.Status = StatusActive
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

func (r *repo) Update(ctx context.Context, id int64, c Customer) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET company_name = $1, contact_person = NULLIF($2,''), address = NULLIF($3,''),
		 contact_number = NULLIF($4,''), tin = NULLIF($5,''), customer_type = $6, platform = NULLIF($7,''), updated_at = $8
		 WHERE id = $9`,
		c.CompanyName, c.ContactPerson, c.Address, c.ContactNumber, c.TIN, c.CustomerType, c.Platform, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) BrandPricing(ctx context.Context, customerID int64) ([]BrandPricing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT p.brand_id, b.name, p.pricing_tier
		 FROM customer_brand_pricing p JOIN brands b ON b.id = p.brand_id
		 WHERE p.customer_id = $1 ORDER BY b.name`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BrandPricing
	for rows.Next() {
		var bp BrandPricing
		if err := rows.Scan(&bp.BrandID, &bp.BrandName, &bp.PricingTier); err != nil {
			return nil, err
		}
		result = append(result, bp)
	}
	return result, rows.Err()
}

func (r *repo) UpsertBrandPricing(ctx context.Context, customerID, brandID int64, tier string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO customer_brand_pricing (customer_id, brand_id, pricing_tier)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (customer_id, brand_id) DO UPDATE SET pricing_tier = EXCLUDED.pricing_tier`,
		customerID, brandID, tier)
	return err
}

func (r *repo) RemoveBrandPricing(ctx context.Context, customerID, brandID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM customer_brand_pricing WHERE customer_id = $1 AND brand_id = $2`, customerID, brandID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) ActiveBrandIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM brands WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repo) SpecialPricing(ctx context.Context, customerID int64) ([]SpecialPricing, error) {
	rows, err := r.db.Query(ctx,
		`SELECT sp.id, sp.customer_id, sp.item_id, i.name, sp.discount, sp.approval_status, sp.created_by, sp.created_at
		 FROM customer_special_pricing sp JOIN items i ON i.id = sp.item_id
		 WHERE sp.customer_id = $1 ORDER BY sp.created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SpecialPricing
	for rows.Next() {
		var sp SpecialPricing
		var discount decimal.Decimal
		if err := rows.Scan(&sp.ID, &sp.CustomerID, &sp.ItemID, &sp.ItemName, &discount, &sp.ApprovalStatus, &sp.CreatedBy, &sp.CreatedAt); err != nil {
			return nil, err
		}
		sp.Discount = discount
		result = append(result, sp)
	}
	return result, rows.Err()
}

func (r *repo) AddSpecialPricing(ctx context.Context, sp SpecialPricing) (SpecialPricing, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO customer_special_pricing (customer_id, item_id, discount, approval_status, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		sp.CustomerID, sp.ItemID, sp.Discount, ApprovalPending, sp.CreatedBy, now).Scan(&sp.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return SpecialPricing{}, ErrDuplicateSpecialPricing
		}
		return SpecialPricing{}, err
	}
	sp.ApprovalStatus = ApprovalPending
	sp.CreatedAt = now
	return sp, nil
}

func (r *repo) RemoveSpecialPricing(ctx context.Context, customerID, pricingID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM customer_special_pricing WHERE id = $1 AND customer_id = $2`, pricingID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repo) SetApproval(ctx context.Context, customerID, pricingID int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customer_special_pricing SET approval_status = $1 WHERE id = $2 AND customer_id = $3`,
		status, pricingID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
