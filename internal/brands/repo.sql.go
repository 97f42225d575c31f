package brands

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

// Repository defines persistence operations for brands.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Brand, int, error)
	Get(ctx context.Context, id int64) (Brand, error)
	Create(ctx context.Context, brand Brand) (Brand, error)
	Update(ctx context.Context, id int64, brand Brand) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type repo struct {
	db *pgxpool.Pool
}

// NewRepository creates a new brand repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repo{db: db}
}

const brandColumns = `b.id, b.name, COALESCE(b.description, ''), COALESCE(b.address, ''),
	COALESCE(b.tin, ''), COALESCE(b.contact_person, ''), COALESCE(b.contact_number, ''),
	b.vat_classification, b.is_active,
	(SELECT COUNT(*) FROM items i WHERE i.brand_id = b.id), b.created_at, b.updated_at`

var brandOrderings = map[string]string{
	"name":       "b.name",
	"created_at": "b.created_at",
	"updated_at": "b.updated_at",
}

func (r *repo) List(ctx context.Context, filters ListFilters) ([]Brand, int, error) {
	where := "TRUE"
	args := []any{}
	if !filters.IncludeAll {
		where += " AND b.is_active"
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND b.name ILIKE $%d", len(args))
	}

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM brands b WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	order := shared.OrderClause(filters.Ordering, brandOrderings, "b.name")
	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(`SELECT %s FROM brands b WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		brandColumns, where, order, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Brand
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Address, &b.TIN, &b.ContactPerson,
			&b.ContactNumber, &b.VATClassification, &b.IsActive, &b.ItemCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, b)
	}
	return result, count, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (Brand, error) {
	var b Brand
	err := r.db.QueryRow(ctx, `SELECT `+brandColumns+` FROM brands b WHERE b.id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Description, &b.Address, &b.TIN, &b.ContactPerson,
			&b.ContactNumber, &b.VATClassification, &b.IsActive, &b.ItemCount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Brand{}, shared.ErrNotFound
		}
		return Brand{}, err
	}
	return b, nil
}

func (r *repo) Create(ctx context.Context, brand Brand) (Brand, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx,
		`INSERT INTO brands (name, description, address, tin, contact_person, contact_number, vat_classification, is_active, created_at, updated_at)
		 VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), NULLIF($6,''), $7, TRUE, $8, $8) RETURNING id`,
		brand.Name, brand.Description, brand.Address, brand.TIN, brand.ContactPerson,
		brand.ContactNumber, brand.VATClassification, now).Scan(&brand.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Brand{}, ErrDuplicateName
		}
		return Brand{}, err
	}
	brand.IsActive = true
	brand.CreatedAt = now
	brand.UpdatedAt = now
	return brand, nil
}

func (r *repo) Update(ctx context.Context, id int64, brand Brand) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE brands SET name = $1, description = NULLIF($2,''), address = NULLIF($3,''),
		 tin = NULLIF($4,''), contact_person = NULLIF($5,''), contact_number = NULLIF($6,''),
		 vat_classification = $7, updated_at = $8 WHERE id = $9`,
		brand.Name, brand.Description, brand.Address, brand.TIN, brand.ContactPerson,
		brand.ContactNumber, brand.VATClassification, time.Now().UTC(), id)
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

func (r *repo) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE brands SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), id)
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
