package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/platform/db"
	"github.com/lumina-dist/lumina/internal/shared"
)

// Effect kinds: what a line does to the batch ledger.
const (
	EffectNewBatch    = "new-batch"
	EffectConsume     = "consume"
	EffectConsumeLIFO = "consume-lifo"
	EffectNone        = "none"
)

// LineEffect pairs a transaction line with its ledger effect. All effects of
// a transaction apply atomically or not at all.
type LineEffect struct {
	Line   Line
	Kind   string
	ItemID int64
	// EffectNewBatch
	BatchNumber string
	CostPrice   decimal.Decimal
	ExpiryDate  *time.Time
	// EffectConsume
	BatchID int64
	// Quantity magnitude for the ledger.
	Quantity int64
}

// Store is the persistence boundary for transactions.
type Store interface {
	Create(ctx context.Context, t *Transaction, effects []LineEffect) error
	List(ctx context.Context, filters ListFilters) ([]Transaction, int, error)
	Get(ctx context.Context, id int64) (Transaction, error)
	UpdateFlags(ctx context.Context, id int64, update StatusUpdate) (Transaction, error)
	CancelPending(ctx context.Context, id int64) error
	BrandVAT(ctx context.Context, brandID int64) (string, error)
	NextReference(ctx context.Context, year int) (string, error)
}

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PGStore.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FormatReference renders a yearly sequence as a reference number.
func FormatReference(year, seq int) string {
	return fmt.Sprintf("%d-%04d", year, seq)
}

func nextReferenceSeq(ctx context.Context, tx pgx.Tx, year int) (int, error) {
	var max int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(split_part(reference_number, '-', 2)::int), 0)
		 FROM transactions WHERE reference_number LIKE $1 || '-%'`,
		fmt.Sprintf("%d", year)).Scan(&max)
	return max + 1, err
}

// NextReference previews the next reference number for a year. The preview
// runs outside the create transaction, so it can go stale under concurrency;
// creation regenerates under the advisory lock.
func (s *PGStore) NextReference(ctx context.Context, year int) (string, error) {
	var seq int
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		seq, err = nextReferenceSeq(ctx, tx, year)
		return err
	})
	if err != nil {
		return "", err
	}
	return FormatReference(year, seq), nil
}

// Create persists the transaction, its lines, and their ledger effects in
// one database transaction. An empty reference number is generated under the
// reference advisory lock.
func (s *PGStore) Create(ctx context.Context, t *Transaction, effects []LineEffect) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if t.ReferenceNumber == "" {
			if err := shared.AdvisoryXactLock(ctx, tx, shared.LockReferenceSequence); err != nil {
				return err
			}
			year := t.TransactedAt.Year()
			seq, err := nextReferenceSeq(ctx, tx, year)
			if err != nil {
				return err
			}
			t.ReferenceNumber = FormatReference(year, seq)
		}

		now := time.Now().UTC()
		t.CreatedAt = now
		err := tx.QueryRow(ctx,
			`INSERT INTO transactions
			 (reference_number, type, brand_id, customer_id, account_id, vat_type,
			  total_amount, vat_amount, is_released, is_paid, is_or_sent,
			  transacted_at, due_date, notes, created_at)
			 VALUES ($1, $2, NULLIF($3, 0), NULLIF($4, 0), $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14,''), $15)
			 RETURNING id`,
			t.ReferenceNumber, t.Type, t.BrandID, t.CustomerID, t.AccountID, t.VATType,
			t.TotalAmount, t.VATAmount, t.IsReleased, t.IsPaid, t.IsORSent,
			t.TransactedAt, t.DueDate, t.Notes, now).Scan(&t.ID)
		if err != nil {
			return err
		}

		for i := range effects {
			if err := s.applyEffect(ctx, tx, t, &effects[i]); err != nil {
				return err
			}
			line := effects[i].Line
			err := tx.QueryRow(ctx,
				`INSERT INTO transaction_lines
				 (transaction_id, item_id, batch_id, quantity, unit_price, total_price, pricing_tier)
				 VALUES ($1, $2, NULLIF($3, 0), $4, $5, $6, NULLIF($7,''))
				 RETURNING id`,
				t.ID, line.ItemID, line.BatchID, line.Quantity, line.UnitPrice, line.TotalPrice, line.PricingTier).Scan(&line.ID)
			if err != nil {
				return err
			}
			t.Lines = append(t.Lines, line)
		}
		return nil
	})
}

func (s *PGStore) applyEffect(ctx context.Context, tx pgx.Tx, t *Transaction, effect *LineEffect) error {
	switch effect.Kind {
	case EffectNewBatch:
		number := effect.BatchNumber
		if number == "" {
			if err := shared.AdvisoryXactLock(ctx, tx, shared.LockBatchSequence); err != nil {
				return err
			}
			var max int
			err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(split_part(batch_number, '-', 2)::int), 0) FROM item_batches WHERE item_id = $1`,
				effect.ItemID).Scan(&max)
			if err != nil {
				return err
			}
			if max >= items.MaxBatchSeq {
				return items.ErrBatchSequenceExhausted
			}
			number = items.FormatBatchNumber(max + 1)
		}
		var batchID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO item_batches
			 (item_id, batch_number, cost_price, initial_quantity, remaining_quantity, expiry_date, transaction_id, created_at)
			 VALUES ($1, $2, $3, $4, $4, $5, $6, $7)
			 RETURNING id`,
			effect.ItemID, number, effect.CostPrice, effect.Quantity, effect.ExpiryDate, t.ID, time.Now().UTC()).Scan(&batchID)
		if err != nil {
			return err
		}
		effect.Line.BatchID = batchID
		effect.Line.BatchNumber = number

	case EffectConsume:
		var remaining int64
		err := tx.QueryRow(ctx,
			`SELECT remaining_quantity FROM item_batches WHERE id = $1 FOR UPDATE`,
			effect.BatchID).Scan(&remaining)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if remaining < effect.Quantity {
			return fmt.Errorf("%w: batch %d has %d left, need %d", ErrInsufficientStock, effect.BatchID, remaining, effect.Quantity)
		}
		_, err = tx.Exec(ctx,
			`UPDATE item_batches SET remaining_quantity = remaining_quantity - $1 WHERE id = $2`,
			effect.Quantity, effect.BatchID)
		if err != nil {
			return err
		}
		effect.Line.BatchID = effect.BatchID

	case EffectConsumeLIFO:
		// Negative adjustments take from the newest batches first.
		rows, err := tx.Query(ctx,
			`SELECT id, remaining_quantity FROM item_batches
			 WHERE item_id = $1 AND remaining_quantity > 0
			 ORDER BY batch_number DESC FOR UPDATE`, effect.ItemID)
		if err != nil {
			return err
		}
		type open struct {
			id        int64
			remaining int64
		}
		var batches []open
		for rows.Next() {
			var b open
			if err := rows.Scan(&b.id, &b.remaining); err != nil {
				rows.Close()
				return err
			}
			batches = append(batches, b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		need := effect.Quantity
		for _, b := range batches {
			if need == 0 {
				break
			}
			take := need
			if take > b.remaining {
				take = b.remaining
			}
			_, err := tx.Exec(ctx,
				`UPDATE item_batches SET remaining_quantity = remaining_quantity - $1 WHERE id = $2`,
				take, b.id)
			if err != nil {
				return err
			}
			need -= take
		}
		if need > 0 {
			return fmt.Errorf("%w: item %d short by %d", ErrInsufficientStock, effect.ItemID, need)
		}

	case EffectNone:
		// Line only; the ledger is untouched.

	default:
		return fmt.Errorf("transactions: unknown effect kind %q", effect.Kind)
	}
	return nil
}

const txColumns = `t.id, t.reference_number, t.type,
	COALESCE(t.brand_id, 0), COALESCE(b.name, ''),
	COALESCE(t.customer_id, 0), COALESCE(c.company_name, ''),
	t.account_id, t.vat_type, t.total_amount, t.vat_amount,
	t.is_released, t.is_paid, t.is_or_sent,
	t.transacted_at, t.due_date, COALESCE(t.notes, ''), t.created_at`

const txJoins = `FROM transactions t
	LEFT JOIN brands b ON b.id = t.brand_id
	LEFT JOIN customers c ON c.id = t.customer_id`

var txOrderings = map[string]string{
	"created_at":       "t.created_at",
	"transacted_date":  "t.transacted_at",
	"reference_number": "t.reference_number",
	"total_amount":     "t.total_amount",
	"type":             "t.type",
}

// completedClause mirrors Transaction.Completed in SQL.
const completedClause = `(t.type <> 'OUTGOING' OR (t.is_released AND t.is_paid AND t.is_or_sent))`

func (s *PGStore) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	where := "TRUE"
	args := []any{}
	switch filters.Status {
	case "Pending":
		where += ` AND NOT ` + completedClause
	case "Completed":
		where += ` AND ` + completedClause
	}
	if filters.Type != "" {
		args = append(args, filters.Type)
		where += fmt.Sprintf(" AND t.type = $%d", len(args))
	}
	switch filters.ReleaseStatus {
	case "released":
		where += " AND t.is_released"
	case "unreleased":
		where += " AND NOT t.is_released"
	}
	switch filters.PaymentStatus {
	case "paid":
		where += " AND t.is_paid"
	case "unpaid":
		where += " AND NOT t.is_paid"
	}
	switch filters.ORInvoiceStatus {
	case "sent":
		where += " AND t.is_or_sent"
	case "unsent":
		where += " AND NOT t.is_or_sent"
	}
	if filters.StartDate != nil {
		args = append(args, *filters.StartDate)
		where += fmt.Sprintf(" AND t.transacted_at >= $%d", len(args))
	}
	if filters.EndDate != nil {
		args = append(args, *filters.EndDate)
		where += fmt.Sprintf(" AND t.transacted_at <= $%d", len(args))
	}
	if filters.AccountID > 0 {
		args = append(args, filters.AccountID)
		where += fmt.Sprintf(" AND t.account_id = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += fmt.Sprintf(" AND (t.reference_number ILIKE $%d OR c.company_name ILIKE $%d OR b.name ILIKE $%d)",
			len(args), len(args), len(args))
	}

	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) `+txJoins+` WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	order := shared.OrderClause(filters.Ordering, txOrderings, "t.created_at DESC")
	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		txColumns, txJoins, where, order, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	return result, count, rows.Err()
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.ReferenceNumber, &t.Type,
		&t.BrandID, &t.BrandName, &t.CustomerID, &t.CustomerName,
		&t.AccountID, &t.VATType, &t.TotalAmount, &t.VATAmount,
		&t.IsReleased, &t.IsPaid, &t.IsORSent,
		&t.TransactedAt, &t.DueDate, &t.Notes, &t.CreatedAt)
	return t, err
}

func (s *PGStore) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(s.pool.QueryRow(ctx, `SELECT `+txColumns+` `+txJoins+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, shared.ErrNotFound
		}
		return Transaction{}, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT l.id, l.item_id, i.name, COALESCE(l.batch_id, 0), COALESCE(bt.batch_number, ''),
		        l.quantity, l.unit_price, l.total_price, COALESCE(l.pricing_tier, '')
		 FROM transaction_lines l
		 JOIN items i ON i.id = l.item_id
		 LEFT JOIN item_batches bt ON bt.id = l.batch_id
		 WHERE l.transaction_id = $1 ORDER BY l.id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ItemID, &l.ItemName, &l.BatchID, &l.BatchNumber,
			&l.Quantity, &l.UnitPrice, &l.TotalPrice, &l.PricingTier); err != nil {
			return Transaction{}, err
		}
		t.Lines = append(t.Lines, l)
	}
	return t, rows.Err()
}

func (s *PGStore) UpdateFlags(ctx context.Context, id int64, update StatusUpdate) (Transaction, error) {
	set := ""
	args := []any{}
	appendFlag := func(col string, v *bool) {
		if v == nil {
			return
		}
		args = append(args, *v)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}
	appendFlag("is_released", update.IsReleased)
	appendFlag("is_paid", update.IsPaid)
	appendFlag("is_or_sent", update.IsORSent)
	if set == "" {
		return s.Get(ctx, id)
	}
	args = append(args, id)
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`UPDATE transactions SET %s WHERE id = $%d`, set, len(args)), args...)
	if err != nil {
		return Transaction{}, err
	}
	if tag.RowsAffected() == 0 {
		return Transaction{}, shared.ErrNotFound
	}
	return s.Get(ctx, id)
}

// CancelPending reverses an OUTGOING transaction's batch consumption and
// deletes it.
func (s *PGStore) CancelPending(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT batch_id, quantity FROM transaction_lines WHERE transaction_id = $1 AND batch_id IS NOT NULL`, id)
		if err != nil {
			return err
		}
		type restore struct {
			batchID int64
			qty     int64
		}
		var restores []restore
		for rows.Next() {
			var r restore
			if err := rows.Scan(&r.batchID, &r.qty); err != nil {
				rows.Close()
				return err
			}
			restores = append(restores, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, r := range restores {
			if _, err := tx.Exec(ctx,
				`UPDATE item_batches SET remaining_quantity = remaining_quantity + $1 WHERE id = $2`,
				r.qty, r.batchID); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM transaction_lines WHERE transaction_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (s *PGStore) BrandVAT(ctx context.Context, brandID int64) (string, error) {
	var vat string
	err := s.pool.QueryRow(ctx, `SELECT vat_classification FROM brands WHERE id = $1`, brandID).Scan(&vat)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return vat, nil
}

var _ Store = (*PGStore)(nil)
