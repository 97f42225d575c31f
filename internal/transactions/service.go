package transactions

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/customers"
	"github.com/lumina-dist/lumina/internal/shared"
	"github.com/lumina-dist/lumina/internal/transactions/draft"
)

var (
	// ErrInsufficientStock means a batch cannot cover the requested
	// quantity.
	ErrInsufficientStock = errors.New("transactions: insufficient batch stock")
	// ErrNotAllowed means the caller's role cannot perform the operation.
	ErrNotAllowed = errors.New("transactions: operation not allowed for role")
	// ErrNotOutgoing means completion flags were patched on a non-OUTGOING
	// transaction.
	ErrNotOutgoing = errors.New("transactions: status flags apply to OUTGOING only")
	// ErrCancelNotAllowed means the transaction is not cancellable by the
	// caller.
	ErrCancelNotAllowed = errors.New("transactions: cancellation not allowed")
	// ErrBrandRequired means an INCOMING payload named no brand.
	ErrBrandRequired = errors.New("transactions: brand required for receive")
	// ErrCustomerRequired means an OUTGOING payload named no customer.
	ErrCustomerRequired = errors.New("transactions: customer required for sell")
	// ErrZeroAdjustment rejects adjustments with no quantity.
	ErrZeroAdjustment = errors.New("transactions: adjustment quantity cannot be zero")
	// ErrUnknownTier means a line edit named a tier outside the closed set.
	ErrUnknownTier = errors.New("transactions: unknown pricing tier")
)

// CustomerResolver resolves a free-text counterparty name to a customer
// record, creating one when needed.
type CustomerResolver interface {
	GetOrCreateByName(ctx context.Context, companyName string) (customers.Customer, error)
}

// Service wraps transaction business rules.
type Service struct {
	logger    *slog.Logger
	store     Store
	customers CustomerResolver
	audit     *shared.AuditLogger
	idem      *shared.IdempotencyStore
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, store Store, resolver CustomerResolver, audit *shared.AuditLogger, idem *shared.IdempotencyStore) *Service {
	return &Service{logger: logger, store: store, customers: resolver, audit: audit, idem: idem}
}

// Create turns a validated draft payload into a ledger entry. Receive books
// one new batch per line; Sell decrements the selected batches after
// re-checking remaining stock inside the transaction. An idempotency key,
// when supplied, makes retries safe.
func (s *Service) Create(ctx context.Context, caller *authz.User, payload draft.Payload, idempotencyKey string) (Transaction, error) {
	if caller == nil {
		return Transaction{}, ErrNotAllowed
	}

	var t Transaction
	var effects []LineEffect
	var err error
	switch payload.Type {
	case draft.TypeReceive:
		if !authz.CanManageTransactions(caller) {
			return Transaction{}, ErrNotAllowed
		}
		t, effects, err = s.buildIncoming(ctx, caller, payload)
	case draft.TypeSell:
		if !authz.CanReserveGoods(caller) {
			return Transaction{}, ErrNotAllowed
		}
		t, effects, err = s.buildOutgoing(ctx, caller, payload)
	default:
		return Transaction{}, ErrNotAllowed
	}
	if err != nil {
		return Transaction{}, err
	}

	if idempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, "transactions"); err != nil {
			return Transaction{}, err
		}
	}

	if err := s.store.Create(ctx, &t, effects); err != nil {
		if idempotencyKey != "" {
			if delErr := s.idem.Delete(ctx, idempotencyKey); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return Transaction{}, err
	}

	s.recordAudit(ctx, caller, "transaction.create", t)
	return t, nil
}

func (s *Service) buildIncoming(ctx context.Context, caller *authz.User, payload draft.Payload) (Transaction, []LineEffect, error) {
	if payload.BrandID == 0 {
		return Transaction{}, nil, ErrBrandRequired
	}
	vat, err := s.store.BrandVAT(ctx, payload.BrandID)
	if err != nil {
		return Transaction{}, nil, err
	}
	vatType := VATTypeVAT
	switch vat {
	case "NON_VAT":
		vatType = VATTypeNonVAT
	case "BOTH":
		vatType = VATTypeMixed
	}

	t := Transaction{
		ReferenceNumber: payload.ReferenceNumber,
		Type:            TypeIncoming,
		BrandID:         payload.BrandID,
		AccountID:       caller.ID,
		VATType:         vatType,
		IsReleased:      true,
		IsPaid:          true,
		IsORSent:        true,
		TransactedAt:    time.Now().UTC(),
		DueDate:         payload.DueDate,
		Notes:           payload.Notes,
	}

	total := decimal.Zero
	effects := make([]LineEffect, 0, len(payload.Lines))
	for _, pl := range payload.Lines {
		lineTotal := pl.CostPrice.Mul(decimal.NewFromInt(pl.Quantity))
		total = total.Add(lineTotal)
		effects = append(effects, LineEffect{
			Line: Line{
				ItemID:     pl.ItemID,
				Quantity:   pl.Quantity,
				UnitPrice:  pl.CostPrice,
				TotalPrice: lineTotal,
			},
			Kind:        EffectNewBatch,
			ItemID:      pl.ItemID,
			BatchNumber: pl.BatchNumber,
			CostPrice:   pl.CostPrice,
			ExpiryDate:  pl.ExpiryDate,
			Quantity:    pl.Quantity,
		})
	}
	t.TotalAmount = total
	t.VATAmount = vatAmount(total, vatType)
	return t, effects, nil
}

func (s *Service) buildOutgoing(ctx context.Context, caller *authz.User, payload draft.Payload) (Transaction, []LineEffect, error) {
	if payload.CustomerName == "" {
		return Transaction{}, nil, ErrCustomerRequired
	}
	customer, err := s.customers.GetOrCreateByName(ctx, payload.CustomerName)
	if err != nil {
		return Transaction{}, nil, err
	}

	t := Transaction{
		ReferenceNumber: payload.ReferenceNumber,
		Type:            TypeOutgoing,
		CustomerID:      customer.ID,
		CustomerName:    customer.CompanyName,
		AccountID:       caller.ID,
		VATType:         VATTypeVAT,
		TransactedAt:    time.Now().UTC(),
		DueDate:         payload.DueDate,
		Notes:           payload.Notes,
	}

	total := decimal.Zero
	effects := make([]LineEffect, 0, len(payload.Lines))
	for _, pl := range payload.Lines {
		lineTotal := pl.UnitPrice.Mul(decimal.NewFromInt(pl.Quantity))
		total = total.Add(lineTotal)
		effect := LineEffect{
			Line: Line{
				ItemID:      pl.ItemID,
				Quantity:    pl.Quantity,
				UnitPrice:   pl.UnitPrice,
				TotalPrice:  lineTotal,
				PricingTier: string(pl.PricingTier),
			},
			Kind:     EffectConsume,
			ItemID:   pl.ItemID,
			BatchID:  pl.BatchID,
			Quantity: pl.Quantity,
		}
		if pl.BatchID == 0 {
			// Sold with no open batch: record the line without consuming.
			effect.Kind = EffectNone
		}
		effects = append(effects, effect)
	}
	t.TotalAmount = total
	t.VATAmount = vatAmount(total, VATTypeVAT)
	return t, effects, nil
}

// AdjustmentInput describes a manual stock correction. Quantity is signed:
// positive adds a batch, negative consumes from the newest batches first.
type AdjustmentInput struct {
	ItemID    int64
	Quantity  int64
	CostPrice decimal.Decimal
	Notes     string
}

// Adjust books an ADJUSTMENT transaction with its ledger effect.
func (s *Service) Adjust(ctx context.Context, caller *authz.User, input AdjustmentInput) (Transaction, error) {
	if !authz.CanManageItems(caller) {
		return Transaction{}, ErrNotAllowed
	}
	if input.Quantity == 0 {
		return Transaction{}, ErrZeroAdjustment
	}

	t := Transaction{
		Type:         TypeAdjustment,
		AccountID:    caller.ID,
		VATType:      VATTypeNonVAT,
		IsReleased:   true,
		IsPaid:       true,
		IsORSent:     true,
		TransactedAt: time.Now().UTC(),
		Notes:        input.Notes,
	}

	magnitude := input.Quantity
	if magnitude < 0 {
		magnitude = -magnitude
	}
	line := Line{
		ItemID:     input.ItemID,
		Quantity:   magnitude,
		UnitPrice:  input.CostPrice,
		TotalPrice: input.CostPrice.Mul(decimal.NewFromInt(magnitude)),
	}

	effect := LineEffect{Line: line, ItemID: input.ItemID, Quantity: magnitude}
	if input.Quantity > 0 {
		effect.Kind = EffectNewBatch
		effect.CostPrice = input.CostPrice
	} else {
		effect.Kind = EffectConsumeLIFO
	}

	t.TotalAmount = line.TotalPrice
	if err := s.store.Create(ctx, &t, []LineEffect{effect}); err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, caller, "transaction.adjust", t)
	return t, nil
}

// List returns transactions matching the filters with the pre-pagination
// count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultPageSize
	}
	return s.store.List(ctx, filters)
}

// Get fetches one transaction with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	if id <= 0 {
		return Transaction{}, shared.ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// NextReference previews the next reference number for the current year.
func (s *Service) NextReference(ctx context.Context) (string, error) {
	return s.store.NextReference(ctx, time.Now().UTC().Year())
}

// UpdateStatus patches completion flags on an OUTGOING transaction.
func (s *Service) UpdateStatus(ctx context.Context, caller *authz.User, id int64, update StatusUpdate) (Transaction, error) {
	if !authz.CanApproveTransactions(caller) {
		return Transaction{}, ErrNotAllowed
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if existing.Type != TypeOutgoing {
		return Transaction{}, ErrNotOutgoing
	}
	updated, err := s.store.UpdateFlags(ctx, id, update)
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, caller, "transaction.update_status", updated)
	return updated, nil
}

// Cancel voids a pending OUTGOING transaction, restoring the batch stock it
// consumed. Managers may cancel any pending sale; Sales only their own.
func (s *Service) Cancel(ctx context.Context, caller *authz.User, id int64) error {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Type != TypeOutgoing || existing.Completed() {
		return ErrCancelNotAllowed
	}
	view := authz.TransactionView{AccountID: existing.AccountID, Pending: !existing.Completed()}
	if !authz.CanCancelOwnPendingTransaction(caller, view) {
		return ErrCancelNotAllowed
	}
	if err := s.store.CancelPending(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, caller, "transaction.cancel", existing)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, caller *authz.User, action string, t Transaction) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  caller.ID,
		Action:   action,
		Entity:   "transaction",
		EntityID: strconv.FormatInt(t.ID, 10),
		Meta: map[string]any{
			"reference_number": t.ReferenceNumber,
			"type":             t.Type,
			"total_amount":     t.TotalAmount.String(),
		},
		At: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("audit transaction", slog.Any("error", err))
	}
}

func vatAmount(total decimal.Decimal, vatType string) decimal.Decimal {
	if vatType == VATTypeNonVAT {
		return decimal.Zero
	}
	return total.Mul(VATRate).Round(2)
}
