package transactions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/customers"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/shared"
	"github.com/lumina-dist/lumina/internal/transactions/draft"

	_ "github.com/lumina-dist/lumina/testing"
)

type memoryBatch struct {
	id        int64
	itemID    int64
	number    string
	remaining int64
}

type memoryStore struct {
	nextID      int64
	nextBatchID int64
	refSeq      map[int]int
	batchSeq    map[int64]int
	batches     map[int64]*memoryBatch
	txs         map[int64]Transaction
	consumed    map[int64][]consumption // transaction id -> what it took
	brandVAT    map[int64]string
}

type consumption struct {
	batchID  int64
	quantity int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:      1,
		nextBatchID: 1,
		refSeq:      map[int]int{},
		batchSeq:    map[int64]int{},
		batches:     map[int64]*memoryBatch{},
		txs:         map[int64]Transaction{},
		consumed:    map[int64][]consumption{},
		brandVAT:    map[int64]string{},
	}
}

func (m *memoryStore) addBatch(itemID int64, number string, remaining int64) *memoryBatch {
	b := &memoryBatch{id: m.nextBatchID, itemID: itemID, number: number, remaining: remaining}
	m.nextBatchID++
	m.batches[b.id] = b
	seq := 0
	fmt.Sscanf(number, "B-%03d", &seq)
	if seq > m.batchSeq[itemID] {
		m.batchSeq[itemID] = seq
	}
	return b
}

func (m *memoryStore) itemBatchesDesc(itemID int64) []*memoryBatch {
	var result []*memoryBatch
	for _, b := range m.batches {
		if b.itemID == itemID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].number > result[j].number })
	return result
}

func (m *memoryStore) Create(_ context.Context, t *Transaction, effects []LineEffect) error {
	if t.ReferenceNumber == "" {
		year := t.TransactedAt.Year()
		m.refSeq[year]++
		t.ReferenceNumber = FormatReference(year, m.refSeq[year])
	}
	t.ID = m.nextID
	m.nextID++

	for i := range effects {
		effect := &effects[i]
		switch effect.Kind {
		case EffectNewBatch:
			number := effect.BatchNumber
			if number == "" {
				m.batchSeq[effect.ItemID]++
				number = items.FormatBatchNumber(m.batchSeq[effect.ItemID])
			}
			b := m.addBatch(effect.ItemID, number, effect.Quantity)
			effect.Line.BatchID = b.id
			effect.Line.BatchNumber = number
		case EffectConsume:
			b, ok := m.batches[effect.BatchID]
			if !ok || b.remaining < effect.Quantity {
				return fmt.Errorf("%w: batch %d", ErrInsufficientStock, effect.BatchID)
			}
			b.remaining -= effect.Quantity
			m.consumed[t.ID] = append(m.consumed[t.ID], consumption{batchID: b.id, quantity: effect.Quantity})
			effect.Line.BatchID = b.id
			effect.Line.BatchNumber = b.number
		case EffectConsumeLIFO:
			remaining := effect.Quantity
			for _, b := range m.itemBatchesDesc(effect.ItemID) {
				if remaining == 0 {
					break
				}
				take := remaining
				if take > b.remaining {
					take = b.remaining
				}
				b.remaining -= take
				remaining -= take
				m.consumed[t.ID] = append(m.consumed[t.ID], consumption{batchID: b.id, quantity: take})
			}
			if remaining > 0 {
				return fmt.Errorf("%w: item %d", ErrInsufficientStock, effect.ItemID)
			}
		}
		t.Lines = append(t.Lines, effect.Line)
	}
	m.txs[t.ID] = *t
	return nil
}

func (m *memoryStore) List(_ context.Context, filters ListFilters) ([]Transaction, int, error) {
	var result []Transaction
	for _, t := range m.txs {
		if filters.Type != "" && t.Type != filters.Type {
			continue
		}
		if filters.Status == "Pending" && t.Completed() {
			continue
		}
		if filters.Status == "Completed" && !t.Completed() {
			continue
		}
		if filters.AccountID != 0 && t.AccountID != filters.AccountID {
			continue
		}
		result = append(result, t)
	}
	return result, len(result), nil
}

func (m *memoryStore) Get(_ context.Context, id int64) (Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, shared.ErrNotFound
	}
	return t, nil
}

func (m *memoryStore) UpdateFlags(_ context.Context, id int64, update StatusUpdate) (Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, shared.ErrNotFound
	}
	if update.IsReleased != nil {
		t.IsReleased = *update.IsReleased
	}
	if update.IsPaid != nil {
		t.IsPaid = *update.IsPaid
	}
	if update.IsORSent != nil {
		t.IsORSent = *update.IsORSent
	}
	m.txs[id] = t
	return t, nil
}

func (m *memoryStore) CancelPending(_ context.Context, id int64) error {
	if _, ok := m.txs[id]; !ok {
		return shared.ErrNotFound
	}
	for _, c := range m.consumed[id] {
		if b, ok := m.batches[c.batchID]; ok {
			b.remaining += c.quantity
		}
	}
	delete(m.consumed, id)
	delete(m.txs, id)
	return nil
}

func (m *memoryStore) BrandVAT(_ context.Context, brandID int64) (string, error) {
	vat, ok := m.brandVAT[brandID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return vat, nil
}

func (m *memoryStore) NextReference(_ context.Context, year int) (string, error) {
	return FormatReference(year, m.refSeq[year]+1), nil
}

type stubResolver struct {
	nextID int64
	byName map[string]customers.Customer
}

func (s *stubResolver) GetOrCreateByName(_ context.Context, name string) (customers.Customer, error) {
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	if s.byName == nil {
		s.byName = map[string]customers.Customer{}
	}
	s.nextID++
	c := customers.Customer{ID: s.nextID, CompanyName: name, CustomerType: customers.TypeDirectCustomer}
	s.byName[name] = c
	return c, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *memoryStore) (*Service, *stubResolver) {
	resolver := &stubResolver{}
	return NewService(testLogger(), store, resolver, nil, nil), resolver
}

func manager() *authz.User {
	return &authz.User{ID: 1, Role: authz.RoleInventoryManager}
}

func salesRep() *authz.User {
	return &authz.User{ID: 7, Role: authz.RoleSales, CostTier: string(pricing.TierRD)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func receivePayload(brandID int64) draft.Payload {
	return draft.Payload{
		Type:    draft.TypeReceive,
		BrandID: brandID,
		Lines: []draft.PayloadLine{
			{ItemID: 10, Quantity: 20, BatchNumber: "B-001", CostPrice: dec("50")},
			{ItemID: 11, Quantity: 5, BatchNumber: "B-001", CostPrice: dec("30")},
		},
	}
}

func TestCreateIncomingBooksBatches(t *testing.T) {
	store := newMemoryStore()
	store.brandVAT[3] = "VAT"
	svc, _ := newTestService(store)

	tx, err := svc.Create(context.Background(), manager(), receivePayload(3), "")
	require.NoError(t, err)

	require.Equal(t, TypeIncoming, tx.Type)
	require.Equal(t, FormatReference(time.Now().UTC().Year(), 1), tx.ReferenceNumber)
	require.True(t, tx.Completed())
	require.Len(t, tx.Lines, 2)
	require.Len(t, store.batches, 2)

	// 20*50 + 5*30 = 1150, VAT 12% = 138
	require.True(t, tx.TotalAmount.Equal(dec("1150")))
	require.True(t, tx.VATAmount.Equal(dec("138")))
}

func TestCreateIncomingVATFromBrand(t *testing.T) {
	store := newMemoryStore()
	store.brandVAT[3] = "NON_VAT"
	store.brandVAT[4] = "BOTH"
	svc, _ := newTestService(store)

	tx, err := svc.Create(context.Background(), manager(), receivePayload(3), "")
	require.NoError(t, err)
	require.Equal(t, VATTypeNonVAT, tx.VATType)
	require.True(t, tx.VATAmount.IsZero())

	tx, err = svc.Create(context.Background(), manager(), receivePayload(4), "")
	require.NoError(t, err)
	require.Equal(t, VATTypeMixed, tx.VATType)
	require.False(t, tx.VATAmount.IsZero())
}

func TestCreateIncomingRequiresRole(t *testing.T) {
	store := newMemoryStore()
	store.brandVAT[3] = "VAT"
	svc, _ := newTestService(store)

	_, err := svc.Create(context.Background(), salesRep(), receivePayload(3), "")
	require.ErrorIs(t, err, ErrNotAllowed)

	_, err = svc.Create(context.Background(), nil, receivePayload(3), "")
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestCreateOutgoingConsumesBatch(t *testing.T) {
	store := newMemoryStore()
	batch := store.addBatch(10, "B-001", 12)
	svc, resolver := newTestService(store)

	payload := draft.Payload{
		Type:         draft.TypeSell,
		CustomerName: "Acme Store",
		Lines: []draft.PayloadLine{
			{ItemID: 10, Quantity: 5, BatchID: batch.id, UnitPrice: dec("100"), PricingTier: pricing.TierSRP},
		},
	}
	tx, err := svc.Create(context.Background(), salesRep(), payload, "")
	require.NoError(t, err)

	require.Equal(t, TypeOutgoing, tx.Type)
	require.False(t, tx.Completed())
	require.Equal(t, int64(7), batch.remaining)
	require.True(t, tx.TotalAmount.Equal(dec("500")))
	require.True(t, tx.VATAmount.Equal(dec("60")))
	require.Equal(t, "Acme Store", tx.CustomerName)
	require.Len(t, resolver.byName, 1)

	// Same name resolves to the same customer record.
	tx2, err := svc.Create(context.Background(), salesRep(), payload, "")
	require.NoError(t, err)
	require.Equal(t, tx.CustomerID, tx2.CustomerID)
	require.Len(t, resolver.byName, 1)
	require.Equal(t, int64(2), batch.remaining)
}

func TestCreateOutgoingWithoutBatch(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	// An item with no open batches still sells; no ledger consumption.
	tx, err := svc.Create(context.Background(), salesRep(), draft.Payload{
		Type:         draft.TypeSell,
		CustomerName: "Acme Store",
		Lines: []draft.PayloadLine{
			{ItemID: 10, Quantity: 5, UnitPrice: dec("100"), PricingTier: pricing.TierSRP},
		},
	}, "")
	require.NoError(t, err)
	require.Equal(t, TypeOutgoing, tx.Type)
	require.True(t, tx.TotalAmount.Equal(dec("500")))
	require.Len(t, tx.Lines, 1)
	require.Zero(t, tx.Lines[0].BatchID)
	require.Empty(t, store.consumed[tx.ID])
}

func TestCreateOutgoingInsufficientStock(t *testing.T) {
	store := newMemoryStore()
	batch := store.addBatch(10, "B-001", 3)
	svc, _ := newTestService(store)

	payload := draft.Payload{
		Type:         draft.TypeSell,
		CustomerName: "Acme Store",
		Lines: []draft.PayloadLine{
			{ItemID: 10, Quantity: 5, BatchID: batch.id, UnitPrice: dec("100"), PricingTier: pricing.TierSRP},
		},
	}
	_, err := svc.Create(context.Background(), salesRep(), payload, "")
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, int64(3), batch.remaining)
}

func TestAdjustPositiveCreatesBatch(t *testing.T) {
	store := newMemoryStore()
	store.addBatch(10, "B-002", 4)
	svc, _ := newTestService(store)

	tx, err := svc.Adjust(context.Background(), manager(), AdjustmentInput{
		ItemID: 10, Quantity: 6, CostPrice: dec("25"),
	})
	require.NoError(t, err)
	require.Equal(t, TypeAdjustment, tx.Type)
	require.Equal(t, VATTypeNonVAT, tx.VATType)
	require.True(t, tx.VATAmount.IsZero())
	require.True(t, tx.Completed())

	// New batch continues past the highest number ever used.
	require.Len(t, tx.Lines, 1)
	require.Equal(t, "B-003", tx.Lines[0].BatchNumber)
}

func TestAdjustNegativeConsumesNewestFirst(t *testing.T) {
	store := newMemoryStore()
	older := store.addBatch(10, "B-001", 10)
	newer := store.addBatch(10, "B-002", 4)
	svc, _ := newTestService(store)

	_, err := svc.Adjust(context.Background(), manager(), AdjustmentInput{ItemID: 10, Quantity: -6})
	require.NoError(t, err)
	require.Equal(t, int64(0), newer.remaining)
	require.Equal(t, int64(8), older.remaining)

	_, err = svc.Adjust(context.Background(), manager(), AdjustmentInput{ItemID: 10, Quantity: -20})
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestAdjustValidation(t *testing.T) {
	svc, _ := newTestService(newMemoryStore())

	_, err := svc.Adjust(context.Background(), manager(), AdjustmentInput{ItemID: 10})
	require.ErrorIs(t, err, ErrZeroAdjustment)

	_, err = svc.Adjust(context.Background(), salesRep(), AdjustmentInput{ItemID: 10, Quantity: 5})
	require.ErrorIs(t, err, ErrNotAllowed)
}

func sellOne(t *testing.T, svc *Service, store *memoryStore, caller *authz.User) Transaction {
	t.Helper()
	batch := store.addBatch(10, items.FormatBatchNumber(store.batchSeq[10]+1), 50)
	tx, err := svc.Create(context.Background(), caller, draft.Payload{
		Type:         draft.TypeSell,
		CustomerName: "Acme Store",
		Lines: []draft.PayloadLine{
			{ItemID: 10, Quantity: 10, BatchID: batch.id, UnitPrice: dec("100"), PricingTier: pricing.TierSRP},
		},
	}, "")
	require.NoError(t, err)
	return tx
}

func TestUpdateStatusOutgoingOnly(t *testing.T) {
	store := newMemoryStore()
	store.brandVAT[3] = "VAT"
	svc, _ := newTestService(store)

	incoming, err := svc.Create(context.Background(), manager(), receivePayload(3), "")
	require.NoError(t, err)
	released := true
	_, err = svc.UpdateStatus(context.Background(), manager(), incoming.ID, StatusUpdate{IsReleased: &released})
	require.ErrorIs(t, err, ErrNotOutgoing)

	outgoing := sellOne(t, svc, store, manager())
	paid := true
	orSent := true
	updated, err := svc.UpdateStatus(context.Background(), manager(), outgoing.ID, StatusUpdate{IsReleased: &released, IsPaid: &paid})
	require.NoError(t, err)
	require.False(t, updated.Completed())

	updated, err = svc.UpdateStatus(context.Background(), manager(), outgoing.ID, StatusUpdate{IsORSent: &orSent})
	require.NoError(t, err)
	require.True(t, updated.Completed())

	_, err = svc.UpdateStatus(context.Background(), salesRep(), outgoing.ID, StatusUpdate{IsReleased: &released})
	require.ErrorIs(t, err, ErrNotAllowed)
}

func TestCancelRestoresStock(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	tx := sellOne(t, svc, store, manager())
	batch := store.batches[tx.Lines[0].BatchID]
	require.Equal(t, int64(40), batch.remaining)

	require.NoError(t, svc.Cancel(context.Background(), manager(), tx.ID))
	require.Equal(t, int64(50), batch.remaining)

	_, err := svc.Get(context.Background(), tx.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelAuthorization(t *testing.T) {
	store := newMemoryStore()
	store.brandVAT[3] = "VAT"
	svc, _ := newTestService(store)

	// Sales may cancel their own pending sale but nobody else's.
	own := sellOne(t, svc, store, salesRep())
	other := sellOne(t, svc, store, manager())

	require.ErrorIs(t, svc.Cancel(context.Background(), salesRep(), other.ID), ErrCancelNotAllowed)
	require.NoError(t, svc.Cancel(context.Background(), salesRep(), own.ID))

	// Completed sales and non-OUTGOING entries are never cancellable.
	done := sellOne(t, svc, store, manager())
	flag := true
	_, err := svc.UpdateStatus(context.Background(), manager(), done.ID, StatusUpdate{IsReleased: &flag, IsPaid: &flag, IsORSent: &flag})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Cancel(context.Background(), manager(), done.ID), ErrCancelNotAllowed)

	incoming, err := svc.Create(context.Background(), manager(), receivePayload(3), "")
	require.NoError(t, err)
	require.ErrorIs(t, svc.Cancel(context.Background(), manager(), incoming.ID), ErrCancelNotAllowed)
}

func TestListFiltersStatusAndAccount(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	sellOne(t, svc, store, salesRep())
	done := sellOne(t, svc, store, manager())
	flag := true
	_, err := svc.UpdateStatus(context.Background(), manager(), done.ID, StatusUpdate{IsReleased: &flag, IsPaid: &flag, IsORSent: &flag})
	require.NoError(t, err)

	pending, count, err := svc.List(context.Background(), ListFilters{Status: "Pending"})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Len(t, pending, 1)

	own, count, err := svc.List(context.Background(), ListFilters{AccountID: 7})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, int64(7), own[0].AccountID)
}

func TestNextReferencePreview(t *testing.T) {
	store := newMemoryStore()
	svc, _ := newTestService(store)

	ref, err := svc.NextReference(context.Background())
	require.NoError(t, err)
	require.Equal(t, FormatReference(time.Now().UTC().Year(), 1), ref)

	sellOne(t, svc, store, manager())
	ref, err = svc.NextReference(context.Background())
	require.NoError(t, err)
	require.Equal(t, FormatReference(time.Now().UTC().Year(), 2), ref)
}
