package draft

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/items"
	"github.com/lumina-dist/lumina/internal/pricing"
)

func itemsVerdict(valid bool, reason string) items.BatchVerdict {
	return items.BatchVerdict{Valid: valid, Reason: reason}
}

func manager() *authz.User {
	return &authz.User{ID: 1, Role: authz.RoleInventoryManager}
}

func salesRD() *authz.User {
	return &authz.User{ID: 2, Role: authz.RoleSales, CostTier: "RD"}
}

func widget() ItemInfo {
	return ItemInfo{
		ID:   10,
		Name: "Widget",
		TierPrices: map[pricing.Tier]decimal.Decimal{
			pricing.TierDD:  decimal.NewFromInt(65),
			pricing.TierSRP: decimal.NewFromInt(100),
		},
	}
}

func TestAllowedTypesByRole(t *testing.T) {
	require.ElementsMatch(t, []Type{TypeReceive, TypeSell}, AllowedTypes(manager()))

	// Sales only sells.
	require.Equal(t, []Type{TypeSell}, AllowedTypes(salesRD()))

	require.Empty(t, AllowedTypes(nil))

	_, err := New(TypeReceive, salesRD())
	require.ErrorIs(t, err, ErrTypeNotAllowed)

	_, err = New(TypeSell, salesRD())
	require.NoError(t, err)
}

func TestDuplicateItemRejected(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))

	_, _, err = d.AddItem(widget())
	require.NoError(t, err)

	_, _, err = d.AddItem(widget())
	require.ErrorIs(t, err, ErrDuplicateItem)
	require.Len(t, d.Lines, 1)
}

func TestReceiveBatchCandidatesMonotonic(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))

	info := widget()
	info.UsedBatchSeq = 2 // B-001 and B-002 already on the ledger

	line, _, err := d.AddItem(info)
	require.NoError(t, err)
	require.Equal(t, "B-003", line.BatchNumber)
	require.Equal(t, StateBatchPending, line.State)

	// Remove and re-add: the candidate moves forward, never back.
	require.NoError(t, d.RemoveLine(0))
	line, _, err = d.AddItem(info)
	require.NoError(t, err)
	require.Equal(t, "B-004", line.BatchNumber)
}

func TestReceiveBatchSequenceExhausted(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))

	info := widget()
	info.UsedBatchSeq = items.MaxBatchSeq

	line, _, err := d.AddItem(info)
	require.NoError(t, err)
	require.Equal(t, StateBatchInvalid, line.State)
	require.Empty(t, line.BatchNumber)
	require.Contains(t, line.BatchError, "exhausted")

	// The line keeps blocking submission even once the rest is filled in.
	require.NoError(t, d.SetQuantity(0, 1))
	require.NoError(t, d.SetCostPrice(0, decimal.NewFromInt(10)))
	require.NotEmpty(t, d.ValidateForm())
}

func TestBatchNumberEditVerdicts(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))
	_, _, err = d.AddItem(widget())
	require.NoError(t, err)

	// Bad format fails immediately, no server round trip.
	require.NoError(t, d.SetBatchNumber(0, "BX-1"))
	require.Equal(t, StateBatchInvalid, d.Lines[0].State)

	// Good format goes back to pending until the verdict lands.
	require.NoError(t, d.SetBatchNumber(0, "B-010"))
	require.Equal(t, StateBatchPending, d.Lines[0].State)
	require.False(t, d.Lines[0].BatchVerified)

	d.ApplyBatchVerdict(0, "B-010", itemsVerdict(true, ""))
	require.Equal(t, StateBatchValidated, d.Lines[0].State)
	require.True(t, d.Lines[0].BatchVerified)

	// A rejection flips it back.
	require.NoError(t, d.SetBatchNumber(0, "B-011"))
	d.ApplyBatchVerdict(0, "B-011", itemsVerdict(false, "batch number already used for this item"))
	require.Equal(t, StateBatchInvalid, d.Lines[0].State)
	require.Contains(t, d.Lines[0].BatchError, "already used")
}

func TestStaleBatchVerdictDropped(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))
	_, _, err = d.AddItem(widget())
	require.NoError(t, err)

	require.NoError(t, d.SetBatchNumber(0, "B-010"))
	require.NoError(t, d.SetBatchNumber(0, "B-011"))

	// Verdict for the superseded number must not touch the line.
	d.ApplyBatchVerdict(0, "B-010", itemsVerdict(true, ""))
	require.Equal(t, StateBatchPending, d.Lines[0].State)
	require.False(t, d.Lines[0].BatchVerified)

	d.ApplyBatchVerdict(0, "B-011", itemsVerdict(true, ""))
	require.Equal(t, StateBatchValidated, d.Lines[0].State)
}

func TestSellBatchFetchSequencing(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))

	_, seq1, err := d.AddItem(widget())
	require.NoError(t, err)
	require.Equal(t, StateBatchesLoading, d.Lines[0].State)

	// User refreshes before the first fetch returns.
	seq2, err := d.RefreshBatches(0)
	require.NoError(t, err)
	require.NotEqual(t, seq1, seq2)

	// The stale response arrives and is dropped.
	d.DeliverBatches(0, seq1, 10, []BatchOption{{BatchID: 1, BatchNumber: "B-001", RemainingQuantity: 5}})
	require.Equal(t, StateBatchesLoading, d.Lines[0].State)
	require.Nil(t, d.Lines[0].SelectedBatch)

	// The current response lands and auto-selects the first batch.
	d.DeliverBatches(0, seq2, 10, []BatchOption{
		{BatchID: 2, BatchNumber: "B-002", RemainingQuantity: 8},
		{BatchID: 3, BatchNumber: "B-003", RemainingQuantity: 4},
	})
	require.Equal(t, StateBatchSelected, d.Lines[0].State)
	require.Equal(t, int64(2), d.Lines[0].SelectedBatch.BatchID)
}

func TestSellBatchesEmptyStillSubmits(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))

	_, seq, err := d.AddItem(widget())
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 10, nil)
	require.Equal(t, StateBatchesEmpty, d.Lines[0].State)

	// Tier and quantity are still required.
	require.NotEmpty(t, d.ValidateForm())

	require.NoError(t, d.SelectTier(0, pricing.TierSRP))
	require.NoError(t, d.SetQuantity(0, 5))
	require.Empty(t, d.ValidateForm())

	// The payload carries the line with no batch attached.
	payload, errs, err := d.BuildPayload()
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Len(t, payload.Lines, 1)
	require.Zero(t, payload.Lines[0].BatchID)
	require.Equal(t, int64(5), payload.Lines[0].Quantity)
}

func TestSelectBatchMustBeCandidate(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))
	_, seq, err := d.AddItem(widget())
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 10, []BatchOption{
		{BatchID: 2, BatchNumber: "B-002", RemainingQuantity: 8},
		{BatchID: 3, BatchNumber: "B-003", RemainingQuantity: 4},
	})

	require.ErrorIs(t, d.SelectBatch(0, 99), ErrBatchNotCandidate)
	require.NoError(t, d.SelectBatch(0, 3))
	require.Equal(t, int64(3), d.Lines[0].SelectedBatch.BatchID)
}

func TestQuantityBounds(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))
	_, seq, err := d.AddItem(widget())
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 10, []BatchOption{{BatchID: 2, BatchNumber: "B-002", RemainingQuantity: 8}})

	require.ErrorIs(t, d.SetQuantity(0, 0), ErrQuantityRange)
	require.ErrorIs(t, d.SetQuantity(0, -4), ErrQuantityRange)
	require.ErrorIs(t, d.SetQuantity(0, MaxQuantity+1), ErrQuantityRange)
	require.ErrorIs(t, d.SetQuantity(0, 9), ErrQuantityExceedsBatch)
	require.NoError(t, d.SetQuantity(0, 8))
}

func TestTierSelectionAuthorization(t *testing.T) {
	// Caller bought in at RS: only SUB-RS and SRP are sellable.
	caller := &authz.User{ID: 3, Role: authz.RoleSales, CostTier: "RS"}
	d, err := New(TypeSell, caller)
	require.NoError(t, err)

	_, seq, err := d.AddItem(widget())
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 10, []BatchOption{{BatchID: 2, BatchNumber: "B-002", RemainingQuantity: 8}})

	// No counterparty yet: tier selection refuses outright.
	require.ErrorIs(t, d.SelectTier(0, pricing.TierSRP), ErrCounterpartyMissing)

	require.NoError(t, d.SetCustomer("Acme Store"))

	// DD is below the caller's cost tier: rejected, no price computed.
	require.ErrorIs(t, d.SelectTier(0, pricing.TierDD), ErrTierNotAuthorized)
	require.True(t, d.Lines[0].UnitPrice.IsZero())

	require.NoError(t, d.SelectTier(0, pricing.TierSRP))
	require.True(t, d.Lines[0].UnitPrice.Equal(decimal.NewFromInt(100)))
}

func TestTierFallbackPricing(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))

	// No price table on the item: the disclosed default map applies.
	info := ItemInfo{ID: 11, Name: "Unpriced"}
	_, seq, err := d.AddItem(info)
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 11, []BatchOption{{BatchID: 5, BatchNumber: "B-001", RemainingQuantity: 3}})

	require.NoError(t, d.SelectTier(0, pricing.TierRS))
	require.True(t, d.Lines[0].UnitPrice.Equal(pricing.DefaultTierPrices[pricing.TierRS]))

	require.NoError(t, d.SetQuantity(0, 3))
	require.True(t, d.Lines[0].LineTotal().Equal(pricing.DefaultTierPrices[pricing.TierRS].Mul(decimal.NewFromInt(3))))
}

func TestValidateFormReceive(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))
	_, _, err = d.AddItem(widget())
	require.NoError(t, err)

	// Unverified batch, zero cost, zero quantity: three problems.
	errs := d.ValidateForm()
	require.Len(t, errs, 3)

	require.NoError(t, d.SetQuantity(0, 50))
	require.NoError(t, d.SetCostPrice(0, decimal.NewFromInt(40)))
	d.ApplyBatchVerdict(0, d.Lines[0].BatchNumber, itemsVerdict(true, ""))
	require.Empty(t, d.ValidateForm())
}

func TestValidateFormAllOrNothing(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))

	_, _, err = d.AddItem(widget())
	require.NoError(t, err)
	other := widget()
	other.ID = 11
	other.Name = "Gadget"
	_, _, err = d.AddItem(other)
	require.NoError(t, err)

	// First line complete, second not: submission still blocked and the
	// draft untouched.
	require.NoError(t, d.SetQuantity(0, 5))
	require.NoError(t, d.SetCostPrice(0, decimal.NewFromInt(40)))
	d.ApplyBatchVerdict(0, d.Lines[0].BatchNumber, itemsVerdict(true, ""))

	payload, errs, err := d.BuildPayload()
	require.ErrorIs(t, err, ErrNotSubmittable)
	require.NotEmpty(t, errs)
	require.Empty(t, payload.Lines)
	require.Len(t, d.Lines, 2)
}

func TestBuildPayloadSell(t *testing.T) {
	d, err := New(TypeSell, salesRD())
	require.NoError(t, err)
	require.NoError(t, d.SetCustomer("Acme Store"))
	_, seq, err := d.AddItem(widget())
	require.NoError(t, err)
	d.DeliverBatches(0, seq, 10, []BatchOption{{BatchID: 2, BatchNumber: "B-002", RemainingQuantity: 8}})
	require.NoError(t, d.SelectTier(0, pricing.TierSRP))
	require.NoError(t, d.SetQuantity(0, 5))

	payload, errs, err := d.BuildPayload()
	require.NoError(t, err)
	require.Empty(t, errs)
	require.Equal(t, TypeSell, payload.Type)
	require.Equal(t, "Acme Store", payload.CustomerName)
	require.Len(t, payload.Lines, 1)
	require.Equal(t, int64(2), payload.Lines[0].BatchID)
	require.Equal(t, int64(5), payload.Lines[0].Quantity)
	require.Equal(t, pricing.TierSRP, payload.Lines[0].PricingTier)
}

func TestBrandLockedOnceLinesExist(t *testing.T) {
	d, err := New(TypeReceive, manager())
	require.NoError(t, err)
	require.NoError(t, d.SetBrand(1))
	_, _, err = d.AddItem(widget())
	require.NoError(t, err)

	require.ErrorIs(t, d.SetBrand(2), ErrCounterpartyLocked)
	require.NoError(t, d.SetBrand(1))
}
