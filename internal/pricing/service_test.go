package pricing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumina-dist/lumina/internal/authz"
)

type memoryRepo struct {
	brandTiers map[[2]int64]Tier
	tierPrices map[int64]map[Tier]decimal.Decimal
	discounts  map[[2]int64]decimal.Decimal
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		brandTiers: map[[2]int64]Tier{},
		tierPrices: map[int64]map[Tier]decimal.Decimal{},
		discounts:  map[[2]int64]decimal.Decimal{},
	}
}

func (m *memoryRepo) CustomerBrandTier(_ context.Context, customerID, brandID int64) (Tier, error) {
	tier, ok := m.brandTiers[[2]int64{customerID, brandID}]
	if !ok {
		return "", ErrNoBrandTier
	}
	return tier, nil
}

func (m *memoryRepo) ItemTierPrice(_ context.Context, itemID int64, tier Tier) (decimal.Decimal, error) {
	price, ok := m.tierPrices[itemID][tier]
	if !ok {
		return decimal.Zero, ErrNoTierPrice
	}
	return price, nil
}

func (m *memoryRepo) ApprovedSpecialDiscount(_ context.Context, customerID, itemID int64) (decimal.Decimal, bool, error) {
	d, ok := m.discounts[[2]int64{customerID, itemID}]
	return d, ok, nil
}

func TestAllowedSellingTiers(t *testing.T) {
	// No cost tier: everything is on the table.
	require.Len(t, AllowedSellingTiers(""), 7)
	require.Len(t, AllowedSellingTiers("   "), 7)

	// Unknown cost tier: nothing is.
	require.Empty(t, AllowedSellingTiers("WHOLESALE"))

	// RS buys at level 4, so only SUB-RS and SRP remain.
	allowed := AllowedSellingTiers("RS")
	require.ElementsMatch(t, []Tier{TierSubRS, TierSRP}, allowed)

	// SRP is the floor: nobody below it.
	require.Empty(t, AllowedSellingTiers("SRP"))

	// RD sells at every tier above its own.
	require.Len(t, AllowedSellingTiers("RD"), 6)
	require.NotContains(t, AllowedSellingTiers("RD"), TierRD)
}

func TestCanSellAt(t *testing.T) {
	require.True(t, CanSellAt("", TierRD))
	require.True(t, CanSellAt("RS", TierSRP))
	require.False(t, CanSellAt("RS", TierRS))
	require.False(t, CanSellAt("RS", TierRD))
	require.False(t, CanSellAt("bogus", TierSRP))
}

func TestResolveFromBrandAssignment(t *testing.T) {
	repo := newMemoryRepo()
	repo.brandTiers[[2]int64{1, 10}] = TierDD
	repo.tierPrices[100] = map[Tier]decimal.Decimal{TierDD: decimal.NewFromInt(65)}

	svc := NewService(repo)
	quote, err := svc.Resolve(context.Background(), QuoteInput{
		CustomerID: 1,
		ItemID:     100,
		BrandID:    10,
		Caller:     &authz.User{ID: 1, Role: authz.RoleSales, CostTier: "RD"},
	})
	require.NoError(t, err)
	require.Equal(t, TierDD, quote.Tier)
	require.True(t, quote.BasePrice.Equal(decimal.NewFromInt(65)))
	require.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(65)))
	require.False(t, quote.HasSpecialPricing)
	require.False(t, quote.TierOverride)
}

func TestResolveRejectsTierBelowCost(t *testing.T) {
	repo := newMemoryRepo()
	repo.brandTiers[[2]int64{1, 10}] = TierRD
	repo.tierPrices[100] = map[Tier]decimal.Decimal{TierRD: decimal.NewFromInt(55)}

	svc := NewService(repo)

	// Caller bought in at RS: the customer's RD assignment is off limits.
	_, err := svc.Resolve(context.Background(), QuoteInput{
		CustomerID: 1,
		ItemID:     100,
		BrandID:    10,
		Caller:     &authz.User{ID: 2, Role: authz.RoleSales, CostTier: "RS"},
	})
	require.ErrorIs(t, err, ErrTierNotAllowed)

	// Same caller asking for RD explicitly fails the same way, before any
	// price lookup.
	_, err = svc.Resolve(context.Background(), QuoteInput{
		CustomerID:    1,
		ItemID:        100,
		BrandID:       10,
		RequestedTier: "RD",
		Caller:        &authz.User{ID: 2, Role: authz.RoleSales, CostTier: "RS"},
	})
	require.ErrorIs(t, err, ErrTierNotAllowed)
}

func TestResolveRequestedTierOverride(t *testing.T) {
	repo := newMemoryRepo()
	repo.brandTiers[[2]int64{1, 10}] = TierDD
	repo.tierPrices[100] = map[Tier]decimal.Decimal{
		TierDD:  decimal.NewFromInt(65),
		TierSRP: decimal.NewFromInt(100),
	}

	svc := NewService(repo)
	quote, err := svc.Resolve(context.Background(), QuoteInput{
		CustomerID:    1,
		ItemID:        100,
		BrandID:       10,
		RequestedTier: "srp",
		Caller:        &authz.User{ID: 1, Role: authz.RoleSales, CostTier: "RD"},
	})
	require.NoError(t, err)
	require.Equal(t, TierSRP, quote.Tier)
	require.True(t, quote.TierOverride)
	require.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(100)))
}

func TestResolveSpecialDiscount(t *testing.T) {
	repo := newMemoryRepo()
	repo.brandTiers[[2]int64{1, 10}] = TierSRP
	repo.tierPrices[100] = map[Tier]decimal.Decimal{TierSRP: decimal.NewFromInt(100)}
	repo.discounts[[2]int64{1, 100}] = decimal.NewFromInt(-15)

	svc := NewService(repo)
	quote, err := svc.Resolve(context.Background(), QuoteInput{
		CustomerID: 1,
		ItemID:     100,
		BrandID:    10,
		Caller:     &authz.User{ID: 1, Role: authz.RoleAdmin},
	})
	require.NoError(t, err)
	require.True(t, quote.HasSpecialPricing)
	require.True(t, quote.SpecialDiscount.Equal(decimal.NewFromInt(-15)))
	require.True(t, quote.FinalPrice.Equal(decimal.NewFromInt(85)))
}

func TestResolveMissingAssignmentAndPrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Resolve(context.Background(), QuoteInput{CustomerID: 1, ItemID: 100, BrandID: 10})
	require.ErrorIs(t, err, ErrNoBrandTier)

	repo.brandTiers[[2]int64{1, 10}] = TierDD
	_, err = svc.Resolve(context.Background(), QuoteInput{CustomerID: 1, ItemID: 100, BrandID: 10})
	require.ErrorIs(t, err, ErrNoTierPrice)
}

func TestValidateSpecialDiscount(t *testing.T) {
	require.True(t, ValidateSpecialDiscount(decimal.NewFromInt(-5)))
	require.False(t, ValidateSpecialDiscount(decimal.Zero))
	require.False(t, ValidateSpecialDiscount(decimal.NewFromInt(5)))
}
