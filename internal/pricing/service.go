package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
)

var (
	// ErrNoBrandTier means the customer has no tier assigned for the
	// item's brand.
	ErrNoBrandTier = errors.New("pricing: no tier assigned for customer and brand")
	// ErrNoTierPrice means the item has no price at the resolved tier.
	ErrNoTierPrice = errors.New("pricing: no price for item at tier")
	// ErrTierNotAllowed means the caller's cost tier forbids selling at the
	// requested tier.
	ErrTierNotAllowed = errors.New("pricing: tier not allowed for caller")
)

// Repository exposes the pricing lookups the service needs.
type Repository interface {
	// CustomerBrandTier returns the tier assigned to a customer for a brand.
	// Returns ErrNoBrandTier when no assignment exists.
	CustomerBrandTier(ctx context.Context, customerID, brandID int64) (Tier, error)
	// ItemTierPrice returns the item's price at a tier. Returns
	// ErrNoTierPrice when the tier has no price row.
	ItemTierPrice(ctx context.Context, itemID int64, tier Tier) (decimal.Decimal, error)
	// ApprovedSpecialDiscount returns the approved special discount for a
	// customer/item pair, with ok=false when none exists.
	ApprovedSpecialDiscount(ctx context.Context, customerID, itemID int64) (decimal.Decimal, bool, error)
}

// Service resolves transaction prices.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// QuoteInput identifies the pricing question.
type QuoteInput struct {
	CustomerID    int64
	ItemID        int64
	BrandID       int64
	RequestedTier string
	Caller        *authz.User
}

// Quote is the resolved price with its derivation.
type Quote struct {
	Tier              Tier            `json:"pricing_tier"`
	BasePrice         decimal.Decimal `json:"base_price"`
	SpecialDiscount   decimal.Decimal `json:"special_discount"`
	FinalPrice        decimal.Decimal `json:"final_price"`
	HasSpecialPricing bool            `json:"has_special_pricing"`
	TierOverride      bool            `json:"tier_override"`
	AllowedTiers      []Tier          `json:"allowed_selling_tiers"`
}

// Resolve computes the price for a customer/item pair on behalf of a caller.
// The tier comes from the customer's brand assignment unless a requested
// tier overrides it; either way the tier must be inside the caller's allowed
// selling set, otherwise ErrTierNotAllowed and no price is computed.
func (s *Service) Resolve(ctx context.Context, input QuoteInput) (Quote, error) {
	costTier := ""
	if input.Caller != nil {
		costTier = input.Caller.CostTier
	}
	quote := Quote{AllowedTiers: AllowedSellingTiers(costTier)}

	tier, err := s.repo.CustomerBrandTier(ctx, input.CustomerID, input.BrandID)
	if err != nil && !errors.Is(err, ErrNoBrandTier) {
		return Quote{}, err
	}
	hasAssignment := err == nil

	if input.RequestedTier != "" {
		requested, ok := ParseTier(input.RequestedTier)
		if !ok {
			return Quote{}, fmt.Errorf("%w: unknown tier %q", ErrNoTierPrice, input.RequestedTier)
		}
		if !CanSellAt(costTier, requested) {
			return Quote{}, fmt.Errorf("%w: cost tier %q cannot sell at %q", ErrTierNotAllowed, costTier, requested)
		}
		quote.TierOverride = hasAssignment && requested != tier
		tier = requested
	} else {
		if !hasAssignment {
			return Quote{}, ErrNoBrandTier
		}
		if !CanSellAt(costTier, tier) {
			return Quote{}, fmt.Errorf("%w: cost tier %q cannot sell at customer tier %q", ErrTierNotAllowed, costTier, tier)
		}
	}
	quote.Tier = tier

	base, err := s.repo.ItemTierPrice(ctx, input.ItemID, tier)
	if err != nil {
		return Quote{}, err
	}
	quote.BasePrice = base
	quote.FinalPrice = base

	discount, ok, err := s.repo.ApprovedSpecialDiscount(ctx, input.CustomerID, input.ItemID)
	if err != nil {
		return Quote{}, err
	}
	if ok {
		quote.HasSpecialPricing = true
		quote.SpecialDiscount = discount
		quote.FinalPrice = base.Add(discount)
	}
	return quote, nil
}

// ValidateSpecialDiscount enforces the rule that special prices are always
// reductions.
func ValidateSpecialDiscount(discount decimal.Decimal) bool {
	return discount.IsNegative()
}
