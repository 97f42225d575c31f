// Package pricing owns the tier table and price resolution rules for
// customer transactions.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is a pricing tier code.
type Tier string

const (
	TierRD    Tier = "RD"
	TierPD    Tier = "PD"
	TierDD    Tier = "DD"
	TierCD    Tier = "CD"
	TierRS    Tier = "RS"
	TierSubRS Tier = "SUB-RS"
	TierSRP   Tier = "SRP"
)

var tierLabels = map[Tier]string{
	TierRD:    "Regional Distributor",
	TierPD:    "Provincial Distributor",
	TierDD:    "District Distributor",
	TierCD:    "City Distributor",
	TierRS:    "Reseller",
	TierSubRS: "Sub-Reseller",
	TierSRP:   "Suggested Retail Price",
}

// tierLevel orders tiers from deepest discount (RD) to retail (SRP). An
// account buying at level N may only sell at levels strictly greater than N.
var tierLevel = map[Tier]int{
	TierRD:    0,
	TierPD:    1,
	TierDD:    2,
	TierCD:    3,
	TierRS:    4,
	TierSubRS: 5,
	TierSRP:   6,
}

// tierOrder is the presentation order used by listings.
var tierOrder = []Tier{TierSRP, TierRD, TierPD, TierDD, TierCD, TierRS, TierSubRS}

// TierInfo pairs a tier code with its display label.
type TierInfo struct {
	Value Tier   `json:"value"`
	Label string `json:"label"`
}

// Tiers returns all tiers in presentation order.
func Tiers() []TierInfo {
	infos := make([]TierInfo, 0, len(tierOrder))
	for _, t := range tierOrder {
		infos = append(infos, TierInfo{Value: t, Label: tierLabels[t]})
	}
	return infos
}

// Label returns the display label for a tier, falling back to the code.
func Label(t Tier) string {
	if label, ok := tierLabels[t]; ok {
		return label
	}
	return string(t)
}

// ParseTier validates a tier code.
func ParseTier(raw string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := tierLevel[t]
	return t, ok
}

// AllowedSellingTiers returns the tiers an account with the given cost tier
// may sell at: strictly below its own buy-in level. An empty cost tier means
// no restriction; an unrecognised one means no tiers at all.
func AllowedSellingTiers(costTier string) []Tier {
	if strings.TrimSpace(costTier) == "" {
		allowed := make([]Tier, 0, len(tierOrder))
		for _, t := range tierOrder {
			allowed = append(allowed, t)
		}
		return allowed
	}
	own, ok := ParseTier(costTier)
	if !ok {
		return nil
	}
	ownLevel := tierLevel[own]
	allowed := make([]Tier, 0, len(tierOrder))
	for _, t := range tierOrder {
		if tierLevel[t] > ownLevel {
			allowed = append(allowed, t)
		}
	}
	return allowed
}

// CanSellAt reports whether an account with the given cost tier may sell at
// the requested tier.
func CanSellAt(costTier string, tier Tier) bool {
	for _, t := range AllowedSellingTiers(costTier) {
		if t == tier {
			return true
		}
	}
	return false
}

// DefaultTierPrices is the disclosed fallback price map used when an item
// carries no tier price table yet.
var DefaultTierPrices = map[Tier]decimal.Decimal{
	TierRD:    decimal.NewFromInt(55),
	TierPD:    decimal.NewFromInt(60),
	TierDD:    decimal.NewFromInt(65),
	TierCD:    decimal.NewFromInt(70),
	TierRS:    decimal.NewFromInt(85),
	TierSubRS: decimal.NewFromInt(90),
	TierSRP:   decimal.NewFromInt(100),
}
