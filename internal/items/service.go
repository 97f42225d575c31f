package items

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/shared"
)

var (
	// ErrDuplicate means the item name or SKU collides within the brand.
	ErrDuplicate = errors.New("items: duplicate name or SKU")
	// ErrNameRequired means the item name was empty.
	ErrNameRequired = errors.New("items: name is required")
	// ErrInvalidUOM means the unit of measure is outside the closed set.
	ErrInvalidUOM = errors.New("items: unknown unit of measure")
	// ErrInvalidTier means a tier price row names an unknown tier.
	ErrInvalidTier = errors.New("items: unknown pricing tier")
	// ErrNegativePrice rejects non-positive tier prices.
	ErrNegativePrice = errors.New("items: tier price must be positive")
	// ErrBatchSequenceExhausted means the item has used every B-NNN number.
	ErrBatchSequenceExhausted = errors.New("items: batch number sequence exhausted")
)

// MaxBatchSeq is the highest sequence the B-NNN format can carry.
const MaxBatchSeq = 999

// batchNumberPattern is the only accepted batch number shape.
var batchNumberPattern = regexp.MustCompile(`^B-\d{3}$`)

// ValidBatchNumberFormat reports whether a batch number matches B-NNN.
func ValidBatchNumberFormat(number string) bool {
	return batchNumberPattern.MatchString(number)
}

// FormatBatchNumber renders a sequence as a batch number.
func FormatBatchNumber(seq int) string {
	return fmt.Sprintf("B-%03d", seq)
}

// Service wraps item business rules.
type Service struct {
	repo Repository

	// validateGroup collapses concurrent uniqueness probes for the same
	// item/number pair into one query.
	validateGroup singleflight.Group
}

// NewService creates a new item service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns items matching the filters with the pre-pagination count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultPageSize
	}
	return s.repo.List(ctx, filters)
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// NextSKU previews the SKU the next item under a brand would get. SKUs are
// {brandID+100}-NNN with a per-brand sequence.
func (s *Service) NextSKU(ctx context.Context, brandID int64) (string, error) {
	prefix := fmt.Sprintf("%d", brandID+100)
	max, err := s.repo.MaxSKUSequence(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", prefix, max+1), nil
}

// Create validates and stores a new item, assigning the next SKU in the
// brand's sequence.
func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := normalize(&item); err != nil {
		return Item{}, err
	}
	sku, err := s.NextSKU(ctx, item.BrandID)
	if err != nil {
		return Item{}, err
	}
	item.SKU = sku
	return s.repo.Create(ctx, item)
}

// Update stores item edits. The SKU never changes after creation.
func (s *Service) Update(ctx context.Context, id int64, item Item) (Item, error) {
	if id <= 0 {
		return Item{}, shared.ErrNotFound
	}
	if err := normalize(&item); err != nil {
		return Item{}, err
	}
	if err := s.repo.Update(ctx, id, item); err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, id)
}

// TierPricing returns the item's price table.
func (s *Service) TierPricing(ctx context.Context, itemID int64) ([]TierPrice, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.TierPricing(ctx, itemID)
}

// SetTierPricing replaces or adds price rows. All rows are validated before
// any write so a bad tier rejects the whole set.
func (s *Service) SetTierPricing(ctx context.Context, itemID int64, prices []TierPrice) error {
	normalized := make([]TierPrice, 0, len(prices))
	for _, tp := range prices {
		tier, ok := pricing.ParseTier(tp.PricingTier)
		if !ok {
			return ErrInvalidTier
		}
		if !tp.Price.IsPositive() {
			return ErrNegativePrice
		}
		normalized = append(normalized, TierPrice{PricingTier: string(tier), Price: tp.Price})
	}
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return err
	}
	for _, tp := range normalized {
		if err := s.repo.UpsertTierPrice(ctx, itemID, tp); err != nil {
			return err
		}
	}
	return nil
}

// History returns the item's signed stock movements, newest first.
func (s *Service) History(ctx context.Context, itemID int64) ([]HistoryEntry, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, itemID)
}

// Batches lists an item's batches, optionally only those with stock left.
func (s *Service) Batches(ctx context.Context, itemID int64, activeOnly bool) ([]Batch, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.Batches(ctx, itemID, activeOnly)
}

// NextBatchNumber previews the next batch number for an item: one past the
// highest ever used, so numbers are never reissued even after depletion.
func (s *Service) NextBatchNumber(ctx context.Context, itemID int64) (string, error) {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return "", err
	}
	max, err := s.repo.MaxBatchSequence(ctx, itemID)
	if err != nil {
		return "", err
	}
	if max >= MaxBatchSeq {
		return "", ErrBatchSequenceExhausted
	}
	return FormatBatchNumber(max + 1), nil
}

// MaxBatchSequence returns the highest batch sequence ever used for an item,
// depleted batches included.
func (s *Service) MaxBatchSequence(ctx context.Context, itemID int64) (int, error) {
	return s.repo.MaxBatchSequence(ctx, itemID)
}

// ValidateBatchNumber checks a candidate batch number for an item: format
// first, then uniqueness against the ledger.
func (s *Service) ValidateBatchNumber(ctx context.Context, itemID int64, number string) (BatchVerdict, error) {
	number = strings.TrimSpace(number)
	if !ValidBatchNumberFormat(number) {
		return BatchVerdict{Valid: false, Reason: "batch number must match B-NNN"}, nil
	}
	key := fmt.Sprintf("%d:%s", itemID, number)
	result, err, _ := s.validateGroup.Do(key, func() (any, error) {
		return s.repo.BatchNumberExists(ctx, itemID, number)
	})
	if err != nil {
		return BatchVerdict{}, err
	}
	if result.(bool) {
		return BatchVerdict{Valid: false, Reason: "batch number already used for this item"}, nil
	}
	return BatchVerdict{Valid: true}, nil
}

func normalize(item *Item) error {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return ErrNameRequired
	}
	if item.UOM == "" {
		item.UOM = UOMPiece
	}
	if item.UOM != UOMPiece && item.UOM != UOMPack {
		return ErrInvalidUOM
	}
	return nil
}
