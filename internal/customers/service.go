package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/pricing"
	"github.com/lumina-dist/lumina/internal/shared"
)

var (
	// ErrDuplicateName means another customer already uses the company name.
	ErrDuplicateName = errors.New("customers: company name already in use")
	// ErrNameRequired means the company name was empty.
	ErrNameRequired = errors.New("customers: company name is required")
	// ErrInvalidTier means the pricing tier code is not in the tier table.
	ErrInvalidTier = errors.New("customers: unknown pricing tier")
	// ErrDiscountNotNegative rejects special prices that do not reduce the
	// base price.
	ErrDiscountNotNegative = errors.New("customers: special price discount must be negative")
	// ErrDuplicateSpecialPricing means the customer/item pair already has a
	// special price.
	ErrDuplicateSpecialPricing = errors.New("customers: special price already exists for item")
	// ErrApprovalNotAllowed means the caller cannot approve or reject.
	ErrApprovalNotAllowed = errors.New("customers: caller cannot approve special prices")
	// ErrInvalidCustomerType means the customer type is outside the closed set.
	ErrInvalidCustomerType = errors.New("customers: unknown customer type")
)

var customerTypes = map[string]bool{
	TypeInternational:  true,
	TypeDistributor:    true,
	TypePhysicalStore:  true,
	TypeReseller:       true,
	TypeDirectCustomer: true,
}

// Service wraps customer business rules.
type Service struct {
	repo Repository
}

// NewService creates a new customer service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns customers matching the filters with the pre-pagination count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultPageSize
	}
	return s.repo.List(ctx, filters)
}

// Get fetches one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new customer.
func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	if err := normalize(&c); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, c)
}

// Update validates and stores customer edits.
func (s *Service) Update(ctx context.Context, id int64, c Customer) (Customer, error) {
	if id <= 0 {
		return Customer{}, shared.ErrNotFound
	}
	if err := normalize(&c); err != nil {
		return Customer{}, err
	}
	if err := s.repo.Update(ctx, id, c); err != nil {
		return Customer{}, err
	}
	return s.repo.Get(ctx, id)
}

// Archive marks a customer archived. History stays; the customer drops out
// of active listings and new transaction forms.
func (s *Service) Archive(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.SetStatus(ctx, id, StatusArchived)
}

// Restore reactivates an archived customer.
func (s *Service) Restore(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.SetStatus(ctx, id, StatusActive)
}

// GetOrCreateByName resolves a free-text counterparty name to a customer,
// creating a Direct Customer record when none matches.
func (s *Service) GetOrCreateByName(ctx context.Context, companyName string) (Customer, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return Customer{}, ErrNameRequired
	}
	existing, err := s.repo.FindByName(ctx, companyName)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return Customer{}, err
	}
	return s.repo.Create(ctx, Customer{CompanyName: companyName, CustomerType: TypeDirectCustomer})
}

// BrandPricing lists a customer's tier assignments.
func (s *Service) BrandPricing(ctx context.Context, customerID int64) ([]BrandPricing, error) {
	return s.repo.BrandPricing(ctx, customerID)
}

// SetBrandPricing assigns or replaces the tier for one brand.
func (s *Service) SetBrandPricing(ctx context.Context, customerID, brandID int64, tier string) error {
	parsed, ok := pricing.ParseTier(tier)
	if !ok {
		return ErrInvalidTier
	}
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return err
	}
	return s.repo.UpsertBrandPricing(ctx, customerID, brandID, string(parsed))
}

// BulkSetBrandPricing applies several assignments at once. It validates all
// tiers first so a bad row rejects the whole batch.
func (s *Service) BulkSetBrandPricing(ctx context.Context, customerID int64, assignments map[int64]string) error {
	parsed := make(map[int64]pricing.Tier, len(assignments))
	for brandID, tier := range assignments {
		t, ok := pricing.ParseTier(tier)
		if !ok {
			return ErrInvalidTier
		}
		parsed[brandID] = t
	}
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return err
	}
	for brandID, t := range parsed {
		if err := s.repo.UpsertBrandPricing(ctx, customerID, brandID, string(t)); err != nil {
			return err
		}
	}
	return nil
}

// AssignAllBrands gives the customer every active brand at the default
// retail tier. Existing assignments keep their tier.
func (s *Service) AssignAllBrands(ctx context.Context, customerID int64) error {
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return err
	}
	brandIDs, err := s.repo.ActiveBrandIDs(ctx)
	if err != nil {
		return err
	}
	current, err := s.repo.BrandPricing(ctx, customerID)
	if err != nil {
		return err
	}
	assigned := make(map[int64]bool, len(current))
	for _, bp := range current {
		assigned[bp.BrandID] = true
	}
	for _, brandID := range brandIDs {
		if assigned[brandID] {
			continue
		}
		if err := s.repo.UpsertBrandPricing(ctx, customerID, brandID, string(pricing.TierSRP)); err != nil {
			return err
		}
	}
	return nil
}

// RemoveBrandPricing removes one assignment.
func (s *Service) RemoveBrandPricing(ctx context.Context, customerID, brandID int64) error {
	return s.repo.RemoveBrandPricing(ctx, customerID, brandID)
}

// SpecialPricing lists a customer's special price requests.
func (s *Service) SpecialPricing(ctx context.Context, customerID int64) ([]SpecialPricing, error) {
	return s.repo.SpecialPricing(ctx, customerID)
}

// AddSpecialPricing records a pending special price. Discounts must be
// negative and the customer/item pair unique.
func (s *Service) AddSpecialPricing(ctx context.Context, customerID, itemID int64, discount decimal.Decimal, createdBy int64) (SpecialPricing, error) {
	if !pricing.ValidateSpecialDiscount(discount) {
		return SpecialPricing{}, ErrDiscountNotNegative
	}
	if _, err := s.repo.Get(ctx, customerID); err != nil {
		return SpecialPricing{}, err
	}
	return s.repo.AddSpecialPricing(ctx, SpecialPricing{
		CustomerID: customerID,
		ItemID:     itemID,
		Discount:   discount,
		CreatedBy:  createdBy,
	})
}

// RemoveSpecialPricing deletes a special price row.
func (s *Service) RemoveSpecialPricing(ctx context.Context, customerID, pricingID int64) error {
	return s.repo.RemoveSpecialPricing(ctx, customerID, pricingID)
}

// ApproveSpecialPricing marks a request approved. Only roles that can
// approve transactions may do this.
func (s *Service) ApproveSpecialPricing(ctx context.Context, caller *authz.User, customerID, pricingID int64) error {
	if !authz.CanApproveTransactions(caller) {
		return ErrApprovalNotAllowed
	}
	return s.repo.SetApproval(ctx, customerID, pricingID, ApprovalApproved)
}

// RejectSpecialPricing marks a request rejected.
func (s *Service) RejectSpecialPricing(ctx context.Context, caller *authz.User, customerID, pricingID int64) error {
	if !authz.CanApproveTransactions(caller) {
		return ErrApprovalNotAllowed
	}
	return s.repo.SetApproval(ctx, customerID, pricingID, ApprovalRejected)
}

func normalize(c *Customer) error {
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.ContactPerson = strings.TrimSpace(c.ContactPerson)
	c.Address = strings.TrimSpace(c.Address)
	c.ContactNumber = strings.TrimSpace(c.ContactNumber)
	c.TIN = strings.TrimSpace(c.TIN)
	if c.CompanyName == "" {
		return ErrNameRequired
	}
	if c.CustomerType == "" {
		c.CustomerType = TypeDirectCustomer
	}
	if !customerTypes[c.CustomerType] {
		return ErrInvalidCustomerType
	}
	return nil
}
