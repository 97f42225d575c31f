package brands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumina-dist/lumina/internal/shared"
)

var (
	// ErrDuplicateName means another brand already uses the name.
	ErrDuplicateName = errors.New("brands: name already in use")
	// ErrNameRequired means the brand name was empty.
	ErrNameRequired = errors.New("brands: name is required")
	// ErrInvalidVATClass means the VAT classification is outside the closed
	// set.
	ErrInvalidVATClass = errors.New("brands: unknown VAT classification")
)

var vatClasses = map[string]bool{
	VATClassVAT:    true,
	VATClassNonVAT: true,
	VATClassBoth:   true,
}

// Service wraps brand business rules.
type Service struct {
	repo Repository
}

// NewService creates a new brand service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns brands matching the filters with the total count before
// pagination. Archived brands are excluded unless IncludeAll is set.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Brand, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultPageSize
	}
	return s.repo.List(ctx, filters)
}

// Get fetches one brand.
func (s *Service) Get(ctx context.Context, id int64) (Brand, error) {
	if id <= 0 {
		return Brand{}, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new brand.
func (s *Service) Create(ctx context.Context, brand Brand) (Brand, error) {
	if err := normalize(&brand); err != nil {
		return Brand{}, err
	}
	return s.repo.Create(ctx, brand)
}

// Update validates and stores brand edits.
func (s *Service) Update(ctx context.Context, id int64, brand Brand) (Brand, error) {
	if id <= 0 {
		return Brand{}, shared.ErrNotFound
	}
	if err := normalize(&brand); err != nil {
		return Brand{}, err
	}
	if err := s.repo.Update(ctx, id, brand); err != nil {
		return Brand{}, err
	}
	return s.repo.Get(ctx, id)
}

// Archive deactivates a brand. Items under it stay intact; the brand simply
// stops appearing in default listings and new item forms.
func (s *Service) Archive(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.SetActive(ctx, id, false)
}

// Restore reactivates an archived brand.
func (s *Service) Restore(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.SetActive(ctx, id, true)
}

// SKUPrefix derives the SKU prefix for items under a brand.
func SKUPrefix(brandID int64) string {
	return fmt.Sprintf("%d", brandID+100)
}

func normalize(brand *Brand) error {
	brand.Name = strings.TrimSpace(brand.Name)
	brand.Description = strings.TrimSpace(brand.Description)
	brand.Address = strings.TrimSpace(brand.Address)
	brand.TIN = strings.TrimSpace(brand.TIN)
	brand.ContactPerson = strings.TrimSpace(brand.ContactPerson)
	brand.ContactNumber = strings.TrimSpace(brand.ContactNumber)
	if brand.Name == "" {
		return ErrNameRequired
	}
	if brand.VATClassification == "" {
		brand.VATClassification = VATClassVAT
	}
	if !vatClasses[brand.VATClassification] {
		return ErrInvalidVATClass
	}
	return nil
}
