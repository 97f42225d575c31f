package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lumina-dist/lumina/internal/authz"
	"github.com/lumina-dist/lumina/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, accountID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, accountID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// Account fetches an account by ID.
func (s *Service) Account(ctx context.Context, id int64) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAccounts returns active accounts for dropdowns.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListActive(ctx)
}

// UserByID resolves the capability view of an account. It satisfies
// authz.UserSource so the middleware can hydrate the request context.
func (s *Service) UserByID(ctx context.Context, id int64) (*authz.User, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, shared.ErrNotFound
	}
	return &authz.User{
		ID:       account.ID,
		Role:     authz.ParseRole(account.Role),
		CostTier: account.CostTier,
	}, nil
}

var _ authz.UserSource = (*Service)(nil)
