package auth

import "time"

// Account represents a dashboard login account.
type Account struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	Role         string
	CostTier     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
