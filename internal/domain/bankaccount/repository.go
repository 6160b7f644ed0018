package bankaccount

import (
	"context"
	"time"
)

// Repository defines the interface for bank account credential persistence
type Repository interface {
	Get(ctx context.Context, id string) (*Credential, error)
	List(ctx context.Context) ([]*Credential, error)

	// GetDefault returns the tenant's default credential, falling back to
	// the only credential when exactly one exists
	GetDefault(ctx context.Context) (*Credential, error)

	// UpdateToken persists a freshly issued bearer token together with
	// its issue time and provider-declared lifetime
	UpdateToken(ctx context.Context, id string, token string, issuedAt time.Time, expiresIn int) error
}
