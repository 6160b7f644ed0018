package testutil

import (
	"context"

	"github.com/recorrente/recorrente/internal/types"
)

// SetupContext returns a context carrying the default tenant and user,
// the shape services expect at runtime
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetTenantID(ctx, types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	return ctx
}
