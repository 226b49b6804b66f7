// Package tokenstore remembers revoked access tokens by their jti until the
// token would have expired anyway.
package tokenstore

import (
	"context"
	"time"
)

// Revoker records and checks revoked token ids.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}
