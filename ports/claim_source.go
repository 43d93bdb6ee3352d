package ports

import (
	"context"

	"claimsim/domain/claims"
)

// ClaimSource loads the claims table
type ClaimSource interface {
	LoadClaims(ctx context.Context) ([]claims.Claim, error)
}
