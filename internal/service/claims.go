package service

import (
	"context"

	"github.com/halcyondata/recall/internal/domain"
)

// callerClaims extracts the authenticated claims every service method runs
// under. Requests that skipped the auth middleware have none.
func callerClaims(ctx context.Context) (domain.Claims, error) {
	claims, ok := domain.ClaimsFromContext(ctx)
	if !ok {
		return domain.Claims{}, domain.ErrNoClaims
	}
	return claims, nil
}

// writerClaims is callerClaims plus the service-role gate shared by all
// mutating operations.
func writerClaims(ctx context.Context) (domain.Claims, error) {
	claims, err := callerClaims(ctx)
	if err != nil {
		return domain.Claims{}, err
	}
	if !claims.CanWrite() {
		return domain.Claims{}, domain.ErrWriteNotPermitted
	}
	return claims, nil
}
