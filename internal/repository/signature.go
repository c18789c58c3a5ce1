package repository

import (
	"context"

	"petition/internal/domain"
)

// SignatureRepository stores petition signatures. Implementations must reject a
// second signature for the same user with ErrConflict.
type SignatureRepository interface {
	Create(ctx context.Context, sig *domain.Signature) error
	GetByUser(ctx context.Context, userID string) (*domain.Signature, error)
	ListSigners(ctx context.Context, city string) ([]domain.Signer, error)
	Count(ctx context.Context) (int, error)
}
