package repository

import (
	"context"

	"petition/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProfileRepository stores the optional per-user profile.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *domain.Profile) error
	GetByUser(ctx context.Context, userID string) (*domain.Profile, error)
}
