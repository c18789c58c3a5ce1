package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"petition/internal/domain"
	"petition/internal/repository"
)

// ProfileRepository stores profiles in postgres.
type ProfileRepository struct {
	db *sql.DB
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	var age sql.NullInt64
	if profile.Age != nil {
		age = sql.NullInt64{Int64: int64(*profile.Age), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO profiles (user_id, age, city, homepage, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
	age = EXCLUDED.age,
	city = EXCLUDED.city,
	homepage = EXCLUDED.homepage,
	updated_at = EXCLUDED.updated_at`,
		profile.UserID, age, profile.City, profile.Homepage, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		profile domain.Profile
		age     sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT user_id, age, city, homepage, updated_at
FROM profiles
WHERE user_id = $1`, userID).Scan(&profile.UserID, &age, &profile.City, &profile.Homepage, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if age.Valid {
		n := int(age.Int64)
		profile.Age = &n
	}
	return &profile, nil
}
