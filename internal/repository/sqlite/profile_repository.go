package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"petition/internal/domain"
	"petition/internal/repository"
)

const createProfilesTable = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id TEXT PRIMARY KEY,
	age INTEGER NULL,
	city TEXT NOT NULL DEFAULT '',
	homepage TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_profiles_city ON profiles(city COLLATE NOCASE);
`

type ProfileRepository struct {
	db *sql.DB
}

func (r *ProfileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProfilesTable); err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
INSERT INTO profiles (user_id, age, city, homepage, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	age = excluded.age,
	city = excluded.city,
	homepage = excluded.homepage,
	updated_at = excluded.updated_at`,
		profile.UserID,
		nullInt(profile.Age),
		profile.City,
		profile.Homepage,
		profile.UpdatedAt,
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
WHERE user_id = ?`,
		userID,
	).Scan(&profile.UserID, &age, &profile.City, &profile.Homepage, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	profile.Age = intPtr(age)
	return &profile, nil
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
