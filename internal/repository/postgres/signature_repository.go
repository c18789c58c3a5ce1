package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"petition/internal/domain"
	"petition/internal/repository"
)

// SignatureRepository stores signatures in postgres.
type SignatureRepository struct {
	db *sql.DB
}

func (r *SignatureRepository) Create(ctx context.Context, sig *domain.Signature) error {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO signatures (id, user_id, signature, created_at)
VALUES ($1, $2, $3, $4)`,
		sig.ID, sig.UserID, sig.Text, sig.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("signature for user %s: %w", sig.UserID, repository.ErrConflict)
		}
		return fmt.Errorf("insert signature: %w", err)
	}
	return nil
}

func (r *SignatureRepository) GetByUser(ctx context.Context, userID string) (*domain.Signature, error) {
	var sig domain.Signature
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, signature, created_at
FROM signatures
WHERE user_id = $1`, userID).Scan(&sig.ID, &sig.UserID, &sig.Text, &sig.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("signature: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &sig, nil
}

func (r *SignatureRepository) ListSigners(ctx context.Context, city string) ([]domain.Signer, error) {
	query := `
SELECT u.first_name, u.last_name, p.age, COALESCE(p.city, ''), COALESCE(p.homepage, ''), s.created_at
FROM signatures s
JOIN users u ON u.id = s.user_id
LEFT JOIN profiles p ON p.user_id = s.user_id`
	var args []any
	if city = strings.TrimSpace(city); city != "" {
		query += `
WHERE LOWER(p.city) = LOWER($1)`
		args = append(args, city)
	}
	query += `
ORDER BY s.created_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query signers: %w", err)
	}
	defer rows.Close()

	signers := []domain.Signer{}
	for rows.Next() {
		var (
			signer domain.Signer
			age    sql.NullInt64
		)
		if err := rows.Scan(&signer.FirstName, &signer.LastName, &age, &signer.City, &signer.Homepage, &signer.SignedAt); err != nil {
			return nil, fmt.Errorf("scan signer: %w", err)
		}
		if age.Valid {
			n := int(age.Int64)
			signer.Age = &n
		}
		signers = append(signers, signer)
	}
	return signers, rows.Err()
}

func (r *SignatureRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signatures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}
