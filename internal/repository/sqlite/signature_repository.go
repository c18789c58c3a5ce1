package sqlite

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

const createSignaturesTable = `
CREATE TABLE IF NOT EXISTS signatures (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	signature TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
`

// SignatureRepository is the sqlite implementation of repository.SignatureRepository.
type SignatureRepository struct {
	db *sql.DB
}

func (r *SignatureRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSignaturesTable); err != nil {
		return fmt.Errorf("create signatures table: %w", err)
	}
	return nil
}

func (r *SignatureRepository) Create(ctx context.Context, sig *domain.Signature) error {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO signatures (id, user_id, signature, created_at)
VALUES (?, ?, ?, ?)`,
		sig.ID,
		sig.UserID,
		sig.Text,
		sig.CreatedAt,
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
WHERE user_id = ?`,
		userID,
	).Scan(&sig.ID, &sig.UserID, &sig.Text, &sig.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("signature: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan signature: %w", err)
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
WHERE p.city = ? COLLATE NOCASE`
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
		signer.Age = intPtr(age)
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
