package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"petition/internal/repository"
	"petition/internal/repository/postgres/migrations"
)

const uniqueViolation = "23505"

// Open connects to postgres through the pgx stdlib driver and applies the embedded migrations.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate runs goose against the embedded migration set.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// NewDirectory returns the postgres backed repositories. The schema must already exist.
func NewDirectory(db *sql.DB) repository.Directory {
	return repository.Directory{
		Users:      &UserRepository{db: db},
		Profiles:   &ProfileRepository{db: db},
		Signatures: &SignatureRepository{db: db},
		Ping:       db.PingContext,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var (
	_ repository.UserRepository      = (*UserRepository)(nil)
	_ repository.ProfileRepository   = (*ProfileRepository)(nil)
	_ repository.SignatureRepository = (*SignatureRepository)(nil)
)
