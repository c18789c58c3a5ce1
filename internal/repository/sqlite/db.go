package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"petition/internal/repository"
)

// Open opens (or creates) a sqlite database at the given path and ensures directories exist.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// a single connection serialises writers and keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

// NewDirectory creates the petition tables if needed and returns the sqlite backed repositories.
func NewDirectory(ctx context.Context, db *sql.DB) (repository.Directory, error) {
	users := &UserRepository{db: db}
	profiles := &ProfileRepository{db: db}
	signatures := &SignatureRepository{db: db}

	// order matters: profiles and signatures reference users
	for _, init := range []func(context.Context) error{users.Init, profiles.Init, signatures.Init} {
		if err := init(ctx); err != nil {
			return repository.Directory{}, err
		}
	}

	return repository.Directory{
		Users:      users,
		Profiles:   profiles,
		Signatures: signatures,
		Ping:       db.PingContext,
	}, nil
}

// Snapshot writes a consistent copy of the database to dest using VACUUM INTO.
func Snapshot(ctx context.Context, db *sql.DB, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx, `VACUUM INTO ?`, dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

var (
	_ repository.UserRepository      = (*UserRepository)(nil)
	_ repository.ProfileRepository   = (*ProfileRepository)(nil)
	_ repository.SignatureRepository = (*SignatureRepository)(nil)
)
