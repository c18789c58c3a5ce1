package postgres

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petition/internal/domain"
	"petition/internal/repository"
)

// openTestDB connects to the database named by PETITION_TEST_DSN, skipping
// the test when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PETITION_TEST_DSN")
	if dsn == "" {
		t.Skip("PETITION_TEST_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// seedUser creates a user with a unique email and removes it, with its
// profile and signature, when the test ends.
func seedUser(t *testing.T, db *sql.DB, dir repository.Directory, first string) *domain.User {
	t.Helper()
	id := uuid.NewString()
	user := &domain.User{
		ID:           id,
		FirstName:    first,
		LastName:     "Tester",
		Email:        strings.ToLower(first) + "-" + id + "@example.com",
		PasswordHash: "hash",
	}
	require.NoError(t, dir.Users.Create(context.Background(), user))
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return user
}

func TestUserRepository_DuplicateEmailIsConflict(t *testing.T) {
	db := openTestDB(t)
	dir := NewDirectory(db)
	ctx := context.Background()

	ada := seedUser(t, db, dir, "Ada")
	got, err := dir.Users.GetByEmail(ctx, ada.Email)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)

	err = dir.Users.Create(ctx, &domain.User{
		ID:           uuid.NewString(),
		FirstName:    "Eve",
		LastName:     "Impostor",
		Email:        ada.Email,
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = dir.Users.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProfileRepository_UpsertOverwrites(t *testing.T) {
	db := openTestDB(t)
	dir := NewDirectory(db)
	ctx := context.Background()

	ada := seedUser(t, db, dir, "Ada")
	age := 36
	require.NoError(t, dir.Profiles.Upsert(ctx, &domain.Profile{UserID: ada.ID, Age: &age, City: "London"}))
	require.NoError(t, dir.Profiles.Upsert(ctx, &domain.Profile{UserID: ada.ID, City: "Paris", Homepage: "https://ada.example"}))

	got, err := dir.Profiles.GetByUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Age)
	assert.Equal(t, "Paris", got.City)
	assert.Equal(t, "https://ada.example", got.Homepage)

	_, err = dir.Profiles.GetByUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSignatureRepository_OnePerUserAndCityFilter(t *testing.T) {
	db := openTestDB(t)
	dir := NewDirectory(db)
	ctx := context.Background()

	// a city name no other test run uses keeps the filter assertions exact
	city := "Paris-" + uuid.NewString()[:8]

	ada := seedUser(t, db, dir, "Ada")
	grace := seedUser(t, db, dir, "Grace")
	require.NoError(t, dir.Profiles.Upsert(ctx, &domain.Profile{UserID: ada.ID, City: city}))
	require.NoError(t, dir.Profiles.Upsert(ctx, &domain.Profile{UserID: grace.ID, City: "Berlin"}))

	require.NoError(t, dir.Signatures.Create(ctx, &domain.Signature{ID: uuid.NewString(), UserID: ada.ID, Text: "Ada Lovelace"}))
	require.NoError(t, dir.Signatures.Create(ctx, &domain.Signature{ID: uuid.NewString(), UserID: grace.ID, Text: "Grace Hopper"}))

	err := dir.Signatures.Create(ctx, &domain.Signature{ID: uuid.NewString(), UserID: ada.ID, Text: "again"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	sig, err := dir.Signatures.GetByUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", sig.Text)

	signers, err := dir.Signatures.ListSigners(ctx, strings.ToUpper(city))
	require.NoError(t, err)
	require.Len(t, signers, 1)
	assert.Equal(t, "Ada", signers[0].FirstName)
	assert.Equal(t, city, signers[0].City)
}
