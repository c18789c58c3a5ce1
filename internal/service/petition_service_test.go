package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"petition/internal/auth"
	"petition/internal/domain"
	"petition/internal/repository"
	"petition/internal/repository/sqlite"
)

func newTestService(t *testing.T) (PetitionService, repository.Directory) {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir, err := sqlite.NewDirectory(context.Background(), db)
	require.NoError(t, err)

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return NewPetitionService(dir, hasher), dir
}

func registerAda(t *testing.T, svc PetitionService) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "Ada@X.com ",
		Password:  "secret123",
	})
	require.NoError(t, err)
	return user
}

func TestRegister_StoresHashedNormalizedUser(t *testing.T) {
	svc, dir := newTestService(t)

	user := registerAda(t, svc)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "ada@x.com", user.Email)
	assert.Empty(t, user.PasswordHash, "hash is not handed back")

	stored, err := dir.Users.GetByEmail(context.Background(), "ada@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	registerAda(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Imposter", LastName: "X", Email: "ada@x.com", Password: "p",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_PasswordByteLimit(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
		Password: strings.Repeat("é", 50),
	})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	_, err = dir.Users.GetByEmail(ctx, "ada@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.Register(ctx, RegisterInput{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@x.com",
		Password: strings.Repeat("a", MaxPasswordBytes),
	})
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ada := registerAda(t, svc)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "ADA@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, user.ID)

	_, err = svc.Authenticate(ctx, "ada@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody@x.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "  ", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSign_OncePerUser(t *testing.T) {
	svc, dir := newTestService(t)
	ada := registerAda(t, svc)
	ctx := context.Background()

	signed, err := svc.HasSigned(ctx, ada.ID)
	require.NoError(t, err)
	assert.False(t, signed)

	_, err = svc.SignatureFor(ctx, ada.ID)
	assert.ErrorIs(t, err, ErrNotSigned)

	first, err := svc.Sign(ctx, ada.ID, "Ada Lovelace")
	require.NoError(t, err)

	second, err := svc.Sign(ctx, ada.ID, "Someone Else")
	assert.ErrorIs(t, err, ErrAlreadySigned)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	n, err := dir.Signatures.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.SignatureFor(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Text)

	signed, err = svc.HasSigned(ctx, ada.ID)
	require.NoError(t, err)
	assert.True(t, signed)
}

func TestSign_RaceLostMapsToAlreadySigned(t *testing.T) {
	svc, dir := newTestService(t)
	ada := registerAda(t, svc)

	racy := repository.Directory{
		Users:      dir.Users,
		Profiles:   dir.Profiles,
		Signatures: &racingSignatures{SignatureRepository: dir.Signatures},
	}
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	svc = NewPetitionService(racy, hasher)

	sig, err := svc.Sign(context.Background(), ada.ID, "mine")
	assert.ErrorIs(t, err, ErrAlreadySigned)
	require.NotNil(t, sig)
	assert.Equal(t, "theirs", sig.Text)
}

// racingSignatures reports no signature on the first lookup, then lets a
// competing insert land just before ours.
type racingSignatures struct {
	repository.SignatureRepository
	looked bool
}

func (r *racingSignatures) GetByUser(ctx context.Context, userID string) (*domain.Signature, error) {
	if !r.looked {
		r.looked = true
		return nil, repository.ErrNotFound
	}
	return r.SignatureRepository.GetByUser(ctx, userID)
}

func (r *racingSignatures) Create(ctx context.Context, sig *domain.Signature) error {
	if err := r.SignatureRepository.Create(ctx, &domain.Signature{ID: "other", UserID: sig.UserID, Text: "theirs"}); err != nil {
		return err
	}
	return r.SignatureRepository.Create(ctx, sig)
}

func TestSaveProfileAndListSigners(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	ada := registerAda(t, svc)

	empty, err := svc.ProfileFor(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, empty.UserID)
	assert.Nil(t, empty.Age)
	assert.Empty(t, empty.City)

	age := 36
	require.NoError(t, svc.SaveProfile(ctx, ada.ID, ProfileInput{Age: &age, City: " Paris ", Homepage: "https://ada.example"}))

	stored, err := svc.ProfileFor(ctx, ada.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Age)
	assert.Equal(t, 36, *stored.Age)
	assert.Equal(t, "Paris", stored.City)
	assert.Equal(t, "https://ada.example", stored.Homepage)

	_, err = svc.Sign(ctx, ada.ID, "Ada Lovelace")
	require.NoError(t, err)

	signers, err := svc.ListSigners(ctx, " Paris")
	require.NoError(t, err)
	require.Len(t, signers, 1)
	assert.Equal(t, "Paris", signers[0].City)

	signers, err = svc.ListSigners(ctx, "London")
	require.NoError(t, err)
	assert.Empty(t, signers)

	n, err := svc.CountSignatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Error(t, svc.SaveProfile(ctx, "", ProfileInput{}))
}

func TestCollaboratorFailuresPropagate(t *testing.T) {
	boom := errors.New("db down")
	dir := repository.Directory{
		Users:      failingUsers{err: boom},
		Signatures: failingSignatures{err: boom},
	}
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewPetitionService(dir, hasher)
	ctx := context.Background()

	_, err = svc.Register(ctx, RegisterInput{FirstName: "a", LastName: "b", Email: "c@d.e", Password: "p"})
	assert.ErrorIs(t, err, boom)
	_, err = svc.Authenticate(ctx, "c@d.e", "p")
	assert.ErrorIs(t, err, boom)
	_, err = svc.Sign(ctx, "u1", "x")
	assert.ErrorIs(t, err, boom)
	_, err = svc.HasSigned(ctx, "u1")
	assert.ErrorIs(t, err, boom)
}

type failingUsers struct{ err error }

func (f failingUsers) Create(context.Context, *domain.User) error { return f.err }
func (f failingUsers) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

type failingSignatures struct{ err error }

func (f failingSignatures) Create(context.Context, *domain.Signature) error { return f.err }
func (f failingSignatures) GetByUser(context.Context, string) (*domain.Signature, error) {
	return nil, f.err
}
func (f failingSignatures) ListSigners(context.Context, string) ([]domain.Signer, error) {
	return nil, f.err
}
func (f failingSignatures) Count(context.Context) (int, error) { return 0, f.err }
