package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"petition/internal/domain"
	"petition/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAlreadySigned is returned when a user who has signed tries to sign again.
	ErrAlreadySigned = errors.New("petition already signed")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrNotSigned is returned when a user has no signature on record.
	ErrNotSigned = errors.New("petition not signed")
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordHasher is the credential service used by registration and login.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
	VerifyDummy(password string)
}

// RegisterInput carries an already validated registration form.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileInput carries an already validated profile form.
type ProfileInput struct {
	Age      *int
	City     string
	Homepage string
}

// PetitionService describes the petition workflow operations.
type PetitionService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	SaveProfile(ctx context.Context, userID string, in ProfileInput) error
	ProfileFor(ctx context.Context, userID string) (*domain.Profile, error)
	Sign(ctx context.Context, userID, text string) (*domain.Signature, error)
	HasSigned(ctx context.Context, userID string) (bool, error)
	SignatureFor(ctx context.Context, userID string) (*domain.Signature, error)
	ListSigners(ctx context.Context, city string) ([]domain.Signer, error)
	CountSignatures(ctx context.Context) (int, error)
}

type petitionService struct {
	dir    repository.Directory
	hasher PasswordHasher
}

func NewPetitionService(dir repository.Directory, hasher PasswordHasher) PetitionService {
	return &petitionService{
		dir:    dir,
		hasher: hasher,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *petitionService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
	}
	if err := s.dir.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *petitionService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.dir.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *petitionService) SaveProfile(ctx context.Context, userID string, in ProfileInput) error {
	if userID == "" {
		return fmt.Errorf("save profile: user id is required")
	}
	return s.dir.Profiles.Upsert(ctx, &domain.Profile{
		UserID:   userID,
		Age:      in.Age,
		City:     strings.TrimSpace(in.City),
		Homepage: strings.TrimSpace(in.Homepage),
	})
}

// ProfileFor returns the stored profile, or an empty one for users who never saved it.
func (s *petitionService) ProfileFor(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.dir.Profiles.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &domain.Profile{UserID: userID}, nil
	}
	return profile, err
}

func (s *petitionService) Sign(ctx context.Context, userID, text string) (*domain.Signature, error) {
	if userID == "" {
		return nil, fmt.Errorf("sign: user id is required")
	}

	existing, err := s.dir.Signatures.GetByUser(ctx, userID)
	switch {
	case err == nil:
		return existing, ErrAlreadySigned
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	sig := &domain.Signature{
		ID:     uuid.NewString(),
		UserID: userID,
		Text:   text,
	}
	if err := s.dir.Signatures.Create(ctx, sig); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// lost a race with a concurrent submission from the same user
			existing, getErr := s.dir.Signatures.GetByUser(ctx, userID)
			if getErr != nil {
				return nil, getErr
			}
			return existing, ErrAlreadySigned
		}
		return nil, err
	}
	return sig, nil
}

func (s *petitionService) HasSigned(ctx context.Context, userID string) (bool, error) {
	_, err := s.dir.Signatures.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *petitionService) SignatureFor(ctx context.Context, userID string) (*domain.Signature, error) {
	sig, err := s.dir.Signatures.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotSigned
	}
	return sig, err
}

func (s *petitionService) ListSigners(ctx context.Context, city string) ([]domain.Signer, error) {
	return s.dir.Signatures.ListSigners(ctx, strings.TrimSpace(city))
}

func (s *petitionService) CountSignatures(ctx context.Context) (int, error) {
	return s.dir.Signatures.Count(ctx)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
