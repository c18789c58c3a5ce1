package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for malformed, tampered, or expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrSecretTooShort is returned when the signing key is weaker than MinSecretLength.
	ErrSecretTooShort = errors.New("session secret too short")
)

// MinSecretLength is the minimum signing key length in bytes.
const MinSecretLength = 32

type claims struct {
	jwt.RegisteredClaims
	UserID     string `json:"user_id,omitempty"`
	FirstName  string `json:"firstname,omitempty"`
	Signed     bool   `json:"signed,omitempty"`
	CSRFSecret string `json:"csrf"`
}

// Codec signs and verifies session tokens as HS256 JWTs.
type Codec struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewCodec(key []byte, lifetime time.Duration) (*Codec, error) {
	if len(key) < MinSecretLength {
		return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrSecretTooShort, len(key), MinSecretLength)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("session lifetime must be positive")
	}
	return &Codec{key: key, lifetime: lifetime, now: time.Now}, nil
}

// Lifetime is the validity window given to every encoded token.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

func (c *Codec) Encode(tok Token) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.lifetime)),
		},
		UserID:     tok.UserID,
		FirstName:  tok.FirstName,
		Signed:     tok.Signed,
		CSRFSecret: tok.CSRFSecret,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *Codec) Decode(raw string) (Token, error) {
	var cl claims
	token, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || cl.CSRFSecret == "" {
		return Token{}, ErrInvalidToken
	}

	tok := Token{
		UserID:     cl.UserID,
		FirstName:  cl.FirstName,
		Signed:     cl.Signed,
		CSRFSecret: cl.CSRFSecret,
	}
	if tok.Anonymous() {
		// facts without a user are not trusted
		tok = tok.Cleared()
	}
	return tok, nil
}
