package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testKey, time.Hour)
	require.NoError(t, err)
	return c
}

func TestNewCodec_RejectsShortKey(t *testing.T) {
	t.Parallel()

	_, err := NewCodec([]byte("short"), time.Hour)
	assert.ErrorIs(t, err, ErrSecretTooShort)

	_, err = NewCodec(testKey, 0)
	assert.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	in := New().WithUser("u1", "Ada", true)
	raw, err := c.Encode(in)
	require.NoError(t, err)

	out, err := c.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCodec_TamperedPayloadRejected(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.Encode(New().WithUser("u1", "Ada", false))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u1",
		Signed:           true,
		CSRFSecret:       "x",
	}).SignedString([]byte("another-key-another-key-another-key"))
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	forgedParts := strings.Split(forged, ".")
	mixed := parts[0] + "." + forgedParts[1] + "." + parts[2]

	for _, bad := range []string{forged, mixed, "", "not.a.jwt", raw + "x"} {
		_, err := c.Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}

func TestCodec_Expired(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)
	c.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := c.Encode(New())
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u1",
		CSRFSecret:       "x",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Decode(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_SignedWithoutUserIsAnonymous(t *testing.T) {
	t.Parallel()
	c := newTestCodec(t)

	raw, err := c.Encode(Token{Signed: true, FirstName: "Ghost", CSRFSecret: "s"})
	require.NoError(t, err)

	tok, err := c.Decode(raw)
	require.NoError(t, err)
	assert.True(t, tok.Anonymous())
	assert.False(t, tok.Signed)
	assert.False(t, tok.HasSigned())
	assert.Equal(t, "s", tok.CSRFSecret)
}
