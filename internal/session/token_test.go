package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken_Transitions(t *testing.T) {
	t.Parallel()

	anon := New()
	assert.True(t, anon.Anonymous())
	assert.NotEmpty(t, anon.CSRFSecret)
	assert.NotEqual(t, anon.CSRFSecret, New().CSRFSecret)

	assert.Equal(t, anon, anon.WithSigned(), "anonymous tokens cannot become signed")

	user := anon.WithUser("u1", "Ada", false)
	assert.False(t, user.Anonymous())
	assert.False(t, user.HasSigned())
	assert.True(t, anon.Anonymous(), "original value is untouched")

	signed := user.WithSigned()
	assert.True(t, signed.HasSigned())
	assert.False(t, signed.WithoutSigned().HasSigned())

	out := signed.Cleared()
	assert.True(t, out.Anonymous())
	assert.False(t, out.HasSigned())
	assert.Empty(t, out.FirstName)
	assert.Equal(t, anon.CSRFSecret, out.CSRFSecret)
}

func TestToken_SignedFlagIgnoredWithoutUser(t *testing.T) {
	t.Parallel()

	tok := Token{Signed: true}
	assert.True(t, tok.Anonymous())
	assert.False(t, tok.HasSigned())
}
