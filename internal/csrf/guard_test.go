package csrf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_IssueValidate(t *testing.T) {
	t.Parallel()
	g := NewGuard([]byte("server-key"))

	tok := g.Issue("secret-a")
	assert.True(t, g.Validate("secret-a", tok))
	assert.NotEqual(t, tok, g.Issue("secret-a"), "tokens are salted")
	assert.True(t, g.Validate("secret-a", g.Issue("secret-a")))
}

func TestGuard_BoundToSession(t *testing.T) {
	t.Parallel()
	g := NewGuard([]byte("server-key"))

	tok := g.Issue("secret-a")
	assert.False(t, g.Validate("secret-b", tok))
	assert.False(t, NewGuard([]byte("other-key")).Validate("secret-a", tok))
}

func TestGuard_RejectsMalformed(t *testing.T) {
	t.Parallel()
	g := NewGuard([]byte("server-key"))
	valid := g.Issue("s")
	salt, mac, _ := strings.Cut(valid, ".")

	cases := map[string]string{
		"empty":        "",
		"no separator": salt + mac,
		"bad salt":     "!!!." + mac,
		"short salt":   "AAAA." + mac,
		"bad mac":      salt + ".???",
		"wrong mac":    salt + "." + strings.Repeat("A", len(mac)),
		"salt only":    salt + ".",
	}
	for name, tok := range cases {
		assert.False(t, g.Validate("s", tok), name)
	}
	assert.False(t, g.Validate("", valid), "empty secret")
}
