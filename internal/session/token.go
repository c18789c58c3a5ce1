// Package session holds the client-side session token: a small record of
// workflow facts carried in a signed (not encrypted) cookie.
package session

import "github.com/google/uuid"

// Token is the decoded session. It is a value: handlers receive a copy and
// return a modified copy for the store to write back.
type Token struct {
	UserID     string
	FirstName  string
	Signed     bool
	CSRFSecret string
}

// New returns an anonymous token with a fresh CSRF secret.
func New() Token {
	return Token{CSRFSecret: uuid.NewString()}
}

// Anonymous reports whether the token carries no user. Other fields are
// meaningless when it does not.
func (t Token) Anonymous() bool {
	return t.UserID == ""
}

// HasSigned reports whether the token belongs to a user who has signed.
func (t Token) HasSigned() bool {
	return !t.Anonymous() && t.Signed
}

// WithUser returns a copy authenticated as the given user.
func (t Token) WithUser(userID, firstName string, signed bool) Token {
	t.UserID = userID
	t.FirstName = firstName
	t.Signed = signed
	return t
}

// WithSigned returns a copy marked as signed. Anonymous tokens are returned unchanged.
func (t Token) WithSigned() Token {
	if t.Anonymous() {
		return t
	}
	t.Signed = true
	return t
}

// WithoutSigned returns a copy with the signed flag dropped.
func (t Token) WithoutSigned() Token {
	t.Signed = false
	return t
}

// Cleared returns a copy with the identity removed. The CSRF secret survives
// so forms rendered before logout stay valid for the anonymous visitor.
func (t Token) Cleared() Token {
	return Token{CSRFSecret: t.CSRFSecret}
}
