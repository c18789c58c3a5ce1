// Package auth holds credential hashing and the workflow gate that decides,
// per route, what a visitor in a given state may do.
package auth

import "petition/internal/session"

// State is the workflow position derived from a session token.
type State int

const (
	Anonymous State = iota
	Authenticated
	Signed
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Signed:
		return "signed"
	default:
		return "anonymous"
	}
}

// StateOf derives the workflow state from tok alone.
func StateOf(tok session.Token) State {
	switch {
	case tok.Anonymous():
		return Anonymous
	case tok.Signed:
		return Signed
	default:
		return Authenticated
	}
}

// Decision is the gate verdict for one request. A denied decision with an
// empty Redirect is left to the route's deny handler.
type Decision struct {
	Allow    bool
	Redirect string
}

// Rule maps a state to a decision.
type Rule func(State) Decision

var allow = Decision{Allow: true}

// HomeRule sends signers to the thank-you page and strangers to registration.
func HomeRule(s State) Decision {
	switch s {
	case Signed:
		return Decision{Redirect: "/thank-you"}
	case Anonymous:
		return Decision{Redirect: "/register"}
	default:
		return allow
	}
}

// RequireAnonymous admits only visitors without a user.
func RequireAnonymous(redirect string) Rule {
	return func(s State) Decision {
		if s != Anonymous {
			return Decision{Redirect: redirect}
		}
		return allow
	}
}

// RequireUser admits authenticated and signed visitors.
func RequireUser(redirect string) Rule {
	return func(s State) Decision {
		if s == Anonymous {
			return Decision{Redirect: redirect}
		}
		return allow
	}
}

// RequireSigned admits only visitors who have signed.
func RequireSigned(redirect string) Rule {
	return func(s State) Decision {
		if s != Signed {
			return Decision{Redirect: redirect}
		}
		return allow
	}
}
