package domain

import "time"

// Signature is the single petition signature a user may leave.
type Signature struct {
	ID        string
	UserID    string
	Text      string
	CreatedAt time.Time
}

// Signer is the read model shown on the signers page.
type Signer struct {
	FirstName string
	LastName  string
	Age       *int
	City      string
	Homepage  string
	SignedAt  time.Time
}
