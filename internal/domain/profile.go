package domain

import "time"

// Profile holds the optional details a user may add after registering.
type Profile struct {
	UserID    string
	Age       *int
	City      string
	Homepage  string
	UpdatedAt time.Time
}
