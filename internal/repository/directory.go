package repository

import "context"

// Directory bundles the repositories backing the petition together with a
// liveness probe for the underlying database.
type Directory struct {
	Users      UserRepository
	Profiles   ProfileRepository
	Signatures SignatureRepository
	Ping       func(ctx context.Context) error
}
