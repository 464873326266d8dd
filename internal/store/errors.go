package store

import "errors"

// Sentinel errors surfaced to handlers. Malformed persisted data is
// deliberately absent here: it is absorbed at the store boundary and
// degrades to an empty collection.
var (
	ErrDuplicateIdentity   = errors.New("email or phone already registered")
	ErrDuplicateSecretCode = errors.New("secret code already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidGuestCode    = errors.New("invalid secret code")
	ErrNotFound            = errors.New("record not found")
	ErrPermissionDenied    = errors.New("permission denied")
)
