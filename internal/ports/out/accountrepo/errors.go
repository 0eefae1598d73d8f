package accountrepo

import "errors"

var (
	// ErrNotFound indicates no account is registered for the address.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists indicates an account is already registered for the address.
	ErrAlreadyExists = errors.New("account already exists")
)
