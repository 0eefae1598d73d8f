package registryrepo

import "errors"

var (
	ErrNotFound      = errors.New("registry not found")
	ErrAlreadyExists = errors.New("registry already exists")
)
