package domain

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("resource already exists")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNoCredential    = errors.New("account has no credential")
)
