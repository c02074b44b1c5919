package identity

import "errors"

var (
	ErrNotFound        = errors.New("identity not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrEmailTaken      = errors.New("email already taken")
	ErrProviderIDTaken = errors.New("provider id already bound")
	ErrInvalidUsername = errors.New("username must match [a-z0-9_]{3,20}")
)
