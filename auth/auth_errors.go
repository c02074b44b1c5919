package auth

import "errors"

var (
	ErrUnauthenticated        = errors.New("no usable credential")
	ErrInvalidCredential      = errors.New("invalid credential")
	ErrStateMismatch          = errors.New("oauth state mismatch")
	ErrProviderAuthFailed     = errors.New("provider authentication failed")
	ErrIdentityCreationFailed = errors.New("identity creation failed")
)
