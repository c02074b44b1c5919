package client

import "errors"

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrBridgeFailed    = errors.New("bridge self-verification failed")
)
