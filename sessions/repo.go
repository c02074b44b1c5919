package sessions

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Repo defines the interface for session storage operations.
//
// Update is an atomic read-modify-write: callers never read a session and
// write it back separately, which would lose updates under concurrent
// requests for the same session ID.
type Repo interface {
	// Upsert creates or replaces a session
	Upsert(ctx context.Context, session *Session) error

	// Get retrieves a session by ID
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Update applies fn to the stored session under the repo's own lock
	// or transaction and persists the result
	Update(ctx context.Context, sessionID string, fn func(*Session) error) error

	// Delete removes a session by ID; deleting a missing session is not an error
	Delete(ctx context.Context, sessionID string) error
}
