package authflow

import "time"

// State is the ephemeral, single-use record correlating the two requests of
// an OAuth authorization-code round trip. It is keyed by the provider
// `state` parameter and must be consumed exactly once; a missing or
// already-consumed key invalidates the flow.
type State struct {
	CSRF            string    // Echo of the state key, cross-checked on consume
	Nonce           string    // OIDC nonce bound to the ID token
	PendingUsername string    // Visitor-chosen handle, applied only to a new account
	Correlation     string    // Flow correlation ID for logging
	CreatedAt       time.Time
}

// Repo stores in-flight OAuth states.
type Repo interface {
	// Save persists a state under its key before the redirect is issued
	Save(key string, state *State) error

	// Consume atomically retrieves and deletes a state. A second Consume
	// of the same key fails with ErrStateNotFound.
	Consume(key string) (*State, error)
}
