package provider

import "context"

// Profile is the normalized identity returned by the external provider
// after a successful code exchange. It contains facts only, no decisions.
type Profile struct {
	Subject string // Provider-scoped unique user identifier (sub)
	Email   string
	Name    string
	Picture string
	Nonce   string // Nonce claim from the ID token, checked by the orchestrator
}

// Client drives the provider leg of the authorization-code flow.
type Client interface {
	// AuthCodeURL builds the provider redirect URL carrying state and nonce
	AuthCodeURL(state, nonce string) string

	// Exchange trades an authorization code for the verified user profile
	Exchange(ctx context.Context, code string) (*Profile, error)
}
