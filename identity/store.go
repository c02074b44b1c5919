package identity

import "context"

// Store is the durable record of accounts. Implementations must enforce the
// username/email/provider-id uniqueness constraints atomically: concurrent
// Create calls with the same username yield exactly one success and one
// ErrUsernameTaken, never two accounts.
type Store interface {
	// GetByID retrieves an identity by its unique ID
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByUsername retrieves an identity by its handle
	GetByUsername(ctx context.Context, username string) (*Identity, error)

	// GetByEmail retrieves an identity by email
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// GetByProviderID retrieves an identity by the external IdP subject
	GetByProviderID(ctx context.Context, providerID string) (*Identity, error)

	// Create stores a new identity, assigning an ID if empty. Fails with a
	// typed constraint error on any uniqueness violation, leaving no
	// partial write.
	Create(ctx context.Context, ident *Identity) error

	// Update replaces an existing identity record, subject to the same
	// uniqueness constraints as Create.
	Update(ctx context.Context, ident *Identity) error
}
