package storefakes

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/steadmanrj/linkfolio/identity"
)

var _ identity.Store = (*FakeStore)(nil)

// FakeStore is a thread-safe in-memory identity store. A single mutex guards
// every index, so the uniqueness constraints hold under concurrent Create
// calls the same way a database unique index would.
type FakeStore struct {
	lock        sync.RWMutex
	identities  map[string]*identity.Identity
	usernameIds map[string]string // username to identity id
	emailIds    map[string]string // email to identity id
	providerIds map[string]string // provider subject to identity id
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		identities:  make(map[string]*identity.Identity),
		usernameIds: make(map[string]string),
		emailIds:    make(map[string]string),
		providerIds: make(map[string]string),
	}
}

func (fs *FakeStore) GetByID(_ context.Context, id string) (*identity.Identity, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	ident, ok := fs.identities[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return copyIdentity(ident), nil
}

func (fs *FakeStore) GetByUsername(_ context.Context, username string) (*identity.Identity, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	id, ok := fs.usernameIds[username]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return copyIdentity(fs.identities[id]), nil
}

func (fs *FakeStore) GetByEmail(_ context.Context, email string) (*identity.Identity, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	id, ok := fs.emailIds[email]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return copyIdentity(fs.identities[id]), nil
}

func (fs *FakeStore) GetByProviderID(_ context.Context, providerID string) (*identity.Identity, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	id, ok := fs.providerIds[providerID]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return copyIdentity(fs.identities[id]), nil
}

func (fs *FakeStore) Create(_ context.Context, ident *identity.Identity) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	if err := fs.checkConstraints(ident, ""); err != nil {
		return err
	}

	stored := copyIdentity(ident)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	fs.index(stored)
	ident.ID = stored.ID
	return nil
}

func (fs *FakeStore) Update(_ context.Context, ident *identity.Identity) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	existing, ok := fs.identities[ident.ID]
	if !ok {
		return identity.ErrNotFound
	}
	if err := fs.checkConstraints(ident, ident.ID); err != nil {
		return err
	}

	fs.unindex(existing)
	fs.index(copyIdentity(ident))
	return nil
}

// checkConstraints enforces uniqueness, ignoring rows owned by selfID.
func (fs *FakeStore) checkConstraints(ident *identity.Identity, selfID string) error {
	if id, ok := fs.usernameIds[ident.Username]; ok && id != selfID {
		return identity.ErrUsernameTaken
	}
	if ident.Email != "" {
		if id, ok := fs.emailIds[ident.Email]; ok && id != selfID {
			return identity.ErrEmailTaken
		}
	}
	if ident.ProviderID != "" {
		if id, ok := fs.providerIds[ident.ProviderID]; ok && id != selfID {
			return identity.ErrProviderIDTaken
		}
	}
	return nil
}

func (fs *FakeStore) index(ident *identity.Identity) {
	fs.identities[ident.ID] = ident
	fs.usernameIds[ident.Username] = ident.ID
	if ident.Email != "" {
		fs.emailIds[ident.Email] = ident.ID
	}
	if ident.ProviderID != "" {
		fs.providerIds[ident.ProviderID] = ident.ID
	}
}

func (fs *FakeStore) unindex(ident *identity.Identity) {
	delete(fs.usernameIds, ident.Username)
	if ident.Email != "" {
		delete(fs.emailIds, ident.Email)
	}
	if ident.ProviderID != "" {
		delete(fs.providerIds, ident.ProviderID)
	}
}

func copyIdentity(ident *identity.Identity) *identity.Identity {
	c := *ident
	return &c
}
