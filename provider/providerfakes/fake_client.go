package providerfakes

import (
	"context"
	"errors"
	"sync"

	"github.com/steadmanrj/linkfolio/provider"
)

var _ provider.Client = (*FakeClient)(nil)

// FakeClient is a test double for the external identity provider. It echoes
// the nonce it was handed in AuthCodeURL back into the exchanged profile,
// the way a real provider copies the nonce into the ID token.
type FakeClient struct {
	mu sync.Mutex

	Profile     *provider.Profile
	ExchangeErr error

	LastState string
	LastNonce string
	LastCode  string
}

func (f *FakeClient) AuthCodeURL(state, nonce string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastState = state
	f.LastNonce = nonce
	return "https://idp.example.com/authorize?state=" + state + "&nonce=" + nonce
}

func (f *FakeClient) Exchange(_ context.Context, code string) (*provider.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.LastCode = code
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	if f.Profile == nil {
		return nil, errors.New("fake provider: no profile configured")
	}

	profile := *f.Profile
	if profile.Nonce == "" {
		profile.Nonce = f.LastNonce
	}
	return &profile, nil
}
