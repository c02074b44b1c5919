package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/steadmanrj/linkfolio/auth"
	"github.com/steadmanrj/linkfolio/authflow"
	"github.com/steadmanrj/linkfolio/identity"
	"github.com/steadmanrj/linkfolio/identity/storefakes"
	"github.com/steadmanrj/linkfolio/provider"
	"github.com/steadmanrj/linkfolio/provider/providerfakes"
	"github.com/steadmanrj/linkfolio/sessions"
	"github.com/steadmanrj/linkfolio/sessions/repofakes"
	"github.com/steadmanrj/linkfolio/token"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service     *auth.Service
	identities  *storefakes.FakeStore
	sessionRepo *repofakes.FakeSessionRepo
	flow        *authflow.InMemoryRepo
	idp         *providerfakes.FakeClient
	minter      *token.Minter
	now         time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		identities:  storefakes.NewFakeStore(),
		sessionRepo: repofakes.NewFakeSessionRepo(),
		flow:        authflow.NewInMemoryRepo(),
		idp:         &providerfakes.FakeClient{},
		now:         time.Now(),
	}

	sessionManager, err := sessions.NewManager(f.sessionRepo)
	require.NoError(t, err)

	f.minter, err = token.NewMinter(token.NewHMACSigner("service-test-secret"))
	require.NoError(t, err)

	f.service, err = auth.NewService(
		auth.Repos{Identities: f.identities, Flow: f.flow},
		sessionManager,
		f.minter,
		f.idp,
		auth.WithNowTime(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	return f
}

func (f *serviceFixture) seedIdentity(t *testing.T, ident *identity.Identity) *identity.Identity {
	t.Helper()
	require.NoError(t, f.identities.Create(context.Background(), ident))
	return ident
}

func (f *serviceFixture) seedPasswordIdentity(t *testing.T, email, username, password string) *identity.Identity {
	t.Helper()
	hash, err := identity.HashPassword(password)
	require.NoError(t, err)
	return f.seedIdentity(t, &identity.Identity{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
	})
}

// startFlow runs BeginOAuth and returns the state key the provider was
// handed, which is what the callback carries back.
func (f *serviceFixture) startFlow(t *testing.T, pendingUsername string) string {
	t.Helper()
	redirect, err := f.service.BeginOAuth(pendingUsername)
	require.NoError(t, err)
	require.Contains(t, redirect, f.idp.LastState)
	return f.idp.LastState
}

func TestLoginWithPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("success establishes session and mints token", func(t *testing.T) {
		f := newServiceFixture(t)
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		result, err := f.service.LoginWithPassword(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		require.Equal(t, seeded.ID, result.Identity.ID)
		require.NotEmpty(t, result.Token)
		require.NotEmpty(t, result.SessionID)

		claims, err := f.minter.Verify(result.Token)
		require.NoError(t, err)
		require.Equal(t, seeded.ID, claims.UserID)
	})

	t.Run("wrong password is indistinguishable from unknown email", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		_, wrongPassword := f.service.LoginWithPassword(ctx, "alice@example.com", "nope")
		_, unknownEmail := f.service.LoginWithPassword(ctx, "nobody@example.com", "password123")

		require.ErrorIs(t, wrongPassword, auth.ErrInvalidCredential)
		require.ErrorIs(t, unknownEmail, auth.ErrInvalidCredential)
	})

	t.Run("oauth-only account cannot log in with a password", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedIdentity(t, &identity.Identity{
			Email:      "oauth@example.com",
			Username:   "oauthonly",
			ProviderID: "sub-oauth",
		})

		_, err := f.service.LoginWithPassword(ctx, "oauth@example.com", "")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})
}

func TestResolveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("no credentials", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.ResolveRequest(ctx, "", "")
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("session cookie resolves to a live identity", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")
		result, err := f.service.LoginWithPassword(ctx, "alice@example.com", "password123")
		require.NoError(t, err)

		ident, err := f.service.ResolveRequest(ctx, result.SessionID, "")
		require.NoError(t, err)
		require.Equal(t, "alice", ident.Username)
	})

	t.Run("bearer token is a fallback, not a cache", func(t *testing.T) {
		f := newServiceFixture(t)
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")
		result, err := f.service.LoginWithPassword(ctx, "alice@example.com", "password123")
		require.NoError(t, err)

		// Rename after the token was minted
		_, err = f.service.Rename(ctx, seeded, "alice_renamed")
		require.NoError(t, err)

		// The stale token still authenticates, but the identity served is
		// the live record with the new username.
		ident, err := f.service.ResolveRequest(ctx, "", result.Token)
		require.NoError(t, err)
		require.Equal(t, "alice_renamed", ident.Username)
	})

	t.Run("tampered bearer token", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.ResolveRequest(ctx, "", "not.a.token")
		require.ErrorIs(t, err, auth.ErrInvalidCredential)
	})

	t.Run("valid token for a deleted account", func(t *testing.T) {
		f := newServiceFixture(t)
		minted, err := f.minter.Mint(&identity.Identity{ID: "ghost", Username: "ghost"})
		require.NoError(t, err)

		_, err = f.service.ResolveRequest(ctx, "", minted)
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("dead session falls through to bearer token", func(t *testing.T) {
		f := newServiceFixture(t)
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")
		minted, err := f.minter.Mint(seeded)
		require.NoError(t, err)

		ident, err := f.service.ResolveRequest(ctx, "expired-or-bogus-session", minted)
		require.NoError(t, err)
		require.Equal(t, seeded.ID, ident.ID)
	})
}

func TestCompleteOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("new visitor with pending username", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{
			Subject: "sub-1",
			Email:   "new@example.com",
			Name:    "New Visitor",
			Picture: "https://cdn.example.com/p.png",
		}

		state := f.startFlow(t, "  Chosen_Name ")

		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.Equal(t, "chosen_name", result.Identity.Username)
		require.Equal(t, "sub-1", result.Identity.ProviderID)
		require.NotEmpty(t, result.Token)
		require.NotEmpty(t, result.SessionID)
	})

	t.Run("pending username already taken falls back", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedIdentity(t, &identity.Identity{Username: "wanted", Email: "other@example.com"})
		f.idp.Profile = &provider.Profile{Subject: "sub-2", Email: "new@example.com"}

		state := f.startFlow(t, "wanted")

		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.NotEqual(t, "wanted", result.Identity.Username)
		require.True(t, strings.HasPrefix(result.Identity.Username, "user_"), result.Identity.Username)
	})

	t.Run("invalid pending username falls back without failing the flow", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{Subject: "sub-3", Email: "new@example.com"}

		state := f.startFlow(t, "Not Valid!!")

		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(result.Identity.Username, "user_"), result.Identity.Username)
	})

	t.Run("returning account by provider subject ignores pending username", func(t *testing.T) {
		f := newServiceFixture(t)
		existing := f.seedIdentity(t, &identity.Identity{
			Username:   "veteran",
			Email:      "veteran@example.com",
			ProviderID: "sub-4",
		})
		f.idp.Profile = &provider.Profile{Subject: "sub-4", Email: "veteran@example.com"}

		state := f.startFlow(t, "newname")

		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.Equal(t, existing.ID, result.Identity.ID)
		require.Equal(t, "veteran", result.Identity.Username)
	})

	t.Run("email match binds the provider subject", func(t *testing.T) {
		f := newServiceFixture(t)
		existing := f.seedIdentity(t, &identity.Identity{
			Username: "emailonly",
			Email:    "linked@example.com",
		})
		f.idp.Profile = &provider.Profile{Subject: "sub-5", Email: "linked@example.com"}

		state := f.startFlow(t, "")

		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.Equal(t, existing.ID, result.Identity.ID)

		bound, err := f.identities.GetByProviderID(ctx, "sub-5")
		require.NoError(t, err)
		require.Equal(t, existing.ID, bound.ID)
	})

	t.Run("unknown state aborts", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.CompleteOAuth(ctx, "forged-state", "auth-code")
		require.ErrorIs(t, err, auth.ErrStateMismatch)
	})

	t.Run("replayed state aborts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{Subject: "sub-6", Email: "replay@example.com"}

		state := f.startFlow(t, "")

		_, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)

		_, err = f.service.CompleteOAuth(ctx, state, "auth-code")
		require.ErrorIs(t, err, auth.ErrStateMismatch)
	})

	t.Run("stale state aborts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{Subject: "sub-7", Email: "stale@example.com"}

		state := f.startFlow(t, "")
		f.now = f.now.Add(11 * time.Minute)

		_, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.ErrorIs(t, err, auth.ErrStateMismatch)
	})

	t.Run("nonce mismatch aborts", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{
			Subject: "sub-8",
			Email:   "nonce@example.com",
			Nonce:   "a-nonce-from-some-other-flow",
		}

		state := f.startFlow(t, "")

		_, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.ErrorIs(t, err, auth.ErrStateMismatch)
	})

	t.Run("provider exchange failure", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.ExchangeErr = errors.New("idp: bad code")

		state := f.startFlow(t, "")

		_, err := f.service.CompleteOAuth(ctx, state, "bad-code")
		require.ErrorIs(t, err, auth.ErrProviderAuthFailed)
	})

	t.Run("profile without an email still creates an account", func(t *testing.T) {
		f := newServiceFixture(t)
		f.idp.Profile = &provider.Profile{Subject: "sub-9", Email: ""}

		state := f.startFlow(t, "")
		result, err := f.service.CompleteOAuth(ctx, state, "auth-code")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(result.Identity.Username, "user_"))
		require.Equal(t, "sub-9", result.Identity.ProviderID)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("only the presented session dies", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		browser, err := f.service.LoginWithPassword(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		phone, err := f.service.LoginWithPassword(ctx, "alice@example.com", "password123")
		require.NoError(t, err)

		require.NoError(t, f.service.Logout(ctx, browser.SessionID))

		_, err = f.service.ResolveRequest(ctx, browser.SessionID, "")
		require.ErrorIs(t, err, auth.ErrUnauthenticated)

		ident, err := f.service.ResolveRequest(ctx, phone.SessionID, "")
		require.NoError(t, err)
		require.Equal(t, "alice", ident.Username)

		// Tokens minted before logout still resolve; logout is session-scoped
		ident, err = f.service.ResolveRequest(ctx, "", browser.Token)
		require.NoError(t, err)
		require.Equal(t, "alice", ident.Username)
	})

	t.Run("logout without a session is a no-op", func(t *testing.T) {
		f := newServiceFixture(t)
		require.NoError(t, f.service.Logout(ctx, ""))
	})
}

func TestRename(t *testing.T) {
	ctx := context.Background()

	t.Run("success remints the token", func(t *testing.T) {
		f := newServiceFixture(t)
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		result, err := f.service.Rename(ctx, seeded, "alice_v2")
		require.NoError(t, err)
		require.Equal(t, "alice_v2", result.Identity.Username)

		claims, err := f.minter.Verify(result.Token)
		require.NoError(t, err)
		require.Equal(t, "alice_v2", claims.Username)

		stored, err := f.identities.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.Equal(t, "alice_v2", stored.Username)
	})

	t.Run("invalid format", func(t *testing.T) {
		f := newServiceFixture(t)
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		_, err := f.service.Rename(ctx, seeded, "Not Valid!")
		require.ErrorIs(t, err, identity.ErrInvalidUsername)
	})

	t.Run("taken username", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedIdentity(t, &identity.Identity{Username: "occupied", Email: "other@example.com"})
		seeded := f.seedPasswordIdentity(t, "alice@example.com", "alice", "password123")

		_, err := f.service.Rename(ctx, seeded, "occupied")
		require.ErrorIs(t, err, identity.ErrUsernameTaken)
	})
}
