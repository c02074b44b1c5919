package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/steadmanrj/linkfolio/client"
	"github.com/steadmanrj/linkfolio/identity"
	"github.com/stretchr/testify/require"
)

const testToken = "token-abc"

// newAuthBackend serves just enough of the auth surface for the client:
// /auth/identity answers 200 for testToken and 401 for anything else,
// /auth/login answers a fixed credential, /auth/logout always accepts.
func newAuthBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/identity", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(identity.Identity{ID: "user-1", Username: "alice", Email: "alice@example.com"})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "password123" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token":    testToken,
			"identity": identity.Identity{ID: "user-1", Username: "alice", Email: req.Email},
		})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)
	return backend
}

func TestClient_LoginAndIdentity(t *testing.T) {
	backend := newAuthBackend(t)
	store := client.NewMemoryStore()
	c, err := client.New(backend.URL, store)
	require.NoError(t, err)

	ctx := context.Background()

	// Before login there is nothing to resolve
	_, err = c.Identity(ctx)
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	ident, err := c.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "alice", ident.Username)

	saved, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, testToken, saved)

	ident, err = c.Identity(ctx)
	require.NoError(t, err)
	require.Equal(t, "user-1", ident.ID)
}

func TestClient_LoginFailureLeavesStoreEmpty(t *testing.T) {
	backend := newAuthBackend(t)
	store := client.NewMemoryStore()
	c, err := client.New(backend.URL, store)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, client.ErrUnauthenticated)

	saved, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestClient_Logout(t *testing.T) {
	backend := newAuthBackend(t)
	store := client.NewMemoryStore()
	c, err := client.New(backend.URL, store)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, c.Logout(ctx))

	saved, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, saved)

	_, err = c.Identity(ctx)
	require.ErrorIs(t, err, client.ErrUnauthenticated)
}

func TestClient_CompleteBridge(t *testing.T) {
	t.Run("valid token is persisted and verified", func(t *testing.T) {
		backend := newAuthBackend(t)
		store := client.NewMemoryStore()
		c, err := client.New(backend.URL, store)
		require.NoError(t, err)

		ident, err := c.CompleteBridge(context.Background(), testToken)
		require.NoError(t, err)
		require.Equal(t, "alice", ident.Username)

		saved, err := store.Load()
		require.NoError(t, err)
		require.Equal(t, testToken, saved)
	})

	t.Run("unverifiable token is rolled back", func(t *testing.T) {
		backend := newAuthBackend(t)
		store := client.NewMemoryStore()
		c, err := client.New(backend.URL, store)
		require.NoError(t, err)

		_, err = c.CompleteBridge(context.Background(), "forged-token")
		require.ErrorIs(t, err, client.ErrBridgeFailed)

		// The bad credential must not linger in storage
		saved, err := store.Load()
		require.NoError(t, err)
		require.Empty(t, saved)
	})

	t.Run("empty token fails immediately", func(t *testing.T) {
		backend := newAuthBackend(t)
		c, err := client.New(backend.URL, client.NewMemoryStore())
		require.NoError(t, err)

		_, err = c.CompleteBridge(context.Background(), "")
		require.ErrorIs(t, err, client.ErrBridgeFailed)
	})

	t.Run("verification is bounded, a hung server cannot stall it", func(t *testing.T) {
		hung := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer hung.Close()

		store := client.NewMemoryStore()
		c, err := client.New(hung.URL, store)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err = c.CompleteBridge(ctx, testToken)
		require.ErrorIs(t, err, client.ErrBridgeFailed)
		require.Less(t, time.Since(start), 5*time.Second)

		saved, err := store.Load()
		require.NoError(t, err)
		require.Empty(t, saved)
	})
}

func TestClient_WatchSeesEveryChange(t *testing.T) {
	backend := newAuthBackend(t)
	store := client.NewMemoryStore()
	c, err := client.New(backend.URL, store)
	require.NoError(t, err)

	events := c.Watch()
	ctx := context.Background()

	_, err = c.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, client.Event{Token: testToken}, <-events)

	require.NoError(t, c.Logout(ctx))
	require.Equal(t, client.Event{}, <-events)
}
