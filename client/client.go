package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/steadmanrj/linkfolio/identity"
)

const defaultBridgeTimeout = 5 * time.Second

// Client is the single adapter over the auth HTTP surface. It replaces the
// assortment of session-first, token-first and hybrid identity hooks the
// frontend accumulated: one credential store, one way to resolve the
// current identity, and event-driven change notification via Watch.
type Client struct {
	baseURL string
	store   TokenStore
	http    *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// New creates a client adapter against baseURL using store as the durable
// credential storage.
func New(baseURL string, store TokenStore, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[client.New] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[client.New] token store is required")
	}

	c := &Client{
		baseURL: baseURL,
		store:   store,
		http:    http.DefaultClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Identity returns the canonical identity for the stored credential by
// asking the server; nothing is answered from local state.
func (c *Client) Identity(ctx context.Context) (*identity.Identity, error) {
	token, err := c.store.Load()
	if err != nil {
		return nil, errors.Wrap(err, "[Identity] store.Load")
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return c.fetchIdentity(ctx, token)
}

// Login authenticates with email/password, persists the returned token and
// returns the identity.
func (c *Client) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, errors.Wrap(err, "[Login] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "[Login] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Login] request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Token    string             `json:"token"`
		Identity *identity.Identity `json:"identity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "[Login] decode response")
	}

	if err := c.store.Save(payload.Token); err != nil {
		return nil, errors.Wrap(err, "[Login] store.Save")
	}
	return payload.Identity, nil
}

// Logout tells the server to destroy the session and clears the stored
// credential regardless of the server's answer.
func (c *Client) Logout(ctx context.Context) error {
	token, _ := c.store.Load()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/logout", nil)
	if err != nil {
		return errors.Wrap(err, "[Logout] build request")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if resp, err := c.http.Do(req); err == nil {
		resp.Body.Close()
	}
	return c.store.Clear()
}

// CompleteBridge is the client half of the token handoff: persist the token
// carried by the bridge redirect, self-verify it against the identity
// endpoint, and only then report success. The verification is bounded by
// the context deadline (5s by default) and cancellable by navigation away;
// it never retries. On failure the stored credential is rolled back.
func (c *Client) CompleteBridge(ctx context.Context, token string) (*identity.Identity, error) {
	if token == "" {
		return nil, ErrBridgeFailed
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultBridgeTimeout)
		defer cancel()
	}

	if err := c.store.Save(token); err != nil {
		return nil, errors.Wrap(err, "[CompleteBridge] store.Save")
	}

	ident, err := c.fetchIdentity(ctx, token)
	if err != nil {
		_ = c.store.Clear()
		return nil, errors.Wrap(ErrBridgeFailed, err.Error())
	}

	return ident, nil
}

// Watch exposes the store's change notifications so callers can react to
// credential changes without polling.
func (c *Client) Watch() <-chan Event {
	return c.store.Watch()
}

func (c *Client) fetchIdentity(ctx context.Context, token string) (*identity.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/identity", nil)
	if err != nil {
		return nil, errors.Wrap(err, "[fetchIdentity] build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[fetchIdentity] request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity: unexpected status %d", resp.StatusCode)
	}

	var ident identity.Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, errors.Wrap(err, "[fetchIdentity] decode response")
	}
	return &ident, nil
}
