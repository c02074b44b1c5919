package repofakes

import (
	"context"
	"sync"

	"github.com/steadmanrj/linkfolio/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a thread-safe in-memory implementation of sessions.Repo
type FakeSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*sessions.Session
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*sessions.Session),
	}
}

func (r *FakeSessionRepo) Upsert(_ context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return sessions.ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *session
	r.sessions[session.ID] = &stored
	return nil
}

func (r *FakeSessionRepo) Get(_ context.Context, sessionID string) (*sessions.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

// Update applies fn under the repo lock so concurrent updates to the same
// session cannot interleave.
func (r *FakeSessionRepo) Update(_ context.Context, sessionID string, fn func(*sessions.Session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	return fn(session)
}

func (r *FakeSessionRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}
