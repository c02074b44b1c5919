package authflow

import (
	"errors"
	"sync"
)

var ErrStateNotFound = errors.New("oauth state not found")

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*State),
	}
}

// Save stores an auth flow state
func (r *InMemoryRepo) Save(key string, state *State) error {
	if key == "" {
		return errors.New("state key cannot be empty")
	}
	if state == nil {
		return errors.New("state cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to prevent external modifications
	stored := *state
	r.states[key] = &stored
	return nil
}

// Consume retrieves and deletes a state in one step, under one lock, so a
// replayed callback cannot observe the state a second time.
func (r *InMemoryRepo) Consume(key string) (*State, error) {
	if key == "" {
		return nil, ErrStateNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, exists := r.states[key]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.states, key)

	copied := *state
	return &copied, nil
}
