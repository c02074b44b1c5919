package client

import "sync"

// Event signals a change to the stored credential. Watchers receive one
// event per change; there is no polling anywhere in this package.
type Event struct {
	Token string // New token value, empty when the credential was cleared
}

// TokenStore is durable client-side credential storage. Implementations
// must notify watchers on every change.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error

	// Watch returns a channel that receives an Event for every Save and
	// Clear. The channel is never closed by the store.
	Watch() <-chan Event
}

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore is a thread-safe in-process TokenStore.
type MemoryStore struct {
	mu       sync.Mutex
	token    string
	watchers []chan Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	watchers := append([]chan Event(nil), m.watchers...)
	m.mu.Unlock()

	notify(watchers, Event{Token: token})
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.token = ""
	watchers := append([]chan Event(nil), m.watchers...)
	m.mu.Unlock()

	notify(watchers, Event{})
	return nil
}

func (m *MemoryStore) Watch() <-chan Event {
	ch := make(chan Event, 8)
	m.mu.Lock()
	m.watchers = append(m.watchers, ch)
	m.mu.Unlock()
	return ch
}

// notify never blocks: a watcher that has fallen behind misses events
// rather than stalling every other watcher.
func notify(watchers []chan Event, event Event) {
	for _, ch := range watchers {
		select {
		case ch <- event:
		default:
		}
	}
}
