package session

import (
	"sync"

	"tribuna.app/internal/catalog"
	"tribuna.app/internal/ids"
)

// Registry holds live sessions keyed by id. It backs the HTTP surface,
// which addresses sessions by the id returned at creation.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Controller
	catalog  catalog.Provider
	opts     []Option
}

// NewRegistry creates an empty registry. opts are forwarded to every
// session it creates.
func NewRegistry(provider catalog.Provider, opts ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
		catalog:  provider,
		opts:     opts,
	}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := ids.New()
	c := New(r.catalog, r.opts...)
	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()
	return id, c
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Delete destroys a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
