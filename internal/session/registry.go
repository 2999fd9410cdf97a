package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/amestrin/crosstune/internal/models"
	"github.com/amestrin/crosstune/internal/shared"
)

// Registry tracks live sessions by id and serializes phase transitions per
// session. Status reads go straight to the session and are never queued
// behind a transition.
type Registry struct {
	deps Deps

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	session *Session
	// phase serializes transition calls for one session so concurrent
	// callers observe a coherent lifecycle.
	phase sync.Mutex
}

// NewRegistry creates a registry that builds sessions with the given deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:    deps,
		entries: make(map[string]*entry),
	}
}

// Create allocates and registers a new session.
func (r *Registry) Create(source, target models.Platform) (*Session, error) {
	session, err := New(source, target, r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[session.ID()] = &entry{session: session}
	r.mu.Unlock()

	return session, nil
}

// Get returns the session for an id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownSession, id)
	}
	return e.session, nil
}

// Transition runs fn against the session with that session's phase lock
// held, serializing it against other transitions on the same id.
func (r *Registry) Transition(ctx context.Context, id string, fn func(ctx context.Context, s *Session) error) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrUnknownSession, id)
	}

	e.phase.Lock()
	defer e.phase.Unlock()
	return fn(ctx, e.session)
}

// Remove cancels the session (releasing its resources if still live) and
// drops it from the registry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		e.session.Cancel()
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Shutdown cancels every registered session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.session.Cancel()
	}
}
