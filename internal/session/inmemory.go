package session

import (
	"context"
	"sort"
	"sync"

	"github.com/mohammad-safakhou/postpilot/models"
)

// InMemoryRegistry is the default, process-local registry. Sessions do not
// survive a restart, matching the no-durable-store assumption; leaked vectors
// stay reachable through cleanup's metadata filters regardless.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{sessions: make(map[string]models.Session)}
}

func (r *InMemoryRegistry) Create(_ context.Context, sess models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
	return nil
}

func (r *InMemoryRegistry) Get(_ context.Context, id string) (models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return models.Session{}, models.ErrSessionNotFound
	}
	return sess, nil
}

func (r *InMemoryRegistry) Update(_ context.Context, id string, mutate func(*models.Session)) (models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return models.Session{}, models.ErrSessionNotFound
	}
	mutate(&sess)
	r.sessions[id] = sess
	return sess, nil
}

func (r *InMemoryRegistry) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRegistry) List(_ context.Context) ([]models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
