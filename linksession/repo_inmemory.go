package linksession

import (
	"sync"

	"github.com/jrsteele09/go-link-server/internal/errors"
	"github.com/jrsteele09/go-link-server/protocol"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryRepo creates a new in-memory session registry.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session in the connecting state.
func (r *InMemoryRepo) Create(mode protocol.Mode, phone string) *Session {
	session := New(mode, phone)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return session
}

// Get retrieves a session by id.
func (r *InMemoryRepo) Get(id string) (*Session, error) {
	if id == "" {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "[InMemoryRepo Get] empty id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrSessionNotFound, "[InMemoryRepo Get] id %s", id)
	}
	return session, nil
}
