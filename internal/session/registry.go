package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m2tx/manualchat/internal/model"
	"github.com/patrickmn/go-cache"
)

type entry struct {
	mu      sync.Mutex
	session *Session
}

// Registry keeps the in-process sessions keyed by ID. Idle sessions expire
// after the configured duration and everything is lost on restart.
type Registry struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewRegistry creates a registry whose sessions expire after idle time
// without use.
func NewRegistry(idle time.Duration) *Registry {
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	return &Registry{
		cache: cache.New(idle, idle/4),
	}
}

// Create starts a new empty session and returns its ID.
func (r *Registry) Create() string {
	id := uuid.NewString()
	r.cache.SetDefault(id, &entry{session: New(id)})
	return id
}

// With runs fn with exclusive access to the session id. An unknown or idled
// out id is a SessionNotFound error. Calls against the same session never
// overlap.
func (r *Registry) With(id string, fn func(s *Session) error) error {
	e, ok := r.load(id)
	if !ok {
		return model.Errorf(model.KindSessionNotFound, "session %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// Exists reports whether id names a live session.
func (r *Registry) Exists(id string) bool {
	_, ok := r.cache.Get(id)
	return ok
}

// Delete forgets the session.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return r.cache.ItemCount()
}

func (r *Registry) load(id string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	e := x.(*entry)
	// touch to extend the idle window
	r.cache.SetDefault(id, e)
	return e, true
}
