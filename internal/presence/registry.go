package presence

import (
	"crewboard/internal/models"
	"sort"
	"sync"
)

type Callback func(snapshot *models.PresenceSnapshot)

// Registry maps presence identities to callbacks. It is independent of the
// connection so a reconnect only has to replay IDs().
type Registry struct {
	mu          sync.RWMutex
	subscribers map[string]Callback
}

func NewRegistry() *Registry {
	return &Registry{subscribers: make(map[string]Callback)}
}

func (r *Registry) Set(id string, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[id] = cb
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, id)
}

func (r *Registry) Get(id string) (Callback, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.subscribers[id]
	return cb, ok
}

// IDs returns the registered identities in ascending order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
