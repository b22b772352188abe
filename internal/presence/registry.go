// Package presence is the single owner of the online-users map. Nothing
// outside this package touches connection handles grouped by user.
package presence

import (
	"sort"
	"sync"
)

// Handle is one live client connection able to receive pushed payloads.
// Enqueue must not block; it reports whether the payload was accepted.
type Handle interface {
	Enqueue(payload []byte) bool
}

// Registry tracks which users currently hold live connections. A user
// may hold several handles at once (multiple devices or tabs); they are
// online while at least one handle remains. The registry is in-memory
// only and starts empty on process restart.
type Registry struct {
	mu     sync.RWMutex
	online map[int]map[Handle]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{online: make(map[int]map[Handle]struct{})}
}

// Register adds a handle for the user and reports whether this was the
// user's first live handle (an offline -> online edge).
func (r *Registry) Register(userID int, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles, ok := r.online[userID]
	if !ok {
		handles = make(map[Handle]struct{})
		r.online[userID] = handles
	}
	handles[h] = struct{}{}
	return !ok
}

// Unregister removes a handle and reports whether it was the user's
// last one (an online -> offline edge). Unknown handles are ignored.
func (r *Registry) Unregister(userID int, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles, ok := r.online[userID]
	if !ok {
		return false
	}
	if _, ok := handles[h]; !ok {
		return false
	}
	delete(handles, h)
	if len(handles) == 0 {
		delete(r.online, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user holds at least one live handle.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.online[userID]) > 0
}

// HandlesFor returns the user's live handles, possibly none.
func (r *Registry) HandlesFor(userID int) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handles := make([]Handle, 0, len(r.online[userID]))
	for h := range r.online[userID] {
		handles = append(handles, h)
	}
	return handles
}

// Snapshot returns the sorted set of currently-online user ids.
func (r *Registry) Snapshot() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.online))
	for id := range r.online {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// AllHandles returns every live handle across all users.
func (r *Registry) AllHandles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var handles []Handle
	for _, set := range r.online {
		for h := range set {
			handles = append(handles, h)
		}
	}
	return handles
}
