package ws

import (
	"encoding/json"
	"sync"
)

// Outcome is the settled result of one correlated request: the raw response
// payload, or the failure that ended it.
type Outcome struct {
	Raw json.RawMessage
	Err error
}

// Registry tracks in-flight requests by correlation id. It owns each pending
// continuation exclusively until it settles exactly once; ids increase
// monotonically and are never reused within a connection's lifetime.
type Registry struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Outcome
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[uint64]chan Outcome)}
}

// Register allocates the next correlation id and a handle the caller awaits.
func (r *Registry) Register() (uint64, <-chan Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	ch := make(chan Outcome, 1)
	r.pending[id] = ch
	return id, ch
}

// Resolve fulfills the pending entry for id with the raw payload. An
// unmatched id is a no-op and reports false so the caller can log it.
func (r *Registry) Resolve(id uint64, raw json.RawMessage) bool {
	return r.settle(id, Outcome{Raw: raw})
}

// Reject fails the pending entry for id. Unmatched ids are a no-op.
func (r *Registry) Reject(id uint64, err error) bool {
	return r.settle(id, Outcome{Err: err})
}

func (r *Registry) settle(id uint64, out Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.pending[id]
	if !ok {
		return false
	}
	delete(r.pending, id)
	ch <- out
	return true
}

// RejectAll fails every pending entry and clears the registry. Called on
// connection loss so no caller waits forever across a reconnect.
func (r *Registry) RejectAll(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.pending {
		delete(r.pending, id)
		ch <- Outcome{Err: err}
	}
}

// PendingCount reports how many requests are awaiting a response.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
