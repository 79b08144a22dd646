// Package session is the mapping from vehicle id to its currently open
// message channel (spec.md §4.4). Grounded on the locking discipline of
// the teacher's geo.BoundingBoxStore: a single RWMutex guarding two
// maps kept in sync, safe under concurrent binds and channel closures.
package session

import "sync"

// Channel is anything a threat notification or acknowledgment can be
// sent over. internal/wsconn.Conn implements this.
type Channel interface {
	Send(message []byte) error
}

// Registry is the id -> Channel binding table.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]Channel
	byChan   map[Channel]map[string]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]Channel),
		byChan: make(map[Channel]map[string]struct{}),
	}
}

// Bind associates id with ch, overriding any prior binding for id. At
// most one binding exists per id at a time (spec.md invariant 4).
func (r *Registry) Bind(id string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byID[id]; ok && prev != ch {
		if ids, ok := r.byChan[prev]; ok {
			delete(ids, id)
			if len(ids) == 0 {
				delete(r.byChan, prev)
			}
		}
	}

	r.byID[id] = ch
	ids, ok := r.byChan[ch]
	if !ok {
		ids = make(map[string]struct{})
		r.byChan[ch] = ids
	}
	ids[id] = struct{}{}
}

// Count returns the number of currently bound vehicle ids.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Lookup returns the channel currently bound to id, if any.
func (r *Registry) Lookup(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.byID[id]
	return ch, ok
}

// RemoveChannel removes every id binding that points at ch. Call this
// when a channel closes.
func (r *Registry) RemoveChannel(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.byChan[ch]
	if !ok {
		return
	}
	for id := range ids {
		if r.byID[id] == ch {
			delete(r.byID, id)
		}
	}
	delete(r.byChan, ch)
}
