package signaling

import "sync"

// Registry maps a user identity to its current live connection. It is the
// single source of truth for "is this user reachable right now".
//
// At most one connection per identity: a later announce for the same identity
// silently supersedes the earlier one, so a user logging in on a second device
// takes over routing. The superseded connection stays open but unroutable
// until it disconnects.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Announce registers or overwrites the identity mapping. Idempotent.
func (r *Registry) Announce(identity string, c *Client) {
	r.mu.Lock()
	r.clients[identity] = c
	r.mu.Unlock()
}

// Resolve returns the live connection for identity. A miss means the user is
// currently unreachable, which is a normal outcome, not a fault.
func (r *Registry) Resolve(identity string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[identity]
	return c, ok
}

// Unregister removes every entry still pointing at c and reports the removed
// identities. The map is keyed in the opposite direction, so this scans; size
// is bounded by connected users. Entries for identities that re-announced on a
// newer connection are left alone.
func (r *Registry) Unregister(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for identity, cur := range r.clients {
		if cur == c {
			delete(r.clients, identity)
			removed = append(removed, identity)
		}
	}
	return removed
}

// Online lists the identities with a live connection.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.clients))
	for identity := range r.clients {
		ids = append(ids, identity)
	}
	return ids
}

// each calls fn for every registered connection. Snapshot first so fn can
// send without holding the registry lock.
func (r *Registry) each(fn func(identity string, c *Client)) {
	r.mu.RLock()
	type entry struct {
		identity string
		client   *Client
	}
	entries := make([]entry, 0, len(r.clients))
	for identity, c := range r.clients {
		entries = append(entries, entry{identity, c})
	}
	r.mu.RUnlock()

	for _, e := range entries {
		fn(e.identity, e.client)
	}
}
