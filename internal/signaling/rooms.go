package signaling

import "sync"

// Rooms maps a conversation id to the set of connections subscribed to it.
// There is no leave operation; membership lasts for the life of the
// connection. The reverse index (connection -> joined rooms) exists so Drop
// can prune stale members instead of leaving them behind.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[*Client]struct{}
	joined  map[*Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[*Client]struct{}),
		joined:  make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to the room's member set, creating the room lazily.
func (r *Rooms) Join(roomID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[roomID] == nil {
		r.members[roomID] = make(map[*Client]struct{})
	}
	r.members[roomID][c] = struct{}{}

	if r.joined[c] == nil {
		r.joined[c] = make(map[string]struct{})
	}
	r.joined[c][roomID] = struct{}{}
}

// Broadcast queues payload for every member of the room, skipping except if
// non-nil. Fire-and-forget: members with a full send buffer are skipped.
// Returns the number of deliveries attempted successfully.
func (r *Rooms) Broadcast(roomID string, payload []byte, except *Client) int {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.members[roomID]))
	for c := range r.members[roomID] {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.trySend(payload) {
			delivered++
		}
	}
	return delivered
}

// MemberCount reports how many connections are subscribed to the room.
func (r *Rooms) MemberCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[roomID])
}

// Drop removes c from every room it joined and empties vacated rooms.
func (r *Rooms) Drop(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.joined[c] {
		delete(r.members[roomID], c)
		if len(r.members[roomID]) == 0 {
			delete(r.members, roomID)
		}
	}
	delete(r.joined, c)
}
