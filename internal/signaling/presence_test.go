package signaling

import (
	"sort"
	"testing"
)

func TestRegistryAnnounceResolve(t *testing.T) {
	r := NewRegistry()
	c := &Client{ID: "h1", send: make(chan []byte, 1)}

	if _, ok := r.Resolve("alice"); ok {
		t.Fatalf("resolved identity before announce")
	}

	r.Announce("alice", c)
	got, ok := r.Resolve("alice")
	if !ok || got != c {
		t.Fatalf("Resolve(alice) = %v, %v, want %v, true", got, ok, c)
	}

	// Re-announcing the same mapping changes nothing.
	r.Announce("alice", c)
	if got, _ := r.Resolve("alice"); got != c {
		t.Fatalf("re-announce changed the mapping")
	}
}

func TestRegistryLastAnnounceWins(t *testing.T) {
	r := NewRegistry()
	old := &Client{ID: "h1", send: make(chan []byte, 1)}
	fresh := &Client{ID: "h2", send: make(chan []byte, 1)}

	r.Announce("alice", old)
	r.Announce("alice", fresh)

	got, ok := r.Resolve("alice")
	if !ok || got != fresh {
		t.Fatalf("Resolve(alice) = %v, want the later connection", got)
	}

	// The superseded connection disconnecting must not evict the newer one.
	if removed := r.Unregister(old); len(removed) != 0 {
		t.Fatalf("Unregister(old) removed %v, want nothing", removed)
	}
	if _, ok := r.Resolve("alice"); !ok {
		t.Fatalf("alice became unreachable after the stale handle dropped")
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	c := &Client{ID: "h1", send: make(chan []byte, 1)}
	r.Announce("alice", c)

	removed := r.Unregister(c)
	if len(removed) != 1 || removed[0] != "alice" {
		t.Fatalf("Unregister = %v, want [alice]", removed)
	}
	if _, ok := r.Resolve("alice"); ok {
		t.Fatalf("identity still resolvable after unregister")
	}
	if removed := r.Unregister(c); len(removed) != 0 {
		t.Fatalf("second Unregister removed %v, want nothing", removed)
	}
}

func TestRegistryOnline(t *testing.T) {
	r := NewRegistry()
	r.Announce("alice", &Client{ID: "h1", send: make(chan []byte, 1)})
	r.Announce("bob", &Client{ID: "h2", send: make(chan []byte, 1)})

	got := r.Online()
	sort.Strings(got)
	want := []string{"alice", "bob"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Online() = %v, want %v", got, want)
	}
}
