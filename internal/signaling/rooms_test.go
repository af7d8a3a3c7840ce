package signaling

import "testing"

func TestRoomsJoinAndBroadcast(t *testing.T) {
	rooms := NewRooms()
	a := &Client{ID: "ha", send: make(chan []byte, 4)}
	b := &Client{ID: "hb", send: make(chan []byte, 4)}
	c := &Client{ID: "hc", send: make(chan []byte, 4)}

	rooms.Join("chat-1", a)
	rooms.Join("chat-1", b)
	rooms.Join("chat-2", c)

	if got := rooms.MemberCount("chat-1"); got != 2 {
		t.Fatalf("MemberCount(chat-1) = %d, want 2", got)
	}

	payload := []byte(`{"type":"chat-message-received"}`)
	if n := rooms.Broadcast("chat-1", payload, nil); n != 2 {
		t.Fatalf("Broadcast delivered %d, want 2", n)
	}
	if len(a.send) != 1 || len(b.send) != 1 {
		t.Fatalf("members queued %d/%d messages, want 1/1", len(a.send), len(b.send))
	}
	if len(c.send) != 0 {
		t.Fatalf("member of another room received the broadcast")
	}
}

func TestRoomsJoinIdempotent(t *testing.T) {
	rooms := NewRooms()
	a := &Client{ID: "ha", send: make(chan []byte, 4)}

	rooms.Join("chat-1", a)
	rooms.Join("chat-1", a)

	if got := rooms.MemberCount("chat-1"); got != 1 {
		t.Fatalf("MemberCount = %d after double join, want 1", got)
	}
	if n := rooms.Broadcast("chat-1", []byte("x"), nil); n != 1 {
		t.Fatalf("Broadcast delivered %d after double join, want 1", n)
	}
}

func TestRoomsBroadcastExcept(t *testing.T) {
	rooms := NewRooms()
	a := &Client{ID: "ha", send: make(chan []byte, 4)}
	b := &Client{ID: "hb", send: make(chan []byte, 4)}
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", b)

	if n := rooms.Broadcast("chat-1", []byte("x"), a); n != 1 {
		t.Fatalf("Broadcast delivered %d, want 1", n)
	}
	if len(a.send) != 0 {
		t.Fatalf("excluded sender received its own broadcast")
	}
	if len(b.send) != 1 {
		t.Fatalf("peer did not receive the broadcast")
	}
}

func TestRoomsBroadcastSkipsFullBuffers(t *testing.T) {
	rooms := NewRooms()
	full := &Client{ID: "ha", send: make(chan []byte)}
	ok := &Client{ID: "hb", send: make(chan []byte, 4)}
	rooms.Join("chat-1", full)
	rooms.Join("chat-1", ok)

	if n := rooms.Broadcast("chat-1", []byte("x"), nil); n != 1 {
		t.Fatalf("Broadcast delivered %d, want 1 (full buffer skipped)", n)
	}
}

func TestRoomsDrop(t *testing.T) {
	rooms := NewRooms()
	a := &Client{ID: "ha", send: make(chan []byte, 4)}
	b := &Client{ID: "hb", send: make(chan []byte, 4)}
	rooms.Join("chat-1", a)
	rooms.Join("chat-1", b)
	rooms.Join("chat-2", a)

	rooms.Drop(a)

	if got := rooms.MemberCount("chat-1"); got != 1 {
		t.Fatalf("MemberCount(chat-1) = %d after drop, want 1", got)
	}
	if got := rooms.MemberCount("chat-2"); got != 0 {
		t.Fatalf("vacated room still has %d members", got)
	}
	if n := rooms.Broadcast("chat-1", []byte("x"), nil); n != 1 {
		t.Fatalf("Broadcast after drop delivered %d, want 1", n)
	}
	if len(a.send) != 0 {
		t.Fatalf("dropped connection still receives room broadcasts")
	}

	// Dropping a connection that never joined anything is fine.
	rooms.Drop(&Client{ID: "hc", send: make(chan []byte, 1)})
}
