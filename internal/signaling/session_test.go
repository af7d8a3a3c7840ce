package signaling

import (
	"strings"
	"testing"
	"time"
)

func testClients() (*Client, *Client) {
	return &Client{ID: "h-caller", send: make(chan []byte, 4)},
		&Client{ID: "h-callee", send: make(chan []byte, 4)}
}

func TestTableCreate(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	base := time.Unix(1700000000, 0)

	s, err := table.Create(caller, callee, "alice", "bob", CallTypeVideo, base)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.State != CallRinging {
		t.Fatalf("new session state = %q, want %q", s.State, CallRinging)
	}
	if !strings.HasPrefix(s.ID, "alice_bob_") {
		t.Fatalf("session id %q does not embed both identities", s.ID)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d sessions, want 1", table.Len())
	}

	// Same participants, same instant: ids must still differ.
	s2, err := table.Create(caller, callee, "alice", "bob", CallTypeVideo, base)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if s2.ID == s.ID {
		t.Fatalf("two sessions created at the same instant share id %q", s.ID)
	}
}

func TestTableCreateRequiresBothHandles(t *testing.T) {
	table := NewTable()
	caller, _ := testClients()
	if _, err := table.Create(caller, nil, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0)); err == nil {
		t.Fatalf("Create with nil callee succeeded")
	}
	if table.Len() != 0 {
		t.Fatalf("failed create left a session behind")
	}
}

func TestTableAccept(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))

	got, ok := table.Accept(s.ID)
	if !ok {
		t.Fatalf("Accept reported stale for a ringing call")
	}
	if got.State != CallAccepted {
		t.Fatalf("state after accept = %q, want %q", got.State, CallAccepted)
	}

	// A second accept is stale, not an error, and changes nothing.
	if _, ok := table.Accept(s.ID); ok {
		t.Fatalf("second Accept succeeded")
	}
	if _, ok := table.Accept("nope"); ok {
		t.Fatalf("Accept for unknown id succeeded")
	}
}

func TestTableReject(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))

	if _, ok := table.Reject(s.ID); !ok {
		t.Fatalf("Reject failed for a ringing call")
	}
	if table.Len() != 0 {
		t.Fatalf("rejected session still in table")
	}

	// Reject only applies while ringing.
	s2, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))
	table.Accept(s2.ID)
	if _, ok := table.Reject(s2.ID); ok {
		t.Fatalf("Reject succeeded for an accepted call")
	}
}

func TestTableEndIdempotent(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))
	table.Accept(s.ID)

	if _, ok := table.End(s.ID, caller); !ok {
		t.Fatalf("End failed for an active call")
	}
	if _, ok := table.End(s.ID, callee); ok {
		t.Fatalf("second End succeeded, want no-op")
	}
	if table.Len() != 0 {
		t.Fatalf("ended session still in table")
	}
}

func TestTableEndRequiresParticipant(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	stranger := &Client{ID: "h-stranger", send: make(chan []byte, 4)}
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))

	if _, ok := table.End(s.ID, stranger); ok {
		t.Fatalf("End succeeded for a connection outside the call")
	}
	if table.Len() != 1 {
		t.Fatalf("foreign End removed the session")
	}
	if _, ok := table.End(s.ID, callee); !ok {
		t.Fatalf("End failed for a participant after the foreign attempt")
	}
}

func TestTableEndIfRinging(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))

	table.Accept(s.ID)
	if _, ok := table.EndIfRinging(s.ID); ok {
		t.Fatalf("EndIfRinging tore down an accepted call")
	}
	if table.Len() != 1 {
		t.Fatalf("accepted session gone after EndIfRinging")
	}

	s2, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))
	if _, ok := table.EndIfRinging(s2.ID); !ok {
		t.Fatalf("EndIfRinging failed for a ringing call")
	}
}

func TestTableEstablish(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	s, _ := table.Create(caller, callee, "alice", "bob", CallTypeVideo, time.Unix(1700000000, 0))

	// Ringing sessions are not promoted.
	table.Establish("bob", "alice")
	if got, _ := table.Get(s.ID); got.State != CallRinging {
		t.Fatalf("Establish promoted a ringing session")
	}

	table.Accept(s.ID)
	table.Establish("bob", "alice")
	if got, _ := table.Get(s.ID); got.State != CallEstablished {
		t.Fatalf("state after establish = %q, want %q", got.State, CallEstablished)
	}
}

func TestTableDropClient(t *testing.T) {
	table := NewTable()
	caller, callee := testClients()
	other := &Client{ID: "h-other", send: make(chan []byte, 4)}

	s1, _ := table.Create(caller, callee, "alice", "bob", CallTypeVoice, time.Unix(1700000000, 0))
	table.Create(caller, other, "alice", "carol", CallTypeVoice, time.Unix(1700000000, 0))

	dropped := table.DropClient(callee)
	if len(dropped) != 1 || dropped[0].ID != s1.ID {
		t.Fatalf("DropClient(callee) = %v, want only the bob session", dropped)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d sessions after drop, want 1", table.Len())
	}

	if dropped := table.DropClient(caller); len(dropped) != 1 {
		t.Fatalf("DropClient(caller) dropped %d sessions, want 1", len(dropped))
	}
	if table.Len() != 0 {
		t.Fatalf("table not empty after both participants dropped")
	}
}

func TestSessionPeerOf(t *testing.T) {
	caller, callee := testClients()
	s := &Session{CallerID: "alice", CalleeID: "bob", Caller: caller, Callee: callee}

	if got := s.peerOf(caller); got != "bob" {
		t.Fatalf("peerOf(caller) = %q, want bob", got)
	}
	if got := s.peerOf(callee); got != "alice" {
		t.Fatalf("peerOf(callee) = %q, want alice", got)
	}
}
