package signaling

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Call negotiation states. The only transitions are
// ringing -> accepted -> established, ringing -> gone (rejected), and
// any state -> gone (ended or disconnect teardown).
type CallState string

const (
	CallRinging     CallState = "ringing"
	CallAccepted    CallState = "accepted"
	CallEstablished CallState = "established"
)

var errLoneParticipant = errors.New("call session lost a participant handle")

// Session is one in-flight two-party call negotiation. Exactly two
// participant handles while active. Owned by the hub; only disconnect
// teardown mutates it from outside the accept/reject/end path.
type Session struct {
	ID       string
	CallerID string
	CalleeID string
	Caller   *Client
	Callee   *Client
	Type     string
	State    CallState

	StartedAt time.Time

	ringTimer *time.Timer
}

func (s *Session) has(c *Client) bool {
	return s.Caller == c || s.Callee == c
}

// peerOf returns the identity of the participant opposite to c.
func (s *Session) peerOf(c *Client) string {
	if s.Caller == c {
		return s.CalleeID
	}
	return s.CallerID
}

// Table tracks in-flight call sessions by id. One mutex guards the whole
// table; per-call transitions (an accept racing a disconnect teardown for the
// same id) are therefore mutually exclusive and resolve deterministically.
type Table struct {
	mu    sync.Mutex
	seq   uint64
	calls map[string]*Session
}

func NewTable() *Table {
	return &Table{calls: make(map[string]*Session)}
}

// Create inserts a new ringing session. The id is derived from both
// identities and the wall clock, with a process-lifetime counter appended so
// ids stay unique even when the clock doesn't move.
func (t *Table) Create(caller, callee *Client, callerID, calleeID, callType string, now time.Time) (*Session, error) {
	if caller == nil || callee == nil {
		return nil, errLoneParticipant
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	s := &Session{
		ID:        fmt.Sprintf("%s_%s_%d.%d", callerID, calleeID, now.UnixMilli(), t.seq),
		CallerID:  callerID,
		CalleeID:  calleeID,
		Caller:    caller,
		Callee:    callee,
		Type:      callType,
		State:     CallRinging,
		StartedAt: now,
	}
	t.calls[s.ID] = s
	return s, nil
}

// ArmRingTimer schedules expire to run after d unless the session leaves the
// ringing state first. No-op when the session is already gone.
func (t *Table) ArmRingTimer(callID string, d time.Duration, expire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.calls[callID]
	if !ok || s.State != CallRinging {
		return
	}
	s.ringTimer = time.AfterFunc(d, expire)
}

// Accept moves a ringing session to accepted. Unknown ids and sessions past
// ringing report false: the call is stale, not an error.
func (t *Table) Accept(callID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.calls[callID]
	if !ok || s.State != CallRinging {
		return nil, false
	}
	s.State = CallAccepted
	stopRingTimerLocked(s)
	return s, true
}

// Reject deletes a ringing session. Stale ids report false.
func (t *Table) Reject(callID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.calls[callID]
	if !ok || s.State != CallRinging {
		return nil, false
	}
	t.removeLocked(s)
	return s, true
}

// End deletes the session in any state, provided by participates in it: a
// connection cannot hang up a call it is not part of, even with a valid id.
// Idempotent: a second end for the same id reports false and has no effect.
func (t *Table) End(callID string, by *Client) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.calls[callID]
	if !ok || !s.has(by) {
		return nil, false
	}
	t.removeLocked(s)
	return s, true
}

// EndIfRinging is End restricted to sessions still ringing; the ring-timeout
// path uses it so a timer firing after an accept does nothing.
func (t *Table) EndIfRinging(callID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.calls[callID]
	if !ok || s.State != CallRinging {
		return nil, false
	}
	t.removeLocked(s)
	return s, true
}

// Establish promotes an accepted session between the two identities to
// established. Best-effort: signal relay is routed by identity and never
// gated on this, so a miss is fine.
func (t *Table) Establish(a, b string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, s := range t.calls {
		if s.State != CallAccepted {
			continue
		}
		if (s.CallerID == a && s.CalleeID == b) || (s.CallerID == b && s.CalleeID == a) {
			s.State = CallEstablished
			return
		}
	}
}

// DropClient deletes every session c participates in and returns them for
// peer notification.
func (t *Table) DropClient(c *Client) []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	var dropped []*Session
	for _, s := range t.calls {
		if s.has(c) {
			t.removeLocked(s)
			dropped = append(dropped, s)
		}
	}
	return dropped
}

// Get returns the session for inspection. Callers must not mutate it.
func (t *Table) Get(callID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.calls[callID]
	return s, ok
}

// Len reports the number of active sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

func (t *Table) removeLocked(s *Session) {
	stopRingTimerLocked(s)
	delete(t.calls, s.ID)
}

func stopRingTimerLocked(s *Session) {
	if s.ringTimer != nil {
		s.ringTimer.Stop()
		s.ringTimer = nil
	}
}
