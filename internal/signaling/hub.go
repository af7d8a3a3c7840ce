package signaling

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// CallRecorder is the call-history persistence collaborator. The hub only
// triggers writes; it does not own the storage.
type CallRecorder interface {
	CallStarted(callID, callerID, calleeID, callType string, at time.Time)
	CallEnded(callID string, at time.Time)
}

// CallNotifier delivers out-of-band incoming-call notifications (web push).
// Invoked fire-and-forget; failures stay inside the implementation.
type CallNotifier interface {
	IncomingCall(calleeID, callerID, callType string)
}

// NopRecorder discards call-history writes. Used in tests and when no
// persistence collaborator is wired.
type NopRecorder struct{}

func (NopRecorder) CallStarted(string, string, string, string, time.Time) {}
func (NopRecorder) CallEnded(string, time.Time)                           {}

// Hub is the event-driven signaling core: it owns the presence registry, the
// room tracker and the call table, routes every inbound event, and reconciles
// all three when a connection drops.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	calls    *Table

	recorder CallRecorder
	notifier CallNotifier
	logger   *slog.Logger

	// ringTimeout bounds how long a session may stay ringing. Zero disables
	// the bound, matching the unbounded behavior the clients were built
	// against.
	ringTimeout time.Duration

	nowFn func() time.Time
}

func NewHub(recorder CallRecorder, ringTimeout time.Duration, logger *slog.Logger) *Hub {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry:    NewRegistry(),
		rooms:       NewRooms(),
		calls:       NewTable(),
		recorder:    recorder,
		logger:      logger,
		ringTimeout: ringTimeout,
		nowFn:       time.Now,
	}
}

// SetNotifier wires the push collaborator. Optional.
func (h *Hub) SetNotifier(n CallNotifier) {
	h.notifier = n
}

// Serve owns conn until it closes: it allocates the connection handle, starts
// the write pump and blocks reading events. Cleanup runs exactly once when the
// read loop exits.
func (h *Hub) Serve(conn *websocket.Conn) {
	c, err := newClient(h, conn)
	if err != nil {
		h.logger.Error("allocate connection handle", "error", err)
		_ = conn.Close()
		return
	}

	h.logger.Debug("connection open", "handle", c.ID)
	go c.writePump()
	c.readPump()
}

// IsOnline reports whether the identity currently resolves to a connection.
func (h *Hub) IsOnline(identity string) bool {
	_, ok := h.registry.Resolve(identity)
	return ok
}

// OnlineUsers lists currently reachable identities.
func (h *Hub) OnlineUsers() []string {
	return h.registry.Online()
}

// NotifyRoom fans an event out to a room on behalf of the REST layer
// (message edits arrive over HTTP but propagate over the socket).
func (h *Hub) NotifyRoom(roomID string, ev Envelope) {
	ev.RoomID = roomID
	h.rooms.Broadcast(roomID, encode(ev), nil)
}

func (h *Hub) handleEvent(c *Client, payload []byte) {
	var ev Envelope
	if err := json.Unmarshal(payload, &ev); err != nil {
		h.logger.Debug("drop malformed event", "handle", c.ID, "error", err)
		return
	}

	switch ev.Type {
	case EventAnnounceIdentity:
		h.announce(c, ev)
	case EventJoinRoom:
		h.joinRoom(c, ev)
	case EventInitiateCall:
		h.initiateCall(c, ev)
	case EventAcceptCall:
		h.acceptCall(c, ev)
	case EventRejectCall:
		h.rejectCall(c, ev)
	case EventEndCall:
		h.endCall(c, ev)
	case EventRelayOffer, EventRelayAnswer, EventRelayICE:
		h.relaySignal(c, ev)
	case EventSendChatMessage:
		h.chatMessage(c, ev)
	case EventTyping:
		h.typing(c, ev)
	case EventNewStatus, EventStatusDeleted:
		h.statusBroadcast(c, ev)
	case "ping":
		// Client-level keepalive, nothing to route.
	default:
		h.logger.Debug("drop unknown event", "handle", c.ID, "type", ev.Type)
	}
}

func (h *Hub) announce(c *Client, ev Envelope) {
	identity := ev.From
	if identity == "" {
		h.logger.Debug("announce without identity", "handle", c.ID)
		return
	}

	c.setIdentity(identity)
	h.registry.Announce(identity, c)
	h.logger.Info("identity announced", "handle", c.ID, "user", identity)

	// Everyone already registered learns this user came online.
	online := encode(Envelope{Type: EventUserOnline, From: identity})
	h.registry.each(func(id string, other *Client) {
		if other != c {
			other.trySend(online)
		}
	})
}

func (h *Hub) joinRoom(c *Client, ev Envelope) {
	if ev.RoomID == "" {
		h.logger.Debug("join without room id", "handle", c.ID)
		return
	}
	h.rooms.Join(ev.RoomID, c)
	h.logger.Debug("joined room", "handle", c.ID, "room", ev.RoomID)
}

func (h *Hub) initiateCall(c *Client, ev Envelope) {
	callerID := c.Identity()
	if callerID == "" || ev.To == "" {
		h.logger.Debug("drop initiate-call with missing identity", "handle", c.ID, "to", ev.To)
		return
	}
	if ev.CallType != CallTypeVoice && ev.CallType != CallTypeVideo {
		h.logger.Debug("drop initiate-call with bad call type", "handle", c.ID, "call_type", ev.CallType)
		return
	}

	callee, ok := h.registry.Resolve(ev.To)
	if !ok {
		// The one place unreachability surfaces to the sender: the caller
		// needs immediate feedback that nobody will ring.
		c.trySend(encode(Envelope{Type: EventCallFailed, To: ev.To, Reason: "unreachable"}))
		h.logger.Info("call target unreachable", "caller", callerID, "callee", ev.To)
		return
	}

	now := h.nowFn()
	sess, err := h.calls.Create(c, callee, callerID, ev.To, ev.CallType, now)
	if err != nil {
		h.logger.Error("create call session", "caller", callerID, "callee", ev.To, "error", err)
		return
	}

	if h.ringTimeout > 0 {
		callID := sess.ID
		h.calls.ArmRingTimer(callID, h.ringTimeout, func() {
			h.expireRinging(callID)
		})
	}

	callee.trySend(encode(Envelope{
		Type:     EventIncomingCall,
		From:     callerID,
		CallID:   sess.ID,
		CallType: sess.Type,
	}))

	h.recorder.CallStarted(sess.ID, callerID, ev.To, sess.Type, now)
	if h.notifier != nil {
		go h.notifier.IncomingCall(ev.To, callerID, sess.Type)
	}
	h.logger.Info("call ringing", "call_id", sess.ID, "caller", callerID, "callee", ev.To, "call_type", sess.Type)
}

func (h *Hub) acceptCall(c *Client, ev Envelope) {
	sess, ok := h.calls.Accept(ev.CallID)
	if !ok {
		h.logger.Info("accept for stale call", "handle", c.ID, "call_id", ev.CallID)
		return
	}

	if caller, ok := h.registry.Resolve(sess.CallerID); ok {
		caller.trySend(encode(Envelope{Type: EventCallAccepted, From: sess.CalleeID, CallID: sess.ID}))
	}
	h.logger.Info("call accepted", "call_id", sess.ID)
}

func (h *Hub) rejectCall(c *Client, ev Envelope) {
	sess, ok := h.calls.Reject(ev.CallID)
	if !ok {
		h.logger.Info("reject for stale call", "handle", c.ID, "call_id", ev.CallID)
		return
	}

	if caller, ok := h.registry.Resolve(sess.CallerID); ok {
		caller.trySend(encode(Envelope{Type: EventCallRejected, From: sess.CalleeID, CallID: sess.ID}))
	}
	h.recorder.CallEnded(sess.ID, h.nowFn())
	h.logger.Info("call rejected", "call_id", sess.ID)
}

func (h *Hub) endCall(c *Client, ev Envelope) {
	sess, ok := h.calls.End(ev.CallID, c)
	if !ok {
		h.logger.Info("end for stale or foreign call", "handle", c.ID, "call_id", ev.CallID)
		return
	}

	peerID := sess.peerOf(c)
	if peer, ok := h.registry.Resolve(peerID); ok {
		peer.trySend(encode(Envelope{Type: EventCallEnded, CallID: sess.ID}))
	}
	h.recorder.CallEnded(sess.ID, h.nowFn())
	h.logger.Info("call ended", "call_id", sess.ID, "by", c.Identity())
}

// expireRinging tears down a session nobody answered. Only fires when the
// ring timeout option is enabled.
func (h *Hub) expireRinging(callID string) {
	sess, ok := h.calls.EndIfRinging(callID)
	if !ok {
		return
	}

	gone := encode(Envelope{Type: EventCallEnded, CallID: sess.ID, Reason: "timeout"})
	for _, identity := range []string{sess.CallerID, sess.CalleeID} {
		if c, ok := h.registry.Resolve(identity); ok {
			c.trySend(gone)
		}
	}
	h.recorder.CallEnded(sess.ID, h.nowFn())
	h.logger.Info("call ring timeout", "call_id", sess.ID)
}

// relaySignal forwards SDP and ICE payloads to the target identity. Routing
// is by identity, not call id: relay stays independent of the session state
// machine, matching the protocol the clients implement.
func (h *Hub) relaySignal(c *Client, ev Envelope) {
	if ev.To == "" || len(ev.Data) == 0 {
		h.logger.Debug("drop malformed signal", "handle", c.ID, "type", ev.Type)
		return
	}

	target, ok := h.registry.Resolve(ev.To)
	if !ok {
		// Normal operation: the sender has no liveness contract here.
		h.logger.Debug("signal target unreachable", "type", ev.Type, "to", ev.To)
		return
	}

	ev.From = c.Identity()
	target.trySend(encode(ev))

	if ev.Type == EventRelayAnswer {
		h.calls.Establish(ev.From, ev.To)
	}

	// Payload sizes only; SDP and candidates may carry addresses.
	h.logger.Debug("signal relayed", "type", ev.Type, "from", ev.From, "to", ev.To, "data_bytes", len(ev.Data))
}

// chatMessage fans an already-persisted message out to the room, sender
// included, so every participant renders the same stored object.
func (h *Hub) chatMessage(c *Client, ev Envelope) {
	if ev.RoomID == "" || len(ev.Data) == 0 {
		h.logger.Debug("drop malformed chat message", "handle", c.ID)
		return
	}

	out := encode(Envelope{
		Type:   EventChatMessage,
		From:   c.Identity(),
		RoomID: ev.RoomID,
		Data:   ev.Data,
	})
	n := h.rooms.Broadcast(ev.RoomID, out, nil)
	h.logger.Debug("chat message fanned out", "room", ev.RoomID, "delivered", n)
}

// statusBroadcast fans a status post or deletion out to every other connected
// user. The payload is opaque; clients filter relevance themselves.
func (h *Hub) statusBroadcast(c *Client, ev Envelope) {
	if len(ev.Data) == 0 {
		h.logger.Debug("drop empty status event", "handle", c.ID, "type", ev.Type)
		return
	}

	out := encode(Envelope{Type: ev.Type, From: c.Identity(), Data: ev.Data})
	h.registry.each(func(id string, other *Client) {
		if other != c {
			other.trySend(out)
		}
	})
}

func (h *Hub) typing(c *Client, ev Envelope) {
	if ev.To == "" {
		return
	}
	target, ok := h.registry.Resolve(ev.To)
	if !ok {
		return
	}
	target.trySend(encode(Envelope{
		Type:   EventTyping,
		From:   c.Identity(),
		RoomID: ev.RoomID,
	}))
}

// dropClient is the disconnect reconciler. It runs exactly once per
// connection, from the read pump's deferred cleanup. Order matters: presence
// first so no new work routes to the dead handle, then call teardown, then
// room pruning.
func (h *Hub) dropClient(c *Client) {
	removed := h.registry.Unregister(c)

	now := h.nowFn()
	for _, sess := range h.calls.DropClient(c) {
		peerID := sess.peerOf(c)
		if peer, ok := h.registry.Resolve(peerID); ok {
			peer.trySend(encode(Envelope{Type: EventCallEnded, CallID: sess.ID}))
		}
		h.recorder.CallEnded(sess.ID, now)
		h.logger.Info("call torn down on disconnect", "call_id", sess.ID, "handle", c.ID)
	}

	h.rooms.Drop(c)
	c.closeSend()

	for _, identity := range removed {
		offline := encode(Envelope{Type: EventUserOffline, From: identity})
		h.registry.each(func(id string, other *Client) {
			other.trySend(offline)
		})
		h.logger.Info("identity offline", "handle", c.ID, "user", identity)
	}
}
