package ws

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/logger"
)

// DefaultTypingTTL is how long a typing indicator lasts without a refresh.
const DefaultTypingTTL = 5 * time.Second

type typingKey struct {
	matchID string
	userID  string
}

type typingState struct {
	timer *time.Timer
}

// Hub tracks live connections, the match rooms they joined and who is
// typing where. Rooms are local to this process.
type Hub struct {
	mu        sync.Mutex
	rooms     map[string]map[*Client]struct{}
	users     map[string]map[*Client]struct{}
	typing    map[typingKey]*typingState
	typingTTL time.Duration
	closed    bool
	log       *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		users:     make(map[string]map[*Client]struct{}),
		typing:    make(map[typingKey]*typingState),
		typingTTL: DefaultTypingTTL,
		log:       log,
	}
}

// Register adds c and reports whether it is the user's first live connection.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		c.closed = true
		close(c.send)
		return false
	}
	conns, ok := h.users[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.users[c.userID] = conns
	}
	conns[c] = struct{}{}
	return len(conns) == 1
}

// Unregister drops c from every room and closes its send channel. It is
// safe to call more than once. The result reports whether the user has no
// live connection left, also when c was already evicted or closed by the
// hub; it is true at most once per client.
func (h *Hub) Unregister(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
	gone := c.lastGone && len(h.users[c.userID]) == 0
	c.lastGone = false
	return gone
}

func (h *Hub) removeLocked(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	for matchID := range c.rooms {
		h.leaveLocked(c, matchID)
	}
	conns := h.users[c.userID]
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.users, c.userID)
		c.lastGone = true
	}
}

// Join adds c to the room of matchID. Callers authorize the user first.
// The joiner learns which participants are online; the others learn the
// joiner is.
func (h *Hub) Join(c *Client, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.rooms[matchID]; ok {
		h.sendLocked(c, encode(EventJoined, Joined{MatchID: matchID}))
		return
	}
	arriving := !h.userInRoomLocked(c.userID, matchID)
	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[matchID] = room
	}
	room[c] = struct{}{}
	c.rooms[matchID] = struct{}{}

	h.sendLocked(c, encode(EventJoined, Joined{MatchID: matchID}))
	seen := map[string]bool{c.userID: true}
	for other := range room {
		if seen[other.userID] {
			continue
		}
		seen[other.userID] = true
		h.sendLocked(c, encode(EventUserOnline, UserOnline{MatchID: matchID, UserID: other.userID, Online: true}))
	}
	if arriving {
		h.broadcastLocked(matchID, c.userID, encode(EventUserOnline, UserOnline{MatchID: matchID, UserID: c.userID, Online: true}))
	}
}

// Leave removes c from the room of matchID.
func (h *Hub) Leave(c *Client, matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.rooms[matchID]; ok {
		h.leaveLocked(c, matchID)
	}
}

func (h *Hub) leaveLocked(c *Client, matchID string) {
	room := h.rooms[matchID]
	delete(room, c)
	delete(c.rooms, matchID)
	if len(room) == 0 {
		delete(h.rooms, matchID)
	}
	if h.userInRoomLocked(c.userID, matchID) {
		return
	}
	h.stopTypingLocked(matchID, c.userID)
	h.broadcastLocked(matchID, c.userID, encode(EventUserOnline, UserOnline{MatchID: matchID, UserID: c.userID, Online: false}))
}

// Joined reports whether c is in the room of matchID.
func (h *Hub) Joined(c *Client, matchID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := c.rooms[matchID]
	return ok
}

// BroadcastMessage delivers msg to every connection in its room, the
// sender's included, so clients can reconcile clientID with their
// optimistic insert. It also ends the sender's typing indicator.
func (h *Hub) BroadcastMessage(msg *domain.Message, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.stopTypingLocked(msg.MatchID, msg.SenderID)
	h.broadcastLocked(msg.MatchID, "", encode(EventNewMessage, NewMessage{Message: msg, ClientID: clientID}))
}

// Typing starts, refreshes or stops c's typing indicator in matchID. A
// started indicator stops by itself after the typing TTL. It reports false
// when c has not joined the room.
func (h *Hub) Typing(c *Client, matchID string, typing bool) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.rooms[matchID]; !ok {
		return false
	}
	if !typing {
		h.stopTypingLocked(matchID, c.userID)
		return true
	}
	key := typingKey{matchID: matchID, userID: c.userID}
	if st, ok := h.typing[key]; ok && st.timer.Stop() {
		st.timer.Reset(h.typingTTL)
		return true
	}
	st := &typingState{}
	st.timer = time.AfterFunc(h.typingTTL, func() { h.expireTyping(key, st) })
	h.typing[key] = st
	h.broadcastLocked(matchID, c.userID, encode(EventUserTyping, UserTyping{MatchID: matchID, UserID: c.userID, Typing: true}))
	return true
}

func (h *Hub) expireTyping(key typingKey, st *typingState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || h.typing[key] != st {
		return
	}
	delete(h.typing, key)
	h.broadcastLocked(key.matchID, key.userID, encode(EventUserTyping, UserTyping{MatchID: key.matchID, UserID: key.userID, Typing: false}))
}

func (h *Hub) stopTypingLocked(matchID, userID string) {
	key := typingKey{matchID: matchID, userID: userID}
	st, ok := h.typing[key]
	if !ok {
		return
	}
	st.timer.Stop()
	delete(h.typing, key)
	h.broadcastLocked(matchID, userID, encode(EventUserTyping, UserTyping{MatchID: matchID, UserID: userID, Typing: false}))
}

func (h *Hub) userInRoomLocked(userID, matchID string) bool {
	for c := range h.rooms[matchID] {
		if c.userID == userID {
			return true
		}
	}
	return false
}

// broadcastLocked sends frame to the room, skipping exceptUser's
// connections when set. Connections whose buffer is full are dropped.
func (h *Hub) broadcastLocked(matchID, exceptUser string, frame []byte) {
	var slow []*Client
	for c := range h.rooms[matchID] {
		if exceptUser != "" && c.userID == exceptUser {
			continue
		}
		if !h.trySendLocked(c, frame) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).Warn("chat client too slow; disconnecting")
		h.removeLocked(c)
	}
}

func (h *Hub) sendLocked(c *Client, frame []byte) {
	if !h.trySendLocked(c, frame) {
		h.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID}).Warn("chat client too slow; disconnecting")
		h.removeLocked(c)
	}
}

func (h *Hub) trySendLocked(c *Client, frame []byte) bool {
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// CloseRoom tells every connection joined to matchID that the match ended
// and removes them from its room. Joining again is refused by the chat
// service once the match is inactive.
func (h *Hub) CloseRoom(matchID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[matchID]
	if len(room) == 0 {
		return
	}
	for key, st := range h.typing {
		if key.matchID == matchID {
			st.timer.Stop()
			delete(h.typing, key)
		}
	}
	members := make([]*Client, 0, len(room))
	for c := range room {
		members = append(members, c)
	}
	delete(h.rooms, matchID)
	frame := errorFrame(CodeMatchClosed, "this match has ended")
	for _, c := range members {
		delete(c.rooms, matchID)
		h.sendLocked(c, frame)
	}
}

// Send queues frame for c alone.
func (h *Hub) Send(c *Client, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(c, frame)
}

// Close stops every typing timer and disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for key, st := range h.typing {
		st.timer.Stop()
		delete(h.typing, key)
	}
	for _, conns := range h.users {
		for c := range conns {
			h.removeLocked(c)
		}
	}
}
