package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/application/chat"
	"github.com/go-dating-api/internal/domain"
	"github.com/go-dating-api/internal/pkg/logger"
	"github.com/go-dating-api/internal/transport/http/middleware"
)

const storeTimeout = 5 * time.Second

type presenceStore interface {
	Touch(ctx context.Context, userID string, now time.Time) error
	Offline(ctx context.Context, userID string, now time.Time) error
}

// Handler upgrades authenticated requests and runs the chat protocol on
// the resulting connection.
type Handler struct {
	hub      *Hub
	chat     chat.Service
	presence presenceStore
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewHandler builds the endpoint. allowedOrigins follows the CORS list;
// "*" accepts any origin. presence may be nil.
func NewHandler(hub *Hub, chatSvc chat.Service, presence presenceStore, allowedOrigins []string, log *logrus.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		hub:      hub,
		chat:     chatSvc,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSpace(a), origin) {
				return true
			}
		}
		return false
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	c := newClient(claims.UserID, conn)
	entry := h.log.WithFields(logrus.Fields{"conn_id": c.id, "user_id": c.userID})
	if h.hub.Register(c) {
		h.touch(c.userID)
	}
	entry.Debug("chat connected")

	go c.writePump()
	h.readPump(c, entry)

	if h.hub.Unregister(c) && h.presence != nil {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := h.presence.Offline(ctx, c.userID, time.Now()); err != nil {
			entry.WithError(err).Warn("clear presence")
		}
		cancel()
	}
	entry.Debug("chat disconnected")
}

func (h *Handler) touch(userID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.presence.Touch(ctx, userID, time.Now()); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("touch presence")
	}
}

func (h *Handler) readPump(c *Client, entry *logrus.Entry) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		h.touch(c.userID)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				entry.WithError(err).Debug("chat read")
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.hub.Send(c, errorFrame("bad_request", "malformed frame"))
			continue
		}
		h.dispatch(c, in, entry)
	}
}

func (h *Handler) dispatch(c *Client, in Inbound, entry *logrus.Entry) {
	if in.MatchID == "" {
		h.hub.Send(c, errorFrame("bad_request", "match_id is required"))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	switch in.Type {
	case EventJoinChat:
		if _, err := h.chat.Join(ctx, c.userID, in.MatchID); err != nil {
			h.fail(c, err, entry)
			return
		}
		h.hub.Join(c, in.MatchID)
	case EventLeaveChat:
		h.hub.Leave(c, in.MatchID)
	case EventSendMessage:
		if !h.hub.Joined(c, in.MatchID) {
			h.hub.Send(c, errorFrame("forbidden", "join the chat first"))
			return
		}
		// The chat service fans the stored message out through the hub.
		if _, err := h.chat.Send(ctx, c.userID, in.MatchID, domain.SendMessageRequest{Content: in.Content, ClientID: in.ClientID}); err != nil {
			h.fail(c, err, entry)
		}
	case EventTypingStart, EventTypingStop:
		if !h.hub.Typing(c, in.MatchID, in.Type == EventTypingStart) {
			h.hub.Send(c, errorFrame("forbidden", "join the chat first"))
		}
	default:
		h.hub.Send(c, errorFrame("unknown_event", "unknown event type "+in.Type))
	}
}

func (h *Handler) fail(c *Client, err error, entry *logrus.Entry) {
	code := errorCode(err)
	msg := err.Error()
	if code == "internal" {
		entry.WithError(err).Error("chat event failed")
		msg = "internal error"
	}
	h.hub.Send(c, errorFrame(code, msg))
}
