// Package ws is the chat WebSocket endpoint: a hub of per-match rooms fed
// by the chat service, with typing indicators and presence.
package ws

import (
	"encoding/json"
	"errors"

	"github.com/go-dating-api/internal/domain"
)

// Inbound event types.
const (
	EventJoinChat    = "join_chat"
	EventLeaveChat   = "leave_chat"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
)

// Outbound event types.
const (
	EventNewMessage = "new_message"
	EventUserTyping = "user_typing"
	EventUserOnline = "user_online"
	EventJoined     = "joined"
	EventError      = "error"
)

// Inbound is a client frame. Fields not used by Type are ignored.
type Inbound struct {
	Type     string `json:"type"`
	MatchID  string `json:"match_id"`
	Content  string `json:"content"`
	ClientID string `json:"client_id"`
}

// Outbound is a server frame.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type NewMessage struct {
	Message  *domain.Message `json:"message"`
	ClientID string          `json:"client_id,omitempty"`
}

type UserTyping struct {
	MatchID string `json:"match_id"`
	UserID  string `json:"user_id"`
	Typing  bool   `json:"typing"`
}

type UserOnline struct {
	MatchID string `json:"match_id,omitempty"`
	UserID  string `json:"user_id"`
	Online  bool   `json:"online"`
}

type Joined struct {
	MatchID string `json:"match_id"`
}

// CodeMatchClosed is the error code sent when a match ends or a client
// tries to join an ended one.
const CodeMatchClosed = "match_closed"

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(eventType string, data any) []byte {
	b, err := json.Marshal(Outbound{Type: eventType, Data: data})
	if err != nil {
		b, _ = json.Marshal(Outbound{Type: EventError, Data: ErrorData{Code: "internal", Message: "encode failed"}})
	}
	return b
}

func errorFrame(code, msg string) []byte {
	return encode(EventError, ErrorData{Code: code, Message: msg})
}

// errorCode maps service errors to the codes clients switch on.
func errorCode(err error) string {
	var qe *domain.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		return "quota_exceeded"
	case errors.Is(err, domain.ErrMatchClosed):
		return CodeMatchClosed
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, domain.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
