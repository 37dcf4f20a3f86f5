package domain

import "time"

// MaxMessageRunes bounds a single chat message.
const MaxMessageRunes = 2000

type Message struct {
	MatchID   string     `json:"match_id" dynamodbav:"match_id"`
	MessageID string     `json:"id" dynamodbav:"message_id"`
	SenderID  string     `json:"sender_id" dynamodbav:"sender_id"`
	Content   string     `json:"content" dynamodbav:"content"`
	Read      bool       `json:"read" dynamodbav:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty" dynamodbav:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
}

type SendMessageRequest struct {
	Content  string `json:"content" validate:"required"`
	ClientID string `json:"client_id"`
}
