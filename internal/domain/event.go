package domain

import (
	"encoding/json"
	"time"
)

const (
	EventMatchCreated          = "match.created"
	EventMessageCreated        = "message.created"
	EventVerificationReviewed  = "verification.reviewed"
	EventSubscriptionActivated = "subscription.activated"
)

// Event is the envelope published on the event queue.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event of the given type.
func NewEvent(eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: b}, nil
}

// MessageCreated is the payload of EventMessageCreated.
type MessageCreated struct {
	Message     *Message `json:"message"`
	RecipientID string   `json:"recipient_id"`
}

// MatchCreated is the payload of EventMatchCreated.
type MatchCreated struct {
	Match *Match `json:"match"`
}

// VerificationReviewed is the payload of EventVerificationReviewed.
type VerificationReviewed struct {
	Verification *PhotoVerification `json:"verification"`
}

// SubscriptionActivated is the payload of EventSubscriptionActivated.
type SubscriptionActivated struct {
	Subscription *Subscription `json:"subscription"`
}
