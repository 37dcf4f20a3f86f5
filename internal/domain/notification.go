package domain

import "time"

const (
	NotificationMatch        = "match"
	NotificationMessage      = "message"
	NotificationVerification = "verification"
	NotificationSubscription = "subscription"
)

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	Type           string    `json:"type" dynamodbav:"type"`
	ReferenceID    string    `json:"reference_id,omitempty" dynamodbav:"reference_id"`
	Message        string    `json:"message" dynamodbav:"message"`
	Read           int       `json:"read" dynamodbav:"read"` // 0/1 so it can be used in key conditions
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
