package domain

import "time"

type UpdateDeviceRequest struct {
	PushToken *string `json:"push_token"`
	Platform  *string `json:"platform" validate:"omitempty,oneof=ios android web"`
}

type Device struct {
	DeviceID  string    `json:"id" dynamodbav:"device_id"`
	UUID      string    `json:"uuid" dynamodbav:"device_uuid"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	PushToken *string   `json:"push_token" dynamodbav:"push_token"`
	Platform  string    `json:"platform" dynamodbav:"platform"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
