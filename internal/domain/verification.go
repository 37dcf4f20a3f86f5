package domain

import "time"

// VerificationCode stores OTP and email confirmation tokens.
// PK: user_id, SK: type. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationCode struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	Type      string `json:"type" dynamodbav:"type"`
	Code      string `json:"-" dynamodbav:"code"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}

const (
	CodePasswordReset = "password_reset"
	CodeEmail         = "email"
	CodePhone         = "phone"
)

type VerificationMethod string

const (
	MethodSelfie   VerificationMethod = "selfie"
	MethodDocument VerificationMethod = "document"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// PhotoVerification is a user's request to get the verified badge.
type PhotoVerification struct {
	VerificationID string             `json:"id" dynamodbav:"verification_id"`
	UserID         string             `json:"user_id" dynamodbav:"user_id"`
	Method         VerificationMethod `json:"method" dynamodbav:"method"`
	Status         VerificationStatus `json:"status" dynamodbav:"status"`
	ImageFileIDs   []string           `json:"image_file_ids" dynamodbav:"image_file_ids"`
	ReviewerID     string             `json:"reviewer_id,omitempty" dynamodbav:"reviewer_id,omitempty"`
	Reason         string             `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	SubmittedAt    time.Time          `json:"submitted_at" dynamodbav:"submitted_at"`
	ReviewedAt     *time.Time         `json:"reviewed_at,omitempty" dynamodbav:"reviewed_at,omitempty"`
}

type ReviewVerificationRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason" validate:"max=300"`
}
