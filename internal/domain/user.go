package domain

import (
	"strings"
	"time"
)

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

type User struct {
	UserID         string     `json:"id" dynamodbav:"user_id"`
	Username       string     `json:"username" dynamodbav:"username"`
	Email          string     `json:"email" dynamodbav:"email"`
	Phone          *string    `json:"phone" dynamodbav:"phone"`
	PasswordHash   string     `json:"-" dynamodbav:"password_hash"`
	Role           string     `json:"role" dynamodbav:"role"`
	FirstName      string     `json:"first_name" dynamodbav:"first_name"`
	LastName       string     `json:"last_name" dynamodbav:"last_name"`
	Birthday       time.Time  `json:"birthday" dynamodbav:"birthday"`
	Verified       bool       `json:"verified" dynamodbav:"verified"`
	EmailConfirmed bool       `json:"email_confirmed" dynamodbav:"email_confirmed"`
	PhoneConfirmed bool       `json:"phone_confirmed" dynamodbav:"phone_confirmed"`
	AuthProvider   string     `json:"auth_provider,omitempty" dynamodbav:"auth_provider"`
	GoogleSub      string     `json:"-" dynamodbav:"google_sub,omitempty"`
	Enable         int        `json:"enable" dynamodbav:"enable"` // 1 = enabled, 0 = disabled; numeric for the enable-index GSI
	DeletedAt      *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Enabled reports whether the account may sign in.
func (u *User) Enabled() bool { return u.Enable == 1 }

type CreateUserRequest struct {
	Username   string  `json:"username" validate:"required,min=3,max=30"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	Email      string  `json:"email" validate:"required,email"`
	Phone      *string `json:"phone" validate:"omitempty,e164"`
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name"`
	Birthday   string  `json:"birthday" validate:"required"` // expected format: YYYY-MM-DD
	Gender     string  `json:"gender" validate:"omitempty,oneof=woman man nonbinary"`
	DeviceUUID *string `json:"device_uuid"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=30"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,e164"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Birthday  *string `json:"birthday"` // expected format: YYYY-MM-DD
	Role      *string `json:"role"`
	Enable    *int    `json:"enable"` // 1 = enabled, 0 = disabled
}

// UserFilter narrows admin user listings. Zero values mean "any".
type UserFilter struct {
	Query    string
	Role     string
	Verified *bool
}

// Matches reports whether u satisfies every set criterion of f.
func (f UserFilter) Matches(u *User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Verified != nil && u.Verified != *f.Verified {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(strings.TrimSpace(f.Query))
		name := strings.ToLower(u.FirstName + " " + u.LastName)
		if !strings.Contains(strings.ToLower(u.Username), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(name, q) {
			return false
		}
	}
	return true
}

// MinimumAge is the youngest age allowed to hold an account.
const MinimumAge = 18

// AgeAt returns the age in whole years of someone born on birth at the instant now.
func AgeAt(birth, now time.Time) int {
	if birth.IsZero() {
		return 0
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
