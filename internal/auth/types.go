package auth

import (
	"errors"
	"time"
)

// Subscription tiers. Tier gates feature access in the workspace layer;
// auth only records it and reports it in the session profile.
const (
	TierEssential    = "essential"
	TierProfessional = "professional"
)

// Default identity used when a session arrives with no account to attach
// to. Mirrors the single-operator install flow where the first connection
// provisions the workspace owner.
const (
	DefaultUsername = "Demo User"
	DefaultEmail    = "demo@example.com"
)

// Default device metadata applied when a client omits its own.
const (
	DefaultDeviceName = "Web Browser"
	DefaultDeviceType = "web"
)

// User represents an account that owns devices and sessions.
type User struct {
	ID                     string     `json:"id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	Tier                   string     `json:"tier"`
	SubscriptionValidUntil *time.Time `json:"subscription_valid_until,omitempty"`
	LastToolRunAt          *time.Time `json:"last_tool_run_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// Device represents a client installation bound to a user. Each device
// carries its own token signing secret; the secret never leaves the server.
type Device struct {
	ID          string     `json:"id"`
	Fingerprint string     `json:"device_id"`
	Name        string     `json:"device_name"`
	Type        string     `json:"device_type"`
	SecretKey   string     `json:"-"` // never serialised
	UserID      string     `json:"user_id"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidFormat    = errors.New("token is not a well-formed JWT")
	ErrInvalidSignature = errors.New("token signature verification failed")
	ErrTokenExpired     = errors.New("token has expired")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceExists     = errors.New("device already registered")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already registered")
)
