package domain

import "time"

// Session binds an authenticated client to an account.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginAttempt is what the login form shows after a failed attempt.
type LoginAttempt struct {
	Username string `json:"last_username"`
	Error    string `json:"error,omitempty"`
}
