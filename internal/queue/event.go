// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into outgoing email.
package queue

// Queue names. One queue per event type; durable, persistent messages.
const (
	UserRegisteredQueue = "user.registered"
	PasswordOTPQueue    = "password.otp"
)

// UserRegisteredEvent is published after a new account is created. The
// consumer sends the registration confirmation email; the registering
// request never waits for delivery.
type UserRegisteredEvent struct {
	UserID    uint64 `json:"user_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at"`
}

// PasswordOTPEvent is published when a password-reset code is issued. It
// carries everything the mail template needs so the consumer does not query
// the primary database.
type PasswordOTPEvent struct {
	Email         string `json:"email"`
	OTP           int    `json:"otp"`
	ExpiryMinutes int    `json:"expiry_minutes"`
	RequestedAt   string `json:"requested_at"`
}
