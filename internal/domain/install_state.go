package domain

import "time"

// InstallStateTTL bounds how long an install attempt may take before the
// callback is rejected.
const InstallStateTTL = 600 * time.Second

// InstallState is the anti-forgery token binding an install attempt to the
// browser session that started it. It is consumed exactly once.
type InstallState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the state is past its TTL at the given instant
func (s *InstallState) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// CallbackParameters are the mandatory query parameters of an OAuth callback
type CallbackParameters struct {
	Shop  string
	Code  string
	State string
	HMAC  string
}
