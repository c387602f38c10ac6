package model

import "time"

// Session maps an access-token hash to a user. Only the hash is stored,
// never the token itself.
type Session struct {
	TokenHash    string    `json:"token_hash"`
	UserID       string    `json:"user_id"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
