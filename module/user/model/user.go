package model

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is the account record. Presence transitions own Status/LastSeen;
// everything else is written by the auth and profile handlers.
type User struct {
	UserID       string `json:"user_id"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Username     string `json:"username,omitempty"`
	PasswordHash string `json:"password_hash"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Bio          string `json:"bio,omitempty"`

	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	FailedLoginAttempts int        `json:"failed_login_attempts"`
	AccountLockedUntil  *time.Time `json:"account_locked_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// DisplayInfo is the fragment attached to events (sender names, typing).
type DisplayInfo struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

func (u *User) Display() DisplayInfo {
	return DisplayInfo{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName}
}
