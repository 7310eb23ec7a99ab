package models

import "time"

// User is the subset of the user record the engine reads and writes.
type User struct {
	ID       string     `json:"_id"`
	Username string     `json:"username"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// LastSeenEvent is broadcast when a user's last connection goes away.
type LastSeenEvent struct {
	UserID   string    `json:"userId"`
	LastSeen time.Time `json:"lastSeen"`
}
