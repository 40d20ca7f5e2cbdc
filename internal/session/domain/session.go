package domain

import "time"

// Session is an issued session key. Only the SHA-256 hash of the key is persisted;
// the key itself is returned to the client once and never stored.
type Session struct {
	ID        string
	UserID    string
	KeyHash   string
	CreatedAt time.Time
}
