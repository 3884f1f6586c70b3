// shared/models/queue.go
package models

import "time"

// QueueEntry is a paid entry waiting in the matchmaking queue.
type QueueEntry struct {
	ID         string    `json:"id"`
	UID        string    `json:"uid"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Tier       Tier      `json:"tier"`
	StripePaid bool      `json:"stripePaid"`
	SessionID  string    `json:"sessionId,omitempty"`
	QueuedAt   time.Time `json:"queuedAt"`
}
