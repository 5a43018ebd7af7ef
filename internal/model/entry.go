package model

import "time"

// Entry is a user's giveaway entry. There is at most one per user: the
// first call wins and later attempts leave the row untouched.
type Entry struct {
	UserID    string    `json:"userId"    db:"discord_id"`
	EnteredAt time.Time `json:"enteredAt" db:"entered_at"`
	Ticket    string    `json:"ticket"    db:"ticket"` // confirmation code shown to the entrant
}
