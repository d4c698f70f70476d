package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a user's enrollment in one specific tournament. Alias is a
// snapshot of the user's display name taken at join time; it is unique within
// the tournament, as is the user itself.
type Participant struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TournamentID uuid.UUID `json:"tournament_id" db:"tournament_id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Alias        string    `json:"alias" db:"alias"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}
