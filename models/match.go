package models

import (
	"time"

	"github.com/google/uuid"
)

// Match is one slot of the bracket. Position is 1-based within the round.
// Player references are Participant ids; Player2ID is nil for a bye slot.
// WinnerID, once set, is immutable and always equals Player1ID or Player2ID.
type Match struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	TournamentID uuid.UUID  `json:"tournament_id" db:"tournament_id"`
	Round        int        `json:"round" db:"round"`
	Position     int        `json:"position" db:"position"`
	Player1ID    *uuid.UUID `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *uuid.UUID `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *uuid.UUID `json:"winner_id,omitempty" db:"winner_id"`
	Score1       int        `json:"score1" db:"score1"`
	Score2       int        `json:"score2" db:"score2"`
	PlayedAt     *time.Time `json:"played_at,omitempty" db:"played_at"`
}

// Completed reports whether the match already has a recorded winner.
func (m *Match) Completed() bool {
	return m.WinnerID != nil
}

// HasPlayer reports whether the given participant occupies one of the
// match slots.
func (m *Match) HasPlayer(participantID uuid.UUID) bool {
	if m.Player1ID != nil && *m.Player1ID == participantID {
		return true
	}
	if m.Player2ID != nil && *m.Player2ID == participantID {
		return true
	}
	return false
}
