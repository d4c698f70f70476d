package models

import (
	"time"

	"github.com/google/uuid"
)

// TournamentStatus mirrors the status values stored in the database.
// Transitions are monotonic: registration -> active -> finished.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusActive       TournamentStatus = "active"
	StatusFinished     TournamentStatus = "finished"
)

// Tournament is a single-elimination bracket of up to MaxPlayers participants.
// WinnerID holds the winning user's id and is set exactly once, at the same
// transition that sets Status to finished.
type Tournament struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	MaxPlayers   int              `json:"max_players" db:"max_players"`
	IsPublic     bool             `json:"is_public" db:"is_public"`
	CreatorID    uuid.UUID        `json:"creator_id" db:"creator_id"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	WinnerID     *uuid.UUID       `json:"winner_id,omitempty" db:"winner_id"`
	LogoKey      *string          `json:"-" db:"logo_key"`
	LogoURL      *string          `json:"logo_url,omitempty" db:"-"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`

	// Related entities, loaded on demand.
	Participants []Participant `json:"participants,omitempty" db:"-"`
	Matches      []Match       `json:"matches,omitempty" db:"-"`
}
