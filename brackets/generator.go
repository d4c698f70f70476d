package brackets

import (
	"context"

	"github.com/google/uuid"

	"github.com/pongarena/tournament-engine/models"
)

// MatchSpec describes one match to be created, before persistence assigns
// it an id. Player2ID is nil for a bye slot.
type MatchSpec struct {
	Round     int
	Position  int
	Player1ID *uuid.UUID
	Player2ID *uuid.UUID
	Bye       bool
}

type GenerateParams struct {
	Tournament   *models.Tournament
	Participants []models.Participant
}

type BracketGenerator interface {
	// GenerateRoundOne pairs the tournament's participants into the
	// first round of matches.
	GenerateRoundOne(ctx context.Context, params GenerateParams) ([]*MatchSpec, error)

	Name() string
}
