package brackets

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/pongarena/tournament-engine/models"
)

var ErrNotEnoughParticipants = errors.New("at least 2 participants are required to generate a bracket")

// Shuffler permutes n elements through the given swap function. It exists
// so tests can inject a fixed ordering; production uses a fair shuffle.
type Shuffler func(n int, swap func(i, j int))

type SingleEliminationGenerator struct {
	shuffle Shuffler
}

// NewSingleEliminationGenerator builds a generator using the given shuffler,
// or math/rand/v2 when nil.
func NewSingleEliminationGenerator(shuffle Shuffler) BracketGenerator {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &SingleEliminationGenerator{shuffle: shuffle}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

func (g *SingleEliminationGenerator) GenerateRoundOne(ctx context.Context, params GenerateParams) ([]*MatchSpec, error) {
	participants := params.Participants
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	shuffled := make([]models.Participant, len(participants))
	copy(shuffled, participants)
	g.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	ids := make([]uuid.UUID, len(shuffled))
	for i, p := range shuffled {
		ids[i] = p.ID
	}
	return PairSlots(ids, 1), nil
}

// PairSlots pairs consecutive participant ids into matches of the given
// round, assigning positions 1, 2, 3, ... in pairing order. An odd count
// leaves the last entry as a bye with no second player. It is used both for
// round one and, by the round advancement controller, for every later round.
func PairSlots(participantIDs []uuid.UUID, round int) []*MatchSpec {
	specs := make([]*MatchSpec, 0, (len(participantIDs)+1)/2)
	for i := 0; i < len(participantIDs); i += 2 {
		spec := &MatchSpec{
			Round:    round,
			Position: i/2 + 1,
		}
		p1 := participantIDs[i]
		spec.Player1ID = &p1
		if i+1 < len(participantIDs) {
			p2 := participantIDs[i+1]
			spec.Player2ID = &p2
		} else {
			spec.Bye = true
		}
		specs = append(specs, spec)
	}
	return specs
}
