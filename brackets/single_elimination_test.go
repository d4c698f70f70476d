package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/tournament-engine/models"
)

// identityShuffle keeps the input order so pairings are predictable.
func identityShuffle(n int, swap func(i, j int)) {}

func makeParticipants(n int) []models.Participant {
	participants := make([]models.Participant, n)
	for i := range participants {
		participants[i] = models.Participant{
			ID:           uuid.New(),
			TournamentID: uuid.New(),
			UserID:       uuid.New(),
			Alias:        "player",
			JoinedAt:     time.Now().UTC(),
		}
	}
	return participants
}

func TestGenerateRoundOneRejectsTooFewParticipants(t *testing.T) {
	g := NewSingleEliminationGenerator(identityShuffle)

	for _, n := range []int{0, 1} {
		_, err := g.GenerateRoundOne(context.Background(), GenerateParams{
			Participants: makeParticipants(n),
		})
		require.ErrorIs(t, err, ErrNotEnoughParticipants)
	}
}

func TestGenerateRoundOnePairsEveryParticipantExactlyOnce(t *testing.T) {
	g := NewSingleEliminationGenerator(identityShuffle)

	for _, n := range []int{2, 4, 8} {
		participants := makeParticipants(n)
		specs, err := g.GenerateRoundOne(context.Background(), GenerateParams{Participants: participants})
		require.NoError(t, err)
		require.Len(t, specs, n/2)

		seen := make(map[uuid.UUID]int)
		for i, spec := range specs {
			assert.Equal(t, 1, spec.Round)
			assert.Equal(t, i+1, spec.Position)
			assert.False(t, spec.Bye)
			require.NotNil(t, spec.Player1ID)
			require.NotNil(t, spec.Player2ID)
			seen[*spec.Player1ID]++
			seen[*spec.Player2ID]++
		}
		require.Len(t, seen, n)
		for _, count := range seen {
			assert.Equal(t, 1, count)
		}
	}
}

func TestGenerateRoundOneOddCountProducesOneBye(t *testing.T) {
	g := NewSingleEliminationGenerator(identityShuffle)
	participants := makeParticipants(5)

	specs, err := g.GenerateRoundOne(context.Background(), GenerateParams{Participants: participants})
	require.NoError(t, err)
	require.Len(t, specs, 3)

	byes := 0
	for _, spec := range specs {
		if spec.Bye {
			byes++
			require.NotNil(t, spec.Player1ID)
			assert.Nil(t, spec.Player2ID)
		}
	}
	assert.Equal(t, 1, byes)

	// With an identity shuffle the last joiner gets the bye.
	last := specs[len(specs)-1]
	assert.True(t, last.Bye)
	assert.Equal(t, participants[4].ID, *last.Player1ID)
}

func TestGenerateRoundOneUsesInjectedShuffle(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}
	g := NewSingleEliminationGenerator(reverse)
	participants := makeParticipants(4)

	specs, err := g.GenerateRoundOne(context.Background(), GenerateParams{Participants: participants})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, participants[3].ID, *specs[0].Player1ID)
	assert.Equal(t, participants[2].ID, *specs[0].Player2ID)
	assert.Equal(t, participants[1].ID, *specs[1].Player1ID)
	assert.Equal(t, participants[0].ID, *specs[1].Player2ID)
}

func TestGenerateRoundOneDoesNotMutateInput(t *testing.T) {
	reverse := func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}
	g := NewSingleEliminationGenerator(reverse)
	participants := makeParticipants(4)
	original := make([]models.Participant, len(participants))
	copy(original, participants)

	_, err := g.GenerateRoundOne(context.Background(), GenerateParams{Participants: participants})
	require.NoError(t, err)
	assert.Equal(t, original, participants)
}

func TestPairSlotsLaterRound(t *testing.T) {
	winners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	specs := PairSlots(winners, 2)
	require.Len(t, specs, 2)

	assert.Equal(t, winners[0], *specs[0].Player1ID)
	assert.Equal(t, winners[1], *specs[0].Player2ID)
	assert.Equal(t, winners[2], *specs[1].Player1ID)
	assert.Equal(t, winners[3], *specs[1].Player2ID)
	for i, spec := range specs {
		assert.Equal(t, 2, spec.Round)
		assert.Equal(t, i+1, spec.Position)
	}
}

func TestPairSlotsOddWinnersLeavesBye(t *testing.T) {
	winners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	specs := PairSlots(winners, 3)
	require.Len(t, specs, 2)
	assert.False(t, specs[0].Bye)
	assert.True(t, specs[1].Bye)
	assert.Equal(t, winners[2], *specs[1].Player1ID)
	assert.Nil(t, specs[1].Player2ID)
}
