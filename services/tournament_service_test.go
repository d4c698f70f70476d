package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/tournament-engine/models"
)

func TestCreateTournamentValidation(t *testing.T) {
	f := newFixture(t)
	creatorID := seedUser(t, f.db, "creator")

	_, err := f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
		Name: "   ", MaxPlayers: 8,
	})
	require.ErrorIs(t, err, ErrTournamentNameRequired)

	for _, size := range []int{0, 3, 5, 64} {
		_, err := f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
			Name: "Cup", MaxPlayers: size,
		})
		require.ErrorIs(t, err, ErrInvalidMaxPlayers, "size %d must be rejected", size)
	}
}

func TestCreateTournamentStartsInRegistration(t *testing.T) {
	f := newFixture(t)
	creatorID := seedUser(t, f.db, "creator")

	tournament, err := f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
		Name: "  Weekly Ladder  ", MaxPlayers: 8, IsPublic: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Weekly Ladder", tournament.Name)
	assert.Equal(t, models.StatusRegistration, tournament.Status)
	assert.Equal(t, 0, tournament.CurrentRound)
	assert.Equal(t, creatorID, tournament.CreatorID)

	fetched, err := f.tournaments.GetDetail(context.Background(), tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, tournament.ID, fetched.ID)
	assert.Empty(t, fetched.Participants)
	assert.Empty(t, fetched.Matches)
}

func TestListOnlyReturnsPublicTournaments(t *testing.T) {
	f := newFixture(t)
	creatorID := seedUser(t, f.db, "creator")

	public, err := f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
		Name: "Open Cup", MaxPlayers: 4, IsPublic: true,
	})
	require.NoError(t, err)
	_, err = f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
		Name: "Office Only", MaxPlayers: 4, IsPublic: false,
	})
	require.NoError(t, err)

	tournaments, err := f.tournaments.List(context.Background(), ListTournamentsFilter{})
	require.NoError(t, err)
	require.Len(t, tournaments, 1)
	assert.Equal(t, public.ID, tournaments[0].ID)
}

func TestStartRequiresCreator(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 2)

	stranger := seedUser(t, f.db, "stranger")
	_, err := f.tournaments.Start(context.Background(), tournamentID, stranger)
	require.ErrorIs(t, err, ErrNotCreator)
}

func TestStartRequiresTwoParticipants(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 1)

	_, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.ErrorIs(t, err, ErrNotEnoughParticipants)
}

func TestStartGeneratesRoundOne(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, userIDs := f.createTournamentWithPlayers(t, 4, 4)

	tournament, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentRound)
	require.Len(t, tournament.Matches, 2)
	for i, m := range tournament.Matches {
		assert.Equal(t, 1, m.Round)
		assert.Equal(t, i+1, m.Position)
		assert.NotNil(t, m.Player1ID)
		assert.NotNil(t, m.Player2ID)
		assert.Nil(t, m.WinnerID)
	}

	// Every player is told who they face.
	for _, userID := range userIDs {
		notes := f.deliverer.notesFor(userID)
		require.Len(t, notes, 1)
		assert.Contains(t, notes[0], "Round 1")
		assert.Contains(t, notes[0], "you face")
	}
}

func TestStartIsAOneWayGate(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 2)

	_, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)

	_, err = f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.ErrorIs(t, err, ErrAlreadyStarted)
}

func TestStartWithOddCountResolvesByeImmediately(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, userIDs := f.createTournamentWithPlayers(t, 4, 3)

	tournament, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)
	require.Len(t, tournament.Matches, 2)

	bye := tournament.Matches[1]
	require.NotNil(t, bye.Player1ID)
	assert.Nil(t, bye.Player2ID)
	require.NotNil(t, bye.WinnerID, "bye slot must be persisted already resolved")
	assert.Equal(t, *bye.Player1ID, *bye.WinnerID)
	assert.Equal(t, 0, bye.Score1)
	assert.Equal(t, 0, bye.Score2)
	require.NotNil(t, bye.PlayedAt)

	// The last joiner got the bye and is told so.
	notes := f.deliverer.notesFor(userIDs[2])
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "bye")
	assert.Contains(t, notes[0], "advance automatically")
}

func TestDeleteRequiresCreatorAndRegistration(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 2)

	stranger := seedUser(t, f.db, "stranger")
	err := f.tournaments.Delete(context.Background(), tournamentID, stranger)
	require.ErrorIs(t, err, ErrNotCreator)

	_, err = f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)

	err = f.tournaments.Delete(context.Background(), tournamentID, creatorID)
	require.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestDeleteRemovesTournamentAndEnrollments(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 2)

	require.NoError(t, f.tournaments.Delete(context.Background(), tournamentID, creatorID))

	_, err := f.tournaments.GetDetail(context.Background(), tournamentID)
	require.ErrorIs(t, err, ErrTournamentNotFound)

	count, err := f.participantRepo.CountByTournament(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.False(t, lockerHas(f.locker, tournamentID),
		"a deleted tournament must not keep a lock entry")
}

func TestUploadLogoWithoutStorageConfigured(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 2)

	_, err := f.tournaments.UploadLogo(context.Background(), tournamentID, creatorID,
		"image/png", strings.NewReader("not really a png"))
	require.ErrorIs(t, err, ErrLogoStorageUnavailable)
}

func TestGetDetailUnknownTournament(t *testing.T) {
	f := newFixture(t)

	_, err := f.tournaments.GetDetail(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrTournamentNotFound)
}
