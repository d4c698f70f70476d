package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinSnapshotsDisplayNameAsAlias(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 0)

	userID := seedUser(t, f.db, "zoe")
	participant, err := f.participants.Join(context.Background(), tournamentID, userID)
	require.NoError(t, err)

	assert.Equal(t, tournamentID, participant.TournamentID)
	assert.Equal(t, userID, participant.UserID)
	assert.Equal(t, "zoe", participant.Alias)
	assert.False(t, participant.JoinedAt.IsZero())
}

func TestJoinUnknownUser(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 0)

	_, err := f.participants.Join(context.Background(), tournamentID, uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestJoinUnknownTournament(t *testing.T) {
	f := newFixture(t)
	userID := seedUser(t, f.db, "zoe")

	_, err := f.participants.Join(context.Background(), uuid.New(), userID)
	require.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestJoinTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, userIDs := f.createTournamentWithPlayers(t, 4, 1)

	_, err := f.participants.Join(context.Background(), tournamentID, userIDs[0])
	require.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestJoinFullTournament(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 4)

	userID := seedUser(t, f.db, "latecomer")
	_, err := f.participants.Join(context.Background(), tournamentID, userID)
	require.ErrorIs(t, err, ErrTournamentFull)
}

func TestJoinDuplicateAlias(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 0)

	first := seedUser(t, f.db, "zoe")
	_, err := f.participants.Join(context.Background(), tournamentID, first)
	require.NoError(t, err)

	// A different user with the same display name collides on the alias.
	second := seedUser(t, f.db, "zoe")
	_, err = f.participants.Join(context.Background(), tournamentID, second)
	require.ErrorIs(t, err, ErrAliasTaken)
}

func TestJoinAfterStart(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, _ := f.createTournamentWithPlayers(t, 4, 2)

	_, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)

	userID := seedUser(t, f.db, "latecomer")
	_, err = f.participants.Join(context.Background(), tournamentID, userID)
	require.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestLeaveDuringRegistration(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, userIDs := f.createTournamentWithPlayers(t, 4, 2)

	require.NoError(t, f.participants.Leave(context.Background(), tournamentID, userIDs[0]))

	count, err := f.participantRepo.CountByTournament(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Leaving frees the alias for someone else.
	again := seedUser(t, f.db, playerName(0))
	_, err = f.participants.Join(context.Background(), tournamentID, again)
	require.NoError(t, err)
}

func TestLeaveAfterStartIsRejected(t *testing.T) {
	f := newFixture(t)
	tournamentID, creatorID, userIDs := f.createTournamentWithPlayers(t, 4, 2)

	_, err := f.tournaments.Start(context.Background(), tournamentID, creatorID)
	require.NoError(t, err)

	err = f.participants.Leave(context.Background(), tournamentID, userIDs[0])
	require.ErrorIs(t, err, ErrRegistrationClosed)
}

func TestLeaveWithoutJoining(t *testing.T) {
	f := newFixture(t)
	tournamentID, _, _ := f.createTournamentWithPlayers(t, 4, 2)

	userID := seedUser(t, f.db, "bystander")
	err := f.participants.Leave(context.Background(), tournamentID, userID)
	require.ErrorIs(t, err, ErrParticipantNotFound)
}
