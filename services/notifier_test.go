package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/tournament-engine/models"
	"github.com/pongarena/tournament-engine/repositories"
)

func testTournament(name string) *models.Tournament {
	return &models.Tournament{
		ID:        uuid.New(),
		Name:      name,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestBroadcastSubstitutesTournamentName(t *testing.T) {
	deliverer := newRecordingDeliverer()
	n := NewNotifier(deliverer, newTestLogger())

	tournament := testTournament("Spring Open")
	participants := []models.Participant{
		{ID: uuid.New(), UserID: uuid.New(), Alias: "ana"},
		{ID: uuid.New(), UserID: uuid.New(), Alias: "ben"},
	}

	n.Broadcast(context.Background(), tournament, participants,
		"Tournament {tournamentName} has started.")

	require.Equal(t, 2, deliverer.count())
	for _, p := range participants {
		notes := deliverer.notesFor(p.UserID)
		require.Len(t, notes, 1)
		assert.Equal(t, "Tournament Spring Open has started.", notes[0])
	}
}

func TestBroadcastSurvivesSingleRecipientFailure(t *testing.T) {
	deliverer := newRecordingDeliverer()
	n := NewNotifier(deliverer, newTestLogger())

	tournament := testTournament("Spring Open")
	participants := []models.Participant{
		{ID: uuid.New(), UserID: uuid.New(), Alias: "ana"},
		{ID: uuid.New(), UserID: uuid.New(), Alias: "ben"},
		{ID: uuid.New(), UserID: uuid.New(), Alias: "cleo"},
	}
	deliverer.failFor[participants[1].UserID] = errors.New("inbox unreachable")

	n.Broadcast(context.Background(), tournament, participants, "hello from {tournamentName}")

	assert.Empty(t, deliverer.notesFor(participants[1].UserID))
	assert.Len(t, deliverer.notesFor(participants[0].UserID), 1)
	assert.Len(t, deliverer.notesFor(participants[2].UserID), 1)
}

func TestNotifyPairingsNamesOpponents(t *testing.T) {
	deliverer := newRecordingDeliverer()
	n := NewNotifier(deliverer, newTestLogger())

	tournament := testTournament("Spring Open")
	p1 := models.Participant{ID: uuid.New(), UserID: uuid.New(), Alias: "ana"}
	p2 := models.Participant{ID: uuid.New(), UserID: uuid.New(), Alias: "ben"}
	p3 := models.Participant{ID: uuid.New(), UserID: uuid.New(), Alias: "cleo"}
	participants := []models.Participant{p1, p2, p3}

	matches := []*models.Match{
		{ID: uuid.New(), Round: 2, Position: 1, Player1ID: &p1.ID, Player2ID: &p2.ID},
		{ID: uuid.New(), Round: 2, Position: 2, Player1ID: &p3.ID},
	}

	n.NotifyPairings(context.Background(), tournament, matches, participants)

	notes := deliverer.notesFor(p1.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Round 2 of Spring Open: you face ben.", notes[0])

	notes = deliverer.notesFor(p2.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "Round 2 of Spring Open: you face ana.", notes[0])

	notes = deliverer.notesFor(p3.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, "You have a bye in round 2 of Spring Open and advance automatically.", notes[0])
}

func TestInboxDelivererWritesNotificationRows(t *testing.T) {
	db := setupTestDB(t)
	userID := seedUser(t, db, "ana")

	repo := repositories.NewSQLNotificationRepository(db)
	deliverer := NewInboxDeliverer(repo)

	require.NoError(t, deliverer.Deliver(context.Background(), userID, "your match is ready"))

	service := NewNotificationService(repo)
	notifications, err := service.ListInbox(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, userID, notifications[0].UserID)
	assert.Equal(t, "your match is ready", notifications[0].Body)
	assert.Nil(t, notifications[0].ReadAt)
}
