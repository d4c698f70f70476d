package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/repositories"
)

// setupTestDB creates an in-memory SQLite database and applies migrations.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "failed to connect to in-memory DB")

	// A shared in-memory DB only exists on one connection.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance("file://../migrations", "sqlite3", driver)
	require.NoError(t, err, "failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "failed to apply migrations")
	}

	t.Cleanup(func() { database.Close() })
	return database
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *brackets.Hub {
	hub := brackets.NewHub(newTestLogger())
	go hub.Run()
	return hub
}

// identityShuffle keeps join order so pairings in tests are predictable.
func identityShuffle(n int, swap func(i, j int)) {}

type deliveredNote struct {
	UserID uuid.UUID
	Text   string
}

// recordingDeliverer captures every delivery and can fail selected users.
type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []deliveredNote
	failFor   map[uuid.UUID]error
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{failFor: make(map[uuid.UUID]error)}
}

func (d *recordingDeliverer) Deliver(ctx context.Context, userID uuid.UUID, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failFor[userID]; ok {
		return err
	}
	d.delivered = append(d.delivered, deliveredNote{UserID: userID, Text: text})
	return nil
}

func (d *recordingDeliverer) notesFor(userID uuid.UUID) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	texts := make([]string, 0)
	for _, n := range d.delivered {
		if n.UserID == userID {
			texts = append(texts, n.Text)
		}
	}
	return texts
}

func (d *recordingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func seedUser(t *testing.T, db *sqlx.DB, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Exec(`INSERT INTO users (id, display_name) VALUES ($1, $2)`, id, name)
	require.NoError(t, err)
	return id
}

// fixture bundles a fully wired service stack on a fresh in-memory DB.
type fixture struct {
	db        *sqlx.DB
	deliverer *recordingDeliverer
	locker    *TournamentLocker

	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository

	tournaments  TournamentService
	participants ParticipantService
	matches      MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	deliverer := newRecordingDeliverer()
	f := newFixtureWithDeliverer(t, deliverer)
	f.deliverer = deliverer
	return f
}

func newFixtureWithDeliverer(t *testing.T, deliverer Deliverer) *fixture {
	t.Helper()
	db := setupTestDB(t)
	logger := newTestLogger()
	hub := newTestHub()

	tournamentRepo := repositories.NewSQLTournamentRepository(db)
	participantRepo := repositories.NewSQLParticipantRepository(db)
	matchRepo := repositories.NewSQLMatchRepository(db)
	userRepo := repositories.NewSQLUserRepository(db)

	locker := NewTournamentLocker()
	notifier := NewNotifier(deliverer, logger)
	generator := brackets.NewSingleEliminationGenerator(identityShuffle)

	return &fixture{
		db:              db,
		locker:          locker,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		tournaments: NewTournamentService(
			db, tournamentRepo, participantRepo, matchRepo,
			generator, locker, notifier, hub, nil, logger,
		),
		participants: NewParticipantService(db, tournamentRepo, participantRepo, userRepo, locker),
		matches:      NewMatchService(db, tournamentRepo, participantRepo, matchRepo, locker, notifier, hub, logger),
	}
}

// lockerHas reports whether the locker still tracks the tournament.
func lockerHas(l *TournamentLocker, tournamentID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.locks[tournamentID]
	return ok
}

// createTournamentWithPlayers creates a tournament and joins n users,
// returning the tournament, the creator's user id and the joined user ids
// in join order.
func (f *fixture) createTournamentWithPlayers(t *testing.T, maxPlayers, n int) (uuid.UUID, uuid.UUID, []uuid.UUID) {
	t.Helper()
	creatorID := seedUser(t, f.db, "creator")
	tournament, err := f.tournaments.Create(context.Background(), creatorID, CreateTournamentInput{
		Name:       "Weekly Ladder",
		MaxPlayers: maxPlayers,
		IsPublic:   true,
	})
	require.NoError(t, err)

	userIDs := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		userID := seedUser(t, f.db, playerName(i))
		_, err := f.participants.Join(context.Background(), tournament.ID, userID)
		require.NoError(t, err)
		userIDs = append(userIDs, userID)
	}
	return tournament.ID, creatorID, userIDs
}

func playerName(i int) string {
	names := []string{"ana", "ben", "cleo", "dan", "eva", "finn", "gia", "hugo"}
	if i < len(names) {
		return names[i]
	}
	return names[i%len(names)] + "-" + string(rune('a'+i/len(names)))
}
