package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Match, error)
	// ListByRound returns the round's matches ordered by position. The
	// ordering feeds next-round pairing and must stay deterministic.
	ListByRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int) ([]models.Match, error)
	CountUnresolvedInRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int) (int, error)
	// RecordResult sets winner, scores and played_at. It only touches a
	// match without a winner, so a completed result is immutable at the
	// storage layer too.
	RecordResult(ctx context.Context, exec SQLExecutor, id, winnerParticipantID uuid.UUID, score1, score2 int, playedAt time.Time) error
}

type sqlMatchRepository struct {
	db *sqlx.DB
}

func NewSQLMatchRepository(db *sqlx.DB) MatchRepository {
	return &sqlMatchRepository{db: db}
}

func (r *sqlMatchRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round, position, player1_id, player2_id,
	winner_id, score1, score2, played_at`

func (r *sqlMatchRepository) CreateBatch(ctx context.Context, exec SQLExecutor, matches []*models.Match) error {
	query := `
		INSERT INTO matches
			(id, tournament_id, round, position, player1_id, player2_id, winner_id, score1, score2, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	e := r.executor(exec)
	for _, m := range matches {
		_, err := e.ExecContext(ctx, query,
			m.ID, m.TournamentID, m.Round, m.Position,
			m.Player1ID, m.Player2ID, m.WinnerID, m.Score1, m.Score2, m.PlayedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match %s (round %d, position %d): %w", m.ID, m.Round, m.Position, err)
		}
	}
	return nil
}

func (r *sqlMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	m := &models.Match{}
	err := sqlx.GetContext(ctx, r.executor(exec), m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s: %w", id, err)
	}
	return m, nil
}

func (r *sqlMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1
		ORDER BY round ASC, position ASC`

	matches := make([]models.Match, 0)
	if err := sqlx.SelectContext(ctx, r.executor(exec), &matches, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list matches of tournament %s: %w", tournamentID, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE tournament_id = $1 AND round = $2
		ORDER BY position ASC`

	matches := make([]models.Match, 0)
	if err := sqlx.SelectContext(ctx, r.executor(exec), &matches, query, tournamentID, round); err != nil {
		return nil, fmt.Errorf("failed to list round %d matches of tournament %s: %w", round, tournamentID, err)
	}
	return matches, nil
}

func (r *sqlMatchRepository) CountUnresolvedInRound(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, round int) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.executor(exec), &count,
		`SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND round = $2 AND winner_id IS NULL`,
		tournamentID, round)
	if err != nil {
		return 0, fmt.Errorf("failed to count unresolved matches in round %d of tournament %s: %w", round, tournamentID, err)
	}
	return count, nil
}

func (r *sqlMatchRepository) RecordResult(ctx context.Context, exec SQLExecutor, id, winnerParticipantID uuid.UUID, score1, score2 int, playedAt time.Time) error {
	query := `
		UPDATE matches
		SET winner_id = $1, score1 = $2, score2 = $3, played_at = $4
		WHERE id = $5 AND winner_id IS NULL`

	res, err := r.executor(exec).ExecContext(ctx, query, winnerParticipantID, score1, score2, playedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record result of match %s: %w", id, err)
	}
	return ensureRowAffected(res, ErrMatchNotFound)
}
