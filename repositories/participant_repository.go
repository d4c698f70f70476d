package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/models"
)

var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrParticipantConflict = errors.New("user already registered for this tournament")
	ErrAliasConflict       = errors.New("alias already taken in this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Participant, error)
	GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID uuid.UUID) (*models.Participant, error)
	// ListByTournament returns participants in join order. The ordering is
	// what the bracket generator shuffles, so it must be stable.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Participant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error)
	AliasTaken(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias string) (bool, error)
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
}

type sqlParticipantRepository struct {
	db *sqlx.DB
}

func NewSQLParticipantRepository(db *sqlx.DB) ParticipantRepository {
	return &sqlParticipantRepository{db: db}
}

func (r *sqlParticipantRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *sqlParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (id, tournament_id, user_id, alias, joined_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.executor(exec).ExecContext(ctx, query, p.ID, p.TournamentID, p.UserID, p.Alias, p.JoinedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err, "user_id"):
			return ErrParticipantConflict
		case isUniqueViolation(err, "alias"):
			return ErrAliasConflict
		}
		return fmt.Errorf("failed to insert participant %s: %w", p.ID, err)
	}
	return nil
}

func (r *sqlParticipantRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Participant, error) {
	query := `SELECT id, tournament_id, user_id, alias, joined_at FROM participants WHERE id = $1`

	p := &models.Participant{}
	err := sqlx.GetContext(ctx, r.executor(exec), p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant %s: %w", id, err)
	}
	return p, nil
}

func (r *sqlParticipantRepository) GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID uuid.UUID) (*models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, alias, joined_at
		FROM participants
		WHERE tournament_id = $1 AND user_id = $2`

	p := &models.Participant{}
	err := sqlx.GetContext(ctx, r.executor(exec), p, query, tournamentID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant of user %s in tournament %s: %w", userID, tournamentID, err)
	}
	return p, nil
}

func (r *sqlParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) ([]models.Participant, error) {
	query := `
		SELECT id, tournament_id, user_id, alias, joined_at
		FROM participants
		WHERE tournament_id = $1
		ORDER BY joined_at ASC, id ASC`

	participants := make([]models.Participant, 0)
	if err := sqlx.SelectContext(ctx, r.executor(exec), &participants, query, tournamentID); err != nil {
		return nil, fmt.Errorf("failed to list participants of tournament %s: %w", tournamentID, err)
	}
	return participants, nil
}

func (r *sqlParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.executor(exec), &count,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants of tournament %s: %w", tournamentID, err)
	}
	return count, nil
}

func (r *sqlParticipantRepository) AliasTaken(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID, alias string) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, r.executor(exec), &count,
		`SELECT COUNT(*) FROM participants WHERE tournament_id = $1 AND alias = $2`, tournamentID, alias)
	if err != nil {
		return false, fmt.Errorf("failed to check alias %q in tournament %s: %w", alias, tournamentID, err)
	}
	return count > 0, nil
}

func (r *sqlParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	res, err := r.executor(exec).ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant %s: %w", id, err)
	}
	return ensureRowAffected(res, ErrParticipantNotFound)
}
