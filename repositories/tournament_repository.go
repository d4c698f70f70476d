package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/models"
)

var ErrTournamentNotFound = errors.New("tournament not found")

// ListTournamentsFilter narrows the tournament listing.
type ListTournamentsFilter struct {
	Status     *models.TournamentStatus
	CreatorID  *uuid.UUID
	PublicOnly bool
	Limit      int
	Offset     int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// UpdateStatusAndRound records a status transition together with the
	// round counter it belongs to.
	UpdateStatusAndRound(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.TournamentStatus, currentRound int) error
	// Finalize marks the tournament finished and records the winning
	// user, if any.
	Finalize(ctx context.Context, exec SQLExecutor, id uuid.UUID, winnerUserID *uuid.UUID, completedAt time.Time) error
	UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error
	// Delete removes the tournament and, explicitly, its participants and
	// matches. The schema cascades as well; the explicit deletes keep the
	// behavior identical across drivers.
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
}

type sqlTournamentRepository struct {
	db *sqlx.DB
}

func NewSQLTournamentRepository(db *sqlx.DB) TournamentRepository {
	return &sqlTournamentRepository{db: db}
}

func (r *sqlTournamentRepository) executor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `id, name, max_players, is_public, creator_id, status,
	current_round, winner_id, logo_key, created_at, completed_at`

func (r *sqlTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments
			(id, name, max_players, is_public, creator_id, status, current_round, winner_id, logo_key, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.executor(exec).ExecContext(ctx, query,
		t.ID, t.Name, t.MaxPlayers, t.IsPublic, t.CreatorID,
		t.Status, t.CurrentRound, t.WinnerID, t.LogoKey, t.CreatedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert tournament %s: %w", t.ID, err)
	}
	return nil
}

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := sqlx.GetContext(ctx, r.executor(exec), t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *sqlTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`)

	args := []interface{}{}
	argID := 1

	if filter.PublicOnly {
		b.WriteString(" AND is_public = TRUE")
	}
	if filter.Status != nil {
		b.WriteString(" AND status = $" + strconv.Itoa(argID))
		args = append(args, *filter.Status)
		argID++
	}
	if filter.CreatorID != nil {
		b.WriteString(" AND creator_id = $" + strconv.Itoa(argID))
		args = append(args, *filter.CreatorID)
		argID++
	}

	b.WriteString(" ORDER BY created_at DESC, id DESC")

	if filter.Limit > 0 {
		b.WriteString(" LIMIT $" + strconv.Itoa(argID))
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET $" + strconv.Itoa(argID))
		args = append(args, filter.Offset)
	}

	tournaments := make([]models.Tournament, 0)
	if err := sqlx.SelectContext(ctx, r.db, &tournaments, b.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) UpdateStatusAndRound(ctx context.Context, exec SQLExecutor, id uuid.UUID, status models.TournamentStatus, currentRound int) error {
	query := `UPDATE tournaments SET status = $1, current_round = $2 WHERE id = $3`

	res, err := r.executor(exec).ExecContext(ctx, query, status, currentRound, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %s status: %w", id, err)
	}
	return ensureRowAffected(res, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) Finalize(ctx context.Context, exec SQLExecutor, id uuid.UUID, winnerUserID *uuid.UUID, completedAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, winner_id = $2, completed_at = $3
		WHERE id = $4 AND status = $5`

	res, err := r.executor(exec).ExecContext(ctx, query,
		models.StatusFinished, winnerUserID, completedAt, id, models.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to finalize tournament %s: %w", id, err)
	}
	return ensureRowAffected(res, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) UpdateLogoKey(ctx context.Context, id uuid.UUID, logoKey *string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tournaments SET logo_key = $1 WHERE id = $2`, logoKey, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament %s logo key: %w", id, err)
	}
	return ensureRowAffected(res, ErrTournamentNotFound)
}

func (r *sqlTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	e := r.executor(exec)

	if _, err := e.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete matches of tournament %s: %w", id, err)
	}
	if _, err := e.ExecContext(ctx, `DELETE FROM participants WHERE tournament_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete participants of tournament %s: %w", id, err)
	}

	res, err := e.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament %s: %w", id, err)
	}
	return ensureRowAffected(res, ErrTournamentNotFound)
}

func ensureRowAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
