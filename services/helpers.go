package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/models"
)

// runInTx executes fn inside a transaction, rolling back on error and
// committing otherwise.
func runInTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// matchesFromSpecs materializes generated pairings into match records.
// A bye slot is persisted already resolved: its lone player wins 0-0 and
// played_at is set, so round-completion counting treats it as done.
func matchesFromSpecs(tournamentID uuid.UUID, specs []*brackets.MatchSpec, now time.Time) []*models.Match {
	matches := make([]*models.Match, 0, len(specs))
	for _, spec := range specs {
		m := &models.Match{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Round:        spec.Round,
			Position:     spec.Position,
			Player1ID:    spec.Player1ID,
			Player2ID:    spec.Player2ID,
		}
		if spec.Bye && spec.Player1ID != nil {
			winner := *spec.Player1ID
			m.WinnerID = &winner
			playedAt := now
			m.PlayedAt = &playedAt
		}
		matches = append(matches, m)
	}
	return matches
}
