package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/models"
	"github.com/pongarena/tournament-engine/repositories"
)

type ReportResultInput struct {
	WinnerID uuid.UUID `json:"winner_id"`
	Score1   int       `json:"score1"`
	Score2   int       `json:"score2"`
}

// ReportResultOutcome describes what a result submission caused: just a
// recorded match, a round advancement, or tournament completion.
type ReportResultOutcome struct {
	Tournament  *models.Tournament `json:"tournament"`
	Match       *models.Match      `json:"match"`
	Advanced    bool               `json:"advanced"`
	Finished    bool               `json:"finished"`
	NextMatches []models.Match     `json:"next_matches,omitempty"`
}

type MatchService interface {
	// ReportResult records a match result and, if it completed the
	// current round, either creates the next round's pairings or
	// finalizes the tournament. The check-and-maybe-advance step runs as
	// one atomic unit per tournament.
	ReportResult(ctx context.Context, tournamentID, matchID uuid.UUID, input ReportResultInput) (*ReportResultOutcome, error)
	ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Match, error)
}

type matchService struct {
	db              *sqlx.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	locker          *TournamentLocker
	notifier        Notifier
	hub             *brackets.Hub
	logger          *slog.Logger
}

func NewMatchService(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	locker *TournamentLocker,
	notifier Notifier,
	hub *brackets.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		locker:          locker,
		notifier:        notifier,
		hub:             hub,
		logger:          logger,
	}
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID uuid.UUID) ([]models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID)
}

func (s *matchService) ReportResult(ctx context.Context, tournamentID, matchID uuid.UUID, input ReportResultInput) (*ReportResultOutcome, error) {
	if input.WinnerID == uuid.Nil {
		return nil, ErrWinnerRequired
	}
	if input.Score1 < 0 || input.Score2 < 0 {
		return nil, ErrInvalidScore
	}

	unlock := s.locker.Lock(tournamentID)

	outcome := &ReportResultOutcome{}
	var participants []models.Participant
	var nextMatches []*models.Match
	var winnerAlias string

	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.Status != models.StatusActive {
			return ErrTournamentNotActive
		}

		m, err := s.matchRepo.GetByID(ctx, tx, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if m.TournamentID != tournamentID || m.Round != t.CurrentRound {
			return ErrMatchNotFound
		}
		if m.Completed() {
			return ErrMatchAlreadyCompleted
		}

		winner, err := s.participantRepo.GetByTournamentAndUser(ctx, tx, tournamentID, input.WinnerID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrWinnerNotInMatch
			}
			return err
		}
		if !m.HasPlayer(winner.ID) {
			return ErrWinnerNotInMatch
		}

		now := time.Now().UTC()
		if err := s.matchRepo.RecordResult(ctx, tx, m.ID, winner.ID, input.Score1, input.Score2, now); err != nil {
			return err
		}
		m.WinnerID = &winner.ID
		m.Score1 = input.Score1
		m.Score2 = input.Score2
		m.PlayedAt = &now
		outcome.Match = m
		outcome.Tournament = t
		winnerAlias = winner.Alias

		participants, err = s.participantRepo.ListByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}

		nextMatches, err = s.advanceIfComplete(ctx, tx, t, outcome, now)
		return err
	})

	// Release before any side effect: a slow delivery must never hold the
	// lock that guards round advancement.
	unlock()
	if err != nil {
		return nil, err
	}
	if outcome.Finished {
		// A finished tournament takes no more transitions.
		s.locker.Forget(tournamentID)
	}

	s.dispatchResultEffects(ctx, outcome, participants, nextMatches, winnerAlias)

	outcome.NextMatches = dereferenceMatches(nextMatches)
	return outcome, nil
}

// advanceIfComplete runs the round-completion check inside the caller's
// transaction, under the per-tournament lock: if every match of the current
// round has a winner, it either finalizes the tournament or creates the
// next round. Winners are ordered by position; that ordering decides who
// plays whom next.
func (s *matchService) advanceIfComplete(ctx context.Context, tx *sqlx.Tx, t *models.Tournament, outcome *ReportResultOutcome, now time.Time) ([]*models.Match, error) {
	unresolved, err := s.matchRepo.CountUnresolvedInRound(ctx, tx, t.ID, t.CurrentRound)
	if err != nil {
		return nil, err
	}
	if unresolved > 0 {
		return nil, nil
	}

	roundMatches, err := s.matchRepo.ListByRound(ctx, tx, t.ID, t.CurrentRound)
	if err != nil {
		return nil, err
	}
	winners := make([]uuid.UUID, 0, len(roundMatches))
	for _, m := range roundMatches {
		if m.WinnerID != nil {
			winners = append(winners, *m.WinnerID)
		}
	}

	if len(winners) <= 1 {
		// Final round complete: finish the tournament. The zero-winner
		// branch cannot occur with auto-resolved byes but is honored.
		var winnerUserID *uuid.UUID
		if len(winners) == 1 {
			winner, err := s.participantRepo.GetByID(ctx, tx, winners[0])
			if err != nil {
				return nil, err
			}
			winnerUserID = &winner.UserID
		}
		completedAt := now
		if err := s.tournamentRepo.Finalize(ctx, tx, t.ID, winnerUserID, completedAt); err != nil {
			return nil, err
		}
		t.Status = models.StatusFinished
		t.WinnerID = winnerUserID
		t.CompletedAt = &completedAt
		outcome.Finished = true
		return nil, nil
	}

	specs := brackets.PairSlots(winners, t.CurrentRound+1)
	nextMatches := matchesFromSpecs(t.ID, specs, now)
	if err := s.matchRepo.CreateBatch(ctx, tx, nextMatches); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateStatusAndRound(ctx, tx, t.ID, models.StatusActive, t.CurrentRound+1); err != nil {
		return nil, err
	}
	t.CurrentRound++
	outcome.Advanced = true
	return nextMatches, nil
}

// dispatchResultEffects fires notifications and live pushes after the
// transaction committed and outside the per-tournament lock. A slow or
// failing delivery never holds up round advancement.
func (s *matchService) dispatchResultEffects(ctx context.Context, outcome *ReportResultOutcome, participants []models.Participant, nextMatches []*models.Match, winnerAlias string) {
	t := outcome.Tournament

	s.hub.BroadcastToRoom(t.ID, brackets.Event{
		Type:         brackets.EventMatchResult,
		TournamentID: t.ID,
		Payload:      outcome.Match,
	})

	switch {
	case outcome.Finished:
		s.logger.Info("tournament finished",
			slog.String("tournament_id", t.ID.String()),
			slog.String("winner", winnerAlias))
		s.notifier.Broadcast(ctx, t, participants,
			"Tournament {tournamentName} has finished. Winner: "+winnerAlias+".")
		s.hub.BroadcastToRoom(t.ID, brackets.Event{
			Type:         brackets.EventTournamentFinished,
			TournamentID: t.ID,
			Payload:      t,
		})
	case outcome.Advanced:
		s.logger.Info("round advanced",
			slog.String("tournament_id", t.ID.String()),
			slog.Int("current_round", t.CurrentRound))
		s.notifier.NotifyPairings(ctx, t, nextMatches, participants)
		s.hub.BroadcastToRoom(t.ID, brackets.Event{
			Type:         brackets.EventRoundAdvanced,
			TournamentID: t.ID,
			Payload:      nextMatches,
		})
	}
}
