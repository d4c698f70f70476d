package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/models"
	"github.com/pongarena/tournament-engine/repositories"
)

type ParticipantService interface {
	// Join enrolls the user, snapshotting their display name as the
	// alias. Only possible while registration is open and there is room.
	Join(ctx context.Context, tournamentID, userID uuid.UUID) (*models.Participant, error)
	// Leave withdraws the user's enrollment; registration only.
	Leave(ctx context.Context, tournamentID, userID uuid.UUID) error
}

type participantService struct {
	db              *sqlx.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	directory       UserDirectory
	locker          *TournamentLocker
}

func NewParticipantService(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	directory UserDirectory,
	locker *TournamentLocker,
) ParticipantService {
	return &participantService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		directory:       directory,
		locker:          locker,
	}
}

func (s *participantService) Join(ctx context.Context, tournamentID, userID uuid.UUID) (*models.Participant, error) {
	// The alias snapshot comes from the identity collaborator; resolve it
	// before taking the lock so no external call runs inside it.
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	var participant *models.Participant
	err = runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.Status != models.StatusRegistration {
			return ErrRegistrationClosed
		}

		count, err := s.participantRepo.CountByTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		if count >= t.MaxPlayers {
			return ErrTournamentFull
		}

		if _, err := s.participantRepo.GetByTournamentAndUser(ctx, tx, tournamentID, userID); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, repositories.ErrParticipantNotFound) {
			return err
		}

		taken, err := s.participantRepo.AliasTaken(ctx, tx, tournamentID, user.DisplayName)
		if err != nil {
			return err
		}
		if taken {
			return ErrAliasTaken
		}

		participant = &models.Participant{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			UserID:       userID,
			Alias:        user.DisplayName,
			JoinedAt:     time.Now().UTC(),
		}
		if err := s.participantRepo.Create(ctx, tx, participant); err != nil {
			switch {
			case errors.Is(err, repositories.ErrParticipantConflict):
				return ErrAlreadyJoined
			case errors.Is(err, repositories.ErrAliasConflict):
				return ErrAliasTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

func (s *participantService) Leave(ctx context.Context, tournamentID, userID uuid.UUID) error {
	unlock := s.locker.Lock(tournamentID)
	defer unlock()

	return runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.Status != models.StatusRegistration {
			return ErrRegistrationClosed
		}

		participant, err := s.participantRepo.GetByTournamentAndUser(ctx, tx, tournamentID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		return s.participantRepo.Delete(ctx, tx, participant.ID)
	})
}
