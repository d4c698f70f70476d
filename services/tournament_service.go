package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/pongarena/tournament-engine/brackets"
	"github.com/pongarena/tournament-engine/models"
	"github.com/pongarena/tournament-engine/repositories"
	"github.com/pongarena/tournament-engine/storage"
)

// allowedBracketSizes are the only accepted tournament capacities.
var allowedBracketSizes = map[int]bool{4: true, 8: true, 16: true, 32: true}

var allowedLogoTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

type CreateTournamentInput struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"max_players"`
	IsPublic   bool   `json:"is_public"`
}

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentService interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// GetDetail returns the tournament with its participants and matches.
	GetDetail(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	// Start closes registration, generates round one and activates the
	// bracket. It is a one-way gate.
	Start(ctx context.Context, id, callerID uuid.UUID) (*models.Tournament, error)
	// Delete removes a tournament that never started, cascading to its
	// participants and matches.
	Delete(ctx context.Context, id, callerID uuid.UUID) error
	UploadLogo(ctx context.Context, id, callerID uuid.UUID, contentType string, r io.Reader) (*models.Tournament, error)
}

type tournamentService struct {
	db              *sqlx.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	generator       brackets.BracketGenerator
	locker          *TournamentLocker
	notifier        Notifier
	hub             *brackets.Hub
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewTournamentService(
	db *sqlx.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	generator brackets.BracketGenerator,
	locker *TournamentLocker,
	notifier Notifier,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		generator:       generator,
		locker:          locker,
		notifier:        notifier,
		hub:             hub,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, creatorID uuid.UUID, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !allowedBracketSizes[input.MaxPlayers] {
		return nil, ErrInvalidMaxPlayers
	}

	t := &models.Tournament{
		ID:           uuid.New(),
		Name:         name,
		MaxPlayers:   input.MaxPlayers,
		IsPublic:     input.IsPublic,
		CreatorID:    creatorID,
		Status:       models.StatusRegistration,
		CurrentRound: 0,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status:     filter.Status,
		PublicOnly: true,
		Limit:      limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.attachLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) GetDetail(ctx context.Context, id uuid.UUID) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		t.Participants = participants
		return nil
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, nil, id)
		if err != nil {
			return err
		}
		t.Matches = matches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) Start(ctx context.Context, id, callerID uuid.UUID) (*models.Tournament, error) {
	unlock := s.locker.Lock(id)

	var (
		tournament   *models.Tournament
		participants []models.Participant
		matches      []*models.Match
	)

	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, id)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.CreatorID != callerID {
			return ErrNotCreator
		}
		if t.Status != models.StatusRegistration {
			return ErrAlreadyStarted
		}

		participants, err = s.participantRepo.ListByTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(participants) < 2 {
			return ErrNotEnoughParticipants
		}

		specs, err := s.generator.GenerateRoundOne(ctx, brackets.GenerateParams{
			Tournament:   t,
			Participants: participants,
		})
		if err != nil {
			if errors.Is(err, brackets.ErrNotEnoughParticipants) {
				return ErrNotEnoughParticipants
			}
			return fmt.Errorf("failed to generate round one: %w", err)
		}

		matches = matchesFromSpecs(id, specs, time.Now().UTC())
		if err := s.matchRepo.CreateBatch(ctx, tx, matches); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatusAndRound(ctx, tx, id, models.StatusActive, 1); err != nil {
			return err
		}

		t.Status = models.StatusActive
		t.CurrentRound = 1
		tournament = t
		return nil
	})

	// Pairing notifications go out after the lock is released.
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.String("tournament_id", id.String()),
		slog.Int("participants", len(participants)),
		slog.Int("round_one_matches", len(matches)))

	// Side effects only; never block or fail the transition.
	s.notifier.NotifyPairings(ctx, tournament, matches, participants)
	s.hub.BroadcastToRoom(id, brackets.Event{
		Type:         brackets.EventTournamentStarted,
		TournamentID: id,
		Payload:      matches,
	})

	tournament.Participants = participants
	tournament.Matches = dereferenceMatches(matches)
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	unlock := s.locker.Lock(id)

	var logoKey *string
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournamentRepo.GetByID(ctx, tx, id)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if t.CreatorID != callerID {
			return ErrNotCreator
		}
		if t.Status != models.StatusRegistration {
			return ErrRegistrationClosed
		}
		logoKey = t.LogoKey
		return s.tournamentRepo.Delete(ctx, tx, id)
	})

	// The logo delete is a remote call; it runs after the lock is released.
	unlock()
	if err != nil {
		return err
	}

	s.locker.Forget(id)

	if logoKey != nil && s.uploader != nil {
		if delErr := s.uploader.Delete(ctx, *logoKey); delErr != nil {
			s.logger.Warn("failed to delete tournament logo",
				slog.String("tournament_id", id.String()), slog.Any("error", delErr))
		}
	}
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id, callerID uuid.UUID, contentType string, r io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrLogoStorageUnavailable
	}
	ext, ok := allowedLogoTypes[contentType]
	if !ok {
		return nil, ErrUnsupportedLogoType
	}

	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if t.CreatorID != callerID {
		return nil, ErrNotCreator
	}

	key := fmt.Sprintf("tournaments/%s/logo_%d.%s", id, time.Now().UnixNano(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, r); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &key); err != nil {
		return nil, err
	}

	if t.LogoKey != nil {
		if delErr := s.uploader.Delete(ctx, *t.LogoKey); delErr != nil {
			s.logger.Warn("failed to delete previous tournament logo",
				slog.String("tournament_id", id.String()), slog.Any("error", delErr))
		}
	}

	t.LogoKey = &key
	s.attachLogoURL(t)
	return t, nil
}

func (s *tournamentService) attachLogoURL(t *models.Tournament) {
	if t.LogoKey != nil && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.LogoKey)
		t.LogoURL = &url
	}
}

func mapTournamentRepoError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}

func dereferenceMatches(matches []*models.Match) []models.Match {
	out := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		out = append(out, *m)
	}
	return out
}
