package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pongarena/tournament-engine/models"
	"github.com/pongarena/tournament-engine/repositories"
)

// Deliverer is the external notification transport: it hands one line of
// text to a user through whatever inbox or push mechanism the surrounding
// system provides. Failures are non-fatal to callers.
type Deliverer interface {
	Deliver(ctx context.Context, userID uuid.UUID, text string) error
}

// UserDirectory is the external identity collaborator.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier fans tournament messages out to participants. Delivery is
// best-effort: a failure for one recipient is logged and does not abort
// the others, and it never rolls back the state transition that triggered
// the message.
type Notifier interface {
	// Broadcast sends the template, with {tournamentName} substituted,
	// to every given participant.
	Broadcast(ctx context.Context, t *models.Tournament, participants []models.Participant, template string)
	// NotifyPairings tells each player of the given matches who their
	// opponent is; bye occupants are told they advance automatically.
	NotifyPairings(ctx context.Context, t *models.Tournament, matches []*models.Match, participants []models.Participant)
}

type notifier struct {
	deliverer Deliverer
	logger    *slog.Logger
}

func NewNotifier(deliverer Deliverer, logger *slog.Logger) Notifier {
	return &notifier{deliverer: deliverer, logger: logger}
}

func renderTemplate(template string, t *models.Tournament) string {
	return strings.ReplaceAll(template, "{tournamentName}", t.Name)
}

func (n *notifier) deliver(ctx context.Context, t *models.Tournament, userID uuid.UUID, text string) {
	if err := n.deliverer.Deliver(ctx, userID, text); err != nil {
		n.logger.Warn("notification delivery failed",
			slog.String("tournament_id", t.ID.String()),
			slog.String("user_id", userID.String()),
			slog.Any("error", err))
	}
}

func (n *notifier) Broadcast(ctx context.Context, t *models.Tournament, participants []models.Participant, template string) {
	text := renderTemplate(template, t)
	for _, p := range participants {
		n.deliver(ctx, t, p.UserID, text)
	}
}

func (n *notifier) NotifyPairings(ctx context.Context, t *models.Tournament, matches []*models.Match, participants []models.Participant) {
	byID := make(map[uuid.UUID]models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	for _, m := range matches {
		if m.Player1ID == nil {
			continue
		}
		p1, ok1 := byID[*m.Player1ID]
		if m.Player2ID == nil {
			if ok1 {
				text := fmt.Sprintf("You have a bye in round %d of %s and advance automatically.", m.Round, t.Name)
				n.deliver(ctx, t, p1.UserID, text)
			}
			continue
		}
		p2, ok2 := byID[*m.Player2ID]
		if ok1 && ok2 {
			n.deliver(ctx, t, p1.UserID,
				fmt.Sprintf("Round %d of %s: you face %s.", m.Round, t.Name, p2.Alias))
			n.deliver(ctx, t, p2.UserID,
				fmt.Sprintf("Round %d of %s: you face %s.", m.Round, t.Name, p1.Alias))
		}
	}
}

// inboxDeliverer writes messages into the surrounding system's persistent
// notification inbox.
type inboxDeliverer struct {
	notificationRepo repositories.NotificationRepository
}

func NewInboxDeliverer(notificationRepo repositories.NotificationRepository) Deliverer {
	return &inboxDeliverer{notificationRepo: notificationRepo}
}

func (d *inboxDeliverer) Deliver(ctx context.Context, userID uuid.UUID, text string) error {
	return d.notificationRepo.Create(ctx, &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Body:      text,
		CreatedAt: time.Now().UTC(),
	})
}

// NotificationService exposes a user's inbox to the API layer.
type NotificationService interface {
	ListInbox(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
}

func NewNotificationService(notificationRepo repositories.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) ListInbox(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID, limit)
}
