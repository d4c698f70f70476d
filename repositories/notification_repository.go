package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pongarena/tournament-engine/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
}

type sqlNotificationRepository struct {
	db *sqlx.DB
}

func NewSQLNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &sqlNotificationRepository{db: db}
}

func (r *sqlNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, body, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Body, n.CreatedAt, n.ReadAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification %s: %w", n.ID, err)
	}
	return nil
}

func (r *sqlNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, user_id, body, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	notifications := make([]models.Notification, 0)
	if err := sqlx.SelectContext(ctx, r.db, &notifications, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list notifications of user %s: %w", userID, err)
	}
	return notifications, nil
}
