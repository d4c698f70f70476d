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

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads the surrounding system's identity records. This
// service never writes them.
type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type sqlUserRepository struct {
	db *sqlx.DB
}

func NewSQLUserRepository(db *sqlx.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

func (r *sqlUserRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := sqlx.GetContext(ctx, r.db, u, `SELECT id, display_name FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user %s: %w", id, err)
	}
	return u, nil
}
