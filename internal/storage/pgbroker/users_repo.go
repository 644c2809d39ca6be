package pgbroker

import (
	"context"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) CreateUser(ctx context.Context, email, fullName, role string) (*models.User, error) {
	now := time.Now().UTC()
	var u models.User
	err := s.db.QueryRow(ctx, `
INSERT INTO users (email, full_name, role, created_at, updated_at)
VALUES ($1,$2,$3,$4,$4)
RETURNING id, email, full_name, role, balance, currency, created_at, updated_at
`, email, fullName, role, now).Scan(
		&u.ID, &u.Email, &u.FullName, &u.Role, &u.Balance, &u.Currency, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrap(err, "insert user")
	}
	return &u, nil
}

func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, `
SELECT id, email, full_name, role, balance, currency, created_at, updated_at
FROM users
WHERE id = $1
`, id).Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.Balance, &u.Currency, &u.CreatedAt, &u.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user")
	}
	return &u, nil
}

// UserIDBySubject resolves a legacy OIDC subject to the internal user id.
func (s *Storage) UserIDBySubject(ctx context.Context, subject string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE oidc_subject = $1`, subject).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, apperr.NotFound("user", subject)
	}
	if err != nil {
		return 0, errors.Wrap(err, "select user by subject")
	}
	return id, nil
}
