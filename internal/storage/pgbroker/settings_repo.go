package pgbroker

import (
	"context"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	var st models.Setting
	err := s.db.QueryRow(ctx, `
SELECT id, key, value, description, updated_at
FROM settings
WHERE key = $1
`, key).Scan(&st.ID, &st.Key, &st.Value, &st.Description, &st.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("setting", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select setting")
	}
	return &st, nil
}

func (s *Storage) UpsertSetting(ctx context.Context, key, value, description string) (*models.Setting, error) {
	var st models.Setting
	err := s.db.QueryRow(ctx, `
INSERT INTO settings (key, value, description, updated_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, description = EXCLUDED.description, updated_at = now()
RETURNING id, key, value, description, updated_at
`, key, value, description).Scan(&st.ID, &st.Key, &st.Value, &st.Description, &st.UpdatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "upsert setting")
	}
	return &st, nil
}
