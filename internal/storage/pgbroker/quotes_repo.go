package pgbroker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/pkg/errors"
)

// InsertQuote records one rate-shopping request with the full margined
// rates payload. Quotes are never read back by the purchase path; the
// record exists for auditing and analytics.
func (s *Storage) InsertQuote(ctx context.Context, q *models.Quote) (int64, error) {
	ratesJSON, err := json.Marshal(q.Rates)
	if err != nil {
		return 0, errors.Wrap(err, "marshal rates")
	}

	var id int64
	err = s.db.QueryRow(ctx, `
INSERT INTO quotes (user_id, origin_zip, dest_zip, weight_kg, rates, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id
`, q.UserID, q.OriginZip, q.DestZip, q.WeightKg, ratesJSON, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "insert quote")
	}
	return id, nil
}
