package pgbroker

import (
	"context"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// TrackingUpdate is the result of one carrier poll applied to storage.
type TrackingUpdate struct {
	ShipmentID     int64
	TrackingNumber string

	CheckedAt time.Time

	Status string

	NextCheckAt time.Time

	Events []*models.TrackingEvent

	Error *string
}

func (s *Storage) ListTrackingEvents(ctx context.Context, shipmentID int64, limit, offset int) ([]*models.TrackingEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, shipment_id, tracking_number, status, description, location, event_date, created_at
FROM tracking_events
WHERE shipment_id = $1
ORDER BY event_date DESC
LIMIT $2 OFFSET $3
`, shipmentID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select events")
	}
	defer rows.Close()

	var out []*models.TrackingEvent
	for rows.Next() {
		var e models.TrackingEvent
		if err := rows.Scan(
			&e.ID, &e.ShipmentID, &e.TrackingNumber, &e.Status,
			&e.Description, &e.Location, &e.EventDate, &e.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// InsertTrackingEvent appends one event, dropping it when an event with the
// same status already exists within one second of event_date. A unique index
// cannot express the 1s tolerance, so the guard is part of the insert.
func (s *Storage) InsertTrackingEvent(ctx context.Context, e *models.TrackingEvent) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO tracking_events (shipment_id, tracking_number, status, description, location, event_date, created_at)
SELECT $1, $2, $3, $4, $5, $6, now()
WHERE NOT EXISTS (
  SELECT 1 FROM tracking_events
  WHERE shipment_id = $1
    AND status = $3
    AND ABS(EXTRACT(EPOCH FROM (event_date - $6::timestamptz))) <= 1
)
`, e.ShipmentID, e.TrackingNumber, e.Status, e.Description, e.Location, e.EventDate.UTC())
	return errors.Wrap(err, "insert tracking event")
}

// ApplyShipmentTracked records one poll result: schedule bookkeeping on
// error, or status refresh plus deduplicated event appends on success.
func (s *Storage) ApplyShipmentTracked(ctx context.Context, upd TrackingUpdate) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if upd.Error != nil && *upd.Error != "" {
		_, err := tx.Exec(ctx, `
UPDATE shipments
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  next_check_at = $3,
  updated_at = now()
WHERE id = $1
`, upd.ShipmentID, upd.CheckedAt.UTC(), upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update shipment (error)")
		}
	} else {
		_, err := tx.Exec(ctx, `
UPDATE shipments
SET
  tracking_status = $3,
  last_checked_at = $2,
  check_fail_count = 0,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.ShipmentID, upd.CheckedAt.UTC(), upd.Status, upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update shipment (ok)")
		}

		for _, e := range upd.Events {
			_, err := tx.Exec(ctx, `
INSERT INTO tracking_events (shipment_id, tracking_number, status, description, location, event_date, created_at)
SELECT $1, $2, $3, $4, $5, $6, now()
WHERE NOT EXISTS (
  SELECT 1 FROM tracking_events
  WHERE shipment_id = $1
    AND status = $3
    AND ABS(EXTRACT(EPOCH FROM (event_date - $6::timestamptz))) <= 1
)
`, upd.ShipmentID, upd.TrackingNumber, e.Status, e.Description, e.Location, e.EventDate.UTC())
			if err != nil {
				return errors.Wrap(err, "insert tracking event")
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
