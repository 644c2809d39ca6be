package pgbroker

import (
	"context"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const shipmentColumns = `
  id, user_id,
  sender_name, sender_phone, sender_zip, sender_address,
  receiver_name, receiver_phone, receiver_zip, receiver_address,
  weight_kg, length_cm, width_cm, height_cm,
  carrier, amount, currency, status,
  tracking_number, label_url, tracking_status,
  external_shipment_id, external_data::text,
  last_checked_at, next_check_at, check_fail_count,
  created_at, updated_at`

type shipmentRow interface {
	Scan(dest ...any) error
}

func scanShipment(row shipmentRow) (*models.Shipment, error) {
	var sh models.Shipment
	err := row.Scan(
		&sh.ID, &sh.UserID,
		&sh.SenderName, &sh.SenderPhone, &sh.SenderZip, &sh.SenderAddress,
		&sh.ReceiverName, &sh.ReceiverPhone, &sh.ReceiverZip, &sh.ReceiverAddress,
		&sh.WeightKg, &sh.LengthCm, &sh.WidthCm, &sh.HeightCm,
		&sh.Carrier, &sh.Amount, &sh.Currency, &sh.Status,
		&sh.TrackingNumber, &sh.LabelURL, &sh.TrackingStatus,
		&sh.ExternalShipmentID, &sh.ExternalData,
		&sh.LastCheckedAt, &sh.NextCheckAt, &sh.CheckFailCount,
		&sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Storage) CreateShipment(ctx context.Context, sh *models.Shipment) (*models.Shipment, error) {
	now := time.Now().UTC()

	// Shipments with a tracking number are due for a first carrier check
	// right away; the rest wait for sync to discover one.
	var nextCheck *time.Time
	if sh.TrackingNumber != nil {
		nextCheck = &now
	}

	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO shipments (
  user_id,
  sender_name, sender_phone, sender_zip, sender_address,
  receiver_name, receiver_phone, receiver_zip, receiver_address,
  weight_kg, length_cm, width_cm, height_cm,
  carrier, amount, currency, status,
  tracking_number, label_url, tracking_status,
  external_shipment_id, external_data,
  next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$24)
RETURNING id
`,
		sh.UserID,
		sh.SenderName, sh.SenderPhone, sh.SenderZip, sh.SenderAddress,
		sh.ReceiverName, sh.ReceiverPhone, sh.ReceiverZip, sh.ReceiverAddress,
		sh.WeightKg, sh.LengthCm, sh.WidthCm, sh.HeightCm,
		sh.Carrier, sh.Amount, sh.Currency, sh.Status,
		sh.TrackingNumber, sh.LabelURL, sh.TrackingStatus,
		sh.ExternalShipmentID, sh.ExternalData,
		nextCheck, now,
	).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert shipment")
	}

	return s.GetShipmentByID(ctx, id)
}

func (s *Storage) GetShipmentByID(ctx context.Context, id int64) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("shipment", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment")
	}
	return sh, nil
}

func (s *Storage) GetShipmentByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	sh, err := scanShipment(s.db.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number = $1 ORDER BY id DESC LIMIT 1`, trackingNumber))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("shipment", trackingNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select shipment by tracking number")
	}
	return sh, nil
}

func (s *Storage) ListShipmentsByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Shipment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select shipments")
	}
	defer rows.Close()

	var out []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// MarkShipmentCancelled flips the status, conditionally so two concurrent
// cancels cannot both succeed.
func (s *Storage) MarkShipmentCancelled(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `
UPDATE shipments
SET status = $2, tracking_status = $3, next_check_at = NULL, updated_at = now()
WHERE id = $1 AND status <> $2
`, id, models.ShipmentStatusCancelled, models.TrackingStatusCancelled)
	if err != nil {
		return errors.Wrap(err, "cancel shipment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("shipment already cancelled")
	}
	return nil
}

// UpdateShipmentSync writes the fields a gateway sync can change.
func (s *Storage) UpdateShipmentSync(ctx context.Context, id int64, status string, trackingNumber, labelURL *string) error {
	_, err := s.db.Exec(ctx, `
UPDATE shipments
SET status = $2,
    tracking_number = COALESCE($3, tracking_number),
    label_url = COALESCE($4, label_url),
    next_check_at = CASE WHEN $3 IS NOT NULL AND next_check_at IS NULL THEN now() ELSE next_check_at END,
    updated_at = now()
WHERE id = $1
`, id, status, trackingNumber, labelURL)
	return errors.Wrap(err, "update shipment sync")
}

// ClaimDueShipments picks a batch of shipments due for a tracking check and
// leases them so concurrent workers do not re-pick them mid-flight.
// Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueShipments(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Shipment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT `+shipmentColumns+`
FROM shipments
WHERE next_check_at IS NOT NULL
  AND next_check_at <= $1
  AND tracking_number IS NOT NULL
  AND status <> $2
  AND tracking_status NOT IN ($3, $4)
ORDER BY next_check_at ASC
LIMIT $5
FOR UPDATE SKIP LOCKED
`, now.UTC(), models.ShipmentStatusCancelled, models.TrackingStatusDelivered, models.TrackingStatusCancelled, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due shipments")
	}
	defer rows.Close()

	var picked []*models.Shipment
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due shipment")
		}
		picked = append(picked, sh)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, sh := range picked {
		_, err := tx.Exec(ctx, `UPDATE shipments SET next_check_at = $2, updated_at = now() WHERE id = $1`, sh.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease shipment")
		}
		t := leaseUntil
		sh.NextCheckAt = &t
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}
