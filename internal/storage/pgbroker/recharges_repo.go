package pgbroker

import (
	"context"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const rechargeColumns = `
  id, user_id, amount, currency, method, voucher_ref,
  status, admin_id, admin_notes, processed_at, created_at, updated_at`

func scanRecharge(row shipmentRow) (*models.RechargeRequest, error) {
	var r models.RechargeRequest
	err := row.Scan(
		&r.ID, &r.UserID, &r.Amount, &r.Currency, &r.Method, &r.VoucherRef,
		&r.Status, &r.AdminID, &r.AdminNotes, &r.ProcessedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Storage) CreateRechargeRequest(ctx context.Context, r *models.RechargeRequest) (*models.RechargeRequest, error) {
	now := time.Now().UTC()
	var id int64
	err := s.db.QueryRow(ctx, `
INSERT INTO recharge_requests (user_id, amount, currency, method, voucher_ref, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$7)
RETURNING id
`, r.UserID, r.Amount, r.Currency, r.Method, r.VoucherRef, models.RechargeStatusPending, now).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert recharge request")
	}
	return s.GetRechargeByID(ctx, id)
}

func (s *Storage) GetRechargeByID(ctx context.Context, id int64) (*models.RechargeRequest, error) {
	r, err := scanRecharge(s.db.QueryRow(ctx, `SELECT `+rechargeColumns+` FROM recharge_requests WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("recharge request", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "select recharge request")
	}
	return r, nil
}

func (s *Storage) ListRechargeRequests(ctx context.Context, status string, limit, offset int) ([]*models.RechargeRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT `+rechargeColumns+`
FROM recharge_requests
WHERE ($1 = '' OR status = $1)
ORDER BY created_at ASC
LIMIT $2 OFFSET $3
`, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select recharge requests")
	}
	defer rows.Close()

	var out []*models.RechargeRequest
	for rows.Next() {
		r, err := scanRecharge(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan recharge request")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApproveRecharge flips pending→approved and credits the wallet as one
// database transaction. The status flip is conditional, so a request can be
// processed at most once no matter how many admins click at the same time.
func (s *Storage) ApproveRecharge(ctx context.Context, requestID, adminID int64, notes string, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var userID int64
	err = tx.QueryRow(ctx, `
UPDATE recharge_requests
SET status = $2, admin_id = $3, admin_notes = $4, processed_at = now(), updated_at = now()
WHERE id = $1 AND status = $5
RETURNING user_id
`, requestID, models.RechargeStatusApproved, adminID, notes, models.RechargeStatusPending).Scan(&userID)
	if err == pgx.ErrNoRows {
		// Distinguish missing from already processed.
		if _, err2 := s.GetRechargeByID(ctx, requestID); err2 != nil {
			return nil, err2
		}
		return nil, apperr.Conflict("recharge request already processed")
	}
	if err != nil {
		return nil, errors.Wrap(err, "approve recharge")
	}

	txn, err := creditInTx(ctx, tx, userID, in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return txn, nil
}

// RejectRecharge is terminal and has no balance effect.
func (s *Storage) RejectRecharge(ctx context.Context, requestID, adminID int64, notes string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE recharge_requests
SET status = $2, admin_id = $3, admin_notes = $4, processed_at = now(), updated_at = now()
WHERE id = $1 AND status = $5
`, requestID, models.RechargeStatusRejected, adminID, notes, models.RechargeStatusPending)
	if err != nil {
		return errors.Wrap(err, "reject recharge")
	}
	if tag.RowsAffected() == 0 {
		if _, err2 := s.GetRechargeByID(ctx, requestID); err2 != nil {
			return err2
		}
		return apperr.Conflict("recharge request already processed")
	}
	return nil
}
