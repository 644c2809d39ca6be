package pgbroker

import (
	"context"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TransactionInput is the ledger entry written alongside a balance change.
// Amount here is the unsigned magnitude; the sign is derived from Type.
type TransactionInput struct {
	Type          string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	ReferenceCode string
	ReferenceID   *int64
	ReferenceType *string
}

// Debit decreases the balance and appends the ledger row in one database
// transaction. The decrement is conditional on sufficient balance, so the
// check and the write cannot be separated by a concurrent spend.
func (s *Storage) Debit(ctx context.Context, userID int64, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var balanceAfter decimal.Decimal
	err = tx.QueryRow(ctx, `
UPDATE users
SET balance = balance - $2, updated_at = now()
WHERE id = $1 AND balance >= $2
RETURNING balance
`, userID, in.Amount).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		// Either the user does not exist or the balance is short; look at
		// the row to report the right error.
		var available decimal.Decimal
		err2 := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&available)
		if err2 == pgx.ErrNoRows {
			return nil, apperr.NotFound("user", userID)
		}
		if err2 != nil {
			return nil, errors.Wrap(err2, "select balance")
		}
		return nil, apperr.InsufficientFunds(in.Amount, available)
	}
	if err != nil {
		return nil, errors.Wrap(err, "debit balance")
	}

	txn, err := insertTransaction(ctx, tx, userID, in, in.Amount.Neg(), balanceAfter)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return txn, nil
}

// Credit increases the balance and appends the ledger row. No upper bound.
func (s *Storage) Credit(ctx context.Context, userID int64, in TransactionInput) (*models.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txn, err := creditInTx(ctx, tx, userID, in)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return txn, nil
}

func creditInTx(ctx context.Context, tx pgx.Tx, userID int64, in TransactionInput) (*models.Transaction, error) {
	var balanceAfter decimal.Decimal
	err := tx.QueryRow(ctx, `
UPDATE users
SET balance = balance + $2, updated_at = now()
WHERE id = $1
RETURNING balance
`, userID, in.Amount).Scan(&balanceAfter)
	if err == pgx.ErrNoRows {
		return nil, apperr.NotFound("user", userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "credit balance")
	}

	return insertTransaction(ctx, tx, userID, in, in.Amount, balanceAfter)
}

func insertTransaction(ctx context.Context, tx pgx.Tx, userID int64, in TransactionInput, signedAmount, balanceAfter decimal.Decimal) (*models.Transaction, error) {
	now := time.Now().UTC()
	currency := in.Currency
	if currency == "" {
		currency = "MXN"
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO transactions (
  user_id, type, amount, balance_after, currency,
  description, reference_code, reference_id, reference_type, status, created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id
`, userID, in.Type, signedAmount, balanceAfter, currency,
		in.Description, in.ReferenceCode, in.ReferenceID, in.ReferenceType,
		models.TransactionStatusCompleted, now).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert transaction")
	}

	return &models.Transaction{
		ID:            id,
		UserID:        userID,
		Type:          in.Type,
		Amount:        signedAmount,
		BalanceAfter:  balanceAfter,
		Currency:      currency,
		Description:   in.Description,
		ReferenceCode: in.ReferenceCode,
		ReferenceID:   in.ReferenceID,
		ReferenceType: in.ReferenceType,
		Status:        models.TransactionStatusCompleted,
		CreatedAt:     now,
	}, nil
}

func (s *Storage) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT
  id, user_id, type, amount, balance_after, currency,
  description, reference_code, reference_id, reference_type, status, created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select transactions")
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Type, &t.Amount, &t.BalanceAfter, &t.Currency,
			&t.Description, &t.ReferenceCode, &t.ReferenceID, &t.ReferenceType, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		out = append(out, &t)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
