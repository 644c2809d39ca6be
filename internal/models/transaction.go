package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

const (
	TransactionStatusCompleted = "completed"
)

// Reference types link a transaction back to the entity that caused it.
const (
	ReferenceTypeShipment = "shipment"
	ReferenceTypeRecharge = "recharge_request"
)

type Transaction struct {
	ID     int64
	UserID int64

	Type string
	// Signed: deposits are positive, withdrawals negative.
	Amount decimal.Decimal
	// Snapshot of the user balance immediately after this transaction.
	BalanceAfter decimal.Decimal
	Currency     string

	Description   string
	ReferenceCode string
	ReferenceID   *int64
	ReferenceType *string
	Status        string

	CreatedAt time.Time
}
