package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recharge request states. approved and rejected are both terminal.
const (
	RechargeStatusPending  = "pending"
	RechargeStatusApproved = "approved"
	RechargeStatusRejected = "rejected"
)

type RechargeRequest struct {
	ID     int64
	UserID int64

	Amount   decimal.Decimal
	Currency string
	Method   string
	// Voucher or bank reference the user uploads for the admin to verify.
	VoucherRef *string

	Status      string
	AdminID     *int64
	AdminNotes  *string
	ProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
