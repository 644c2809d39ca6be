package wallet

import (
	"context"
	"strings"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	Debit(ctx context.Context, userID int64, in pgbroker.TransactionInput) (*models.Transaction, error)
	Credit(ctx context.Context, userID int64, in pgbroker.TransactionInput) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error)
	CreateRechargeRequest(ctx context.Context, r *models.RechargeRequest) (*models.RechargeRequest, error)
	GetRechargeByID(ctx context.Context, id int64) (*models.RechargeRequest, error)
	ListRechargeRequests(ctx context.Context, status string, limit, offset int) ([]*models.RechargeRequest, error)
	ApproveRecharge(ctx context.Context, requestID, adminID int64, notes string, in pgbroker.TransactionInput) (*models.Transaction, error)
	RejectRecharge(ctx context.Context, requestID, adminID int64, notes string) error
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewReferenceCode mints the ledger reference for one transaction.
func NewReferenceCode() string {
	return "TXN-" + uuid.NewString()
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *Service) GetTransactions(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// Debit charges the wallet and appends the ledger row. The reference fields
// tie the row to the entity paid for.
func (s *Service) Debit(ctx context.Context, userID int64, amount decimal.Decimal, description string, refID *int64, refType *string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount", "debe ser mayor a cero")
	}
	return s.repo.Debit(ctx, userID, pgbroker.TransactionInput{
		Type:          models.TransactionTypeWithdrawal,
		Amount:        amount,
		Description:   description,
		ReferenceCode: NewReferenceCode(),
		ReferenceID:   refID,
		ReferenceType: refType,
	})
}

func (s *Service) Credit(ctx context.Context, userID int64, amount decimal.Decimal, description string, refID *int64, refType *string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount", "debe ser mayor a cero")
	}
	return s.repo.Credit(ctx, userID, pgbroker.TransactionInput{
		Type:          models.TransactionTypeDeposit,
		Amount:        amount,
		Description:   description,
		ReferenceCode: NewReferenceCode(),
		ReferenceID:   refID,
		ReferenceType: refType,
	})
}

func (s *Service) RequestRecharge(ctx context.Context, userID int64, amount decimal.Decimal, method string, voucherRef *string) (*models.RechargeRequest, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount", "debe ser mayor a cero")
	}
	if method == "" {
		return nil, apperr.Validation("method", "es requerido")
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.CreateRechargeRequest(ctx, &models.RechargeRequest{
		UserID:     userID,
		Amount:     amount,
		Currency:   "MXN",
		Method:     method,
		VoucherRef: voucherRef,
	})
}

func (s *Service) GetRecharge(ctx context.Context, id int64) (*models.RechargeRequest, error) {
	return s.repo.GetRechargeByID(ctx, id)
}

func (s *Service) ListRecharges(ctx context.Context, status string, limit, offset int) ([]*models.RechargeRequest, error) {
	status = strings.TrimSpace(status)
	switch status {
	case "", models.RechargeStatusPending, models.RechargeStatusApproved, models.RechargeStatusRejected:
	default:
		return nil, apperr.Validation("status", "estado desconocido")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListRechargeRequests(ctx, status, limit, offset)
}

// ApproveRecharge flips the request to approved and credits the wallet. The
// storage layer does both in one database transaction, so a request can
// never be credited twice.
func (s *Service) ApproveRecharge(ctx context.Context, requestID, adminID int64, notes string) (*models.Transaction, error) {
	r, err := s.repo.GetRechargeByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	refType := models.ReferenceTypeRecharge
	return s.repo.ApproveRecharge(ctx, requestID, adminID, notes, pgbroker.TransactionInput{
		Type:          models.TransactionTypeDeposit,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Description:   "Recarga de saldo aprobada",
		ReferenceCode: NewReferenceCode(),
		ReferenceID:   &r.ID,
		ReferenceType: &refType,
	})
}

func (s *Service) RejectRecharge(ctx context.Context, requestID, adminID int64, notes string) error {
	return s.repo.RejectRecharge(ctx, requestID, adminID, notes)
}
