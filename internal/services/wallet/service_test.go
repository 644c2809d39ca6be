package wallet

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/apperr"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/PaqueMex/EnvioBox/internal/storage/pgbroker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memRepo mimics the storage semantics the service relies on: conditional
// debit, single-shot recharge processing, ledger rows with balance snapshots.
type memRepo struct {
	users     map[int64]*models.User
	txns      []*models.Transaction
	recharges map[int64]*models.RechargeRequest
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:     map[int64]*models.User{},
		recharges: map[int64]*models.RechargeRequest{},
	}
}

func (m *memRepo) addUser(balance string) *models.User {
	m.nextID++
	u := &models.User{ID: m.nextID, Balance: decimal.RequireFromString(balance), Currency: "MXN", Role: models.UserRoleCustomer}
	m.users[u.ID] = u
	return u
}

func (m *memRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) appendTxn(userID int64, in pgbroker.TransactionInput, signed, after decimal.Decimal) *models.Transaction {
	m.nextID++
	t := &models.Transaction{
		ID: m.nextID, UserID: userID, Type: in.Type,
		Amount: signed, BalanceAfter: after,
		Description: in.Description, ReferenceCode: in.ReferenceCode,
		ReferenceID: in.ReferenceID, ReferenceType: in.ReferenceType,
		Status: models.TransactionStatusCompleted, CreatedAt: time.Now(),
	}
	m.txns = append(m.txns, t)
	return t
}

func (m *memRepo) Debit(_ context.Context, userID int64, in pgbroker.TransactionInput) (*models.Transaction, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, apperr.NotFound("user", userID)
	}
	if u.Balance.LessThan(in.Amount) {
		return nil, apperr.InsufficientFunds(in.Amount, u.Balance)
	}
	u.Balance = u.Balance.Sub(in.Amount)
	return m.appendTxn(userID, in, in.Amount.Neg(), u.Balance), nil
}

func (m *memRepo) Credit(_ context.Context, userID int64, in pgbroker.TransactionInput) (*models.Transaction, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, apperr.NotFound("user", userID)
	}
	u.Balance = u.Balance.Add(in.Amount)
	return m.appendTxn(userID, in, in.Amount, u.Balance), nil
}

func (m *memRepo) ListTransactions(_ context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, t := range m.txns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) CreateRechargeRequest(_ context.Context, r *models.RechargeRequest) (*models.RechargeRequest, error) {
	m.nextID++
	r.ID = m.nextID
	r.Status = models.RechargeStatusPending
	m.recharges[r.ID] = r
	return r, nil
}

func (m *memRepo) GetRechargeByID(_ context.Context, id int64) (*models.RechargeRequest, error) {
	r, ok := m.recharges[id]
	if !ok {
		return nil, apperr.NotFound("recharge request", id)
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) ListRechargeRequests(_ context.Context, status string, limit, offset int) ([]*models.RechargeRequest, error) {
	var out []*models.RechargeRequest
	for _, r := range m.recharges {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) ApproveRecharge(ctx context.Context, requestID, adminID int64, notes string, in pgbroker.TransactionInput) (*models.Transaction, error) {
	r, ok := m.recharges[requestID]
	if !ok {
		return nil, apperr.NotFound("recharge request", requestID)
	}
	if r.Status != models.RechargeStatusPending {
		return nil, apperr.Conflict("recharge request already processed")
	}
	r.Status = models.RechargeStatusApproved
	r.AdminID = &adminID
	return m.Credit(ctx, r.UserID, in)
}

func (m *memRepo) RejectRecharge(_ context.Context, requestID, adminID int64, notes string) error {
	r, ok := m.recharges[requestID]
	if !ok {
		return apperr.NotFound("recharge request", requestID)
	}
	if r.Status != models.RechargeStatusPending {
		return apperr.Conflict("recharge request already processed")
	}
	r.Status = models.RechargeStatusRejected
	r.AdminID = &adminID
	return nil
}

func TestDebitCredit_LedgerInvariant(t *testing.T) {
	repo := newMemRepo()
	u := repo.addUser("500.00")
	svc := New(repo)
	ctx := context.Background()

	txn, err := svc.Debit(ctx, u.ID, decimal.RequireFromString("115.00"), "Pago de envío", nil, nil)
	require.NoError(t, err)
	require.True(t, txn.Amount.Equal(decimal.RequireFromString("-115.00")))
	require.True(t, txn.BalanceAfter.Equal(decimal.RequireFromString("385.00")))
	require.True(t, strings.HasPrefix(txn.ReferenceCode, "TXN-"))

	txn, err = svc.Credit(ctx, u.ID, decimal.RequireFromString("115.00"), "Reembolso", nil, nil)
	require.NoError(t, err)
	require.True(t, txn.BalanceAfter.Equal(decimal.RequireFromString("500.00")))

	got, err := svc.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	txns, _ := svc.GetTransactions(ctx, u.ID, 100, 0)
	for _, tr := range txns {
		sum = sum.Add(tr.Amount)
	}
	require.True(t, got.Balance.Sub(decimal.RequireFromString("500.00")).Equal(sum))
}

func TestDebit_InsufficientLeavesStateUntouched(t *testing.T) {
	repo := newMemRepo()
	u := repo.addUser("50.00")
	svc := New(repo)
	ctx := context.Background()

	_, err := svc.Debit(ctx, u.ID, decimal.RequireFromString("115.00"), "Pago de envío", nil, nil)
	require.True(t, apperr.IsInsufficientFunds(err))

	got, err := svc.GetBalance(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("50.00")))
	txns, _ := svc.GetTransactions(ctx, u.ID, 100, 0)
	require.Empty(t, txns)
}

func TestDebit_RejectsNonPositive(t *testing.T) {
	svc := New(newMemRepo())
	_, err := svc.Debit(context.Background(), 1, decimal.Zero, "x", nil, nil)
	require.True(t, apperr.IsValidation(err))
	_, err = svc.Credit(context.Background(), 1, decimal.NewFromInt(-5), "x", nil, nil)
	require.True(t, apperr.IsValidation(err))
}

func TestRechargeWorkflow(t *testing.T) {
	repo := newMemRepo()
	u := repo.addUser("0.00")
	admin := repo.addUser("0.00")
	svc := New(repo)
	ctx := context.Background()

	r, err := svc.RequestRecharge(ctx, u.ID, decimal.RequireFromString("300.00"), "spei", nil)
	require.NoError(t, err)
	require.Equal(t, models.RechargeStatusPending, r.Status)

	txn, err := svc.ApproveRecharge(ctx, r.ID, admin.ID, "comprobante verificado")
	require.NoError(t, err)
	require.True(t, txn.Amount.Equal(r.Amount))
	require.NotNil(t, txn.ReferenceID)
	require.Equal(t, r.ID, *txn.ReferenceID)

	// Terminal: a processed request cannot be approved or rejected again.
	_, err = svc.ApproveRecharge(ctx, r.ID, admin.ID, "")
	require.True(t, apperr.IsConflict(err))
	require.True(t, apperr.IsConflict(svc.RejectRecharge(ctx, r.ID, admin.ID, "")))

	got, _ := svc.GetBalance(ctx, u.ID)
	require.True(t, got.Balance.Equal(decimal.RequireFromString("300.00")))
}

func TestRequestRecharge_Validation(t *testing.T) {
	repo := newMemRepo()
	u := repo.addUser("0.00")
	svc := New(repo)
	ctx := context.Background()

	_, err := svc.RequestRecharge(ctx, u.ID, decimal.Zero, "spei", nil)
	require.True(t, apperr.IsValidation(err))
	_, err = svc.RequestRecharge(ctx, u.ID, decimal.NewFromInt(100), "", nil)
	require.True(t, apperr.IsValidation(err))
	_, err = svc.RequestRecharge(ctx, 9999, decimal.NewFromInt(100), "spei", nil)
	require.True(t, apperr.IsNotFound(err))
}

func TestListRecharges_StatusFilter(t *testing.T) {
	repo := newMemRepo()
	u := repo.addUser("0.00")
	svc := New(repo)
	ctx := context.Background()

	_, err := svc.RequestRecharge(ctx, u.ID, decimal.NewFromInt(100), "spei", nil)
	require.NoError(t, err)

	out, err := svc.ListRecharges(ctx, models.RechargeStatusPending, 50, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)

	out, err = svc.ListRecharges(ctx, models.RechargeStatusApproved, 50, 0)
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = svc.ListRecharges(ctx, "bogus", 50, 0)
	require.True(t, apperr.IsValidation(err))
}
