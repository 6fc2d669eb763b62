package processor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/config"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/service/secretary/v1/secretary"
	storage "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/inmemory"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orphanStorage behaves as if every user row disappeared before the review started.
type orphanStorage struct {
	*inmemory.Storage
}

func (s orphanStorage) RunInTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Storage.RunInTx(ctx, func(tx storage.Tx) error {
		return fn(orphanTx{Tx: tx})
	})
}

type orphanTx struct {
	storage.Tx
}

func (orphanTx) GetUserForUpdate(_ context.Context, userID string) (*modelstorage.UserStorageEntry, error) {
	return nil, &storageErrors.NotFoundError{ID: userID}
}

type fixture struct {
	proc *Processor
	st   *inmemory.Storage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zerolog.Nop()
	st := inmemory.InitStorage(&log)
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "test-key"})
	require.NoError(t, err)
	proc, err := InitService(st, sec, &log)
	require.NoError(t, err)
	return &fixture{proc: proc, st: st}
}

func (f *fixture) addUser(t *testing.T, balance string) string {
	t.Helper()
	user := modelstorage.UserStorageEntry{
		UserID:       uuid.New().String(),
		Login:        uuid.New().String(),
		Role:         modelstorage.RoleUser,
		DemoBalance:  initialDemoBalance,
		RealBalance:  decimal.RequireFromString(balance),
		RegisteredAt: time.Now(),
	}
	require.NoError(t, f.st.AddNewUser(context.Background(), user))
	return user.UserID
}

func (f *fixture) submit(t *testing.T, userID, kind, amount, method, details string) *modeldto.PaymentRequest {
	t.Helper()
	request, err := f.proc.AddNewPaymentRequest(context.Background(), userID, modeldto.NewPaymentRequest{
		Type:           kind,
		Amount:         decimal.RequireFromString(amount),
		Method:         method,
		AccountDetails: details,
	})
	require.NoError(t, err)
	return request
}

func (f *fixture) realBalance(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	balance, err := f.proc.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance.RealBalance
}

func (f *fixture) ledger(t *testing.T, userID string) []modeldto.Transaction {
	t.Helper()
	transactions, err := f.proc.GetTransactions(context.Background(), userID)
	require.NoError(t, err)
	return transactions
}

func statusPatch(status string) modeldto.PaymentRequestPatch {
	return modeldto.PaymentRequestPatch{Status: &status}
}

func TestInitService_NilArguments(t *testing.T) {
	log := zerolog.Nop()
	_, err := InitService(nil, nil, &log)
	var nilArg *serviceErrors.ServiceFoundNilArgument
	assert.ErrorAs(t, err, &nilArg)
}

func TestReviewRequest_ApproveDeposit(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "50")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "25", "card", "")

	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusApproved, reviewed.Status)

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(75)))
	ledger := f.ledger(t, userID)
	require.Len(t, ledger, 1)
	assert.Equal(t, modelstorage.TypeDeposit, ledger[0].Type)
	assert.Equal(t, modelstorage.TransactionCompleted, ledger[0].Status)
	assert.True(t, ledger[0].Amount.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, "Deposit via card", ledger[0].Details)
}

func TestReviewRequest_DepositDetailsIncludeExternalID(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request, err := f.proc.AddNewPaymentRequest(context.Background(), userID, modeldto.NewPaymentRequest{
		Type:          modelstorage.TypeDeposit,
		Amount:        decimal.NewFromInt(10),
		Method:        "bkash",
		TransactionID: "TX123",
	})
	require.NoError(t, err)

	_, err = f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)

	ledger := f.ledger(t, userID)
	require.Len(t, ledger, 1)
	assert.Equal(t, "Deposit via bkash (txn TX123)", ledger[0].Details)
}

func TestReviewRequest_ApproveWithdrawal(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "100")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "40", "bank", "DE89 3704 0044 0532 0130 00")

	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusApproved, reviewed.Status)

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(60)))
	ledger := f.ledger(t, userID)
	require.Len(t, ledger, 1)
	assert.Equal(t, modelstorage.TypeWithdraw, ledger[0].Type)
	assert.Equal(t, modelstorage.TransactionCompleted, ledger[0].Status)
	assert.Equal(t, "Withdrawal to DE89 3704 0044 0532 0130 00", ledger[0].Details)
}

func TestReviewRequest_WithdrawalOfWholeBalance(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "40")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "40", "bank", "acc-1")

	_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	assert.True(t, f.realBalance(t, userID).IsZero())
}

func TestReviewRequest_InsufficientBalanceRevertsToRejected(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "100")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "150", "bank", "acc-1")

	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	assert.Nil(t, reviewed)
	var insufficient *serviceErrors.ServiceInsufficientBalance
	require.ErrorAs(t, err, &insufficient)

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(100)))
	assert.Empty(t, f.ledger(t, userID))

	requests, err := f.proc.GetPaymentRequests(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, modelstorage.StatusRejected, requests[0].Status)

	pending, err := f.proc.ListPendingRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReviewRequest_ReapprovalHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "50")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "25", "card", "")

	_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusApproved, reviewed.Status)

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(75)))
	assert.Len(t, f.ledger(t, userID), 1)
}

func TestReviewRequest_RejectPendingWithdrawal(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "100")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "30", "bank", "acc-1")

	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusRejected))
	require.NoError(t, err)
	assert.Equal(t, modelstorage.StatusRejected, reviewed.Status)

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(100)))
	ledger := f.ledger(t, userID)
	require.Len(t, ledger, 1)
	assert.Equal(t, modelstorage.TypeWithdraw, ledger[0].Type)
	assert.Equal(t, modelstorage.TransactionRejected, ledger[0].Status)
	assert.True(t, ledger[0].Amount.Equal(decimal.NewFromInt(30)))
}

func TestReviewRequest_RejectPendingDepositWritesNoLedger(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "10")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "30", "card", "")

	_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusRejected))
	require.NoError(t, err)
	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.ledger(t, userID))
}

func TestReviewRequest_TerminalStatesCannotBeLeft(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "100")
	approved := f.submit(t, userID, modelstorage.TypeDeposit, "5", "card", "")
	rejected := f.submit(t, userID, modelstorage.TypeWithdraw, "5", "bank", "acc-1")
	_, err := f.proc.ReviewRequest(context.Background(), approved.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)
	_, err = f.proc.ReviewRequest(context.Background(), rejected.ID, statusPatch(modelstorage.StatusRejected))
	require.NoError(t, err)

	tests := []struct {
		name      string
		requestID string
		status    string
	}{
		{name: "approved to rejected", requestID: approved.ID, status: modelstorage.StatusRejected},
		{name: "approved to pending", requestID: approved.ID, status: modelstorage.StatusPending},
		{name: "rejected to approved", requestID: rejected.ID, status: modelstorage.StatusApproved},
		{name: "rejected to pending", requestID: rejected.ID, status: modelstorage.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.proc.ReviewRequest(context.Background(), tt.requestID, statusPatch(tt.status))
			var illegal *serviceErrors.ServiceIllegalTransition
			assert.ErrorAs(t, err, &illegal)
		})
	}
	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(105)))
	assert.Len(t, f.ledger(t, userID), 2)
}

func TestReviewRequest_MetadataPatchWithoutStatus(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "5", "card", "")

	method := "bank"
	reviewed, err := f.proc.ReviewRequest(context.Background(), request.ID, modeldto.PaymentRequestPatch{Method: &method})
	require.NoError(t, err)
	assert.Equal(t, "bank", reviewed.Method)
	assert.Equal(t, modelstorage.StatusPending, reviewed.Status)
	assert.True(t, f.realBalance(t, userID).IsZero())
	assert.Empty(t, f.ledger(t, userID))
}

func TestReviewRequest_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "5", "card", "")

	_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch("settled"))
	var invalid *serviceErrors.ServiceInvalidInput
	assert.ErrorAs(t, err, &invalid)
}

func TestReviewRequest_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.proc.ReviewRequest(context.Background(), "missing", statusPatch(modelstorage.StatusApproved))
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestReviewRequest_OrphanedRequestRollsBack(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "5", "card", "")
	log := zerolog.Nop()
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "test-key"})
	require.NoError(t, err)
	orphaned, err := InitService(orphanStorage{Storage: f.st}, sec, &log)
	require.NoError(t, err)

	_, err = orphaned.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	var orphanedErr *serviceErrors.ServiceOrphanedRequest
	require.ErrorAs(t, err, &orphanedErr)

	pending, err := f.proc.ListPendingRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, request.ID, pending[0].ID)
}

func TestReviewRequest_ConcurrentApprovalsCreditOnce(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "10", "card", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(10)))
	assert.Len(t, f.ledger(t, userID), 1)
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "20")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "10", "bank", "acc-1")

	require.NoError(t, f.proc.DeleteRequest(context.Background(), request.ID))

	pending, err := f.proc.ListPendingRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(20)))
	assert.Empty(t, f.ledger(t, userID))

	err = f.proc.DeleteRequest(context.Background(), request.ID)
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteRequest_ApprovedIsNotReversed(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeDeposit, "10", "card", "")
	_, err := f.proc.ReviewRequest(context.Background(), request.ID, statusPatch(modelstorage.StatusApproved))
	require.NoError(t, err)

	require.NoError(t, f.proc.DeleteRequest(context.Background(), request.ID))
	assert.True(t, f.realBalance(t, userID).Equal(decimal.NewFromInt(10)))
	assert.Len(t, f.ledger(t, userID), 1)
}

func TestAddNewPaymentRequest_Validation(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	tests := []struct {
		name    string
		request modeldto.NewPaymentRequest
		wantErr interface{}
	}{
		{
			name:    "zero amount",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeDeposit, Amount: decimal.Zero, Method: "card"},
			wantErr: &serviceErrors.ServiceInvalidInput{},
		},
		{
			name:    "negative amount",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeDeposit, Amount: decimal.NewFromInt(-5), Method: "card"},
			wantErr: &serviceErrors.ServiceInvalidInput{},
		},
		{
			name:    "fractional cents",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeDeposit, Amount: decimal.RequireFromString("1.005"), Method: "card"},
			wantErr: &serviceErrors.ServiceInvalidInput{},
		},
		{
			name:    "unknown type",
			request: modeldto.NewPaymentRequest{Type: "transfer", Amount: decimal.NewFromInt(5), Method: "card"},
			wantErr: &serviceErrors.ServiceInvalidInput{},
		},
		{
			name:    "missing method",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeDeposit, Amount: decimal.NewFromInt(5)},
			wantErr: &serviceErrors.ServiceInvalidInput{},
		},
		{
			name:    "card withdrawal with bad number",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeWithdraw, Amount: decimal.NewFromInt(5), Method: "card", AccountDetails: "4111 1111 1111 1112"},
			wantErr: &serviceErrors.ServiceIllegalAccountDetails{},
		},
		{
			name:    "card withdrawal without number",
			request: modeldto.NewPaymentRequest{Type: modelstorage.TypeWithdraw, Amount: decimal.NewFromInt(5), Method: "card"},
			wantErr: &serviceErrors.ServiceIllegalAccountDetails{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.proc.AddNewPaymentRequest(context.Background(), userID, tt.request)
			require.Error(t, err)
			assert.IsType(t, tt.wantErr, err)
		})
	}
}

func TestAddNewPaymentRequest_CardWithdrawal(t *testing.T) {
	f := newFixture(t)
	userID := f.addUser(t, "0")
	request := f.submit(t, userID, modelstorage.TypeWithdraw, "12.50", "card", "4111-1111-1111-1111")
	assert.Equal(t, modelstorage.StatusPending, request.Status)
	assert.Equal(t, userID, request.UserID)
}

func TestAddNewPaymentRequest_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.proc.AddNewPaymentRequest(context.Background(), "ghost", modeldto.NewPaymentRequest{
		Type: modelstorage.TypeDeposit, Amount: decimal.NewFromInt(5), Method: "card",
	})
	var notFound *storageErrors.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestUsers_RegisterLoginAndAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, err := f.proc.AddNewUser(ctx, modeldto.User{Login: "alice", Password: "secret-pass"})
	require.NoError(t, err)
	claims, err := f.proc.GetClaims(token)
	require.NoError(t, err)
	assert.Equal(t, modelstorage.RoleUser, claims.Role)

	balance, err := f.proc.GetBalance(ctx, claims.UserID)
	require.NoError(t, err)
	assert.True(t, balance.RealBalance.IsZero())
	assert.True(t, balance.DemoBalance.Equal(initialDemoBalance))

	_, err = f.proc.AddNewUser(ctx, modeldto.User{Login: "alice", Password: "secret-pass"})
	var exists *storageErrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)

	_, err = f.proc.LoginUser(ctx, modeldto.User{Login: "alice", Password: "wrong-pass"})
	var invalid *serviceErrors.ServiceInvalidCredentials
	assert.ErrorAs(t, err, &invalid)

	require.NoError(t, f.proc.EnsureAdmin(ctx, modeldto.User{Login: "root", Password: "root-pass"}))
	require.NoError(t, f.proc.EnsureAdmin(ctx, modeldto.User{Login: "root", Password: "root-pass"}))
	token, err = f.proc.LoginUser(ctx, modeldto.User{Login: "root", Password: "root-pass"})
	require.NoError(t, err)
	claims, err = f.proc.GetClaims(token)
	require.NoError(t, err)
	assert.Equal(t, modelstorage.RoleAdmin, claims.Role)
}
