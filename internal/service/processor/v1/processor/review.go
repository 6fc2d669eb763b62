package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/errors"
	"github.com/danilovkiri/dk-go-paydesk/internal/storage/v1"
	storageErrors "github.com/danilovkiri/dk-go-paydesk/internal/storage/v1/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Review outcomes reported to metrics.
const (
	outcomeApproved = "approved"
	outcomeRejected = "rejected"
	outcomeReverted = "reverted"
	outcomeUpdated  = "updated"
	outcomeFailed   = "failed"
)

var reviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "paydesk_payment_reviews_total",
	Help: "Payment request reviews, labeled by request type and outcome",
}, []string{"type", "outcome"})

// ReviewRequest applies an administrator patch to a payment request and enacts the balance and
// ledger side effects of its status change. The request row and its owner are locked for the
// whole operation, so a concurrent review observes the committed status.
func (proc *Processor) ReviewRequest(ctx context.Context, requestID string, patch modeldto.PaymentRequestPatch) (*modeldto.PaymentRequest, error) {
	if err := proc.validate.Struct(patch); err != nil {
		return nil, &serviceErrors.ServiceInvalidInput{Msg: err.Error()}
	}
	var (
		result    modelstorage.PaymentRequestStorageEntry
		outcome   string
		reviewErr error
	)
	err := proc.storage.RunInTx(ctx, func(tx storage.Tx) error {
		request, err := tx.GetPaymentRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		oldStatus := request.Status
		if patch.Status != nil && !transitionAllowed(oldStatus, *patch.Status) {
			return &serviceErrors.ServiceIllegalTransition{Msg: fmt.Sprintf("payment request %s is %s and cannot become %s", request.ID, oldStatus, *patch.Status)}
		}
		applyPatch(request, patch)
		request.UpdatedAt = time.Now().UTC()
		if err := tx.UpdatePaymentRequest(ctx, *request); err != nil {
			return err
		}
		outcome = outcomeUpdated

		switch {
		case request.Status == modelstorage.StatusApproved && oldStatus != modelstorage.StatusApproved:
			outcome = outcomeApproved
			insufficient, err := proc.settle(ctx, tx, request)
			if err != nil {
				return err
			}
			if insufficient != nil {
				outcome = outcomeReverted
				reviewErr = insufficient
			}
		case request.Status == modelstorage.StatusRejected && oldStatus == modelstorage.StatusPending:
			outcome = outcomeRejected
			if request.Type == modelstorage.TypeWithdraw {
				err = tx.AddTransaction(ctx, newTransaction(request, modelstorage.TransactionRejected, "Withdrawal request rejected"))
				if err != nil {
					return err
				}
			}
		}
		result = *request
		return nil
	})
	if err != nil {
		reviewsTotal.WithLabelValues("unknown", outcomeFailed).Inc()
		proc.log.Error().Err(err).Msg(fmt.Sprintf("review of payment request %s failed", requestID))
		return nil, err
	}
	reviewsTotal.WithLabelValues(result.Type, outcome).Inc()
	if reviewErr != nil {
		proc.log.Warn().Err(reviewErr).Msg(fmt.Sprintf("payment request %s reverted to rejected", requestID))
		return nil, reviewErr
	}
	proc.log.Info().Msg(fmt.Sprintf("payment request %s reviewed: %s", requestID, outcome))
	return toPaymentRequestDTO(result), nil
}

// settle moves funds for a freshly approved request. A withdrawal exceeding the real balance is
// reverted to rejected and reported through the first return value; a non-nil error aborts the
// transaction.
func (proc *Processor) settle(ctx context.Context, tx storage.Tx, request *modelstorage.PaymentRequestStorageEntry) (*serviceErrors.ServiceInsufficientBalance, error) {
	user, err := tx.GetUserForUpdate(ctx, request.UserID)
	if err != nil {
		var notFoundError *storageErrors.NotFoundError
		if errors.As(err, &notFoundError) {
			return nil, &serviceErrors.ServiceOrphanedRequest{Msg: fmt.Sprintf("payment request %s references unknown user %s", request.ID, request.UserID)}
		}
		return nil, err
	}

	var (
		newBalance  = user.RealBalance
		transaction modelstorage.TransactionStorageEntry
	)
	switch request.Type {
	case modelstorage.TypeDeposit:
		newBalance = user.RealBalance.Add(request.Amount)
		details := fmt.Sprintf("Deposit via %s", request.Method)
		if request.TransactionID != "" {
			details += fmt.Sprintf(" (txn %s)", request.TransactionID)
		}
		transaction = newTransaction(request, modelstorage.TransactionCompleted, details)
	case modelstorage.TypeWithdraw:
		if user.RealBalance.LessThan(request.Amount) {
			request.Status = modelstorage.StatusRejected
			if err := tx.UpdatePaymentRequest(ctx, *request); err != nil {
				return nil, err
			}
			return &serviceErrors.ServiceInsufficientBalance{Msg: fmt.Sprintf("insufficient balance: available %s, requested %s", user.RealBalance, request.Amount)}, nil
		}
		newBalance = user.RealBalance.Sub(request.Amount)
		details := fmt.Sprintf("Withdrawal via %s", request.Method)
		if request.AccountDetails != "" {
			details = fmt.Sprintf("Withdrawal to %s", request.AccountDetails)
		}
		transaction = newTransaction(request, modelstorage.TransactionCompleted, details)
	default:
		return nil, &serviceErrors.ServiceInvalidInput{Msg: fmt.Sprintf("payment request %s has unknown type %s", request.ID, request.Type)}
	}

	if err := tx.UpdateRealBalance(ctx, user.UserID, newBalance); err != nil {
		return nil, err
	}
	if err := tx.AddTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	proc.log.Info().Msg(fmt.Sprintf("real balance of %s changed from %s to %s", user.UserID, user.RealBalance, newBalance))
	return nil, nil
}

// transitionAllowed permits re-saving the current status and leaving pending.
func transitionAllowed(from, to string) bool {
	return from == to || from == modelstorage.StatusPending
}

func applyPatch(request *modelstorage.PaymentRequestStorageEntry, patch modeldto.PaymentRequestPatch) {
	if patch.Status != nil {
		request.Status = *patch.Status
	}
	if patch.Method != nil {
		request.Method = *patch.Method
	}
	if patch.AccountDetails != nil {
		request.AccountDetails = *patch.AccountDetails
	}
	if patch.TransactionID != nil {
		request.TransactionID = *patch.TransactionID
	}
}

func newTransaction(request *modelstorage.PaymentRequestStorageEntry, status, details string) modelstorage.TransactionStorageEntry {
	return modelstorage.TransactionStorageEntry{
		ID:        uuid.New().String(),
		UserID:    request.UserID,
		Type:      request.Type,
		Amount:    request.Amount,
		Status:    status,
		Method:    request.Method,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}
