package processor

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ShiraazMoollatjie/goluhn"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	serviceErrors "github.com/danilovkiri/dk-go-paydesk/internal/service/processor/v1/errors"
	"github.com/google/uuid"
)

const methodCard = "card"

// AddNewPaymentRequest registers a pending deposit or withdrawal request of a user.
func (proc *Processor) AddNewPaymentRequest(ctx context.Context, userID string, request modeldto.NewPaymentRequest) (*modeldto.PaymentRequest, error) {
	if err := proc.validate.Struct(request); err != nil {
		return nil, &serviceErrors.ServiceInvalidInput{Msg: err.Error()}
	}
	if !request.Amount.Equal(request.Amount.Round(2)) {
		return nil, &serviceErrors.ServiceInvalidInput{Msg: fmt.Sprintf("amount %s has more than two decimal places", request.Amount)}
	}
	if request.Type == modelstorage.TypeWithdraw && strings.EqualFold(request.Method, methodCard) {
		number := digitsOnly(request.AccountDetails)
		if len(number) < 12 || len(number) > 19 || goluhn.Validate(number) != nil {
			return nil, &serviceErrors.ServiceIllegalAccountDetails{Msg: "card withdrawals require a valid card number in accountDetails"}
		}
	}
	now := time.Now().UTC()
	entry := modelstorage.PaymentRequestStorageEntry{
		ID:             uuid.New().String(),
		UserID:         userID,
		Type:           request.Type,
		Amount:         request.Amount,
		Status:         modelstorage.StatusPending,
		Method:         request.Method,
		AccountDetails: request.AccountDetails,
		TransactionID:  request.TransactionID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := proc.storage.AddNewPaymentRequest(ctx, entry); err != nil {
		return nil, err
	}
	proc.log.Info().Msg(fmt.Sprintf("new %s request %s for %s registered", entry.Type, entry.ID, entry.Amount))
	return toPaymentRequestDTO(entry), nil
}

// GetPaymentRequests returns all payment requests submitted by a user.
func (proc *Processor) GetPaymentRequests(ctx context.Context, userID string) ([]modeldto.PaymentRequest, error) {
	entries, err := proc.storage.GetPaymentRequestsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toPaymentRequestDTOs(entries), nil
}

// ListPendingRequests returns every request awaiting review, oldest first.
func (proc *Processor) ListPendingRequests(ctx context.Context) ([]modeldto.PaymentRequest, error) {
	entries, err := proc.storage.GetPaymentRequestsByStatus(ctx, modelstorage.StatusPending)
	if err != nil {
		return nil, err
	}
	return toPaymentRequestDTOs(entries), nil
}

// DeleteRequest removes a request record. Balances and the ledger are left as they are.
func (proc *Processor) DeleteRequest(ctx context.Context, requestID string) error {
	if err := proc.storage.DeletePaymentRequest(ctx, requestID); err != nil {
		return err
	}
	proc.log.Info().Msg(fmt.Sprintf("payment request %s deleted", requestID))
	return nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		if r == ' ' || r == '-' {
			return -1
		}
		return 'x'
	}, s)
}

func toPaymentRequestDTO(entry modelstorage.PaymentRequestStorageEntry) *modeldto.PaymentRequest {
	return &modeldto.PaymentRequest{
		ID:             entry.ID,
		UserID:         entry.UserID,
		Type:           entry.Type,
		Amount:         entry.Amount,
		Status:         entry.Status,
		Method:         entry.Method,
		AccountDetails: entry.AccountDetails,
		TransactionID:  entry.TransactionID,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}

func toPaymentRequestDTOs(entries []modelstorage.PaymentRequestStorageEntry) []modeldto.PaymentRequest {
	requests := make([]modeldto.PaymentRequest, 0, len(entries))
	for _, entry := range entries {
		requests = append(requests, *toPaymentRequestDTO(entry))
	}
	return requests
}
