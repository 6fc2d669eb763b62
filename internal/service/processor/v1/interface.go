// Package processor defines the intermediary layer between the storage and API endpoint handlers.
package processor

import (
	"context"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-paydesk/internal/models/modeldto"
)

// Reviewer enacts administrative decisions on payment requests.
type Reviewer interface {
	ListPendingRequests(ctx context.Context) ([]modeldto.PaymentRequest, error)
	ReviewRequest(ctx context.Context, requestID string, patch modeldto.PaymentRequestPatch) (*modeldto.PaymentRequest, error)
}

type Processor interface {
	Reviewer
	DeleteRequest(ctx context.Context, requestID string) error
	AddNewUser(ctx context.Context, credentials modeldto.User) (string, error)
	LoginUser(ctx context.Context, credentials modeldto.User) (string, error)
	EnsureAdmin(ctx context.Context, credentials modeldto.User) error
	GetClaims(accessToken string) (*modelclaims.MyCustomClaims, error)
	AddNewPaymentRequest(ctx context.Context, userID string, request modeldto.NewPaymentRequest) (*modeldto.PaymentRequest, error)
	GetPaymentRequests(ctx context.Context, userID string) ([]modeldto.PaymentRequest, error)
	GetBalance(ctx context.Context, userID string) (*modeldto.Balance, error)
	GetTransactions(ctx context.Context, userID string) ([]modeldto.Transaction, error)
}
