// Package storage defines persistence contracts for users, payment requests and the ledger.
package storage

import (
	"context"

	"github.com/danilovkiri/dk-go-paydesk/internal/models/modelstorage"
	"github.com/shopspring/decimal"
)

type Users interface {
	AddNewUser(ctx context.Context, user modelstorage.UserStorageEntry) error
	GetUser(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
	GetUserByLogin(ctx context.Context, login string) (*modelstorage.UserStorageEntry, error)
}

type PaymentRequests interface {
	AddNewPaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error
	GetPaymentRequestsByStatus(ctx context.Context, status string) ([]modelstorage.PaymentRequestStorageEntry, error)
	GetPaymentRequestsByUser(ctx context.Context, userID string) ([]modelstorage.PaymentRequestStorageEntry, error)
	DeletePaymentRequest(ctx context.Context, requestID string) error
}

type Ledger interface {
	GetTransactions(ctx context.Context, userID string) ([]modelstorage.TransactionStorageEntry, error)
}

// Tx gives row-locked access to a payment request, its owner and the ledger.
// Every write made through a Tx is committed or discarded together.
type Tx interface {
	GetPaymentRequestForUpdate(ctx context.Context, requestID string) (*modelstorage.PaymentRequestStorageEntry, error)
	UpdatePaymentRequest(ctx context.Context, request modelstorage.PaymentRequestStorageEntry) error
	GetUserForUpdate(ctx context.Context, userID string) (*modelstorage.UserStorageEntry, error)
	UpdateRealBalance(ctx context.Context, userID string, realBalance decimal.Decimal) error
	AddTransaction(ctx context.Context, transaction modelstorage.TransactionStorageEntry) error
}

type Storage interface {
	Users
	PaymentRequests
	Ledger
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
