// Package modelstorage provides types for querying relational DB.

package modelstorage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment request types.
const (
	TypeDeposit  = "deposit"
	TypeWithdraw = "withdraw"
)

// Payment request statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Ledger entry statuses.
const (
	TransactionCompleted = "completed"
	TransactionRejected  = "rejected"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type UserStorageEntry struct {
	UserID       string          `db:"user_id"`
	Login        string          `db:"login"`
	Password     string          `db:"password"`
	Role         string          `db:"role"`
	DemoBalance  decimal.Decimal `db:"demo_balance"`
	RealBalance  decimal.Decimal `db:"real_balance"`
	RegisteredAt time.Time       `db:"registered_at"`
}

type PaymentRequestStorageEntry struct {
	ID             string          `db:"id"`
	UserID         string          `db:"user_id"`
	Type           string          `db:"type"`
	Amount         decimal.Decimal `db:"amount"`
	Status         string          `db:"status"`
	Method         string          `db:"method"`
	AccountDetails string          `db:"account_details"`
	TransactionID  string          `db:"transaction_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

type TransactionStorageEntry struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Type      string          `db:"type"`
	Amount    decimal.Decimal `db:"amount"`
	Status    string          `db:"status"`
	Method    string          `db:"method"`
	Details   string          `db:"details"`
	CreatedAt time.Time       `db:"created_at"`
}
