package modeldto

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	User struct {
		Login    string `json:"login" validate:"required,max=64"`
		Password string `json:"password" validate:"required,min=6,max=72"`
	}
	Balance struct {
		DemoBalance decimal.Decimal `json:"demo"`
		RealBalance decimal.Decimal `json:"real"`
	}
	NewPaymentRequest struct {
		Type           string          `json:"type" validate:"required,oneof=deposit withdraw"`
		Amount         decimal.Decimal `json:"amount" validate:"required,gt=0"`
		Method         string          `json:"method" validate:"required,max=64"`
		AccountDetails string          `json:"accountDetails" validate:"max=256"`
		TransactionID  string          `json:"transactionId" validate:"max=128"`
	}
	// PaymentRequestPatch lists the fields an administrator may change. Nil means untouched.
	PaymentRequestPatch struct {
		Status         *string `json:"status,omitempty" validate:"omitempty,oneof=pending approved rejected"`
		Method         *string `json:"method,omitempty" validate:"omitempty,max=64"`
		AccountDetails *string `json:"accountDetails,omitempty" validate:"omitempty,max=256"`
		TransactionID  *string `json:"transactionId,omitempty" validate:"omitempty,max=128"`
	}
	PaymentRequest struct {
		ID             string          `json:"id"`
		UserID         string          `json:"userId"`
		Type           string          `json:"type"`
		Amount         decimal.Decimal `json:"amount"`
		Status         string          `json:"status"`
		Method         string          `json:"method"`
		AccountDetails string          `json:"accountDetails,omitempty"`
		TransactionID  string          `json:"transactionId,omitempty"`
		CreatedAt      time.Time       `json:"createdAt"`
		UpdatedAt      time.Time       `json:"updatedAt"`
	}
	Transaction struct {
		ID        string          `json:"id"`
		UserID    string          `json:"userId"`
		Type      string          `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
		Method    string          `json:"method"`
		Details   string          `json:"details"`
		CreatedAt time.Time       `json:"createdAt"`
	}
	Message struct {
		Message string `json:"message"`
	}
	Error struct {
		Status int    `json:"status"`
		Error  string `json:"error"`
	}
)
