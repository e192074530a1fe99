package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrMissingPaymentData  = errors.New("missing_payment_data")
)

// CreateTransactionRequest opens a PENDING transaction row.
type CreateTransactionRequest struct {
	UserID                snowflake.ID
	TransactionType       TransactionType
	PaymentMethod         PaymentMethod
	AmountLocal           float64
	CurrencyCode          string
	CreditsPurchased      int64
	ExternalTransactionID string
	GatewayResponse       map[string]any
}

// StarsPayment is a confirmed Telegram Stars charge from the webhook.
type StarsPayment struct {
	UserID                  snowflake.ID   `json:"user_id"`
	TotalAmount             int64          `json:"total_amount"`
	TelegramPaymentChargeID string         `json:"telegram_payment_charge_id"`
	Payload                 map[string]any `json:"payload,omitempty"`
}

// UPIPayment is a confirmed UPI charge from the gateway webhook.
type UPIPayment struct {
	UserID        snowflake.ID   `json:"user_id"`
	AmountINR     float64        `json:"amount"`
	TransactionID string         `json:"transaction_id"`
	UPIID         string         `json:"upi_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// PaymentResult is the business outcome of a payment webhook. Replay reports
// Success with the originally credited amounts.
type PaymentResult struct {
	Success       bool         `json:"success"`
	Reason        string       `json:"reason,omitempty"`
	TransactionID snowflake.ID `json:"transaction_id,omitempty"`
	CreditsAdded  int64        `json:"credits_added,omitempty"`
	Replayed      bool         `json:"replayed,omitempty"`
}

// Service settles payments into purchased credit lots.
type Service interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*Transaction, error)

	// ProcessStarsPayment and ProcessUPIPayment are idempotent on the
	// external transaction id: a replayed webhook is a no-op success.
	ProcessStarsPayment(ctx context.Context, payment StarsPayment) (*PaymentResult, error)
	ProcessUPIPayment(ctx context.Context, payment UPIPayment) (*PaymentResult, error)

	MarkTransactionFailed(ctx context.Context, id snowflake.ID, errorMessage string) (bool, error)
	GetTransactionByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	GetTransactionHistory(ctx context.Context, userID snowflake.ID, limit int) ([]*Transaction, error)
	GetPaymentStatistics(ctx context.Context) (*Statistics, error)
}
