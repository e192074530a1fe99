package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "PURCHASE"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeChargeback TransactionType = "CHARGEBACK"
)

type PaymentMethod string

const (
	PaymentMethodTelegramStars PaymentMethod = "TELEGRAM_STARS"
	PaymentMethodUPI           PaymentMethod = "UPI"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusRefunded  TransactionStatus = "REFUNDED"
)

// Transaction records one payment event. ExternalTransactionID carries a
// unique constraint; gateway retries of the same charge hit it and settle as
// replays instead of double-crediting.
type Transaction struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID                snowflake.ID      `gorm:"not null;index" json:"user_id"`
	TransactionType       TransactionType   `gorm:"type:text;not null" json:"transaction_type"`
	PaymentMethod         PaymentMethod     `gorm:"type:text;not null" json:"payment_method"`
	AmountLocal           float64           `gorm:"not null" json:"amount_local"`
	CurrencyCode          string            `gorm:"type:text;not null" json:"currency_code"`
	CreditsPurchased      int64             `gorm:"not null" json:"credits_purchased"`
	ExternalTransactionID string            `gorm:"type:text;uniqueIndex:ux_transactions_external_id" json:"external_transaction_id"`
	GatewayResponse       datatypes.JSONMap `gorm:"type:json" json:"gateway_response,omitempty"`
	Status                TransactionStatus `gorm:"type:text;not null;default:PENDING;index" json:"status"`
	ErrorMessage          string            `gorm:"type:text" json:"error_message,omitempty"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }
