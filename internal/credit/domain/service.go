package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidUser   = errors.New("invalid_user")
)

// AddCreditsRequest describes a new credit lot.
type AddCreditsRequest struct {
	UserID          snowflake.ID
	Amount          int64
	CreditType      CreditType
	Source          CreditSource
	SourceReference string
	ExpiresAt       *time.Time
}

// ValidationResult is the outcome of a pre-flight spend check. A failed check
// is a business outcome, not an error.
type ValidationResult struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	CurrentBalance int64  `json:"current_balance"`
}

// Service is the credit ledger. All mutations run inside a database
// transaction; the *Tx variants join a transaction owned by the caller so
// cross-feature flows (invites, payments, transfers) settle atomically.
type Service interface {
	AddCredits(ctx context.Context, req AddCreditsRequest) (*CreditLot, error)
	AddCreditsTx(ctx context.Context, tx *gorm.DB, req AddCreditsRequest) (*CreditLot, error)

	// ConsumeCredits drains the user's oldest lots first. It returns false
	// without mutating anything when the active balance is insufficient.
	ConsumeCredits(ctx context.Context, userID snowflake.ID, amount int64) (bool, error)
	ConsumeCreditsTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64) (bool, error)

	RefundCredits(ctx context.Context, userID snowflake.ID, amount int64, reason string) (*CreditLot, error)
	GrantAdminCredits(ctx context.Context, userID snowflake.ID, amount int64, adminID int64, reason string) (*CreditLot, error)
	TransferCredits(ctx context.Context, fromUserID, toUserID snowflake.ID, amount int64, reason string) (bool, error)

	ExpireOldCredits(ctx context.Context) (int64, error)

	GetActiveCreditBalance(ctx context.Context, userID snowflake.ID) (int64, error)
	ValidateCreditTransaction(ctx context.Context, userID snowflake.ID, amount int64) (*ValidationResult, error)
	GetUserCredits(ctx context.Context, userID snowflake.ID) ([]*CreditLot, error)
	GetCreditHistory(ctx context.Context, userID snowflake.ID, limit, offset int) ([]*CreditLot, error)
	GetExpiringCredits(ctx context.Context, daysAhead int) ([]*CreditLot, error)
	GetCreditStatistics(ctx context.Context) (*Statistics, error)
}
