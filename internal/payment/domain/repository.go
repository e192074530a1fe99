package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// MethodRevenue aggregates completed transactions of one payment method.
type MethodRevenue struct {
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int64   `json:"transaction_count"`
}

// Statistics is the system-wide payment summary.
type Statistics struct {
	TotalTransactions     int64                           `json:"total_transactions"`
	CompletedTransactions int64                           `json:"completed_transactions"`
	FailedTransactions    int64                           `json:"failed_transactions"`
	PendingTransactions   int64                           `json:"pending_transactions"`
	SuccessRate           float64                         `json:"success_rate"`
	RevenueByMethod       map[PaymentMethod]MethodRevenue `json:"revenue_by_method"`
}

// Repository persists transactions. Implementations are stateless; callers
// pass the *gorm.DB (or transaction) the operation should run against.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, transaction *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Transaction, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*Transaction, error)

	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errorMessage string, now time.Time) (int64, error)

	CountByStatus(ctx context.Context, db *gorm.DB) (map[TransactionStatus]int64, error)
	RevenueByMethod(ctx context.Context, db *gorm.DB) (map[PaymentMethod]MethodRevenue, error)
}
