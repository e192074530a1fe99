package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TypeBreakdown aggregates lots of one credit type.
type TypeBreakdown struct {
	Total     int64 `json:"total"`
	Remaining int64 `json:"remaining"`
}

// Statistics is the system-wide credit summary.
type Statistics struct {
	TotalIssued   int64                        `json:"total_issued"`
	TotalActive   int64                        `json:"total_active"`
	TotalConsumed int64                        `json:"total_consumed"`
	ByType        map[CreditType]TypeBreakdown `json:"by_type"`
	BySource      map[CreditSource]int64       `json:"by_source"`
}

// Repository persists credit lots. Implementations are stateless; callers
// pass the *gorm.DB (or transaction) the operation should run against.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, lot *CreditLot) error

	// FindActiveLots returns the user's active lots with balance > 0 in FIFO
	// order (created_at, then id). With forUpdate the rows are locked for the
	// enclosing transaction on dialects that support it.
	FindActiveLots(ctx context.Context, db *gorm.DB, userID snowflake.ID, forUpdate bool) ([]*CreditLot, error)

	// UpdateBalance sets a lot's balance and active flag.
	UpdateBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, balance int64, isActive bool, now time.Time) error

	SumActiveBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	ExpireLots(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, activeOnly bool) ([]*CreditLot, error)
	FindHistory(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit, offset int) ([]*CreditLot, error)
	FindExpiring(ctx context.Context, db *gorm.DB, from, until time.Time) ([]*CreditLot, error)
	Statistics(ctx context.Context, db *gorm.DB) (*Statistics, error)
}
