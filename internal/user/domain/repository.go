package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// SearchFilter narrows user listings.
type SearchFilter struct {
	Query  string
	Status UserStatus
	Limit  int
	Offset int
}

// Repository persists users. Implementations are stateless; callers pass the
// *gorm.DB (or transaction) the operation should run against.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByTelegramID(ctx context.Context, db *gorm.DB, telegramUserID int64) (*User, error)

	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status UserStatus, now time.Time) (int64, error)
	SetAgreedToTerms(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	TouchLastActivity(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error

	IncrementCreditsEarned(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error)
	IncrementCreditsSpent(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error)
	IncrementInvitesSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	IncrementInvitesAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)

	Search(ctx context.Context, db *gorm.DB, filter SearchFilter) ([]*User, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	CountByStatus(ctx context.Context, db *gorm.DB) (map[UserStatus]int64, error)
}
