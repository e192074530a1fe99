package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TopInviter is one row of the acceptance leaderboard.
type TopInviter struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	Name           string `json:"name"`
	InviteCount    int64  `json:"invite_count"`
}

// Statistics is the system-wide invite summary.
type Statistics struct {
	TotalInvites    int64        `json:"total_invites"`
	PendingInvites  int64        `json:"pending_invites"`
	AcceptedInvites int64        `json:"accepted_invites"`
	ExpiredInvites  int64        `json:"expired_invites"`
	AcceptanceRate  float64      `json:"acceptance_rate"`
	TopInviters     []TopInviter `json:"top_inviters"`
}

// UserInviteStats summarizes one user's invites.
type UserInviteStats struct {
	TotalSent      int64   `json:"total_sent"`
	Pending        int64   `json:"pending"`
	Accepted       int64   `json:"accepted"`
	Expired        int64   `json:"expired"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	CreditsEarned  int64   `json:"credits_earned_from_invites"`
}

// Repository persists invites. Implementations are stateless; callers pass
// the *gorm.DB (or transaction) the operation should run against.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invite *Invite) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Invite, error)
	FindByInviter(ctx context.Context, db *gorm.DB, inviterUserID snowflake.ID, status InviteStatus) ([]*Invite, error)

	// MarkAccepted transitions PENDING -> ACCEPTED; the status predicate in
	// the UPDATE makes acceptance one-shot under concurrency.
	MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, inviteeUserID snowflake.ID, now time.Time) (int64, error)
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)

	CountByStatus(ctx context.Context, db *gorm.DB) (map[InviteStatus]int64, error)
	TopInviters(ctx context.Context, db *gorm.DB, limit int) ([]TopInviter, error)
	CountByInviterAndStatus(ctx context.Context, db *gorm.DB, inviterUserID snowflake.ID) (map[InviteStatus]int64, error)
}
