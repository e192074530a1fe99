package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrUserNotFound    = errors.New("user_not_found")
	ErrInvalidTelegram = errors.New("invalid_telegram_user_id")
	ErrInvalidStatus   = errors.New("invalid_user_status")
)

// GetOrCreateUserRequest identifies an account by its chat-platform identity.
type GetOrCreateUserRequest struct {
	TelegramUserID int64  `json:"telegram_user_id" binding:"required"`
	Username       string `json:"username"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	LanguageCode   string `json:"language_code"`
	IsPremium      bool   `json:"is_premium"`
}

// UserStats summarizes one account for the admin surface.
type UserStats struct {
	User            *User `json:"user"`
	CreditBalance   int64 `json:"credit_balance"`
	CreditsEarned   int64 `json:"credits_earned"`
	CreditsSpent    int64 `json:"credits_spent"`
	InvitesSent     int64 `json:"invites_sent"`
	InvitesAccepted int64 `json:"invites_accepted"`
}

// Service manages account lifecycle and registration rewards.
type Service interface {
	// GetOrCreateUser upserts the account keyed by telegram id. A newly
	// created account receives its registration credit lot in the same
	// transaction. The bool reports whether the account was created.
	GetOrCreateUser(ctx context.Context, req GetOrCreateUserRequest) (*User, bool, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	GetUserByTelegramID(ctx context.Context, telegramUserID int64) (*User, error)

	AgreeToTerms(ctx context.Context, id snowflake.ID) error
	UpdateLastActivity(ctx context.Context, id snowflake.ID) error

	SuspendUser(ctx context.Context, id snowflake.ID) error
	BanUser(ctx context.Context, id snowflake.ID) error
	ReactivateUser(ctx context.Context, id snowflake.ID) error

	GetUserStats(ctx context.Context, id snowflake.ID) (*UserStats, error)
	SearchUsers(ctx context.Context, filter SearchFilter) ([]*User, error)
	GetUserCount(ctx context.Context) (int64, error)
}
