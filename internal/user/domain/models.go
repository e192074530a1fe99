package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UserStatus represents the lifecycle state of an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusBanned    UserStatus = "BANNED"
)

// User is a chat-platform account known to the system.
//
// TotalCreditsEarned and TotalCreditsSpent are monotone lifetime counters;
// the spendable balance is always derived from credit lots, never stored here.
type User struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	TelegramUserID   int64        `gorm:"not null;uniqueIndex:ux_users_telegram_user_id" json:"telegram_user_id"`
	Username         string       `gorm:"type:text" json:"username"`
	FirstName        string       `gorm:"type:text" json:"first_name"`
	LastName         string       `gorm:"type:text" json:"last_name"`
	LanguageCode     string       `gorm:"type:text;not null;default:en" json:"language_code"`
	IsPremium        bool         `gorm:"not null;default:false" json:"is_premium"`
	Status           UserStatus   `gorm:"type:text;not null;default:ACTIVE;index" json:"status"`
	RegistrationDate time.Time    `gorm:"not null" json:"registration_date"`
	LastActivity     time.Time    `gorm:"not null" json:"last_activity"`

	TotalCreditsEarned   int64 `gorm:"not null;default:0" json:"total_credits_earned"`
	TotalCreditsSpent    int64 `gorm:"not null;default:0" json:"total_credits_spent"`
	TotalInvitesSent     int64 `gorm:"not null;default:0" json:"total_invites_sent"`
	TotalInvitesAccepted int64 `gorm:"not null;default:0" json:"total_invites_accepted"`

	AgreedToTerms bool       `gorm:"not null;default:false" json:"agreed_to_terms"`
	TermsAgreedAt *time.Time `json:"terms_agreed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// IsActive reports whether the account may spend credits or submit jobs.
func (u *User) IsActive() bool { return u.Status == UserStatusActive }
