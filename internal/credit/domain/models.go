package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CreditType classifies how a lot entered the system.
type CreditType string

const (
	CreditTypeFree      CreditType = "FREE"
	CreditTypePurchased CreditType = "PURCHASED"
	CreditTypeEarned    CreditType = "EARNED"
	CreditTypeBonus     CreditType = "BONUS"
)

// CreditSource records the originating event of a lot.
type CreditSource string

const (
	CreditSourceRegistration CreditSource = "REGISTRATION"
	CreditSourceInvite       CreditSource = "INVITE"
	CreditSourcePurchase     CreditSource = "PURCHASE"
	CreditSourceAdminGrant   CreditSource = "ADMIN_GRANT"
	CreditSourceRefund       CreditSource = "REFUND"
)

// CreditLot is an append-only grant of credits. Amount never changes after
// insert; Balance only decreases, and 0 <= Balance <= Amount always holds.
// A lot with Balance zero or a past ExpiresAt is deactivated, never deleted.
type CreditLot struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID `gorm:"not null;index:ix_credits_user_active,priority:1" json:"user_id"`
	CreditType      CreditType   `gorm:"type:text;not null" json:"credit_type"`
	Amount          int64        `gorm:"not null" json:"amount"`
	Balance         int64        `gorm:"not null" json:"balance"`
	Source          CreditSource `gorm:"type:text;not null" json:"source"`
	SourceReference string       `gorm:"type:text" json:"source_reference"`
	ExpiresAt       *time.Time   `gorm:"index" json:"expires_at,omitempty"`
	IsActive        bool         `gorm:"not null;default:true;index:ix_credits_user_active,priority:2" json:"is_active"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CreditLot) TableName() string { return "credits" }
