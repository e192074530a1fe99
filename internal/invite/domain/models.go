package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InviteStatus is the lifecycle state of an invite code.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

// Invite is a single-use referral code. Acceptance is a one-shot transition:
// once ACCEPTED (or EXPIRED) the code never awards credits again.
type Invite struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	InviterUserID  snowflake.ID  `gorm:"not null;index" json:"inviter_user_id"`
	InviteeUserID  *snowflake.ID `gorm:"index" json:"invitee_user_id,omitempty"`
	InviteCode     string        `gorm:"type:text;not null;uniqueIndex:ux_invites_code" json:"invite_code"`
	Status         InviteStatus  `gorm:"type:text;not null;default:PENDING;index" json:"status"`
	CreditsAwarded int64         `gorm:"not null;default:1" json:"credits_awarded"`
	InvitedAt      time.Time     `gorm:"not null" json:"invited_at"`
	AcceptedAt     *time.Time    `json:"accepted_at,omitempty"`
	ExpiresAt      time.Time     `gorm:"not null;index" json:"expires_at"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invite) TableName() string { return "invites" }
