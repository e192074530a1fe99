package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInviteNotFound = errors.New("invite_not_found")
	ErrInvalidInviter = errors.New("invalid_inviter")
)

// ProcessInviteResult is the business outcome of an invite acceptance
// attempt. A rejected invite is not an error.
type ProcessInviteResult struct {
	Success        bool         `json:"success"`
	Reason         string       `json:"reason,omitempty"`
	CreditsAwarded int64        `json:"credits_awarded,omitempty"`
	InviterID      snowflake.ID `json:"inviter_id,omitempty"`
}

// ValidateInviteResult reports whether a code could currently be accepted.
type ValidateInviteResult struct {
	Valid          bool         `json:"valid"`
	Reason         string       `json:"reason,omitempty"`
	InviterID      snowflake.ID `json:"inviter_id,omitempty"`
	CreditsAwarded int64        `json:"credits_awarded,omitempty"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
}

// Service manages referral codes and their credit settlement.
type Service interface {
	CreateInvite(ctx context.Context, inviterUserID snowflake.ID, expiresInDays int) (string, error)

	// ProcessInvite accepts a pending code on behalf of the invitee. The
	// acceptance and both credit awards settle in one transaction.
	ProcessInvite(ctx context.Context, code string, inviteeUserID snowflake.ID) (*ProcessInviteResult, error)

	ValidateInviteCode(ctx context.Context, code string) (*ValidateInviteResult, error)
	CancelInvite(ctx context.Context, code string, inviterUserID snowflake.ID) (bool, error)
	ExpireOldInvites(ctx context.Context) (int64, error)

	GetUserInvites(ctx context.Context, inviterUserID snowflake.ID, status InviteStatus) ([]*Invite, error)
	GetInviteStatistics(ctx context.Context) (*Statistics, error)
	GetUserInviteStats(ctx context.Context, inviterUserID snowflake.ID) (*UserInviteStats, error)
}
