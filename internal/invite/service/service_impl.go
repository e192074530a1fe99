package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
	obsmetrics "github.com/swapforge/swapforge/internal/observability/metrics"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const codeGenAttempts = 10

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Pricing    *config.PricingHolder
	Repo       invitedomain.Repository
	UserRepo   userdomain.Repository
	CreditSvc  creditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    *config.PricingHolder
	repo       invitedomain.Repository
	userRepo   userdomain.Repository
	creditSvc  creditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) invitedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invite.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		creditSvc:  p.CreditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateInvite(ctx context.Context, inviterUserID snowflake.ID, expiresInDays int) (string, error) {
	if inviterUserID == 0 {
		return "", invitedomain.ErrInvalidInviter
	}
	if expiresInDays <= 0 {
		expiresInDays = s.pricing.Get().InviteExpiryDays
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return "", err
	}

	now := s.clock.Now().UTC()
	invite := &invitedomain.Invite{
		ID:             s.genID.Generate(),
		InviterUserID:  inviterUserID,
		InviteCode:     code,
		Status:         invitedomain.InviteStatusPending,
		CreditsAwarded: int64(s.pricing.Get().InviteRewardCredits),
		InvitedAt:      now,
		ExpiresAt:      now.Add(time.Duration(expiresInDays) * 24 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, invite); err != nil {
			return err
		}
		_, err := s.userRepo.IncrementInvitesSent(ctx, tx, inviterUserID, now)
		return err
	})
	if err != nil {
		return "", err
	}

	s.log.Info("invite created",
		zap.String("invite_code", code),
		zap.String("inviter_user_id", inviterUserID.String()),
	)
	return code, nil
}

// ProcessInvite validates and accepts a code for the invitee. The state flip
// and both credit awards commit or roll back together; the status predicate
// on the acceptance UPDATE keeps the code one-shot under races.
func (s *Service) ProcessInvite(ctx context.Context, code string, inviteeUserID snowflake.ID) (*invitedomain.ProcessInviteResult, error) {
	invite, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Invalid invite code"}, nil
	}
	if invite.Status != invitedomain.InviteStatusPending {
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Invite already used or expired"}, nil
	}

	now := s.clock.Now().UTC()
	if invite.ExpiresAt.Before(now) {
		if _, err := s.repo.MarkExpired(ctx, s.db, invite.ID, now); err != nil {
			return nil, err
		}
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Invite has expired"}, nil
	}
	if invite.InviterUserID == inviteeUserID {
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Cannot invite yourself"}, nil
	}

	invitee, err := s.userRepo.FindByID(ctx, s.db, inviteeUserID)
	if err != nil {
		return nil, err
	}
	if invitee == nil {
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Invitee user not found"}, nil
	}

	bonusCredits := int64(s.pricing.Get().InviteBonusCredits)
	accepted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.MarkAccepted(ctx, tx, invite.ID, inviteeUserID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		if _, err := s.creditSvc.AddCreditsTx(ctx, tx, creditdomain.AddCreditsRequest{
			UserID:          invite.InviterUserID,
			Amount:          invite.CreditsAwarded,
			CreditType:      creditdomain.CreditTypeEarned,
			Source:          creditdomain.CreditSourceInvite,
			SourceReference: fmt.Sprintf("invite_%s", code),
		}); err != nil {
			return err
		}
		if _, err := s.creditSvc.AddCreditsTx(ctx, tx, creditdomain.AddCreditsRequest{
			UserID:          inviteeUserID,
			Amount:          bonusCredits,
			CreditType:      creditdomain.CreditTypeBonus,
			Source:          creditdomain.CreditSourceInvite,
			SourceReference: fmt.Sprintf("invited_by_%s", code),
		}); err != nil {
			return err
		}
		if _, err := s.userRepo.IncrementInvitesAccepted(ctx, tx, invite.InviterUserID, now); err != nil {
			return err
		}
		accepted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !accepted {
		return &invitedomain.ProcessInviteResult{Success: false, Reason: "Invite already used or expired"}, nil
	}

	s.log.Info("invite accepted",
		zap.String("invite_code", code),
		zap.String("inviter_user_id", invite.InviterUserID.String()),
		zap.String("invitee_user_id", inviteeUserID.String()),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordInviteAccepted(ctx)
	}
	return &invitedomain.ProcessInviteResult{
		Success:        true,
		CreditsAwarded: invite.CreditsAwarded,
		InviterID:      invite.InviterUserID,
	}, nil
}

func (s *Service) ValidateInviteCode(ctx context.Context, code string) (*invitedomain.ValidateInviteResult, error) {
	invite, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return &invitedomain.ValidateInviteResult{Valid: false, Reason: "Invalid invite code"}, nil
	}
	if invite.Status != invitedomain.InviteStatusPending {
		return &invitedomain.ValidateInviteResult{Valid: false, Reason: "Invite already used or expired"}, nil
	}
	if invite.ExpiresAt.Before(s.clock.Now().UTC()) {
		return &invitedomain.ValidateInviteResult{Valid: false, Reason: "Invite has expired"}, nil
	}
	expiresAt := invite.ExpiresAt
	return &invitedomain.ValidateInviteResult{
		Valid:          true,
		InviterID:      invite.InviterUserID,
		CreditsAwarded: invite.CreditsAwarded,
		ExpiresAt:      &expiresAt,
	}, nil
}

func (s *Service) CancelInvite(ctx context.Context, code string, inviterUserID snowflake.ID) (bool, error) {
	invite, err := s.repo.FindByCode(ctx, s.db, code)
	if err != nil {
		return false, err
	}
	if invite == nil || invite.InviterUserID != inviterUserID || invite.Status != invitedomain.InviteStatusPending {
		return false, nil
	}
	rows, err := s.repo.MarkExpired(ctx, s.db, invite.ID, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if rows > 0 {
		s.log.Info("invite cancelled",
			zap.String("invite_code", code),
			zap.String("inviter_user_id", inviterUserID.String()),
		)
	}
	return rows > 0, nil
}

func (s *Service) ExpireOldInvites(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	expired, err := s.repo.ExpirePending(ctx, s.db, now)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("expired invites", zap.Int64("count", expired))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordLotsExpired(ctx, "invites", expired)
		}
	}
	return expired, nil
}

func (s *Service) GetUserInvites(ctx context.Context, inviterUserID snowflake.ID, status invitedomain.InviteStatus) ([]*invitedomain.Invite, error) {
	return s.repo.FindByInviter(ctx, s.db, inviterUserID, status)
}

func (s *Service) GetInviteStatistics(ctx context.Context) (*invitedomain.Statistics, error) {
	counts, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats := &invitedomain.Statistics{
		PendingInvites:  counts[invitedomain.InviteStatusPending],
		AcceptedInvites: counts[invitedomain.InviteStatusAccepted],
		ExpiredInvites:  counts[invitedomain.InviteStatusExpired],
	}
	for _, count := range counts {
		stats.TotalInvites += count
	}
	if stats.TotalInvites > 0 {
		stats.AcceptanceRate = float64(stats.AcceptedInvites) / float64(stats.TotalInvites) * 100
	}

	top, err := s.repo.TopInviters(ctx, s.db, 10)
	if err != nil {
		return nil, err
	}
	stats.TopInviters = top
	return stats, nil
}

func (s *Service) GetUserInviteStats(ctx context.Context, inviterUserID snowflake.ID) (*invitedomain.UserInviteStats, error) {
	counts, err := s.repo.CountByInviterAndStatus(ctx, s.db, inviterUserID)
	if err != nil {
		return nil, err
	}
	stats := &invitedomain.UserInviteStats{
		Pending:  counts[invitedomain.InviteStatusPending],
		Accepted: counts[invitedomain.InviteStatusAccepted],
		Expired:  counts[invitedomain.InviteStatusExpired],
	}
	for _, count := range counts {
		stats.TotalSent += count
	}
	if stats.TotalSent > 0 {
		stats.AcceptanceRate = float64(stats.Accepted) / float64(stats.TotalSent) * 100
	}
	stats.CreditsEarned = stats.Accepted * int64(s.pricing.Get().InviteRewardCredits)
	return stats, nil
}

func (s *Service) generateCode(ctx context.Context) (string, error) {
	for i := 0; i < codeGenAttempts; i++ {
		code := strings.ToUpper(uuid.NewString()[:8])
		existing, err := s.repo.FindByCode(ctx, s.db, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique invite code after %d attempts", codeGenAttempts)
}
