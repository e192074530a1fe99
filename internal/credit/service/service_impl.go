package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/clock"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	obsmetrics "github.com/swapforge/swapforge/internal/observability/metrics"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       creditdomain.Repository
	UserRepo   userdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       creditdomain.Repository
	userRepo   userdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) creditdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("credit.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) AddCredits(ctx context.Context, req creditdomain.AddCreditsRequest) (*creditdomain.CreditLot, error) {
	var lot *creditdomain.CreditLot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.AddCreditsTx(ctx, tx, req)
		if err != nil {
			return err
		}
		lot = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// AddCreditsTx writes a new lot inside the caller's transaction. The lifetime
// earned counter moves with it; a missing user row skips the counter but still
// records the lot.
func (s *Service) AddCreditsTx(ctx context.Context, tx *gorm.DB, req creditdomain.AddCreditsRequest) (*creditdomain.CreditLot, error) {
	if req.UserID == 0 {
		return nil, creditdomain.ErrInvalidUser
	}
	if req.Amount <= 0 {
		return nil, creditdomain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	lot := &creditdomain.CreditLot{
		ID:              s.genID.Generate(),
		UserID:          req.UserID,
		CreditType:      req.CreditType,
		Amount:          req.Amount,
		Balance:         req.Amount,
		Source:          req.Source,
		SourceReference: req.SourceReference,
		ExpiresAt:       req.ExpiresAt,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, lot); err != nil {
		return nil, err
	}

	rows, err := s.userRepo.IncrementCreditsEarned(ctx, tx, req.UserID, req.Amount, now)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.log.Warn("credit lot recorded for unknown user, earned counter skipped",
			zap.String("user_id", req.UserID.String()),
			zap.Int64("amount", req.Amount),
		)
	}

	s.log.Info("credits added",
		zap.String("user_id", req.UserID.String()),
		zap.Int64("amount", req.Amount),
		zap.String("source", string(req.Source)),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCreditsAdded(ctx, string(req.Source), req.Amount)
	}
	return lot, nil
}

func (s *Service) ConsumeCredits(ctx context.Context, userID snowflake.ID, amount int64) (bool, error) {
	consumed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.ConsumeCreditsTx(ctx, tx, userID, amount)
		if err != nil {
			return err
		}
		consumed = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	return consumed, nil
}

// ConsumeCreditsTx drains the user's active lots oldest-first inside the
// caller's transaction. The lots are locked for the duration of the
// transaction so concurrent spends of the same balance serialize.
func (s *Service) ConsumeCreditsTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64) (bool, error) {
	if userID == 0 {
		return false, creditdomain.ErrInvalidUser
	}
	if amount <= 0 {
		return false, creditdomain.ErrInvalidAmount
	}

	lots, err := s.repo.FindActiveLots(ctx, tx, userID, true)
	if err != nil {
		return false, err
	}

	var available int64
	for _, lot := range lots {
		available += lot.Balance
	}
	if available < amount {
		s.log.Warn("insufficient credits",
			zap.String("user_id", userID.String()),
			zap.Int64("available", available),
			zap.Int64("required", amount),
		)
		return false, nil
	}

	now := s.clock.Now().UTC()
	remaining := amount
	for _, lot := range lots {
		if remaining <= 0 {
			break
		}
		take := lot.Balance
		if take > remaining {
			take = remaining
		}
		newBalance := lot.Balance - take
		if err := s.repo.UpdateBalance(ctx, tx, lot.ID, newBalance, newBalance > 0, now); err != nil {
			return false, err
		}
		remaining -= take
	}

	if _, err := s.userRepo.IncrementCreditsSpent(ctx, tx, userID, amount, now); err != nil {
		return false, err
	}

	s.log.Info("credits consumed",
		zap.String("user_id", userID.String()),
		zap.Int64("amount", amount),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordCreditsConsumed(ctx, amount)
	}
	return true, nil
}

func (s *Service) RefundCredits(ctx context.Context, userID snowflake.ID, amount int64, reason string) (*creditdomain.CreditLot, error) {
	lot, err := s.AddCredits(ctx, creditdomain.AddCreditsRequest{
		UserID:          userID,
		Amount:          amount,
		CreditType:      creditdomain.CreditTypeBonus,
		Source:          creditdomain.CreditSourceRefund,
		SourceReference: reason,
	})
	if err != nil {
		return nil, err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRefund(ctx, amount)
	}
	return lot, nil
}

func (s *Service) GrantAdminCredits(ctx context.Context, userID snowflake.ID, amount int64, adminID int64, reason string) (*creditdomain.CreditLot, error) {
	reference := fmt.Sprintf("admin_%d", adminID)
	if reason != "" {
		reference = fmt.Sprintf("admin_%d_%s", adminID, reason)
	}
	return s.AddCredits(ctx, creditdomain.AddCreditsRequest{
		UserID:          userID,
		Amount:          amount,
		CreditType:      creditdomain.CreditTypeBonus,
		Source:          creditdomain.CreditSourceAdminGrant,
		SourceReference: reference,
	})
}

// TransferCredits moves credits between users in a single transaction: a
// rollback of the destination lot also rolls back the source drain.
func (s *Service) TransferCredits(ctx context.Context, fromUserID, toUserID snowflake.ID, amount int64, reason string) (bool, error) {
	if fromUserID == 0 || toUserID == 0 {
		return false, creditdomain.ErrInvalidUser
	}
	if amount <= 0 {
		return false, creditdomain.ErrInvalidAmount
	}

	reference := fmt.Sprintf("transfer_from_%s", fromUserID)
	if reason != "" {
		reference = fmt.Sprintf("transfer_from_%s_%s", fromUserID, reason)
	}

	transferred := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.ConsumeCreditsTx(ctx, tx, fromUserID, amount)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := s.AddCreditsTx(ctx, tx, creditdomain.AddCreditsRequest{
			UserID:          toUserID,
			Amount:          amount,
			CreditType:      creditdomain.CreditTypeBonus,
			Source:          creditdomain.CreditSourceAdminGrant,
			SourceReference: reference,
		}); err != nil {
			return err
		}
		transferred = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if transferred {
		s.log.Info("credits transferred",
			zap.String("from_user_id", fromUserID.String()),
			zap.String("to_user_id", toUserID.String()),
			zap.Int64("amount", amount),
		)
	}
	return transferred, nil
}

func (s *Service) ExpireOldCredits(ctx context.Context) (int64, error) {
	now := s.clock.Now().UTC()
	var expired int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.ExpireLots(ctx, tx, now)
		if err != nil {
			return err
		}
		expired = count
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("expired credit lots", zap.Int64("count", expired))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordLotsExpired(ctx, "credits", expired)
		}
	}
	return expired, nil
}

func (s *Service) GetActiveCreditBalance(ctx context.Context, userID snowflake.ID) (int64, error) {
	return s.repo.SumActiveBalance(ctx, s.db, userID)
}

func (s *Service) ValidateCreditTransaction(ctx context.Context, userID snowflake.ID, amount int64) (*creditdomain.ValidationResult, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &creditdomain.ValidationResult{Valid: false, Reason: "User not found"}, nil
	}
	if !user.IsActive() {
		return &creditdomain.ValidationResult{Valid: false, Reason: "User account is not active"}, nil
	}

	balance, err := s.repo.SumActiveBalance(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if balance < amount {
		return &creditdomain.ValidationResult{
			Valid:          false,
			Reason:         fmt.Sprintf("Insufficient credits. Available: %d, Required: %d", balance, amount),
			CurrentBalance: balance,
		}, nil
	}
	return &creditdomain.ValidationResult{Valid: true, CurrentBalance: balance}, nil
}

func (s *Service) GetUserCredits(ctx context.Context, userID snowflake.ID) ([]*creditdomain.CreditLot, error) {
	return s.repo.FindByUser(ctx, s.db, userID, true)
}

func (s *Service) GetCreditHistory(ctx context.Context, userID snowflake.ID, limit, offset int) ([]*creditdomain.CreditLot, error) {
	return s.repo.FindHistory(ctx, s.db, userID, limit, offset)
}

func (s *Service) GetExpiringCredits(ctx context.Context, daysAhead int) ([]*creditdomain.CreditLot, error) {
	if daysAhead <= 0 {
		daysAhead = 7
	}
	now := s.clock.Now().UTC()
	until := now.Add(time.Duration(daysAhead) * 24 * time.Hour)
	return s.repo.FindExpiring(ctx, s.db, now, until)
}

func (s *Service) GetCreditStatistics(ctx context.Context) (*creditdomain.Statistics, error) {
	return s.repo.Statistics(ctx, s.db)
}
