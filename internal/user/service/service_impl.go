package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
	"github.com/swapforge/swapforge/pkg/db"
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
	Pricing    *config.PricingHolder
	Repo       userdomain.Repository
	CreditRepo creditdomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    *config.PricingHolder
	repo       userdomain.Repository
	creditRepo creditdomain.Repository
}

func New(p Params) userdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("user.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		repo:       p.Repo,
		creditRepo: p.CreditRepo,
	}
}

// GetOrCreateUser upserts by telegram id. New accounts get their registration
// credit lot in the same transaction; a lost insert race falls back to the
// winner's row.
func (s *Service) GetOrCreateUser(ctx context.Context, req userdomain.GetOrCreateUserRequest) (*userdomain.User, bool, error) {
	if req.TelegramUserID == 0 {
		return nil, false, userdomain.ErrInvalidTelegram
	}

	existing, err := s.repo.FindByTelegramID(ctx, s.db, req.TelegramUserID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		now := s.clock.Now().UTC()
		if err := s.repo.TouchLastActivity(ctx, s.db, existing.ID, now); err != nil {
			s.log.Warn("failed to touch last activity", zap.Error(err))
		}
		existing.LastActivity = now
		return existing, false, nil
	}

	now := s.clock.Now().UTC()
	languageCode := req.LanguageCode
	if languageCode == "" {
		languageCode = "en"
	}
	user := &userdomain.User{
		ID:               s.genID.Generate(),
		TelegramUserID:   req.TelegramUserID,
		Username:         req.Username,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		LanguageCode:     languageCode,
		IsPremium:        req.IsPremium,
		Status:           userdomain.UserStatusActive,
		RegistrationDate: now,
		LastActivity:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	registrationCredits := int64(s.pricing.Get().RegistrationCredits)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, user); err != nil {
			return err
		}
		if registrationCredits <= 0 {
			return nil
		}
		lot := &creditdomain.CreditLot{
			ID:              s.genID.Generate(),
			UserID:          user.ID,
			CreditType:      creditdomain.CreditTypeFree,
			Amount:          registrationCredits,
			Balance:         registrationCredits,
			Source:          creditdomain.CreditSourceRegistration,
			SourceReference: "welcome_bonus",
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.creditRepo.Insert(ctx, tx, lot); err != nil {
			return err
		}
		_, err := s.repo.IncrementCreditsEarned(ctx, tx, user.ID, registrationCredits, now)
		return err
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByTelegramID(ctx, s.db, req.TelegramUserID)
			if findErr != nil {
				return nil, false, findErr
			}
			if winner != nil {
				return winner, false, nil
			}
		}
		return nil, false, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.Int64("telegram_user_id", req.TelegramUserID),
		zap.Int64("registration_credits", registrationCredits),
	)
	return user, true, nil
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*userdomain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) GetUserByTelegramID(ctx context.Context, telegramUserID int64) (*userdomain.User, error) {
	user, err := s.repo.FindByTelegramID(ctx, s.db, telegramUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, userdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) AgreeToTerms(ctx context.Context, id snowflake.ID) error {
	rows, err := s.repo.SetAgreedToTerms(ctx, s.db, id, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		return userdomain.ErrUserNotFound
	}
	return nil
}

func (s *Service) UpdateLastActivity(ctx context.Context, id snowflake.ID) error {
	return s.repo.TouchLastActivity(ctx, s.db, id, s.clock.Now().UTC())
}

func (s *Service) SuspendUser(ctx context.Context, id snowflake.ID) error {
	return s.setStatus(ctx, id, userdomain.UserStatusSuspended)
}

func (s *Service) BanUser(ctx context.Context, id snowflake.ID) error {
	return s.setStatus(ctx, id, userdomain.UserStatusBanned)
}

func (s *Service) ReactivateUser(ctx context.Context, id snowflake.ID) error {
	return s.setStatus(ctx, id, userdomain.UserStatusActive)
}

func (s *Service) setStatus(ctx context.Context, id snowflake.ID, status userdomain.UserStatus) error {
	rows, err := s.repo.UpdateStatus(ctx, s.db, id, status, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		return userdomain.ErrUserNotFound
	}
	s.log.Info("user status changed",
		zap.String("user_id", id.String()),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) GetUserStats(ctx context.Context, id snowflake.ID) (*userdomain.UserStats, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	balance, err := s.creditRepo.SumActiveBalance(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &userdomain.UserStats{
		User:            user,
		CreditBalance:   balance,
		CreditsEarned:   user.TotalCreditsEarned,
		CreditsSpent:    user.TotalCreditsSpent,
		InvitesSent:     user.TotalInvitesSent,
		InvitesAccepted: user.TotalInvitesAccepted,
	}, nil
}

func (s *Service) SearchUsers(ctx context.Context, filter userdomain.SearchFilter) ([]*userdomain.User, error) {
	return s.repo.Search(ctx, s.db, filter)
}

func (s *Service) GetUserCount(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx, s.db)
}
