package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	obsmetrics "github.com/swapforge/swapforge/internal/observability/metrics"
	paymentdomain "github.com/swapforge/swapforge/internal/payment/domain"
	"github.com/swapforge/swapforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Pricing    *config.PricingHolder
	Repo       paymentdomain.Repository
	CreditSvc  creditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    *config.PricingHolder
	repo       paymentdomain.Repository
	creditSvc  creditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		repo:       p.Repo,
		creditSvc:  p.CreditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateTransaction(ctx context.Context, req paymentdomain.CreateTransactionRequest) (*paymentdomain.Transaction, error) {
	now := s.clock.Now().UTC()
	transaction := &paymentdomain.Transaction{
		ID:                    s.genID.Generate(),
		UserID:                req.UserID,
		TransactionType:       req.TransactionType,
		PaymentMethod:         req.PaymentMethod,
		AmountLocal:           req.AmountLocal,
		CurrencyCode:          req.CurrencyCode,
		CreditsPurchased:      req.CreditsPurchased,
		ExternalTransactionID: req.ExternalTransactionID,
		GatewayResponse:       datatypes.JSONMap(req.GatewayResponse),
		Status:                paymentdomain.TransactionStatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.repo.Insert(ctx, s.db, transaction); err != nil {
		return nil, err
	}
	s.log.Info("transaction created",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("payment_method", string(req.PaymentMethod)),
	)
	return transaction, nil
}

func (s *Service) ProcessStarsPayment(ctx context.Context, payment paymentdomain.StarsPayment) (*paymentdomain.PaymentResult, error) {
	if payment.UserID == 0 || payment.TotalAmount <= 0 || payment.TelegramPaymentChargeID == "" {
		return &paymentdomain.PaymentResult{Success: false, Reason: "Missing payment data"}, nil
	}

	pricing := s.pricing.Get()
	credits := payment.TotalAmount * int64(pricing.StarsCredits) / pricing.StarsRate
	if credits <= 0 {
		return &paymentdomain.PaymentResult{Success: false, Reason: "Amount too small"}, nil
	}

	return s.settle(ctx, settleRequest{
		UserID:          payment.UserID,
		PaymentMethod:   paymentdomain.PaymentMethodTelegramStars,
		AmountLocal:     float64(payment.TotalAmount),
		CurrencyCode:    "STARS",
		Credits:         credits,
		ExternalID:      payment.TelegramPaymentChargeID,
		GatewayResponse: payment.Payload,
		ReferencePrefix: "telegram_stars",
	})
}

func (s *Service) ProcessUPIPayment(ctx context.Context, payment paymentdomain.UPIPayment) (*paymentdomain.PaymentResult, error) {
	if payment.UserID == 0 || payment.AmountINR <= 0 || payment.TransactionID == "" {
		return &paymentdomain.PaymentResult{Success: false, Reason: "Missing payment data"}, nil
	}

	pricing := s.pricing.Get()
	credits := int64(payment.AmountINR / float64(pricing.UPIRateINR) * float64(pricing.UPICredits))
	if credits <= 0 {
		return &paymentdomain.PaymentResult{Success: false, Reason: "Amount too small"}, nil
	}

	return s.settle(ctx, settleRequest{
		UserID:          payment.UserID,
		PaymentMethod:   paymentdomain.PaymentMethodUPI,
		AmountLocal:     payment.AmountINR,
		CurrencyCode:    "INR",
		Credits:         credits,
		ExternalID:      payment.TransactionID,
		GatewayResponse: payment.Payload,
		ReferencePrefix: "upi",
	})
}

type settleRequest struct {
	UserID          snowflake.ID
	PaymentMethod   paymentdomain.PaymentMethod
	AmountLocal     float64
	CurrencyCode    string
	Credits         int64
	ExternalID      string
	GatewayResponse map[string]any
	ReferencePrefix string
}

// settle records the transaction and the purchased lot atomically. The unique
// external id makes replays converge on the first settlement: the insert hits
// the constraint, the original transaction is returned, no credits move.
func (s *Service) settle(ctx context.Context, req settleRequest) (*paymentdomain.PaymentResult, error) {
	existing, err := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replayResult(ctx, existing)
	}

	now := s.clock.Now().UTC()
	transaction := &paymentdomain.Transaction{
		ID:                    s.genID.Generate(),
		UserID:                req.UserID,
		TransactionType:       paymentdomain.TransactionTypePurchase,
		PaymentMethod:         req.PaymentMethod,
		AmountLocal:           req.AmountLocal,
		CurrencyCode:          req.CurrencyCode,
		CreditsPurchased:      req.Credits,
		ExternalTransactionID: req.ExternalID,
		GatewayResponse:       datatypes.JSONMap(req.GatewayResponse),
		Status:                paymentdomain.TransactionStatusPending,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, transaction); err != nil {
			return err
		}
		if _, err := s.creditSvc.AddCreditsTx(ctx, tx, creditdomain.AddCreditsRequest{
			UserID:          req.UserID,
			Amount:          req.Credits,
			CreditType:      creditdomain.CreditTypePurchased,
			Source:          creditdomain.CreditSourcePurchase,
			SourceReference: fmt.Sprintf("%s_%s", req.ReferencePrefix, transaction.ID),
		}); err != nil {
			return err
		}
		return s.repo.MarkCompleted(ctx, tx, transaction.ID, now)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByExternalID(ctx, s.db, req.ExternalID)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return s.replayResult(ctx, winner)
			}
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordPaymentEvent(ctx, string(req.PaymentMethod), "error")
		}
		return nil, err
	}

	s.log.Info("payment settled",
		zap.String("transaction_id", transaction.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("payment_method", string(req.PaymentMethod)),
		zap.Int64("credits", req.Credits),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentEvent(ctx, string(req.PaymentMethod), "completed")
	}
	return &paymentdomain.PaymentResult{
		Success:       true,
		TransactionID: transaction.ID,
		CreditsAdded:  req.Credits,
	}, nil
}

func (s *Service) replayResult(ctx context.Context, existing *paymentdomain.Transaction) (*paymentdomain.PaymentResult, error) {
	s.log.Info("payment replay ignored",
		zap.String("transaction_id", existing.ID.String()),
		zap.String("external_transaction_id", existing.ExternalTransactionID),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentEvent(ctx, string(existing.PaymentMethod), "replayed")
	}
	return &paymentdomain.PaymentResult{
		Success:       true,
		TransactionID: existing.ID,
		CreditsAdded:  existing.CreditsPurchased,
		Replayed:      true,
	}, nil
}

func (s *Service) MarkTransactionFailed(ctx context.Context, id snowflake.ID, errorMessage string) (bool, error) {
	rows, err := s.repo.MarkFailed(ctx, s.db, id, errorMessage, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if rows > 0 {
		s.log.Info("transaction marked failed", zap.String("transaction_id", id.String()))
	}
	return rows > 0, nil
}

func (s *Service) GetTransactionByExternalID(ctx context.Context, externalID string) (*paymentdomain.Transaction, error) {
	transaction, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if transaction == nil {
		return nil, paymentdomain.ErrTransactionNotFound
	}
	return transaction, nil
}

func (s *Service) GetTransactionHistory(ctx context.Context, userID snowflake.ID, limit int) ([]*paymentdomain.Transaction, error) {
	return s.repo.FindByUser(ctx, s.db, userID, limit)
}

func (s *Service) GetPaymentStatistics(ctx context.Context) (*paymentdomain.Statistics, error) {
	counts, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats := &paymentdomain.Statistics{
		CompletedTransactions: counts[paymentdomain.TransactionStatusCompleted],
		FailedTransactions:    counts[paymentdomain.TransactionStatusFailed],
		PendingTransactions:   counts[paymentdomain.TransactionStatusPending],
	}
	for _, count := range counts {
		stats.TotalTransactions += count
	}
	if stats.TotalTransactions > 0 {
		stats.SuccessRate = float64(stats.CompletedTransactions) / float64(stats.TotalTransactions) * 100
	}

	revenue, err := s.repo.RevenueByMethod(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats.RevenueByMethod = revenue
	return stats, nil
}
