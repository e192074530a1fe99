package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditrepo "github.com/swapforge/swapforge/internal/credit/repository"
	creditservice "github.com/swapforge/swapforge/internal/credit/service"
	paymentdomain "github.com/swapforge/swapforge/internal/payment/domain"
	paymentrepo "github.com/swapforge/swapforge/internal/payment/repository"
	userrepo "github.com/swapforge/swapforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPaymentService(t *testing.T) (paymentdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	preparePaymentSchema(t, db)

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	creditSvc := creditservice.New(creditservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     creditrepo.Provide(),
		UserRepo: userrepo.Provide(),
	})

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Pricing:   config.NewStaticPricingHolder(config.DefaultPricingConfig()),
		Repo:      paymentrepo.Provide(),
		CreditSvc: creditSvc,
	})
	return svc, db, node
}

func preparePaymentSchema(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		telegram_user_id INTEGER NOT NULL UNIQUE,
		username TEXT,
		first_name TEXT,
		last_name TEXT,
		language_code TEXT NOT NULL DEFAULT 'en',
		is_premium BOOLEAN NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		registration_date DATETIME NOT NULL,
		last_activity DATETIME NOT NULL,
		total_credits_earned INTEGER NOT NULL DEFAULT 0,
		total_credits_spent INTEGER NOT NULL DEFAULT 0,
		total_invites_sent INTEGER NOT NULL DEFAULT 0,
		total_invites_accepted INTEGER NOT NULL DEFAULT 0,
		agreed_to_terms BOOLEAN NOT NULL DEFAULT 0,
		terms_agreed_at DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE credits (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		credit_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		source TEXT NOT NULL,
		source_reference TEXT,
		expires_at DATETIME,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)

	require.NoError(t, db.Exec(`CREATE TABLE transactions (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		amount_local REAL NOT NULL,
		currency_code TEXT NOT NULL,
		credits_purchased INTEGER NOT NULL,
		external_transaction_id TEXT UNIQUE,
		gateway_response TEXT,
		status TEXT NOT NULL DEFAULT 'PENDING',
		error_message TEXT,
		processed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)
}

func seedPaymentUser(t *testing.T, db *gorm.DB, node *snowflake.Node, telegramID int64) snowflake.ID {
	t.Helper()

	id := node.Generate()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, telegram_user_id, status, registration_date, last_activity, created_at, updated_at)
		 VALUES (?, ?, 'ACTIVE', ?, ?, ?, ?)`,
		id, telegramID, now, now, now, now,
	).Error)
	return id
}

func TestProcessStarsPaymentConversion(t *testing.T) {
	svc, db, node := setupPaymentService(t)
	ctx := context.Background()
	userID := seedPaymentUser(t, db, node, 800001)

	result, err := svc.ProcessStarsPayment(ctx, paymentdomain.StarsPayment{
		UserID:                  userID,
		TotalAmount:             200,
		TelegramPaymentChargeID: "stars-charge-1",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.False(t, result.Replayed)
	require.Equal(t, int64(140), result.CreditsAdded)

	var row struct {
		Status           string
		CreditsPurchased int64
		CurrencyCode     string
	}
	require.NoError(t, db.Raw(
		`SELECT status, credits_purchased, currency_code FROM transactions WHERE external_transaction_id = ?`,
		"stars-charge-1",
	).Scan(&row).Error)
	require.Equal(t, string(paymentdomain.TransactionStatusCompleted), row.Status)
	require.Equal(t, int64(140), row.CreditsPurchased)
	require.Equal(t, "STARS", row.CurrencyCode)

	var balance int64
	require.NoError(t, db.Raw(
		`SELECT SUM(balance) FROM credits WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&balance).Error)
	require.Equal(t, int64(140), balance)
}

func TestProcessStarsPaymentReplayIsIdempotent(t *testing.T) {
	svc, db, node := setupPaymentService(t)
	ctx := context.Background()
	userID := seedPaymentUser(t, db, node, 800002)

	payment := paymentdomain.StarsPayment{
		UserID:                  userID,
		TotalAmount:             100,
		TelegramPaymentChargeID: "stars-charge-2",
	}

	first, err := svc.ProcessStarsPayment(ctx, payment)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.ProcessStarsPayment(ctx, payment)
	require.NoError(t, err)
	require.True(t, second.Success)
	require.True(t, second.Replayed)
	require.Equal(t, first.TransactionID, second.TransactionID)
	require.Equal(t, first.CreditsAdded, second.CreditsAdded)

	var lots int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM credits WHERE user_id = ?`, userID,
	).Scan(&lots).Error)
	require.Equal(t, int64(1), lots)

	var transactions int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID,
	).Scan(&transactions).Error)
	require.Equal(t, int64(1), transactions)
}

func TestProcessUPIPaymentConversion(t *testing.T) {
	svc, db, node := setupPaymentService(t)
	ctx := context.Background()
	userID := seedPaymentUser(t, db, node, 800003)

	result, err := svc.ProcessUPIPayment(ctx, paymentdomain.UPIPayment{
		UserID:        userID,
		AmountINR:     118,
		TransactionID: "upi-txn-1",
		UPIID:         "someone@bank",
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, int64(46), result.CreditsAdded)

	var currency string
	require.NoError(t, db.Raw(
		`SELECT currency_code FROM transactions WHERE external_transaction_id = ?`, "upi-txn-1",
	).Scan(&currency).Error)
	require.Equal(t, "INR", currency)
}

func TestProcessPaymentMissingData(t *testing.T) {
	svc, _, node := setupPaymentService(t)
	ctx := context.Background()

	result, err := svc.ProcessStarsPayment(ctx, paymentdomain.StarsPayment{
		UserID:      node.Generate(),
		TotalAmount: 100,
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Missing payment data", result.Reason)

	result, err = svc.ProcessUPIPayment(ctx, paymentdomain.UPIPayment{
		AmountINR:     50,
		TransactionID: "upi-txn-2",
	})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Missing payment data", result.Reason)
}

func TestMarkTransactionFailed(t *testing.T) {
	svc, db, node := setupPaymentService(t)
	ctx := context.Background()
	userID := seedPaymentUser(t, db, node, 800004)

	transaction, err := svc.CreateTransaction(ctx, paymentdomain.CreateTransactionRequest{
		UserID:                userID,
		TransactionType:       paymentdomain.TransactionTypePurchase,
		PaymentMethod:         paymentdomain.PaymentMethodUPI,
		AmountLocal:           59,
		CurrencyCode:          "INR",
		CreditsPurchased:      23,
		ExternalTransactionID: "upi-txn-3",
	})
	require.NoError(t, err)

	ok, err := svc.MarkTransactionFailed(ctx, transaction.ID, "gateway declined")
	require.NoError(t, err)
	require.True(t, ok)

	reloaded, err := svc.GetTransactionByExternalID(ctx, "upi-txn-3")
	require.NoError(t, err)
	require.Equal(t, paymentdomain.TransactionStatusFailed, reloaded.Status)
	require.Equal(t, "gateway declined", reloaded.ErrorMessage)
}

func TestPaymentStatistics(t *testing.T) {
	svc, db, node := setupPaymentService(t)
	ctx := context.Background()
	userID := seedPaymentUser(t, db, node, 800005)

	_, err := svc.ProcessStarsPayment(ctx, paymentdomain.StarsPayment{
		UserID:                  userID,
		TotalAmount:             100,
		TelegramPaymentChargeID: "stars-charge-3",
	})
	require.NoError(t, err)

	stats, err := svc.GetPaymentStatistics(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalTransactions)
	require.Equal(t, int64(1), stats.CompletedTransactions)
	require.Equal(t, float64(100), stats.SuccessRate)
	require.Equal(t, float64(100), stats.RevenueByMethod[paymentdomain.PaymentMethodTelegramStars].TotalAmount)
}
