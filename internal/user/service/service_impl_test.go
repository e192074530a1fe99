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
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	creditrepo "github.com/swapforge/swapforge/internal/credit/repository"
	userdomain "github.com/swapforge/swapforge/internal/user/domain"
	userrepo "github.com/swapforge/swapforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserService(t *testing.T) (userdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	prepareUserSchema(t, db)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Pricing:    config.NewStaticPricingHolder(config.DefaultPricingConfig()),
		Repo:       userrepo.Provide(),
		CreditRepo: creditrepo.Provide(),
	})
	return svc, db, fake
}

func prepareUserSchema(t *testing.T, db *gorm.DB) {
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
}

func TestGetOrCreateUserGrantsWelcomeCredit(t *testing.T) {
	svc, db, _ := setupUserService(t)
	ctx := context.Background()

	account, created, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555001,
		Username:       "first",
	})
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, userdomain.UserStatusActive, account.Status)
	require.Equal(t, "en", account.LanguageCode)

	var lot creditdomain.CreditLot
	require.NoError(t, db.Raw(
		`SELECT * FROM credits WHERE user_id = ?`, account.ID,
	).Scan(&lot).Error)
	require.Equal(t, creditdomain.CreditTypeFree, lot.CreditType)
	require.Equal(t, creditdomain.CreditSourceRegistration, lot.Source)
	require.Equal(t, "welcome_bonus", lot.SourceReference)
	require.Equal(t, int64(1), lot.Balance)

	var earned int64
	require.NoError(t, db.Raw(
		`SELECT total_credits_earned FROM users WHERE id = ?`, account.ID,
	).Scan(&earned).Error)
	require.Equal(t, int64(1), earned)
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	svc, db, fake := setupUserService(t)
	ctx := context.Background()

	first, created, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555002,
	})
	require.NoError(t, err)
	require.True(t, created)

	fake.Advance(time.Hour)

	second, created, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555002,
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.LastActivity.After(first.RegistrationDate))

	var lots int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM credits WHERE user_id = ?`, first.ID,
	).Scan(&lots).Error)
	require.Equal(t, int64(1), lots)
}

func TestGetOrCreateUserRejectsZeroTelegramID(t *testing.T) {
	svc, _, _ := setupUserService(t)

	_, _, err := svc.GetOrCreateUser(context.Background(), userdomain.GetOrCreateUserRequest{})
	require.ErrorIs(t, err, userdomain.ErrInvalidTelegram)
}

func TestAgreeToTerms(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()

	account, _, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555003,
	})
	require.NoError(t, err)

	require.NoError(t, svc.AgreeToTerms(ctx, account.ID))

	reloaded, err := svc.GetUser(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, reloaded.AgreedToTerms)
	require.NotNil(t, reloaded.TermsAgreedAt)

	err = svc.AgreeToTerms(ctx, snowflake.ID(987654321))
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestUserStatusTransitions(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()

	account, _, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555004,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SuspendUser(ctx, account.ID))
	reloaded, err := svc.GetUser(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, userdomain.UserStatusSuspended, reloaded.Status)
	require.False(t, reloaded.IsActive())

	require.NoError(t, svc.BanUser(ctx, account.ID))
	reloaded, err = svc.GetUser(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, userdomain.UserStatusBanned, reloaded.Status)

	require.NoError(t, svc.ReactivateUser(ctx, account.ID))
	reloaded, err = svc.GetUser(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, reloaded.IsActive())

	err = svc.SuspendUser(ctx, snowflake.ID(123456789))
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)
}

func TestGetUserStats(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()

	account, _, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
		TelegramUserID: 555005,
	})
	require.NoError(t, err)

	stats, err := svc.GetUserStats(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, stats.User.ID)
	require.Equal(t, int64(1), stats.CreditBalance)
	require.Equal(t, int64(1), stats.CreditsEarned)
	require.Equal(t, int64(0), stats.CreditsSpent)
}

func TestSearchUsers(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()

	for i, name := range []string{"alpha", "beta", "alphabet"} {
		_, _, err := svc.GetOrCreateUser(ctx, userdomain.GetOrCreateUserRequest{
			TelegramUserID: int64(556000 + i),
			Username:       name,
		})
		require.NoError(t, err)
	}

	matches, err := svc.SearchUsers(ctx, userdomain.SearchFilter{Query: "alpha"})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	count, err := svc.GetUserCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}
