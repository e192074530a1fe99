package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	creditrepo "github.com/swapforge/swapforge/internal/credit/repository"
	creditservice "github.com/swapforge/swapforge/internal/credit/service"
	invitedomain "github.com/swapforge/swapforge/internal/invite/domain"
	inviterepo "github.com/swapforge/swapforge/internal/invite/repository"
	userrepo "github.com/swapforge/swapforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInviteService(t *testing.T) (invitedomain.Service, *gorm.DB, *clock.FakeClock, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	prepareInviteSchema(t, db)

	node, err := snowflake.NewNode(3)
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
		Repo:      inviterepo.Provide(),
		UserRepo:  userrepo.Provide(),
		CreditSvc: creditSvc,
	})
	return svc, db, fake, node
}

func prepareInviteSchema(t *testing.T, db *gorm.DB) {
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

	require.NoError(t, db.Exec(`CREATE TABLE invites (
		id INTEGER PRIMARY KEY,
		inviter_user_id INTEGER NOT NULL,
		invitee_user_id INTEGER,
		invite_code TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		credits_awarded INTEGER NOT NULL DEFAULT 1,
		invited_at DATETIME NOT NULL,
		accepted_at DATETIME,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)
}

func seedInviteUser(t *testing.T, db *gorm.DB, node *snowflake.Node, telegramID int64) snowflake.ID {
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

func creditBalance(t *testing.T, db *gorm.DB, userID snowflake.ID) int64 {
	t.Helper()

	var balance *int64
	require.NoError(t, db.Raw(
		`SELECT SUM(balance) FROM credits WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&balance).Error)
	if balance == nil {
		return 0
	}
	return *balance
}

func TestCreateInviteCodeFormat(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700001)

	code, err := svc.CreateInvite(ctx, inviterID, 0)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), code)

	var sent int64
	require.NoError(t, db.Raw(
		`SELECT total_invites_sent FROM users WHERE id = ?`, inviterID,
	).Scan(&sent).Error)
	require.Equal(t, int64(1), sent)
}

func TestProcessInviteAwardsBothSides(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700002)
	inviteeID := seedInviteUser(t, db, node, 700003)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	result, err := svc.ProcessInvite(ctx, code, inviteeID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, inviterID, result.InviterID)
	require.Equal(t, int64(1), result.CreditsAwarded)

	require.Equal(t, int64(1), creditBalance(t, db, inviterID))
	require.Equal(t, int64(1), creditBalance(t, db, inviteeID))

	var refs []string
	require.NoError(t, db.Raw(
		`SELECT source_reference FROM credits ORDER BY id ASC`,
	).Scan(&refs).Error)
	require.Equal(t, []string{"invite_" + code, "invited_by_" + code}, refs)

	var inviteeRef struct {
		CreditType string
		Source     string
	}
	require.NoError(t, db.Raw(
		`SELECT credit_type, source FROM credits WHERE user_id = ?`, inviteeID,
	).Scan(&inviteeRef).Error)
	require.Equal(t, string(creditdomain.CreditTypeBonus), inviteeRef.CreditType)
	require.Equal(t, string(creditdomain.CreditSourceInvite), inviteeRef.Source)

	var accepted int64
	require.NoError(t, db.Raw(
		`SELECT total_invites_accepted FROM users WHERE id = ?`, inviterID,
	).Scan(&accepted).Error)
	require.Equal(t, int64(1), accepted)
}

func TestProcessInviteIsOneShot(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700004)
	firstID := seedInviteUser(t, db, node, 700005)
	secondID := seedInviteUser(t, db, node, 700006)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	result, err := svc.ProcessInvite(ctx, code, firstID)
	require.NoError(t, err)
	require.True(t, result.Success)

	result, err = svc.ProcessInvite(ctx, code, secondID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Invite already used or expired", result.Reason)

	require.Equal(t, int64(1), creditBalance(t, db, inviterID))
	require.Equal(t, int64(0), creditBalance(t, db, secondID))
}

func TestProcessInviteRejectsSelf(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700007)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	result, err := svc.ProcessInvite(ctx, code, inviterID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Cannot invite yourself", result.Reason)
}

func TestProcessInviteUnknownCode(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviteeID := seedInviteUser(t, db, node, 700008)

	result, err := svc.ProcessInvite(ctx, "NOPECODE", inviteeID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Invalid invite code", result.Reason)

}

func TestProcessInviteExpired(t *testing.T) {
	svc, db, fake, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700009)
	inviteeID := seedInviteUser(t, db, node, 700010)

	code, err := svc.CreateInvite(ctx, inviterID, 1)
	require.NoError(t, err)

	fake.Advance(48 * time.Hour)

	result, err := svc.ProcessInvite(ctx, code, inviteeID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Invite has expired", result.Reason)

	var status string
	require.NoError(t, db.Raw(
		`SELECT status FROM invites WHERE invite_code = ?`, code,
	).Scan(&status).Error)
	require.Equal(t, string(invitedomain.InviteStatusExpired), status)
}

func TestProcessInviteUnknownInvitee(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700011)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	result, err := svc.ProcessInvite(ctx, code, node.Generate())
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Invitee user not found", result.Reason)

}

func TestCancelInviteOnlyByOwner(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700012)
	otherID := seedInviteUser(t, db, node, 700013)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	cancelled, err := svc.CancelInvite(ctx, code, otherID)
	require.NoError(t, err)
	require.False(t, cancelled)

	cancelled, err = svc.CancelInvite(ctx, code, inviterID)
	require.NoError(t, err)
	require.True(t, cancelled)

	cancelled, err = svc.CancelInvite(ctx, code, inviterID)
	require.NoError(t, err)
	require.False(t, cancelled)

}

func TestExpireOldInvites(t *testing.T) {
	svc, db, fake, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700014)

	_, err := svc.CreateInvite(ctx, inviterID, 1)
	require.NoError(t, err)
	_, err = svc.CreateInvite(ctx, inviterID, 30)
	require.NoError(t, err)

	fake.Advance(72 * time.Hour)

	expired, err := svc.ExpireOldInvites(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), expired)

	expired, err = svc.ExpireOldInvites(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(0), expired)

}

func TestUserInviteStats(t *testing.T) {
	svc, db, _, node := setupInviteService(t)
	ctx := context.Background()
	inviterID := seedInviteUser(t, db, node, 700015)
	inviteeID := seedInviteUser(t, db, node, 700016)

	code, err := svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)
	_, err = svc.CreateInvite(ctx, inviterID, 7)
	require.NoError(t, err)

	result, err := svc.ProcessInvite(ctx, code, inviteeID)
	require.NoError(t, err)
	require.True(t, result.Success)

	stats, err := svc.GetUserInviteStats(ctx, inviterID)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalSent)
	require.Equal(t, int64(1), stats.Accepted)
	require.Equal(t, int64(1), stats.Pending)

}
