package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	creditrepo "github.com/swapforge/swapforge/internal/credit/repository"
	creditservice "github.com/swapforge/swapforge/internal/credit/service"
	jobdomain "github.com/swapforge/swapforge/internal/job/domain"
	"github.com/swapforge/swapforge/internal/job/engine"
	jobrepo "github.com/swapforge/swapforge/internal/job/repository"
	userrepo "github.com/swapforge/swapforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type engineStub struct {
	result *jobdomain.SwapResult
	err    error
	panics bool
	calls  int
}

func (e *engineStub) Swap(ctx context.Context, job *jobdomain.FaceSwapJob) (*jobdomain.SwapResult, error) {
	e.calls++
	if e.panics {
		panic("stub blew up")
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func setupJobService(t *testing.T, stub *engineStub) (jobdomain.Service, creditdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	prepareJobSchema(t, db)

	node, err := snowflake.NewNode(5)
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

	registry := engine.NewRegistry()
	registry.Register(jobdomain.JobTypeImage, stub)
	registry.Register(jobdomain.JobTypeVideo, stub)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Pricing:   config.NewStaticPricingHolder(config.DefaultPricingConfig()),
		Repo:      jobrepo.Provide(),
		CreditSvc: creditSvc,
		Registry:  registry,
	})
	return svc, creditSvc, db, node
}

func prepareJobSchema(t *testing.T, db *gorm.DB) {
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

	require.NoError(t, db.Exec(`CREATE TABLE face_swap_jobs (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'QUEUED',
		credits_consumed INTEGER NOT NULL DEFAULT 1,
		source_file_path TEXT,
		target_file_path TEXT,
		result_file_path TEXT,
		file_size_bytes INTEGER,
		processing_time_seconds REAL,
		error_message TEXT,
		processing_metadata TEXT,
		telegram_message_id INTEGER,
		started_at DATETIME,
		completed_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error)
}

func seedJobUser(t *testing.T, db *gorm.DB, node *snowflake.Node, telegramID int64, credits int64) snowflake.ID {
	t.Helper()

	id := node.Generate()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Exec(
		`INSERT INTO users (id, telegram_user_id, status, registration_date, last_activity, created_at, updated_at)
		 VALUES (?, ?, 'ACTIVE', ?, ?, ?, ?)`,
		id, telegramID, now, now, now, now,
	).Error)
	if credits > 0 {
		require.NoError(t, db.Exec(
			`INSERT INTO credits (id, user_id, credit_type, amount, balance, source, source_reference, is_active, created_at, updated_at)
			 VALUES (?, ?, 'PURCHASED', ?, ?, 'PURCHASE', 'seed', 1, ?, ?)`,
			node.Generate(), id, credits, credits, now, now,
		).Error)
	}
	return id
}

func jobStatus(t *testing.T, db *gorm.DB, jobID snowflake.ID) string {
	t.Helper()

	var status string
	require.NoError(t, db.Raw(
		`SELECT status FROM face_swap_jobs WHERE id = ?`, jobID,
	).Scan(&status).Error)
	return status
}

func TestProcessJobSuccess(t *testing.T) {
	stub := &engineStub{result: &jobdomain.SwapResult{
		OutputPath:    "outputs/swap.png",
		FileSizeBytes: 2048,
		Metadata:      map[string]any{"engine": "stub"},
	}}
	svc, creditSvc, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900001, 3)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:         userID,
		JobType:        jobdomain.JobTypeImage,
		SourceFilePath: "uploads/face.jpg",
		TargetFilePath: "uploads/target.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, jobdomain.JobStatusQueued, job.Status)
	require.Equal(t, int64(1), job.CreditsConsumed)

	result, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, "outputs/swap.png", result.ResultFilePath)
	require.Equal(t, 1, stub.calls)

	require.Equal(t, string(jobdomain.JobStatusCompleted), jobStatus(t, db, job.ID))

	balance, err := creditSvc.GetActiveCreditBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), balance)
}

func TestProcessJobEngineFailureRefunds(t *testing.T) {
	stub := &engineStub{err: errors.New("face swap processing timed out")}
	svc, creditSvc, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900002, 2)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobTypeVideo,
	})
	require.NoError(t, err)

	result, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.True(t, result.Refunded)
	require.Equal(t, "face swap processing timed out", result.Error)

	require.Equal(t, string(jobdomain.JobStatusFailed), jobStatus(t, db, job.ID))

	balance, err := creditSvc.GetActiveCreditBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), balance)

	var refund struct {
		CreditType string
		Source     string
		Amount     int64
	}
	require.NoError(t, db.Raw(
		`SELECT credit_type, source, amount FROM credits WHERE user_id = ? AND source = 'REFUND'`, userID,
	).Scan(&refund).Error)
	require.Equal(t, string(creditdomain.CreditTypeBonus), refund.CreditType)
	require.Equal(t, int64(1), refund.Amount)
}

func TestProcessJobEnginePanicRefunds(t *testing.T) {
	stub := &engineStub{panics: true}
	svc, creditSvc, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900003, 1)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobTypeImage,
	})
	require.NoError(t, err)

	result, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.True(t, result.Refunded)
	require.Contains(t, result.Error, "engine panic")

	balance, err := creditSvc.GetActiveCreditBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(1), balance)
}

func TestProcessJobInsufficientCreditsNoRefund(t *testing.T) {
	stub := &engineStub{}
	svc, creditSvc, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900004, 0)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobTypeImage,
	})
	require.NoError(t, err)

	result, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, result.Success)
	require.False(t, result.Refunded)
	require.Equal(t, "Insufficient credits. Available: 0, Required: 1", result.Error)
	require.Equal(t, 0, stub.calls)

	require.Equal(t, string(jobdomain.JobStatusFailed), jobStatus(t, db, job.ID))

	balance, err := creditSvc.GetActiveCreditBalance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(0), balance)
}

func TestProcessJobIsOneShot(t *testing.T) {
	stub := &engineStub{result: &jobdomain.SwapResult{OutputPath: "outputs/x.png"}}
	svc, _, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900005, 5)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobTypeImage,
	})
	require.NoError(t, err)

	first, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Equal(t, "Job is not queued", second.Error)
	require.Equal(t, 1, stub.calls)
}

func TestCancelJobOnlyWhenQueued(t *testing.T) {
	stub := &engineStub{result: &jobdomain.SwapResult{OutputPath: "outputs/y.png"}}
	svc, _, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900006, 5)

	job, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobTypeImage,
	})
	require.NoError(t, err)

	cancelled, err := svc.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, cancelled)
	require.Equal(t, string(jobdomain.JobStatusCancelled), jobStatus(t, db, job.ID))

	cancelled, err = svc.CancelJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, cancelled)

	processed, err := svc.ProcessJob(ctx, job.ID)
	require.NoError(t, err)
	require.False(t, processed.Success)
	require.Equal(t, "Job is not queued", processed.Error)

	_, err = svc.CancelJob(ctx, node.Generate())
	require.ErrorIs(t, err, jobdomain.ErrJobNotFound)
}

func TestCreateJobRejectsUnknownType(t *testing.T) {
	stub := &engineStub{}
	svc, _, db, node := setupJobService(t, stub)
	ctx := context.Background()
	userID := seedJobUser(t, db, node, 900007, 1)

	_, err := svc.CreateJob(ctx, jobdomain.CreateJobRequest{
		UserID:  userID,
		JobType: jobdomain.JobType("GIF"),
	})
	require.ErrorIs(t, err, jobdomain.ErrInvalidJobType)
}
