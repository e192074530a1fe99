package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	creditdomain "github.com/swapforge/swapforge/internal/credit/domain"
	jobdomain "github.com/swapforge/swapforge/internal/job/domain"
	"github.com/swapforge/swapforge/internal/job/engine"
	obsmetrics "github.com/swapforge/swapforge/internal/observability/metrics"
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
	Repo       jobdomain.Repository
	CreditSvc  creditdomain.Service
	Registry   *engine.Registry
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricing    *config.PricingHolder
	repo       jobdomain.Repository
	creditSvc  creditdomain.Service
	registry   *engine.Registry
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) jobdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("job.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		pricing:    p.Pricing,
		repo:       p.Repo,
		creditSvc:  p.CreditSvc,
		registry:   p.Registry,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateJob(ctx context.Context, req jobdomain.CreateJobRequest) (*jobdomain.FaceSwapJob, error) {
	if req.UserID == 0 {
		return nil, creditdomain.ErrInvalidUser
	}
	if req.JobType != jobdomain.JobTypeImage && req.JobType != jobdomain.JobTypeVideo {
		return nil, jobdomain.ErrInvalidJobType
	}

	now := s.clock.Now().UTC()
	job := &jobdomain.FaceSwapJob{
		ID:                s.genID.Generate(),
		UserID:            req.UserID,
		JobType:           req.JobType,
		Status:            jobdomain.JobStatusQueued,
		CreditsConsumed:   int64(s.pricing.Get().JobCostCredits),
		SourceFilePath:    req.SourceFilePath,
		TargetFilePath:    req.TargetFilePath,
		TelegramMessageID: req.TelegramMessageID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Insert(ctx, s.db, job); err != nil {
		return nil, err
	}

	s.log.Info("job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.String("job_type", string(req.JobType)),
	)
	return job, nil
}

// ProcessJob settles one queued job end to end. Failures before the debit
// leave the balance untouched; failures after it refund exactly the job's
// CreditsConsumed as a fresh lot, exactly once.
func (s *Service) ProcessJob(ctx context.Context, jobID snowflake.ID) (*jobdomain.ProcessResult, error) {
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobdomain.ErrJobNotFound
	}

	startedAt := s.clock.Now().UTC()
	rows, err := s.repo.MarkProcessing(ctx, s.db, job.ID, startedAt)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return &jobdomain.ProcessResult{Success: false, Error: "Job is not queued"}, nil
	}

	validation, err := s.creditSvc.ValidateCreditTransaction(ctx, job.UserID, job.CreditsConsumed)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return s.fail(ctx, job, validation.Reason, false)
	}

	consumed, err := s.creditSvc.ConsumeCredits(ctx, job.UserID, job.CreditsConsumed)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return s.fail(ctx, job, "Failed to consume credits", false)
	}

	result, swapErr := s.dispatch(ctx, job)
	completedAt := s.clock.Now().UTC()
	if swapErr != nil {
		return s.fail(ctx, job, swapErr.Error(), true)
	}

	seconds := completedAt.Sub(startedAt).Seconds()
	if err := s.repo.MarkCompleted(ctx, s.db, job.ID, result.OutputPath, result.FileSizeBytes, seconds, datatypes.JSONMap(result.Metadata), completedAt); err != nil {
		return nil, err
	}

	s.log.Info("job completed",
		zap.String("job_id", job.ID.String()),
		zap.String("result_file_path", result.OutputPath),
		zap.Float64("processing_seconds", seconds),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordJobSettled(ctx, string(job.JobType), string(jobdomain.JobStatusCompleted))
	}
	return &jobdomain.ProcessResult{Success: true, ResultFilePath: result.OutputPath}, nil
}

// dispatch bounds the engine run with the per-type timeout and converts an
// engine panic into a failure so the refund path still runs.
func (s *Service) dispatch(ctx context.Context, job *jobdomain.FaceSwapJob) (result *jobdomain.SwapResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()

	eng, err := s.registry.Engine(job.JobType)
	if err != nil {
		return nil, fmt.Errorf("unsupported job type %s", job.JobType)
	}

	pricing := s.pricing.Get()
	timeout := pricing.ImageTimeout
	if job.JobType == jobdomain.JobTypeVideo {
		timeout = pricing.VideoTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return eng.Swap(runCtx, job)
}

func (s *Service) fail(ctx context.Context, job *jobdomain.FaceSwapJob, reason string, refund bool) (*jobdomain.ProcessResult, error) {
	now := s.clock.Now().UTC()
	if err := s.repo.MarkFailed(ctx, s.db, job.ID, reason, now); err != nil {
		return nil, err
	}

	refunded := false
	if refund {
		if _, err := s.creditSvc.RefundCredits(ctx, job.UserID, job.CreditsConsumed,
			fmt.Sprintf("Job %s failed: %s", job.ID, reason)); err != nil {
			s.log.Error("refund after failed job did not apply",
				zap.String("job_id", job.ID.String()),
				zap.String("user_id", job.UserID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		refunded = true
	}

	s.log.Warn("job failed",
		zap.String("job_id", job.ID.String()),
		zap.String("reason", reason),
		zap.Bool("refunded", refunded),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordJobSettled(ctx, string(job.JobType), string(jobdomain.JobStatusFailed))
	}
	return &jobdomain.ProcessResult{Success: false, Error: reason, Refunded: refunded}, nil
}

func (s *Service) CancelJob(ctx context.Context, jobID snowflake.ID) (bool, error) {
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, jobdomain.ErrJobNotFound
	}

	rows, err := s.repo.MarkCancelled(ctx, s.db, jobID, s.clock.Now().UTC())
	if err != nil {
		return false, err
	}
	if rows > 0 {
		s.log.Info("job cancelled", zap.String("job_id", jobID.String()))
		if s.obsMetrics != nil {
			s.obsMetrics.RecordJobSettled(ctx, string(job.JobType), string(jobdomain.JobStatusCancelled))
		}
	}
	return rows > 0, nil
}

func (s *Service) GetJob(ctx context.Context, jobID snowflake.ID) (*jobdomain.FaceSwapJob, error) {
	job, err := s.repo.FindByID(ctx, s.db, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobdomain.ErrJobNotFound
	}
	return job, nil
}

func (s *Service) GetUserJobs(ctx context.Context, userID snowflake.ID, limit int) ([]*jobdomain.FaceSwapJob, error) {
	return s.repo.FindByUser(ctx, s.db, userID, limit)
}

func (s *Service) GetJobStatistics(ctx context.Context) (*jobdomain.Statistics, error) {
	byStatus, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.CountByType(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats := &jobdomain.Statistics{
		ByStatus:       byStatus,
		ByType:         byType,
		QueuedJobs:     byStatus[jobdomain.JobStatusQueued],
		ProcessingJobs: byStatus[jobdomain.JobStatusProcessing],
	}
	for _, count := range byStatus {
		stats.TotalJobs += count
	}
	return stats, nil
}
