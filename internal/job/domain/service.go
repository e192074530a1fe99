package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrJobNotFound    = errors.New("job_not_found")
	ErrInvalidJobType = errors.New("invalid_job_type")
)

// CreateJobRequest queues a new face-swap job.
type CreateJobRequest struct {
	UserID            snowflake.ID `json:"user_id"`
	JobType           JobType      `json:"job_type"`
	SourceFilePath    string       `json:"source_file_path"`
	TargetFilePath    string       `json:"target_file_path"`
	TelegramMessageID *int64       `json:"telegram_message_id,omitempty"`
}

// ProcessResult is the business outcome of a settlement attempt. A failed
// job is reported here, not as a Go error.
type ProcessResult struct {
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	ResultFilePath string `json:"result_file_path,omitempty"`
	Refunded       bool   `json:"refunded,omitempty"`
}

// Service coordinates job settlement: debit, engine dispatch, and the
// COMPLETED/FAILED outcome with refund-on-failure.
type Service interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*FaceSwapJob, error)

	// ProcessJob runs the full settlement for a queued job. Any failure
	// after the debit refunds exactly the job's CreditsConsumed, once.
	ProcessJob(ctx context.Context, jobID snowflake.ID) (*ProcessResult, error)

	// CancelJob cancels a job that has not started. Only QUEUED jobs can be
	// cancelled; no credits move.
	CancelJob(ctx context.Context, jobID snowflake.ID) (bool, error)

	GetJob(ctx context.Context, jobID snowflake.ID) (*FaceSwapJob, error)
	GetUserJobs(ctx context.Context, userID snowflake.ID, limit int) ([]*FaceSwapJob, error)
	GetJobStatistics(ctx context.Context) (*Statistics, error)
}
