package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Statistics is the system-wide job summary.
type Statistics struct {
	TotalJobs      int64               `json:"total_jobs"`
	ByStatus       map[JobStatus]int64 `json:"by_status"`
	ByType         map[JobType]int64   `json:"by_type"`
	QueuedJobs     int64               `json:"queued_jobs"`
	ProcessingJobs int64               `json:"processing_jobs"`
}

// Repository persists face-swap jobs. Implementations are stateless; callers
// pass the *gorm.DB (or transaction) the operation should run against.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *FaceSwapJob) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FaceSwapJob, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*FaceSwapJob, error)

	// MarkProcessing transitions QUEUED -> PROCESSING; the status predicate
	// keeps a job from being picked up twice.
	MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, resultPath string, fileSize int64, seconds float64, metadata datatypes.JSONMap, now time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errorMessage string, now time.Time) error
	MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error)

	CountByStatus(ctx context.Context, db *gorm.DB) (map[JobStatus]int64, error)
	CountByType(ctx context.Context, db *gorm.DB) (map[JobType]int64, error)
}
