package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// JobType selects the processing pipeline and its timeout.
type JobType string

const (
	JobTypeImage JobType = "IMAGE"
	JobTypeVideo JobType = "VIDEO"
)

// JobStatus is the lifecycle state of a face-swap job.
//
// QUEUED -> PROCESSING -> COMPLETED | FAILED
// QUEUED -> CANCELLED
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// FaceSwapJob is one unit of paid work. CreditsConsumed is fixed at creation
// and is exactly the amount refunded when the job fails after the debit.
type FaceSwapJob struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID                snowflake.ID      `gorm:"not null;index" json:"user_id"`
	JobType               JobType           `gorm:"type:text;not null" json:"job_type"`
	Status                JobStatus         `gorm:"type:text;not null;default:QUEUED;index" json:"status"`
	CreditsConsumed       int64             `gorm:"not null;default:1" json:"credits_consumed"`
	SourceFilePath        string            `gorm:"type:text" json:"source_file_path"`
	TargetFilePath        string            `gorm:"type:text" json:"target_file_path"`
	ResultFilePath        string            `gorm:"type:text" json:"result_file_path,omitempty"`
	FileSizeBytes         int64             `json:"file_size_bytes,omitempty"`
	ProcessingTimeSeconds float64           `json:"processing_time_seconds,omitempty"`
	ErrorMessage          string            `gorm:"type:text" json:"error_message,omitempty"`
	ProcessingMetadata    datatypes.JSONMap `gorm:"type:json" json:"processing_metadata,omitempty"`
	TelegramMessageID     *int64            `json:"telegram_message_id,omitempty"`
	StartedAt             *time.Time        `json:"started_at,omitempty"`
	CompletedAt           *time.Time        `json:"completed_at,omitempty"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FaceSwapJob) TableName() string { return "face_swap_jobs" }
