package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/job/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.FaceSwapJob) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO face_swap_jobs (
			id, user_id, job_type, status, credits_consumed,
			source_file_path, target_file_path, result_file_path,
			file_size_bytes, processing_time_seconds, error_message,
			processing_metadata, telegram_message_id, started_at, completed_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.UserID,
		string(job.JobType),
		string(job.Status),
		job.CreditsConsumed,
		job.SourceFilePath,
		job.TargetFilePath,
		job.ResultFilePath,
		job.FileSizeBytes,
		job.ProcessingTimeSeconds,
		job.ErrorMessage,
		job.ProcessingMetadata,
		job.TelegramMessageID,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FaceSwapJob, error) {
	var job domain.FaceSwapJob
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM face_swap_jobs WHERE id = ?`, id,
	).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.FaceSwapJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var jobs []*domain.FaceSwapJob
	err := db.WithContext(ctx).
		Model(&domain.FaceSwapJob{}).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) MarkProcessing(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE face_swap_jobs SET status = ?, started_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.JobStatusProcessing), now, now,
		id, string(domain.JobStatusQueued),
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, resultPath string, fileSize int64, seconds float64, metadata datatypes.JSONMap, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE face_swap_jobs SET
			status = ?, result_file_path = ?, file_size_bytes = ?,
			processing_time_seconds = ?, processing_metadata = ?,
			completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.JobStatusCompleted), resultPath, fileSize,
		seconds, metadata, now, now, id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errorMessage string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE face_swap_jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(domain.JobStatusFailed), errorMessage, now, now, id,
	).Error
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE face_swap_jobs SET status = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(domain.JobStatusCancelled), now, now,
		id, string(domain.JobStatusQueued),
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.JobStatus]int64, error) {
	rows := []struct {
		Status string
		Total  int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM face_swap_jobs GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.JobStatus(row.Status)] = row.Total
	}
	return counts, nil
}

func (r *repo) CountByType(ctx context.Context, db *gorm.DB) (map[domain.JobType]int64, error) {
	rows := []struct {
		JobType string
		Total   int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT job_type, COUNT(*) AS total FROM face_swap_jobs GROUP BY job_type`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.JobType]int64, len(rows))
	for _, row := range rows {
		counts[domain.JobType(row.JobType)] = row.Total
	}
	return counts, nil
}
