package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/invite/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invite *domain.Invite) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invites (
			id, inviter_user_id, invitee_user_id, invite_code, status,
			credits_awarded, invited_at, accepted_at, expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.ID,
		invite.InviterUserID,
		invite.InviteeUserID,
		invite.InviteCode,
		string(invite.Status),
		invite.CreditsAwarded,
		invite.InvitedAt,
		invite.AcceptedAt,
		invite.ExpiresAt,
		invite.CreatedAt,
		invite.UpdatedAt,
	).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Invite, error) {
	var invite domain.Invite
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM invites WHERE invite_code = ?`, code,
	).Scan(&invite).Error
	if err != nil {
		return nil, err
	}
	if invite.ID == 0 {
		return nil, nil
	}
	return &invite, nil
}

func (r *repo) FindByInviter(ctx context.Context, db *gorm.DB, inviterUserID snowflake.ID, status domain.InviteStatus) ([]*domain.Invite, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invite{}).
		Where("inviter_user_id = ?", inviterUserID)
	if status != "" {
		stmt = stmt.Where("status = ?", string(status))
	}
	var invites []*domain.Invite
	if err := stmt.Order("created_at desc, id desc").Find(&invites).Error; err != nil {
		return nil, err
	}
	return invites, nil
}

func (r *repo) MarkAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, inviteeUserID snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invites SET invitee_user_id = ?, status = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		inviteeUserID, string(domain.InviteStatusAccepted), now, now,
		id, string(domain.InviteStatusPending),
	)
	return result.RowsAffected, result.Error
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invites SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(domain.InviteStatusExpired), now, id, string(domain.InviteStatusPending),
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ExpirePending(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE invites SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at < ?`,
		string(domain.InviteStatusExpired), now, string(domain.InviteStatusPending), now,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.InviteStatus]int64, error) {
	rows := []struct {
		Status string
		Total  int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM invites GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.InviteStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.InviteStatus(row.Status)] = row.Total
	}
	return counts, nil
}

func (r *repo) TopInviters(ctx context.Context, db *gorm.DB, limit int) ([]domain.TopInviter, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := []struct {
		TelegramUserID int64
		FirstName      string
		Username       string
		InviteCount    int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT u.telegram_user_id, u.first_name, u.username, COUNT(i.id) AS invite_count
		 FROM users u
		 JOIN invites i ON i.inviter_user_id = u.id
		 WHERE i.status = ?
		 GROUP BY u.id, u.telegram_user_id, u.first_name, u.username
		 ORDER BY COUNT(i.id) DESC
		 LIMIT ?`,
		string(domain.InviteStatusAccepted), limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	inviters := make([]domain.TopInviter, 0, len(rows))
	for _, row := range rows {
		name := row.FirstName
		if name == "" {
			name = row.Username
		}
		if name == "" {
			name = "Unknown"
		}
		inviters = append(inviters, domain.TopInviter{
			TelegramUserID: row.TelegramUserID,
			Name:           name,
			InviteCount:    row.InviteCount,
		})
	}
	return inviters, nil
}

func (r *repo) CountByInviterAndStatus(ctx context.Context, db *gorm.DB, inviterUserID snowflake.ID) (map[domain.InviteStatus]int64, error) {
	rows := []struct {
		Status string
		Total  int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM invites WHERE inviter_user_id = ? GROUP BY status`,
		inviterUserID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.InviteStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.InviteStatus(row.Status)] = row.Total
	}
	return counts, nil
}
