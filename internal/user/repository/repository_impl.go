package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (
			id, telegram_user_id, username, first_name, last_name, language_code,
			is_premium, status, registration_date, last_activity,
			total_credits_earned, total_credits_spent, total_invites_sent, total_invites_accepted,
			agreed_to_terms, terms_agreed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.TelegramUserID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.LanguageCode,
		user.IsPremium,
		string(user.Status),
		user.RegistrationDate,
		user.LastActivity,
		user.TotalCreditsEarned,
		user.TotalCreditsSpent,
		user.TotalInvitesSent,
		user.TotalInvitesAccepted,
		user.AgreedToTerms,
		user.TermsAgreedAt,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM users WHERE id = ?`, id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByTelegramID(ctx context.Context, db *gorm.DB, telegramUserID int64) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM users WHERE telegram_user_id = ?`, telegramUserID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.UserStatus, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SetAgreedToTerms(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET agreed_to_terms = ?, terms_agreed_at = ?, updated_at = ? WHERE id = ?`,
		true, now, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) TouchLastActivity(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE users SET last_activity = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	).Error
}

func (r *repo) IncrementCreditsEarned(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET total_credits_earned = total_credits_earned + ?, updated_at = ? WHERE id = ?`,
		amount, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) IncrementCreditsSpent(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET total_credits_spent = total_credits_spent + ?, updated_at = ? WHERE id = ?`,
		amount, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) IncrementInvitesSent(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET total_invites_sent = total_invites_sent + 1, updated_at = ? WHERE id = ?`,
		now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) IncrementInvitesAccepted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE users SET total_invites_accepted = total_invites_accepted + 1, updated_at = ? WHERE id = ?`,
		now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, filter domain.SearchFilter) ([]*domain.User, error) {
	var users []*domain.User
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := "%" + query + "%"
		stmt = stmt.Where(
			"username LIKE ? OR first_name LIKE ? OR last_name LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", string(filter.Status))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM users`).Scan(&count).Error
	return count, err
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.UserStatus]int64, error) {
	rows := []struct {
		Status string
		Total  int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM users GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.UserStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.UserStatus(row.Status)] = row.Total
	}
	return counts, nil
}
