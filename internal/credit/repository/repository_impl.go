package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/credit/domain"
	"github.com/swapforge/swapforge/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, lot *domain.CreditLot) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO credits (
			id, user_id, credit_type, amount, balance, source, source_reference,
			expires_at, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lot.ID,
		lot.UserID,
		string(lot.CreditType),
		lot.Amount,
		lot.Balance,
		string(lot.Source),
		lot.SourceReference,
		lot.ExpiresAt,
		lot.IsActive,
		lot.CreatedAt,
		lot.UpdatedAt,
	).Error
}

func (r *repo) FindActiveLots(ctx context.Context, tx *gorm.DB, userID snowflake.ID, forUpdate bool) ([]*domain.CreditLot, error) {
	query := `SELECT * FROM credits
		WHERE user_id = ? AND is_active = ? AND balance > 0
		ORDER BY created_at ASC, id ASC`
	if forUpdate {
		query += db.RowLockClause(tx)
	}
	var lots []*domain.CreditLot
	if err := tx.WithContext(ctx).Raw(query, userID, true).Scan(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repo) UpdateBalance(ctx context.Context, tx *gorm.DB, id snowflake.ID, balance int64, isActive bool, now time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE credits SET balance = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		balance, isActive, now, id,
	).Error
}

func (r *repo) SumActiveBalance(ctx context.Context, tx *gorm.DB, userID snowflake.ID) (int64, error) {
	var balance *int64
	err := tx.WithContext(ctx).Raw(
		`SELECT SUM(balance) FROM credits WHERE user_id = ? AND is_active = ?`,
		userID, true,
	).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return *balance, nil
}

func (r *repo) ExpireLots(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	result := tx.WithContext(ctx).Exec(
		`UPDATE credits SET is_active = ?, updated_at = ?
		 WHERE is_active = ? AND expires_at IS NOT NULL AND expires_at < ?`,
		false, now, true, now,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) FindByUser(ctx context.Context, tx *gorm.DB, userID snowflake.ID, activeOnly bool) ([]*domain.CreditLot, error) {
	stmt := tx.WithContext(ctx).
		Model(&domain.CreditLot{}).
		Where("user_id = ?", userID)
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	var lots []*domain.CreditLot
	if err := stmt.Order("created_at asc, id asc").Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repo) FindHistory(ctx context.Context, tx *gorm.DB, userID snowflake.ID, limit, offset int) ([]*domain.CreditLot, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var lots []*domain.CreditLot
	err := tx.WithContext(ctx).
		Model(&domain.CreditLot{}).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repo) FindExpiring(ctx context.Context, tx *gorm.DB, from, until time.Time) ([]*domain.CreditLot, error) {
	var lots []*domain.CreditLot
	err := tx.WithContext(ctx).Raw(
		`SELECT * FROM credits
		 WHERE is_active = ? AND balance > 0
		   AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?
		 ORDER BY expires_at ASC, id ASC`,
		true, from, until,
	).Scan(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *repo) Statistics(ctx context.Context, tx *gorm.DB) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		ByType:   make(map[domain.CreditType]domain.TypeBreakdown),
		BySource: make(map[domain.CreditSource]int64),
	}

	var issued *int64
	if err := tx.WithContext(ctx).Raw(`SELECT SUM(amount) FROM credits`).Scan(&issued).Error; err != nil {
		return nil, err
	}
	if issued != nil {
		stats.TotalIssued = *issued
	}

	var active *int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT SUM(balance) FROM credits WHERE is_active = ?`, true,
	).Scan(&active).Error; err != nil {
		return nil, err
	}
	if active != nil {
		stats.TotalActive = *active
	}
	stats.TotalConsumed = stats.TotalIssued - stats.TotalActive

	typeRows := []struct {
		CreditType string
		Total      int64
		Remaining  int64
	}{}
	if err := tx.WithContext(ctx).Raw(
		`SELECT credit_type, SUM(amount) AS total, SUM(balance) AS remaining
		 FROM credits WHERE is_active = ? GROUP BY credit_type`,
		true,
	).Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	for _, row := range typeRows {
		stats.ByType[domain.CreditType(row.CreditType)] = domain.TypeBreakdown{
			Total:     row.Total,
			Remaining: row.Remaining,
		}
	}

	sourceRows := []struct {
		Source string
		Total  int64
	}{}
	if err := tx.WithContext(ctx).Raw(
		`SELECT source, SUM(amount) AS total FROM credits GROUP BY source`,
	).Scan(&sourceRows).Error; err != nil {
		return nil, err
	}
	for _, row := range sourceRows {
		stats.BySource[domain.CreditSource(row.Source)] = row.Total
	}

	return stats, nil
}
