package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, transaction *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, user_id, transaction_type, payment_method, amount_local, currency_code,
			credits_purchased, external_transaction_id, gateway_response, status,
			error_message, processed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transaction.ID,
		transaction.UserID,
		string(transaction.TransactionType),
		string(transaction.PaymentMethod),
		transaction.AmountLocal,
		transaction.CurrencyCode,
		transaction.CreditsPurchased,
		transaction.ExternalTransactionID,
		transaction.GatewayResponse,
		string(transaction.Status),
		transaction.ErrorMessage,
		transaction.ProcessedAt,
		transaction.CreatedAt,
		transaction.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions WHERE id = ?`, id,
	).Scan(&transaction).Error
	if err != nil {
		return nil, err
	}
	if transaction.ID == 0 {
		return nil, nil
	}
	return &transaction, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Transaction, error) {
	var transaction domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM transactions WHERE external_transaction_id = ?`, externalID,
	).Scan(&transaction).Error
	if err != nil {
		return nil, err
	}
	if transaction.ID == 0 {
		return nil, nil
	}
	return &transaction, nil
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var transactions []*domain.Transaction
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ?, processed_at = ?, updated_at = ? WHERE id = ?`,
		string(domain.TransactionStatusCompleted), now, now, id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, errorMessage string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ?, error_message = ?, processed_at = ?, updated_at = ? WHERE id = ?`,
		string(domain.TransactionStatusFailed), errorMessage, now, now, id,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.TransactionStatus]int64, error) {
	rows := []struct {
		Status string
		Total  int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM transactions GROUP BY status`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.TransactionStatus]int64, len(rows))
	for _, row := range rows {
		counts[domain.TransactionStatus(row.Status)] = row.Total
	}
	return counts, nil
}

func (r *repo) RevenueByMethod(ctx context.Context, db *gorm.DB) (map[domain.PaymentMethod]domain.MethodRevenue, error) {
	rows := []struct {
		PaymentMethod    string
		TotalAmount      float64
		TransactionCount int64
	}{}
	err := db.WithContext(ctx).Raw(
		`SELECT payment_method, SUM(amount_local) AS total_amount, COUNT(id) AS transaction_count
		 FROM transactions WHERE status = ? GROUP BY payment_method`,
		string(domain.TransactionStatusCompleted),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	revenue := make(map[domain.PaymentMethod]domain.MethodRevenue, len(rows))
	for _, row := range rows {
		revenue[domain.PaymentMethod(row.PaymentMethod)] = domain.MethodRevenue{
			TotalAmount:      row.TotalAmount,
			TransactionCount: row.TransactionCount,
		}
	}
	return revenue, nil
}
