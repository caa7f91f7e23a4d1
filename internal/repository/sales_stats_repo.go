package repository

import (
	"context"
	"fmt"
	"time"

	"crm-backend/internal/model"

	"gorm.io/gorm"
)

// ClientRanking is a row in the top-clients aggregate.
type ClientRanking struct {
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	AcceptedCount int    `json:"accepted_count"`
	AcceptedValue string `json:"accepted_value"`
}

type SalesStatsRepository interface {
	// GetQuotationStatistics sums accepted totals and counts quotations
	// in status over the range. Value comes back as a decimal string.
	GetQuotationStatistics(ctx context.Context, status string, start, end time.Time) (value string, count int, err error)
	GetTopClients(ctx context.Context, start, end time.Time, limit int) ([]ClientRanking, error)
	GetPaymentsTotal(ctx context.Context, start, end time.Time) (string, error)
}

type salesStatsRepository struct {
	db *gorm.DB
}

func NewSalesStatsRepository(db *gorm.DB) SalesStatsRepository {
	return &salesStatsRepository{db: db}
}

func (r *salesStatsRepository) GetQuotationStatistics(ctx context.Context, status string, start, end time.Time) (string, int, error) {
	var result struct {
		Value string
		Count int
	}
	err := r.db.WithContext(ctx).Model(&model.Quotation{}).
		Select("COALESCE(CAST(SUM(total_amount) AS TEXT), '0') as value, COUNT(*) as count").
		Where("status = ? AND created_at >= ? AND created_at <= ?", status, start, end).
		Scan(&result).Error
	if err != nil {
		return "", 0, fmt.Errorf("failed to query quotation statistics: %w", err)
	}
	return result.Value, result.Count, nil
}

func (r *salesStatsRepository) GetTopClients(ctx context.Context, start, end time.Time, limit int) ([]ClientRanking, error) {
	var rankings []ClientRanking
	if err := r.db.WithContext(ctx).Table("quotations").
		Select("clients.id as client_id, clients.name as client_name, COUNT(quotations.id) as accepted_count, CAST(SUM(quotations.total_amount) AS TEXT) as accepted_value").
		Joins("JOIN clients ON clients.id = quotations.client_id").
		Where("quotations.status = ? AND quotations.created_at >= ? AND quotations.created_at <= ? AND quotations.deleted_at IS NULL",
			model.QuotationStatusAccepted, start, end).
		Group("clients.id, clients.name").
		Order("SUM(quotations.total_amount) DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top clients: %w", err)
	}
	return rankings, nil
}

func (r *salesStatsRepository) GetPaymentsTotal(ctx context.Context, start, end time.Time) (string, error) {
	var result struct {
		Value string
	}
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') as value").
		Where("status = ? AND paid_at >= ? AND paid_at <= ?", model.PaymentStatusCompleted, start, end).
		Scan(&result).Error
	if err != nil {
		return "", fmt.Errorf("failed to query payments total: %w", err)
	}
	return result.Value, nil
}
