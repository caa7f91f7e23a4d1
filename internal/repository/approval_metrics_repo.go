package repository

import (
	"context"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MetricsFilter bounds metric aggregation by request date and,
// optionally, the acting approver.
type MetricsFilter struct {
	From       *time.Time
	To         *time.Time
	ApproverID *uuid.UUID
}

// ApprovalMetricsRepository runs the read-only aggregates behind the
// approval dashboard. All reads go against the root DB (a single
// snapshot per query is enough for dashboard consistency).
type ApprovalMetricsRepository interface {
	CountByStatus(ctx context.Context, status approval.Status, filter MetricsFilter) (int64, error)
	// AverageApprovalSeconds returns the mean approval turnaround for
	// approved cycles in range, or nil when none were approved.
	AverageApprovalSeconds(ctx context.Context, filter MetricsFilter) (*float64, error)
	AverageDiscount(ctx context.Context, filter MetricsFilter) (decimal.Decimal, error)
}

type approvalMetricsRepository struct {
	db *gorm.DB
}

func NewApprovalMetricsRepository(db *gorm.DB) ApprovalMetricsRepository {
	return &approvalMetricsRepository{db: db}
}

func (r *approvalMetricsRepository) scoped(ctx context.Context, filter MetricsFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&model.DiscountApproval{})
	if filter.From != nil {
		query = query.Where("request_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("request_date <= ?", *filter.To)
	}
	if filter.ApproverID != nil {
		query = query.Where("approver_id = ?", *filter.ApproverID)
	}
	return query
}

func (r *approvalMetricsRepository) CountByStatus(ctx context.Context, status approval.Status, filter MetricsFilter) (int64, error) {
	var count int64
	if err := r.scoped(ctx, filter).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s approvals: %w", status, err)
	}
	return count, nil
}

func (r *approvalMetricsRepository) AverageApprovalSeconds(ctx context.Context, filter MetricsFilter) (*float64, error) {
	var result struct {
		Avg *float64
	}
	err := r.scoped(ctx, filter).
		Select("AVG(EXTRACT(EPOCH FROM (approval_date - request_date))) as avg").
		Where("status = ? AND approval_date IS NOT NULL", approval.StatusApproved).
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute average approval time: %w", err)
	}
	return result.Avg, nil
}

func (r *approvalMetricsRepository) AverageDiscount(ctx context.Context, filter MetricsFilter) (decimal.Decimal, error) {
	var result struct {
		Value string
	}
	err := r.scoped(ctx, filter).
		Select("COALESCE(CAST(AVG(discount_percentage) AS TEXT), '0') as value").
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute average discount: %w", err)
	}

	avg, err := decimal.NewFromString(result.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse average discount %q: %w", result.Value, err)
	}
	return avg, nil
}
