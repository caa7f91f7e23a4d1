package repository

import (
	"context"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimelineRepository is the append-only store for approval timeline
// events. There is deliberately no update or delete: the timeline is
// the audit source of truth and the sole input for escalation metrics.
type TimelineRepository interface {
	Append(ctx context.Context, event *model.ApprovalTimelineEvent) error
	ListByApproval(ctx context.Context, approvalID uuid.UUID) ([]model.ApprovalTimelineEvent, error)
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]model.ApprovalTimelineEvent, error)
	// CountEscalated counts distinct approvals that ever emitted an
	// ESCALATED event in the window, regardless of their current status.
	CountEscalated(ctx context.Context, from, to *time.Time, approverID *uuid.UUID) (int64, error)
}

type timelineRepository struct {
	db *gorm.DB
}

func NewTimelineRepository(db *gorm.DB) TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) Append(ctx context.Context, event *model.ApprovalTimelineEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *timelineRepository) ListByApproval(ctx context.Context, approvalID uuid.UUID) ([]model.ApprovalTimelineEvent, error) {
	var events []model.ApprovalTimelineEvent
	if err := GetDB(ctx, r.db).
		Preload("User").
		Where("approval_id = ?", approvalID).
		Order("created_at asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *timelineRepository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]model.ApprovalTimelineEvent, error) {
	var events []model.ApprovalTimelineEvent
	if err := GetDB(ctx, r.db).
		Preload("User").
		Where("quotation_id = ?", quotationID).
		Order("created_at asc").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *timelineRepository) CountEscalated(ctx context.Context, from, to *time.Time, approverID *uuid.UUID) (int64, error) {
	query := GetDB(ctx, r.db).
		Model(&model.ApprovalTimelineEvent{}).
		Where("event_type = ?", approval.EventEscalated)

	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	if approverID != nil {
		query = query.Where("approval_id IN (?)",
			GetDB(ctx, r.db).Model(&model.DiscountApproval{}).Select("id").Where("approver_id = ?", *approverID))
	}

	var count int64
	if err := query.Distinct("approval_id").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
