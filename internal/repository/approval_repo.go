package repository

import (
	"context"
	"errors"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalFilter narrows approval listings.
type ApprovalFilter struct {
	Status      approval.Status
	QuotationID *uuid.UUID
	ApproverID  *uuid.UUID
	Page        int
	Limit       int
}

type ApprovalRepository interface {
	Create(ctx context.Context, a *model.DiscountApproval) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error)
	// FindOpenByQuotation returns the PENDING/ESCALATED approval for a
	// quotation if one exists. gorm.ErrRecordNotFound means the quotation
	// is unlocked. Callers that go on to write serialize through the
	// quotation advisory lock, so no row lock is taken here.
	FindOpenByQuotation(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error)
	List(ctx context.Context, filter ApprovalFilter) ([]model.DiscountApproval, int64, error)
	// UpdateVersioned persists the mutated approval only if the stored
	// version still equals expectedVersion, bumping the counter in the
	// same statement. A non-matching version yields ConflictError.
	UpdateVersioned(ctx context.Context, a *model.DiscountApproval, expectedVersion int) error
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, a *model.DiscountApproval) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *approvalRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
	var a model.DiscountApproval
	if err := GetDB(ctx, r.db).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *approvalRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
	var a model.DiscountApproval
	if err := GetDB(ctx, r.db).Preload("Requester").Preload("Approver").First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *approvalRepository) FindOpenByQuotation(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error) {
	var a model.DiscountApproval
	err := GetDB(ctx, r.db).
		Where("quotation_id = ? AND status IN ?", quotationID,
			[]approval.Status{approval.StatusPending, approval.StatusEscalated}).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *approvalRepository) List(ctx context.Context, filter ApprovalFilter) ([]model.DiscountApproval, int64, error) {
	db := GetDB(ctx, r.db)

	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.QuotationID != nil {
			q = q.Where("quotation_id = ?", *filter.QuotationID)
		}
		if filter.ApproverID != nil {
			q = q.Where("approver_id = ?", *filter.ApproverID)
		}
		return q
	}

	var total int64
	if err := apply(db.Model(&model.DiscountApproval{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	var approvals []model.DiscountApproval
	if err := apply(db.Preload("Requester").Preload("Approver")).
		Order("request_date DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&approvals).Error; err != nil {
		return nil, 0, err
	}

	return approvals, total, nil
}

func (r *approvalRepository) UpdateVersioned(ctx context.Context, a *model.DiscountApproval, expectedVersion int) error {
	a.Version = expectedVersion + 1
	a.UpdatedAt = time.Now()

	res := GetDB(ctx, r.db).
		Model(&model.DiscountApproval{}).
		Where("id = ? AND version = ?", a.ID, expectedVersion).
		Select("status", "approver_id", "approval_date", "rejection_date",
			"comments", "escalated_to_admin", "version", "updated_at").
		Updates(a)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Either the row vanished or another writer got there first.
		var current model.DiscountApproval
		if err := GetDB(ctx, r.db).First(&current, "id = ?", a.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.NotFoundError{ApprovalID: a.ID}
			}
			return err
		}
		return &approval.ConflictError{ApprovalID: a.ID, Version: expectedVersion}
	}
	return nil
}
