// Package approvalmock provides function-backed mocks for the approval
// workflow's repository interfaces. Only methods tests need are wired;
// unset methods return gorm.ErrRecordNotFound or no-op.
package approvalmock

import (
	"context"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApprovalRepo satisfies repository.ApprovalRepository. The default
// Create remembers inserted records so lookups by id work without
// wiring FindByIDFn.
type ApprovalRepo struct {
	CreateFn                func(ctx context.Context, a *model.DiscountApproval) error
	FindByIDFn              func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error)
	FindByIDWithRelationsFn func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error)
	FindOpenByQuotationFn   func(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error)
	ListFn                  func(ctx context.Context, filter repository.ApprovalFilter) ([]model.DiscountApproval, int64, error)
	UpdateVersionedFn       func(ctx context.Context, a *model.DiscountApproval, expectedVersion int) error

	Created []*model.DiscountApproval
}

func (m *ApprovalRepo) Create(ctx context.Context, a *model.DiscountApproval) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.Created = append(m.Created, a)
	return nil
}

func (m *ApprovalRepo) lookup(id uuid.UUID) (*model.DiscountApproval, error) {
	for _, a := range m.Created {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *ApprovalRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return m.lookup(id)
}

func (m *ApprovalRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
	if m.FindByIDWithRelationsFn != nil {
		return m.FindByIDWithRelationsFn(ctx, id)
	}
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return m.lookup(id)
}

func (m *ApprovalRepo) FindOpenByQuotation(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error) {
	if m.FindOpenByQuotationFn != nil {
		return m.FindOpenByQuotationFn(ctx, quotationID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *ApprovalRepo) List(ctx context.Context, filter repository.ApprovalFilter) ([]model.DiscountApproval, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *ApprovalRepo) UpdateVersioned(ctx context.Context, a *model.DiscountApproval, expectedVersion int) error {
	if m.UpdateVersionedFn != nil {
		return m.UpdateVersionedFn(ctx, a, expectedVersion)
	}
	a.Version = expectedVersion + 1
	return nil
}

// TimelineRepo satisfies repository.TimelineRepository and records
// every appended event for assertions.
type TimelineRepo struct {
	AppendFn          func(ctx context.Context, event *model.ApprovalTimelineEvent) error
	ListByApprovalFn  func(ctx context.Context, approvalID uuid.UUID) ([]model.ApprovalTimelineEvent, error)
	ListByQuotationFn func(ctx context.Context, quotationID uuid.UUID) ([]model.ApprovalTimelineEvent, error)
	CountEscalatedFn  func(ctx context.Context, from, to *time.Time, approverID *uuid.UUID) (int64, error)

	Appended []model.ApprovalTimelineEvent
}

func (m *TimelineRepo) Append(ctx context.Context, event *model.ApprovalTimelineEvent) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, event)
	}
	m.Appended = append(m.Appended, *event)
	return nil
}

func (m *TimelineRepo) ListByApproval(ctx context.Context, approvalID uuid.UUID) ([]model.ApprovalTimelineEvent, error) {
	if m.ListByApprovalFn != nil {
		return m.ListByApprovalFn(ctx, approvalID)
	}
	return m.Appended, nil
}

func (m *TimelineRepo) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]model.ApprovalTimelineEvent, error) {
	if m.ListByQuotationFn != nil {
		return m.ListByQuotationFn(ctx, quotationID)
	}
	return m.Appended, nil
}

func (m *TimelineRepo) CountEscalated(ctx context.Context, from, to *time.Time, approverID *uuid.UUID) (int64, error) {
	if m.CountEscalatedFn != nil {
		return m.CountEscalatedFn(ctx, from, to, approverID)
	}
	return 0, nil
}

// AuditRepo satisfies repository.AuditRepository.
type AuditRepo struct {
	LogFn func(ctx context.Context, entry *model.AuditLog) error

	Logged []model.AuditLog
}

func (m *AuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if m.LogFn != nil {
		return m.LogFn(ctx, entry)
	}
	m.Logged = append(m.Logged, *entry)
	return nil
}

func (m *AuditRepo) List(ctx context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	return m.Logged, int64(len(m.Logged)), nil
}

// MetricsRepo satisfies repository.ApprovalMetricsRepository.
type MetricsRepo struct {
	CountByStatusFn          func(ctx context.Context, status approval.Status, filter repository.MetricsFilter) (int64, error)
	AverageApprovalSecondsFn func(ctx context.Context, filter repository.MetricsFilter) (*float64, error)
	AverageDiscountFn        func(ctx context.Context, filter repository.MetricsFilter) (decimal.Decimal, error)
}

func (m *MetricsRepo) CountByStatus(ctx context.Context, status approval.Status, filter repository.MetricsFilter) (int64, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx, status, filter)
	}
	return 0, nil
}

func (m *MetricsRepo) AverageApprovalSeconds(ctx context.Context, filter repository.MetricsFilter) (*float64, error) {
	if m.AverageApprovalSecondsFn != nil {
		return m.AverageApprovalSecondsFn(ctx, filter)
	}
	return nil, nil
}

func (m *MetricsRepo) AverageDiscount(ctx context.Context, filter repository.MetricsFilter) (decimal.Decimal, error) {
	if m.AverageDiscountFn != nil {
		return m.AverageDiscountFn(ctx, filter)
	}
	return decimal.Zero, nil
}

// TxManager satisfies repository.TransactionManager by running the
// callback on the caller's context. Tests assert transactional grouping
// through the repo mocks, not through a real database.
type TxManager struct {
	RunInTxFn func(ctx context.Context, fn func(txCtx context.Context) error) error

	Calls int
}

func (m *TxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.Calls++
	if m.RunInTxFn != nil {
		return m.RunInTxFn(ctx, fn)
	}
	return fn(ctx)
}
