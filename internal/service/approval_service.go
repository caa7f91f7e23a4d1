package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type RequestApprovalDTO struct {
	QuotationID        string `json:"quotation_id" binding:"required"`
	ClientID           string `json:"client_id" binding:"required"`
	DiscountPercentage string `json:"discount_percentage" binding:"required"` // decimal string, e.g. "17.5"
	Reason             string `json:"reason" binding:"required,min=10,max=2000"`
	Comments           string `json:"comments" binding:"max=5000"`
	RequestedBy        string `json:"-"`
	RequestedByRole    string `json:"-"`
}

type ApprovalDecisionDTO struct {
	ApprovalID string `json:"-"`
	UserID     string `json:"-"`
	UserRole   string `json:"-"`
	Comments   string `json:"comments" binding:"max=5000"`
}

type RejectApprovalDTO struct {
	ApprovalID      string `json:"-"`
	UserID          string `json:"-"`
	UserRole        string `json:"-"`
	RejectionReason string `json:"rejection_reason" binding:"required,min=10,max=2000"`
	Comments        string `json:"comments" binding:"max=5000"`
}

type EscalateApprovalDTO struct {
	ApprovalID string `json:"-"`
	UserID     string `json:"-"`
	UserRole   string `json:"-"`
	Reason     string `json:"reason"`
}

type ResubmitApprovalDTO struct {
	ApprovalID         string `json:"-"` // the rejected cycle being resubmitted
	DiscountPercentage string `json:"discount_percentage" binding:"required"`
	Reason             string `json:"reason" binding:"required,min=10,max=2000"`
	Comments           string `json:"comments" binding:"max=5000"`
	ResubmittedBy      string `json:"-"`
	ResubmittedByRole  string `json:"-"`
}

type BulkApproveDTO struct {
	ApprovalIDs []string `json:"approval_ids" binding:"required,min=1"`
	Reason      string   `json:"reason" binding:"required,min=10,max=2000"`
	Comments    string   `json:"comments" binding:"max=5000"`
	UserID      string   `json:"-"`
	UserRole    string   `json:"-"`
}

// BulkApproveResult reports one item of a bulk operation. Items are
// evaluated independently: a failed item is skipped and reported, it
// never rolls back the others.
type BulkApproveResult struct {
	ApprovalID string `json:"approval_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type ApprovalListFilter struct {
	Status      string
	QuotationID string
	ApproverID  string
	Page        int
	Limit       int
}

type ApprovalResponse struct {
	ID                 string  `json:"id"`
	QuotationID        string  `json:"quotation_id"`
	ClientID           string  `json:"client_id"`
	Status             string  `json:"status"`
	ApprovalLevel      string  `json:"approval_level"`
	DiscountPercentage string  `json:"discount_percentage"`
	Threshold          string  `json:"threshold"`
	Reason             string  `json:"reason"`
	Comments           string  `json:"comments,omitempty"`
	RequestedBy        string  `json:"requested_by"`
	RequesterName      string  `json:"requester_name,omitempty"`
	ApproverID         *string `json:"approver_id"`
	ApproverName       string  `json:"approver_name,omitempty"`
	RequestDate        string  `json:"request_date"`
	ApprovalDate       *string `json:"approval_date"`
	RejectionDate      *string `json:"rejection_date"`
	EscalatedToAdmin   bool    `json:"escalated_to_admin"`
	PriorApprovalID    *string `json:"prior_approval_id"`
	Version            int     `json:"version"`
}

type TimelineEventResponse struct {
	ID             string  `json:"id"`
	ApprovalID     string  `json:"approval_id"`
	QuotationID    string  `json:"quotation_id"`
	EventType      string  `json:"event_type"`
	Status         string  `json:"status"`
	PreviousStatus *string `json:"previous_status"`
	UserID         string  `json:"user_id"`
	Username       string  `json:"username,omitempty"`
	UserRole       string  `json:"user_role"`
	Reason         string  `json:"reason,omitempty"`
	Comments       string  `json:"comments,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

// --- Collaborator interfaces ---

// ThresholdSource yields the currently configured discount boundaries.
type ThresholdSource interface {
	CurrentThresholds(ctx context.Context) (approval.Thresholds, error)
}

// ApprovalNotifier is invoked after a transition has committed. It must
// not fail the workflow; implementations log and move on.
type ApprovalNotifier interface {
	ApprovalEvent(a *model.DiscountApproval, event approval.EventType)
}

// DiscountApplier stamps an approved discount percentage onto its
// quotation and recomputes the totals. The quotation service implements
// it; the indirection keeps the workflow free of quotation internals.
type DiscountApplier interface {
	ApplyApprovedDiscount(ctx context.Context, quotationID uuid.UUID, discount decimal.Decimal) error
}

// --- Interface ---

type ApprovalService interface {
	RequestApproval(ctx context.Context, req RequestApprovalDTO) (ApprovalResponse, error)
	Approve(ctx context.Context, req ApprovalDecisionDTO) (ApprovalResponse, error)
	Reject(ctx context.Context, req RejectApprovalDTO) (ApprovalResponse, error)
	Escalate(ctx context.Context, req EscalateApprovalDTO) (ApprovalResponse, error)
	Resubmit(ctx context.Context, req ResubmitApprovalDTO) (ApprovalResponse, error)
	BulkApprove(ctx context.Context, req BulkApproveDTO) ([]BulkApproveResult, error)
	ListApprovals(ctx context.Context, filter ApprovalListFilter) ([]ApprovalResponse, int64, error)
	GetTimeline(ctx context.Context, approvalID, quotationID string) ([]TimelineEventResponse, error)
	// IsQuotationLocked reports whether the quotation has an open
	// approval. Callers that go on to mutate the quotation must invoke
	// it inside a transaction that has taken the quotation advisory
	// lock, otherwise the answer can go stale before their write lands.
	IsQuotationLocked(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error)
}

type approvalService struct {
	db           *gorm.DB
	approvalRepo repository.ApprovalRepository
	timelineRepo repository.TimelineRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	thresholds   ThresholdSource
	notifier     ApprovalNotifier
	applier      DiscountApplier

	// lock takes the per-quotation advisory lock. Held as a field so the
	// workflow can be exercised against mock repositories.
	lock func(ctx context.Context, quotationID uuid.UUID) error
}

func NewApprovalService(
	db *gorm.DB,
	approvalRepo repository.ApprovalRepository,
	timelineRepo repository.TimelineRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	thresholds ThresholdSource,
	notifier ApprovalNotifier,
	applier DiscountApplier,
) ApprovalService {
	return &approvalService{
		db:           db,
		approvalRepo: approvalRepo,
		timelineRepo: timelineRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		thresholds:   thresholds,
		notifier:     notifier,
		applier:      applier,
		lock: func(ctx context.Context, quotationID uuid.UUID) error {
			return repository.LockQuotation(ctx, db, quotationID)
		},
	}
}

// --- Implementation ---

func (s *approvalService) RequestApproval(ctx context.Context, req RequestApprovalDTO) (ApprovalResponse, error) {
	quotationID, err := uuid.Parse(req.QuotationID)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "quotation_id", Message: "not a valid uuid"}
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "client_id", Message: "not a valid uuid"}
	}
	requestedBy, err := uuid.Parse(req.RequestedBy)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "requested_by", Message: "not a valid uuid"}
	}
	role, err := approval.ParseRole(req.RequestedByRole)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "role", Message: err.Error()}
	}

	discount, err := decimal.NewFromString(req.DiscountPercentage)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "discount_percentage", Message: "not a valid decimal"}
	}
	// Range before threshold: a negative discount must fail as out of
	// range, not as "below the manager threshold".
	if err := approval.ValidateDiscount(discount); err != nil {
		return ApprovalResponse{}, err
	}
	if err := approval.ValidateReason(req.Reason); err != nil {
		return ApprovalResponse{}, err
	}
	if err := approval.ValidateComments(req.Comments); err != nil {
		return ApprovalResponse{}, err
	}

	thresholds, err := s.thresholds.CurrentThresholds(ctx)
	if err != nil {
		return ApprovalResponse{}, fmt.Errorf("failed to load approval thresholds: %w", err)
	}
	if !approval.RequiresApproval(discount, thresholds) {
		return ApprovalResponse{}, &approval.ValidationError{
			Field:   "discount_percentage",
			Message: "does not exceed the manager threshold; no approval required",
		}
	}
	level, boundary, err := approval.ResolveLevel(discount, thresholds)
	if err != nil {
		return ApprovalResponse{}, err
	}

	now := time.Now()
	record := &model.DiscountApproval{
		QuotationID:        quotationID,
		ClientID:           clientID,
		RequestedBy:        requestedBy,
		Status:             approval.StatusPending,
		RequestDate:        now,
		DiscountPercentage: discount,
		Threshold:          boundary,
		ApprovalLevel:      level,
		Reason:             req.Reason,
		Comments:           req.Comments,
		Version:            1,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.createCycle(txCtx, record, nil, role, model.ActionRequestApproval, approval.EventRequested)
	})
	if err != nil {
		return ApprovalResponse{}, err
	}

	s.notifier.ApprovalEvent(record, approval.EventRequested)
	return s.reload(ctx, record.ID)
}

func (s *approvalService) Approve(ctx context.Context, req ApprovalDecisionDTO) (ApprovalResponse, error) {
	return s.act(ctx, actInput{
		approvalID: req.ApprovalID,
		userID:     req.UserID,
		userRole:   req.UserRole,
		action:     approval.ActionApprove,
		comments:   req.Comments,
	})
}

func (s *approvalService) Reject(ctx context.Context, req RejectApprovalDTO) (ApprovalResponse, error) {
	if err := approval.ValidateReason(req.RejectionReason); err != nil {
		return ApprovalResponse{}, err
	}
	return s.act(ctx, actInput{
		approvalID: req.ApprovalID,
		userID:     req.UserID,
		userRole:   req.UserRole,
		action:     approval.ActionReject,
		reason:     req.RejectionReason,
		comments:   req.Comments,
	})
}

func (s *approvalService) Escalate(ctx context.Context, req EscalateApprovalDTO) (ApprovalResponse, error) {
	return s.act(ctx, actInput{
		approvalID: req.ApprovalID,
		userID:     req.UserID,
		userRole:   req.UserRole,
		action:     approval.ActionEscalate,
		reason:     req.Reason,
	})
}

type actInput struct {
	approvalID string
	userID     string
	userRole   string
	action     approval.Action
	reason     string
	comments   string
}

// act runs one Approve/Reject/Escalate transition: state-machine and
// role checks against the loaded record, a version-guarded write, and
// the timeline append, all inside one transaction.
func (s *approvalService) act(ctx context.Context, in actInput) (ApprovalResponse, error) {
	approvalID, err := uuid.Parse(in.approvalID)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "approval_id", Message: "not a valid uuid"}
	}
	userID, err := uuid.Parse(in.userID)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "user_id", Message: "not a valid uuid"}
	}
	role, err := approval.ParseRole(in.userRole)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "role", Message: err.Error()}
	}
	if err := approval.ValidateComments(in.comments); err != nil {
		return ApprovalResponse{}, err
	}

	var record *model.DiscountApproval
	var event approval.EventType

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, err = s.approvalRepo.FindByID(txCtx, approvalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.NotFoundError{ApprovalID: approvalID}
			}
			return fmt.Errorf("failed to load approval: %w", err)
		}

		previous := record.Status
		readVersion := record.Version

		next, err := approval.Transition(record.ID, userID, record.Status, in.action, record.ApprovalLevel, role)
		if err != nil {
			return err
		}

		now := time.Now()
		record.Status = next
		switch in.action {
		case approval.ActionApprove:
			record.ApproverID = &userID
			record.ApprovalDate = &now
		case approval.ActionReject:
			record.ApproverID = &userID
			record.RejectionDate = &now
		case approval.ActionEscalate:
			record.EscalatedToAdmin = true
		}
		if in.comments != "" {
			record.Comments = in.comments
		}

		if err := s.approvalRepo.UpdateVersioned(txCtx, record, readVersion); err != nil {
			return err
		}

		event = approval.EventForAction(in.action)
		if err := s.timelineRepo.Append(txCtx, &model.ApprovalTimelineEvent{
			ApprovalID:     record.ID,
			QuotationID:    record.QuotationID,
			EventType:      event,
			Status:         record.Status,
			PreviousStatus: &previous,
			UserID:         userID,
			UserRole:       role,
			Reason:         in.reason,
			Comments:       in.comments,
			CreatedAt:      now,
		}); err != nil {
			return fmt.Errorf("failed to append timeline event: %w", err)
		}

		return s.writeAudit(txCtx, userID, auditActionFor(in.action), record, in.reason)
	})
	if err != nil {
		return ApprovalResponse{}, err
	}

	// Post-commit: the approved percentage lands on the quotation in its
	// own transaction, after the cycle itself is durably APPROVED.
	if record.Status == approval.StatusApproved {
		if err := s.applier.ApplyApprovedDiscount(ctx, record.QuotationID, record.DiscountPercentage); err != nil {
			return ApprovalResponse{}, fmt.Errorf("failed to apply approved discount to quotation %s: %w", record.QuotationID, err)
		}
	}

	s.notifier.ApprovalEvent(record, event)
	return s.reload(ctx, record.ID)
}

func (s *approvalService) Resubmit(ctx context.Context, req ResubmitApprovalDTO) (ApprovalResponse, error) {
	priorID, err := uuid.Parse(req.ApprovalID)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "approval_id", Message: "not a valid uuid"}
	}
	userID, err := uuid.Parse(req.ResubmittedBy)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "resubmitted_by", Message: "not a valid uuid"}
	}
	role, err := approval.ParseRole(req.ResubmittedByRole)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "role", Message: err.Error()}
	}

	discount, err := decimal.NewFromString(req.DiscountPercentage)
	if err != nil {
		return ApprovalResponse{}, &approval.ValidationError{Field: "discount_percentage", Message: "not a valid decimal"}
	}
	if err := approval.ValidateDiscount(discount); err != nil {
		return ApprovalResponse{}, err
	}
	if err := approval.ValidateReason(req.Reason); err != nil {
		return ApprovalResponse{}, err
	}
	if err := approval.ValidateComments(req.Comments); err != nil {
		return ApprovalResponse{}, err
	}

	thresholds, err := s.thresholds.CurrentThresholds(ctx)
	if err != nil {
		return ApprovalResponse{}, fmt.Errorf("failed to load approval thresholds: %w", err)
	}
	if !approval.RequiresApproval(discount, thresholds) {
		return ApprovalResponse{}, &approval.ValidationError{
			Field:   "discount_percentage",
			Message: "does not exceed the manager threshold; no approval required",
		}
	}
	// The resubmitted discount may differ from the rejected one, so the
	// level is resolved from scratch.
	level, boundary, err := approval.ResolveLevel(discount, thresholds)
	if err != nil {
		return ApprovalResponse{}, err
	}

	var record *model.DiscountApproval

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		prior, err := s.approvalRepo.FindByID(txCtx, priorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.NotFoundError{ApprovalID: priorID}
			}
			return fmt.Errorf("failed to load prior approval: %w", err)
		}

		if prior.Status != approval.StatusRejected {
			return &approval.InvalidStatusError{Current: prior.Status, Action: approval.ActionResubmit}
		}
		if prior.RequestedBy != userID {
			return &approval.UnauthorizedError{ApprovalID: prior.ID, UserID: userID, Action: approval.ActionResubmit}
		}

		record = &model.DiscountApproval{
			QuotationID:        prior.QuotationID,
			ClientID:           prior.ClientID,
			RequestedBy:        userID,
			Status:             approval.StatusPending,
			RequestDate:        time.Now(),
			DiscountPercentage: discount,
			Threshold:          boundary,
			ApprovalLevel:      level,
			Reason:             req.Reason,
			Comments:           req.Comments,
			PriorApprovalID:    &prior.ID,
			Version:            1,
		}

		return s.createCycle(txCtx, record, &prior.ID, role, model.ActionResubmitApproval, approval.EventResubmitted)
	})
	if err != nil {
		return ApprovalResponse{}, err
	}

	s.notifier.ApprovalEvent(record, approval.EventResubmitted)
	return s.reload(ctx, record.ID)
}

// createCycle inserts a new approval cycle under the quotation advisory
// lock, enforcing the one-open-approval invariant, and writes the
// cycle's first timeline event plus the audit row. Must run inside a
// transaction context.
func (s *approvalService) createCycle(txCtx context.Context, record *model.DiscountApproval, priorID *uuid.UUID, role approval.Role, auditAction string, event approval.EventType) error {
	// Serializes concurrent requests for the same quotation: without
	// this, two transactions could both see "no open approval" and both
	// insert one.
	if err := s.lock(txCtx, record.QuotationID); err != nil {
		return fmt.Errorf("failed to lock quotation: %w", err)
	}

	open, err := s.approvalRepo.FindOpenByQuotation(txCtx, record.QuotationID)
	if err == nil {
		return &approval.QuotationLockedError{QuotationID: record.QuotationID, ApprovalID: open.ID}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for open approval: %w", err)
	}

	if err := s.approvalRepo.Create(txCtx, record); err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}

	if err := s.timelineRepo.Append(txCtx, &model.ApprovalTimelineEvent{
		ApprovalID:  record.ID,
		QuotationID: record.QuotationID,
		EventType:   event,
		Status:      record.Status,
		UserID:      record.RequestedBy,
		UserRole:    role,
		Reason:      record.Reason,
		Comments:    record.Comments,
		CreatedAt:   record.RequestDate,
	}); err != nil {
		return fmt.Errorf("failed to append timeline event: %w", err)
	}

	reason := record.Reason
	if priorID != nil {
		reason = fmt.Sprintf("resubmission of %s: %s", priorID, record.Reason)
	}
	return s.writeAudit(txCtx, record.RequestedBy, auditAction, record, reason)
}

func (s *approvalService) BulkApprove(ctx context.Context, req BulkApproveDTO) ([]BulkApproveResult, error) {
	if len(req.ApprovalIDs) == 0 {
		return nil, &approval.ValidationError{Field: "approval_ids", Message: "must not be empty"}
	}
	if err := approval.ValidateReason(req.Reason); err != nil {
		return nil, err
	}

	// Each item runs in its own transaction: one stale or already
	// resolved approval must not roll back the rest of the batch.
	results := make([]BulkApproveResult, 0, len(req.ApprovalIDs))
	for _, id := range req.ApprovalIDs {
		_, err := s.act(ctx, actInput{
			approvalID: id,
			userID:     req.UserID,
			userRole:   req.UserRole,
			action:     approval.ActionApprove,
			reason:     req.Reason,
			comments:   req.Comments,
		})
		result := BulkApproveResult{ApprovalID: id, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *approvalService) ListApprovals(ctx context.Context, filter ApprovalListFilter) ([]ApprovalResponse, int64, error) {
	repoFilter := repository.ApprovalFilter{
		Status: approval.Status(filter.Status),
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}
	if filter.QuotationID != "" {
		id, err := uuid.Parse(filter.QuotationID)
		if err != nil {
			return nil, 0, &approval.ValidationError{Field: "quotation_id", Message: "not a valid uuid"}
		}
		repoFilter.QuotationID = &id
	}
	if filter.ApproverID != "" {
		id, err := uuid.Parse(filter.ApproverID)
		if err != nil {
			return nil, 0, &approval.ValidationError{Field: "approver_id", Message: "not a valid uuid"}
		}
		repoFilter.ApproverID = &id
	}

	approvals, total, err := s.approvalRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approvals: %w", err)
	}

	responses := make([]ApprovalResponse, 0, len(approvals))
	for i := range approvals {
		responses = append(responses, toApprovalResponse(&approvals[i]))
	}
	return responses, total, nil
}

func (s *approvalService) GetTimeline(ctx context.Context, approvalID, quotationID string) ([]TimelineEventResponse, error) {
	var events []model.ApprovalTimelineEvent
	var err error

	switch {
	case approvalID != "":
		id, parseErr := uuid.Parse(approvalID)
		if parseErr != nil {
			return nil, &approval.ValidationError{Field: "approval_id", Message: "not a valid uuid"}
		}
		events, err = s.timelineRepo.ListByApproval(ctx, id)
	case quotationID != "":
		id, parseErr := uuid.Parse(quotationID)
		if parseErr != nil {
			return nil, &approval.ValidationError{Field: "quotation_id", Message: "not a valid uuid"}
		}
		events, err = s.timelineRepo.ListByQuotation(ctx, id)
	default:
		return nil, &approval.ValidationError{Field: "approval_id", Message: "either approval_id or quotation_id is required"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}

	responses := make([]TimelineEventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, toTimelineResponse(&events[i]))
	}
	return responses, nil
}

func (s *approvalService) IsQuotationLocked(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error) {
	open, err := s.approvalRepo.FindOpenByQuotation(ctx, quotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check quotation lock: %w", err)
	}
	return open, nil
}

// --- Helpers ---

func (s *approvalService) reload(ctx context.Context, id uuid.UUID) (ApprovalResponse, error) {
	record, err := s.approvalRepo.FindByIDWithRelations(ctx, id)
	if err != nil {
		return ApprovalResponse{}, fmt.Errorf("failed to reload approval: %w", err)
	}
	return toApprovalResponse(record), nil
}

func (s *approvalService) writeAudit(txCtx context.Context, userID uuid.UUID, action string, record *model.DiscountApproval, reason string) error {
	details, _ := json.Marshal(map[string]interface{}{
		"quotation_id": record.QuotationID.String(),
		"discount":     record.DiscountPercentage.StringFixed(2),
		"level":        string(record.ApprovalLevel),
		"status":       string(record.Status),
		"reason":       reason,
	})
	entry := &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   record.ID.String(),
		EntityName: "discount approval",
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func auditActionFor(action approval.Action) string {
	switch action {
	case approval.ActionApprove:
		return model.ActionApproveDiscount
	case approval.ActionReject:
		return model.ActionRejectDiscount
	case approval.ActionEscalate:
		return model.ActionEscalateApproval
	}
	return model.ActionRequestApproval
}

func toApprovalResponse(a *model.DiscountApproval) ApprovalResponse {
	resp := ApprovalResponse{
		ID:                 a.ID.String(),
		QuotationID:        a.QuotationID.String(),
		ClientID:           a.ClientID.String(),
		Status:             string(a.Status),
		ApprovalLevel:      string(a.ApprovalLevel),
		DiscountPercentage: a.DiscountPercentage.StringFixed(2),
		Threshold:          a.Threshold.StringFixed(2),
		Reason:             a.Reason,
		Comments:           a.Comments,
		RequestedBy:        a.RequestedBy.String(),
		RequestDate:        a.RequestDate.Format(time.RFC3339),
		EscalatedToAdmin:   a.EscalatedToAdmin,
		Version:            a.Version,
	}

	if a.Requester != nil {
		resp.RequesterName = a.Requester.Username
	}
	if a.ApproverID != nil {
		id := a.ApproverID.String()
		resp.ApproverID = &id
	}
	if a.Approver != nil {
		resp.ApproverName = a.Approver.Username
	}
	if a.ApprovalDate != nil {
		t := a.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &t
	}
	if a.RejectionDate != nil {
		t := a.RejectionDate.Format(time.RFC3339)
		resp.RejectionDate = &t
	}
	if a.PriorApprovalID != nil {
		id := a.PriorApprovalID.String()
		resp.PriorApprovalID = &id
	}

	return resp
}

func toTimelineResponse(e *model.ApprovalTimelineEvent) TimelineEventResponse {
	resp := TimelineEventResponse{
		ID:          e.ID.String(),
		ApprovalID:  e.ApprovalID.String(),
		QuotationID: e.QuotationID.String(),
		EventType:   string(e.EventType),
		Status:      string(e.Status),
		UserID:      e.UserID.String(),
		UserRole:    string(e.UserRole),
		Reason:      e.Reason,
		Comments:    e.Comments,
		Timestamp:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.PreviousStatus != nil {
		prev := string(*e.PreviousStatus)
		resp.PreviousStatus = &prev
	}
	if e.User != nil {
		resp.Username = e.User.Username
	}
	return resp
}
