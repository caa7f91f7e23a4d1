package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/testutil/approvalmock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fixedThresholds struct {
	manager int64
	admin   int64
}

func (f fixedThresholds) CurrentThresholds(ctx context.Context) (approval.Thresholds, error) {
	return approval.Thresholds{
		Manager: decimal.NewFromInt(f.manager),
		Admin:   decimal.NewFromInt(f.admin),
	}, nil
}

type notifierSpy struct {
	events []approval.EventType
}

func (n *notifierSpy) ApprovalEvent(a *model.DiscountApproval, event approval.EventType) {
	n.events = append(n.events, event)
}

type applierSpy struct {
	quotations []uuid.UUID
	discounts  []decimal.Decimal
	err        error
}

func (a *applierSpy) ApplyApprovedDiscount(ctx context.Context, quotationID uuid.UUID, discount decimal.Decimal) error {
	if a.err != nil {
		return a.err
	}
	a.quotations = append(a.quotations, quotationID)
	a.discounts = append(a.discounts, discount)
	return nil
}

type approvalFixture struct {
	svc      *approvalService
	repo     *approvalmock.ApprovalRepo
	timeline *approvalmock.TimelineRepo
	audit    *approvalmock.AuditRepo
	tx       *approvalmock.TxManager
	notifier *notifierSpy
	applier  *applierSpy
}

func newApprovalFixture() *approvalFixture {
	f := &approvalFixture{
		repo:     &approvalmock.ApprovalRepo{},
		timeline: &approvalmock.TimelineRepo{},
		audit:    &approvalmock.AuditRepo{},
		tx:       &approvalmock.TxManager{},
		notifier: &notifierSpy{},
		applier:  &applierSpy{},
	}
	f.svc = &approvalService{
		approvalRepo: f.repo,
		timelineRepo: f.timeline,
		auditRepo:    f.audit,
		txManager:    f.tx,
		thresholds:   fixedThresholds{manager: 10, admin: 25},
		notifier:     f.notifier,
		applier:      f.applier,
		lock:         func(ctx context.Context, quotationID uuid.UUID) error { return nil },
	}
	return f
}

func pendingApproval(level approval.Level) *model.DiscountApproval {
	return &model.DiscountApproval{
		ID:                 uuid.New(),
		QuotationID:        uuid.New(),
		ClientID:           uuid.New(),
		RequestedBy:        uuid.New(),
		Status:             approval.StatusPending,
		RequestDate:        time.Now().Add(-time.Hour),
		DiscountPercentage: decimal.NewFromInt(15),
		Threshold:          decimal.NewFromInt(10),
		ApprovalLevel:      level,
		Reason:             "client demands a better rate",
		Version:            1,
	}
}

func TestRequestApproval_CreatesPendingCycle(t *testing.T) {
	f := newApprovalFixture()

	resp, err := f.svc.RequestApproval(context.Background(), RequestApprovalDTO{
		QuotationID:        uuid.NewString(),
		ClientID:           uuid.NewString(),
		DiscountPercentage: "15",
		Reason:             "matching a competitor offer",
		RequestedBy:        uuid.NewString(),
		RequestedByRole:    "sales",
	})
	if err != nil {
		t.Fatalf("RequestApproval returned error: %v", err)
	}

	if resp.Status != string(approval.StatusPending) {
		t.Errorf("status = %s, want PENDING", resp.Status)
	}
	if resp.ApprovalLevel != string(approval.LevelManager) {
		t.Errorf("level = %s, want MANAGER", resp.ApprovalLevel)
	}
	if resp.Version != 1 {
		t.Errorf("version = %d, want 1", resp.Version)
	}

	if len(f.timeline.Appended) != 1 {
		t.Fatalf("timeline events = %d, want 1", len(f.timeline.Appended))
	}
	ev := f.timeline.Appended[0]
	if ev.EventType != approval.EventRequested {
		t.Errorf("event type = %s, want REQUESTED", ev.EventType)
	}
	if ev.PreviousStatus != nil {
		t.Errorf("first event previous status = %v, want nil", *ev.PreviousStatus)
	}

	if len(f.notifier.events) != 1 || f.notifier.events[0] != approval.EventRequested {
		t.Errorf("notifier events = %v, want [REQUESTED]", f.notifier.events)
	}
	if len(f.audit.Logged) != 1 {
		t.Errorf("audit entries = %d, want 1", len(f.audit.Logged))
	}
}

func TestRequestApproval_ResolvesAdminLevel(t *testing.T) {
	f := newApprovalFixture()

	resp, err := f.svc.RequestApproval(context.Background(), RequestApprovalDTO{
		QuotationID:        uuid.NewString(),
		ClientID:           uuid.NewString(),
		DiscountPercentage: "30",
		Reason:             "strategic account renewal deal",
		RequestedBy:        uuid.NewString(),
		RequestedByRole:    "sales",
	})
	if err != nil {
		t.Fatalf("RequestApproval returned error: %v", err)
	}
	if resp.ApprovalLevel != string(approval.LevelAdmin) {
		t.Errorf("level = %s, want ADMIN", resp.ApprovalLevel)
	}
	if resp.Threshold != "25.00" {
		t.Errorf("threshold = %s, want 25.00", resp.Threshold)
	}
}

func TestRequestApproval_BelowThresholdNeedsNoApproval(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.svc.RequestApproval(context.Background(), RequestApprovalDTO{
		QuotationID:        uuid.NewString(),
		ClientID:           uuid.NewString(),
		DiscountPercentage: "5",
		Reason:             "small goodwill discount here",
		RequestedBy:        uuid.NewString(),
		RequestedByRole:    "sales",
	})

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestRequestApproval_DiscountOutOfRange(t *testing.T) {
	f := newApprovalFixture()

	for _, discount := range []string{"-5", "120"} {
		_, err := f.svc.RequestApproval(context.Background(), RequestApprovalDTO{
			QuotationID:        uuid.NewString(),
			ClientID:           uuid.NewString(),
			DiscountPercentage: discount,
			Reason:             "discount outside the valid range",
			RequestedBy:        uuid.NewString(),
			RequestedByRole:    "sales",
		})

		var verr *approval.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("discount %s: error = %v, want ValidationError", discount, err)
		}
		// The range rule wins over the below-threshold shortcut, so a
		// negative discount is reported as out of range, not as "no
		// approval required".
		if verr.Message != "must be between 0 and 100" {
			t.Errorf("discount %s: message = %q, want the range error", discount, verr.Message)
		}
	}
}

func TestRequestApproval_QuotationAlreadyLocked(t *testing.T) {
	f := newApprovalFixture()
	open := pendingApproval(approval.LevelManager)
	f.repo.FindOpenByQuotationFn = func(ctx context.Context, quotationID uuid.UUID) (*model.DiscountApproval, error) {
		return open, nil
	}

	_, err := f.svc.RequestApproval(context.Background(), RequestApprovalDTO{
		QuotationID:        open.QuotationID.String(),
		ClientID:           open.ClientID.String(),
		DiscountPercentage: "15",
		Reason:             "second request while pending",
		RequestedBy:        uuid.NewString(),
		RequestedByRole:    "sales",
	})

	var lockErr *approval.QuotationLockedError
	if !errors.As(err, &lockErr) {
		t.Fatalf("error = %v, want QuotationLockedError", err)
	}
	if lockErr.ApprovalID != open.ID {
		t.Errorf("locked by = %s, want %s", lockErr.ApprovalID, open.ID)
	}
	if len(f.timeline.Appended) != 0 {
		t.Errorf("timeline events = %d, want 0", len(f.timeline.Appended))
	}
}

func TestApprove_ManagerResolvesManagerLevel(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}
	managerID := uuid.NewString()

	resp, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     managerID,
		UserRole:   "manager",
		Comments:   "within quarterly margin plan",
	})
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	if resp.Status != string(approval.StatusApproved) {
		t.Errorf("status = %s, want APPROVED", resp.Status)
	}
	if resp.ApproverID == nil || *resp.ApproverID != managerID {
		t.Errorf("approver = %v, want %s", resp.ApproverID, managerID)
	}
	if resp.ApprovalDate == nil {
		t.Error("approval date not set")
	}
	if resp.Version != 2 {
		t.Errorf("version = %d, want 2", resp.Version)
	}

	if len(f.timeline.Appended) != 1 {
		t.Fatalf("timeline events = %d, want 1", len(f.timeline.Appended))
	}
	ev := f.timeline.Appended[0]
	if ev.EventType != approval.EventApproved {
		t.Errorf("event type = %s, want APPROVED", ev.EventType)
	}
	if ev.PreviousStatus == nil || *ev.PreviousStatus != approval.StatusPending {
		t.Errorf("previous status = %v, want PENDING", ev.PreviousStatus)
	}
}

func TestApprove_StampsDiscountOnQuotation(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
	})
	if err != nil {
		t.Fatalf("Approve returned error: %v", err)
	}

	if len(f.applier.quotations) != 1 {
		t.Fatalf("discount applied to %d quotations, want 1", len(f.applier.quotations))
	}
	if f.applier.quotations[0] != record.QuotationID {
		t.Errorf("applied to quotation %s, want %s", f.applier.quotations[0], record.QuotationID)
	}
	if !f.applier.discounts[0].Equal(record.DiscountPercentage) {
		t.Errorf("applied discount = %s, want %s", f.applier.discounts[0], record.DiscountPercentage)
	}
}

func TestApprove_DiscountStampFailureSurfaces(t *testing.T) {
	f := newApprovalFixture()
	f.applier.err = errors.New("quotation is gone")
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
	})
	if err == nil {
		t.Fatal("Approve succeeded although the discount could not be applied")
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("notifier fired %v although the discount stamp failed", f.notifier.events)
	}
}

func TestApprove_RequesterRoleForbidden(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "sales",
	})

	var authErr *approval.UnauthorizedError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want UnauthorizedError", err)
	}
}

func TestApprove_ManagerCannotResolveAdminLevel(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelAdmin)
	record.DiscountPercentage = decimal.NewFromInt(30)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
	})

	var authErr *approval.UnauthorizedError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want UnauthorizedError", err)
	}
}

func TestApprove_TerminalStatusRejected(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	record.Status = approval.StatusApproved
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "admin",
	})

	var statusErr *approval.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want InvalidStatusError", err)
	}
	if len(f.timeline.Appended) != 0 {
		t.Errorf("timeline events = %d, want 0 after refused transition", len(f.timeline.Appended))
	}
}

func TestApprove_StaleVersionConflicts(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}
	f.repo.UpdateVersionedFn = func(ctx context.Context, a *model.DiscountApproval, expectedVersion int) error {
		return &approval.ConflictError{ApprovalID: a.ID, Version: expectedVersion}
	}

	_, err := f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
	})

	var conflict *approval.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want ConflictError", err)
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("notifier fired %v on a failed transition", f.notifier.events)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.svc.Reject(context.Background(), RejectApprovalDTO{
		ApprovalID:      uuid.NewString(),
		UserID:          uuid.NewString(),
		UserRole:        "manager",
		RejectionReason: "short",
	})

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestReject_RecordsRejectionDate(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	resp, err := f.svc.Reject(context.Background(), RejectApprovalDTO{
		ApprovalID:      record.ID.String(),
		UserID:          uuid.NewString(),
		UserRole:        "manager",
		RejectionReason: "margin impact is too high",
	})
	if err != nil {
		t.Fatalf("Reject returned error: %v", err)
	}
	if resp.Status != string(approval.StatusRejected) {
		t.Errorf("status = %s, want REJECTED", resp.Status)
	}
	if resp.RejectionDate == nil {
		t.Error("rejection date not set")
	}
	if len(f.applier.quotations) != 0 {
		t.Errorf("rejection stamped a discount onto %v", f.applier.quotations)
	}
}

func TestEscalate_ManagerLevelToAdmin(t *testing.T) {
	f := newApprovalFixture()
	record := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return record, nil
	}

	resp, err := f.svc.Escalate(context.Background(), EscalateApprovalDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
		Reason:     "outside my authority",
	})
	if err != nil {
		t.Fatalf("Escalate returned error: %v", err)
	}
	if resp.Status != string(approval.StatusEscalated) {
		t.Errorf("status = %s, want ESCALATED", resp.Status)
	}
	if !resp.EscalatedToAdmin {
		t.Error("escalated_to_admin not set")
	}

	// An escalated cycle can only be resolved by an admin.
	_, err = f.svc.Approve(context.Background(), ApprovalDecisionDTO{
		ApprovalID: record.ID.String(),
		UserID:     uuid.NewString(),
		UserRole:   "manager",
	})
	var authErr *approval.UnauthorizedError
	if !errors.As(err, &authErr) {
		t.Fatalf("post-escalation manager approve error = %v, want UnauthorizedError", err)
	}
}

func TestResubmit_CreatesLinkedCycle(t *testing.T) {
	f := newApprovalFixture()
	prior := pendingApproval(approval.LevelManager)
	prior.Status = approval.StatusRejected
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		if id == prior.ID {
			return prior, nil
		}
		return nil, context.Canceled
	}
	var created *model.DiscountApproval
	f.repo.CreateFn = func(ctx context.Context, a *model.DiscountApproval) error {
		a.ID = uuid.New()
		created = a
		return nil
	}
	f.repo.FindByIDWithRelationsFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return created, nil
	}

	resp, err := f.svc.Resubmit(context.Background(), ResubmitApprovalDTO{
		ApprovalID:         prior.ID.String(),
		DiscountPercentage: "12",
		Reason:             "reduced discount per feedback",
		ResubmittedBy:      prior.RequestedBy.String(),
		ResubmittedByRole:  "sales",
	})
	if err != nil {
		t.Fatalf("Resubmit returned error: %v", err)
	}

	if resp.ID == prior.ID.String() {
		t.Error("resubmission reused the rejected cycle instead of creating a new one")
	}
	if resp.PriorApprovalID == nil || *resp.PriorApprovalID != prior.ID.String() {
		t.Errorf("prior approval = %v, want %s", resp.PriorApprovalID, prior.ID)
	}
	if resp.Version != 1 {
		t.Errorf("version = %d, want fresh cycle at 1", resp.Version)
	}
	if len(f.timeline.Appended) != 1 || f.timeline.Appended[0].EventType != approval.EventResubmitted {
		t.Errorf("timeline = %+v, want one RESUBMITTED event", f.timeline.Appended)
	}
}

func TestResubmit_DiscountOutOfRange(t *testing.T) {
	f := newApprovalFixture()
	prior := pendingApproval(approval.LevelManager)
	prior.Status = approval.StatusRejected
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return prior, nil
	}

	_, err := f.svc.Resubmit(context.Background(), ResubmitApprovalDTO{
		ApprovalID:         prior.ID.String(),
		DiscountPercentage: "-3",
		Reason:             "rebating below zero percent",
		ResubmittedBy:      prior.RequestedBy.String(),
		ResubmittedByRole:  "sales",
	})

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if verr.Message != "must be between 0 and 100" {
		t.Errorf("message = %q, want the range error", verr.Message)
	}
}

func TestResubmit_OnlyOriginalRequester(t *testing.T) {
	f := newApprovalFixture()
	prior := pendingApproval(approval.LevelManager)
	prior.Status = approval.StatusRejected
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return prior, nil
	}

	_, err := f.svc.Resubmit(context.Background(), ResubmitApprovalDTO{
		ApprovalID:         prior.ID.String(),
		DiscountPercentage: "12",
		Reason:             "resubmitting someone else's request",
		ResubmittedBy:      uuid.NewString(),
		ResubmittedByRole:  "sales",
	})

	var authErr *approval.UnauthorizedError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want UnauthorizedError", err)
	}
}

func TestResubmit_PriorMustBeRejected(t *testing.T) {
	f := newApprovalFixture()
	prior := pendingApproval(approval.LevelManager)
	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		return prior, nil
	}

	_, err := f.svc.Resubmit(context.Background(), ResubmitApprovalDTO{
		ApprovalID:         prior.ID.String(),
		DiscountPercentage: "12",
		Reason:             "still pending, cannot resubmit",
		ResubmittedBy:      prior.RequestedBy.String(),
		ResubmittedByRole:  "sales",
	})

	var statusErr *approval.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want InvalidStatusError", err)
	}
}

func TestBulkApprove_SkipsFailedItems(t *testing.T) {
	f := newApprovalFixture()
	good := pendingApproval(approval.LevelManager)
	bad := pendingApproval(approval.LevelManager)
	bad.Status = approval.StatusRejected

	f.repo.FindByIDFn = func(ctx context.Context, id uuid.UUID) (*model.DiscountApproval, error) {
		switch id {
		case good.ID:
			return good, nil
		case bad.ID:
			return bad, nil
		}
		return nil, context.Canceled
	}

	results, err := f.svc.BulkApprove(context.Background(), BulkApproveDTO{
		ApprovalIDs: []string{good.ID.String(), bad.ID.String()},
		Reason:      "quarter-end batch clearance",
		UserID:      uuid.NewString(),
		UserRole:    "admin",
	})
	if err != nil {
		t.Fatalf("BulkApprove returned error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !results[0].Success {
		t.Errorf("first item failed: %s", results[0].Error)
	}
	if results[1].Success {
		t.Error("terminal item reported success")
	}
	if results[1].Error == "" {
		t.Error("failed item carries no error message")
	}

	// One transaction per item, failures isolated from the rest.
	if f.tx.Calls != 2 {
		t.Errorf("transactions = %d, want 2", f.tx.Calls)
	}
	if good.Status != approval.StatusApproved {
		t.Errorf("good item status = %s, want APPROVED", good.Status)
	}
}

func TestGetTimeline_RequiresAnIdentifier(t *testing.T) {
	f := newApprovalFixture()

	_, err := f.svc.GetTimeline(context.Background(), "", "")

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
