package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/repository"
	"crm-backend/internal/testutil/approvalmock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestMetrics_ComputesRejectionRate(t *testing.T) {
	metricsRepo := &approvalmock.MetricsRepo{
		CountByStatusFn: func(ctx context.Context, status approval.Status, filter repository.MetricsFilter) (int64, error) {
			switch status {
			case approval.StatusApproved:
				return 4, nil
			case approval.StatusRejected:
				return 2, nil
			case approval.StatusPending:
				return 7, nil
			}
			return 0, nil
		},
		AverageApprovalSecondsFn: func(ctx context.Context, filter repository.MetricsFilter) (*float64, error) {
			seconds := 5400.0
			return &seconds, nil
		},
		AverageDiscountFn: func(ctx context.Context, filter repository.MetricsFilter) (decimal.Decimal, error) {
			return decimal.RequireFromString("17.345"), nil
		},
	}

	svc := NewApprovalMetricsService(metricsRepo, &approvalmock.TimelineRepo{})

	resp, err := svc.Metrics(context.Background(), ApprovalMetricsFilter{})
	if err != nil {
		t.Fatalf("Metrics returned error: %v", err)
	}

	// 2 rejected out of 6 resolved.
	if resp.RejectionRate != "33.33" {
		t.Errorf("rejection rate = %s, want 33.33", resp.RejectionRate)
	}
	if resp.AverageApprovalHours == nil || *resp.AverageApprovalHours != 1.5 {
		t.Errorf("average hours = %v, want 1.5", resp.AverageApprovalHours)
	}
	if resp.AverageDiscountPercentage != "17.35" {
		t.Errorf("average discount = %s, want 17.35", resp.AverageDiscountPercentage)
	}
	if resp.PendingCount != 7 {
		t.Errorf("pending = %d, want 7", resp.PendingCount)
	}
}

func TestMetrics_NoResolvedCycles(t *testing.T) {
	svc := NewApprovalMetricsService(&approvalmock.MetricsRepo{}, &approvalmock.TimelineRepo{})

	resp, err := svc.Metrics(context.Background(), ApprovalMetricsFilter{})
	if err != nil {
		t.Fatalf("Metrics returned error: %v", err)
	}

	if resp.RejectionRate != "0.00" {
		t.Errorf("rejection rate = %s, want 0.00 with zero denominator", resp.RejectionRate)
	}
	if resp.AverageApprovalHours != nil {
		t.Errorf("average hours = %v, want nil when nothing approved", *resp.AverageApprovalHours)
	}
}

func TestMetrics_InvalidRange(t *testing.T) {
	svc := NewApprovalMetricsService(&approvalmock.MetricsRepo{}, &approvalmock.TimelineRepo{})

	_, err := svc.Metrics(context.Background(), ApprovalMetricsFilter{
		From: "2026-02-01T00:00:00Z",
		To:   "2026-01-01T00:00:00Z",
	})

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestMetrics_EscalationCountFromTimeline(t *testing.T) {
	timelineRepo := &approvalmock.TimelineRepo{
		CountEscalatedFn: func(ctx context.Context, from, to *time.Time, approverID *uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
	svc := NewApprovalMetricsService(&approvalmock.MetricsRepo{}, timelineRepo)

	resp, err := svc.Metrics(context.Background(), ApprovalMetricsFilter{})
	if err != nil {
		t.Fatalf("Metrics returned error: %v", err)
	}
	if resp.EscalationCount != 3 {
		t.Errorf("escalation count = %d, want 3", resp.EscalationCount)
	}
}

func TestMetrics_FilterPassedThrough(t *testing.T) {
	approverID := uuid.New()
	var got repository.MetricsFilter
	metricsRepo := &approvalmock.MetricsRepo{
		CountByStatusFn: func(ctx context.Context, status approval.Status, filter repository.MetricsFilter) (int64, error) {
			got = filter
			return 0, nil
		},
	}
	svc := NewApprovalMetricsService(metricsRepo, &approvalmock.TimelineRepo{})

	_, err := svc.Metrics(context.Background(), ApprovalMetricsFilter{
		From:       "2026-01-01T00:00:00Z",
		To:         "2026-02-01T00:00:00Z",
		ApproverID: approverID.String(),
	})
	if err != nil {
		t.Fatalf("Metrics returned error: %v", err)
	}

	if got.From == nil || !got.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from = %v, want 2026-01-01", got.From)
	}
	if got.ApproverID == nil || *got.ApproverID != approverID {
		t.Errorf("approver = %v, want %s", got.ApproverID, approverID)
	}
}
