package service

import (
	"context"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApprovalMetricsFilter struct {
	From       string // RFC3339, optional
	To         string // RFC3339, optional
	ApproverID string // uuid, optional
}

// ApprovalMetricsResponse aggregates the approval dashboard numbers.
// AverageApprovalHours is null when nothing was approved in range,
// which is distinct from an average of zero.
type ApprovalMetricsResponse struct {
	PendingCount              int64    `json:"pending_count"`
	ApprovedCount             int64    `json:"approved_count"`
	RejectedCount             int64    `json:"rejected_count"`
	EscalatedCount            int64    `json:"escalated_count"`
	EscalationCount           int64    `json:"escalation_count"`
	AverageApprovalHours      *float64 `json:"average_approval_hours"`
	RejectionRate             string   `json:"rejection_rate"`
	AverageDiscountPercentage string   `json:"average_discount_percentage"`
}

type ApprovalMetricsService interface {
	Metrics(ctx context.Context, filter ApprovalMetricsFilter) (ApprovalMetricsResponse, error)
}

type approvalMetricsService struct {
	metricsRepo  repository.ApprovalMetricsRepository
	timelineRepo repository.TimelineRepository
}

func NewApprovalMetricsService(metricsRepo repository.ApprovalMetricsRepository, timelineRepo repository.TimelineRepository) ApprovalMetricsService {
	return &approvalMetricsService{metricsRepo: metricsRepo, timelineRepo: timelineRepo}
}

func (s *approvalMetricsService) Metrics(ctx context.Context, filter ApprovalMetricsFilter) (ApprovalMetricsResponse, error) {
	repoFilter, err := parseMetricsFilter(filter)
	if err != nil {
		return ApprovalMetricsResponse{}, err
	}

	var resp ApprovalMetricsResponse

	counts := map[approval.Status]*int64{
		approval.StatusPending:   &resp.PendingCount,
		approval.StatusApproved:  &resp.ApprovedCount,
		approval.StatusRejected:  &resp.RejectedCount,
		approval.StatusEscalated: &resp.EscalatedCount,
	}
	for status, dest := range counts {
		count, err := s.metricsRepo.CountByStatus(ctx, status, repoFilter)
		if err != nil {
			return ApprovalMetricsResponse{}, err
		}
		*dest = count
	}

	seconds, err := s.metricsRepo.AverageApprovalSeconds(ctx, repoFilter)
	if err != nil {
		return ApprovalMetricsResponse{}, err
	}
	if seconds != nil {
		hours := *seconds / 3600
		resp.AverageApprovalHours = &hours
	}

	resp.RejectionRate = rejectionRate(resp.ApprovedCount, resp.RejectedCount)

	avgDiscount, err := s.metricsRepo.AverageDiscount(ctx, repoFilter)
	if err != nil {
		return ApprovalMetricsResponse{}, err
	}
	resp.AverageDiscountPercentage = avgDiscount.StringFixed(2)

	// Escalation count comes from the timeline, not the status column:
	// an escalated cycle that was since approved or rejected still
	// counts as one escalation.
	escalations, err := s.timelineRepo.CountEscalated(ctx, repoFilter.From, repoFilter.To, repoFilter.ApproverID)
	if err != nil {
		return ApprovalMetricsResponse{}, err
	}
	resp.EscalationCount = escalations

	return resp, nil
}

// rejectionRate computes rejected / (approved + rejected) as a
// percentage with two decimals. A zero denominator yields "0.00"
// rather than an error.
func rejectionRate(approved, rejected int64) string {
	resolved := approved + rejected
	if resolved == 0 {
		return decimal.Zero.StringFixed(2)
	}
	rate := decimal.NewFromInt(rejected).
		Div(decimal.NewFromInt(resolved)).
		Mul(decimal.NewFromInt(100))
	return rate.StringFixed(2)
}

func parseMetricsFilter(filter ApprovalMetricsFilter) (repository.MetricsFilter, error) {
	var repoFilter repository.MetricsFilter
	if filter.From != "" {
		from, err := time.Parse(time.RFC3339, filter.From)
		if err != nil {
			return repoFilter, &approval.ValidationError{Field: "from", Message: "not a valid RFC3339 timestamp"}
		}
		repoFilter.From = &from
	}
	if filter.To != "" {
		to, err := time.Parse(time.RFC3339, filter.To)
		if err != nil {
			return repoFilter, &approval.ValidationError{Field: "to", Message: "not a valid RFC3339 timestamp"}
		}
		repoFilter.To = &to
	}
	if filter.ApproverID != "" {
		id, err := uuid.Parse(filter.ApproverID)
		if err != nil {
			return repoFilter, &approval.ValidationError{Field: "approver_id", Message: "not a valid uuid"}
		}
		repoFilter.ApproverID = &id
	}
	if repoFilter.From != nil && repoFilter.To != nil && repoFilter.To.Before(*repoFilter.From) {
		return repoFilter, &approval.ValidationError{Field: "to", Message: fmt.Sprintf("must not be before from (%s)", filter.From)}
	}
	return repoFilter, nil
}
