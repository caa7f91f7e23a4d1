package service

import (
	"context"
	"time"

	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/shopspring/decimal"
)

type SalesStatsResponse struct {
	TimeRangeStart   string                     `json:"time_range_start"`
	TimeRangeEnd     string                     `json:"time_range_end"`
	AcceptedCount    int                        `json:"accepted_count"`
	AcceptedValue    string                     `json:"accepted_value"`
	SentCount        int                        `json:"sent_count"`
	SentValue        string                     `json:"sent_value"`
	DeclinedCount    int                        `json:"declined_count"`
	ConversionRate   string                     `json:"conversion_rate"` // accepted / (accepted + declined), percent
	PaymentsReceived string                     `json:"payments_received"`
	TopClients       []repository.ClientRanking `json:"top_clients"`
}

type SalesStatsService interface {
	GetStatistics(ctx context.Context, start, end time.Time) (SalesStatsResponse, error)
}

type salesStatsService struct {
	statsRepo repository.SalesStatsRepository
}

func NewSalesStatsService(statsRepo repository.SalesStatsRepository) SalesStatsService {
	return &salesStatsService{statsRepo: statsRepo}
}

func (s *salesStatsService) GetStatistics(ctx context.Context, start, end time.Time) (SalesStatsResponse, error) {
	response := SalesStatsResponse{
		TimeRangeStart: start.Format(time.RFC3339),
		TimeRangeEnd:   end.Format(time.RFC3339),
	}

	acceptedValue, acceptedCount, err := s.statsRepo.GetQuotationStatistics(ctx, model.QuotationStatusAccepted, start, end)
	if err != nil {
		return SalesStatsResponse{}, err
	}
	response.AcceptedCount = acceptedCount
	response.AcceptedValue = fixedDecimal(acceptedValue)

	sentValue, sentCount, err := s.statsRepo.GetQuotationStatistics(ctx, model.QuotationStatusSent, start, end)
	if err != nil {
		return SalesStatsResponse{}, err
	}
	response.SentCount = sentCount
	response.SentValue = fixedDecimal(sentValue)

	_, declinedCount, err := s.statsRepo.GetQuotationStatistics(ctx, model.QuotationStatusDeclined, start, end)
	if err != nil {
		return SalesStatsResponse{}, err
	}
	response.DeclinedCount = declinedCount

	resolved := acceptedCount + declinedCount
	if resolved == 0 {
		response.ConversionRate = "0.00"
	} else {
		rate := decimal.NewFromInt(int64(acceptedCount)).
			Div(decimal.NewFromInt(int64(resolved))).
			Mul(decimal.NewFromInt(100))
		response.ConversionRate = rate.StringFixed(2)
	}

	payments, err := s.statsRepo.GetPaymentsTotal(ctx, start, end)
	if err != nil {
		return SalesStatsResponse{}, err
	}
	response.PaymentsReceived = fixedDecimal(payments)

	topClients, err := s.statsRepo.GetTopClients(ctx, start, end, 5)
	if err != nil {
		return SalesStatsResponse{}, err
	}
	for i := range topClients {
		topClients[i].AcceptedValue = fixedDecimal(topClients[i].AcceptedValue)
	}
	response.TopClients = topClients

	return response, nil
}

func fixedDecimal(raw string) string {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	return value.StringFixed(2)
}
