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

type RecordPaymentDTO struct {
	QuotationID string `json:"quotation_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"` // decimal string
	Method      string `json:"method" binding:"required,oneof=BANK_TRANSFER CARD CASH"`
	Reference   string `json:"reference" binding:"max=100"`
	PaidAt      string `json:"paid_at"` // RFC3339, defaults to now
	RecordedBy  string `json:"-"`
}

type RecordRefundDTO struct {
	PaymentID  string `json:"-"`
	Amount     string `json:"amount" binding:"required"`
	Reason     string `json:"reason" binding:"required,min=10,max=2000"`
	RecordedBy string `json:"-"`
}

type RefundResponse struct {
	ID         string `json:"id"`
	RefundNo   string `json:"refund_no"`
	PaymentID  string `json:"payment_id"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
	Status     string `json:"status"`
	RefundedAt string `json:"refunded_at"`
}

type PaymentResponse struct {
	ID          string           `json:"id"`
	PaymentNo   string           `json:"payment_no"`
	QuotationID string           `json:"quotation_id"`
	ClientID    string           `json:"client_id"`
	Amount      string           `json:"amount"`
	Method      string           `json:"method"`
	Reference   string           `json:"reference,omitempty"`
	Status      string           `json:"status"`
	PaidAt      string           `json:"paid_at"`
	Refunds     []RefundResponse `json:"refunds,omitempty"`
	CreatedAt   string           `json:"created_at"`
}

// --- Interface ---

type PaymentService interface {
	RecordPayment(ctx context.Context, req RecordPaymentDTO) (PaymentResponse, error)
	RecordRefund(ctx context.Context, req RecordRefundDTO) (RefundResponse, error)
	GetByID(ctx context.Context, id string) (PaymentResponse, error)
	List(ctx context.Context, clientID string, page, limit int) ([]PaymentResponse, int64, error)
	ListByQuotation(ctx context.Context, quotationID string) ([]PaymentResponse, error)
}

type paymentService struct {
	paymentRepo   repository.PaymentRepository
	quotationRepo repository.QuotationRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	quotationRepo repository.QuotationRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PaymentService {
	return &paymentService{
		paymentRepo:   paymentRepo,
		quotationRepo: quotationRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// --- Implementation ---

func (s *paymentService) RecordPayment(ctx context.Context, req RecordPaymentDTO) (PaymentResponse, error) {
	quotationID, err := uuid.Parse(req.QuotationID)
	if err != nil {
		return PaymentResponse{}, &approval.ValidationError{Field: "quotation_id", Message: "not a valid uuid"}
	}
	recordedBy, err := uuid.Parse(req.RecordedBy)
	if err != nil {
		return PaymentResponse{}, &approval.ValidationError{Field: "recorded_by", Message: "not a valid uuid"}
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return PaymentResponse{}, &approval.ValidationError{Field: "amount", Message: "not a valid decimal"}
	}
	if !amount.IsPositive() {
		return PaymentResponse{}, &approval.ValidationError{Field: "amount", Message: "must be positive"}
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		paidAt, err = time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return PaymentResponse{}, &approval.ValidationError{Field: "paid_at", Message: "not a valid RFC3339 timestamp"}
		}
	}

	var payment *model.Payment

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Row lock on the quotation serializes concurrent payments so
		// the over-payment check reads a stable paid-so-far sum.
		quotation, err := s.quotationRepo.FindByIDForUpdate(txCtx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "quotation_id", Message: "quotation not found"}
			}
			return fmt.Errorf("failed to load quotation: %w", err)
		}
		if quotation.Status != model.QuotationStatusAccepted {
			return &approval.ValidationError{Field: "quotation_id", Message: "payments can only be recorded against an accepted quotation"}
		}

		paid, err := s.paymentRepo.SumByQuotation(txCtx, quotationID)
		if err != nil {
			return fmt.Errorf("failed to sum payments: %w", err)
		}
		if paid.Add(amount).GreaterThan(quotation.TotalAmount) {
			return &approval.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("would exceed the quotation total (%s paid of %s)", paid.StringFixed(2), quotation.TotalAmount.StringFixed(2)),
			}
		}

		paymentNo, err := s.generatePaymentNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate payment number: %w", err)
		}

		payment = &model.Payment{
			PaymentNo:   paymentNo,
			QuotationID: quotationID,
			ClientID:    quotation.ClientID,
			Amount:      amount,
			Method:      req.Method,
			Reference:   req.Reference,
			Status:      model.PaymentStatusCompleted,
			PaidAt:      paidAt,
			RecordedBy:  &recordedBy,
		}
		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		details, _ := json.Marshal(map[string]string{
			"payment_no": payment.PaymentNo,
			"quotation":  quotationID.String(),
			"amount":     amount.StringFixed(2),
			"method":     req.Method,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &recordedBy,
			Action:     model.ActionRecordPayment,
			EntityID:   payment.ID.String(),
			EntityName: payment.PaymentNo,
			Details:    string(details),
		})
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	return toPaymentResponse(payment), nil
}

func (s *paymentService) RecordRefund(ctx context.Context, req RecordRefundDTO) (RefundResponse, error) {
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		return RefundResponse{}, &approval.ValidationError{Field: "payment_id", Message: "not a valid uuid"}
	}
	recordedBy, err := uuid.Parse(req.RecordedBy)
	if err != nil {
		return RefundResponse{}, &approval.ValidationError{Field: "recorded_by", Message: "not a valid uuid"}
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return RefundResponse{}, &approval.ValidationError{Field: "amount", Message: "not a valid decimal"}
	}
	if !amount.IsPositive() {
		return RefundResponse{}, &approval.ValidationError{Field: "amount", Message: "must be positive"}
	}
	if err := approval.ValidateReason(req.Reason); err != nil {
		return RefundResponse{}, err
	}

	var refund *model.Refund

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		payment, err := s.paymentRepo.FindByIDForUpdate(txCtx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "payment_id", Message: "payment not found"}
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}

		refunded, err := s.paymentRepo.SumRefundsByPayment(txCtx, paymentID)
		if err != nil {
			return fmt.Errorf("failed to sum refunds: %w", err)
		}
		total := refunded.Add(amount)
		if total.GreaterThan(payment.Amount) {
			return &approval.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("would exceed the payment amount (%s refunded of %s)", refunded.StringFixed(2), payment.Amount.StringFixed(2)),
			}
		}

		refundNo, err := s.generateRefundNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate refund number: %w", err)
		}

		refund = &model.Refund{
			RefundNo:   refundNo,
			PaymentID:  paymentID,
			Amount:     amount,
			Reason:     req.Reason,
			Status:     model.RefundStatusCompleted,
			RefundedAt: time.Now(),
			RecordedBy: &recordedBy,
		}
		if err := s.paymentRepo.CreateRefund(txCtx, refund); err != nil {
			return fmt.Errorf("failed to create refund: %w", err)
		}

		if total.Equal(payment.Amount) {
			payment.Status = model.PaymentStatusRefunded
			if err := s.paymentRepo.Update(txCtx, payment); err != nil {
				return fmt.Errorf("failed to mark payment refunded: %w", err)
			}
		}

		details, _ := json.Marshal(map[string]string{
			"refund_no": refund.RefundNo,
			"payment":   paymentID.String(),
			"amount":    amount.StringFixed(2),
			"reason":    req.Reason,
		})
		return s.auditRepo.Log(txCtx, &model.AuditLog{
			UserID:     &recordedBy,
			Action:     model.ActionRecordRefund,
			EntityID:   refund.ID.String(),
			EntityName: refund.RefundNo,
			Details:    string(details),
		})
	})
	if err != nil {
		return RefundResponse{}, err
	}

	return toRefundResponse(refund), nil
}

func (s *paymentService) GetByID(ctx context.Context, id string) (PaymentResponse, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return PaymentResponse{}, &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}

	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PaymentResponse{}, &approval.ValidationError{Field: "id", Message: "payment not found"}
		}
		return PaymentResponse{}, fmt.Errorf("failed to load payment: %w", err)
	}

	refunds, err := s.paymentRepo.ListRefundsByPayment(ctx, paymentID)
	if err != nil {
		return PaymentResponse{}, fmt.Errorf("failed to load refunds: %w", err)
	}
	payment.Refunds = refunds

	return toPaymentResponse(payment), nil
}

func (s *paymentService) List(ctx context.Context, clientID string, page, limit int) ([]PaymentResponse, int64, error) {
	var clientFilter *uuid.UUID
	if clientID != "" {
		id, err := uuid.Parse(clientID)
		if err != nil {
			return nil, 0, &approval.ValidationError{Field: "client_id", Message: "not a valid uuid"}
		}
		clientFilter = &id
	}

	payments, total, err := s.paymentRepo.List(ctx, clientFilter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, toPaymentResponse(&payments[i]))
	}
	return responses, total, nil
}

func (s *paymentService) ListByQuotation(ctx context.Context, quotationID string) ([]PaymentResponse, error) {
	id, err := uuid.Parse(quotationID)
	if err != nil {
		return nil, &approval.ValidationError{Field: "quotation_id", Message: "not a valid uuid"}
	}

	payments, err := s.paymentRepo.ListByQuotation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, toPaymentResponse(&payments[i]))
	}
	return responses, nil
}

// --- Helpers ---

func (s *paymentService) generatePaymentNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "PAY-" + today + "-"

	count, err := s.paymentRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *paymentService) generateRefundNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "REF-" + today + "-"

	count, err := s.paymentRepo.CountRefundsByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func toPaymentResponse(p *model.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID.String(),
		PaymentNo:   p.PaymentNo,
		QuotationID: p.QuotationID.String(),
		ClientID:    p.ClientID.String(),
		Amount:      p.Amount.StringFixed(2),
		Method:      p.Method,
		Reference:   p.Reference,
		Status:      p.Status,
		PaidAt:      p.PaidAt.Format(time.RFC3339),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	for i := range p.Refunds {
		resp.Refunds = append(resp.Refunds, toRefundResponse(&p.Refunds[i]))
	}
	return resp
}

func toRefundResponse(r *model.Refund) RefundResponse {
	return RefundResponse{
		ID:         r.ID.String(),
		RefundNo:   r.RefundNo,
		PaymentID:  r.PaymentID.String(),
		Amount:     r.Amount.StringFixed(2),
		Reason:     r.Reason,
		Status:     r.Status,
		RefundedAt: r.RefundedAt.Format(time.RFC3339),
	}
}
