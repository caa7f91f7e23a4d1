package repository

import (
	"context"

	"crm-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	// FindByIDForUpdate locks the payment row so concurrent refunds
	// serialize on the over-refund check.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]model.Payment, error)
	List(ctx context.Context, clientID *uuid.UUID, page, limit int) ([]model.Payment, int64, error)
	Update(ctx context.Context, payment *model.Payment) error
	// SumByQuotation totals completed payments for a quotation.
	SumByQuotation(ctx context.Context, quotationID uuid.UUID) (decimal.Decimal, error)
	CountByPrefix(ctx context.Context, prefix string) (int64, error)

	CreateRefund(ctx context.Context, refund *model.Refund) error
	ListRefundsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Refund, error)
	SumRefundsByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)
	CountRefundsByPrefix(ctx context.Context, prefix string) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).Preload("Refunds").First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByQuotation(ctx context.Context, quotationID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	if err := GetDB(ctx, r.db).
		Preload("Refunds").
		Where("quotation_id = ?", quotationID).
		Order("paid_at asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) List(ctx context.Context, clientID *uuid.UUID, page, limit int) ([]model.Payment, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Payment{})
	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Refunds")
	if clientID != nil {
		fetch = fetch.Where("client_id = ?", *clientID)
	}

	var payments []model.Payment
	if err := fetch.Order("paid_at DESC").Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return nil, 0, err
	}

	return payments, total, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Omit("Refunds", "Quotation").Save(payment).Error
}

func (r *paymentRepository) SumByQuotation(ctx context.Context, quotationID uuid.UUID) (decimal.Decimal, error) {
	return r.sumDecimal(ctx, GetDB(ctx, r.db).
		Model(&model.Payment{}).
		Where("quotation_id = ? AND status = ?", quotationID, model.PaymentStatusCompleted))
}

func (r *paymentRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).
		Model(&model.Payment{}).
		Where("payment_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *paymentRepository) CreateRefund(ctx context.Context, refund *model.Refund) error {
	return GetDB(ctx, r.db).Create(refund).Error
}

func (r *paymentRepository) ListRefundsByPayment(ctx context.Context, paymentID uuid.UUID) ([]model.Refund, error) {
	var refunds []model.Refund
	if err := GetDB(ctx, r.db).
		Where("payment_id = ?", paymentID).
		Order("refunded_at asc").
		Find(&refunds).Error; err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *paymentRepository) SumRefundsByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	return r.sumDecimal(ctx, GetDB(ctx, r.db).
		Model(&model.Refund{}).
		Where("payment_id = ?", paymentID))
}

func (r *paymentRepository) CountRefundsByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).
		Model(&model.Refund{}).
		Where("refund_no LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *paymentRepository) sumDecimal(_ context.Context, query *gorm.DB) (decimal.Decimal, error) {
	var result struct {
		Value string
	}
	if err := query.Select("COALESCE(CAST(SUM(amount) AS TEXT), '0') as value").Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(result.Value)
}
