package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod enum constants
const (
	PaymentMethodBankTransfer = "BANK_TRANSFER"
	PaymentMethodCard         = "CARD"
	PaymentMethodCash         = "CASH"
)

// PaymentStatus enum constants
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusRefunded  = "REFUNDED" // fully refunded
)

// RefundStatus enum constants
const (
	RefundStatusCompleted = "COMPLETED"
)

// Payment records money received against an accepted quotation.
// Cumulative payments for a quotation may not exceed its total amount.
type Payment struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"payment_no"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quotation_id"`
	Quotation   *Quotation      `gorm:"foreignKey:QuotationID" json:"quotation,omitempty"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Method      string          `gorm:"type:varchar(20);not null" json:"method"` // BANK_TRANSFER, CARD, CASH
	Reference   string          `gorm:"type:varchar(100)" json:"reference"`      // external transaction ref
	Status      string          `gorm:"type:varchar(20);not null;default:'COMPLETED';index" json:"status"`
	PaidAt      time.Time       `gorm:"not null" json:"paid_at"`
	RecordedBy  *uuid.UUID      `gorm:"type:uuid" json:"recorded_by"`
	Refunds     []Refund        `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Refund records money returned against a payment. Cumulative refunds
// may not exceed the payment amount.
type Refund struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RefundNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"refund_no"`
	PaymentID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Reason     string          `gorm:"type:text;not null" json:"reason"`
	Status     string          `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	RefundedAt time.Time       `gorm:"not null" json:"refunded_at"`
	RecordedBy *uuid.UUID      `gorm:"type:uuid" json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
