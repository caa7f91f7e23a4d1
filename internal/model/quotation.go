package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuotationStatus constants
const (
	QuotationStatusDraft    = "DRAFT"
	QuotationStatusSent     = "SENT"
	QuotationStatusAccepted = "ACCEPTED"
	QuotationStatusDeclined = "DECLINED"
	QuotationStatusExpired  = "EXPIRED"
)

// Quotation represents a priced offer to a client. Monetary fields are
// recomputed server-side from the items, the discount, and the active
// tax rule; they are never taken from the request payload.
type Quotation struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuoteNo     string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"quote_no"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by_id"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`

	Status     string     `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	ValidUntil *time.Time `gorm:"type:date" json:"valid_until"`

	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"discount_percentage"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount_amount"`
	TaxRuleID          *uuid.UUID      `gorm:"type:uuid;index" json:"tax_rule_id"`
	TaxRule            *TaxRule        `gorm:"foreignKey:TaxRuleID" json:"tax_rule,omitempty"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total_amount"`

	Items []QuotationItem `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE" json:"items"`
	Note  string          `gorm:"type:text" json:"note"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// QuotationItem is a single priced line on a quotation.
type QuotationItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"quotation_id"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"` // quantity * unit_price
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
