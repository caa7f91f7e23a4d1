package model

import (
	"time"

	"crm-backend/internal/approval"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountApproval is a single approval cycle over a quotation's
// discount. A rejected cycle is never reused: resubmission creates a
// new row whose PriorApprovalID links back to the rejected one.
//
// At most one row per quotation may hold an open status
// (PENDING/ESCALATED) at any time — that row is what locks the
// quotation for edits.
type DiscountApproval struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuotationID uuid.UUID `gorm:"type:uuid;not null;index" json:"quotation_id"`
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"client_id"`

	RequestedBy uuid.UUID  `gorm:"type:uuid;not null;index" json:"requested_by"`
	Requester   *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ApproverID  *uuid.UUID `gorm:"type:uuid;index" json:"approver_id"` // nil until acted on
	Approver    *User      `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`

	Status        approval.Status `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	RequestDate   time.Time       `gorm:"not null;index" json:"request_date"`
	ApprovalDate  *time.Time      `json:"approval_date"`
	RejectionDate *time.Time      `json:"rejection_date"`

	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	Threshold          decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"threshold"` // boundary that triggered this level
	ApprovalLevel      approval.Level  `gorm:"type:varchar(20);not null" json:"approval_level"`

	Reason   string `gorm:"type:text;not null" json:"reason"`
	Comments string `gorm:"type:text" json:"comments"`

	EscalatedToAdmin bool       `gorm:"default:false" json:"escalated_to_admin"`
	PriorApprovalID  *uuid.UUID `gorm:"type:uuid;index" json:"prior_approval_id"` // set when created via resubmission

	// Optimistic concurrency counter. Every mutation writes only if the
	// stored version still matches the one it read.
	Version int `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApprovalTimelineEvent is one append-only audit entry per transition,
// including creation. The timeline is never updated or deleted and is
// the sole input for escalation metrics.
type ApprovalTimelineEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApprovalID  uuid.UUID `gorm:"type:uuid;not null;index" json:"approval_id"`
	QuotationID uuid.UUID `gorm:"type:uuid;not null;index" json:"quotation_id"`

	EventType      approval.EventType `gorm:"type:varchar(20);not null;index" json:"event_type"`
	Status         approval.Status    `gorm:"type:varchar(20);not null" json:"status"`
	PreviousStatus *approval.Status   `gorm:"type:varchar(20)" json:"previous_status"` // nil for REQUESTED/RESUBMITTED

	UserID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	User     *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	UserRole approval.Role `gorm:"type:varchar(20);not null" json:"user_role"`

	Reason   string `gorm:"type:text" json:"reason"`
	Comments string `gorm:"type:text" json:"comments"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
