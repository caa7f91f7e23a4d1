package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateClient    = "CREATE_CLIENT"
	ActionUpdateClient    = "UPDATE_CLIENT"
	ActionDeleteClient    = "DELETE_CLIENT"
	ActionCreateQuotation = "CREATE_QUOTATION"
	ActionUpdateQuotation = "UPDATE_QUOTATION"
	ActionDeleteQuotation = "DELETE_QUOTATION"
	ActionCreateTaxRule   = "CREATE_TAX_RULE"
	ActionUpdateTaxRule   = "UPDATE_TAX_RULE"
	ActionDeleteTaxRule   = "DELETE_TAX_RULE"
	ActionRecordPayment   = "RECORD_PAYMENT"
	ActionRecordRefund    = "RECORD_REFUND"
	ActionUpdateSettings  = "UPDATE_APPROVAL_SETTINGS"

	// Discount approval workflow actions
	ActionRequestApproval  = "REQUEST_APPROVAL"
	ActionApproveDiscount  = "APPROVE_DISCOUNT"
	ActionRejectDiscount   = "REJECT_DISCOUNT"
	ActionEscalateApproval = "ESCALATE_APPROVAL"
	ActionResubmitApproval = "RESUBMIT_APPROVAL"
	ActionBulkApprove      = "BULK_APPROVE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
