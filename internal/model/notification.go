package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType enum constants
const (
	NotifyApprovalRequested = "APPROVAL_REQUESTED"
	NotifyApprovalApproved  = "APPROVAL_APPROVED"
	NotifyApprovalRejected  = "APPROVAL_REJECTED"
	NotifyApprovalEscalated = "APPROVAL_ESCALATED"
	NotifyApprovalResubmit  = "APPROVAL_RESUBMITTED"
)

// Notification is an in-app message produced by listeners observing
// approval timeline events. Delivery to email/SMS stays outside this
// service.
type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID *uuid.UUID `gorm:"type:uuid;index" json:"recipient_id"` // nil = broadcast to the approver pool
	Type        string     `gorm:"type:varchar(30);not null;index" json:"type"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Message     string     `gorm:"type:text" json:"message"`
	EntityID    string     `gorm:"type:varchar(50);index" json:"entity_id"` // approval or quotation id
	Read        bool       `gorm:"default:false;index" json:"read"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}
