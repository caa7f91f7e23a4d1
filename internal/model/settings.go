package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalSettings is the admin-editable singleton holding the
// discount thresholds the workflow routes on. Discounts at or below
// ManagerThreshold need no approval; above AdminThreshold they need an
// admin. Invariant: ManagerThreshold < AdminThreshold.
type ApprovalSettings struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ManagerThreshold decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"manager_threshold"`
	AdminThreshold   decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"admin_threshold"`
	UpdatedBy        *uuid.UUID      `gorm:"type:uuid" json:"updated_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
