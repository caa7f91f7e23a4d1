package database

import (
	"crm-backend/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Client{},
		&model.ClientAddress{},
		&model.TaxRule{},
		&model.Quotation{},
		&model.QuotationItem{},
		&model.DiscountApproval{},
		&model.ApprovalTimelineEvent{},
		&model.ApprovalSettings{},
		&model.Payment{},
		&model.Refund{},
		&model.Notification{},
		&model.AuditLog{},
	)
	if err != nil {
		logrus.WithError(err).Warn("failed to auto-migrate models")
	}

	return db, nil
}
