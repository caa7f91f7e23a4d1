package repository

import (
	"context"
	"errors"

	"crm-backend/internal/model"

	"gorm.io/gorm"
)

// SettingsRepository persists the approval-threshold singleton.
type SettingsRepository interface {
	// Get returns the current settings row, or gorm.ErrRecordNotFound
	// when none has been seeded yet.
	Get(ctx context.Context) (*model.ApprovalSettings, error)
	Save(ctx context.Context, settings *model.ApprovalSettings) error
	// EnsureSeeded inserts defaults when no row exists yet.
	EnsureSeeded(ctx context.Context, defaults *model.ApprovalSettings) error
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*model.ApprovalSettings, error) {
	var settings model.ApprovalSettings
	if err := GetDB(ctx, r.db).Order("created_at asc").First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *model.ApprovalSettings) error {
	return GetDB(ctx, r.db).Save(settings).Error
}

func (r *settingsRepository) EnsureSeeded(ctx context.Context, defaults *model.ApprovalSettings) error {
	_, err := r.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return GetDB(ctx, r.db).Create(defaults).Error
}
