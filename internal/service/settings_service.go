package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UpdateSettingsDTO struct {
	ManagerThreshold string `json:"manager_threshold" binding:"required"`
	AdminThreshold   string `json:"admin_threshold" binding:"required"`
	UpdatedBy        string `json:"-"`
}

type SettingsResponse struct {
	ManagerThreshold string  `json:"manager_threshold"`
	AdminThreshold   string  `json:"admin_threshold"`
	UpdatedBy        *string `json:"updated_by"`
	UpdatedAt        string  `json:"updated_at"`
}

// SettingsService manages the approval-threshold singleton and serves
// as the workflow's ThresholdSource. Thresholds are read per request,
// so admin changes apply to subsequent requests without a restart.
type SettingsService interface {
	ThresholdSource
	Get(ctx context.Context) (SettingsResponse, error)
	Update(ctx context.Context, req UpdateSettingsDTO) (SettingsResponse, error)
	Seed(ctx context.Context, manager, admin decimal.Decimal) error
}

type settingsService struct {
	settingsRepo repository.SettingsRepository
	auditRepo    repository.AuditRepository
}

func NewSettingsService(settingsRepo repository.SettingsRepository, auditRepo repository.AuditRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo, auditRepo: auditRepo}
}

func (s *settingsService) CurrentThresholds(ctx context.Context) (approval.Thresholds, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return approval.Thresholds{}, fmt.Errorf("failed to load approval settings: %w", err)
	}
	return approval.Thresholds{Manager: settings.ManagerThreshold, Admin: settings.AdminThreshold}, nil
}

func (s *settingsService) Get(ctx context.Context) (SettingsResponse, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return SettingsResponse{}, fmt.Errorf("failed to load approval settings: %w", err)
	}
	return toSettingsResponse(settings), nil
}

func (s *settingsService) Update(ctx context.Context, req UpdateSettingsDTO) (SettingsResponse, error) {
	manager, err := decimal.NewFromString(req.ManagerThreshold)
	if err != nil {
		return SettingsResponse{}, &approval.ValidationError{Field: "manager_threshold", Message: "not a valid decimal"}
	}
	admin, err := decimal.NewFromString(req.AdminThreshold)
	if err != nil {
		return SettingsResponse{}, &approval.ValidationError{Field: "admin_threshold", Message: "not a valid decimal"}
	}
	updatedBy, err := uuid.Parse(req.UpdatedBy)
	if err != nil {
		return SettingsResponse{}, &approval.ValidationError{Field: "updated_by", Message: "not a valid uuid"}
	}
	if err := validateThresholds(manager, admin); err != nil {
		return SettingsResponse{}, err
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return SettingsResponse{}, fmt.Errorf("failed to load approval settings: %w", err)
	}

	settings.ManagerThreshold = manager
	settings.AdminThreshold = admin
	settings.UpdatedBy = &updatedBy
	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return SettingsResponse{}, fmt.Errorf("failed to save approval settings: %w", err)
	}

	details, _ := json.Marshal(map[string]string{
		"manager_threshold": manager.StringFixed(2),
		"admin_threshold":   admin.StringFixed(2),
	})
	_ = s.auditRepo.Log(ctx, &model.AuditLog{
		UserID:     &updatedBy,
		Action:     model.ActionUpdateSettings,
		EntityID:   settings.ID.String(),
		EntityName: "approval settings",
		Details:    string(details),
	})

	return toSettingsResponse(settings), nil
}

func (s *settingsService) Seed(ctx context.Context, manager, admin decimal.Decimal) error {
	if err := validateThresholds(manager, admin); err != nil {
		return err
	}
	return s.settingsRepo.EnsureSeeded(ctx, &model.ApprovalSettings{
		ManagerThreshold: manager,
		AdminThreshold:   admin,
	})
}

func validateThresholds(manager, admin decimal.Decimal) error {
	if err := approval.ValidateDiscount(manager); err != nil {
		return &approval.ValidationError{Field: "manager_threshold", Message: "must be between 0 and 100"}
	}
	if err := approval.ValidateDiscount(admin); err != nil {
		return &approval.ValidationError{Field: "admin_threshold", Message: "must be between 0 and 100"}
	}
	if !manager.LessThan(admin) {
		return &approval.ValidationError{Field: "manager_threshold", Message: "must be strictly below admin_threshold"}
	}
	return nil
}

func toSettingsResponse(settings *model.ApprovalSettings) SettingsResponse {
	resp := SettingsResponse{
		ManagerThreshold: settings.ManagerThreshold.StringFixed(2),
		AdminThreshold:   settings.AdminThreshold.StringFixed(2),
		UpdatedAt:        settings.UpdatedAt.Format(time.RFC3339),
	}
	if settings.UpdatedBy != nil {
		id := settings.UpdatedBy.String()
		resp.UpdatedBy = &id
	}
	return resp
}
