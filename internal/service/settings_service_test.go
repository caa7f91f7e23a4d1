package service

import (
	"context"
	"errors"
	"testing"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/testutil/approvalmock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type settingsRepoMock struct {
	GetFn          func(ctx context.Context) (*model.ApprovalSettings, error)
	SaveFn         func(ctx context.Context, settings *model.ApprovalSettings) error
	EnsureSeededFn func(ctx context.Context, defaults *model.ApprovalSettings) error
}

func (m *settingsRepoMock) Get(ctx context.Context) (*model.ApprovalSettings, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx)
	}
	return &model.ApprovalSettings{
		ID:               uuid.New(),
		ManagerThreshold: decimal.NewFromInt(10),
		AdminThreshold:   decimal.NewFromInt(25),
	}, nil
}

func (m *settingsRepoMock) Save(ctx context.Context, settings *model.ApprovalSettings) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, settings)
	}
	return nil
}

func (m *settingsRepoMock) EnsureSeeded(ctx context.Context, defaults *model.ApprovalSettings) error {
	if m.EnsureSeededFn != nil {
		return m.EnsureSeededFn(ctx, defaults)
	}
	return nil
}

func TestSettingsUpdate_PersistsNewThresholds(t *testing.T) {
	var saved *model.ApprovalSettings
	repo := &settingsRepoMock{
		SaveFn: func(ctx context.Context, settings *model.ApprovalSettings) error {
			saved = settings
			return nil
		},
	}
	svc := NewSettingsService(repo, &approvalmock.AuditRepo{})

	resp, err := svc.Update(context.Background(), UpdateSettingsDTO{
		ManagerThreshold: "12.5",
		AdminThreshold:   "30",
		UpdatedBy:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if resp.ManagerThreshold != "12.50" || resp.AdminThreshold != "30.00" {
		t.Errorf("thresholds = %s/%s, want 12.50/30.00", resp.ManagerThreshold, resp.AdminThreshold)
	}
	if saved == nil || saved.UpdatedBy == nil {
		t.Fatal("settings were not saved with the acting user")
	}
}

func TestSettingsUpdate_ManagerMustBeBelowAdmin(t *testing.T) {
	svc := NewSettingsService(&settingsRepoMock{}, &approvalmock.AuditRepo{})

	for _, tc := range []struct{ manager, admin string }{
		{"25", "25"},
		{"30", "25"},
		{"-1", "25"},
		{"10", "101"},
	} {
		_, err := svc.Update(context.Background(), UpdateSettingsDTO{
			ManagerThreshold: tc.manager,
			AdminThreshold:   tc.admin,
			UpdatedBy:        uuid.NewString(),
		})
		var verr *approval.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("manager=%s admin=%s: error = %v, want ValidationError", tc.manager, tc.admin, err)
		}
	}
}

func TestSettings_ServesThresholdsToWorkflow(t *testing.T) {
	svc := NewSettingsService(&settingsRepoMock{}, &approvalmock.AuditRepo{})

	thresholds, err := svc.CurrentThresholds(context.Background())
	if err != nil {
		t.Fatalf("CurrentThresholds returned error: %v", err)
	}
	if !thresholds.Manager.Equal(decimal.NewFromInt(10)) || !thresholds.Admin.Equal(decimal.NewFromInt(25)) {
		t.Errorf("thresholds = %s/%s, want 10/25", thresholds.Manager, thresholds.Admin)
	}
}

func TestSettingsSeed_RejectsInvalidDefaults(t *testing.T) {
	svc := NewSettingsService(&settingsRepoMock{}, &approvalmock.AuditRepo{})

	err := svc.Seed(context.Background(), decimal.NewFromInt(25), decimal.NewFromInt(10))

	var verr *approval.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}
