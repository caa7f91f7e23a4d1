package approval

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testThresholds() Thresholds {
	return Thresholds{
		Manager: decimal.NewFromInt(10),
		Admin:   decimal.NewFromInt(25),
	}
}

func TestResolveLevel(t *testing.T) {
	th := testThresholds()

	tests := []struct {
		name          string
		discount      string
		wantLevel     Level
		wantThreshold string
		wantErr       bool
	}{
		{name: "just above manager boundary", discount: "10.01", wantLevel: LevelManager, wantThreshold: "10"},
		{name: "at admin boundary stays manager level", discount: "25", wantLevel: LevelManager, wantThreshold: "10"},
		{name: "above admin boundary", discount: "25.01", wantLevel: LevelAdmin, wantThreshold: "25"},
		{name: "maximum discount", discount: "100", wantLevel: LevelAdmin, wantThreshold: "25"},
		{name: "negative discount rejected", discount: "-1", wantErr: true},
		{name: "over 100 rejected", discount: "100.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tt.discount)
			if err != nil {
				t.Fatal(err)
			}

			level, threshold, err := ResolveLevel(d, th)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %s, want %s", level, tt.wantLevel)
			}
			if !threshold.Equal(decimal.RequireFromString(tt.wantThreshold)) {
				t.Errorf("threshold = %s, want %s", threshold, tt.wantThreshold)
			}
		})
	}
}

func TestRequiresApproval(t *testing.T) {
	th := testThresholds()

	if RequiresApproval(decimal.NewFromInt(10), th) {
		t.Error("discount at the manager threshold should not require approval")
	}
	if RequiresApproval(decimal.NewFromInt(5), th) {
		t.Error("discount below the manager threshold should not require approval")
	}
	if !RequiresApproval(decimal.RequireFromString("10.01"), th) {
		t.Error("discount above the manager threshold should require approval")
	}
}
