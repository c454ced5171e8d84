package app

import (
	"context"
	"testing"
	"time"

	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

func TestRiskManager_CheckTradeSize(t *testing.T) {
	ctx := context.Background()
	limits := domain.RiskLimits{MaxPositionSize: asset.Units(100), MaxDailyVolume: asset.Units(250)}

	tests := []struct {
		name     string
		recorded asset.Amount
		amount   asset.Amount
		want     domain.RiskStatus
	}{
		{"within", 0, asset.Units(100), domain.RiskApproved},
		{"position", 0, asset.Units(101), domain.RiskPositionTooLarge},
		{"daily exact", asset.Units(150), asset.Units(100), domain.RiskApproved},
		{"daily over", asset.Units(200), asset.Units(51), domain.RiskDailyLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRiskManager(limits, logger.NewNop())
			if tt.recorded > 0 {
				_ = r.RecordVolume(ctx, "GKEEPER", tt.recorded)
			}
			got, err := r.CheckTradeSize(ctx, tt.amount)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("CheckTradeSize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRiskManager_Rollover(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)

	r := NewRiskManager(domain.RiskLimits{MaxPositionSize: asset.Units(100), MaxDailyVolume: asset.Units(100)}, logger.NewNop())
	r.now = func() time.Time { return now }

	_ = r.RecordVolume(ctx, "GA", asset.Units(60))
	_ = r.RecordVolume(ctx, "GB", asset.Units(40))
	if total, own := r.DailyVolume("GA"); total != asset.Units(100) || own != asset.Units(60) {
		t.Fatalf("DailyVolume = %s, %s", total, own)
	}
	if got, _ := r.CheckTradeSize(ctx, 1); got != domain.RiskDailyLimitExceeded {
		t.Fatalf("before midnight = %s", got)
	}

	now = now.Add(2 * time.Minute)
	if got, _ := r.CheckTradeSize(ctx, asset.Units(100)); got != domain.RiskApproved {
		t.Errorf("after midnight = %s", got)
	}
	if total, own := r.DailyVolume("GA"); total != 0 || own != 0 {
		t.Errorf("volume not reset: %s, %s", total, own)
	}
	if r.Limits().MaxDailyVolume != asset.Units(100) {
		t.Error("Limits() lost configuration")
	}
}
