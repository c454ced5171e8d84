package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/KPR-V/stellar/internal/asset"
)

func TestDeviationBps(t *testing.T) {
	tests := []struct {
		name    string
		current asset.Amount
		target  asset.Amount
		want    uint32
		wantErr error
	}{
		{name: "two_percent_above", current: 10200, target: 10000, want: 200},
		{name: "two_percent_below", current: 9800, target: 10000, want: 200},
		{name: "asymmetric_reverse", current: 10000, target: 10200, want: 196},
		{name: "equal", current: 10000, target: 10000, want: 0},
		{name: "fixed_point", current: 1_0850000, target: 1_0800000, want: 46},
		{name: "zero_target", current: 10000, target: 0, wantErr: ErrDivisionUndefined},
		{name: "saturates", current: asset.MaxAmount, target: 1, want: math.MaxUint32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeviationBps(tt.current, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DeviationBps(%d, %d) = %d, want %d", tt.current, tt.target, got, tt.want)
			}
		})
	}
}

func TestExpectedPrice(t *testing.T) {
	got, err := ExpectedPrice(1_0800000, 10000)
	if err != nil || got != 1_0800000 {
		t.Fatalf("1:1 peg = %d, %v", got, err)
	}
	got, _ = ExpectedPrice(1_0800000, 9950)
	if got != 1_0746000 {
		t.Errorf("99.5%% peg = %d, want 10746000", got)
	}
}

func TestEstimatedProfit(t *testing.T) {
	fees := FeeConfig{TradingBps: 30, GasBps: 10, BridgeBps: 0, KeeperBps: 5}
	tests := []struct {
		name     string
		stable   asset.Amount
		expected asset.Amount
		want     asset.Amount
	}{
		// gap 200_000, fees 40 bps = 800
		{name: "above_peg", stable: 1_0200000, expected: 1_0000000, want: 199_200},
		{name: "below_peg", stable: 9_800000, expected: 1_0000000, want: 199_200},
		{name: "no_gap", stable: 1_0000000, expected: 1_0000000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimatedProfit(tt.stable, tt.expected, fees); got != tt.want {
				t.Errorf("EstimatedProfit = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfidenceScore(t *testing.T) {
	small := RiskConfig{MaxPositionSize: 100000_0000000}
	large := RiskConfig{MaxPositionSize: 100000_0000001}

	tests := []struct {
		name      string
		deviation uint32
		risk      RiskConfig
		want      uint32
	}{
		{name: "small_deviation_small_risk", deviation: 10, risk: small, want: 1000 + 3000 + 500},
		{name: "deviation_capped", deviation: 200, risk: small, want: 5000 + 3000 + 500},
		{name: "large_position_bonus", deviation: 200, risk: large, want: 9000},
		{name: "huge_deviation", deviation: math.MaxUint32, risk: large, want: 9000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConfidenceScore(tt.deviation, tt.risk); got != tt.want {
				t.Errorf("ConfidenceScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDirectionFor(t *testing.T) {
	if DirectionFor(10200, 10000) != DirectionSell {
		t.Error("above peg should sell")
	}
	if DirectionFor(9800, 10000) != DirectionBuy {
		t.Error("below peg should buy")
	}
	if DirectionFor(10000, 10000) != DirectionBuy {
		t.Error("at peg falls through to buy")
	}
}

func TestOpportunity_ProfitBps(t *testing.T) {
	o := Opportunity{StablePrice: 1_0000000, EstimatedProfit: 50_000}
	if got := o.ProfitBps(); got != 50 {
		t.Errorf("ProfitBps = %d, want 50", got)
	}
	if got := (Opportunity{}).ProfitBps(); got != 0 {
		t.Errorf("zero opportunity ProfitBps = %d", got)
	}
}
