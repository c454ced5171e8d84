package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

func sampleOpportunity() domain.EnhancedOpportunity {
	return domain.EnhancedOpportunity{
		Base: domain.Opportunity{
			Pair:            domain.TradingPair{FiatSymbol: "EUR", StableSymbol: "EURC"},
			StablePrice:     1_0200000,
			FiatPrice:       1_0000000,
			DeviationBps:    200,
			EstimatedProfit: 199_200,
			Direction:       domain.DirectionSell,
			DetectedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		TWAPPrice:    1_0000000,
		Signal:       domain.SignalSell,
		Confidence:   8500,
		MaxTradeSize: asset.Units(100_000),
		Venues:       []domain.Venue{{Name: "aqua"}, {Name: "soroswap"}},
	}
}

func TestConsoleReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	NewConsoleReporter(&buf).Report(context.Background(), sampleOpportunity())

	out := buf.String()
	for _, want := range []string{
		"ARBITRAGE OPPORTUNITY DETECTED",
		"Pair:           EURC/EUR",
		"Direction:      SELL (tracked above peg)",
		"Tracked:        1.0200000",
		"Deviation:      200 bps",
		"TWAP:           1.0000000 (SELL_SIGNAL)",
		"Profit/unit:    0.0199200 (195 bps)",
		"Venues:         aqua, soroswap",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleReporter_ReportExecution(t *testing.T) {
	var buf bytes.Buffer
	opp := sampleOpportunity().Base
	NewConsoleReporter(&buf).ReportExecution(context.Background(), execDomain.Execution{
		Opportunity:    opp,
		ExecutedAmount: asset.Units(1_000),
		Profit:         asset.Units(2),
		GasCost:        112_500,
		Timestamp:      opp.DetectedAt,
		Status:         execDomain.StatusSuccess,
	})

	want := "[12:00:00] EXECUTED EURC/EUR SUCCESS amount=1000.0000000 profit=2.0000000 gas=0.0112500\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(logger.New(&buf, logger.LevelDebug, "test", nil))
	ctx := context.Background()

	r.Report(ctx, sampleOpportunity())
	r.ReportExecution(ctx, execDomain.Execution{Opportunity: sampleOpportunity().Base, Status: execDomain.StatusSwapFailed})
	r.ReportScan(ctx, 42, 3, 1)

	out := buf.String()
	for _, want := range []string{`"opportunity"`, `"deviation_bps":200`, `"execution failed"`, `"SWAP_FAILED"`, `"scan complete"`, `"sequence":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}
