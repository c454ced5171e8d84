package infra

import (
	"context"

	"github.com/KPR-V/stellar/business/arbitrage/app"
	"github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/logger"
)

var _ app.Reporter = (*LogReporter)(nil)

// LogReporter implements Reporter as structured log lines.
type LogReporter struct {
	log logger.LoggerInterface
}

// NewLogReporter creates a LogReporter.
func NewLogReporter(log logger.LoggerInterface) *LogReporter {
	return &LogReporter{log: log.With("component", "reporter")}
}

func (r *LogReporter) Report(ctx context.Context, opp domain.EnhancedOpportunity) {
	b := opp.Base
	r.log.Info(ctx, "opportunity",
		"pair", b.Pair.String(),
		"direction", string(b.Direction),
		"stable_price", b.StablePrice.String(),
		"fiat_price", b.FiatPrice.String(),
		"deviation_bps", b.DeviationBps,
		"estimated_profit", b.EstimatedProfit.String(),
		"profit_bps", b.ProfitBps(),
		"twap", opp.TWAPPrice.String(),
		"signal", string(opp.Signal),
		"confidence", opp.Confidence,
		"max_trade_size", opp.MaxTradeSize.String(),
		"venues", len(opp.Venues),
	)
}

func (r *LogReporter) ReportExecution(ctx context.Context, e execDomain.Execution) {
	args := []any{
		"pair", e.Opportunity.Pair.String(),
		"mode", string(e.Mode),
		"status", string(e.Status),
		"amount", e.ExecutedAmount.String(),
		"profit", e.Profit.String(),
		"gas", e.GasCost.String(),
	}
	if e.Status != execDomain.StatusSuccess {
		r.log.Warn(ctx, "execution failed", args...)
		return
	}
	r.log.Info(ctx, "execution succeeded", args...)
}

func (r *LogReporter) ReportScan(ctx context.Context, sequence uint64, scanned, found int) {
	r.log.Debug(ctx, "scan complete", "sequence", sequence, "pairs", scanned, "opportunities", found)
}
