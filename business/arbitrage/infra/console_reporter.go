// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/KPR-V/stellar/business/arbitrage/app"
	"github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

const rule = "================================================================================"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a ConsoleReporter writing to out, or stdout when
// out is nil.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

// Report outputs an arbitrage opportunity to the console.
func (r *ConsoleReporter) Report(_ context.Context, opp domain.EnhancedOpportunity) {
	b := opp.Base
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Detected:       %s\n", b.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", b.Pair.String())
	fmt.Fprintf(r.out, "Direction:      %s\n", b.Direction.String())
	fmt.Fprintln(r.out, strings.Repeat("-", len(rule)))
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Tracked:        %s\n", b.StablePrice)
	fmt.Fprintf(r.out, "  Reference:      %s\n", b.FiatPrice)
	fmt.Fprintf(r.out, "  Deviation:      %d bps\n", b.DeviationBps)
	if opp.TWAPPrice > 0 {
		fmt.Fprintf(r.out, "  TWAP:           %s (%s)\n", opp.TWAPPrice, opp.Signal)
	}
	fmt.Fprintln(r.out, strings.Repeat("-", len(rule)))
	fmt.Fprintln(r.out, "ESTIMATE")
	fmt.Fprintf(r.out, "  Profit/unit:    %s (%d bps)\n", b.EstimatedProfit, b.ProfitBps())
	fmt.Fprintf(r.out, "  Confidence:     %d\n", opp.Confidence)
	fmt.Fprintf(r.out, "  Max size:       %s\n", opp.MaxTradeSize)
	fmt.Fprintf(r.out, "  Venues:         %s\n", venueNames(opp.Venues))
	fmt.Fprintln(r.out, rule)
}

// ReportExecution outputs the result of an auto-executed trade.
func (r *ConsoleReporter) ReportExecution(_ context.Context, e execDomain.Execution) {
	fmt.Fprintf(r.out, "[%s] EXECUTED %s %s amount=%s profit=%s gas=%s\n",
		e.Timestamp.Format("15:04:05"), e.Opportunity.Pair.String(), e.Status,
		e.ExecutedAmount, e.Profit, e.GasCost)
}

// ReportScan outputs a one-line scan summary.
func (r *ConsoleReporter) ReportScan(_ context.Context, sequence uint64, scanned, found int) {
	fmt.Fprintf(r.out, "[%s] ledger #%d: scanned %d pairs, %d opportunities\n",
		time.Now().Format("15:04:05"), sequence, scanned, found)
}

func venueNames(venues []domain.Venue) string {
	if len(venues) == 0 {
		return "-"
	}
	names := make([]string, len(venues))
	for i, v := range venues {
		names[i] = v.Name
	}
	return strings.Join(names, ", ")
}
