// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"time"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	blockchainDomain "github.com/KPR-V/stellar/business/blockchain/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	ledgerDomain "github.com/KPR-V/stellar/business/ledger/domain"
	pricingApp "github.com/KPR-V/stellar/business/pricing/app"
	pricingDomain "github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// PriceGateway resolves quotes across price sources and exposes the oracle
// clients behind them.
type PriceGateway interface {
	Fetch(ctx context.Context, sources []pricingDomain.Source, symbol string, primary, fallback asset.Address) (pricingDomain.Quote, bool)
	Oracle(addr asset.Address) (pricingApp.PriceOracle, bool)
	Route(src pricingDomain.Source, primary, fallback asset.Address) asset.Address
}

// Registry is the engine state the scanner reads.
type Registry interface {
	Config() ledgerDomain.Config
	Oracles() ledgerDomain.Oracles
	EnhancedPairs() []domain.EnhancedPair
	EnabledVenues() []domain.Venue
}

// PoolExecutor runs protocol-funded trades.
type PoolExecutor interface {
	ExecutePool(ctx context.Context, caller asset.Address, opp domain.Opportunity, amount asset.Amount) (execDomain.Execution, error)
}

// SequenceWatcher emits ledger sequences as they advance.
type SequenceWatcher interface {
	Watch(ctx context.Context, interval time.Duration) <-chan blockchainDomain.Sequence
}

// Reporter receives scan results.
type Reporter interface {
	// Report is called once per detected opportunity.
	Report(ctx context.Context, opp domain.EnhancedOpportunity)

	// ReportExecution is called for every auto-executed opportunity.
	ReportExecution(ctx context.Context, e execDomain.Execution)

	// ReportScan summarizes one pass over the registered pairs.
	ReportScan(ctx context.Context, sequence uint64, scanned, found int)
}
