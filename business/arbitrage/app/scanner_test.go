package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KPR-V/stellar/business/arbitrage/domain"
	blockchainDomain "github.com/KPR-V/stellar/business/blockchain/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	pricingDomain "github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/business/pricing/infra/memory"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const keeper asset.Address = "GKEEPER"

type poolCall struct {
	caller asset.Address
	opp    domain.Opportunity
	amount asset.Amount
}

type fakeExecutor struct {
	calls []poolCall
}

func (x *fakeExecutor) ExecutePool(
	_ context.Context, caller asset.Address, opp domain.Opportunity, amount asset.Amount,
) (execDomain.Execution, error) {
	x.calls = append(x.calls, poolCall{caller, opp, amount})
	return execDomain.Execution{Opportunity: opp, ExecutedAmount: amount, Status: execDomain.StatusSuccess}, nil
}

type recordingReporter struct {
	mu         sync.Mutex
	opps       []domain.EnhancedOpportunity
	executions []execDomain.Execution
	scans      []uint64
	scanned    chan uint64
}

func (r *recordingReporter) Report(_ context.Context, opp domain.EnhancedOpportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps = append(r.opps, opp)
}

func (r *recordingReporter) ReportExecution(_ context.Context, e execDomain.Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions = append(r.executions, e)
}

func (r *recordingReporter) ReportScan(_ context.Context, sequence uint64, _, _ int) {
	r.mu.Lock()
	r.scans = append(r.scans, sequence)
	r.mu.Unlock()
	if r.scanned != nil {
		r.scanned <- sequence
	}
}

type chanWatcher chan blockchainDomain.Sequence

func (w chanWatcher) Watch(context.Context, time.Duration) <-chan blockchainDomain.Sequence {
	return w
}

func newScanner(t *testing.T, f *fixture, auto bool, exec PoolExecutor, rep Reporter, seqs SequenceWatcher) *Scanner {
	t.Helper()
	return newScannerWithConfig(t, f, ScannerConfig{Interval: time.Hour, AutoExecute: auto, Keeper: keeper}, exec, rep, seqs)
}

func newScannerWithConfig(
	t *testing.T, f *fixture, cfg ScannerConfig, exec PoolExecutor, rep Reporter, seqs SequenceWatcher,
) *Scanner {
	t.Helper()
	strategies := NewStrategies(f.gateway, f.registry, logger.NewNop())
	s, err := NewScanner(
		cfg,
		f.detector, strategies, f.registry, seqs, exec, rep, logger.NewNop(),
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestScanner_AutoExecutes(t *testing.T) {
	f := newFixture(t)
	f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
	exec := &fakeExecutor{}
	rep := &recordingReporter{}

	found := newScanner(t, f, true, exec, rep, nil).ScanAll(context.Background(), 42)

	if len(found) != 1 || len(rep.opps) != 1 {
		t.Fatalf("found = %d reported = %d", len(found), len(rep.opps))
	}
	if len(exec.calls) != 1 {
		t.Fatalf("executions = %d, want 1", len(exec.calls))
	}
	call := exec.calls[0]
	if call.caller != keeper {
		t.Errorf("caller = %s", call.caller)
	}
	// min(pair max position, engine max trade size)
	if call.amount != asset.Units(1_000) {
		t.Errorf("amount = %s, want 1000", call.amount)
	}
	if len(rep.executions) != 1 || rep.executions[0].Status != execDomain.StatusSuccess {
		t.Errorf("reported executions = %+v", rep.executions)
	}
	if len(rep.scans) != 1 || rep.scans[0] != 42 {
		t.Errorf("scans = %v", rep.scans)
	}
}

func TestScanner_SkipsExecution(t *testing.T) {
	tests := []struct {
		name  string
		auto  bool
		setup func(f *fixture)
	}{
		{name: "auto_execute_off", auto: false, setup: func(*fixture) {}},
		{
			name: "profit_below_minimum",
			auto: true,
			setup: func(f *fixture) {
				// profit is 195 bps of the tracked price
				f.registry.cfg.MinProfitBps = 196
			},
		},
		{
			name: "cross_price_invalid",
			auto: true,
			setup: func(f *fixture) {
				f.forex.SetCross(asset.Symbol("EURC"), asset.Symbol("EUR"), 1_1000000, testNow)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
			tt.setup(f)
			exec := &fakeExecutor{}
			rep := &recordingReporter{}

			found := newScanner(t, f, tt.auto, exec, rep, nil).ScanAll(context.Background(), 1)

			if len(found) != 1 {
				t.Fatalf("found = %d, want 1", len(found))
			}
			if len(exec.calls) != 0 {
				t.Fatalf("unexpected execution %+v", exec.calls[0])
			}
		})
	}
}

func TestScanner_ProfitAtMinimumExecutes(t *testing.T) {
	f := newFixture(t)
	f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
	f.registry.cfg.MinProfitBps = 195
	exec := &fakeExecutor{}

	newScanner(t, f, true, exec, &recordingReporter{}, nil).ScanAll(context.Background(), 1)

	if len(exec.calls) != 1 {
		t.Fatalf("executions = %d, want 1", len(exec.calls))
	}
}

func TestScanner_VolatilitySizing(t *testing.T) {
	tests := []struct {
		name    string
		maxRisk uint32
		want    int
		amount  asset.Amount
	}{
		// adj 9000 * 1e6 / 1e8 = 90, size 1000 * 90 / 10000
		{name: "scaled", maxRisk: 1_000_000, want: 1, amount: asset.Units(9)},
		{name: "sized_to_zero", maxRisk: 10_000, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
			exec := &fakeExecutor{}
			cfg := ScannerConfig{Interval: time.Hour, AutoExecute: true, Keeper: keeper, MaxRiskBps: tt.maxRisk}

			newScannerWithConfig(t, f, cfg, exec, &recordingReporter{}, nil).ScanAll(context.Background(), 1)

			if len(exec.calls) != tt.want {
				t.Fatalf("executions = %d, want %d", len(exec.calls), tt.want)
			}
			if tt.want == 1 && exec.calls[0].amount != tt.amount {
				t.Errorf("amount = %s, want %s", exec.calls[0].amount, tt.amount)
			}
		})
	}
}

func TestScanner_TWAPSignal(t *testing.T) {
	tests := []struct {
		name     string
		history  []asset.Amount
		wantTWAP asset.Amount
		want     domain.Signal
	}{
		{name: "above_average", history: []asset.Amount{1_0000000, 1_0000000}, wantTWAP: 1_0000000, want: domain.SignalSell},
		{name: "near_average", history: []asset.Amount{1_0150000, 1_0250000}, wantTWAP: 1_0200000, want: domain.SignalNone},
		{name: "no_history", want: domain.SignalInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
			if tt.history != nil {
				f.crypto.SetHistory(asset.Symbol("EURC"), tt.history...)
			}

			found := newScanner(t, f, false, nil, &recordingReporter{}, nil).ScanAll(context.Background(), 1)

			if len(found) != 1 {
				t.Fatalf("found = %d", len(found))
			}
			if found[0].TWAPPrice != tt.wantTWAP || found[0].Signal != tt.want {
				t.Errorf("twap = %s signal = %s, want %s %s", found[0].TWAPPrice, found[0].Signal, tt.wantTWAP, tt.want)
			}
		})
	}
}

// weightedOracle reports its own time-weighted average instead of the
// plain mean of its records.
type weightedOracle struct {
	*memory.Oracle
	twap asset.Amount
}

func (o weightedOracle) TWAP(context.Context, asset.Ref, uint32) (asset.Amount, bool, error) {
	return o.twap, true, nil
}

func TestScanner_TWAPPriceFromOracle(t *testing.T) {
	f := newFixture(t)
	f.crypto.SetPrice(asset.Symbol("EURC"), 1_0200000, testNow)
	f.crypto.SetHistory(asset.Symbol("EURC"), 1_0000000, 1_0000000)
	f.dir.Register(pricingDomain.CryptoOracle, weightedOracle{Oracle: f.crypto, twap: 1_0050000})

	found := newScanner(t, f, false, nil, &recordingReporter{}, nil).ScanAll(context.Background(), 1)

	if len(found) != 1 {
		t.Fatalf("found = %d", len(found))
	}
	if found[0].TWAPPrice != 1_0050000 {
		t.Errorf("twap = %s, want oracle value 1.0050000", found[0].TWAPPrice)
	}
	// the signal still follows the record history
	if found[0].Signal != domain.SignalSell {
		t.Errorf("signal = %s, want %s", found[0].Signal, domain.SignalSell)
	}
}

func TestScanner_RunScansOnNewSequence(t *testing.T) {
	f := newFixture(t)
	seqs := make(chanWatcher, 1)
	rep := &recordingReporter{scanned: make(chan uint64, 1)}
	s := newScanner(t, f, false, nil, rep, seqs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	seqs <- blockchainDomain.Sequence{Number: 7, ObservedAt: testNow}
	select {
	case n := <-rep.scanned:
		if n != 7 {
			t.Errorf("scanned sequence = %d, want 7", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no scan after new sequence")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop")
	}
}
