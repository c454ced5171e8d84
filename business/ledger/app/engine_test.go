package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	execDomain "github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/business/ledger/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const (
	admin  asset.Address = "GADMIN"
	keeper asset.Address = "GKEEPER"
	gov    asset.Address = "GGOV"
	alice  asset.Address = "GALICE"
	bob    asset.Address = "GBOB"
	usdc   asset.Address = "CUSDC"
)

type fakeStore struct {
	snapshot *domain.State
	execs    []execDomain.Execution
	fail     error
}

func (f *fakeStore) LoadSnapshot(context.Context) (*domain.State, bool, error) {
	if f.snapshot == nil {
		return nil, false, nil
	}
	return f.snapshot.Clone(), true, nil
}

func (f *fakeStore) SaveSnapshot(_ context.Context, s *domain.State) error {
	if f.fail != nil {
		return f.fail
	}
	f.snapshot = s.Clone()
	return nil
}

func (f *fakeStore) AppendExecutions(_ context.Context, execs []execDomain.Execution) error {
	if f.fail != nil {
		return f.fail
	}
	f.execs = append(f.execs, execs...)
	return nil
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e, err := NewEngine(logger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func initialized(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := newEngine(t, opts...)
	cfg := domain.Config{MinProfitBps: 50, MaxTradeSize: asset.Units(10_000), SlippageToleranceBps: 100, Enabled: true}
	if err := e.Initialize(context.Background(), admin, cfg, domain.Oracles{Forex: "CFX", Crypto: "CCR", Native: "CNT"}, "CRISK"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return e
}

func TestEngine_InitializeOnce(t *testing.T) {
	e := initialized(t)

	err := e.Initialize(context.Background(), admin, domain.Config{}, domain.Oracles{}, "")
	if !apperror.HasCode(err, apperror.CodeAlreadyInitialized) {
		t.Fatalf("second Initialize err = %v", err)
	}
	got, err := e.Admin()
	if err != nil || got != admin {
		t.Fatalf("Admin() = %s, %v", got, err)
	}
	if o := e.Oracles(); o.Forex != "CFX" || o.Native != "CNT" {
		t.Errorf("Oracles() = %+v", o)
	}
}

func TestEngine_AdminBeforeInitialize(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Admin(); !apperror.HasCode(err, apperror.CodeNotInitialized) {
		t.Errorf("Admin() err = %v", err)
	}
	if err := e.AddKeeper(context.Background(), admin, keeper); !apperror.HasCode(err, apperror.CodeNotInitialized) {
		t.Errorf("AddKeeper err = %v", err)
	}
}

func TestEngine_AdminOnlyMutators(t *testing.T) {
	ctx := context.Background()
	pair := arbDomain.TradingPair{FiatSymbol: "EUR", StableSymbol: "EURC", StableAddress: "CEURC", TargetPeg: 10000, ThresholdBps: 25}
	venue := domain.Venue{Name: "soroswap", Address: "CROUTER", Enabled: true, FeeBps: 30}

	ops := []struct {
		name string
		run  func(e *Engine, caller asset.Address) error
	}{
		{"add keeper", func(e *Engine, c asset.Address) error { return e.AddKeeper(ctx, c, keeper) }},
		{"add pair", func(e *Engine, c asset.Address) error { return e.AddPair(ctx, c, pair) }},
		{"add crypto pair", func(e *Engine, c asset.Address) error { return e.AddCryptoPair(ctx, c, "BTC", "ETH", "CETH", 50) }},
		{"add venue", func(e *Engine, c asset.Address) error { return e.AddVenue(ctx, c, venue) }},
		{"update config", func(e *Engine, c asset.Address) error { return e.UpdateConfig(ctx, c, domain.Config{}) }},
		{"emergency stop", func(e *Engine, c asset.Address) error { return e.EmergencyStop(ctx, c) }},
		{"transfer admin", func(e *Engine, c asset.Address) error { return e.TransferAdmin(ctx, c, bob) }},
		{"set governance", func(e *Engine, c asset.Address) error { return e.SetGovernance(ctx, c, gov) }},
	}

	for _, op := range ops {
		t.Run(op.name, func(t *testing.T) {
			e := initialized(t)
			before := e.Snapshot()

			if err := op.run(e, alice); !apperror.HasCode(err, apperror.CodeUnauthorized) {
				t.Fatalf("non-admin err = %v", err)
			}
			if !reflect.DeepEqual(before, e.Snapshot()) {
				t.Fatal("rejected call changed state")
			}
			if err := op.run(e, admin); err != nil {
				t.Fatalf("admin err = %v", err)
			}
		})
	}
}

func TestEngine_Governance(t *testing.T) {
	ctx := context.Background()
	e := initialized(t)

	if err := e.UpdateConfigGov(ctx, gov, domain.Config{}); !apperror.HasCode(err, apperror.CodeUnauthorized) {
		t.Fatalf("unset governance err = %v", err)
	}
	if err := e.SetGovernance(ctx, admin, gov); err != nil {
		t.Fatalf("SetGovernance: %v", err)
	}
	if err := e.SetGovernance(ctx, admin, bob); !apperror.HasCode(err, apperror.CodeGovernanceAlreadySet) {
		t.Fatalf("second SetGovernance err = %v", err)
	}

	cfg := domain.Config{MaxTradeSize: asset.Units(5), Enabled: true}
	if err := e.UpdateConfigGov(ctx, gov, cfg); err != nil {
		t.Fatalf("UpdateConfigGov: %v", err)
	}
	if got := e.Config(); got != cfg {
		t.Errorf("Config() = %+v", got)
	}
	if err := e.AddVenueGov(ctx, admin, domain.Venue{Name: "v", Address: "CV", Enabled: true}); err != nil {
		t.Errorf("admin may use governance mutators: %v", err)
	}
	if err := e.AddVenueGov(ctx, alice, domain.Venue{Name: "v", Address: "CV"}); !apperror.HasCode(err, apperror.CodeUnauthorized) {
		t.Errorf("stranger err = %v", err)
	}
}

func TestEngine_Pairs(t *testing.T) {
	ctx := context.Background()
	e := initialized(t)

	eurc := arbDomain.TradingPair{FiatSymbol: "EUR", StableSymbol: "EURC", TargetPeg: 10000, ThresholdBps: 25}
	if err := e.AddPair(ctx, admin, eurc); err != nil {
		t.Fatal(err)
	}
	eurc.ThresholdBps = 40
	if err := e.AddPair(ctx, admin, eurc); err != nil {
		t.Fatal(err)
	}
	if err := e.AddCryptoPair(ctx, admin, "BTC", "ETH", "CETH", 50); err != nil {
		t.Fatal(err)
	}

	pairs := e.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("Pairs() = %d, want 2 (same legs replace)", len(pairs))
	}
	if pairs[0].ThresholdBps != 40 {
		t.Errorf("threshold = %d, want replaced 40", pairs[0].ThresholdBps)
	}

	if err := e.PausePair(ctx, admin, "EURC"); err != nil {
		t.Fatal(err)
	}
	if e.EnhancedPairs()[0].Enabled {
		t.Error("EURC still enabled after pause")
	}
	if err := e.PausePair(ctx, admin, "GBPC"); !apperror.HasCode(err, apperror.CodePairNotFound) {
		t.Errorf("unknown pair err = %v", err)
	}
}

func TestEngine_EmergencyStop(t *testing.T) {
	e := initialized(t)
	if err := e.EmergencyStop(context.Background(), admin); err != nil {
		t.Fatal(err)
	}
	if e.Config().Enabled {
		t.Error("config still enabled")
	}
}

func TestEngine_TransactRollsBackOnError(t *testing.T) {
	e := initialized(t)
	before := e.Snapshot()

	errBoom := errors.New("boom")
	err := e.Transact(context.Background(), "test", func(tx *Tx) error {
		tx.State.Config.Enabled = false
		tx.Record(execDomain.Execution{Status: execDomain.StatusSuccess, Timestamp: tx.Now}, alice)
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatal("failed transaction leaked writes")
	}
}

func TestEngine_TransactPersists(t *testing.T) {
	store := &fakeStore{}
	e := initialized(t, WithStore(store))

	err := e.Transact(context.Background(), "test", func(tx *Tx) error {
		tx.Record(execDomain.Execution{Status: execDomain.StatusSuccess, ExecutedAmount: 7, Timestamp: tx.Now}, "")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.execs) != 1 || store.execs[0].ExecutedAmount != 7 {
		t.Errorf("stored executions = %+v", store.execs)
	}
	if store.snapshot == nil || len(store.snapshot.History) != 1 {
		t.Fatal("snapshot not saved")
	}

	restored := newEngine(t, WithStore(store))
	ok, err := restored.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("Load() = %v, %v", ok, err)
	}
	if got, _ := restored.Admin(); got != admin {
		t.Errorf("restored admin = %s", got)
	}
	if len(restored.History(0)) != 1 {
		t.Error("restored history missing")
	}
}

func TestEngine_StoreFailureDiscardsCommit(t *testing.T) {
	store := &fakeStore{}
	e := initialized(t, WithStore(store))
	store.fail = errors.New("disk full")

	err := e.UpdateConfig(context.Background(), admin, domain.Config{})
	if !apperror.HasCode(err, apperror.CodeStoreFailed) {
		t.Fatalf("err = %v", err)
	}
	if !e.Config().Enabled {
		t.Error("unpersisted commit became visible")
	}
}

func TestEngine_HistoryAndMetrics(t *testing.T) {
	e := initialized(t)

	for i := range 105 {
		status := execDomain.StatusSuccess
		if i%5 == 0 {
			status = execDomain.StatusSwapFailed
		}
		err := e.Transact(context.Background(), "test", func(tx *Tx) error {
			tx.Record(execDomain.Execution{
				ExecutedAmount: asset.Amount(i),
				Profit:         1,
				Timestamp:      tx.Now,
				Status:         status,
			}, "")
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	all := e.History(0)
	if len(all) != execDomain.HistoryLimit {
		t.Fatalf("history = %d", len(all))
	}
	if all[0].ExecutedAmount != 5 || all[99].ExecutedAmount != 104 {
		t.Errorf("history window = [%d..%d], want [5..104]", all[0].ExecutedAmount, all[99].ExecutedAmount)
	}
	if last := e.History(3); len(last) != 3 || last[2].ExecutedAmount != 104 {
		t.Errorf("History(3) = %+v", last)
	}

	m := e.Metrics(1)
	if m.TotalTrades != 100 || m.SuccessfulTrades != 80 || m.SuccessRateBps != 8000 {
		t.Errorf("Metrics(1) = %+v", m)
	}
}
