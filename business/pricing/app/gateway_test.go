package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/business/pricing/infra/memory"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

var _ PriceOracle = (*memory.Oracle)(nil)

const (
	forexAddr  asset.Address = "CFOREX"
	nativeAddr asset.Address = "CNATIVE"
	pinnedAddr asset.Address = "CPINNED"
)

var now = time.Unix(1_700_000_000, 0)

type countingOracle struct {
	*memory.Oracle
	calls []asset.Ref
}

func (c *countingOracle) LastPrice(ctx context.Context, ref asset.Ref) (domain.Quote, bool, error) {
	c.calls = append(c.calls, ref)
	return c.Oracle.LastPrice(ctx, ref)
}

func newGateway(t *testing.T, dir *Directory) *Gateway {
	t.Helper()
	g, err := NewGateway(dir, domain.DefaultMaxAge, logger.NewNop(), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGateway_RoutesByCategory(t *testing.T) {
	forex, native, crypto := memory.New(), memory.New(), memory.New()
	forex.SetPrice(asset.Symbol("EUR"), 10_800_000, now)
	native.SetPrice(asset.Symbol("EUR"), 10_900_000, now)
	crypto.SetPrice(asset.Symbol("EURUSDT"), 11_000_000, now)

	dir := NewDirectory()
	dir.Register(forexAddr, forex)
	dir.Register(nativeAddr, native)
	dir.Register(domain.CryptoOracle, crypto)
	g := newGateway(t, dir)

	tests := []struct {
		name     string
		category domain.Category
		want     asset.Amount
	}{
		{"forex goes to primary", domain.CategoryForex, 10_800_000},
		{"native goes to fallback", domain.CategoryNativeLedger, 10_900_000},
		{"crypto goes to well-known oracle", domain.CategoryCrypto, 11_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []domain.Source{{Category: tt.category, Mode: domain.BySymbol, Priority: 1}}
			q, ok := g.Fetch(context.Background(), src, "EUR", forexAddr, nativeAddr)
			if !ok || q.Price != tt.want {
				t.Fatalf("Fetch = %v %v, want %d", q.Price, ok, tt.want)
			}
		})
	}
}

func TestGateway_ExplicitAddressWins(t *testing.T) {
	pinned, forex := memory.New(), memory.New()
	pinned.SetPrice(asset.Symbol("GBP"), 12_500_000, now)
	forex.SetPrice(asset.Symbol("GBP"), 1, now)

	dir := NewDirectory()
	dir.Register(pinnedAddr, pinned)
	dir.Register(forexAddr, forex)
	g := newGateway(t, dir)

	src := []domain.Source{{Category: domain.CategoryForex, Address: pinnedAddr}}
	q, ok := g.Fetch(context.Background(), src, "GBP", forexAddr, nativeAddr)
	if !ok || q.Price != 12_500_000 {
		t.Fatalf("Fetch = %v %v", q.Price, ok)
	}
}

func TestGateway_AddressModeQueriesContract(t *testing.T) {
	pinned := memory.New()
	pinned.SetPrice(asset.Contract(pinnedAddr), 7_000_000, now)

	dir := NewDirectory()
	dir.Register(pinnedAddr, pinned)
	g := newGateway(t, dir)

	src := []domain.Source{{Category: domain.CategoryNativeLedger, Mode: domain.ByAddress, Address: pinnedAddr}}
	q, ok := g.Fetch(context.Background(), src, "ignored", forexAddr, nativeAddr)
	if !ok || q.Price != 7_000_000 {
		t.Fatalf("Fetch = %v %v", q.Price, ok)
	}

	src = []domain.Source{{Category: domain.CategoryNativeLedger, Mode: domain.ByAddress}}
	dir.Register(nativeAddr, pinned)
	if _, ok := g.Fetch(context.Background(), src, "ignored", forexAddr, nativeAddr); ok {
		t.Fatal("address mode without address must be skipped")
	}
}

func TestGateway_CryptoVariantsSkipStale(t *testing.T) {
	crypto := &countingOracle{Oracle: memory.New()}
	crypto.SetPrice(asset.Symbol("XLMUSD"), 1_000_000, now.Add(-time.Hour))
	crypto.SetPrice(asset.Symbol("XLM_USD"), 1_100_000, now)

	dir := NewDirectory()
	dir.Register(domain.CryptoOracle, crypto)
	g := newGateway(t, dir)

	src := []domain.Source{{Category: domain.CategoryCrypto}}
	q, ok := g.Fetch(context.Background(), src, "XLM", forexAddr, nativeAddr)
	if !ok || q.Price != 1_100_000 {
		t.Fatalf("Fetch = %v %v", q.Price, ok)
	}

	want := []string{"XLM", "XLMUSD", "XLMUSDT", "XLM_USD"}
	if len(crypto.calls) != len(want) {
		t.Fatalf("calls = %v", crypto.calls)
	}
	for i, w := range want {
		if crypto.calls[i].Value != w {
			t.Errorf("call %d = %s, want %s", i, crypto.calls[i].Value, w)
		}
	}
}

func TestGateway_FallsThroughSources(t *testing.T) {
	forex, native := memory.New(), memory.New()
	forex.SetPrice(asset.Symbol("EUR"), 10_800_000, now.Add(-601*time.Second))
	native.SetError(asset.Symbol("EUR"), errors.New("rpc down"))

	dir := NewDirectory()
	dir.Register(forexAddr, forex)
	dir.Register(nativeAddr, native)
	g := newGateway(t, dir)

	sources := []domain.Source{
		{Category: domain.CategoryForex},
		{Category: domain.CategoryNativeLedger},
		{Category: domain.CategoryForex, Address: "CUNKNOWN"},
	}
	if _, ok := g.Fetch(context.Background(), sources, "EUR", forexAddr, nativeAddr); ok {
		t.Fatal("stale, failing and unresolved sources must all be skipped")
	}

	native.SetError(asset.Symbol("EUR"), nil)
	native.SetPrice(asset.Symbol("EUR"), 10_850_000, now.Add(-600*time.Second))
	q, ok := g.Fetch(context.Background(), sources, "EUR", forexAddr, nativeAddr)
	if !ok || q.Price != 10_850_000 {
		t.Fatalf("Fetch = %v %v", q.Price, ok)
	}
}

func TestGateway_NoSources(t *testing.T) {
	g := newGateway(t, NewDirectory())
	if _, ok := g.Fetch(context.Background(), nil, "EUR", forexAddr, nativeAddr); ok {
		t.Fatal("no sources means no price")
	}
}
