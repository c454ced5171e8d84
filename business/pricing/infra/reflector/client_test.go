package reflector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

const oracleAddr asset.Address = "CCSSOHTBL3LEWUCBBEB5NJFC2OKFRC74OWEIJIZLRJBGAAU4VMU5NV4W"

func newTestClient(t *testing.T, h http.HandlerFunc, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{Address: oracleAddr, BaseURL: srv.URL, CacheTTL: ttl}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClient_LastPrice(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/assets/symbol:EUR/lastprice" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"price":"1.08123456789","timestamp":1700000000}`))
	}, time.Minute)

	ctx := context.Background()
	q, ok, err := c.LastPrice(ctx, asset.Symbol("EUR"))
	if err != nil || !ok {
		t.Fatalf("LastPrice: ok=%v err=%v", ok, err)
	}
	if q.Price != 10_812_345 {
		t.Errorf("price = %d, want truncated 10812345", q.Price)
	}
	if q.Timestamp.Unix() != 1_700_000_000 {
		t.Errorf("timestamp = %v", q.Timestamp)
	}

	if _, _, err := c.LastPrice(ctx, asset.Symbol("EUR")); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("second call should hit the cache, server calls = %d", calls.Load())
	}
}

func TestClient_NoData(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"null body", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("null")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.h, 0)
			_, ok, err := c.LastPrice(context.Background(), asset.Symbol("XAU"))
			if ok || err != nil {
				t.Fatalf("ok=%v err=%v, want no data without error", ok, err)
			}
		})
	}
}

func TestClient_ServerErrorIsExternal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"code":"UPSTREAM","message":"rpc timeout"}`))
	}, 0)

	_, ok, err := c.LastPrice(context.Background(), asset.Symbol("EUR"))
	if ok || !apperror.HasCode(err, apperror.CodeOracleUnavailable) {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		c.LastPrice(ctx, asset.Symbol("EUR"))
	}
	_, _, err := c.LastPrice(ctx, asset.Symbol("EUR"))
	if !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if calls.Load() != 5 {
		t.Errorf("server calls = %d, want 5", calls.Load())
	}
}

func TestClient_TWAPPricesCross(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/assets/symbol:USDC/twap":
			if r.URL.Query().Get("periods") != "12" {
				t.Errorf("periods = %s", r.URL.Query().Get("periods"))
			}
			w.Write([]byte(`{"price":"0.9995","timestamp":1700000000}`))
		case "/assets/symbol:USDC/prices":
			w.Write([]byte(`{"prices":[{"price":"0.999","timestamp":1},{"price":"1.001","timestamp":2}]}`))
		case "/cross":
			if r.URL.Query().Get("base") != "symbol:USDC" || r.URL.Query().Get("quote") != "symbol:EUR" {
				t.Errorf("cross query = %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"price":"0.925","timestamp":1700000000}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, 0)

	ctx := context.Background()
	twap, ok, err := c.TWAP(ctx, asset.Symbol("USDC"), 12)
	if err != nil || !ok || twap != 9_995_000 {
		t.Fatalf("TWAP = %d %v %v", twap, ok, err)
	}

	prices, ok, err := c.Prices(ctx, asset.Symbol("USDC"), 2)
	if err != nil || !ok || len(prices) != 2 || prices[1] != 10_010_000 {
		t.Fatalf("Prices = %v %v %v", prices, ok, err)
	}

	q, ok, err := c.CrossPrice(ctx, asset.Symbol("USDC"), asset.Symbol("EUR"))
	if err != nil || !ok || q.Price != 9_250_000 {
		t.Fatalf("CrossPrice = %v %v %v", q, ok, err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{Address: oracleAddr}, logger.NewNop()); err == nil {
		t.Fatal("expected configuration error")
	}
}
