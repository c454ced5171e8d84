package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
)

func newTestProvider(t *testing.T, cfg ProviderConfig) *Provider {
	t.Helper()
	if cfg.WebSocketURL == "" {
		cfg.WebSocketURL = "ws://127.0.0.1:1/unused"
	}
	p, err := NewProvider(cfg, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestDecodeTickers(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want int
	}{
		{"array", `[{"e":"24hrMiniTicker","E":1,"s":"XLMUSDT","c":"0.12"},{"e":"24hrMiniTicker","E":1,"s":"BTCUSDT","c":"65000.1"}]`, 2},
		{"single", `{"e":"24hrMiniTicker","E":1,"s":"XLMUSDT","c":"0.12"}`, 1},
		{"combined", `{"stream":"xlmusdt@miniTicker","data":{"e":"24hrMiniTicker","E":1,"s":"XLMUSDT","c":"0.12"}}`, 1},
		{"subscription ack", `{"result":null,"id":1}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evs, err := decodeTickers([]byte(tt.msg))
			if err != nil {
				t.Fatal(err)
			}
			if len(evs) != tt.want {
				t.Fatalf("got %d events, want %d", len(evs), tt.want)
			}
		})
	}
	if _, err := decodeTickers([]byte(`[{`)); err == nil {
		t.Error("malformed array should fail")
	}
}

func TestProvider_WindowAndTWAP(t *testing.T) {
	p := newTestProvider(t, ProviderConfig{Symbols: []string{"xlmusdt"}, Window: 3, StaleTimeout: time.Minute})
	now := time.UnixMilli(1_700_000_000_000)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	for i, c := range []string{"0.10", "0.11", "0.12", "0.13"} {
		msg := `[{"e":"24hrMiniTicker","E":` + strconv.FormatInt(now.Add(-time.Duration(10-i)*time.Second).UnixMilli(), 10) + `,"s":"XLMUSDT","c":"` + c + `"},{"e":"24hrMiniTicker","E":1,"s":"DOGEUSDT","c":"1"}]`
		p.handleMessage(ctx, []byte(msg))
	}

	q, ok, err := p.LastPrice(ctx, asset.Symbol("XLMUSDT"))
	if err != nil || !ok || q.Price != 1_300_000 {
		t.Fatalf("LastPrice = %v %v %v", q, ok, err)
	}

	h, ok, _ := p.Prices(ctx, asset.Symbol("XLMUSDT"), 0)
	if !ok || len(h) != 3 || h[0] != 1_100_000 {
		t.Fatalf("window = %v", h)
	}

	twap, ok, _ := p.TWAP(ctx, asset.Symbol("XLMUSDT"), 2)
	if !ok || twap != 1_250_000 {
		t.Fatalf("TWAP(2) = %d", twap)
	}

	if _, ok, _ := p.LastPrice(ctx, asset.Symbol("DOGEUSDT")); ok {
		t.Fatal("untracked symbol should have no data")
	}
	if _, ok, _ := p.LastPrice(ctx, asset.Symbol("XLM")); ok {
		t.Fatal("bare symbol is not a Binance market")
	}
}

func TestProvider_StaleUsesHTTPFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tickerPriceEndpoint || r.URL.Query().Get("symbol") != "XLMUSDT" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
			return
		}
		json.NewEncoder(w).Encode(TickerPriceResponse{Symbol: "XLMUSDT", Price: "0.1500"})
	}))
	defer srv.Close()

	p := newTestProvider(t, ProviderConfig{
		Symbols:        []string{"XLMUSDT", "BADUSDT"},
		StaleTimeout:   time.Second,
		EnableFallback: true,
		HTTPURL:        srv.URL,
	})
	ctx := context.Background()

	q, ok, err := p.LastPrice(ctx, asset.Symbol("XLMUSDT"))
	if err != nil || !ok || q.Price != 1_500_000 {
		t.Fatalf("fallback LastPrice = %v %v %v", q, ok, err)
	}

	if _, _, err := p.LastPrice(ctx, asset.Symbol("BADUSDT")); err == nil {
		t.Fatal("API error should surface")
	}
}

func TestProvider_StreamsFromServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		c.Write(r.Context(), websocket.MessageText,
			[]byte(`[{"e":"24hrMiniTicker","E":1700000000000,"s":"BTCUSDT","c":"65000.5"}]`))
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := newTestProvider(t, ProviderConfig{
		WebSocketURL: "ws" + srv.URL[len("http"):],
		Symbols:      []string{"BTCUSDT"},
		StaleTimeout: 100 * 365 * 24 * time.Hour,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if q, ok, _ := p.LastPrice(ctx, asset.Symbol("BTCUSDT")); ok {
			if q.Price != 650_005_000_000 {
				t.Fatalf("price = %d", q.Price)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("ticker never arrived")
}
