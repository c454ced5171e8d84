package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/pricing/app"
	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/wsconn"
)

const (
	tracerName = "github.com/KPR-V/stellar/business/pricing/infra/binance"
	meterName  = "github.com/KPR-V/stellar/business/pricing/infra/binance"

	BaseWSURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"

	defaultWindow = 120
)

var _ app.PriceOracle = (*Provider)(nil)

// ProviderConfig holds configuration for the Binance oracle.
type ProviderConfig struct {
	WebSocketURL   string        // empty = BaseWSURL
	HTTPURL        string        // empty = BaseAPIURL
	Symbols        []string      // tracked symbols, e.g. XLMUSDT
	Window         int           // closes kept per symbol for TWAP
	StaleTimeout   time.Duration // age after which the REST fallback is used
	EnableFallback bool
}

type tickerState struct {
	price  asset.Amount
	ts     time.Time
	closes []asset.Amount
}

type providerMetrics struct {
	tickers      metric.Int64Counter
	parseErrors  metric.Int64Counter
	httpFallback metric.Int64Counter
}

// Provider keeps the latest close and a bounded close window per symbol.
type Provider struct {
	config     ProviderConfig
	logger     logger.LoggerInterface
	ws         *wsconn.Client
	httpClient *HTTPClient

	mu      sync.RWMutex
	tickers map[string]*tickerState
	symbols map[string]struct{}

	now     func() time.Time
	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates the oracle. Connect must be called to start streaming.
func NewProvider(cfg ProviderConfig, log logger.LoggerInterface) (*Provider, error) {
	wsURL := cfg.WebSocketURL
	if wsURL == "" {
		wsURL = BaseWSURL
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.StaleTimeout <= 0 {
		cfg.StaleTimeout = 30 * time.Second
	}

	ws, err := wsconn.New(wsconn.DefaultConfig(wsURL, "binance"))
	if err != nil {
		return nil, err
	}

	var httpClient *HTTPClient
	if cfg.EnableFallback {
		httpClient, err = NewHTTPClient(cfg.HTTPURL, log)
		if err != nil {
			log.Warn(context.Background(), "failed to create HTTP fallback client", "error", err)
		}
	}

	p := &Provider{
		config:     cfg,
		logger:     log,
		ws:         ws,
		httpClient: httpClient,
		tickers:    make(map[string]*tickerState),
		symbols:    make(map[string]struct{}),
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}
	for _, s := range cfg.Symbols {
		p.symbols[strings.ToUpper(s)] = struct{}{}
	}
	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	ws.OnMessage(p.handleMessage)
	ws.OnStateChange(func(s wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "binance stream state changed", "state", string(s), "error", err)
			return
		}
		log.Info(context.Background(), "binance stream state changed", "state", string(s))
	})

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	p.metrics = &providerMetrics{}

	p.metrics.tickers, err = meter.Int64Counter(
		"binance_tickers_total",
		metric.WithDescription("Mini-ticker updates applied"),
		metric.WithUnit("{ticker}"),
	)
	if err != nil {
		return err
	}
	p.metrics.parseErrors, err = meter.Int64Counter(
		"binance_parse_errors_total",
		metric.WithDescription("Undecodable stream messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return err
	}
	p.metrics.httpFallback, err = meter.Int64Counter(
		"binance_http_fallback_total",
		metric.WithDescription("Prices served by the REST fallback"),
		metric.WithUnit("{request}"),
	)
	return err
}

// Connect opens the stream.
func (p *Provider) Connect(ctx context.Context) error {
	return p.ws.Connect(ctx)
}

// Close closes the stream.
func (p *Provider) Close() error {
	return p.ws.Close()
}

// Connected reports the stream state.
func (p *Provider) Connected() bool {
	return p.ws.IsConnected()
}

func (p *Provider) handleMessage(ctx context.Context, msg []byte) {
	evs, err := decodeTickers(msg)
	if err != nil {
		p.metrics.parseErrors.Add(ctx, 1)
		p.logger.Debug(ctx, "failed to decode ticker message", "error", err)
		return
	}
	for _, ev := range evs {
		p.apply(ctx, ev)
	}
}

func (p *Provider) apply(ctx context.Context, ev MiniTickerEvent) {
	sym := strings.ToUpper(ev.Symbol)
	if _, tracked := p.symbols[sym]; !tracked {
		return
	}
	price, err := parseTickerPrice(ev.Close)
	if err != nil {
		p.metrics.parseErrors.Add(ctx, 1)
		return
	}
	p.record(sym, price, ev.Timestamp())
	p.metrics.tickers.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", sym)))
}

func (p *Provider) record(sym string, price asset.Amount, ts time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.tickers[sym]
	if !ok {
		st = &tickerState{}
		p.tickers[sym] = st
	}
	st.price = price
	st.ts = ts
	st.closes = append(st.closes, price)
	if over := len(st.closes) - p.config.Window; over > 0 {
		st.closes = append(st.closes[:0], st.closes[over:]...)
	}
}

func (p *Provider) snapshot(sym string) (tickerState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, ok := p.tickers[sym]
	if !ok {
		return tickerState{}, false
	}
	out := *st
	out.closes = append([]asset.Amount(nil), st.closes...)
	return out, true
}

// LastPrice serves symbol refs only. Untracked symbols have no data; tracked
// symbols whose stream data is missing or stale use the REST fallback.
func (p *Provider) LastPrice(ctx context.Context, ref asset.Ref) (domain.Quote, bool, error) {
	if ref.Kind != asset.RefSymbol {
		return domain.Quote{}, false, nil
	}
	sym := strings.ToUpper(ref.Value)
	if _, tracked := p.symbols[sym]; !tracked {
		return domain.Quote{}, false, nil
	}

	ctx, span := p.tracer.Start(ctx, "binance.last_price",
		trace.WithAttributes(attribute.String("symbol", sym)),
	)
	defer span.End()

	st, ok := p.snapshot(sym)
	if ok && p.now().Sub(st.ts) <= p.config.StaleTimeout {
		return domain.Quote{Price: st.price, Timestamp: st.ts}, true, nil
	}
	span.SetAttributes(attribute.Bool("stale", true))

	if p.httpClient == nil {
		if ok {
			return domain.Quote{Price: st.price, Timestamp: st.ts}, true, nil
		}
		return domain.Quote{}, false, nil
	}

	p.metrics.httpFallback.Add(ctx, 1, metric.WithAttributes(attribute.String("symbol", sym)))
	resp, err := p.httpClient.TickerPrice(ctx, sym)
	if err != nil {
		span.RecordError(err)
		return domain.Quote{}, false, err
	}
	price, err := parseTickerPrice(resp.Price)
	if err != nil {
		return domain.Quote{}, false, err
	}
	now := p.now()
	p.record(sym, price, now)
	return domain.Quote{Price: price, Timestamp: now}, true, nil
}

// Prices returns up to records closes from the stream window.
func (p *Provider) Prices(_ context.Context, ref asset.Ref, records uint32) ([]asset.Amount, bool, error) {
	if ref.Kind != asset.RefSymbol {
		return nil, false, nil
	}
	st, ok := p.snapshot(strings.ToUpper(ref.Value))
	if !ok || len(st.closes) == 0 {
		return nil, false, nil
	}
	h := st.closes
	if records > 0 && int(records) < len(h) {
		h = h[len(h)-int(records):]
	}
	return h, true, nil
}

func (p *Provider) TWAP(ctx context.Context, ref asset.Ref, periods uint32) (asset.Amount, bool, error) {
	h, ok, err := p.Prices(ctx, ref, periods)
	if err != nil || !ok {
		return 0, false, err
	}
	return domain.Mean(h), true, nil
}

func (p *Provider) CrossPrice(ctx context.Context, base, quote asset.Ref) (domain.Quote, bool, error) {
	bq, ok, err := p.LastPrice(ctx, base)
	if err != nil || !ok {
		return domain.Quote{}, false, err
	}
	qq, ok, err := p.LastPrice(ctx, quote)
	if err != nil || !ok {
		return domain.Quote{}, false, err
	}
	return domain.Cross(bq, qq)
}

func parseTickerPrice(s string) (asset.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return asset.FromDecimalTruncate(d)
}
