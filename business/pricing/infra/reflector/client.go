// Package reflector implements the PriceOracle port against an HTTP gateway
// that fronts an on-ledger price oracle contract.
package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/pricing/app"
	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/cache"
	"github.com/KPR-V/stellar/internal/circuitbreaker"
	"github.com/KPR-V/stellar/internal/httpclient"
	"github.com/KPR-V/stellar/internal/logger"
	"github.com/KPR-V/stellar/internal/ratelimit"
)

const (
	tracerName = "github.com/KPR-V/stellar/business/pricing/infra/reflector"
	meterName  = "github.com/KPR-V/stellar/business/pricing/infra/reflector"

	defaultTimeout = 5 * time.Second
)

var _ app.PriceOracle = (*Client)(nil)

// Config describes one oracle gateway.
type Config struct {
	Address      asset.Address
	BaseURL      string
	RateLimitRPM int
	CacheTTL     time.Duration
	Timeout      time.Duration
}

type priceRecord struct {
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

type pricesResponse struct {
	Prices []priceRecord `json:"prices"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type clientMetrics struct {
	requests    metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
	noData      metric.Int64Counter
}

// Client queries one oracle gateway.
type Client struct {
	cfg    Config
	log    logger.LoggerInterface
	http   httpclient.Client
	cb     *circuitbreaker.CircuitBreaker[*httpclient.Response]
	prices *cache.Cache[asset.Ref, domain.Quote]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// New creates a client for cfg.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("oracle %s has no base url", cfg.Address)))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc, err := httpclient.New(
		httpclient.WithProviderName("reflector"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithRateLimiter(ratelimit.New("reflector:"+cfg.Address.Short(), cfg.RateLimitRPM)),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		log:    log,
		http:   hc,
		prices: cache.New[asset.Ref, domain.Quote](time.Minute),
		tracer: otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("reflector:" + cfg.Address.Short())
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "oracle circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.cb = circuitbreaker.New[*httpclient.Response](cbCfg)

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	c.metrics = &clientMetrics{}

	c.metrics.requests, err = meter.Int64Counter(
		"oracle_requests_total",
		metric.WithDescription("Oracle gateway requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}
	c.metrics.cacheHits, err = meter.Int64Counter(
		"oracle_cache_hits_total",
		metric.WithDescription("Last price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}
	c.metrics.cacheMisses, err = meter.Int64Counter(
		"oracle_cache_misses_total",
		metric.WithDescription("Last price cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}
	c.metrics.noData, err = meter.Int64Counter(
		"oracle_no_data_total",
		metric.WithDescription("Oracle responses without a price"),
		metric.WithUnit("{response}"),
	)
	return err
}

// Address returns the oracle contract this client fronts.
func (c *Client) Address() asset.Address {
	return c.cfg.Address
}

// Close stops the cache janitor.
func (c *Client) Close() {
	c.prices.Close()
}

func (c *Client) attrs(op string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("oracle", c.cfg.Address.Short()),
		attribute.String("op", op),
	)
}

func (c *Client) LastPrice(ctx context.Context, ref asset.Ref) (domain.Quote, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reflector.last_price",
		trace.WithAttributes(
			attribute.String("oracle", c.cfg.Address.String()),
			attribute.String("asset", ref.String()),
		),
	)
	defer span.End()

	if q, ok := c.prices.Get(ctx, ref); ok {
		c.metrics.cacheHits.Add(ctx, 1, c.attrs("lastprice"))
		span.AddEvent("cache_hit")
		return q, true, nil
	}
	c.metrics.cacheMisses.Add(ctx, 1, c.attrs("lastprice"))

	var rec *priceRecord
	ok, err := c.get(ctx, "lastprice", "/assets/"+url.PathEscape(ref.String())+"/lastprice", nil, &rec)
	if err != nil || !ok || rec == nil {
		c.finish(span, err)
		return domain.Quote{}, false, err
	}

	q, err := rec.quote()
	if err != nil {
		c.finish(span, err)
		return domain.Quote{}, false, err
	}
	if c.cfg.CacheTTL > 0 {
		c.prices.Set(ctx, ref, q, c.cfg.CacheTTL)
	}
	span.SetAttributes(attribute.Int64("price", int64(q.Price)))
	span.SetStatus(codes.Ok, "")
	return q, true, nil
}

func (c *Client) Prices(ctx context.Context, ref asset.Ref, records uint32) ([]asset.Amount, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reflector.prices",
		trace.WithAttributes(
			attribute.String("asset", ref.String()),
			attribute.Int("records", int(records)),
		),
	)
	defer span.End()

	q := url.Values{}
	q.Set("records", strconv.FormatUint(uint64(records), 10))

	var resp pricesResponse
	ok, err := c.get(ctx, "prices", "/assets/"+url.PathEscape(ref.String())+"/prices", q, &resp)
	if err != nil || !ok || len(resp.Prices) == 0 {
		c.finish(span, err)
		return nil, false, err
	}

	out := make([]asset.Amount, 0, len(resp.Prices))
	for _, r := range resp.Prices {
		p, err := parsePrice(r.Price)
		if err != nil {
			c.finish(span, err)
			return nil, false, err
		}
		out = append(out, p)
	}
	span.SetStatus(codes.Ok, "")
	return out, true, nil
}

func (c *Client) TWAP(ctx context.Context, ref asset.Ref, periods uint32) (asset.Amount, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reflector.twap",
		trace.WithAttributes(
			attribute.String("asset", ref.String()),
			attribute.Int("periods", int(periods)),
		),
	)
	defer span.End()

	q := url.Values{}
	q.Set("periods", strconv.FormatUint(uint64(periods), 10))

	var rec *priceRecord
	ok, err := c.get(ctx, "twap", "/assets/"+url.PathEscape(ref.String())+"/twap", q, &rec)
	if err != nil || !ok || rec == nil {
		c.finish(span, err)
		return 0, false, err
	}
	p, err := parsePrice(rec.Price)
	if err != nil {
		c.finish(span, err)
		return 0, false, err
	}
	span.SetStatus(codes.Ok, "")
	return p, true, nil
}

func (c *Client) CrossPrice(ctx context.Context, base, quote asset.Ref) (domain.Quote, bool, error) {
	ctx, span := c.tracer.Start(ctx, "reflector.cross_price",
		trace.WithAttributes(
			attribute.String("base", base.String()),
			attribute.String("quote", quote.String()),
		),
	)
	defer span.End()

	q := url.Values{}
	q.Set("base", base.String())
	q.Set("quote", quote.String())

	var rec *priceRecord
	ok, err := c.get(ctx, "cross", "/cross", q, &rec)
	if err != nil || !ok || rec == nil {
		c.finish(span, err)
		return domain.Quote{}, false, err
	}
	out, err := rec.quote()
	if err != nil {
		c.finish(span, err)
		return domain.Quote{}, false, err
	}
	span.SetStatus(codes.Ok, "")
	return out, true, nil
}

// get performs a breaker-guarded GET. A 404 or a JSON null body is reported
// as ok=false without error.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) (bool, error) {
	c.metrics.requests.Add(ctx, 1, c.attrs(op))

	resp, err := c.cb.Execute(func() (*httpclient.Response, error) {
		req := c.http.NewRequest().SetErrorHandler(notFoundIsData)
		for k := range query {
			req.SetQueryParam(k, query.Get(k))
		}
		return req.Get(ctx, path)
	})
	if err != nil {
		if circuitbreaker.IsOpen(err) {
			return false, apperror.External(apperror.CodeCircuitOpen, c.cfg.Address.String(), err)
		}
		return false, apperror.External(apperror.CodeOracleUnavailable, c.cfg.Address.String(), err)
	}

	if resp.StatusCode == http.StatusNotFound || len(resp.Body()) == 0 || string(resp.Body()) == "null" {
		c.metrics.noData.Add(ctx, 1, c.attrs(op))
		return false, nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return false, apperror.External(apperror.CodeOracleBadResponse, op, err)
	}
	return true, nil
}

func (c *Client) finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.AddEvent("no_data")
}

// notFoundIsData keeps 404 out of the breaker's failure count.
func notFoundIsData(status int, body []byte) error {
	if status < 400 || status == http.StatusNotFound {
		return nil
	}
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return fmt.Errorf("oracle gateway %d %s: %s", status, e.Code, e.Message)
	}
	return &httpclient.StatusError{StatusCode: status, Body: string(body)}
}

func (r priceRecord) quote() (domain.Quote, error) {
	p, err := parsePrice(r.Price)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.Quote{Price: p, Timestamp: time.Unix(r.Timestamp, 0)}, nil
}

func parsePrice(s string) (asset.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, apperror.External(apperror.CodeOracleBadResponse, "price "+s, err)
	}
	a, err := asset.FromDecimalTruncate(d)
	if err != nil {
		return 0, apperror.External(apperror.CodeOracleBadResponse, "price "+s, err)
	}
	return a, nil
}
