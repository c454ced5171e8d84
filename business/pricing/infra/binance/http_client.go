package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/httpclient"
	"github.com/KPR-V/stellar/internal/logger"
)

const (
	BaseAPIURL = "https://api.binance.com"

	tickerPriceEndpoint = "/api/v3/ticker/price"

	httpTimeout = 10 * time.Second
)

// HTTPClient provides Binance REST access for fallback scenarios.
type HTTPClient struct {
	client httpclient.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a REST client. An empty baseURL uses BaseAPIURL.
func NewHTTPClient(baseURL string, log logger.LoggerInterface) (*HTTPClient, error) {
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	client, err := httpclient.New(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(httpTimeout),
		httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{
		client: client,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// TickerPrice fetches the latest price for symbol.
func (c *HTTPClient) TickerPrice(ctx context.Context, symbol string) (*TickerPriceResponse, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.ticker_price",
		trace.WithAttributes(attribute.String("symbol", symbol)),
	)
	defer span.End()

	var result TickerPriceResponse
	_, err := c.client.NewRequest().
		SetErrorHandler(binanceErrorHandler).
		SetQueryParam("symbol", symbol).
		SetResult(&result).
		Get(ctx, tickerPriceEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.External(apperror.CodeOracleUnavailable, "binance ticker "+symbol, err)
	}

	c.logger.Debug(ctx, "fetched ticker via HTTP", "symbol", symbol, "price", result.Price)
	return &result, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
