// Package router implements the swap venue on an EVM UniswapV2-style router.
// Swaps are dry-run with eth_call; nothing is signed or broadcast.
package router

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/KPR-V/stellar/business/execution/app"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/asset"
	"github.com/KPR-V/stellar/internal/circuitbreaker"
	"github.com/KPR-V/stellar/internal/logger"
)

const (
	tracerName = "router"
	meterName  = "router"
)

var _ app.Venue = (*Venue)(nil)

type venueMetrics struct {
	callsTotal  metric.Int64Counter
	callErrors  metric.Int64Counter
	callLatency metric.Float64Histogram
}

// Config configures the router venue.
type Config struct {
	Router common.Address
	// Tokens maps asset codes (any case) to router tokens. Path entries that
	// are already hex addresses are used as is.
	Tokens map[string]common.Address
	// Decimals of the router tokens; amounts are rescaled from 7 decimals.
	Decimals uint8
	// From is the account swaps are simulated for.
	From common.Address
	Now  func() time.Time
}

// Venue quotes and simulates swaps against a router contract.
type Venue struct {
	client ethereum.ContractCaller
	cfg    Config
	abi    abi.ABI
	scale  *big.Int // 10^(decimals-7), nil when decimals == 7
	down   bool     // scale divides instead of multiplies

	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *venueMetrics
}

// New creates a router venue over client.
func New(client ethereum.ContractCaller, cfg Config, log logger.LoggerInterface) (*Venue, error) {
	parsed, err := abi.JSON(strings.NewReader(RouterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}
	if cfg.Decimals == 0 {
		cfg.Decimals = 7
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	v := &Venue{
		client: client,
		cfg:    cfg,
		abi:    parsed,
		cb:     circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("router")),
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
	switch {
	case cfg.Decimals > 7:
		v.scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.Decimals-7)), nil)
	case cfg.Decimals < 7:
		v.scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(7-cfg.Decimals)), nil)
		v.down = true
	}

	if err := v.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return v, nil
}

func (v *Venue) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error
	v.metrics = &venueMetrics{}

	v.metrics.callsTotal, err = meter.Int64Counter(
		"router_calls_total",
		metric.WithDescription("Total router eth_call requests"),
	)
	if err != nil {
		return err
	}
	v.metrics.callErrors, err = meter.Int64Counter(
		"router_call_errors_total",
		metric.WithDescription("Total failed router calls"),
	)
	if err != nil {
		return err
	}
	v.metrics.callLatency, err = meter.Float64Histogram(
		"router_call_latency_ms",
		metric.WithDescription("Router call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Quote returns getAmountsOut for the last hop of path.
func (v *Venue) Quote(ctx context.Context, amountIn asset.Amount, path []asset.Address) (asset.Amount, error) {
	ctx, span := v.tracer.Start(ctx, "router.quote",
		trace.WithAttributes(attribute.Int64("amount_in", int64(amountIn))),
	)
	defer span.End()

	tokens, err := v.resolvePath(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	data, err := v.abi.Pack("getAmountsOut", v.toChain(amountIn), tokens)
	if err != nil {
		return 0, apperror.Internal(apperror.CodeInternalError, "pack getAmountsOut", err)
	}

	raw, err := v.call(ctx, data)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, classify(err)
	}
	amounts, err := v.unpackAmounts("getAmountsOut", raw)
	if err != nil {
		return 0, err
	}
	if len(amounts) < 2 {
		return 0, domain.NewSwapError(domain.SwapErrSwapFailed, fmt.Errorf("router returned %d amounts", len(amounts)))
	}

	out := amounts[len(amounts)-1]
	span.SetAttributes(attribute.Int64("amount_out", int64(out)))
	span.SetStatus(codes.Ok, "quote received")
	return out, nil
}

// Swap simulates swapExactTokensForTokens from Config.From.
func (v *Venue) Swap(
	ctx context.Context,
	amountIn, minOut asset.Amount,
	path []asset.Address,
	recipient asset.Address,
	deadline time.Time,
) ([]asset.Amount, error) {
	ctx, span := v.tracer.Start(ctx, "router.swap",
		trace.WithAttributes(
			attribute.Int64("amount_in", int64(amountIn)),
			attribute.Int64("min_out", int64(minOut)),
		),
	)
	defer span.End()

	now := v.cfg.Now()
	if now.After(deadline) {
		return nil, domain.NewSwapError(domain.SwapErrDeadlineExceeded, nil)
	}

	tokens, err := v.resolvePath(path)
	if err != nil {
		return nil, err
	}
	to := v.cfg.From
	if common.IsHexAddress(string(recipient)) {
		to = common.HexToAddress(string(recipient))
	}

	data, err := v.abi.Pack("swapExactTokensForTokens",
		v.toChain(amountIn), v.toChain(minOut), tokens, to, big.NewInt(deadline.Unix()))
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pack swapExactTokensForTokens", err)
	}

	raw, err := v.call(ctx, data)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, classify(err)
	}
	amounts, err := v.unpackAmounts("swapExactTokensForTokens", raw)
	if err != nil {
		return nil, err
	}

	span.SetStatus(codes.Ok, "swap simulated")
	v.logger.Debug(ctx, "router swap simulated",
		"router", v.cfg.Router.Hex(),
		"amount_in", amountIn.String(),
		"hops", len(amounts),
	)
	return amounts, nil
}

func (v *Venue) call(ctx context.Context, data []byte) ([]byte, error) {
	start := time.Now()
	v.metrics.callsTotal.Add(ctx, 1)

	raw, err := v.cb.Execute(func() ([]byte, error) {
		return v.client.CallContract(ctx, ethereum.CallMsg{
			From: v.cfg.From,
			To:   &v.cfg.Router,
			Data: data,
		}, nil)
	})
	v.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		v.metrics.callErrors.Add(ctx, 1)
	}
	return raw, err
}

func (v *Venue) unpackAmounts(method string, raw []byte) ([]asset.Amount, error) {
	outs, err := v.abi.Methods[method].Outputs.Unpack(raw)
	if err != nil || len(outs) == 0 {
		return nil, apperror.External(apperror.CodeVenueUnavailable, "decode "+method, err)
	}
	ints, ok := outs[0].([]*big.Int)
	if !ok {
		return nil, apperror.External(apperror.CodeVenueUnavailable, "decode "+method, nil)
	}
	amounts := make([]asset.Amount, len(ints))
	for i, n := range ints {
		amounts[i] = v.fromChain(n)
	}
	return amounts, nil
}

func (v *Venue) resolvePath(path []asset.Address) ([]common.Address, error) {
	if len(path) < 2 {
		return nil, domain.NewSwapError(domain.SwapErrSwapFailed, fmt.Errorf("path has %d hops", len(path)))
	}
	out := make([]common.Address, len(path))
	for i, a := range path {
		if common.IsHexAddress(string(a)) {
			out[i] = common.HexToAddress(string(a))
			continue
		}
		tok, ok := v.lookup(string(a))
		if !ok {
			return nil, domain.NewSwapError(domain.SwapErrSwapFailed, fmt.Errorf("no router token for %s", a))
		}
		out[i] = tok
	}
	return out, nil
}

func (v *Venue) lookup(code string) (common.Address, bool) {
	for k, addr := range v.cfg.Tokens {
		if strings.EqualFold(k, code) {
			return addr, true
		}
	}
	return common.Address{}, false
}

func (v *Venue) toChain(a asset.Amount) *big.Int {
	n := big.NewInt(int64(a))
	if v.scale == nil {
		return n
	}
	if v.down {
		return n.Quo(n, v.scale)
	}
	return n.Mul(n, v.scale)
}

func (v *Venue) fromChain(n *big.Int) asset.Amount {
	m := new(big.Int).Set(n)
	if v.scale != nil {
		if v.down {
			m.Mul(m, v.scale)
		} else {
			m.Quo(m, v.scale)
		}
	}
	if !m.IsInt64() {
		return asset.MaxAmount
	}
	return asset.Amount(m.Int64())
}

// classify maps an eth_call failure to a swap error kind by revert reason.
func classify(err error) error {
	if circuitbreaker.IsOpen(err) {
		return apperror.External(apperror.CodeCircuitOpen, "router", err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, reasonExpired):
		return domain.NewSwapError(domain.SwapErrDeadlineExceeded, err)
	case strings.Contains(msg, reasonOutputAmount):
		return domain.NewSwapError(domain.SwapErrSlippageExceeded, err)
	case strings.Contains(msg, reasonLiquidity), strings.Contains(msg, reasonInputAmount):
		return domain.NewSwapError(domain.SwapErrInsufficientLiquidity, err)
	case strings.Contains(msg, reasonTransferFrom), strings.Contains(msg, reasonAllowance):
		return domain.NewSwapError(domain.SwapErrTokenApprovalFailed, err)
	case strings.Contains(msg, reasonInvalidPath):
		return domain.NewSwapError(domain.SwapErrSwapFailed, err)
	default:
		return apperror.External(apperror.CodeVenueUnavailable, "router call", err)
	}
}
