package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// DeadlineWindow is added to the execution start time to form the swap
// deadline.
const DeadlineWindow = 300 * time.Second

// Gas complexity scores per mode.
const (
	PoolComplexity = 5
	UserComplexity = 3
)

// SlippageSentinel is returned when slippage is undefined.
const SlippageSentinel = math.MaxUint32

// SwapErrorKind classifies venue failures.
type SwapErrorKind uint8

const (
	SwapErrUnknown SwapErrorKind = iota
	SwapErrInsufficientLiquidity
	SwapErrSlippageExceeded
	SwapErrDeadlineExceeded
	SwapErrTokenApprovalFailed
	SwapErrSwapFailed
)

func (k SwapErrorKind) String() string {
	switch k {
	case SwapErrInsufficientLiquidity:
		return "insufficient_liquidity"
	case SwapErrSlippageExceeded:
		return "slippage_exceeded"
	case SwapErrDeadlineExceeded:
		return "deadline_exceeded"
	case SwapErrTokenApprovalFailed:
		return "token_approval_failed"
	case SwapErrSwapFailed:
		return "swap_failed"
	default:
		return "unknown"
	}
}

// SwapError is a classified venue failure.
type SwapError struct {
	Kind SwapErrorKind
	Err  error
}

// NewSwapError wraps cause with a kind.
func NewSwapError(kind SwapErrorKind, cause error) *SwapError {
	return &SwapError{Kind: kind, Err: cause}
}

func (e *SwapError) Error() string {
	if e.Err == nil {
		return "swap: " + e.Kind.String()
	}
	return fmt.Sprintf("swap: %s: %v", e.Kind, e.Err)
}

func (e *SwapError) Unwrap() error { return e.Err }

// StatusForSwapError maps a venue error to its terminal status.
func StatusForSwapError(err error) Status {
	var se *SwapError
	if !errors.As(err, &se) {
		return StatusSwapFailed
	}
	switch se.Kind {
	case SwapErrInsufficientLiquidity:
		return StatusInsufficientLiquidity
	case SwapErrSlippageExceeded:
		return StatusSlippageExceeded
	case SwapErrDeadlineExceeded:
		return StatusDeadlineExceeded
	case SwapErrTokenApprovalFailed:
		return StatusTokenApprovalFailed
	default:
		return StatusSwapFailed
	}
}

// SlippageBps is max(0, expected-actual)*10000/expected, or
// SlippageSentinel when expected is not positive.
func SlippageBps(expected, actual asset.Amount) uint32 {
	if expected <= 0 {
		return SlippageSentinel
	}
	if actual >= expected {
		return 0
	}
	bps, err := (expected - actual).MulDiv(arbDomain.BpsScale, int64(expected))
	if err != nil || bps > SlippageSentinel {
		return SlippageSentinel
	}
	return uint32(bps)
}

// MinAmountOut is amount less the slippage tolerance.
func MinAmountOut(amount asset.Amount, toleranceBps uint32) asset.Amount {
	cut, err := amount.MulDiv(int64(toleranceBps), arbDomain.BpsScale)
	if err != nil {
		return 0
	}
	return amount - cut
}

// GasCost estimates execution cost from a complexity score and the ledger
// sequence, charging 150% when sequence%100 > 80.
func GasCost(complexity uint32, sequence uint64) asset.Amount {
	base := int64(100000) + int64(complexity)*2500
	multiplier := int64(100)
	if sequence%100 > 80 {
		multiplier = 150
	}
	return asset.Amount(base * multiplier / 100)
}

// Path returns the two-hop swap path for a direction: Sell trades the tracked
// asset into settlement, Buy the reverse.
func Path(dir arbDomain.Direction, tracked, settlement asset.Address) []asset.Address {
	if dir == arbDomain.DirectionSell {
		return []asset.Address{tracked, settlement}
	}
	return []asset.Address{settlement, tracked}
}
