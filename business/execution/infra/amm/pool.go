// Package amm is an in-memory constant-product venue with V2 router
// semantics, used in simulation mode and tests.
package amm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/KPR-V/stellar/business/execution/app"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// DefaultFeeBps is the V2 swap fee.
const DefaultFeeBps = 30

var _ app.Venue = (*Venue)(nil)

type pairKey struct{ a, b asset.Address }

func keyOf(x, y asset.Address) pairKey {
	if x < y {
		return pairKey{x, y}
	}
	return pairKey{y, x}
}

// Venue holds pools keyed by token pair.
type Venue struct {
	mu       sync.Mutex
	feeBps   int64
	reserves map[pairKey]map[asset.Address]asset.Amount
	now      func() time.Time
}

// New creates an empty venue charging feeBps per hop.
func New(feeBps uint32) *Venue {
	return &Venue{
		feeBps:   int64(feeBps),
		reserves: make(map[pairKey]map[asset.Address]asset.Amount),
		now:      time.Now,
	}
}

// WithClock overrides the deadline clock.
func (v *Venue) WithClock(now func() time.Time) *Venue {
	v.now = now
	return v
}

// AddPool seeds or replaces the pool for x and y.
func (v *Venue) AddPool(x, y asset.Address, reserveX, reserveY asset.Amount) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reserves[keyOf(x, y)] = map[asset.Address]asset.Amount{x: reserveX, y: reserveY}
}

// Reserves returns the pool reserves of x and y.
func (v *Venue) Reserves(x, y asset.Address) (asset.Amount, asset.Amount, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	pool, ok := v.reserves[keyOf(x, y)]
	if !ok {
		return 0, 0, false
	}
	return pool[x], pool[y], true
}

// Quote returns the output of routing amountIn along path.
func (v *Venue) Quote(_ context.Context, amountIn asset.Amount, path []asset.Address) (asset.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	amounts, err := v.amountsOut(amountIn, path)
	if err != nil {
		return 0, err
	}
	return amounts[len(amounts)-1], nil
}

// Swap routes amountIn along path and moves the reserves.
func (v *Venue) Swap(
	_ context.Context,
	amountIn, minOut asset.Amount,
	path []asset.Address,
	_ asset.Address,
	deadline time.Time,
) ([]asset.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.now().After(deadline) {
		return nil, domain.NewSwapError(domain.SwapErrDeadlineExceeded, nil)
	}
	amounts, err := v.amountsOut(amountIn, path)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1] < minOut {
		return nil, domain.NewSwapError(domain.SwapErrSlippageExceeded, nil)
	}

	for i := 0; i+1 < len(path); i++ {
		pool := v.reserves[keyOf(path[i], path[i+1])]
		pool[path[i]] += amounts[i]
		pool[path[i+1]] -= amounts[i+1]
	}
	return amounts, nil
}

func (v *Venue) amountsOut(amountIn asset.Amount, path []asset.Address) ([]asset.Amount, error) {
	if len(path) < 2 {
		return nil, domain.NewSwapError(domain.SwapErrSwapFailed, errors.New("invalid path"))
	}
	if amountIn <= 0 {
		return nil, domain.NewSwapError(domain.SwapErrInsufficientLiquidity, errors.New("insufficient input amount"))
	}

	amounts := make([]asset.Amount, len(path))
	amounts[0] = amountIn
	for i := 0; i+1 < len(path); i++ {
		pool, ok := v.reserves[keyOf(path[i], path[i+1])]
		if !ok {
			return nil, domain.NewSwapError(domain.SwapErrInsufficientLiquidity, errors.New("no pool"))
		}
		out := amountOut(amounts[i], pool[path[i]], pool[path[i+1]], v.feeBps)
		if out <= 0 || out >= pool[path[i+1]] {
			return nil, domain.NewSwapError(domain.SwapErrInsufficientLiquidity, nil)
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// amountOut is in*(1-fee)*rOut / (rIn + in*(1-fee)).
func amountOut(in, reserveIn, reserveOut asset.Amount, feeBps int64) asset.Amount {
	if reserveIn <= 0 || reserveOut <= 0 {
		return 0
	}
	inWithFee := new(big.Int).Mul(big.NewInt(int64(in)), big.NewInt(10000-feeBps))
	num := new(big.Int).Mul(inWithFee, big.NewInt(int64(reserveOut)))
	den := new(big.Int).Mul(big.NewInt(int64(reserveIn)), big.NewInt(10000))
	den.Add(den, inWithFee)
	return asset.Amount(num.Quo(num, den).Int64())
}
