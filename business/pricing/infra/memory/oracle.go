// Package memory provides an in-memory price oracle with settable quotes and
// price history.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

type crossKey struct {
	base, quote asset.Ref
}

// Oracle is a concurrency-safe, programmable PriceOracle.
type Oracle struct {
	mu      sync.RWMutex
	prices  map[asset.Ref]domain.Quote
	history map[asset.Ref][]asset.Amount
	cross   map[crossKey]domain.Quote
	errs    map[asset.Ref]error
}

// New creates an empty oracle.
func New() *Oracle {
	return &Oracle{
		prices:  make(map[asset.Ref]domain.Quote),
		history: make(map[asset.Ref][]asset.Amount),
		cross:   make(map[crossKey]domain.Quote),
		errs:    make(map[asset.Ref]error),
	}
}

// SetPrice sets the last price of ref and appends it to its history.
func (o *Oracle) SetPrice(ref asset.Ref, price asset.Amount, ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[ref] = domain.Quote{Price: price, Timestamp: ts}
	o.history[ref] = append(o.history[ref], price)
}

// SetHistory replaces the price history of ref, oldest first.
func (o *Oracle) SetHistory(ref asset.Ref, prices ...asset.Amount) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history[ref] = append([]asset.Amount(nil), prices...)
}

// SetCross pins the cross price of base in quote.
func (o *Oracle) SetCross(base, quote asset.Ref, price asset.Amount, ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cross[crossKey{base, quote}] = domain.Quote{Price: price, Timestamp: ts}
}

// SetError makes every query for ref fail with err. A nil err clears it.
func (o *Oracle) SetError(ref asset.Ref, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err == nil {
		delete(o.errs, ref)
		return
	}
	o.errs[ref] = err
}

// Clear removes all data for ref.
func (o *Oracle) Clear(ref asset.Ref) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, ref)
	delete(o.history, ref)
	delete(o.errs, ref)
}

func (o *Oracle) LastPrice(_ context.Context, ref asset.Ref) (domain.Quote, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if err := o.errs[ref]; err != nil {
		return domain.Quote{}, false, err
	}
	q, ok := o.prices[ref]
	return q, ok, nil
}

// Prices returns up to records most recent prices of ref, oldest first.
func (o *Oracle) Prices(_ context.Context, ref asset.Ref, records uint32) ([]asset.Amount, bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if err := o.errs[ref]; err != nil {
		return nil, false, err
	}
	h := o.history[ref]
	if len(h) == 0 {
		return nil, false, nil
	}
	if records > 0 && int(records) < len(h) {
		h = h[len(h)-int(records):]
	}
	return append([]asset.Amount(nil), h...), true, nil
}

func (o *Oracle) TWAP(ctx context.Context, ref asset.Ref, periods uint32) (asset.Amount, bool, error) {
	h, ok, err := o.Prices(ctx, ref, periods)
	if err != nil || !ok {
		return 0, false, err
	}
	return domain.Mean(h), true, nil
}

// CrossPrice returns a pinned cross price, or derives one from both last
// prices when both exist.
func (o *Oracle) CrossPrice(ctx context.Context, base, quote asset.Ref) (domain.Quote, bool, error) {
	o.mu.RLock()
	q, ok := o.cross[crossKey{base, quote}]
	o.mu.RUnlock()
	if ok {
		return q, true, nil
	}

	bq, bok, err := o.LastPrice(ctx, base)
	if err != nil || !bok {
		return domain.Quote{}, false, err
	}
	qq, qok, err := o.LastPrice(ctx, quote)
	if err != nil || !qok {
		return domain.Quote{}, false, err
	}
	return domain.Cross(bq, qq)
}
