package domain

import (
	"time"

	"github.com/KPR-V/stellar/internal/asset"
)

// Quote is an oracle price observation. Price carries 7 implied decimals.
type Quote struct {
	Price     asset.Amount
	Timestamp time.Time
}

// Age returns how old the quote is at now. Quotes stamped in the future have
// zero age.
func (q Quote) Age(now time.Time) time.Duration {
	if d := now.Sub(q.Timestamp); d > 0 {
		return d
	}
	return 0
}

// Fresh reports now - timestamp <= maxAge.
func (q Quote) Fresh(now time.Time, maxAge time.Duration) bool {
	return q.Age(now) <= maxAge
}

// Mean returns the truncated arithmetic mean of prices, zero when empty.
func Mean(prices []asset.Amount) asset.Amount {
	if len(prices) == 0 {
		return 0
	}
	var sum int64
	for _, p := range prices {
		sum += int64(p)
	}
	return asset.Amount(sum / int64(len(prices)))
}

// Cross derives the price of base in quote from two quotes against a common
// denomination. The result carries the older timestamp; ok is false when
// quote is zero.
func Cross(base, quote Quote) (Quote, bool, error) {
	if quote.Price == 0 {
		return Quote{}, false, nil
	}
	p, err := asset.MulDivAmount(base.Price, asset.Scale, quote.Price)
	if err != nil {
		return Quote{}, false, err
	}
	ts := base.Timestamp
	if quote.Timestamp.Before(ts) {
		ts = quote.Timestamp
	}
	return Quote{Price: p, Timestamp: ts}, true, nil
}
