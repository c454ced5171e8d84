// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"

	"github.com/KPR-V/stellar/business/pricing/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

// PriceOracle is a single oracle contract. A false ok with a nil error means
// the oracle has no data for the asset.
type PriceOracle interface {
	// LastPrice returns the most recent price of ref.
	LastPrice(ctx context.Context, ref asset.Ref) (domain.Quote, bool, error)

	// Prices returns up to records most recent prices, oldest first.
	Prices(ctx context.Context, ref asset.Ref, records uint32) ([]asset.Amount, bool, error)

	// TWAP returns the time-weighted average over the last periods records.
	TWAP(ctx context.Context, ref asset.Ref, periods uint32) (asset.Amount, bool, error)

	// CrossPrice returns the price of base denominated in quote.
	CrossPrice(ctx context.Context, base, quote asset.Ref) (domain.Quote, bool, error)
}
