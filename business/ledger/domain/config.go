// Package domain contains the engine state owned by the ledger context.
package domain

import "github.com/KPR-V/stellar/internal/asset"

// Config holds trading parameters. The engine keeps one global copy and each
// account keeps its own.
type Config struct {
	MinProfitBps         uint32
	MaxTradeSize         asset.Amount
	SlippageToleranceBps uint32
	Enabled              bool
	MaxGasPrice          int64
	MinLiquidity         asset.Amount
}

// DefaultUserConfig is reported for accounts that do not exist.
func DefaultUserConfig() Config {
	return Config{
		Enabled:              false,
		MinProfitBps:         50,
		MaxTradeSize:         0,
		SlippageToleranceBps: 100,
		MaxGasPrice:          1000,
		MinLiquidity:         0,
	}
}

// ValidSize reports 0 < amount <= MaxTradeSize.
func (c Config) ValidSize(amount asset.Amount) bool {
	return amount > 0 && amount <= c.MaxTradeSize
}
