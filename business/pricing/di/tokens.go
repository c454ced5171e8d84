// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/KPR-V/stellar/business/pricing/app"
	"github.com/KPR-V/stellar/business/pricing/infra/binance"
	"github.com/KPR-V/stellar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Gateway   = di.NewToken[*app.Gateway]("pricing.Gateway")
	Directory = di.NewToken[*app.Directory]("pricing.Directory")
)

// Private dependency tokens - internal to pricing module
var (
	CryptoStream = di.NewToken[*binance.Provider]("pricing:cryptoStream")
)

// Helper functions for type-safe access
func GetGateway(c di.ServiceRegistry) *app.Gateway {
	return di.GetToken(c, Gateway)
}

func GetDirectory(c di.ServiceRegistry) *app.Directory {
	return di.GetToken(c, Directory)
}

func GetCryptoStream(c di.ServiceRegistry) *binance.Provider {
	return di.GetToken(c, CryptoStream)
}
