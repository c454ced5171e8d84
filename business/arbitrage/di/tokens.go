// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/KPR-V/stellar/business/arbitrage/app"
	"github.com/KPR-V/stellar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Detector = di.NewToken[*app.Detector]("arbitrage.Detector")
	Scanner  = di.NewToken[*app.Scanner]("arbitrage.Scanner")
)

// Private dependency tokens - internal to arbitrage module
var (
	Strategies = di.NewToken[*app.Strategies]("arbitrage:strategies")
	Reporter   = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetStrategies(c di.ServiceRegistry) *app.Strategies {
	return di.GetToken(c, Strategies)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
