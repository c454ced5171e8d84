// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/KPR-V/stellar/business/execution/app"
	"github.com/KPR-V/stellar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor    = di.NewToken[*app.Executor]("execution.Executor")
	RiskManager = di.NewToken[*app.RiskManager]("execution.RiskManager")
)

// Private dependency tokens - internal to execution module
var (
	Venue      = di.NewToken[app.Venue]("execution:venue")
	Publishers = di.NewToken[[]app.Publisher]("execution:publishers")
)

// Helper functions for type-safe access
func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetRiskManager(c di.ServiceRegistry) *app.RiskManager {
	return di.GetToken(c, RiskManager)
}

func GetVenue(c di.ServiceRegistry) app.Venue {
	return di.GetToken(c, Venue)
}

func GetPublishers(c di.ServiceRegistry) []app.Publisher {
	return di.GetToken(c, Publishers)
}
