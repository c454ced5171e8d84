// Package di contains dependency injection tokens for the ledger context.
package di

import (
	"github.com/KPR-V/stellar/business/ledger/app"
	"github.com/KPR-V/stellar/business/ledger/infra/sqlstore"
	"github.com/KPR-V/stellar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("ledger.Engine")
)

// Private dependency tokens - internal to ledger module
var (
	Store = di.NewToken[*sqlstore.Store]("ledger:store")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetStore(c di.ServiceRegistry) *sqlstore.Store {
	return di.GetToken(c, Store)
}
