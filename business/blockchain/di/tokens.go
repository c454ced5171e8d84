// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/KPR-V/stellar/business/blockchain/app"
	"github.com/KPR-V/stellar/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SequenceService = di.NewToken[*app.SequenceService]("blockchain.SequenceService")
)

// Private dependency tokens - internal to blockchain module
var (
	SequenceSource = di.NewToken[app.SequenceSource]("blockchain:sequenceSource")
)

// Helper functions for type-safe access
func GetSequenceService(c di.ServiceRegistry) *app.SequenceService {
	return di.GetToken(c, SequenceService)
}

func GetSequenceSource(c di.ServiceRegistry) app.SequenceSource {
	return di.GetToken(c, SequenceSource)
}
