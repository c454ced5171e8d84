// Package domain contains the core domain types for the pricing context.
package domain

import (
	"strings"
	"time"

	"github.com/KPR-V/stellar/internal/asset"
)

// CryptoOracle is the well-known crypto price oracle that Crypto sources are
// routed to when they carry no explicit address.
const CryptoOracle asset.Address = "CCYOZJCOPG34LLQQ7N24YXBM7LL62R7ONMZ3G6WZAAYPB5OYKOMJRN63"

// DefaultMaxAge is the freshness ceiling applied to every accepted quote.
const DefaultMaxAge = 600 * time.Second

// Category selects how a source without an explicit address is routed.
type Category uint8

const (
	CategoryForex Category = iota
	CategoryCrypto
	CategoryNativeLedger
)

func (c Category) String() string {
	switch c {
	case CategoryForex:
		return "forex"
	case CategoryCrypto:
		return "crypto"
	case CategoryNativeLedger:
		return "native_ledger"
	default:
		return "unknown"
	}
}

// AddressingMode selects how the queried asset is identified.
type AddressingMode uint8

const (
	BySymbol AddressingMode = iota
	ByAddress
)

func (m AddressingMode) String() string {
	if m == ByAddress {
		return "address"
	}
	return "symbol"
}

// Source is one entry of a pair's ordered price source list. Address is an
// explicit oracle address; when set it overrides category routing and, in
// ByAddress mode, also identifies the queried asset.
type Source struct {
	Category Category
	Mode     AddressingMode
	Address  asset.Address
	Priority uint32
	MaxAge   time.Duration
}

// HasAddress reports whether the source pins an oracle.
func (s Source) HasAddress() bool {
	return !s.Address.IsZero()
}

// SymbolVariants lists the symbols tried against a crypto oracle, in order.
func SymbolVariants(symbol string) []string {
	s := strings.ToUpper(symbol)
	return []string{s, s + "USD", s + "USDT", s + "_USD"}
}
