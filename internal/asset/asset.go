// Package asset defines the identifiers, metadata, and fixed-point amounts
// shared by every bounded context.
package asset

import "fmt"

// Kind classifies an asset.
type Kind uint8

const (
	KindNative Kind = iota
	KindToken
	KindFiat
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindToken:
		return "token"
	default:
		return "fiat"
	}
}

// Asset is immutable metadata for a tradable or reference asset.
type Asset struct {
	code     string
	name     string
	kind     Kind
	contract Address
}

// New creates asset metadata. contract may be empty for fiat references.
func New(code, name string, kind Kind, contract Address) *Asset {
	return &Asset{code: code, name: name, kind: kind, contract: contract}
}

func (a *Asset) Code() string      { return a.code }
func (a *Asset) Name() string      { return a.name }
func (a *Asset) Kind() Kind        { return a.kind }
func (a *Asset) Contract() Address { return a.contract }

// Ref returns the oracle reference for the asset, preferring the contract.
func (a *Asset) Ref() Ref {
	if !a.contract.IsZero() {
		return Contract(a.contract)
	}
	return Symbol(a.code)
}

func (a *Asset) String() string {
	if a.contract.IsZero() {
		return a.code
	}
	return fmt.Sprintf("%s(%s)", a.code, a.contract.Short())
}
