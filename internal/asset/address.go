package asset

import (
	"fmt"
	"strings"
)

// Address identifies an account or contract on the host ledger.
type Address string

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}

// Short renders the address as ABCD…WXYZ for log lines.
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 12 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}

// RefKind selects how an oracle identifies an asset.
type RefKind uint8

const (
	RefSymbol RefKind = iota
	RefContract
)

// Ref is an asset reference understood by price oracles: either a ticker
// symbol or a contract address.
type Ref struct {
	Kind  RefKind
	Value string
}

// Symbol references an asset by ticker.
func Symbol(s string) Ref {
	return Ref{Kind: RefSymbol, Value: s}
}

// Contract references an asset by its contract address.
func Contract(a Address) Ref {
	return Ref{Kind: RefContract, Value: string(a)}
}

func (r Ref) String() string {
	if r.Kind == RefContract {
		return "contract:" + r.Value
	}
	return "symbol:" + r.Value
}

// ParseRef parses the String form back into a Ref.
func ParseRef(s string) (Ref, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return Ref{}, fmt.Errorf("asset: malformed ref %q", s)
	}
	switch kind {
	case "symbol":
		return Symbol(value), nil
	case "contract":
		return Contract(Address(value)), nil
	default:
		return Ref{}, fmt.Errorf("asset: unknown ref kind %q", kind)
	}
}
