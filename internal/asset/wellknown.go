package asset

// Testnet contract of the native lumen token.
const AddrXLM Address = "CAS3J7GYLGXMF6TDJBBYYSE3HQ6BBSMLNUQ34T6TZMYMW2EVH34XOWMA"

var (
	XLM = New("XLM", "Stellar Lumens", KindNative, AddrXLM)

	USDC = New("USDC", "USD Coin", KindToken, "")
	EURC = New("EURC", "Euro Coin", KindToken, "")
	BTC  = New("BTC", "Bitcoin", KindToken, "")
	ETH  = New("ETH", "Ether", KindToken, "")

	USD = New("USD", "US Dollar", KindFiat, "")
	EUR = New("EUR", "Euro", KindFiat, "")
	GBP = New("GBP", "Pound Sterling", KindFiat, "")
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{XLM, USDC, EURC, BTC, ETH, USD, EUR, GBP} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}
