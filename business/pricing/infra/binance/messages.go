// Package binance implements a streaming crypto PriceOracle over the Binance
// mini-ticker stream with a REST fallback.
package binance

import (
	"bytes"
	"encoding/json"
	"time"
)

// MiniTickerEvent is one element of the !miniTicker@arr stream, or the
// payload of a <symbol>@miniTicker stream.
type MiniTickerEvent struct {
	EventType   string `json:"e"` // "24hrMiniTicker"
	EventTime   int64  `json:"E"` // ms
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	Open        string `json:"o"`
	High        string `json:"h"`
	Low         string `json:"l"`
	BaseVolume  string `json:"v"`
	QuoteVolume string `json:"q"`
}

// Timestamp returns the event time.
func (e MiniTickerEvent) Timestamp() time.Time {
	return time.UnixMilli(e.EventTime)
}

// TickerPriceResponse is the REST /api/v3/ticker/price body.
type TickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type combinedEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// decodeTickers accepts an array stream, a single ticker, or a combined
// stream envelope. Subscription acks and unknown events yield nothing.
func decodeTickers(msg []byte) ([]MiniTickerEvent, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return nil, nil
	}
	if msg[0] == '[' {
		var evs []MiniTickerEvent
		if err := json.Unmarshal(msg, &evs); err != nil {
			return nil, err
		}
		return evs, nil
	}

	var env combinedEvent
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, err
	}
	if env.Stream != "" && len(env.Data) > 0 {
		return decodeTickers(env.Data)
	}

	var ev MiniTickerEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return nil, err
	}
	if ev.Symbol == "" || ev.Close == "" {
		return nil, nil
	}
	return []MiniTickerEvent{ev}, nil
}
