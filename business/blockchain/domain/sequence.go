// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// Sequence is one observation of the ledger sequence number.
type Sequence struct {
	Number     uint64
	ObservedAt time.Time
}

// ConnectionState represents the state of a sequence source.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnected    ConnectionState = "connected"
	StateDegraded     ConnectionState = "degraded"
)

// ConnectionStatus contains detailed source information.
type ConnectionStatus struct {
	State      ConnectionState
	Latency    time.Duration
	LastNumber uint64
	LastUpdate time.Time
	Failures   int
	Offline    bool // true when backed by the local counter
}
