// Package domain contains the core domain types for the execution context.
package domain

// Status is the terminal outcome of one execution attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"

	// Risk gate
	StatusPositionTooLarge   Status = "POSITION_TOO_LARGE"
	StatusDailyLimitExceeded Status = "DAILY_LIMIT_EXCEEDED"

	// Config gate
	StatusDisabled    Status = "DISABLED"
	StatusInvalidSize Status = "INVALID_SIZE"

	// Simulation
	StatusSlippageTooHigh Status = "SLIPPAGE_TOO_HIGH"

	// Venue
	StatusInsufficientLiquidity Status = "INSUFFICIENT_LIQUIDITY"
	StatusSlippageExceeded      Status = "SLIPPAGE_EXCEEDED"
	StatusDeadlineExceeded      Status = "DEADLINE_EXCEEDED"
	StatusSwapFailed            Status = "SWAP_FAILED"
	StatusTokenApprovalFailed   Status = "TOKEN_APPROVAL_FAILED"

	// User mode
	StatusUserBotDisabled         Status = "USER_BOT_DISABLED"
	StatusUserInactive            Status = "USER_INACTIVE"
	StatusUserPositionTooLarge    Status = "USER_POSITION_TOO_LARGE"
	StatusInsufficientUserBalance Status = "INSUFFICIENT_USER_BALANCE"
	StatusUserDailyLimitExceeded  Status = "USER_DAILY_LIMIT_EXCEEDED"
	StatusUserSlippageTooHigh     Status = "USER_SLIPPAGE_TOO_HIGH"
)

var knownStatuses = map[Status]struct{}{
	StatusSuccess:                 {},
	StatusPositionTooLarge:        {},
	StatusDailyLimitExceeded:      {},
	StatusDisabled:                {},
	StatusInvalidSize:             {},
	StatusSlippageTooHigh:         {},
	StatusInsufficientLiquidity:   {},
	StatusSlippageExceeded:        {},
	StatusDeadlineExceeded:        {},
	StatusSwapFailed:              {},
	StatusTokenApprovalFailed:     {},
	StatusUserBotDisabled:         {},
	StatusUserInactive:            {},
	StatusUserPositionTooLarge:    {},
	StatusInsufficientUserBalance: {},
	StatusUserDailyLimitExceeded:  {},
	StatusUserSlippageTooHigh:     {},
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

func (s Status) Succeeded() bool { return s == StatusSuccess }

// RiskStatus is the risk gate verdict.
type RiskStatus string

const (
	RiskApproved           RiskStatus = "APPROVED"
	RiskPositionTooLarge   RiskStatus = "POSITION_TOO_LARGE"
	RiskDailyLimitExceeded RiskStatus = "DAILY_LIMIT_EXCEEDED"
)

// Approved reports whether the trade may proceed.
func (r RiskStatus) Approved() bool { return r == RiskApproved }

// Status maps a rejection to the execution status recorded for it. Unknown
// verdicts map to POSITION_TOO_LARGE.
func (r RiskStatus) Status() Status {
	switch r {
	case RiskApproved:
		return StatusSuccess
	case RiskDailyLimitExceeded:
		return StatusDailyLimitExceeded
	default:
		return StatusPositionTooLarge
	}
}
