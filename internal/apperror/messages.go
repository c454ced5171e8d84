package apperror

var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	CodeUnauthorized: "Caller is not authorized for this operation",

	CodeAlreadyInitialized:   "Engine already initialized",
	CodeNotInitialized:       "Engine not initialized",
	CodeGovernanceAlreadySet: "Governance address already set",
	CodeStoreFailed:          "Failed to persist engine state",

	CodeUserAlreadyRegistered: "User already registered",
	CodeUserNotFound:          "User not registered",
	CodeInsufficientBalance:   "Insufficient balance",
	CodeInvalidAmount:         "Amount must be positive",
	CodeBalanceOverflow:       "Balance would overflow",

	CodePairNotFound:  "Trading pair not found",
	CodeVenueNotFound: "Trading venue not found",

	CodeOracleUnavailable:   "Price oracle unavailable",
	CodeOracleBadResponse:   "Price oracle returned malformed data",
	CodeVenueUnavailable:    "Swap venue unavailable",
	CodeRiskGateUnavailable: "Risk gate unavailable",
	CodeRPCError:            "RPC call failed",
	CodePublishFailed:       "Failed to publish execution",
	CodeRateLimitExceeded:   "Rate limit exceeded",
	CodeCircuitOpen:         "Circuit breaker open",

	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",
}
