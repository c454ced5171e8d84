package apperror

// Code is a stable, enumerable error identifier.
type Code string

// General codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Authorization
const (
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// Engine state invariants
const (
	CodeAlreadyInitialized   Code = "ALREADY_INITIALIZED"
	CodeNotInitialized       Code = "NOT_INITIALIZED"
	CodeGovernanceAlreadySet Code = "GOVERNANCE_ALREADY_SET"
	CodeStoreFailed          Code = "STORE_FAILED"
)

// Accounts
const (
	CodeUserAlreadyRegistered Code = "USER_ALREADY_REGISTERED"
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeBalanceOverflow       Code = "BALANCE_OVERFLOW"
)

// Pairs and venues
const (
	CodePairNotFound  Code = "PAIR_NOT_FOUND"
	CodeVenueNotFound Code = "VENUE_NOT_FOUND"
)

// External collaborators
const (
	CodeOracleUnavailable   Code = "ORACLE_UNAVAILABLE"
	CodeOracleBadResponse   Code = "ORACLE_BAD_RESPONSE"
	CodeVenueUnavailable    Code = "VENUE_UNAVAILABLE"
	CodeRiskGateUnavailable Code = "RISK_GATE_UNAVAILABLE"
	CodeRPCError            Code = "RPC_ERROR"
	CodePublishFailed       Code = "PUBLISH_FAILED"
	CodeRateLimitExceeded   Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
)

// WebSocket transport
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)
