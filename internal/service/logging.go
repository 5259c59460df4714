package service

// Standard Field Names
// Use these exact field names for consistency across all logging calls
const (
	// Core identifiers
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"
	LogFieldContactID = "contact_id"
	LogFieldPhone     = "phone"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Message fields
	LogFieldDirection = "direction" // "incoming" or "outgoing"
	LogFieldStatus    = "status"
	LogFieldSource    = "source" // "rules" or "llm"
	LogFieldSID       = "sid"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network
	LogFieldURL        = "url"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Error and debugging
	LogFieldErrorCode = "error_code"
	LogFieldAttempt   = "attempt"
)

// Log Level Usage Guidelines
//
// DEBUG: request flow detail, only useful in verbose mode.
// INFO: startup/shutdown, state changes, successful operations.
// WARN: retryable errors, fallback behavior, degraded features.
// ERROR: failed operations that the process survives.
// FATAL: startup configuration the process cannot run without.
