package errors

import (
	"fmt"
)

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewDatabaseError creates a database error with operation context
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewNotFoundError creates a not-found error for a missing entity
func NewNotFoundError(entity, key string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", entity)).
		WithContext("entity", entity).
		WithContext("key", key).
		WithUserMessage(fmt.Sprintf("%s not found", entity))
}

// NewAPIError creates an API error for external service calls. Errors
// caused by 5xx, 429 and 408 responses are marked retryable.
func NewAPIError(service, endpoint string, statusCode int, err error) *AppError {
	var code ErrorCode
	switch service {
	case "twilio":
		code = ErrCodeGatewayAPI
	case "openrouter":
		code = ErrCodeLLMAPI
	default:
		code = ErrCodeInternalError
	}

	appErr := Wrap(err, code, fmt.Sprintf("%s API call failed", service)).
		WithContext("service", service).
		WithContext("endpoint", endpoint).
		WithContext("status_code", statusCode)

	if statusCode >= 500 || statusCode == 429 || statusCode == 408 {
		appErr.Retryable = true
	}

	return appErr
}
