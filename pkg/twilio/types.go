package twilio

import "fmt"

// SendResult is the outcome of an accepted outbound message.
type SendResult struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// APIError is a non-2xx response from the Messages API.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio API error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the request can be retried. Server errors
// and rate limiting are transient; 4xx rejections are not.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408
}

type messageResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
