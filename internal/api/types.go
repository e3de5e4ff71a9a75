package api

// Common API types and enums

// APIError represents RESTful error response structure
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Common error codes
const (
	ErrorCodeInvalidRequest   = "INVALID_REQUEST"
	ErrorCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrorCodeNetworkError     = "NETWORK_ERROR"
	ErrorCodeBuildFailed      = "TRANSACTION_BUILD_FAILED"
	ErrorCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrorCodeInternalError    = "INTERNAL_ERROR"
)
