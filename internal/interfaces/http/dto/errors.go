package dto

import (
	"errors"
	"net/http"

	"github.com/adboard/backend/internal/domain/integration"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeInvalidSignature is used when a webhook signature does not verify
	ErrCodeInvalidSignature = "ERR_INVALID_SIGNATURE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Integration error codes
const (
	// ErrCodeNotConnected is used when an operation needs a connected platform
	ErrCodeNotConnected = "ERR_NOT_CONNECTED"
	// ErrCodeCredentialMissing is used when no stored credential exists
	ErrCodeCredentialMissing = "ERR_CREDENTIAL_MISSING"
	// ErrCodeAuthRejected is used when the platform rejected our authorization
	ErrCodeAuthRejected = "ERR_AUTH_REJECTED"
	// ErrCodeCapabilityNotOffered is used when the platform lacks the capability
	ErrCodeCapabilityNotOffered = "ERR_CAPABILITY_NOT_OFFERED"
	// ErrCodePlatformUnavailable is used when the upstream platform is down
	ErrCodePlatformUnavailable = "ERR_PLATFORM_UNAVAILABLE"
	// ErrCodePlatformRateLimited is used when the upstream platform throttled us
	ErrCodePlatformRateLimited = "ERR_PLATFORM_RATE_LIMITED"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeInvalidSignature: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	// Integration errors
	ErrCodeNotConnected:         http.StatusUnprocessableEntity,
	ErrCodeCredentialMissing:    http.StatusUnprocessableEntity,
	ErrCodeAuthRejected:         http.StatusUnprocessableEntity,
	ErrCodeCapabilityNotOffered: http.StatusUnprocessableEntity,
	ErrCodePlatformUnavailable:  http.StatusBadGateway,
	ErrCodePlatformRateLimited:  http.StatusTooManyRequests,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// integrationErrorCodes maps domain sentinels to API error codes. Order
// matters where sentinels wrap each other, so the slice form keeps the
// most specific match first.
var integrationErrorCodes = []struct {
	err  error
	code string
}{
	{integration.ErrConnectionNotFound, ErrCodeNotFound},
	{integration.ErrSubscriptionNotFound, ErrCodeNotFound},
	{integration.ErrConnectionAlreadyExists, ErrCodeAlreadyExists},
	{integration.ErrConnectionNotConnected, ErrCodeNotConnected},
	{integration.ErrCredentialMissing, ErrCodeCredentialMissing},
	{integration.ErrCredentialExpired, ErrCodeAuthRejected},
	{integration.ErrAuthFailed, ErrCodeAuthRejected},
	{integration.ErrAuthCodeInvalid, ErrCodeAuthRejected},
	{integration.ErrPermissionDenied, ErrCodeAuthRejected},
	{integration.ErrInvalidSignature, ErrCodeInvalidSignature},
	{integration.ErrCapabilityNotOffered, ErrCodeCapabilityNotOffered},
	{integration.ErrPlatformNotRegistered, ErrCodeNotFound},
	{integration.ErrPlatformRateLimited, ErrCodePlatformRateLimited},
	{integration.ErrPlatformUnavailable, ErrCodePlatformUnavailable},
	{integration.ErrPlatformTimeout, ErrCodePlatformUnavailable},
	{integration.ErrPlatformRequestFailed, ErrCodePlatformUnavailable},
	{integration.ErrPlatformInvalidResponse, ErrCodePlatformUnavailable},
	{integration.ErrInvalidTenantID, ErrCodeBadRequest},
	{integration.ErrInvalidPlatformCode, ErrCodeBadRequest},
	{integration.ErrInvalidSyncInterval, ErrCodeValidation},
	{integration.ErrInvalidSyncCategory, ErrCodeValidation},
	{integration.ErrNoCategoriesEnabled, ErrCodeValidation},
	{integration.ErrWebhookUnsupported, ErrCodeCapabilityNotOffered},
	{integration.ErrUnknownWebhookEvent, ErrCodeBadRequest},
}

// MapIntegrationError resolves a domain error to its API error code.
// Unrecognized errors map to ErrCodeInternal.
func MapIntegrationError(err error) string {
	for _, m := range integrationErrorCodes {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return ErrCodeInternal
}
