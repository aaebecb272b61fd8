package integration

import "errors"

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Credential errors
	ErrCredentialMissing = errors.New("integration: credential missing or revoked")
	ErrCredentialExpired = errors.New("integration: credential expired")

	// Authorization errors (require reconnect, never retried)
	ErrAuthFailed       = errors.New("integration: platform authorization failed")
	ErrAuthCodeInvalid  = errors.New("integration: authorization code rejected")
	ErrPermissionDenied = errors.New("integration: platform permission denied")

	// Platform errors (transient, subject to retry)
	ErrPlatformUnavailable   = errors.New("integration: platform temporarily unavailable")
	ErrPlatformRequestFailed = errors.New("integration: platform request failed")
	ErrPlatformRateLimited   = errors.New("integration: platform rate limited")
	ErrPlatformTimeout       = errors.New("integration: platform call timed out")

	// Response errors
	ErrPlatformInvalidResponse = errors.New("integration: invalid platform response")

	// Webhook errors
	ErrInvalidSignature    = errors.New("integration: invalid webhook signature")
	ErrWebhookUnsupported  = errors.New("integration: platform does not support webhooks")
	ErrUnknownWebhookEvent = errors.New("integration: unknown webhook event type")

	// Adapter/registry errors
	ErrPlatformNotRegistered = errors.New("integration: platform not registered")
	ErrCapabilityNotOffered  = errors.New("integration: capability not offered by platform")

	// Connection errors
	ErrConnectionNotFound      = errors.New("integration: connection not found")
	ErrConnectionAlreadyExists = errors.New("integration: connection already exists for platform")
	ErrConnectionNotConnected  = errors.New("integration: connection is not connected")
	ErrInvalidTenantID         = errors.New("integration: invalid tenant ID")
	ErrInvalidPlatformCode     = errors.New("integration: invalid platform code")
	ErrInvalidSyncInterval     = errors.New("integration: sync interval out of range")
	ErrInvalidSyncCategory     = errors.New("integration: invalid sync category")
	ErrNoCategoriesEnabled     = errors.New("integration: no sync categories enabled")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("integration: webhook subscription not found")
)

// ---------------------------------------------------------------------------
// ErrorKind Classification
// ---------------------------------------------------------------------------

// ErrorKind is the normalized failure class surfaced to the dashboard.
// Raw platform errors never leave the backend; only kind + message do.
type ErrorKind string

const (
	// ErrorKindNone indicates no error
	ErrorKindNone ErrorKind = ""
	// ErrorKindCredentialMissing indicates the credential is gone; reconnect required
	ErrorKindCredentialMissing ErrorKind = "CREDENTIAL_MISSING"
	// ErrorKindAuth indicates the platform rejected our authorization; reconnect required
	ErrorKindAuth ErrorKind = "AUTH_ERROR"
	// ErrorKindPlatform indicates a transient platform failure (retried)
	ErrorKindPlatform ErrorKind = "PLATFORM_ERROR"
	// ErrorKindInvalidSignature indicates a webhook failed verification
	ErrorKindInvalidSignature ErrorKind = "INVALID_SIGNATURE"
	// ErrorKindValidation indicates malformed input rejected at enqueue time
	ErrorKindValidation ErrorKind = "VALIDATION_ERROR"
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	return string(k)
}

// Classify maps an error to its normalized ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ErrorKindNone
	case errors.Is(err, ErrCredentialMissing):
		return ErrorKindCredentialMissing
	case errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrAuthCodeInvalid),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrCredentialExpired):
		return ErrorKindAuth
	case errors.Is(err, ErrInvalidSignature):
		return ErrorKindInvalidSignature
	case errors.Is(err, ErrInvalidTenantID),
		errors.Is(err, ErrInvalidPlatformCode),
		errors.Is(err, ErrInvalidSyncInterval),
		errors.Is(err, ErrInvalidSyncCategory),
		errors.Is(err, ErrNoCategoriesEnabled):
		return ErrorKindValidation
	default:
		return ErrorKindPlatform
	}
}

// IsTransient reports whether the error belongs to the retryable platform
// class. Auth and credential errors are terminal until the tenant reconnects.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPlatformUnavailable) ||
		errors.Is(err, ErrPlatformRequestFailed) ||
		errors.Is(err, ErrPlatformRateLimited) ||
		errors.Is(err, ErrPlatformTimeout)
}
