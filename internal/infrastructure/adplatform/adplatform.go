// Package adplatform contains the concrete advertising-platform adapters
// behind the integration.AdPlatform port, plus the capability-gated registry
// that the sync executor and webhook gateway resolve adapters through.
package adplatform

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/adboard/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from platform APIs (10MB)
const maxResponseSize = 10 * 1024 * 1024

// signHMACSHA256 computes the hex-encoded HMAC-SHA256 of payload under secret.
func signHMACSHA256(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// verifyHMACSHA256 compares a presented hex signature against the expected
// HMAC-SHA256 of the payload in constant time.
func verifyHMACSHA256(secret string, payload []byte, signature string) error {
	expected := signHMACSHA256(secret, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return integration.ErrInvalidSignature
	}
	return nil
}

// mapHTTPStatus maps a platform HTTP status code to the domain error class.
// 401/403 require reconnect, 429 and 5xx are transient, the rest are plain
// request failures.
func mapHTTPStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", integration.ErrAuthFailed, statusCode)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRateLimited, statusCode)
	case statusCode >= 500:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, statusCode)
	default:
		return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, statusCode)
	}
}

// ParseDecimal safely parses a decimal string, returning zero for empty or invalid values
func ParseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
