package dto

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adboard/backend/internal/domain/integration"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeInvalidSignature, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeNotConnected, http.StatusUnprocessableEntity},
		{ErrCodeCredentialMissing, http.StatusUnprocessableEntity},
		{ErrCodePlatformUnavailable, http.StatusBadGateway},
		{ErrCodePlatformRateLimited, http.StatusTooManyRequests},
		{"ERR_NEVER_DEFINED", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestMapIntegrationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"connection not found", integration.ErrConnectionNotFound, ErrCodeNotFound},
		{"already exists", integration.ErrConnectionAlreadyExists, ErrCodeAlreadyExists},
		{"not connected", integration.ErrConnectionNotConnected, ErrCodeNotConnected},
		{"credential missing", integration.ErrCredentialMissing, ErrCodeCredentialMissing},
		{"auth code invalid", integration.ErrAuthCodeInvalid, ErrCodeAuthRejected},
		{"invalid signature", integration.ErrInvalidSignature, ErrCodeInvalidSignature},
		{"capability not offered", integration.ErrCapabilityNotOffered, ErrCodeCapabilityNotOffered},
		{"platform rate limited", integration.ErrPlatformRateLimited, ErrCodePlatformRateLimited},
		{"platform timeout", integration.ErrPlatformTimeout, ErrCodePlatformUnavailable},
		{"invalid platform code", integration.ErrInvalidPlatformCode, ErrCodeBadRequest},
		{"invalid sync interval", integration.ErrInvalidSyncInterval, ErrCodeValidation},
		{"unknown error", assert.AnError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapIntegrationError(tt.err))
		})
	}
}

func TestMapIntegrationError_WrappedError(t *testing.T) {
	wrapped := fmt.Errorf("fetch campaigns: %w", integration.ErrPlatformRateLimited)
	assert.Equal(t, ErrCodePlatformRateLimited, MapIntegrationError(wrapped))
}

func TestEveryIntegrationCodeHasStatus(t *testing.T) {
	for _, m := range integrationErrorCodes {
		_, ok := ErrorCodeHTTPStatus[m.code]
		assert.True(t, ok, "code %s has no HTTP status mapping", m.code)
	}
}
