package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Credential
// ---------------------------------------------------------------------------

// Credential holds the OAuth tokens for one connection. The plaintext only
// exists in memory; the store seals it before it touches persistence.
type Credential struct {
	// AccessToken is the short-lived bearer token
	AccessToken string
	// RefreshToken is the long-lived token used to obtain new access tokens,
	// empty on platforms that do not issue one
	RefreshToken string
	// ExpiresAt is when the access token stops being valid
	ExpiresAt time.Time
	// Scopes lists the granted OAuth scopes
	Scopes []string
}

// IsExpired reports whether the access token has expired relative to now,
// with a safety margin so tokens are refreshed before the platform rejects
// them mid-request.
func (c Credential) IsExpired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt.Add(-CredentialExpiryMargin))
}

// CanRefresh reports whether a refresh token is available.
func (c Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// CredentialExpiryMargin is how long before nominal expiry a token is
// already treated as expired.
const CredentialExpiryMargin = 60 * time.Second

// ---------------------------------------------------------------------------
// CredentialStore Interface
// ---------------------------------------------------------------------------

// CredentialStore persists credentials sealed at rest. Implementations must
// never expose token material in errors or logs.
type CredentialStore interface {
	// Store seals and persists the credential for a connection, replacing
	// any previous one
	Store(ctx context.Context, connectionID uuid.UUID, cred Credential) error

	// Fetch unseals and returns the credential for a connection;
	// ErrCredentialMissing when none is stored
	Fetch(ctx context.Context, connectionID uuid.UUID) (Credential, error)

	// IsExpired reports whether the stored credential is expired or inside
	// the expiry margin; ErrCredentialMissing when none is stored
	IsExpired(ctx context.Context, connectionID uuid.UUID) (bool, error)

	// Revoke removes the stored credential; removing an absent credential
	// is not an error
	Revoke(ctx context.Context, connectionID uuid.UUID) error
}
