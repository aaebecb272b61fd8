package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ConnectionStatus
// ---------------------------------------------------------------------------

// ConnectionStatus represents the state of a tenant's link to a platform
type ConnectionStatus string

const (
	// ConnectionStatusDisconnected indicates no valid authorization exists
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	// ConnectionStatusConnecting indicates authorization is in progress
	ConnectionStatusConnecting ConnectionStatus = "CONNECTING"
	// ConnectionStatusConnected indicates the link is authorized and syncing
	ConnectionStatusConnected ConnectionStatus = "CONNECTED"
	// ConnectionStatusError indicates the last sync or authorization failed
	ConnectionStatusError ConnectionStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusDisconnected, ConnectionStatusConnecting,
		ConnectionStatusConnected, ConnectionStatusError:
		return true
	default:
		return false
	}
}

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Sync interval bounds
// ---------------------------------------------------------------------------

const (
	// DefaultSyncIntervalMinutes is the default sync cadence
	DefaultSyncIntervalMinutes = 15
	// MinSyncIntervalMinutes is the smallest allowed sync cadence
	MinSyncIntervalMinutes = 5
	// MaxSyncIntervalMinutes is the largest allowed sync cadence (24h)
	MaxSyncIntervalMinutes = 1440
)

// ---------------------------------------------------------------------------
// AccountInfo
// ---------------------------------------------------------------------------

// AccountInfo describes the platform-side ad account behind a connection
type AccountInfo struct {
	// Name is the ad account display name
	Name string
	// AccountID is the platform-side account identifier
	AccountID string
	// Currency is the account currency code
	Currency string
}

// ---------------------------------------------------------------------------
// Connection Entity
// ---------------------------------------------------------------------------

// Connection is a tenant's authorized link to one advertising platform.
// At most one Connection exists per (tenant, platform) pair; the repository
// enforces this with a unique index. Status transitions happen only through
// the sync executor or explicit connect/disconnect actions.
type Connection struct {
	// ID is the unique connection identifier
	ID uuid.UUID
	// TenantID is the owning tenant
	TenantID uuid.UUID
	// PlatformCode identifies the platform this connection targets
	PlatformCode PlatformCode
	// Status is the current connection state
	Status ConnectionStatus
	// Account describes the platform-side ad account
	Account AccountInfo
	// SyncEnabled gates scheduled syncs for this connection
	SyncEnabled bool
	// SyncIntervalMinutes is the scheduled sync cadence
	SyncIntervalMinutes int
	// EnabledCategories lists the data categories pulled on each sync
	EnabledCategories []SyncCategory
	// LastSyncAt is the last successful sync completion, nil when never synced
	LastSyncAt *time.Time
	// LastErrorKind is the normalized kind of the last failure
	LastErrorKind ErrorKind
	// LastErrorMessage is the sanitized message of the last failure
	LastErrorMessage string
	// CreatedAt is when the connection was created
	CreatedAt time.Time
	// UpdatedAt is when the connection last changed
	UpdatedAt time.Time
	// Version supports optimistic locking
	Version int
}

// NewConnection creates a disconnected connection with default sync settings.
func NewConnection(tenantID uuid.UUID, platformCode PlatformCode) (*Connection, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !platformCode.IsValid() {
		return nil, ErrInvalidPlatformCode
	}
	now := time.Now()
	return &Connection{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		PlatformCode:        platformCode,
		Status:              ConnectionStatusDisconnected,
		SyncEnabled:         true,
		SyncIntervalMinutes: DefaultSyncIntervalMinutes,
		EnabledCategories:   []SyncCategory{SyncCategoryCampaigns},
		CreatedAt:           now,
		UpdatedAt:           now,
		Version:             1,
	}, nil
}

// MarkConnecting flags the connection while authorization is in flight.
func (c *Connection) MarkConnecting() {
	c.Status = ConnectionStatusConnecting
	c.UpdatedAt = time.Now()
}

// MarkConnected records a successful authorization or sync.
func (c *Connection) MarkConnected(account AccountInfo) {
	c.Status = ConnectionStatusConnected
	c.Account = account
	c.LastErrorKind = ErrorKindNone
	c.LastErrorMessage = ""
	c.UpdatedAt = time.Now()
}

// MarkSynced records a successful sync completion. LastSyncAt only advances
// on success; failed syncs leave it untouched.
func (c *Connection) MarkSynced(at time.Time) {
	c.Status = ConnectionStatusConnected
	c.LastSyncAt = &at
	c.LastErrorKind = ErrorKindNone
	c.LastErrorMessage = ""
	c.UpdatedAt = time.Now()
}

// MarkError records a normalized failure. LastSyncAt is preserved.
func (c *Connection) MarkError(kind ErrorKind, message string) {
	c.Status = ConnectionStatusError
	c.LastErrorKind = kind
	c.LastErrorMessage = message
	c.UpdatedAt = time.Now()
}

// MarkDisconnected clears authorization state.
func (c *Connection) MarkDisconnected() {
	c.Status = ConnectionStatusDisconnected
	c.Account = AccountInfo{}
	c.LastErrorKind = ErrorKindNone
	c.LastErrorMessage = ""
	c.UpdatedAt = time.Now()
}

// CategoryEnabled returns true if the given category is enabled for sync.
func (c *Connection) CategoryEnabled(cat SyncCategory) bool {
	for _, enabled := range c.EnabledCategories {
		if enabled == cat {
			return true
		}
	}
	return false
}

// UpdateSyncConfig replaces the sync configuration after validation.
func (c *Connection) UpdateSyncConfig(enabled bool, intervalMinutes int, categories []SyncCategory) error {
	if intervalMinutes < MinSyncIntervalMinutes || intervalMinutes > MaxSyncIntervalMinutes {
		return ErrInvalidSyncInterval
	}
	if enabled && len(categories) == 0 {
		return ErrNoCategoriesEnabled
	}
	for _, cat := range categories {
		if !cat.IsValid() {
			return ErrInvalidSyncCategory
		}
	}
	c.SyncEnabled = enabled
	c.SyncIntervalMinutes = intervalMinutes
	c.EnabledCategories = categories
	c.UpdatedAt = time.Now()
	return nil
}

// SyncInterval returns the configured cadence as a duration.
func (c *Connection) SyncInterval() time.Duration {
	minutes := c.SyncIntervalMinutes
	if minutes <= 0 {
		minutes = DefaultSyncIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ---------------------------------------------------------------------------
// ConnectionRepository Interface
// ---------------------------------------------------------------------------

// ConnectionRepository defines the interface for persisting connections
type ConnectionRepository interface {
	// Save creates or updates a connection
	Save(ctx context.Context, conn *Connection) error

	// FindByID finds a connection by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)

	// FindByTenantAndPlatform finds the connection for a (tenant, platform)
	// pair; ErrConnectionNotFound when absent
	FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, code PlatformCode) (*Connection, error)

	// FindAllSyncEnabled finds every connection with scheduled sync enabled
	// across tenants (consumed by the cron trigger)
	FindAllSyncEnabled(ctx context.Context) ([]Connection, error)

	// Delete removes a connection
	Delete(ctx context.Context, id uuid.UUID) error
}
