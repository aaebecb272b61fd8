package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/infrastructure/scheduler"
)

// ---------------------------------------------------------------------------
// Connection DTOs
// ---------------------------------------------------------------------------

// ConnectionResponse represents a platform connection in API responses
type ConnectionResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	PlatformCode        integration.PlatformCode     `json:"platform_code"`
	PlatformDisplayName string                       `json:"platform_display_name"`
	Status              integration.ConnectionStatus `json:"status"`
	AccountName         string                       `json:"account_name,omitempty"`
	AccountID           string                       `json:"account_id,omitempty"`
	AccountCurrency     string                       `json:"account_currency,omitempty"`
	SyncEnabled         bool                         `json:"sync_enabled"`
	SyncIntervalMinutes int                          `json:"sync_interval_minutes"`
	EnabledCategories   []integration.SyncCategory   `json:"enabled_categories"`
	LastSyncAt          *time.Time                   `json:"last_sync_at,omitempty"`
	LastErrorKind       integration.ErrorKind        `json:"last_error_kind,omitempty"`
	LastErrorMessage    string                       `json:"last_error_message,omitempty"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

// NewConnectionResponse converts a domain connection to its API shape
func NewConnectionResponse(conn *integration.Connection) ConnectionResponse {
	return ConnectionResponse{
		ID:                  conn.ID,
		PlatformCode:        conn.PlatformCode,
		PlatformDisplayName: conn.PlatformCode.DisplayName(),
		Status:              conn.Status,
		AccountName:         conn.Account.Name,
		AccountID:           conn.Account.AccountID,
		AccountCurrency:     conn.Account.Currency,
		SyncEnabled:         conn.SyncEnabled,
		SyncIntervalMinutes: conn.SyncIntervalMinutes,
		EnabledCategories:   conn.EnabledCategories,
		LastSyncAt:          conn.LastSyncAt,
		LastErrorKind:       conn.LastErrorKind,
		LastErrorMessage:    conn.LastErrorMessage,
		CreatedAt:           conn.CreatedAt,
		UpdatedAt:           conn.UpdatedAt,
	}
}

// NewConnectionResponseFromSnapshot converts a status projection snapshot to
// the API shape. The dashboard read path is served from snapshots, not rows.
func NewConnectionResponseFromSnapshot(snap ConnectionSnapshot) ConnectionResponse {
	return ConnectionResponse{
		ID:                  snap.ConnectionID,
		PlatformCode:        snap.PlatformCode,
		PlatformDisplayName: snap.PlatformCode.DisplayName(),
		Status:              snap.Status,
		AccountName:         snap.Account.Name,
		AccountID:           snap.Account.AccountID,
		AccountCurrency:     snap.Account.Currency,
		SyncEnabled:         snap.SyncEnabled,
		SyncIntervalMinutes: snap.SyncIntervalMinutes,
		EnabledCategories:   snap.EnabledCategories,
		LastSyncAt:          snap.LastSyncAt,
		LastErrorKind:       snap.LastErrorKind,
		LastErrorMessage:    snap.LastErrorMessage,
		CreatedAt:           snap.CreatedAt,
		UpdatedAt:           snap.UpdatedAt,
	}
}

// PlatformResponse describes an available platform in list responses, with
// the platforms the tenant has not connected yet included as DISCONNECTED
type PlatformResponse struct {
	PlatformCode        integration.PlatformCode     `json:"platform_code"`
	PlatformDisplayName string                       `json:"platform_display_name"`
	Status              integration.ConnectionStatus `json:"status"`
	Connection          *ConnectionResponse          `json:"connection,omitempty"`
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// ConnectRequest carries the OAuth grant for a connect call
type ConnectRequest struct {
	AuthCode    string `json:"auth_code" binding:"required"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// UpdateSyncConfigRequest updates a connection's sync settings
type UpdateSyncConfigRequest struct {
	SyncEnabled         bool                       `json:"sync_enabled"`
	SyncIntervalMinutes int                        `json:"sync_interval_minutes" binding:"required,min=5,max=1440"`
	Categories          []integration.SyncCategory `json:"categories"`
}

// TriggerSyncRequest requests a manual sync. Empty categories means every
// enabled category.
type TriggerSyncRequest struct {
	Categories []integration.SyncCategory `json:"categories,omitempty"`
}

// ---------------------------------------------------------------------------
// Sync Job DTOs
// ---------------------------------------------------------------------------

// SyncJobResponse represents an enqueued sync job in API responses
type SyncJobResponse struct {
	JobID        uuid.UUID                  `json:"job_id"`
	ConnectionID uuid.UUID                  `json:"connection_id"`
	PlatformCode integration.PlatformCode   `json:"platform_code"`
	Trigger      scheduler.SyncTrigger      `json:"trigger"`
	Status       scheduler.SyncJobStatus    `json:"status"`
	Categories   []integration.SyncCategory `json:"categories"`
	EnqueuedAt   time.Time                  `json:"enqueued_at"`
}

// NewSyncJobResponse converts a sync job to its API shape
func NewSyncJobResponse(job *scheduler.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		JobID:        job.ID,
		ConnectionID: job.ConnectionID,
		PlatformCode: job.PlatformCode,
		Trigger:      job.Trigger,
		Status:       job.Status,
		Categories:   job.Categories,
		EnqueuedAt:   job.EnqueuedAt,
	}
}
