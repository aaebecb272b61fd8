package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adboard/backend/internal/domain/integration"
)

// ConnectionSnapshot is the read-projection view of one connection served to
// the dashboard without touching the database
type ConnectionSnapshot struct {
	ConnectionID        uuid.UUID                    `json:"connection_id"`
	TenantID            uuid.UUID                    `json:"tenant_id"`
	PlatformCode        integration.PlatformCode     `json:"platform_code"`
	Status              integration.ConnectionStatus `json:"status"`
	Account             integration.AccountInfo      `json:"account"`
	SyncEnabled         bool                         `json:"sync_enabled"`
	SyncIntervalMinutes int                          `json:"sync_interval_minutes"`
	EnabledCategories   []integration.SyncCategory   `json:"enabled_categories"`
	LastSyncAt          *time.Time                   `json:"last_sync_at,omitempty"`
	LastErrorKind       integration.ErrorKind        `json:"last_error_kind,omitempty"`
	LastErrorMessage    string                       `json:"last_error_message,omitempty"`
	LastEventType       integration.WebhookEventType `json:"last_event_type,omitempty"`
	LastEventAt         *time.Time                   `json:"last_event_at,omitempty"`
	CreatedAt           time.Time                    `json:"created_at"`
	UpdatedAt           time.Time                    `json:"updated_at"`
}

// connectionSource lists every stored connection; satisfied by the GORM
// connection repository
type connectionSource interface {
	FindAll(ctx context.Context) ([]integration.Connection, error)
}

// StatusRegistry is an in-memory projection of connection state. The sync
// executor and the connection service write to it; the dashboard API reads
// snapshots without a database round trip.
type StatusRegistry struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]ConnectionSnapshot
}

// NewStatusRegistry creates an empty status registry
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{
		byID: make(map[uuid.UUID]ConnectionSnapshot),
	}
}

// Warm loads every stored connection into the registry. Called once at
// startup before traffic is served.
func (r *StatusRegistry) Warm(ctx context.Context, source connectionSource) error {
	conns, err := source.FindAll(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range conns {
		snap := snapshotOf(&conns[i])
		r.byID[snap.ConnectionID] = snap
	}
	return nil
}

// ConnectionUpdated records the connection's current state. Event annotations
// exist only in the projection and survive lifecycle writes.
func (r *StatusRegistry) ConnectionUpdated(conn *integration.Connection) {
	snap := snapshotOf(conn)
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byID[snap.ConnectionID]; ok {
		snap.LastEventType = prev.LastEventType
		snap.LastEventAt = prev.LastEventAt
	}
	r.byID[snap.ConnectionID] = snap
}

// EventApplied records a status-type platform notification against the
// connection's snapshot. Connections the lifecycle has not registered are
// ignored; inbound events never create entries.
func (r *StatusRegistry) EventApplied(connectionID uuid.UUID, event *integration.WebhookEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.byID[connectionID]
	if !ok {
		return
	}
	occurred := event.OccurredAt
	snap.LastEventType = event.Type
	snap.LastEventAt = &occurred
	snap.UpdatedAt = time.Now()
	r.byID[connectionID] = snap
}

// Remove drops a connection from the registry
func (r *StatusRegistry) Remove(connectionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, connectionID)
}

// Get returns the snapshot for one connection
func (r *StatusRegistry) Get(connectionID uuid.UUID) (ConnectionSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap, ok := r.byID[connectionID]
	return snap, ok
}

// GetByTenant returns every snapshot belonging to a tenant, ordered by
// platform code
func (r *StatusRegistry) GetByTenant(tenantID uuid.UUID) []ConnectionSnapshot {
	r.mu.RLock()
	snaps := make([]ConnectionSnapshot, 0)
	for _, snap := range r.byID {
		if snap.TenantID == tenantID {
			snaps = append(snaps, snap)
		}
	}
	r.mu.RUnlock()

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].PlatformCode < snaps[j].PlatformCode
	})
	return snaps
}

func snapshotOf(conn *integration.Connection) ConnectionSnapshot {
	return ConnectionSnapshot{
		ConnectionID:        conn.ID,
		TenantID:            conn.TenantID,
		PlatformCode:        conn.PlatformCode,
		Status:              conn.Status,
		Account:             conn.Account,
		SyncEnabled:         conn.SyncEnabled,
		SyncIntervalMinutes: conn.SyncIntervalMinutes,
		EnabledCategories:   append([]integration.SyncCategory(nil), conn.EnabledCategories...),
		LastSyncAt:          conn.LastSyncAt,
		LastErrorKind:       conn.LastErrorKind,
		LastErrorMessage:    conn.LastErrorMessage,
		CreatedAt:           conn.CreatedAt,
		UpdatedAt:           conn.UpdatedAt,
	}
}
