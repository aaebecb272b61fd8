package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adboard/backend/internal/domain/integration"
)

type staticConnectionSource struct {
	conns []integration.Connection
	err   error
}

func (s *staticConnectionSource) FindAll(ctx context.Context) ([]integration.Connection, error) {
	return s.conns, s.err
}

func TestStatusRegistry_Warm(t *testing.T) {
	tenantID := uuid.New()
	a := connectedConnection(t, tenantID, integration.PlatformCodeGoogleAds)
	b := connectedConnection(t, tenantID, integration.PlatformCodeFacebookAds)

	registry := NewStatusRegistry()
	err := registry.Warm(context.Background(), &staticConnectionSource{conns: []integration.Connection{*a, *b}})
	require.NoError(t, err)

	snap, ok := registry.Get(a.ID)
	require.True(t, ok)
	assert.Equal(t, integration.PlatformCodeGoogleAds, snap.PlatformCode)
	assert.Equal(t, integration.ConnectionStatusConnected, snap.Status)

	_, ok = registry.Get(uuid.New())
	assert.False(t, ok)
}

func TestStatusRegistry_WarmPropagatesError(t *testing.T) {
	registry := NewStatusRegistry()
	err := registry.Warm(context.Background(), &staticConnectionSource{err: assert.AnError})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestStatusRegistry_ConnectionUpdated(t *testing.T) {
	tenantID := uuid.New()
	conn := connectedConnection(t, tenantID, integration.PlatformCodeGoogleAds)

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(conn)

	syncedAt := time.Now().UTC()
	conn.MarkSynced(syncedAt)
	registry.ConnectionUpdated(conn)

	snap, ok := registry.Get(conn.ID)
	require.True(t, ok)
	require.NotNil(t, snap.LastSyncAt)
	assert.WithinDuration(t, syncedAt, *snap.LastSyncAt, time.Second)
}

func TestStatusRegistry_SnapshotCarriesSyncConfig(t *testing.T) {
	tenantID := uuid.New()
	conn := connectedConnection(t, tenantID, integration.PlatformCodeGoogleAds)
	require.NoError(t, conn.UpdateSyncConfig(true, 120, []integration.SyncCategory{integration.SyncCategoryConversions}))

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(conn)

	snap, ok := registry.Get(conn.ID)
	require.True(t, ok)
	assert.True(t, snap.SyncEnabled)
	assert.Equal(t, 120, snap.SyncIntervalMinutes)
	assert.Equal(t, []integration.SyncCategory{integration.SyncCategoryConversions}, snap.EnabledCategories)
	assert.Equal(t, conn.CreatedAt, snap.CreatedAt)
}

func TestStatusRegistry_EventApplied(t *testing.T) {
	conn := connectedConnection(t, uuid.New(), integration.PlatformCodeGoogleAds)

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(conn)

	occurred := time.Now().Add(-time.Minute)
	registry.EventApplied(conn.ID, &integration.WebhookEvent{
		EventID:    "evt-7",
		Type:       integration.WebhookEventBudgetAlert,
		OccurredAt: occurred,
	})

	snap, ok := registry.Get(conn.ID)
	require.True(t, ok)
	assert.Equal(t, integration.WebhookEventBudgetAlert, snap.LastEventType)
	require.NotNil(t, snap.LastEventAt)
	assert.WithinDuration(t, occurred, *snap.LastEventAt, time.Second)
}

func TestStatusRegistry_EventAppliedUnknownConnection(t *testing.T) {
	registry := NewStatusRegistry()
	registry.EventApplied(uuid.New(), &integration.WebhookEvent{
		Type:       integration.WebhookEventBudgetAlert,
		OccurredAt: time.Now(),
	})

	// Inbound events never create projection entries
	assert.Empty(t, registry.GetByTenant(uuid.Nil))
}

func TestStatusRegistry_EventSurvivesLifecycleWrite(t *testing.T) {
	conn := connectedConnection(t, uuid.New(), integration.PlatformCodeGoogleAds)

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(conn)
	registry.EventApplied(conn.ID, &integration.WebhookEvent{
		Type:       integration.WebhookEventBudgetAlert,
		OccurredAt: time.Now(),
	})

	conn.MarkSynced(time.Now())
	registry.ConnectionUpdated(conn)

	snap, ok := registry.Get(conn.ID)
	require.True(t, ok)
	assert.Equal(t, integration.WebhookEventBudgetAlert, snap.LastEventType)
	assert.NotNil(t, snap.LastEventAt)
}

func TestStatusRegistry_Remove(t *testing.T) {
	conn := connectedConnection(t, uuid.New(), integration.PlatformCodeGoogleAds)

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(conn)
	registry.Remove(conn.ID)

	_, ok := registry.Get(conn.ID)
	assert.False(t, ok)
}

func TestStatusRegistry_GetByTenant(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	linkedin := connectedConnection(t, tenantA, integration.PlatformCodeLinkedIn)
	facebook := connectedConnection(t, tenantA, integration.PlatformCodeFacebookAds)
	other := connectedConnection(t, tenantB, integration.PlatformCodeGoogleAds)

	registry := NewStatusRegistry()
	registry.ConnectionUpdated(linkedin)
	registry.ConnectionUpdated(facebook)
	registry.ConnectionUpdated(other)

	snaps := registry.GetByTenant(tenantA)
	require.Len(t, snaps, 2)
	assert.Equal(t, integration.PlatformCodeFacebookAds, snaps[0].PlatformCode, "snapshots sorted by platform code")
	assert.Equal(t, integration.PlatformCodeLinkedIn, snaps[1].PlatformCode)

	assert.Empty(t, registry.GetByTenant(uuid.New()))
}

func TestStatusRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewStatusRegistry()
	tenantID := uuid.New()
	conn := connectedConnection(t, tenantID, integration.PlatformCodeGoogleAds)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				registry.ConnectionUpdated(conn)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				registry.Get(conn.ID)
				registry.GetByTenant(tenantID)
			}
		}()
	}
	wg.Wait()

	_, ok := registry.Get(conn.ID)
	assert.True(t, ok)
}
