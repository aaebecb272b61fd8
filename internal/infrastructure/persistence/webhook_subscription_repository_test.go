package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adboard/backend/internal/domain/integration"
)

func TestGormWebhookSubscriptionRepository_SaveAndFind(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormWebhookSubscriptionRepository(db)
	ctx := context.Background()

	connectionID := uuid.New()
	sub := integration.NewWebhookSubscription(connectionID, "platform-sub-1", []integration.WebhookEventType{
		integration.WebhookEventCampaignChange,
		integration.WebhookEventBudgetAlert,
	})
	require.NoError(t, repo.Save(ctx, sub))

	found, err := repo.FindByConnection(ctx, connectionID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)
	assert.Equal(t, "platform-sub-1", found.PlatformSubscriptionID)
	assert.True(t, found.Active)
	assert.Equal(t, []integration.WebhookEventType{
		integration.WebhookEventCampaignChange,
		integration.WebhookEventBudgetAlert,
	}, found.EventTypes)
}

func TestGormWebhookSubscriptionRepository_FindMissing(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormWebhookSubscriptionRepository(db)

	_, err := repo.FindByConnection(context.Background(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrSubscriptionNotFound)
}

func TestGormWebhookSubscriptionRepository_SaveUpdates(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormWebhookSubscriptionRepository(db)
	ctx := context.Background()

	connectionID := uuid.New()
	sub := integration.NewWebhookSubscription(connectionID, "platform-sub-1", []integration.WebhookEventType{
		integration.WebhookEventCampaignChange,
	})
	require.NoError(t, repo.Save(ctx, sub))

	sub.Deactivate()
	require.NoError(t, repo.Save(ctx, sub))

	found, err := repo.FindByConnection(ctx, connectionID)
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestGormWebhookSubscriptionRepository_Delete(t *testing.T) {
	db := setupIntegrationTestDB(t)
	repo := NewGormWebhookSubscriptionRepository(db)
	ctx := context.Background()

	connectionID := uuid.New()
	sub := integration.NewWebhookSubscription(connectionID, "platform-sub-1", []integration.WebhookEventType{
		integration.WebhookEventCampaignChange,
	})
	require.NoError(t, repo.Save(ctx, sub))

	require.NoError(t, repo.Delete(ctx, sub.ID))

	_, err := repo.FindByConnection(ctx, connectionID)
	assert.ErrorIs(t, err, integration.ErrSubscriptionNotFound)

	// Deleting again is not an error
	assert.NoError(t, repo.Delete(ctx, sub.ID))
}
