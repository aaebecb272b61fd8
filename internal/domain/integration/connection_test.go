package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Connection Tests
// ---------------------------------------------------------------------------

func TestNewConnection(t *testing.T) {
	tenantID := uuid.New()

	conn, err := NewConnection(tenantID, PlatformCodeGoogleAds)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, tenantID, conn.TenantID)
	assert.Equal(t, PlatformCodeGoogleAds, conn.PlatformCode)
	assert.Equal(t, ConnectionStatusDisconnected, conn.Status)
	assert.True(t, conn.SyncEnabled)
	assert.Equal(t, DefaultSyncIntervalMinutes, conn.SyncIntervalMinutes)
	assert.Equal(t, []SyncCategory{SyncCategoryCampaigns}, conn.EnabledCategories)
	assert.Nil(t, conn.LastSyncAt)
	assert.Equal(t, 1, conn.Version)
}

func TestNewConnection_Invalid(t *testing.T) {
	_, err := NewConnection(uuid.Nil, PlatformCodeGoogleAds)
	assert.ErrorIs(t, err, ErrInvalidTenantID)

	_, err = NewConnection(uuid.New(), PlatformCode("MYSPACE"))
	assert.ErrorIs(t, err, ErrInvalidPlatformCode)
}

func TestConnection_StatusTransitions(t *testing.T) {
	conn, err := NewConnection(uuid.New(), PlatformCodeFacebookAds)
	require.NoError(t, err)

	conn.MarkConnecting()
	assert.Equal(t, ConnectionStatusConnecting, conn.Status)

	account := AccountInfo{Name: "Acme Ads", AccountID: "act_1234", Currency: "USD"}
	conn.MarkConnected(account)
	assert.Equal(t, ConnectionStatusConnected, conn.Status)
	assert.Equal(t, account, conn.Account)
	assert.Equal(t, ErrorKindNone, conn.LastErrorKind)

	conn.MarkError(ErrorKindPlatform, "platform temporarily unavailable")
	assert.Equal(t, ConnectionStatusError, conn.Status)
	assert.Equal(t, ErrorKindPlatform, conn.LastErrorKind)
	assert.Equal(t, "platform temporarily unavailable", conn.LastErrorMessage)

	conn.MarkDisconnected()
	assert.Equal(t, ConnectionStatusDisconnected, conn.Status)
	assert.Equal(t, AccountInfo{}, conn.Account)
	assert.Equal(t, ErrorKindNone, conn.LastErrorKind)
	assert.Empty(t, conn.LastErrorMessage)
}

func TestConnection_MarkSynced(t *testing.T) {
	conn, err := NewConnection(uuid.New(), PlatformCodeTikTok)
	require.NoError(t, err)

	syncedAt := time.Now().Truncate(time.Second)
	conn.MarkSynced(syncedAt)

	assert.Equal(t, ConnectionStatusConnected, conn.Status)
	require.NotNil(t, conn.LastSyncAt)
	assert.Equal(t, syncedAt, *conn.LastSyncAt)

	// a later failure must not move the last sync marker back
	conn.MarkError(ErrorKindPlatform, "rate limited")
	require.NotNil(t, conn.LastSyncAt)
	assert.Equal(t, syncedAt, *conn.LastSyncAt)
}

func TestConnection_UpdateSyncConfig(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		interval   int
		categories []SyncCategory
		wantErr    error
	}{
		{"valid", true, 30, []SyncCategory{SyncCategoryCampaigns, SyncCategoryKeywords}, nil},
		{"minimum interval", true, MinSyncIntervalMinutes, []SyncCategory{SyncCategoryCampaigns}, nil},
		{"maximum interval", true, MaxSyncIntervalMinutes, []SyncCategory{SyncCategoryCampaigns}, nil},
		{"interval below minimum", true, 4, []SyncCategory{SyncCategoryCampaigns}, ErrInvalidSyncInterval},
		{"interval above maximum", true, 1441, []SyncCategory{SyncCategoryCampaigns}, ErrInvalidSyncInterval},
		{"enabled without categories", true, 15, nil, ErrNoCategoriesEnabled},
		{"disabled without categories", false, 15, nil, nil},
		{"invalid category", true, 15, []SyncCategory{SyncCategory("orders")}, ErrInvalidSyncCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := NewConnection(uuid.New(), PlatformCodeLinkedIn)
			require.NoError(t, err)

			err = conn.UpdateSyncConfig(tt.enabled, tt.interval, tt.categories)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, conn.SyncEnabled)
			assert.Equal(t, tt.interval, conn.SyncIntervalMinutes)
			assert.Equal(t, tt.categories, conn.EnabledCategories)
		})
	}
}

func TestConnection_CategoryEnabled(t *testing.T) {
	conn, err := NewConnection(uuid.New(), PlatformCodeGoogleAds)
	require.NoError(t, err)
	require.NoError(t, conn.UpdateSyncConfig(true, 15, []SyncCategory{SyncCategoryCampaigns, SyncCategoryConversions}))

	assert.True(t, conn.CategoryEnabled(SyncCategoryCampaigns))
	assert.True(t, conn.CategoryEnabled(SyncCategoryConversions))
	assert.False(t, conn.CategoryEnabled(SyncCategoryKeywords))
}

func TestConnection_SyncInterval(t *testing.T) {
	conn, err := NewConnection(uuid.New(), PlatformCodeWhatsApp)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, conn.SyncInterval())

	conn.SyncIntervalMinutes = 0
	assert.Equal(t, 15*time.Minute, conn.SyncInterval())

	conn.SyncIntervalMinutes = 60
	assert.Equal(t, time.Hour, conn.SyncInterval())
}

// ---------------------------------------------------------------------------
// Credential Tests
// ---------------------------------------------------------------------------

func TestCredential_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		expected  bool
	}{
		{"well in the future", now.Add(time.Hour), false},
		{"just past the margin", now.Add(CredentialExpiryMargin + time.Second), false},
		{"inside the margin", now.Add(30 * time.Second), true},
		{"exactly at margin", now.Add(CredentialExpiryMargin), true},
		{"already expired", now.Add(-time.Minute), true},
		{"zero expiry never expires", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := Credential{AccessToken: "tok", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.expected, cred.IsExpired(now))
		})
	}
}

func TestCredential_CanRefresh(t *testing.T) {
	assert.True(t, Credential{RefreshToken: "rt"}.CanRefresh())
	assert.False(t, Credential{}.CanRefresh())
}

// ---------------------------------------------------------------------------
// Webhook Tests
// ---------------------------------------------------------------------------

func TestWebhookEventType_IsValid(t *testing.T) {
	valid := []WebhookEventType{
		WebhookEventCampaignChange,
		WebhookEventBudgetAlert,
		WebhookEventPerformanceChange,
	}
	for _, et := range valid {
		t.Run(string(et), func(t *testing.T) {
			assert.True(t, et.IsValid())
		})
	}
	assert.False(t, WebhookEventType("order-shipped").IsValid())
}

func TestWebhookSubscription_Lifecycle(t *testing.T) {
	connID := uuid.New()
	sub := NewWebhookSubscription(connID, "platform-sub-42", []WebhookEventType{WebhookEventCampaignChange})

	assert.NotEqual(t, uuid.Nil, sub.ID)
	assert.Equal(t, connID, sub.ConnectionID)
	assert.Equal(t, "platform-sub-42", sub.PlatformSubscriptionID)
	assert.True(t, sub.Active)

	sub.Deactivate()
	assert.False(t, sub.Active)
}
