package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// WebhookEventType
// ---------------------------------------------------------------------------

// WebhookEventType classifies inbound platform notifications
type WebhookEventType string

const (
	// WebhookEventCampaignChange signals a campaign was created, edited or
	// changed status on the platform
	WebhookEventCampaignChange WebhookEventType = "campaign-change"
	// WebhookEventBudgetAlert signals a budget threshold was crossed
	WebhookEventBudgetAlert WebhookEventType = "budget-alert"
	// WebhookEventPerformanceChange signals a significant metric swing
	WebhookEventPerformanceChange WebhookEventType = "performance-change"
)

// AllWebhookEventTypes returns every supported event type
func AllWebhookEventTypes() []WebhookEventType {
	return []WebhookEventType{
		WebhookEventCampaignChange,
		WebhookEventBudgetAlert,
		WebhookEventPerformanceChange,
	}
}

// IsValid returns true if the event type is valid
func (t WebhookEventType) IsValid() bool {
	switch t {
	case WebhookEventCampaignChange, WebhookEventBudgetAlert, WebhookEventPerformanceChange:
		return true
	default:
		return false
	}
}

// String returns the string representation of WebhookEventType
func (t WebhookEventType) String() string {
	return string(t)
}

// TriggersSync reports whether the event invalidates synced data and needs
// a targeted sync. Budget alerts carry their state in the notification
// itself and are applied to the status projection without fetching.
func (t WebhookEventType) TriggersSync() bool {
	return t != WebhookEventBudgetAlert
}

// SyncCategory maps a data event to the category it invalidates. Performance
// swings surface in conversion metrics; campaign edits invalidate the
// campaign snapshot.
func (t WebhookEventType) SyncCategory() SyncCategory {
	switch t {
	case WebhookEventPerformanceChange:
		return SyncCategoryConversions
	default:
		return SyncCategoryCampaigns
	}
}

// ---------------------------------------------------------------------------
// WebhookEvent
// ---------------------------------------------------------------------------

// WebhookEvent is a verified, parsed platform notification. EventID is the
// platform-assigned identifier used for deduplication; two deliveries with
// the same EventID are the same event.
type WebhookEvent struct {
	// EventID is the platform-assigned unique event identifier
	EventID string
	// Type classifies the notification
	Type WebhookEventType
	// PlatformCode identifies the emitting platform
	PlatformCode PlatformCode
	// AccountID is the platform-side ad account the event concerns
	AccountID string
	// CampaignID is the platform-side campaign, empty for account-level events
	CampaignID string
	// OccurredAt is when the event happened on the platform
	OccurredAt time.Time
	// Payload carries the parsed event body for downstream consumers
	Payload map[string]any
}

// ---------------------------------------------------------------------------
// WebhookSubscription
// ---------------------------------------------------------------------------

// WebhookSubscription records a registered push channel for one connection
type WebhookSubscription struct {
	// ID is the unique subscription identifier
	ID uuid.UUID
	// ConnectionID is the owning connection
	ConnectionID uuid.UUID
	// PlatformSubscriptionID is the platform-side subscription handle
	PlatformSubscriptionID string
	// EventTypes lists the subscribed notification types
	EventTypes []WebhookEventType
	// Active indicates the subscription is live on the platform
	Active bool
	// CreatedAt is when the subscription was registered
	CreatedAt time.Time
	// UpdatedAt is when the subscription last changed
	UpdatedAt time.Time
}

// NewWebhookSubscription creates an active subscription for a connection.
func NewWebhookSubscription(connectionID uuid.UUID, platformSubID string, eventTypes []WebhookEventType) *WebhookSubscription {
	now := time.Now()
	return &WebhookSubscription{
		ID:                     uuid.New(),
		ConnectionID:           connectionID,
		PlatformSubscriptionID: platformSubID,
		EventTypes:             eventTypes,
		Active:                 true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

// Deactivate marks the subscription as torn down.
func (s *WebhookSubscription) Deactivate() {
	s.Active = false
	s.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// WebhookSubscriptionRepository Interface
// ---------------------------------------------------------------------------

// WebhookSubscriptionRepository persists webhook subscriptions
type WebhookSubscriptionRepository interface {
	// Save creates or updates a subscription
	Save(ctx context.Context, sub *WebhookSubscription) error

	// FindByConnection finds the subscription for a connection;
	// ErrSubscriptionNotFound when absent
	FindByConnection(ctx context.Context, connectionID uuid.UUID) (*WebhookSubscription, error)

	// Delete removes a subscription
	Delete(ctx context.Context, id uuid.UUID) error
}
