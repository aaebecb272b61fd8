package models

import (
	"encoding/json"
	"time"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConnectionModel is the persistence model for the Connection aggregate.
type ConnectionModel struct {
	ID                  uuid.UUID                    `gorm:"type:uuid;primary_key"`
	TenantID            uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_connections_tenant_platform,priority:1"`
	PlatformCode        integration.PlatformCode     `gorm:"type:varchar(20);not null;uniqueIndex:idx_connections_tenant_platform,priority:2"`
	Status              integration.ConnectionStatus `gorm:"type:varchar(20);not null;default:'DISCONNECTED';index"`
	AccountName         string                       `gorm:"type:varchar(255)"`
	AccountID           string                       `gorm:"type:varchar(100)"`
	AccountCurrency     string                       `gorm:"type:varchar(10)"`
	SyncEnabled         bool                         `gorm:"not null;default:true;index"`
	SyncIntervalMinutes int                          `gorm:"not null;default:15"`
	EnabledCategories   string                       `gorm:"type:jsonb;column:enabled_categories"`
	LastSyncAt          *time.Time                   `gorm:"index"`
	LastErrorKind       integration.ErrorKind        `gorm:"type:varchar(30)"`
	LastErrorMessage    string                       `gorm:"type:text"`
	CreatedAt           time.Time                    `gorm:"not null"`
	UpdatedAt           time.Time                    `gorm:"not null"`
	Version             int                          `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (ConnectionModel) TableName() string {
	return "integration_connections"
}

// ToDomain converts the persistence model to a domain Connection.
func (m *ConnectionModel) ToDomain() *integration.Connection {
	conn := &integration.Connection{
		ID:           m.ID,
		TenantID:     m.TenantID,
		PlatformCode: m.PlatformCode,
		Status:       m.Status,
		Account: integration.AccountInfo{
			Name:      m.AccountName,
			AccountID: m.AccountID,
			Currency:  m.AccountCurrency,
		},
		SyncEnabled:         m.SyncEnabled,
		SyncIntervalMinutes: m.SyncIntervalMinutes,
		EnabledCategories:   make([]integration.SyncCategory, 0),
		LastSyncAt:          m.LastSyncAt,
		LastErrorKind:       m.LastErrorKind,
		LastErrorMessage:    m.LastErrorMessage,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
		Version:             m.Version,
	}

	if m.EnabledCategories != "" {
		var categories []integration.SyncCategory
		if err := json.Unmarshal([]byte(m.EnabledCategories), &categories); err == nil {
			conn.EnabledCategories = categories
		}
	}

	return conn
}

// FromDomain populates the persistence model from a domain Connection.
func (m *ConnectionModel) FromDomain(conn *integration.Connection) {
	m.ID = conn.ID
	m.TenantID = conn.TenantID
	m.PlatformCode = conn.PlatformCode
	m.Status = conn.Status
	m.AccountName = conn.Account.Name
	m.AccountID = conn.Account.AccountID
	m.AccountCurrency = conn.Account.Currency
	m.SyncEnabled = conn.SyncEnabled
	m.SyncIntervalMinutes = conn.SyncIntervalMinutes
	m.LastSyncAt = conn.LastSyncAt
	m.LastErrorKind = conn.LastErrorKind
	m.LastErrorMessage = conn.LastErrorMessage
	m.CreatedAt = conn.CreatedAt
	m.UpdatedAt = conn.UpdatedAt
	m.Version = conn.Version

	if len(conn.EnabledCategories) > 0 {
		if jsonBytes, err := json.Marshal(conn.EnabledCategories); err == nil {
			m.EnabledCategories = string(jsonBytes)
		}
	} else {
		m.EnabledCategories = "[]"
	}
}

// ConnectionModelFromDomain creates a new persistence model from a domain Connection.
func ConnectionModelFromDomain(conn *integration.Connection) *ConnectionModel {
	m := &ConnectionModel{}
	m.FromDomain(conn)
	return m
}

// CredentialModel holds the sealed credential payload for one connection.
// The payload is encrypted before it reaches this model; the plaintext
// credential never touches the database.
type CredentialModel struct {
	ConnectionID uuid.UUID `gorm:"type:uuid;primary_key"`
	Sealed       []byte    `gorm:"type:bytea;not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CredentialModel) TableName() string {
	return "integration_credentials"
}

// WebhookSubscriptionModel is the persistence model for webhook subscriptions.
type WebhookSubscriptionModel struct {
	ID                     uuid.UUID `gorm:"type:uuid;primary_key"`
	ConnectionID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_subs_connection"`
	PlatformSubscriptionID string    `gorm:"type:varchar(100);not null"`
	EventTypes             string    `gorm:"type:jsonb;column:event_types"`
	Active                 bool      `gorm:"not null;default:true"`
	CreatedAt              time.Time `gorm:"not null"`
	UpdatedAt              time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookSubscriptionModel) TableName() string {
	return "integration_webhook_subscriptions"
}

// ToDomain converts the persistence model to a domain WebhookSubscription.
func (m *WebhookSubscriptionModel) ToDomain() *integration.WebhookSubscription {
	sub := &integration.WebhookSubscription{
		ID:                     m.ID,
		ConnectionID:           m.ConnectionID,
		PlatformSubscriptionID: m.PlatformSubscriptionID,
		EventTypes:             make([]integration.WebhookEventType, 0),
		Active:                 m.Active,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}

	if m.EventTypes != "" {
		var eventTypes []integration.WebhookEventType
		if err := json.Unmarshal([]byte(m.EventTypes), &eventTypes); err == nil {
			sub.EventTypes = eventTypes
		}
	}

	return sub
}

// FromDomain populates the persistence model from a domain WebhookSubscription.
func (m *WebhookSubscriptionModel) FromDomain(sub *integration.WebhookSubscription) {
	m.ID = sub.ID
	m.ConnectionID = sub.ConnectionID
	m.PlatformSubscriptionID = sub.PlatformSubscriptionID
	m.Active = sub.Active
	m.CreatedAt = sub.CreatedAt
	m.UpdatedAt = sub.UpdatedAt

	if len(sub.EventTypes) > 0 {
		if jsonBytes, err := json.Marshal(sub.EventTypes); err == nil {
			m.EventTypes = string(jsonBytes)
		}
	} else {
		m.EventTypes = "[]"
	}
}

// CampaignMetricModel is one synced campaign row. Rows for a connection are
// replaced wholesale on each sync; there is no cross-sync history.
type CampaignMetricModel struct {
	ID                 uuid.UUID                  `gorm:"type:uuid;primary_key"`
	ConnectionID       uuid.UUID                  `gorm:"type:uuid;not null;index:idx_campaign_metrics_connection"`
	PlatformCampaignID string                     `gorm:"type:varchar(100);not null"`
	Name               string                     `gorm:"type:varchar(255)"`
	Status             integration.CampaignStatus `gorm:"type:varchar(20);not null"`
	DailyBudget        decimal.Decimal            `gorm:"type:decimal(18,6);not null"`
	Spend              decimal.Decimal            `gorm:"type:decimal(18,6);not null"`
	Impressions        int64                      `gorm:"not null;default:0"`
	Clicks             int64                      `gorm:"not null;default:0"`
	Currency           string                     `gorm:"type:varchar(10)"`
	SyncedAt           time.Time                  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CampaignMetricModel) TableName() string {
	return "campaign_metrics"
}

// ToDomain converts the persistence model to a domain CampaignRecord.
func (m *CampaignMetricModel) ToDomain() integration.CampaignRecord {
	return integration.CampaignRecord{
		PlatformCampaignID: m.PlatformCampaignID,
		Name:               m.Name,
		Status:             m.Status,
		DailyBudget:        m.DailyBudget,
		Spend:              m.Spend,
		Impressions:        m.Impressions,
		Clicks:             m.Clicks,
		Currency:           m.Currency,
	}
}

// CampaignMetricModelFromRecord creates a persistence row from a fetched record.
func CampaignMetricModelFromRecord(connectionID uuid.UUID, rec integration.CampaignRecord, syncedAt time.Time) *CampaignMetricModel {
	return &CampaignMetricModel{
		ID:                 uuid.New(),
		ConnectionID:       connectionID,
		PlatformCampaignID: rec.PlatformCampaignID,
		Name:               rec.Name,
		Status:             rec.Status,
		DailyBudget:        rec.DailyBudget,
		Spend:              rec.Spend,
		Impressions:        rec.Impressions,
		Clicks:             rec.Clicks,
		Currency:           rec.Currency,
		SyncedAt:           syncedAt,
	}
}

// KeywordMetricModel is one synced keyword row.
type KeywordMetricModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	ConnectionID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_keyword_metrics_connection"`
	PlatformKeywordID  string          `gorm:"type:varchar(100);not null"`
	PlatformCampaignID string          `gorm:"type:varchar(100);not null"`
	Text               string          `gorm:"type:varchar(255)"`
	MatchType          string          `gorm:"type:varchar(20)"`
	Bid                decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Impressions        int64           `gorm:"not null;default:0"`
	Clicks             int64           `gorm:"not null;default:0"`
	QualityScore       int             `gorm:"not null;default:0"`
	SyncedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (KeywordMetricModel) TableName() string {
	return "keyword_metrics"
}

// ToDomain converts the persistence model to a domain KeywordRecord.
func (m *KeywordMetricModel) ToDomain() integration.KeywordRecord {
	return integration.KeywordRecord{
		PlatformKeywordID:  m.PlatformKeywordID,
		PlatformCampaignID: m.PlatformCampaignID,
		Text:               m.Text,
		MatchType:          m.MatchType,
		Bid:                m.Bid,
		Impressions:        m.Impressions,
		Clicks:             m.Clicks,
		QualityScore:       m.QualityScore,
	}
}

// KeywordMetricModelFromRecord creates a persistence row from a fetched record.
func KeywordMetricModelFromRecord(connectionID uuid.UUID, rec integration.KeywordRecord, syncedAt time.Time) *KeywordMetricModel {
	return &KeywordMetricModel{
		ID:                 uuid.New(),
		ConnectionID:       connectionID,
		PlatformKeywordID:  rec.PlatformKeywordID,
		PlatformCampaignID: rec.PlatformCampaignID,
		Text:               rec.Text,
		MatchType:          rec.MatchType,
		Bid:                rec.Bid,
		Impressions:        rec.Impressions,
		Clicks:             rec.Clicks,
		QualityScore:       rec.QualityScore,
		SyncedAt:           syncedAt,
	}
}

// ConversionMetricModel is one synced conversion row.
type ConversionMetricModel struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primary_key"`
	ConnectionID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_conversion_metrics_connection"`
	PlatformConversionID string          `gorm:"type:varchar(100);not null"`
	PlatformCampaignID   string          `gorm:"type:varchar(100);not null"`
	ActionName           string          `gorm:"type:varchar(255)"`
	Count                int64           `gorm:"not null;default:0"`
	Value                decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Currency             string          `gorm:"type:varchar(10)"`
	OccurredAt           time.Time       `gorm:"not null"`
	SyncedAt             time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ConversionMetricModel) TableName() string {
	return "conversion_metrics"
}

// ToDomain converts the persistence model to a domain ConversionRecord.
func (m *ConversionMetricModel) ToDomain() integration.ConversionRecord {
	return integration.ConversionRecord{
		PlatformConversionID: m.PlatformConversionID,
		PlatformCampaignID:   m.PlatformCampaignID,
		ActionName:           m.ActionName,
		Count:                m.Count,
		Value:                m.Value,
		Currency:             m.Currency,
		OccurredAt:           m.OccurredAt,
	}
}

// ConversionMetricModelFromRecord creates a persistence row from a fetched record.
func ConversionMetricModelFromRecord(connectionID uuid.UUID, rec integration.ConversionRecord, syncedAt time.Time) *ConversionMetricModel {
	return &ConversionMetricModel{
		ID:                   uuid.New(),
		ConnectionID:         connectionID,
		PlatformConversionID: rec.PlatformConversionID,
		PlatformCampaignID:   rec.PlatformCampaignID,
		ActionName:           rec.ActionName,
		Count:                rec.Count,
		Value:                rec.Value,
		Currency:             rec.Currency,
		OccurredAt:           rec.OccurredAt,
		SyncedAt:             syncedAt,
	}
}
