package integration

import (
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalized record value objects
// ---------------------------------------------------------------------------

// CampaignStatus is the normalized campaign state across platforms
type CampaignStatus string

const (
	// CampaignStatusActive indicates the campaign is delivering
	CampaignStatusActive CampaignStatus = "ACTIVE"
	// CampaignStatusPaused indicates delivery is paused
	CampaignStatusPaused CampaignStatus = "PAUSED"
	// CampaignStatusEnded indicates the campaign finished or was removed
	CampaignStatusEnded CampaignStatus = "ENDED"
)

// IsValid returns true if the status is valid
func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusEnded:
		return true
	default:
		return false
	}
}

// CampaignRecord is a normalized campaign snapshot pulled from a platform
type CampaignRecord struct {
	// PlatformCampaignID is the campaign ID on the platform
	PlatformCampaignID string
	// Name is the campaign display name
	Name string
	// Status is the normalized delivery status
	Status CampaignStatus
	// DailyBudget is the configured daily budget
	DailyBudget decimal.Decimal
	// Spend is the accumulated spend for the reporting window
	Spend decimal.Decimal
	// Impressions is the impression count
	Impressions int64
	// Clicks is the click count
	Clicks int64
	// Currency is the account currency code (e.g. BRL, USD)
	Currency string
	// UpdatedAt is when the record last changed on the platform
	UpdatedAt time.Time
}

// KeywordRecord is a normalized keyword performance row
type KeywordRecord struct {
	// PlatformKeywordID is the keyword/criterion ID on the platform
	PlatformKeywordID string
	// PlatformCampaignID links the keyword to its campaign
	PlatformCampaignID string
	// Text is the keyword text
	Text string
	// MatchType is the platform match type (EXACT, PHRASE, BROAD)
	MatchType string
	// Bid is the max CPC bid
	Bid decimal.Decimal
	// Impressions is the impression count
	Impressions int64
	// Clicks is the click count
	Clicks int64
	// QualityScore is the platform quality score (0 when not provided)
	QualityScore int
	// UpdatedAt is when the record last changed on the platform
	UpdatedAt time.Time
}

// ConversionRecord is a normalized conversion/attribution row
type ConversionRecord struct {
	// PlatformConversionID is the conversion action ID on the platform
	PlatformConversionID string
	// PlatformCampaignID links the conversion to its campaign
	PlatformCampaignID string
	// ActionName is the conversion action display name
	ActionName string
	// Count is the number of conversions attributed
	Count int64
	// Value is the total attributed conversion value
	Value decimal.Decimal
	// Currency is the value currency code
	Currency string
	// OccurredAt is the conversion timestamp (end of aggregation window)
	OccurredAt time.Time
}
