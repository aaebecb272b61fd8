package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlatformCode represents the type of advertising platform
type PlatformCode string

const (
	// PlatformCodeFacebookAds represents Facebook Ads (Meta Marketing API)
	PlatformCodeFacebookAds PlatformCode = "FACEBOOK_ADS"
	// PlatformCodeGoogleAds represents Google Ads
	PlatformCodeGoogleAds PlatformCode = "GOOGLE_ADS"
	// PlatformCodeInstagram represents Instagram Business
	PlatformCodeInstagram PlatformCode = "INSTAGRAM"
	// PlatformCodeLinkedIn represents LinkedIn Campaign Manager
	PlatformCodeLinkedIn PlatformCode = "LINKEDIN"
	// PlatformCodeTikTok represents TikTok Ads Manager
	PlatformCodeTikTok PlatformCode = "TIKTOK"
	// PlatformCodeWhatsApp represents WhatsApp Business
	PlatformCodeWhatsApp PlatformCode = "WHATSAPP"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeFacebookAds, PlatformCodeGoogleAds, PlatformCodeInstagram,
		PlatformCodeLinkedIn, PlatformCodeTikTok, PlatformCodeWhatsApp:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeFacebookAds:
		return "Facebook Ads"
	case PlatformCodeGoogleAds:
		return "Google Ads"
	case PlatformCodeInstagram:
		return "Instagram Business"
	case PlatformCodeLinkedIn:
		return "LinkedIn Campaign Manager"
	case PlatformCodeTikTok:
		return "TikTok Ads"
	case PlatformCodeWhatsApp:
		return "WhatsApp Business"
	default:
		return string(c)
	}
}

// AllPlatformCodes returns every supported platform code
func AllPlatformCodes() []PlatformCode {
	return []PlatformCode{
		PlatformCodeFacebookAds,
		PlatformCodeGoogleAds,
		PlatformCodeInstagram,
		PlatformCodeLinkedIn,
		PlatformCodeTikTok,
		PlatformCodeWhatsApp,
	}
}

// ---------------------------------------------------------------------------
// Capability bitmask
// ---------------------------------------------------------------------------

// Capability is a bitmask of the data operations a platform adapter offers.
// Adapters advertise their capabilities at registration time; callers must
// check the mask before dispatching rather than probing at runtime.
type Capability uint8

const (
	// CapabilityCampaigns indicates the adapter can fetch campaign metrics
	CapabilityCampaigns Capability = 1 << iota
	// CapabilityKeywords indicates the adapter can fetch keyword performance
	CapabilityKeywords
	// CapabilityConversions indicates the adapter can fetch conversion data
	CapabilityConversions
	// CapabilityWebhooks indicates the adapter can verify and parse webhooks
	CapabilityWebhooks
)

// Has returns true if the capability set contains all bits of other
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

// Names returns the human-readable capability names in the set
func (c Capability) Names() []string {
	names := make([]string, 0, 4)
	if c.Has(CapabilityCampaigns) {
		names = append(names, "campaigns")
	}
	if c.Has(CapabilityKeywords) {
		names = append(names, "keywords")
	}
	if c.Has(CapabilityConversions) {
		names = append(names, "conversions")
	}
	if c.Has(CapabilityWebhooks) {
		names = append(names, "webhooks")
	}
	return names
}

// ---------------------------------------------------------------------------
// SyncCategory
// ---------------------------------------------------------------------------

// SyncCategory identifies one category of data pulled from a platform
type SyncCategory string

const (
	// SyncCategoryCampaigns covers campaign metadata and spend metrics
	SyncCategoryCampaigns SyncCategory = "campaigns"
	// SyncCategoryKeywords covers keyword-level performance
	SyncCategoryKeywords SyncCategory = "keywords"
	// SyncCategoryConversions covers conversion and attribution data
	SyncCategoryConversions SyncCategory = "conversions"
)

// IsValid returns true if the category is valid
func (s SyncCategory) IsValid() bool {
	switch s {
	case SyncCategoryCampaigns, SyncCategoryKeywords, SyncCategoryConversions:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncCategory
func (s SyncCategory) String() string {
	return string(s)
}

// RequiredCapability maps the category to the capability an adapter must
// advertise to serve it.
func (s SyncCategory) RequiredCapability() Capability {
	switch s {
	case SyncCategoryCampaigns:
		return CapabilityCampaigns
	case SyncCategoryKeywords:
		return CapabilityKeywords
	case SyncCategoryConversions:
		return CapabilityConversions
	default:
		return 0
	}
}

// AllSyncCategories returns every sync category
func AllSyncCategories() []SyncCategory {
	return []SyncCategory{SyncCategoryCampaigns, SyncCategoryKeywords, SyncCategoryConversions}
}

// ---------------------------------------------------------------------------
// Authorize / Fetch DTOs
// ---------------------------------------------------------------------------

// AuthRequest carries the one-time grant a tenant submits when connecting.
type AuthRequest struct {
	// TenantID is the tenant requesting authorization
	TenantID uuid.UUID
	// AuthCode is the one-time OAuth authorization code (or API key for
	// platforms that use static keys)
	AuthCode string
	// RedirectURI is the redirect URI used in the OAuth flow (optional)
	RedirectURI string
}

// Validate validates the authorization request
func (r *AuthRequest) Validate() error {
	if r.TenantID == uuid.Nil {
		return ErrInvalidTenantID
	}
	if r.AuthCode == "" {
		return ErrAuthCodeInvalid
	}
	return nil
}

// FetchRequest is a paged request for records newer than Since.
type FetchRequest struct {
	// AccountID is the platform-side ad account identifier
	AccountID string
	// Since filters records changed after this instant
	Since time.Time
	// PageToken is the opaque cursor returned by the previous page
	// (empty for the first page)
	PageToken string
	// PageSize is the number of records per page
	PageSize int
}

// CampaignPage is one page of campaign records.
type CampaignPage struct {
	Records       []CampaignRecord
	NextPageToken string
	HasMore       bool
}

// KeywordPage is one page of keyword records.
type KeywordPage struct {
	Records       []KeywordRecord
	NextPageToken string
	HasMore       bool
}

// ConversionPage is one page of conversion records.
type ConversionPage struct {
	Records       []ConversionRecord
	NextPageToken string
	HasMore       bool
}

// ---------------------------------------------------------------------------
// AdPlatform Port Interface
// ---------------------------------------------------------------------------

// AdPlatform defines the port interface for external advertising platforms.
// It is defined in the domain layer; concrete variants (Google Ads, Meta,
// TikTok, ...) live in the infrastructure layer. Not every variant offers
// every capability: callers consult Capabilities() before dispatch.
type AdPlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// Capabilities returns the capability bitmask advertised by this adapter
	Capabilities() Capability

	// Authorize exchanges a one-time grant for long-lived credential
	// material. Idempotent on identical input.
	Authorize(ctx context.Context, req *AuthRequest) (*Credential, error)

	// Refresh renews an expiring credential. Callers coalesce concurrent
	// refreshes for the same connection; the adapter itself is stateless.
	Refresh(ctx context.Context, cred *Credential) (*Credential, error)

	// FetchAccountInfo returns the ad account behind the credential.
	// Called once after a successful Authorize to populate the connection.
	FetchAccountInfo(ctx context.Context, cred *Credential) (*AccountInfo, error)

	// FetchCampaigns returns one page of campaign records newer than
	// req.Since. The caller drains pages until HasMore is false.
	FetchCampaigns(ctx context.Context, cred *Credential, req *FetchRequest) (*CampaignPage, error)

	// FetchKeywords returns one page of keyword performance records.
	// Only valid when CapabilityKeywords is advertised.
	FetchKeywords(ctx context.Context, cred *Credential, req *FetchRequest) (*KeywordPage, error)

	// FetchConversions returns one page of conversion records.
	// Only valid when CapabilityConversions is advertised.
	FetchConversions(ctx context.Context, cred *Credential, req *FetchRequest) (*ConversionPage, error)

	// VerifyWebhookSignature verifies an inbound notification against the
	// platform's signing scheme. Returns ErrInvalidSignature on mismatch.
	// Only valid when CapabilityWebhooks is advertised.
	VerifyWebhookSignature(payload []byte, signature string) error

	// ParseWebhookEvent parses a verified payload into a normalized event.
	// Only valid when CapabilityWebhooks is advertised.
	ParseWebhookEvent(payload []byte) (*WebhookEvent, error)
}

// PlatformRegistry provides access to registered platform adapters
type PlatformRegistry interface {
	// Get returns the adapter for the specified code
	Get(code PlatformCode) (AdPlatform, error)

	// GetWithCapability returns the adapter only if it advertises the
	// given capability; otherwise ErrCapabilityNotOffered.
	GetWithCapability(code PlatformCode, cap Capability) (AdPlatform, error)

	// List returns all registered adapters
	List() []AdPlatform
}
