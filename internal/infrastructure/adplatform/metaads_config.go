package adplatform

import "errors"

// MetaAdsConfig holds configuration for the Meta Marketing API integration.
// One config serves both Facebook Ads and Instagram adapters.
type MetaAdsConfig struct {
	// AppID is the Meta app identifier
	AppID string
	// AppSecret is the Meta app secret, also the webhook signing key
	AppSecret string
	// APIBaseURL is the Graph API base URL
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// MetaGraphAPIURL is the production Graph API endpoint
const MetaGraphAPIURL = "https://graph.facebook.com/v19.0"

// Errors for Meta configuration
var (
	ErrMetaConfigMissingAppID     = errors.New("metaads: app ID is required")
	ErrMetaConfigMissingAppSecret = errors.New("metaads: app secret is required")
)

// NewMetaAdsConfig creates a new Meta configuration with defaults
func NewMetaAdsConfig(appID, appSecret string) *MetaAdsConfig {
	return &MetaAdsConfig{
		AppID:          appID,
		AppSecret:      appSecret,
		APIBaseURL:     MetaGraphAPIURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Meta configuration
func (c *MetaAdsConfig) Validate() error {
	if c.AppID == "" {
		return ErrMetaConfigMissingAppID
	}
	if c.AppSecret == "" {
		return ErrMetaConfigMissingAppSecret
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = MetaGraphAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
