package adplatform

import "errors"

// GoogleAdsConfig holds configuration for the Google Ads API integration
type GoogleAdsConfig struct {
	// ClientID is the OAuth client ID from the Google API console
	ClientID string
	// ClientSecret is the OAuth client secret
	ClientSecret string
	// DeveloperToken is the Google Ads API developer token
	DeveloperToken string
	// APIBaseURL is the base URL for the Google Ads API
	APIBaseURL string
	// TokenURL is the OAuth token endpoint
	TokenURL string
	// WebhookSecret signs and verifies push notifications
	WebhookSecret string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// GoogleAdsProductionAPIURL is the production API endpoint
	GoogleAdsProductionAPIURL = "https://googleads.googleapis.com/v17"
	// GoogleAdsTokenURL is the OAuth token endpoint
	GoogleAdsTokenURL = "https://oauth2.googleapis.com/token"
)

// Errors for Google Ads configuration
var (
	ErrGoogleAdsConfigMissingClientID       = errors.New("googleads: client ID is required")
	ErrGoogleAdsConfigMissingClientSecret   = errors.New("googleads: client secret is required")
	ErrGoogleAdsConfigMissingDeveloperToken = errors.New("googleads: developer token is required")
)

// NewGoogleAdsConfig creates a new Google Ads configuration with defaults
func NewGoogleAdsConfig(clientID, clientSecret, developerToken string) *GoogleAdsConfig {
	return &GoogleAdsConfig{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		DeveloperToken: developerToken,
		APIBaseURL:     GoogleAdsProductionAPIURL,
		TokenURL:       GoogleAdsTokenURL,
		TimeoutSeconds: 30,
	}
}

// Validate validates the Google Ads configuration
func (c *GoogleAdsConfig) Validate() error {
	if c.ClientID == "" {
		return ErrGoogleAdsConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrGoogleAdsConfigMissingClientSecret
	}
	if c.DeveloperToken == "" {
		return ErrGoogleAdsConfigMissingDeveloperToken
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = GoogleAdsProductionAPIURL
	}
	if c.TokenURL == "" {
		c.TokenURL = GoogleAdsTokenURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
