package adplatform

// ---------------------------------------------------------------------------
// OAuth Token Types
// ---------------------------------------------------------------------------

// googleTokenResponse is the OAuth token endpoint response
type googleTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// ---------------------------------------------------------------------------
// API Response Types
// ---------------------------------------------------------------------------

// googleAdsErrorResponse is the error envelope returned by the Ads API
type googleAdsErrorResponse struct {
	Error *googleAdsError `json:"error"`
}

type googleAdsError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// googleAdsAccount is the customer resource behind the credential
type googleAdsAccount struct {
	ResourceName    string `json:"resourceName"`
	ID              string `json:"id"`
	DescriptiveName string `json:"descriptiveName"`
	CurrencyCode    string `json:"currencyCode"`
}

// googleAdsCampaign is one campaign row with its metrics
type googleAdsCampaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	DailyBudget string `json:"dailyBudgetMicros"`
	Spend       string `json:"costMicros"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	Currency    string `json:"currencyCode"`
	UpdatedAt   string `json:"updateTime"`
}

// googleAdsCampaignList is one page of campaigns
type googleAdsCampaignList struct {
	Campaigns     []googleAdsCampaign `json:"campaigns"`
	NextPageToken string              `json:"nextPageToken"`
}

// googleAdsKeyword is one keyword row with its metrics
type googleAdsKeyword struct {
	ID           string `json:"id"`
	CampaignID   string `json:"campaignId"`
	Text         string `json:"text"`
	MatchType    string `json:"matchType"`
	BidMicros    string `json:"cpcBidMicros"`
	Impressions  int64  `json:"impressions"`
	Clicks       int64  `json:"clicks"`
	QualityScore int    `json:"qualityScore"`
	UpdatedAt    string `json:"updateTime"`
}

// googleAdsKeywordList is one page of keywords
type googleAdsKeywordList struct {
	Keywords      []googleAdsKeyword `json:"keywords"`
	NextPageToken string             `json:"nextPageToken"`
}

// googleAdsConversion is one conversion action row
type googleAdsConversion struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaignId"`
	ActionName string `json:"actionName"`
	Count      int64  `json:"conversions"`
	Value      string `json:"conversionsValue"`
	Currency   string `json:"currencyCode"`
	OccurredAt string `json:"conversionDateTime"`
}

// googleAdsConversionList is one page of conversions
type googleAdsConversionList struct {
	Conversions   []googleAdsConversion `json:"conversions"`
	NextPageToken string                `json:"nextPageToken"`
}

// ---------------------------------------------------------------------------
// Webhook Payload Types
// ---------------------------------------------------------------------------

// googleAdsWebhookPayload is the push notification body
type googleAdsWebhookPayload struct {
	EventID    string         `json:"eventId"`
	EventType  string         `json:"eventType"`
	CustomerID string         `json:"customerId"`
	CampaignID string         `json:"campaignId"`
	OccurredAt string         `json:"occurredAt"`
	Detail     map[string]any `json:"detail"`
}
