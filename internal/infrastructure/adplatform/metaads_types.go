package adplatform

// ---------------------------------------------------------------------------
// OAuth Token Types
// ---------------------------------------------------------------------------

// metaTokenResponse is the Graph API token exchange response. Meta issues
// long-lived tokens without a refresh token.
type metaTokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	Error       *metaAPIError `json:"error"`
}

// metaAPIError is the Graph API error envelope
type metaAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode"`
	TraceID string `json:"fbtrace_id"`
}

// metaErrorResponse wraps an error-only response body
type metaErrorResponse struct {
	Error *metaAPIError `json:"error"`
}

// ---------------------------------------------------------------------------
// API Response Types
// ---------------------------------------------------------------------------

// metaAdAccount is the ad account resource
type metaAdAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// metaPaging is the Graph API cursor paging block
type metaPaging struct {
	Cursors struct {
		After string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

// metaCampaign is one campaign row with its insight metrics
type metaCampaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"effective_status"`
	DailyBudget string `json:"daily_budget"`
	Spend       string `json:"spend"`
	Impressions int64  `json:"impressions,string"`
	Clicks      int64  `json:"clicks,string"`
	Currency    string `json:"currency"`
	UpdatedTime string `json:"updated_time"`
}

// metaCampaignList is one page of campaigns
type metaCampaignList struct {
	Data   []metaCampaign `json:"data"`
	Paging metaPaging     `json:"paging"`
	Error  *metaAPIError  `json:"error"`
}

// metaConversion is one conversion action row
type metaConversion struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	ActionType string `json:"action_type"`
	Count      int64  `json:"value,string"`
	TotalValue string `json:"total_value"`
	Currency   string `json:"currency"`
	EventTime  string `json:"event_time"`
}

// metaConversionList is one page of conversions
type metaConversionList struct {
	Data   []metaConversion `json:"data"`
	Paging metaPaging       `json:"paging"`
	Error  *metaAPIError    `json:"error"`
}

// ---------------------------------------------------------------------------
// Webhook Payload Types
// ---------------------------------------------------------------------------

// metaWebhookPayload is the webhook notification body. Meta delivers one
// event per notification on this subscription.
type metaWebhookPayload struct {
	EventID   string         `json:"event_id"`
	Field     string         `json:"field"`
	AccountID string         `json:"ad_account_id"`
	ObjectID  string         `json:"object_id"`
	Time      int64          `json:"time"`
	Value     map[string]any `json:"value"`
}
