package adplatform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adboard/backend/internal/domain/integration"
)

// GoogleAdsAdapter implements the AdPlatform interface for Google Ads.
// It is the reference adapter: it advertises the full capability set.
type GoogleAdsAdapter struct {
	config     *GoogleAdsConfig
	httpClient *http.Client
}

// NewGoogleAdsAdapter creates a new Google Ads adapter with the given configuration
func NewGoogleAdsAdapter(config *GoogleAdsConfig) (*GoogleAdsAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &GoogleAdsAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *GoogleAdsAdapter) PlatformCode() integration.PlatformCode {
	return integration.PlatformCodeGoogleAds
}

// Capabilities returns the capability bitmask advertised by this adapter
func (a *GoogleAdsAdapter) Capabilities() integration.Capability {
	return integration.CapabilityCampaigns |
		integration.CapabilityKeywords |
		integration.CapabilityConversions |
		integration.CapabilityWebhooks
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// Authorize exchanges a one-time authorization code for OAuth tokens
func (a *GoogleAdsAdapter) Authorize(ctx context.Context, req *integration.AuthRequest) (*integration.Credential, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.AuthCode)
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)
	if req.RedirectURI != "" {
		form.Set("redirect_uri", req.RedirectURI)
	}

	return a.doTokenRequest(ctx, form, "")
}

// Refresh renews an expiring credential with its refresh token
func (a *GoogleAdsAdapter) Refresh(ctx context.Context, cred *integration.Credential) (*integration.Credential, error) {
	if !cred.CanRefresh() {
		return nil, integration.ErrCredentialExpired
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_id", a.config.ClientID)
	form.Set("client_secret", a.config.ClientSecret)

	// Google does not reissue the refresh token on renewal
	return a.doTokenRequest(ctx, form, cred.RefreshToken)
}

// doTokenRequest posts a token grant and converts the response to a credential
func (a *GoogleAdsAdapter) doTokenRequest(ctx context.Context, form url.Values, fallbackRefreshToken string) (*integration.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("googleads: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("googleads: failed to read token response: %w", err)
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	if resp.StatusCode >= 400 || tokenResp.Error != "" {
		if tokenResp.Error == "invalid_grant" {
			return nil, fmt.Errorf("%w: %s", integration.ErrAuthCodeInvalid, tokenResp.ErrorDesc)
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", integration.ErrAuthFailed, tokenResp.Error)
	}

	if tokenResp.AccessToken == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	refreshToken := tokenResp.RefreshToken
	if refreshToken == "" {
		refreshToken = fallbackRefreshToken
	}

	return &integration.Credential{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
		Scopes:       strings.Fields(tokenResp.Scope),
	}, nil
}

// FetchAccountInfo returns the ad account behind the credential
func (a *GoogleAdsAdapter) FetchAccountInfo(ctx context.Context, cred *integration.Credential) (*integration.AccountInfo, error) {
	respBody, err := a.doGet(ctx, cred, "/customers:describe", nil)
	if err != nil {
		return nil, err
	}

	var account googleAdsAccount
	if err := json.Unmarshal(respBody, &account); err != nil {
		return nil, fmt.Errorf("%w: failed to parse account response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if account.ID == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	return &integration.AccountInfo{
		Name:      account.DescriptiveName,
		AccountID: account.ID,
		Currency:  account.CurrencyCode,
	}, nil
}

// ---------------------------------------------------------------------------
// Data Fetches
// ---------------------------------------------------------------------------

// FetchCampaigns returns one page of campaign records changed since req.Since
func (a *GoogleAdsAdapter) FetchCampaigns(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.CampaignPage, error) {
	respBody, err := a.doGet(ctx, cred, fmt.Sprintf("/customers/%s/campaigns", url.PathEscape(req.AccountID)), fetchQuery(req))
	if err != nil {
		return nil, err
	}

	var list googleAdsCampaignList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse campaigns response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	page := &integration.CampaignPage{
		Records:       make([]integration.CampaignRecord, 0, len(list.Campaigns)),
		NextPageToken: list.NextPageToken,
		HasMore:       list.NextPageToken != "",
	}
	for _, c := range list.Campaigns {
		page.Records = append(page.Records, integration.CampaignRecord{
			PlatformCampaignID: c.ID,
			Name:               c.Name,
			Status:             mapGoogleCampaignStatus(c.Status),
			DailyBudget:        microsToDecimal(c.DailyBudget),
			Spend:              microsToDecimal(c.Spend),
			Impressions:        c.Impressions,
			Clicks:             c.Clicks,
			Currency:           c.Currency,
			UpdatedAt:          parseGoogleTime(c.UpdatedAt),
		})
	}
	return page, nil
}

// FetchKeywords returns one page of keyword performance records
func (a *GoogleAdsAdapter) FetchKeywords(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.KeywordPage, error) {
	respBody, err := a.doGet(ctx, cred, fmt.Sprintf("/customers/%s/keywords", url.PathEscape(req.AccountID)), fetchQuery(req))
	if err != nil {
		return nil, err
	}

	var list googleAdsKeywordList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse keywords response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	page := &integration.KeywordPage{
		Records:       make([]integration.KeywordRecord, 0, len(list.Keywords)),
		NextPageToken: list.NextPageToken,
		HasMore:       list.NextPageToken != "",
	}
	for _, k := range list.Keywords {
		page.Records = append(page.Records, integration.KeywordRecord{
			PlatformKeywordID:  k.ID,
			PlatformCampaignID: k.CampaignID,
			Text:               k.Text,
			MatchType:          k.MatchType,
			Bid:                microsToDecimal(k.BidMicros),
			Impressions:        k.Impressions,
			Clicks:             k.Clicks,
			QualityScore:       k.QualityScore,
			UpdatedAt:          parseGoogleTime(k.UpdatedAt),
		})
	}
	return page, nil
}

// FetchConversions returns one page of conversion records
func (a *GoogleAdsAdapter) FetchConversions(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.ConversionPage, error) {
	respBody, err := a.doGet(ctx, cred, fmt.Sprintf("/customers/%s/conversions", url.PathEscape(req.AccountID)), fetchQuery(req))
	if err != nil {
		return nil, err
	}

	var list googleAdsConversionList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse conversions response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	page := &integration.ConversionPage{
		Records:       make([]integration.ConversionRecord, 0, len(list.Conversions)),
		NextPageToken: list.NextPageToken,
		HasMore:       list.NextPageToken != "",
	}
	for _, c := range list.Conversions {
		page.Records = append(page.Records, integration.ConversionRecord{
			PlatformConversionID: c.ID,
			PlatformCampaignID:   c.CampaignID,
			ActionName:           c.ActionName,
			Count:                c.Count,
			Value:                ParseDecimal(c.Value),
			Currency:             c.Currency,
			OccurredAt:           parseGoogleTime(c.OccurredAt),
		})
	}
	return page, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// VerifyWebhookSignature verifies the hex HMAC-SHA256 of the raw payload
func (a *GoogleAdsAdapter) VerifyWebhookSignature(payload []byte, signature string) error {
	if signature == "" {
		return integration.ErrInvalidSignature
	}
	return verifyHMACSHA256(a.config.WebhookSecret, payload, signature)
}

// ParseWebhookEvent parses a verified payload into a normalized event
func (a *GoogleAdsAdapter) ParseWebhookEvent(payload []byte) (*integration.WebhookEvent, error) {
	var p googleAdsWebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse webhook payload: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if p.EventID == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	eventType, err := mapGoogleEventType(p.EventType)
	if err != nil {
		return nil, err
	}

	return &integration.WebhookEvent{
		EventID:      p.EventID,
		Type:         eventType,
		PlatformCode: integration.PlatformCodeGoogleAds,
		AccountID:    p.CustomerID,
		CampaignID:   p.CampaignID,
		OccurredAt:   parseGoogleTime(p.OccurredAt),
		Payload:      p.Detail,
	}, nil
}

// ---------------------------------------------------------------------------
// HTTP Plumbing
// ---------------------------------------------------------------------------

// fetchQuery builds the paged query parameters shared by all fetch endpoints
func fetchQuery(req *integration.FetchRequest) url.Values {
	query := url.Values{}
	if !req.Since.IsZero() {
		query.Set("updatedSince", req.Since.UTC().Format(time.RFC3339))
	}
	if req.PageToken != "" {
		query.Set("pageToken", req.PageToken)
	}
	if req.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	return query
}

// doGet performs an authenticated GET against the Ads API
func (a *GoogleAdsAdapter) doGet(ctx context.Context, cred *integration.Credential, path string, query url.Values) ([]byte, error) {
	endpoint := a.config.APIBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("googleads: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("developer-token", a.config.DeveloperToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrPlatformTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("googleads: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp googleAdsErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%w: %s", mapHTTPStatus(resp.StatusCode), errResp.Error.Message)
		}
		return nil, mapHTTPStatus(resp.StatusCode)
	}

	return body, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// mapGoogleCampaignStatus maps the Ads API status to the domain status
func mapGoogleCampaignStatus(status string) integration.CampaignStatus {
	switch status {
	case "ENABLED":
		return integration.CampaignStatusActive
	case "PAUSED":
		return integration.CampaignStatusPaused
	case "REMOVED":
		return integration.CampaignStatusEnded
	default:
		return integration.CampaignStatusPaused
	}
}

// mapGoogleEventType maps the push notification type to the domain event type
func mapGoogleEventType(eventType string) (integration.WebhookEventType, error) {
	switch eventType {
	case "CAMPAIGN_CHANGED":
		return integration.WebhookEventCampaignChange, nil
	case "BUDGET_THRESHOLD":
		return integration.WebhookEventBudgetAlert, nil
	case "PERFORMANCE_SHIFT":
		return integration.WebhookEventPerformanceChange, nil
	default:
		return "", fmt.Errorf("%w: %s", integration.ErrUnknownWebhookEvent, eventType)
	}
}

// parseGoogleTime parses the RFC3339 timestamps the Ads API emits
func parseGoogleTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// microsToDecimal converts a micros string (1e6 units) to a decimal amount
func microsToDecimal(micros string) decimal.Decimal {
	if micros == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(micros)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-6)
}

// Ensure GoogleAdsAdapter implements AdPlatform interface
var _ integration.AdPlatform = (*GoogleAdsAdapter)(nil)
