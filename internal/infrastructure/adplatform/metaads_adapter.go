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

	"github.com/adboard/backend/internal/domain/integration"
)

// metaSignaturePrefix is the scheme prefix Meta puts on the
// X-Hub-Signature-256 header value
const metaSignaturePrefix = "sha256="

// MetaAdsAdapter implements the AdPlatform interface against the Meta
// Marketing API. The same adapter code serves two platform codes: Facebook
// Ads and Instagram are separate connections over the same Graph API, so the
// adapter is parameterized with the code it registers under.
//
// Meta exposes no keyword-level reporting, so CapabilityKeywords is not
// advertised and FetchKeywords always refuses.
type MetaAdsAdapter struct {
	code       integration.PlatformCode
	config     *MetaAdsConfig
	httpClient *http.Client
}

// NewMetaAdsAdapter creates a Meta adapter serving the given platform code
func NewMetaAdsAdapter(code integration.PlatformCode, config *MetaAdsConfig) (*MetaAdsAdapter, error) {
	if code != integration.PlatformCodeFacebookAds && code != integration.PlatformCodeInstagram {
		return nil, fmt.Errorf("%w: %s is not served by the Meta adapter", integration.ErrInvalidPlatformCode, code)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &MetaAdsAdapter{
		code:   code,
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

// PlatformCode returns the platform code this adapter handles
func (a *MetaAdsAdapter) PlatformCode() integration.PlatformCode {
	return a.code
}

// Capabilities returns the capability bitmask advertised by this adapter
func (a *MetaAdsAdapter) Capabilities() integration.Capability {
	return integration.CapabilityCampaigns |
		integration.CapabilityConversions |
		integration.CapabilityWebhooks
}

// ---------------------------------------------------------------------------
// Authorization
// ---------------------------------------------------------------------------

// Authorize exchanges an authorization code for a long-lived access token
func (a *MetaAdsAdapter) Authorize(ctx context.Context, req *integration.AuthRequest) (*integration.Credential, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("client_id", a.config.AppID)
	query.Set("client_secret", a.config.AppSecret)
	query.Set("code", req.AuthCode)
	if req.RedirectURI != "" {
		query.Set("redirect_uri", req.RedirectURI)
	}

	return a.doTokenRequest(ctx, query)
}

// Refresh extends the long-lived token. Meta has no refresh tokens; the
// current access token itself is exchanged for a fresh long-lived one.
func (a *MetaAdsAdapter) Refresh(ctx context.Context, cred *integration.Credential) (*integration.Credential, error) {
	query := url.Values{}
	query.Set("grant_type", "fb_exchange_token")
	query.Set("client_id", a.config.AppID)
	query.Set("client_secret", a.config.AppSecret)
	query.Set("fb_exchange_token", cred.AccessToken)

	return a.doTokenRequest(ctx, query)
}

// doTokenRequest calls the Graph token endpoint and converts the response
func (a *MetaAdsAdapter) doTokenRequest(ctx context.Context, query url.Values) (*integration.Credential, error) {
	endpoint := a.config.APIBaseURL + "/oauth/access_token?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("metaads: failed to create token request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("metaads: failed to read token response: %w", err)
	}

	var tokenResp metaTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse token response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	if resp.StatusCode >= 400 || tokenResp.Error != nil {
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode)
		}
		if tokenResp.Error != nil && tokenResp.Error.Code == 100 {
			return nil, fmt.Errorf("%w: %s", integration.ErrAuthCodeInvalid, tokenResp.Error.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrAuthFailed, resp.StatusCode)
	}

	if tokenResp.AccessToken == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	expiresAt := time.Time{}
	if tokenResp.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return &integration.Credential{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   expiresAt,
	}, nil
}

// FetchAccountInfo returns the ad account behind the credential
func (a *MetaAdsAdapter) FetchAccountInfo(ctx context.Context, cred *integration.Credential) (*integration.AccountInfo, error) {
	query := url.Values{}
	query.Set("fields", "id,name,currency")

	respBody, err := a.doGet(ctx, cred, "/me/adaccount", query)
	if err != nil {
		return nil, err
	}

	var account metaAdAccount
	if err := json.Unmarshal(respBody, &account); err != nil {
		return nil, fmt.Errorf("%w: failed to parse account response: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if account.ID == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	return &integration.AccountInfo{
		Name:      account.Name,
		AccountID: account.ID,
		Currency:  account.Currency,
	}, nil
}

// ---------------------------------------------------------------------------
// Data Fetches
// ---------------------------------------------------------------------------

// FetchCampaigns returns one page of campaign records changed since req.Since
func (a *MetaAdsAdapter) FetchCampaigns(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.CampaignPage, error) {
	query := metaFetchQuery(req)
	query.Set("fields", "id,name,effective_status,daily_budget,spend,impressions,clicks,currency,updated_time")

	respBody, err := a.doGet(ctx, cred, fmt.Sprintf("/%s/campaigns", url.PathEscape(req.AccountID)), query)
	if err != nil {
		return nil, err
	}

	var list metaCampaignList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse campaigns response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	page := &integration.CampaignPage{
		Records:       make([]integration.CampaignRecord, 0, len(list.Data)),
		NextPageToken: list.Paging.Cursors.After,
		HasMore:       list.Paging.Next != "",
	}
	for _, c := range list.Data {
		page.Records = append(page.Records, integration.CampaignRecord{
			PlatformCampaignID: c.ID,
			Name:               c.Name,
			Status:             mapMetaCampaignStatus(c.Status),
			DailyBudget:        ParseDecimal(c.DailyBudget),
			Spend:              ParseDecimal(c.Spend),
			Impressions:        c.Impressions,
			Clicks:             c.Clicks,
			Currency:           c.Currency,
			UpdatedAt:          parseMetaTime(c.UpdatedTime),
		})
	}
	return page, nil
}

// FetchKeywords is not offered by the Meta Marketing API
func (a *MetaAdsAdapter) FetchKeywords(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.KeywordPage, error) {
	return nil, fmt.Errorf("%w: %s does not report keywords", integration.ErrCapabilityNotOffered, a.code)
}

// FetchConversions returns one page of conversion records
func (a *MetaAdsAdapter) FetchConversions(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.ConversionPage, error) {
	query := metaFetchQuery(req)
	query.Set("fields", "id,campaign_id,action_type,value,total_value,currency,event_time")

	respBody, err := a.doGet(ctx, cred, fmt.Sprintf("/%s/conversions", url.PathEscape(req.AccountID)), query)
	if err != nil {
		return nil, err
	}

	var list metaConversionList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("%w: failed to parse conversions response: %v", integration.ErrPlatformInvalidResponse, err)
	}

	page := &integration.ConversionPage{
		Records:       make([]integration.ConversionRecord, 0, len(list.Data)),
		NextPageToken: list.Paging.Cursors.After,
		HasMore:       list.Paging.Next != "",
	}
	for _, c := range list.Data {
		page.Records = append(page.Records, integration.ConversionRecord{
			PlatformConversionID: c.ID,
			PlatformCampaignID:   c.CampaignID,
			ActionName:           c.ActionType,
			Count:                c.Count,
			Value:                ParseDecimal(c.TotalValue),
			Currency:             c.Currency,
			OccurredAt:           parseMetaTime(c.EventTime),
		})
	}
	return page, nil
}

// ---------------------------------------------------------------------------
// Webhooks
// ---------------------------------------------------------------------------

// VerifyWebhookSignature verifies the X-Hub-Signature-256 header value,
// which carries a "sha256=" prefix ahead of the hex HMAC
func (a *MetaAdsAdapter) VerifyWebhookSignature(payload []byte, signature string) error {
	if !strings.HasPrefix(signature, metaSignaturePrefix) {
		return integration.ErrInvalidSignature
	}
	return verifyHMACSHA256(a.config.AppSecret, payload, strings.TrimPrefix(signature, metaSignaturePrefix))
}

// ParseWebhookEvent parses a verified payload into a normalized event
func (a *MetaAdsAdapter) ParseWebhookEvent(payload []byte) (*integration.WebhookEvent, error) {
	var p metaWebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: failed to parse webhook payload: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if p.EventID == "" {
		return nil, integration.ErrPlatformInvalidResponse
	}

	eventType, err := mapMetaWebhookField(p.Field)
	if err != nil {
		return nil, err
	}

	return &integration.WebhookEvent{
		EventID:      p.EventID,
		Type:         eventType,
		PlatformCode: a.code,
		AccountID:    p.AccountID,
		CampaignID:   p.ObjectID,
		OccurredAt:   time.Unix(p.Time, 0).UTC(),
		Payload:      p.Value,
	}, nil
}

// ---------------------------------------------------------------------------
// HTTP Plumbing
// ---------------------------------------------------------------------------

// metaFetchQuery builds the paged query parameters for Graph API fetches
func metaFetchQuery(req *integration.FetchRequest) url.Values {
	query := url.Values{}
	if !req.Since.IsZero() {
		query.Set("updated_since", strconv.FormatInt(req.Since.Unix(), 10))
	}
	if req.PageToken != "" {
		query.Set("after", req.PageToken)
	}
	if req.PageSize > 0 {
		query.Set("limit", strconv.Itoa(req.PageSize))
	}
	return query
}

// doGet performs an authenticated GET against the Graph API
func (a *MetaAdsAdapter) doGet(ctx context.Context, cred *integration.Credential, path string, query url.Values) ([]byte, error) {
	query.Set("access_token", cred.AccessToken)
	endpoint := a.config.APIBaseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("metaads: failed to create request: %w", err)
	}

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
		return nil, fmt.Errorf("metaads: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp metaErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != nil {
			// code 190 is Meta's expired/invalid token class
			if errResp.Error.Code == 190 {
				return nil, fmt.Errorf("%w: %s", integration.ErrAuthFailed, errResp.Error.Message)
			}
			return nil, fmt.Errorf("%w: %s", mapHTTPStatus(resp.StatusCode), errResp.Error.Message)
		}
		return nil, mapHTTPStatus(resp.StatusCode)
	}

	return body, nil
}

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

// mapMetaCampaignStatus maps the Graph API effective status to the domain status
func mapMetaCampaignStatus(status string) integration.CampaignStatus {
	switch status {
	case "ACTIVE":
		return integration.CampaignStatusActive
	case "PAUSED", "CAMPAIGN_PAUSED", "ADSET_PAUSED":
		return integration.CampaignStatusPaused
	case "DELETED", "ARCHIVED", "COMPLETED":
		return integration.CampaignStatusEnded
	default:
		return integration.CampaignStatusPaused
	}
}

// mapMetaWebhookField maps the changed field name to the domain event type
func mapMetaWebhookField(field string) (integration.WebhookEventType, error) {
	switch field {
	case "campaigns":
		return integration.WebhookEventCampaignChange, nil
	case "budget":
		return integration.WebhookEventBudgetAlert, nil
	case "insights":
		return integration.WebhookEventPerformanceChange, nil
	default:
		return "", fmt.Errorf("%w: %s", integration.ErrUnknownWebhookEvent, field)
	}
}

// parseMetaTime parses the ISO8601 timestamps the Graph API emits
func parseMetaTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// Graph API uses a numeric zone offset without a colon
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Ensure MetaAdsAdapter implements AdPlatform interface
var _ integration.AdPlatform = (*MetaAdsAdapter)(nil)
