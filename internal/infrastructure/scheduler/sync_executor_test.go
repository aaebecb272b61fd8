package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adboard/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeAdPlatform scripts fetch pages and refresh outcomes
type fakeAdPlatform struct {
	mu   sync.Mutex
	code integration.PlatformCode
	caps integration.Capability

	// campaignPages is keyed by page token, "" for the first page
	campaignPages map[string]*integration.CampaignPage
	fetchTokens   []string
	fetchedWith   []string // access tokens seen by fetches

	refreshed    *integration.Credential
	refreshErr   error
	refreshDelay time.Duration
	refreshCalls int
}

func (f *fakeAdPlatform) PlatformCode() integration.PlatformCode { return f.code }
func (f *fakeAdPlatform) Capabilities() integration.Capability   { return f.caps }

func (f *fakeAdPlatform) Authorize(ctx context.Context, req *integration.AuthRequest) (*integration.Credential, error) {
	return nil, integration.ErrAuthCodeInvalid
}

func (f *fakeAdPlatform) Refresh(ctx context.Context, cred *integration.Credential) (*integration.Credential, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.mu.Unlock()
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeAdPlatform) FetchAccountInfo(ctx context.Context, cred *integration.Credential) (*integration.AccountInfo, error) {
	return &integration.AccountInfo{AccountID: "cust-1", Name: "Test", Currency: "USD"}, nil
}

func (f *fakeAdPlatform) FetchCampaigns(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.CampaignPage, error) {
	f.mu.Lock()
	f.fetchTokens = append(f.fetchTokens, req.PageToken)
	f.fetchedWith = append(f.fetchedWith, cred.AccessToken)
	page, ok := f.campaignPages[req.PageToken]
	f.mu.Unlock()
	if !ok {
		return &integration.CampaignPage{}, nil
	}
	return page, nil
}

func (f *fakeAdPlatform) FetchKeywords(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.KeywordPage, error) {
	return &integration.KeywordPage{Records: []integration.KeywordRecord{{PlatformKeywordID: "kw-1"}}}, nil
}

func (f *fakeAdPlatform) FetchConversions(ctx context.Context, cred *integration.Credential, req *integration.FetchRequest) (*integration.ConversionPage, error) {
	return &integration.ConversionPage{Records: []integration.ConversionRecord{{PlatformConversionID: "cv-1"}}}, nil
}

func (f *fakeAdPlatform) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}

func (f *fakeAdPlatform) ParseWebhookEvent(payload []byte) (*integration.WebhookEvent, error) {
	return nil, integration.ErrUnknownWebhookEvent
}

func (f *fakeAdPlatform) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeRegistry resolves every code to the single configured adapter
type fakeRegistry struct {
	adapter integration.AdPlatform
}

func (f *fakeRegistry) Get(code integration.PlatformCode) (integration.AdPlatform, error) {
	if f.adapter == nil {
		return nil, integration.ErrPlatformNotRegistered
	}
	return f.adapter, nil
}

func (f *fakeRegistry) GetWithCapability(code integration.PlatformCode, cap integration.Capability) (integration.AdPlatform, error) {
	adapter, err := f.Get(code)
	if err != nil {
		return nil, err
	}
	if !adapter.Capabilities().Has(cap) {
		return nil, integration.ErrCapabilityNotOffered
	}
	return adapter, nil
}

func (f *fakeRegistry) List() []integration.AdPlatform {
	return []integration.AdPlatform{f.adapter}
}

// fakeConnectionRepo keeps connections in memory, copy in and copy out
type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[uuid.UUID]integration.Connection
	saves int
}

func newFakeConnectionRepo(conns ...*integration.Connection) *fakeConnectionRepo {
	repo := &fakeConnectionRepo{conns: make(map[uuid.UUID]integration.Connection)}
	for _, conn := range conns {
		repo.conns[conn.ID] = *conn
	}
	return repo
}

func (f *fakeConnectionRepo) Save(ctx context.Context, conn *integration.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn.ID] = *conn
	f.saves++
	return nil
}

func (f *fakeConnectionRepo) FindByID(ctx context.Context, id uuid.UUID) (*integration.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[id]
	if !ok {
		return nil, integration.ErrConnectionNotFound
	}
	copied := conn
	return &copied, nil
}

func (f *fakeConnectionRepo) FindByTenantAndPlatform(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode) (*integration.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, conn := range f.conns {
		if conn.TenantID == tenantID && conn.PlatformCode == code {
			copied := conn
			return &copied, nil
		}
	}
	return nil, integration.ErrConnectionNotFound
}

func (f *fakeConnectionRepo) FindAllSyncEnabled(ctx context.Context) ([]integration.Connection, error) {
	return nil, nil
}

func (f *fakeConnectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, id)
	return nil
}

func (f *fakeConnectionRepo) disconnect(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := f.conns[id]
	conn.MarkDisconnected()
	f.conns[id] = conn
}

// fakeCredentialStore keeps credentials in memory
type fakeCredentialStore struct {
	mu    sync.Mutex
	creds map[uuid.UUID]integration.Credential
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{creds: make(map[uuid.UUID]integration.Credential)}
}

func (f *fakeCredentialStore) Store(ctx context.Context, connectionID uuid.UUID, cred integration.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds[connectionID] = cred
	return nil
}

func (f *fakeCredentialStore) Fetch(ctx context.Context, connectionID uuid.UUID) (integration.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[connectionID]
	if !ok {
		return integration.Credential{}, integration.ErrCredentialMissing
	}
	return cred, nil
}

func (f *fakeCredentialStore) IsExpired(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	cred, err := f.Fetch(ctx, connectionID)
	if err != nil {
		return false, err
	}
	return cred.IsExpired(time.Now()), nil
}

func (f *fakeCredentialStore) Revoke(ctx context.Context, connectionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, connectionID)
	return nil
}

// fakeMetricWriter records replace calls per category
type fakeMetricWriter struct {
	mu          sync.Mutex
	campaigns   map[uuid.UUID][]integration.CampaignRecord
	keywords    map[uuid.UUID][]integration.KeywordRecord
	conversions map[uuid.UUID][]integration.ConversionRecord
}

func newFakeMetricWriter() *fakeMetricWriter {
	return &fakeMetricWriter{
		campaigns:   make(map[uuid.UUID][]integration.CampaignRecord),
		keywords:    make(map[uuid.UUID][]integration.KeywordRecord),
		conversions: make(map[uuid.UUID][]integration.ConversionRecord),
	}
}

func (f *fakeMetricWriter) ReplaceCampaigns(ctx context.Context, connectionID uuid.UUID, records []integration.CampaignRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[connectionID] = records
	return nil
}

func (f *fakeMetricWriter) ReplaceKeywords(ctx context.Context, connectionID uuid.UUID, records []integration.KeywordRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords[connectionID] = records
	return nil
}

func (f *fakeMetricWriter) ReplaceConversions(ctx context.Context, connectionID uuid.UUID, records []integration.ConversionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversions[connectionID] = records
	return nil
}

// fakeStatusListener records connection updates
type fakeStatusListener struct {
	mu      sync.Mutex
	updated []integration.Connection
}

func (f *fakeStatusListener) ConnectionUpdated(conn *integration.Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, *conn)
}

func (f *fakeStatusListener) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updated)
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type executorFixture struct {
	executor    *SyncExecutorImpl
	adapter     *fakeAdPlatform
	connections *fakeConnectionRepo
	credentials *fakeCredentialStore
	metrics     *fakeMetricWriter
	status      *fakeStatusListener
}

func newExecutorFixture(t *testing.T, conn *integration.Connection) *executorFixture {
	adapter := &fakeAdPlatform{
		code: integration.PlatformCodeGoogleAds,
		caps: integration.CapabilityCampaigns | integration.CapabilityKeywords | integration.CapabilityConversions,
		campaignPages: map[string]*integration.CampaignPage{
			"": {Records: []integration.CampaignRecord{{PlatformCampaignID: "cmp-1"}}},
		},
	}
	connections := newFakeConnectionRepo(conn)
	credentials := newFakeCredentialStore()
	metrics := newFakeMetricWriter()
	status := &fakeStatusListener{}

	require.NoError(t, credentials.Store(context.Background(), conn.ID, integration.Credential{
		AccessToken: "live-token",
	}))

	executor := NewSyncExecutor(&fakeRegistry{adapter: adapter}, connections, credentials, metrics, status, newTestLogger())
	return &executorFixture{
		executor:    executor,
		adapter:     adapter,
		connections: connections,
		credentials: credentials,
		metrics:     metrics,
		status:      status,
	}
}

func newManualJob(t *testing.T, conn *integration.Connection, categories ...integration.SyncCategory) *SyncJob {
	job, err := NewSyncJob(conn, TriggerManual, categories)
	require.NoError(t, err)
	return job
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestSyncExecutor_DrainsAllPages(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	fx.adapter.campaignPages = map[string]*integration.CampaignPage{
		"": {
			Records:       []integration.CampaignRecord{{PlatformCampaignID: "cmp-1"}, {PlatformCampaignID: "cmp-2"}},
			NextPageToken: "page-2",
			HasMore:       true,
		},
		"page-2": {
			Records:       []integration.CampaignRecord{{PlatformCampaignID: "cmp-3"}},
			NextPageToken: "page-3",
			HasMore:       true,
		},
		"page-3": {
			Records: []integration.CampaignRecord{{PlatformCampaignID: "cmp-4"}},
		},
	}

	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)
	require.NoError(t, fx.executor.Execute(context.Background(), job))

	assert.Equal(t, []string{"", "page-2", "page-3"}, fx.adapter.fetchTokens)
	assert.Len(t, fx.metrics.campaigns[conn.ID], 4)
	assert.Equal(t, 4, job.RecordCounts[integration.SyncCategoryCampaigns])

	saved, err := fx.connections.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.LastSyncAt)
	assert.Equal(t, integration.ConnectionStatusConnected, saved.Status)
	assert.Equal(t, 1, fx.status.updateCount())
}

func TestSyncExecutor_MultiCategorySync(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)

	job := newManualJob(t, conn,
		integration.SyncCategoryCampaigns,
		integration.SyncCategoryKeywords,
		integration.SyncCategoryConversions,
	)
	require.NoError(t, fx.executor.Execute(context.Background(), job))

	assert.Equal(t, 1, job.RecordCounts[integration.SyncCategoryCampaigns])
	assert.Equal(t, 1, job.RecordCounts[integration.SyncCategoryKeywords])
	assert.Equal(t, 1, job.RecordCounts[integration.SyncCategoryConversions])
	assert.Len(t, fx.metrics.keywords[conn.ID], 1)
	assert.Len(t, fx.metrics.conversions[conn.ID], 1)
}

func TestSyncExecutor_CredentialMissing(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	require.NoError(t, fx.credentials.Revoke(context.Background(), conn.ID))

	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)
	err := fx.executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, integration.ErrCredentialMissing)
	assert.False(t, integration.IsTransient(err))
	assert.Empty(t, fx.adapter.fetchTokens, "no fetch without a credential")
}

func TestSyncExecutor_RefreshesExpiredCredential(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	require.NoError(t, fx.credentials.Store(context.Background(), conn.ID, integration.Credential{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))
	fx.adapter.refreshed = &integration.Credential{
		AccessToken:  "fresh-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)
	require.NoError(t, fx.executor.Execute(context.Background(), job))

	assert.Equal(t, 1, fx.adapter.refreshCount())
	assert.Equal(t, []string{"fresh-token"}, fx.adapter.fetchedWith)

	stored, err := fx.credentials.Fetch(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored.AccessToken)
}

func TestSyncExecutor_ConcurrentRefreshesCoalesce(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	require.NoError(t, fx.credentials.Store(context.Background(), conn.ID, integration.Credential{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))
	fx.adapter.refreshed = &integration.Credential{
		AccessToken: "fresh-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	fx.adapter.refreshDelay = 30 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := newManualJob(t, conn, integration.SyncCategoryCampaigns)
			assert.NoError(t, fx.executor.Execute(context.Background(), job))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fx.adapter.refreshCount(), "concurrent refreshes collapse into one platform call")
}

func TestSyncExecutor_RefreshFailurePropagates(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	require.NoError(t, fx.credentials.Store(context.Background(), conn.ID, integration.Credential{
		AccessToken:  "stale-token",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}))
	fx.adapter.refreshErr = integration.ErrAuthFailed

	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)
	err := fx.executor.Execute(context.Background(), job)
	assert.ErrorIs(t, err, integration.ErrAuthFailed)
	assert.Empty(t, fx.adapter.fetchTokens)
}

func TestSyncExecutor_SkipsUnsupportedCategory(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	fx.adapter.caps = integration.CapabilityCampaigns // no keywords

	job := newManualJob(t, conn, integration.SyncCategoryCampaigns, integration.SyncCategoryKeywords)
	require.NoError(t, fx.executor.Execute(context.Background(), job))

	assert.Equal(t, 1, job.RecordCounts[integration.SyncCategoryCampaigns])
	assert.NotContains(t, job.RecordCounts, integration.SyncCategoryKeywords)
	assert.Empty(t, fx.metrics.keywords[conn.ID])
}

func TestSyncExecutor_SkipsDisconnectedConnection(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)

	fx.connections.disconnect(conn.ID)

	require.NoError(t, fx.executor.Execute(context.Background(), job))
	assert.Empty(t, fx.adapter.fetchTokens)
	assert.Zero(t, fx.status.updateCount())
}

func TestSyncExecutor_SuppressesResultAfterMidFlightDisconnect(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)

	// Disconnect while the fetch is in flight
	fx.adapter.campaignPages = map[string]*integration.CampaignPage{
		"": {Records: []integration.CampaignRecord{{PlatformCampaignID: "cmp-1"}}},
	}
	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)

	// Simulate the race by disconnecting right before recordSuccess reads
	// the connection back: the fetch itself already happened on the old view
	before, err := fx.connections.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	require.Equal(t, integration.ConnectionStatusConnected, before.Status)

	fx.connections.disconnect(conn.ID)

	// Execute sees the disconnected state and leaves the connection alone
	require.NoError(t, fx.executor.Execute(context.Background(), job))

	after, err := fx.connections.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.ConnectionStatusDisconnected, after.Status)
	assert.Nil(t, after.LastSyncAt)
	assert.Zero(t, fx.status.updateCount())
}

// ---------------------------------------------------------------------------
// RecordFailure
// ---------------------------------------------------------------------------

func TestSyncExecutor_RecordFailureMarksConnection(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)

	fx.executor.RecordFailure(context.Background(), job, integration.ErrAuthFailed)

	saved, err := fx.connections.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.ConnectionStatusError, saved.Status)
	assert.Equal(t, integration.ErrorKindAuth, saved.LastErrorKind)
	assert.NotEmpty(t, saved.LastErrorMessage)
	assert.Equal(t, 1, fx.status.updateCount())
}

func TestSyncExecutor_RecordFailureSkipsDisconnected(t *testing.T) {
	conn := newTestConnection(t)
	fx := newExecutorFixture(t, conn)
	job := newManualJob(t, conn, integration.SyncCategoryCampaigns)

	fx.connections.disconnect(conn.ID)
	fx.executor.RecordFailure(context.Background(), job, integration.ErrPlatformUnavailable)

	saved, err := fx.connections.FindByID(context.Background(), conn.ID)
	require.NoError(t, err)
	assert.Equal(t, integration.ConnectionStatusDisconnected, saved.Status)
	assert.Zero(t, fx.status.updateCount())
}
