package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/adboard/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Executor Ports
// ---------------------------------------------------------------------------

// MetricWriter persists the fetched records. Each Replace call atomically
// swaps the connection's snapshot for one category.
type MetricWriter interface {
	ReplaceCampaigns(ctx context.Context, connectionID uuid.UUID, records []integration.CampaignRecord) error
	ReplaceKeywords(ctx context.Context, connectionID uuid.UUID, records []integration.KeywordRecord) error
	ReplaceConversions(ctx context.Context, connectionID uuid.UUID, records []integration.ConversionRecord) error
}

// StatusListener receives connection state changes for the read projection
type StatusListener interface {
	ConnectionUpdated(conn *integration.Connection)
}

// ---------------------------------------------------------------------------
// SyncExecutorImpl
// ---------------------------------------------------------------------------

// defaultFetchPageSize is the page size requested from platform fetches
const defaultFetchPageSize = 500

// SyncExecutorImpl runs one sync job end to end: credential, refresh,
// per-category page drain, atomic persist, connection bookkeeping.
type SyncExecutorImpl struct {
	registry    integration.PlatformRegistry
	connections integration.ConnectionRepository
	credentials integration.CredentialStore
	metrics     MetricWriter
	status      StatusListener
	logger      *zap.Logger

	// refreshGroup coalesces concurrent credential refreshes per connection
	refreshGroup singleflight.Group

	pageSize int
}

// NewSyncExecutor creates a new sync executor
func NewSyncExecutor(
	registry integration.PlatformRegistry,
	connections integration.ConnectionRepository,
	credentials integration.CredentialStore,
	metrics MetricWriter,
	status StatusListener,
	logger *zap.Logger,
) *SyncExecutorImpl {
	return &SyncExecutorImpl{
		registry:    registry,
		connections: connections,
		credentials: credentials,
		metrics:     metrics,
		status:      status,
		logger:      logger,
		pageSize:    defaultFetchPageSize,
	}
}

// Execute runs one attempt of the job
func (e *SyncExecutorImpl) Execute(ctx context.Context, job *SyncJob) error {
	conn, err := e.connections.FindByID(ctx, job.ConnectionID)
	if err != nil {
		return err
	}
	if conn.Status == integration.ConnectionStatusDisconnected {
		// Disconnected while the job sat in the queue; nothing to do
		e.logger.Info("Skipping sync for disconnected connection",
			zap.String("connection_id", conn.ID.String()),
		)
		return nil
	}

	adapter, err := e.registry.Get(job.PlatformCode)
	if err != nil {
		return err
	}

	cred, err := e.ensureCredential(ctx, adapter, job.ConnectionID)
	if err != nil {
		return err
	}

	since := time.Time{}
	if conn.LastSyncAt != nil {
		since = *conn.LastSyncAt
	}

	for _, cat := range job.Categories {
		if !adapter.Capabilities().Has(cat.RequiredCapability()) {
			e.logger.Warn("Platform does not offer sync category, skipping",
				zap.String("connection_id", conn.ID.String()),
				zap.String("platform_code", string(job.PlatformCode)),
				zap.String("category", cat.String()),
			)
			continue
		}

		count, err := e.syncCategory(ctx, adapter, conn, &cred, cat, since)
		if err != nil {
			return fmt.Errorf("sync %s: %w", cat, err)
		}
		job.RecordCounts[cat] = count
	}

	return e.recordSuccess(ctx, job)
}

// ensureCredential fetches the credential and refreshes it when expired.
// Concurrent refreshes for the same connection collapse into one platform
// call; every caller gets the refreshed credential.
func (e *SyncExecutorImpl) ensureCredential(ctx context.Context, adapter integration.AdPlatform, connectionID uuid.UUID) (integration.Credential, error) {
	cred, err := e.credentials.Fetch(ctx, connectionID)
	if err != nil {
		return integration.Credential{}, err
	}

	if !cred.IsExpired(time.Now()) {
		return cred, nil
	}

	result, err, _ := e.refreshGroup.Do(connectionID.String(), func() (any, error) {
		// Re-read inside the flight: a concurrent winner may already have
		// stored a fresh credential
		current, err := e.credentials.Fetch(ctx, connectionID)
		if err != nil {
			return nil, err
		}
		if !current.IsExpired(time.Now()) {
			return current, nil
		}

		refreshed, err := adapter.Refresh(ctx, &current)
		if err != nil {
			return nil, err
		}
		if err := e.credentials.Store(ctx, connectionID, *refreshed); err != nil {
			return nil, err
		}

		e.logger.Info("Credential refreshed",
			zap.String("connection_id", connectionID.String()),
		)
		return *refreshed, nil
	})
	if err != nil {
		return integration.Credential{}, err
	}

	return result.(integration.Credential), nil
}

// syncCategory drains every page of one category and atomically replaces the
// connection's snapshot for it
func (e *SyncExecutorImpl) syncCategory(
	ctx context.Context,
	adapter integration.AdPlatform,
	conn *integration.Connection,
	cred *integration.Credential,
	cat integration.SyncCategory,
	since time.Time,
) (int, error) {
	req := &integration.FetchRequest{
		AccountID: conn.Account.AccountID,
		Since:     since,
		PageSize:  e.pageSize,
	}

	switch cat {
	case integration.SyncCategoryCampaigns:
		records, err := drainPages(ctx, req, func(ctx context.Context, r *integration.FetchRequest) ([]integration.CampaignRecord, string, bool, error) {
			page, err := adapter.FetchCampaigns(ctx, cred, r)
			if err != nil {
				return nil, "", false, err
			}
			return page.Records, page.NextPageToken, page.HasMore, nil
		})
		if err != nil {
			return 0, err
		}
		return len(records), e.metrics.ReplaceCampaigns(ctx, conn.ID, records)

	case integration.SyncCategoryKeywords:
		records, err := drainPages(ctx, req, func(ctx context.Context, r *integration.FetchRequest) ([]integration.KeywordRecord, string, bool, error) {
			page, err := adapter.FetchKeywords(ctx, cred, r)
			if err != nil {
				return nil, "", false, err
			}
			return page.Records, page.NextPageToken, page.HasMore, nil
		})
		if err != nil {
			return 0, err
		}
		return len(records), e.metrics.ReplaceKeywords(ctx, conn.ID, records)

	case integration.SyncCategoryConversions:
		records, err := drainPages(ctx, req, func(ctx context.Context, r *integration.FetchRequest) ([]integration.ConversionRecord, string, bool, error) {
			page, err := adapter.FetchConversions(ctx, cred, r)
			if err != nil {
				return nil, "", false, err
			}
			return page.Records, page.NextPageToken, page.HasMore, nil
		})
		if err != nil {
			return 0, err
		}
		return len(records), e.metrics.ReplaceConversions(ctx, conn.ID, records)

	default:
		return 0, integration.ErrInvalidSyncCategory
	}
}

// drainPages follows page tokens until the platform reports no more data
func drainPages[T any](
	ctx context.Context,
	req *integration.FetchRequest,
	fetch func(context.Context, *integration.FetchRequest) ([]T, string, bool, error),
) ([]T, error) {
	var all []T
	pageReq := *req
	for {
		records, nextToken, hasMore, err := fetch(ctx, &pageReq)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		if !hasMore || nextToken == "" {
			return all, nil
		}
		pageReq.PageToken = nextToken
	}
}

// recordSuccess finalizes the connection after all categories synced. A
// connection disconnected mid-flight keeps its fetched data out of the
// status path: the result is suppressed.
func (e *SyncExecutorImpl) recordSuccess(ctx context.Context, job *SyncJob) error {
	conn, err := e.connections.FindByID(ctx, job.ConnectionID)
	if err != nil {
		if errors.Is(err, integration.ErrConnectionNotFound) {
			return nil
		}
		return err
	}
	if conn.Status == integration.ConnectionStatusDisconnected {
		e.logger.Info("Suppressing sync result for disconnected connection",
			zap.String("connection_id", conn.ID.String()),
		)
		return nil
	}

	conn.MarkSynced(time.Now())
	if err := e.connections.Save(ctx, conn); err != nil {
		return err
	}
	e.status.ConnectionUpdated(conn)
	return nil
}

// RecordFailure performs the connection bookkeeping after the final failure
func (e *SyncExecutorImpl) RecordFailure(ctx context.Context, job *SyncJob, jobErr error) {
	conn, err := e.connections.FindByID(ctx, job.ConnectionID)
	if err != nil {
		e.logger.Error("Failed to load connection for failure bookkeeping",
			zap.String("connection_id", job.ConnectionID.String()),
			zap.Error(err),
		)
		return
	}
	if conn.Status == integration.ConnectionStatusDisconnected {
		return
	}

	conn.MarkError(integration.Classify(jobErr), jobErr.Error())
	if err := e.connections.Save(ctx, conn); err != nil {
		e.logger.Error("Failed to persist connection error state",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err),
		)
		return
	}
	e.status.ConnectionUpdated(conn)
}

// Ensure SyncExecutorImpl implements SyncExecutor interface
var _ SyncExecutor = (*SyncExecutorImpl)(nil)
