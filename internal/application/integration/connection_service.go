package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/infrastructure/scheduler"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// SyncDispatcher enqueues and cancels sync work; satisfied by the
// scheduler.SyncScheduler
type SyncDispatcher interface {
	Schedule(conn *integration.Connection, trigger scheduler.SyncTrigger, categories []integration.SyncCategory) (*scheduler.SyncJob, error)
	Cancel(connectionID uuid.UUID)
}

// MetricPurger drops a connection's synced data; satisfied by the GORM
// metric repository
type MetricPurger interface {
	DeleteAllForConnection(ctx context.Context, connectionID uuid.UUID) error
}

// ---------------------------------------------------------------------------
// ConnectionService
// ---------------------------------------------------------------------------

// ConnectionService drives the connection lifecycle: authorize, disconnect,
// sync configuration, and manual sync triggering.
type ConnectionService struct {
	registry      integration.PlatformRegistry
	connections   integration.ConnectionRepository
	credentials   integration.CredentialStore
	subscriptions integration.WebhookSubscriptionRepository
	dispatcher    SyncDispatcher
	metrics       MetricPurger
	status        *StatusRegistry
	logger        *zap.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	registry integration.PlatformRegistry,
	connections integration.ConnectionRepository,
	credentials integration.CredentialStore,
	subscriptions integration.WebhookSubscriptionRepository,
	dispatcher SyncDispatcher,
	metrics MetricPurger,
	status *StatusRegistry,
	logger *zap.Logger,
) *ConnectionService {
	return &ConnectionService{
		registry:      registry,
		connections:   connections,
		credentials:   credentials,
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
		metrics:       metrics,
		status:        status,
		logger:        logger,
	}
}

// Connect authorizes a platform for a tenant and brings the connection to
// CONNECTED. Reconnecting a disconnected connection reuses its row; a tenant
// holds at most one connection per platform.
func (s *ConnectionService) Connect(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode, req ConnectRequest) (*integration.Connection, error) {
	if !code.IsValid() {
		return nil, integration.ErrInvalidPlatformCode
	}

	adapter, err := s.registry.Get(code)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindByTenantAndPlatform(ctx, tenantID, code)
	switch {
	case err == nil:
		if conn.Status == integration.ConnectionStatusConnected || conn.Status == integration.ConnectionStatusConnecting {
			return nil, integration.ErrConnectionAlreadyExists
		}
	case errors.Is(err, integration.ErrConnectionNotFound):
		conn, err = integration.NewConnection(tenantID, code)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	conn.MarkConnecting()
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	cred, err := adapter.Authorize(ctx, &integration.AuthRequest{
		TenantID:    tenantID,
		AuthCode:    req.AuthCode,
		RedirectURI: req.RedirectURI,
	})
	if err != nil {
		s.failConnect(ctx, conn, err)
		return nil, err
	}

	if err := s.credentials.Store(ctx, conn.ID, *cred); err != nil {
		s.failConnect(ctx, conn, err)
		return nil, err
	}

	account, err := adapter.FetchAccountInfo(ctx, cred)
	if err != nil {
		s.failConnect(ctx, conn, err)
		return nil, err
	}

	conn.MarkConnected(*account)
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}

	if adapter.Capabilities().Has(integration.CapabilityWebhooks) {
		sub := integration.NewWebhookSubscription(conn.ID, uuid.NewString(), integration.AllWebhookEventTypes())
		if err := s.subscriptions.Save(ctx, sub); err != nil {
			// The connection stands; webhook delivery degrades to polling
			s.logger.Warn("Failed to store webhook subscription",
				zap.String("connection_id", conn.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.status.ConnectionUpdated(conn)

	s.logger.Info("Platform connected",
		zap.String("connection_id", conn.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("platform_code", string(code)),
		zap.String("account_id", account.AccountID),
	)

	return conn, nil
}

// failConnect records a failed connect attempt on the connection
func (s *ConnectionService) failConnect(ctx context.Context, conn *integration.Connection, cause error) {
	conn.MarkError(integration.Classify(cause), cause.Error())
	if err := s.connections.Save(ctx, conn); err != nil {
		s.logger.Error("Failed to persist connect failure",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err),
		)
		return
	}
	s.status.ConnectionUpdated(conn)
}

// Disconnect revokes the connection: cancels queued sync work, revokes the
// stored credential, removes the webhook subscription, and drops synced data.
func (s *ConnectionService) Disconnect(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode) (*integration.Connection, error) {
	conn, err := s.connections.FindByTenantAndPlatform(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if conn.Status == integration.ConnectionStatusDisconnected {
		return conn, nil
	}

	s.dispatcher.Cancel(conn.ID)

	if err := s.credentials.Revoke(ctx, conn.ID); err != nil {
		return nil, err
	}

	if sub, err := s.subscriptions.FindByConnection(ctx, conn.ID); err == nil {
		if err := s.subscriptions.Delete(ctx, sub.ID); err != nil {
			s.logger.Warn("Failed to remove webhook subscription",
				zap.String("connection_id", conn.ID.String()),
				zap.Error(err),
			)
		}
	} else if !errors.Is(err, integration.ErrSubscriptionNotFound) {
		return nil, err
	}

	if err := s.metrics.DeleteAllForConnection(ctx, conn.ID); err != nil {
		s.logger.Warn("Failed to purge synced metrics",
			zap.String("connection_id", conn.ID.String()),
			zap.Error(err),
		)
	}

	conn.MarkDisconnected()
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.status.ConnectionUpdated(conn)

	s.logger.Info("Platform disconnected",
		zap.String("connection_id", conn.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("platform_code", string(code)),
	)

	return conn, nil
}

// Get returns the tenant's connection view for one platform, served from the
// status projection. A connection missing from the projection is loaded from
// storage once and back-filled.
func (s *ConnectionService) Get(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode) (ConnectionSnapshot, error) {
	if !code.IsValid() {
		return ConnectionSnapshot{}, integration.ErrInvalidPlatformCode
	}

	for _, snap := range s.status.GetByTenant(tenantID) {
		if snap.PlatformCode == code {
			return snap, nil
		}
	}

	conn, err := s.connections.FindByTenantAndPlatform(ctx, tenantID, code)
	if err != nil {
		return ConnectionSnapshot{}, err
	}
	s.status.ConnectionUpdated(conn)
	return snapshotOf(conn), nil
}

// List returns one entry per supported platform from the status projection,
// with unconnected platforms shown as DISCONNECTED. The projection is warmed
// from storage at startup, so the list never costs a database round trip.
func (s *ConnectionService) List(ctx context.Context, tenantID uuid.UUID) ([]PlatformResponse, error) {
	snaps := s.status.GetByTenant(tenantID)

	byCode := make(map[integration.PlatformCode]ConnectionSnapshot, len(snaps))
	for _, snap := range snaps {
		byCode[snap.PlatformCode] = snap
	}

	platforms := make([]PlatformResponse, 0, len(integration.AllPlatformCodes()))
	for _, code := range integration.AllPlatformCodes() {
		entry := PlatformResponse{
			PlatformCode:        code,
			PlatformDisplayName: code.DisplayName(),
			Status:              integration.ConnectionStatusDisconnected,
		}
		if snap, ok := byCode[code]; ok {
			resp := NewConnectionResponseFromSnapshot(snap)
			entry.Status = snap.Status
			entry.Connection = &resp
		}
		platforms = append(platforms, entry)
	}
	return platforms, nil
}

// UpdateSyncConfig updates the connection's scheduled sync settings
func (s *ConnectionService) UpdateSyncConfig(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode, req UpdateSyncConfigRequest) (*integration.Connection, error) {
	conn, err := s.connections.FindByTenantAndPlatform(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	if err := conn.UpdateSyncConfig(req.SyncEnabled, req.SyncIntervalMinutes, req.Categories); err != nil {
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.status.ConnectionUpdated(conn)
	return conn, nil
}

// TriggerSync enqueues a manual sync for the connection. Empty categories
// expands to every enabled category.
func (s *ConnectionService) TriggerSync(ctx context.Context, tenantID uuid.UUID, code integration.PlatformCode, req TriggerSyncRequest) (*scheduler.SyncJob, error) {
	conn, err := s.connections.FindByTenantAndPlatform(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if conn.Status != integration.ConnectionStatusConnected && conn.Status != integration.ConnectionStatusError {
		return nil, integration.ErrConnectionNotConnected
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = conn.EnabledCategories
	}
	for _, cat := range categories {
		if !cat.IsValid() {
			return nil, integration.ErrInvalidSyncCategory
		}
	}

	job, err := s.dispatcher.Schedule(conn, scheduler.TriggerManual, categories)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual sync triggered",
		zap.String("connection_id", conn.ID.String()),
		zap.String("platform_code", string(code)),
		zap.String("job_id", job.ID.String()),
	)
	return job, nil
}
