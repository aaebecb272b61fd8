package integration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/adboard/backend/internal/domain/integration"
	"github.com/adboard/backend/internal/domain/shared"
	"github.com/adboard/backend/internal/infrastructure/scheduler"
)

// ConnectionResolver maps an inbound event to its connection; satisfied by
// the GORM connection repository
type ConnectionResolver interface {
	FindByPlatformAndAccount(ctx context.Context, code integration.PlatformCode, accountID string) (*integration.Connection, error)
}

// WebhookService verifies, deduplicates, and routes inbound platform
// notifications: status-type events are applied to the status projection,
// data events enqueue a targeted sync. Verification fails closed: an
// unverifiable delivery mutates nothing and enqueues nothing.
type WebhookService struct {
	registry      integration.PlatformRegistry
	connections   ConnectionResolver
	subscriptions integration.WebhookSubscriptionRepository
	dedup         shared.IdempotencyStore
	dedupConfig   shared.IdempotencyConfig
	dispatcher    SyncDispatcher
	status        *StatusRegistry
	logger        *zap.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(
	registry integration.PlatformRegistry,
	connections ConnectionResolver,
	subscriptions integration.WebhookSubscriptionRepository,
	dedup shared.IdempotencyStore,
	dedupConfig shared.IdempotencyConfig,
	dispatcher SyncDispatcher,
	status *StatusRegistry,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		registry:      registry,
		connections:   connections,
		subscriptions: subscriptions,
		dedup:         dedup,
		dedupConfig:   dedupConfig,
		dispatcher:    dispatcher,
		status:        status,
		logger:        logger,
	}
}

// HandleDelivery processes one raw webhook delivery for a platform. The
// returned event is nil for duplicate deliveries, which are acknowledged
// without a second state mutation.
func (s *WebhookService) HandleDelivery(ctx context.Context, code integration.PlatformCode, payload []byte, signature string) (*integration.WebhookEvent, error) {
	if !code.IsValid() {
		return nil, integration.ErrInvalidPlatformCode
	}

	adapter, err := s.registry.GetWithCapability(code, integration.CapabilityWebhooks)
	if err != nil {
		return nil, err
	}

	if err := adapter.VerifyWebhookSignature(payload, signature); err != nil {
		s.logger.Warn("Webhook signature rejected",
			zap.String("platform_code", string(code)),
		)
		return nil, err
	}

	event, err := adapter.ParseWebhookEvent(payload)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindByPlatformAndAccount(ctx, code, event.AccountID)
	if err != nil {
		return nil, err
	}
	if conn.Status == integration.ConnectionStatusDisconnected {
		return nil, integration.ErrConnectionNotConnected
	}

	if sub, err := s.subscriptions.FindByConnection(ctx, conn.ID); err != nil {
		if errors.Is(err, integration.ErrSubscriptionNotFound) {
			return nil, integration.ErrSubscriptionNotFound
		}
		return nil, err
	} else if !sub.Active {
		return nil, integration.ErrSubscriptionNotFound
	}

	if s.dedupConfig.Enabled {
		key := dedupKey(code, event.EventID)
		isNew, err := s.dedup.MarkProcessed(ctx, key, s.dedupConfig.TTL)
		if err != nil {
			// Process anyway: a duplicate sync beats a dropped event
			s.logger.Warn("Webhook dedup check failed, processing anyway",
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		} else if !isNew {
			s.logger.Debug("Duplicate webhook delivery acknowledged",
				zap.String("event_id", event.EventID),
				zap.String("platform_code", string(code)),
			)
			return nil, nil
		}
	}

	if !event.Type.TriggersSync() {
		s.status.EventApplied(conn.ID, event)
		s.logger.Info("Webhook event applied to status projection",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.Type.String()),
			zap.String("connection_id", conn.ID.String()),
			zap.String("platform_code", string(code)),
		)
		return event, nil
	}

	category := event.Type.SyncCategory()
	if _, err := s.dispatcher.Schedule(conn, scheduler.TriggerWebhook, []integration.SyncCategory{category}); err != nil {
		return nil, err
	}

	s.logger.Info("Webhook event dispatched",
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.Type.String()),
		zap.String("connection_id", conn.ID.String()),
		zap.String("platform_code", string(code)),
		zap.String("category", category.String()),
	)

	return event, nil
}

func dedupKey(code integration.PlatformCode, eventID string) string {
	return fmt.Sprintf("%s:%s", code, eventID)
}
