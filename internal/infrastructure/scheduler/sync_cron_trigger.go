package scheduler

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adboard/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Connection Provider
// ---------------------------------------------------------------------------

// ConnectionProvider supplies the connections eligible for scheduled sync
type ConnectionProvider interface {
	// FindAllSyncEnabled returns every connection with scheduled sync enabled
	FindAllSyncEnabled(ctx context.Context) ([]integration.Connection, error)
}

// ---------------------------------------------------------------------------
// SyncCronTriggerConfig
// ---------------------------------------------------------------------------

// SyncCronTriggerConfig holds configuration for the sync cron trigger
type SyncCronTriggerConfig struct {
	// CheckInterval is how often due connections are checked
	CheckInterval time.Duration

	// JitterFraction spreads each connection's effective interval by up to
	// this fraction either way, so connections created together do not sync
	// in lockstep
	JitterFraction float64
}

// DefaultSyncCronTriggerConfig returns default configuration
func DefaultSyncCronTriggerConfig() SyncCronTriggerConfig {
	return SyncCronTriggerConfig{
		CheckInterval:  time.Minute,
		JitterFraction: 0.10,
	}
}

// ---------------------------------------------------------------------------
// SyncCronTrigger
// ---------------------------------------------------------------------------

// SyncCronTrigger enqueues scheduled sync jobs when connections come due.
// Each connection carries its own interval; the trigger tracks a next-due
// instant per connection. A connection overdue by several intervals gets
// exactly one catch-up job and its next-due moves to now plus one interval,
// so an outage never produces a backlog replay.
type SyncCronTrigger struct {
	config    SyncCronTriggerConfig
	scheduler *SyncScheduler
	provider  ConnectionProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	dueMu   sync.Mutex
	nextDue map[uuid.UUID]time.Time
}

// NewSyncCronTrigger creates a new sync cron trigger
func NewSyncCronTrigger(
	config SyncCronTriggerConfig,
	scheduler *SyncScheduler,
	provider ConnectionProvider,
	logger *zap.Logger,
) *SyncCronTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Minute
	}
	return &SyncCronTrigger{
		config:    config,
		scheduler: scheduler,
		provider:  provider,
		logger:    logger,
		nextDue:   make(map[uuid.UUID]time.Time),
	}
}

// Start starts the cron trigger
func (c *SyncCronTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Sync cron trigger started",
		zap.Duration("check_interval", c.config.CheckInterval),
		zap.Float64("jitter_fraction", c.config.JitterFraction),
	)

	return nil
}

// Stop stops the cron trigger
func (c *SyncCronTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Sync cron trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop periodically checks and enqueues due sync jobs
func (c *SyncCronTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	c.CheckAndSchedule(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.CheckAndSchedule(ctx, now)
		}
	}
}

// CheckAndSchedule enqueues a scheduled job for every connection that is due
// at the given instant. Exported so manual catch-up and tests can drive it
// with a controlled clock.
func (c *SyncCronTrigger) CheckAndSchedule(ctx context.Context, now time.Time) {
	conns, err := c.provider.FindAllSyncEnabled(ctx)
	if err != nil {
		c.logger.Error("Failed to load sync-enabled connections", zap.Error(err))
		return
	}

	if len(conns) == 0 {
		return
	}

	for i := range conns {
		conn := &conns[i]
		if !c.eligible(conn) {
			c.forget(conn.ID)
			continue
		}

		interval := c.effectiveInterval(conn)
		if !c.due(conn, now, interval) {
			continue
		}

		if _, err := c.scheduler.Schedule(conn, TriggerScheduled, conn.EnabledCategories); err != nil {
			// Leave next-due untouched so the next tick tries again
			c.logger.Error("Failed to enqueue scheduled sync job",
				zap.String("connection_id", conn.ID.String()),
				zap.String("platform_code", string(conn.PlatformCode)),
				zap.Error(err),
			)
			continue
		}

		c.logger.Info("Scheduled sync job enqueued",
			zap.String("connection_id", conn.ID.String()),
			zap.String("tenant_id", conn.TenantID.String()),
			zap.String("platform_code", string(conn.PlatformCode)),
			zap.Duration("interval", interval),
		)

		c.advance(conn.ID, now.Add(interval))
	}
}

// eligible reports whether the connection takes part in scheduled sync.
// Error-state connections stay eligible: the next tick is their recovery path.
func (c *SyncCronTrigger) eligible(conn *integration.Connection) bool {
	if !conn.SyncEnabled || len(conn.EnabledCategories) == 0 {
		return false
	}
	return conn.Status == integration.ConnectionStatusConnected ||
		conn.Status == integration.ConnectionStatusError
}

// due reports whether the connection's next-due instant has passed,
// seeding it on first sight
func (c *SyncCronTrigger) due(conn *integration.Connection, now time.Time, interval time.Duration) bool {
	c.dueMu.Lock()
	defer c.dueMu.Unlock()

	next, ok := c.nextDue[conn.ID]
	if !ok {
		if conn.LastSyncAt != nil {
			next = conn.LastSyncAt.Add(interval)
		} else {
			// Never synced: due immediately
			next = now
		}
		c.nextDue[conn.ID] = next
	}

	return !now.Before(next)
}

// advance moves a connection's next-due instant forward
func (c *SyncCronTrigger) advance(connectionID uuid.UUID, next time.Time) {
	c.dueMu.Lock()
	defer c.dueMu.Unlock()
	c.nextDue[connectionID] = next
}

// forget drops tracking state for a connection no longer eligible
func (c *SyncCronTrigger) forget(connectionID uuid.UUID) {
	c.dueMu.Lock()
	defer c.dueMu.Unlock()
	delete(c.nextDue, connectionID)
}

// effectiveInterval applies the per-connection deterministic jitter to the
// configured interval. The offset is a stable function of the connection ID,
// so one connection always keeps the same cadence.
func (c *SyncCronTrigger) effectiveInterval(conn *integration.Connection) time.Duration {
	interval := conn.SyncInterval()
	if c.config.JitterFraction <= 0 {
		return interval
	}

	h := fnv.New64a()
	h.Write(conn.ID[:])
	// Map the hash onto [-JitterFraction, +JitterFraction]
	unit := float64(h.Sum64()%2000)/1000.0 - 1.0
	offset := time.Duration(float64(interval) * c.config.JitterFraction * unit)
	return interval + offset
}
