package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adboard/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Sync Job Types
// ---------------------------------------------------------------------------

// SyncTrigger identifies what caused a sync job to be enqueued
type SyncTrigger string

const (
	// TriggerScheduled is a job enqueued by the cron trigger
	TriggerScheduled SyncTrigger = "scheduled"
	// TriggerWebhook is a targeted job enqueued by a platform notification
	TriggerWebhook SyncTrigger = "webhook"
	// TriggerManual is a job requested through the dashboard API
	TriggerManual SyncTrigger = "manual"
)

// SyncJobStatus represents the status of a sync job
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "PENDING"
	SyncJobStatusRunning   SyncJobStatus = "RUNNING"
	SyncJobStatusRetrying  SyncJobStatus = "RETRYING"
	SyncJobStatusSucceeded SyncJobStatus = "SUCCEEDED"
	SyncJobStatusFailed    SyncJobStatus = "FAILED"
	SyncJobStatusCancelled SyncJobStatus = "CANCELLED"
)

// SyncJob represents one unit of sync work for a single connection
type SyncJob struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	TenantID     uuid.UUID
	PlatformCode integration.PlatformCode
	Categories   []integration.SyncCategory
	Trigger      SyncTrigger
	Status       SyncJobStatus
	Error        string
	ErrorKind    integration.ErrorKind
	EnqueuedAt   time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	RetryCount   int

	// Per-category record counts recorded on success
	RecordCounts map[integration.SyncCategory]int
}

// NewSyncJob creates a pending sync job for a connection
func NewSyncJob(conn *integration.Connection, trigger SyncTrigger, categories []integration.SyncCategory) (*SyncJob, error) {
	if len(categories) == 0 {
		return nil, ErrNoCategories
	}
	return &SyncJob{
		ID:           uuid.New(),
		ConnectionID: conn.ID,
		TenantID:     conn.TenantID,
		PlatformCode: conn.PlatformCode,
		Categories:   normalizeCategories(categories),
		Trigger:      trigger,
		Status:       SyncJobStatusPending,
		EnqueuedAt:   time.Now(),
		RecordCounts: make(map[integration.SyncCategory]int),
	}, nil
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
	j.ErrorKind = integration.ErrorKindNone
}

// Succeed marks the job as completed successfully
func (j *SyncJob) Succeed() {
	now := time.Now()
	j.Status = SyncJobStatusSucceeded
	j.CompletedAt = &now
}

// Fail marks the job as terminally failed
func (j *SyncJob) Fail(err error) {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err.Error()
	j.ErrorKind = integration.Classify(err)
}

// MarkRetrying records one retry of a transient failure
func (j *SyncJob) MarkRetrying() {
	j.RetryCount++
	j.Status = SyncJobStatusRetrying
}

// Cancel marks the job as cancelled before it ran
func (j *SyncJob) Cancel() {
	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.CompletedAt = &now
}

// MergeCategories folds another request's categories into this job
func (j *SyncJob) MergeCategories(categories []integration.SyncCategory) {
	j.Categories = normalizeCategories(append(j.Categories, categories...))
}

// HasCategory returns true if the job covers the given category
func (j *SyncJob) HasCategory(cat integration.SyncCategory) bool {
	for _, c := range j.Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// normalizeCategories deduplicates and orders categories canonically
func normalizeCategories(categories []integration.SyncCategory) []integration.SyncCategory {
	present := make(map[integration.SyncCategory]bool, len(categories))
	for _, c := range categories {
		present[c] = true
	}
	normalized := make([]integration.SyncCategory, 0, len(present))
	for _, c := range integration.AllSyncCategories() {
		if present[c] {
			normalized = append(normalized, c)
		}
	}
	return normalized
}

// ---------------------------------------------------------------------------
// SyncExecutor Interface
// ---------------------------------------------------------------------------

// SyncExecutor performs the platform calls and persistence for one job
type SyncExecutor interface {
	// Execute runs one attempt of the job. A transient error return means
	// the scheduler may retry; any other error is terminal.
	Execute(ctx context.Context, job *SyncJob) error

	// RecordFailure performs the connection bookkeeping after the job's
	// final failure (status, last error, registry)
	RecordFailure(ctx context.Context, job *SyncJob, err error)
}

// ---------------------------------------------------------------------------
// SyncSchedulerConfig
// ---------------------------------------------------------------------------

// SyncSchedulerConfig holds configuration for the sync scheduler
type SyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// WorkerCount is the number of concurrent sync workers
	WorkerCount int
	// QueueSize is the job channel capacity
	QueueSize int
	// JobTimeout is the maximum time one job may run, retries included
	JobTimeout time.Duration
	// RetryMaxAttempts is the total number of attempts for transient failures
	RetryMaxAttempts int
	// RetryBaseDelay is the first retry delay
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the exponential backoff delay
	RetryMaxDelay time.Duration
}

// DefaultSyncSchedulerConfig returns default configuration
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Enabled:          true,
		WorkerCount:      5,
		QueueSize:        100,
		JobTimeout:       15 * time.Minute,
		RetryMaxAttempts: 5,
		RetryBaseDelay:   5 * time.Second,
		RetryMaxDelay:    5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *SyncSchedulerConfig) Validate() error {
	if c.WorkerCount <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryMaxAttempts <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// SyncScheduler
// ---------------------------------------------------------------------------

// connState tracks per-connection serialization. At most one job per
// connection is in flight; a second submission while one runs is merged into
// a single deferred job that is released when the running one finishes.
type connState struct {
	inFlight  bool
	deferred  *SyncJob
	cancelled bool
}

// SyncScheduler manages the bounded worker pool that runs sync jobs
type SyncScheduler struct {
	config   SyncSchedulerConfig
	executor SyncExecutor
	logger   *zap.Logger

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	connMu sync.Mutex
	conns  map[uuid.UUID]*connState

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config SyncSchedulerConfig, executor SyncExecutor, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *SyncJob, config.QueueSize),
		conns:      make(map[uuid.UUID]*connState),
		history:    make([]*SyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the scheduler
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.WorkerCount),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Schedule builds a job for the connection and submits it
func (s *SyncScheduler) Schedule(conn *integration.Connection, trigger SyncTrigger, categories []integration.SyncCategory) (*SyncJob, error) {
	job, err := NewSyncJob(conn, trigger, categories)
	if err != nil {
		return nil, err
	}
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// SubmitJob submits a job, serializing per connection. If a job for the same
// connection is already in flight the submission is merged into one deferred
// job and nil is returned.
func (s *SyncScheduler) SubmitJob(job *SyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	s.connMu.Lock()
	st := s.conns[job.ConnectionID]
	if st == nil {
		st = &connState{}
		s.conns[job.ConnectionID] = st
	}
	st.cancelled = false

	if st.inFlight {
		if st.deferred == nil {
			st.deferred = job
		} else {
			st.deferred.MergeCategories(job.Categories)
		}
		s.connMu.Unlock()
		s.logger.Debug("Sync job merged into deferred job",
			zap.String("connection_id", job.ConnectionID.String()),
			zap.String("trigger", string(job.Trigger)),
		)
		return nil
	}
	st.inFlight = true
	s.connMu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("Sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("connection_id", job.ConnectionID.String()),
			zap.String("platform_code", string(job.PlatformCode)),
			zap.String("trigger", string(job.Trigger)),
		)
		return nil
	default:
		s.connMu.Lock()
		st.inFlight = false
		s.connMu.Unlock()
		return ErrJobQueueFull
	}
}

// Cancel drops all pending and deferred work for a connection. The job
// currently in flight, if any, finishes its attempt but its result is
// suppressed by the executor once the connection is disconnected.
func (s *SyncScheduler) Cancel(connectionID uuid.UUID) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	st := s.conns[connectionID]
	if st == nil {
		return
	}
	st.cancelled = true
	if st.deferred != nil {
		st.deferred.Cancel()
		st.deferred = nil
	}
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Sync job channel closed", zap.Int("worker_id", workerID))
				return
			}
			if s.isCancelled(job.ConnectionID) {
				job.Cancel()
				s.logger.Info("Sync job cancelled before run",
					zap.String("job_id", job.ID.String()),
					zap.String("connection_id", job.ConnectionID.String()),
				)
				s.addToHistory(job)
				s.finishConnection(ctx, job.ConnectionID)
				continue
			}
			s.processJob(ctx, job, workerID)
			s.finishConnection(ctx, job.ConnectionID)
		}
	}
}

// processJob executes a single job with the transient retry policy
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	job.Start()
	s.logger.Info("Processing sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("connection_id", job.ConnectionID.String()),
		zap.String("platform_code", string(job.PlatformCode)),
		zap.String("trigger", string(job.Trigger)),
		zap.Int("categories", len(job.Categories)),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	operation := func() error {
		err := s.executor.Execute(jobCtx, job)
		if err == nil {
			return nil
		}
		if !integration.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		job.MarkRetrying()
		s.logger.Warn("Sync job attempt failed, retrying",
			zap.String("job_id", job.ID.String()),
			zap.String("connection_id", job.ConnectionID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Int("max_attempts", s.config.RetryMaxAttempts),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, s.retryPolicy(jobCtx), notify)
	if err != nil {
		job.Fail(err)
		s.executor.RecordFailure(ctx, job, err)
		s.logger.Error("Sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("connection_id", job.ConnectionID.String()),
			zap.String("platform_code", string(job.PlatformCode)),
			zap.String("error_kind", job.ErrorKind.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		s.addToHistory(job)
		return
	}

	job.Succeed()
	s.logger.Info("Sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("connection_id", job.ConnectionID.String()),
		zap.String("platform_code", string(job.PlatformCode)),
		zap.Int("retry_count", job.RetryCount),
	)
	s.addToHistory(job)
}

// retryPolicy builds the exponential backoff schedule for one job
func (s *SyncScheduler) retryPolicy(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.RetryBaseDelay
	bo.MaxInterval = s.config.RetryMaxDelay
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.config.RetryMaxAttempts-1)), ctx)
}

// isCancelled reports whether the connection's work was cancelled
func (s *SyncScheduler) isCancelled(connectionID uuid.UUID) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	st := s.conns[connectionID]
	return st != nil && st.cancelled
}

// finishConnection releases the in-flight slot and submits deferred work
func (s *SyncScheduler) finishConnection(ctx context.Context, connectionID uuid.UUID) {
	s.connMu.Lock()
	st := s.conns[connectionID]
	if st == nil {
		s.connMu.Unlock()
		return
	}

	next := st.deferred
	st.deferred = nil
	if next == nil || st.cancelled {
		st.inFlight = false
		if !st.cancelled {
			delete(s.conns, connectionID)
		}
		s.connMu.Unlock()
		return
	}
	// Keep the slot held for the deferred job
	s.connMu.Unlock()

	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		next.Cancel()
		s.connMu.Lock()
		st.inFlight = false
		s.connMu.Unlock()
		return
	}

	select {
	case s.jobs <- next:
		s.logger.Debug("Deferred sync job released",
			zap.String("job_id", next.ID.String()),
			zap.String("connection_id", connectionID.String()),
		)
	default:
		// Queue full at release time. The job fails loudly: connection
		// bookkeeping records the error and the job lands in history.
		next.Fail(ErrJobQueueFull)
		s.executor.RecordFailure(ctx, next, ErrJobQueueFull)
		s.addToHistory(next)
		s.logger.Error("Deferred sync job dropped, queue full",
			zap.String("job_id", next.ID.String()),
			zap.String("connection_id", connectionID.String()),
		)
		s.connMu.Lock()
		st.inFlight = false
		s.connMu.Unlock()
	}
}

// addToHistory adds a finished job to history
func (s *SyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history
func (s *SyncScheduler) GetJobHistory(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByConnection returns job history for a specific connection
func (s *SyncScheduler) GetJobHistoryByConnection(connectionID uuid.UUID, limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*SyncJob, 0, limit)
	for _, job := range s.history {
		if job.ConnectionID == connectionID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}
