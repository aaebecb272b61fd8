package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adboard/backend/internal/domain/integration"
)

// fakeConnectionProvider serves a fixed connection list
type fakeConnectionProvider struct {
	conns []integration.Connection
	err   error
}

func (f *fakeConnectionProvider) FindAllSyncEnabled(ctx context.Context) ([]integration.Connection, error) {
	return f.conns, f.err
}

func newTriggerFixture(t *testing.T, conns ...*integration.Connection) (*SyncCronTrigger, *fakeExecutor) {
	executor := newFakeExecutor()
	scheduler := startScheduler(t, fastSchedulerConfig(), executor)

	provider := &fakeConnectionProvider{}
	for _, conn := range conns {
		provider.conns = append(provider.conns, *conn)
	}

	cfg := DefaultSyncCronTriggerConfig()
	cfg.JitterFraction = 0 // deterministic cadence for the tick tests
	trigger := NewSyncCronTrigger(cfg, scheduler, provider, newTestLogger())
	return trigger, executor
}

func TestSyncCronTrigger_SchedulesWhenDue(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.UpdateSyncConfig(true, 15, []integration.SyncCategory{
		integration.SyncCategoryCampaigns,
		integration.SyncCategoryKeywords,
	}))

	trigger, executor := newTriggerFixture(t, conn)

	now := time.Now()
	// Never synced: first check is due immediately
	trigger.CheckAndSchedule(context.Background(), now)

	assert.Eventually(t, func() bool {
		return executor.executedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	job := executor.executedJobs()[0]
	assert.Equal(t, conn.ID, job.ConnectionID)
	assert.Equal(t, TriggerScheduled, job.Trigger)
	assert.Equal(t, conn.EnabledCategories, job.Categories)
}

func TestSyncCronTrigger_ThreeIntervalsThreeJobs(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.UpdateSyncConfig(true, 15, []integration.SyncCategory{integration.SyncCategoryCampaigns}))

	trigger, executor := newTriggerFixture(t, conn)

	now := time.Now()
	ticks := []struct {
		at  time.Time
		due bool
	}{
		{now, true},
		{now.Add(time.Minute), false},
		{now.Add(15 * time.Minute), true},
		{now.Add(16 * time.Minute), false},
		{now.Add(30 * time.Minute), true},
	}
	want := 0
	for _, tick := range ticks {
		trigger.CheckAndSchedule(context.Background(), tick.at)
		if tick.due {
			want++
		}
		// let each job finish before the next tick
		require.Eventually(t, func() bool {
			return executor.executedCount() == want
		}, 2*time.Second, 5*time.Millisecond)
	}

	assert.Equal(t, 3, executor.executedCount())

	for _, job := range executor.executedJobs() {
		assert.Equal(t, []integration.SyncCategory{integration.SyncCategoryCampaigns}, job.Categories)
	}
}

func TestSyncCronTrigger_CatchUpCollapsesToOneJob(t *testing.T) {
	conn := newTestConnection(t)
	require.NoError(t, conn.UpdateSyncConfig(true, 15, []integration.SyncCategory{integration.SyncCategoryCampaigns}))
	lastSync := time.Now().Add(-3 * time.Hour)
	conn.MarkSynced(lastSync)

	trigger, executor := newTriggerFixture(t, conn)

	// Twelve intervals overdue, but one check enqueues exactly one job
	now := time.Now()
	trigger.CheckAndSchedule(context.Background(), now)

	assert.Eventually(t, func() bool {
		return executor.executedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, executor.executedCount())

	// Next due moved to now+interval: a check one minute later is quiet
	trigger.CheckAndSchedule(context.Background(), now.Add(time.Minute))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, executor.executedCount())
}

func TestSyncCronTrigger_SkipsIneligibleConnections(t *testing.T) {
	disconnected := newTestConnection(t)
	disconnected.MarkDisconnected()

	disabled := newTestConnection(t)
	require.NoError(t, disabled.UpdateSyncConfig(false, 15, nil))

	connecting := newTestConnection(t)
	connecting.MarkConnecting()

	trigger, executor := newTriggerFixture(t, disconnected, disabled, connecting)

	trigger.CheckAndSchedule(context.Background(), time.Now())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, executor.executedCount())
}

func TestSyncCronTrigger_ErrorConnectionsStayEligible(t *testing.T) {
	conn := newTestConnection(t)
	conn.MarkError(integration.ErrorKindPlatform, "platform temporarily unavailable")

	trigger, executor := newTriggerFixture(t, conn)

	trigger.CheckAndSchedule(context.Background(), time.Now())

	assert.Eventually(t, func() bool {
		return executor.executedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncCronTrigger_JitterDeterministicAndBounded(t *testing.T) {
	cfg := DefaultSyncCronTriggerConfig()
	trigger := NewSyncCronTrigger(cfg, nil, &fakeConnectionProvider{}, newTestLogger())

	conn := newTestConnection(t)
	interval := conn.SyncInterval()

	first := trigger.effectiveInterval(conn)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, trigger.effectiveInterval(conn), "jitter must be stable per connection")
	}

	lower := interval - time.Duration(float64(interval)*cfg.JitterFraction)
	upper := interval + time.Duration(float64(interval)*cfg.JitterFraction)
	assert.GreaterOrEqual(t, first, lower)
	assert.LessOrEqual(t, first, upper)

	// Different connections spread out
	other := newTestConnection(t)
	if trigger.effectiveInterval(other) == first {
		third := newTestConnection(t)
		assert.NotEqual(t, first, trigger.effectiveInterval(third))
	}
}

func TestSyncCronTrigger_StartStop(t *testing.T) {
	conn := newTestConnection(t)
	trigger, executor := newTriggerFixture(t, conn)

	require.NoError(t, trigger.Start(context.Background()))

	// the immediate check on start schedules the never-synced connection
	assert.Eventually(t, func() bool {
		return executor.executedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(stopCtx))
}
