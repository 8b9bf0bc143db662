package background

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"invoicer/internal/logger"
	"invoicer/internal/models"
	"invoicer/internal/services"
)

type JobSchedulerTestSuite struct {
	suite.Suite
	notifier  services.NotificationService
	scheduler *JobScheduler
}

func (suite *JobSchedulerTestSuite) SetupTest() {
	suite.notifier = services.NewNotificationService(0, logger.NewNopLogger())

	scheduler, err := NewJobScheduler(suite.notifier, 30*time.Millisecond, 20*time.Millisecond, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.scheduler = scheduler
	suite.scheduler.Start()
}

func (suite *JobSchedulerTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.scheduler.Stop())
}

func TestJobSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(JobSchedulerTestSuite))
}

func (suite *JobSchedulerTestSuite) TestRunAfter_Immediate() {
	var ran atomic.Bool

	require.NoError(suite.T(), suite.scheduler.RunAfter("export-pdf", 0, func(ctx context.Context) {
		ran.Store(true)
	}))

	assert.Eventually(suite.T(), ran.Load, time.Second, 5*time.Millisecond)
}

func (suite *JobSchedulerTestSuite) TestRunAfter_Delayed() {
	var ranAt atomic.Int64
	start := time.Now()

	require.NoError(suite.T(), suite.scheduler.RunAfter("send-email", 100*time.Millisecond, func(ctx context.Context) {
		ranAt.Store(time.Now().UnixNano())
	}))

	assert.Eventually(suite.T(), func() bool { return ranAt.Load() != 0 }, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(suite.T(), time.Duration(ranAt.Load()-start.UnixNano()), 90*time.Millisecond)
}

func (suite *JobSchedulerTestSuite) TestRunAfter_ForgetsFinishedJobs() {
	done := make(chan struct{})

	require.NoError(suite.T(), suite.scheduler.RunAfter("export-pdf", 0, func(ctx context.Context) {
		close(done)
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		suite.T().Fatal("task did not run")
	}

	assert.Eventually(suite.T(), func() bool {
		suite.scheduler.mu.RLock()
		defer suite.scheduler.mu.RUnlock()
		_, pruneRegistered := suite.scheduler.jobs["notification-prune"]
		return len(suite.scheduler.jobs) == 1 && pruneRegistered
	}, time.Second, 5*time.Millisecond)
}

func (suite *JobSchedulerTestSuite) TestStop_CancelsTaskContext() {
	started := make(chan struct{})
	var cancelled atomic.Bool

	require.NoError(suite.T(), suite.scheduler.RunAfter("send-email", 0, func(ctx context.Context) {
		close(started)
		select {
		case <-ctx.Done():
			cancelled.Store(true)
		case <-time.After(2 * time.Second):
		}
	}))

	<-started
	suite.scheduler.cancel()

	assert.Eventually(suite.T(), cancelled.Load, time.Second, 5*time.Millisecond)
}

func (suite *JobSchedulerTestSuite) TestPruneJob_DropsOldNotifications() {
	suite.notifier.Notify(models.TitleSuccess, "old news", models.NotificationVariantDefault)

	assert.Eventually(suite.T(), func() bool {
		return len(suite.notifier.List()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewJobScheduler_PruningDisabled(t *testing.T) {
	scheduler, err := NewJobScheduler(services.NewNotificationService(0, logger.NewNopLogger()), 0, 0, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Empty(t, scheduler.jobs)
	assert.NoError(t, scheduler.Stop())
}
