package background

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"invoicer/internal/logger"
	"invoicer/internal/services"
)

// below this a one-time job starts immediately; gocron rejects start
// times that are already in the past
const minScheduleDelay = 10 * time.Millisecond

// JobScheduler runs the asynchronous draft actions and housekeeping
type JobScheduler struct {
	scheduler gocron.Scheduler
	notifier  services.NotificationService
	retention time.Duration
	interval  time.Duration
	log       *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers the recurring
// notification pruning job. Nothing runs until Start.
func NewJobScheduler(notifier services.NotificationService, retention, interval time.Duration, log *logger.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		notifier:  notifier,
		retention: retention,
		interval:  interval,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		return nil, err
	}

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.log.Infow("starting background job scheduler")
	js.scheduler.Start()
}

// Stop cancels running tasks and waits for the scheduler to shut down
func (js *JobScheduler) Stop() error {
	js.log.Infow("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	if js.interval <= 0 || js.retention <= 0 {
		return nil
	}

	pruneJob, err := js.scheduler.NewJob(
		gocron.DurationJob(js.interval),
		gocron.NewTask(js.pruneNotifications),
		gocron.WithName("notification-prune"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.mu.Lock()
	js.jobs["notification-prune"] = pruneJob
	js.mu.Unlock()
	return nil
}

// RunAfter schedules task to run once after delay
func (js *JobScheduler) RunAfter(name string, delay time.Duration, task func(ctx context.Context)) error {
	start := gocron.OneTimeJobStartImmediately()
	if delay >= minScheduleDelay {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(delay))
	}

	runID := name + "-" + uuid.NewString()

	// held until the job is recorded so forget cannot miss it
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(func() {
			defer js.forget(runID)
			task(js.ctx)
		}),
		gocron.WithName(runID),
	)
	if err != nil {
		return err
	}

	js.jobs[runID] = job

	js.log.Debugw("scheduled one-time job", "job", runID, "delay", delay)
	return nil
}

// forget drops a finished one-time job from the scheduler
func (js *JobScheduler) forget(runID string) {
	js.mu.Lock()
	job, ok := js.jobs[runID]
	delete(js.jobs, runID)
	js.mu.Unlock()

	if !ok {
		return
	}
	go func() {
		if err := js.scheduler.RemoveJob(job.ID()); err != nil {
			js.log.Debugw("failed to remove finished job", "job", runID, "error", err)
		}
	}()
}

func (js *JobScheduler) pruneNotifications() {
	cutoff := time.Now().Add(-js.retention)
	if removed := js.notifier.Prune(cutoff); removed > 0 {
		js.log.Debugw("pruned notifications", "removed", removed)
	}
}
