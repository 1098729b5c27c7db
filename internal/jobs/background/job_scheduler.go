package background

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gekosync/internal/models"
	"gekosync/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// SyncRunner is the pipeline entry point the scheduler drives.
type SyncRunner interface {
	Run(ctx context.Context, syncType models.SyncType, url string) (*services.SyncResult, error)
}

// ScheduleStatus describes the single job slot.
type ScheduleStatus struct {
	Active          bool       `json:"active"`
	APIURL          string     `json:"api_url,omitempty"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	CronExpression  string     `json:"cron_expression,omitempty"`
	NextRun         *time.Time `json:"next_run,omitempty"`
}

// JobScheduler owns at most one recurring catalog sync. It is an explicit,
// injected object: there is no process-wide current-job singleton, the single
// slot lives here.
type JobScheduler struct {
	scheduler gocron.Scheduler
	runner    SyncRunner

	mu       sync.Mutex
	job      gocron.Job
	apiURL   string
	interval int
	cronExpr string
}

func NewJobScheduler(runner SyncRunner) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	scheduler.Start()

	return &JobScheduler{
		scheduler: scheduler,
		runner:    runner,
	}, nil
}

// StartSync registers the recurring sync on a minute-granularity cron
// expression, replacing any previously active job.
func (js *JobScheduler) StartSync(apiURL string, intervalMinutes int) error {
	if apiURL == "" {
		return fmt.Errorf("scheduling failed: no catalog URL configured")
	}
	if intervalMinutes < 1 {
		return fmt.Errorf("scheduling failed: interval must be at least 1 minute")
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	cronExpr := fmt.Sprintf("*/%d * * * *", intervalMinutes)
	job, err := js.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(js.runScheduled),
		gocron.WithName("geko-catalog-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling failed: %w", err)
	}

	// Replace the previous job only after the new one registered cleanly.
	if js.job != nil {
		if err := js.scheduler.RemoveJob(js.job.ID()); err != nil {
			log.Printf("WARN: failed to remove previous sync job: %v", err)
		}
	}

	js.job = job
	js.apiURL = apiURL
	js.interval = intervalMinutes
	js.cronExpr = cronExpr

	log.Printf("Scheduled catalog sync every %d minute(s) from %s", intervalMinutes, apiURL)
	return nil
}

// StopSync cancels the active job. Stopping with no active job is a no-op
// success.
func (js *JobScheduler) StopSync() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if js.job == nil {
		log.Printf("DEBUG: stop requested with no active sync job")
		return nil
	}

	if err := js.scheduler.RemoveJob(js.job.ID()); err != nil {
		return fmt.Errorf("stop sync job: %w", err)
	}
	js.job = nil
	js.apiURL = ""
	js.interval = 0
	js.cronExpr = ""

	log.Printf("Stopped scheduled catalog sync")
	return nil
}

// Status reports whether a job is active and on what schedule.
func (js *JobScheduler) Status() ScheduleStatus {
	js.mu.Lock()
	defer js.mu.Unlock()

	status := ScheduleStatus{}
	if js.job == nil {
		return status
	}

	status.Active = true
	status.APIURL = js.apiURL
	status.IntervalMinutes = js.interval
	status.CronExpression = js.cronExpr
	if next, err := js.job.NextRun(); err == nil {
		status.NextRun = &next
	}
	return status
}

// Shutdown stops the underlying scheduler; in-flight runs finish on their own.
func (js *JobScheduler) Shutdown() error {
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) runScheduled() {
	js.mu.Lock()
	url := js.apiURL
	js.mu.Unlock()

	if url == "" {
		return
	}

	if _, err := js.runner.Run(context.Background(), models.SyncTypeScheduled, url); err != nil {
		log.Printf("WARN: scheduled sync failed: %v", err)
	}
}
