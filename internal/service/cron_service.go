package service

import (
	"context"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

const (
	instrumentsSchedule = "0 8 * * 1-5"      // Once at 08:00am, Mon-Fri
	snapshotsSchedule   = "*/5 9-15 * * 1-5" // Every 5 minutes 09:00-15:55, Mon-Fri
)

// CronService is the service for the cron jobs
type CronService struct {
	c                 *cron.Cron
	instrumentService *InstrumentService
	snapshotService   *SnapshotService
	jobTimeout        time.Duration
}

// NewCronService creates a new CronService running in exchange time
func NewCronService(instrumentService *InstrumentService, snapshotService *SnapshotService) *CronService {
	return &CronService{
		c:                 cron.New(cron.WithLocation(historical.IST)),
		instrumentService: instrumentService,
		snapshotService:   snapshotService,
		jobTimeout:        2 * time.Minute,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// Add your SCHEDULED jobs here
	// ------------------------------------------------------------
	cs.addScheduledJob("Instruments UPDATE Job", cs.InstrumentsUpdateJob, instrumentsSchedule)
	cs.addScheduledJob("Snapshots REFRESH Job", cs.SnapshotsRefreshJob, snapshotsSchedule)

	// ------------------------------------------------------------
	// Add your STARTUP jobs here
	// ------------------------------------------------------------
	cs.addStartupJob("Instruments UPDATE Job", cs.InstrumentsUpdateJob, 1*time.Second)
	cs.addStartupJob("Snapshots REFRESH Job", cs.SnapshotsRefreshJob, 10*time.Second)
	// ------------------------------------------------------------

	cs.c.Start()
}

// Stop stops the scheduler and waits for running jobs
func (cs *CronService) Stop() context.Context {
	return cs.c.Stop()
}

// Entries returns the number of scheduled jobs
func (cs *CronService) Entries() int {
	return len(cs.c.Entries())
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// InstrumentsUpdateJob refreshes the instrument masters
func (cs *CronService) InstrumentsUpdateJob() {
	jobName := "Instruments UPDATE Job"
	ctx, cancel := context.WithTimeout(context.Background(), cs.jobTimeout)
	defer cancel()

	results, err := cs.instrumentService.UpdateInstruments(ctx, false)
	for _, r := range results {
		zaplogger.Info(jobName, zaplogger.Fields{
			"segment": string(r.Segment),
			"records": r.Records,
			"skipped": r.Skipped,
		})
	}
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
	}
}

// SnapshotsRefreshJob refreshes the configured index snapshots
func (cs *CronService) SnapshotsRefreshJob() {
	jobName := "Snapshots REFRESH Job"
	ctx, cancel := context.WithTimeout(context.Background(), cs.jobTimeout)
	defer cancel()

	kept, err := cs.snapshotService.RefreshSnapshots(ctx)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"kept":  kept,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info(jobName, zaplogger.Fields{
		"kept": kept,
	})
}
