package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"

	"linkbio/internal/config"
)

const (
	cleanupInterval  = 24 * time.Hour
	geoReloadPeriod  = time.Hour
	defaultJobPeriod = 10 * time.Minute
)

// Runnable is a unit of background work.
type Runnable interface {
	Run() error
}

type scheduledJob struct {
	name     string
	interval time.Duration
	job      Runnable
}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	mu      sync.Mutex
	jobs    []scheduledJob
	tickers []*time.Ticker
	wg      sync.WaitGroup
}

// NewScheduler registers the reconciliation and cleanup jobs and, when a
// reloadable geolocation database is in use, the reload job.
func NewScheduler(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config, geoDB Reloader) (*Scheduler, error) {
	s := New(logger)

	interval := time.Duration(cfg.JobIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultJobPeriod
	}

	s.Register("reconcile_clicks", interval, NewReconcileJob(dbManager, logger))
	s.Register("cleanup_orphans", cleanupInterval, NewCleanupJob(dbManager, logger))
	if geoDB != nil {
		s.Register("geodb_reload", geoReloadPeriod, NewGeoDBReloadJob(cfg.GeoDBPath, geoDB, logger))
	}
	return s, nil
}

// New returns a scheduler without any registered job.
func New(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		enabled: true,
	}
}

// Register adds a job. Jobs registered after Start run from the next Start.
func (s *Scheduler) Register(name string, interval time.Duration, job Runnable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduledJob{name: name, interval: interval, job: job})
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...", slog.Int("jobs", len(s.jobs)))
	s.isRunning = true

	for _, job := range s.jobs {
		s.startJob(job)
	}

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))
	return nil
}

func (s *Scheduler) startJob(job scheduledJob) {
	s.logger.Info("Starting job", slog.String("job", job.name), slog.Duration("interval", job.interval))
	ticker := time.NewTicker(job.interval)
	s.tickers = append(s.tickers, ticker)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Run initial execution
		s.executeJobSafely(job.name, job.job.Run)

		for {
			select {
			case <-ticker.C:
				s.executeJobSafely(job.name, job.job.Run)
			case <-s.ctx.Done():
				s.logger.Info("Job stopped", slog.String("job", job.name))
				return
			}
		}
	}()
}

// Stop halts all background jobs and waits for running executions.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")

	s.mu.Lock()
	s.enabled = false
	for _, ticker := range s.tickers {
		ticker.Stop()
	}
	s.tickers = nil
	s.cancel()
	s.isRunning = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// RunNow executes the named job synchronously, e.g. from the admin CLI.
// It reports false when no such job is registered.
func (s *Scheduler) RunNow(name string) (bool, error) {
	s.mu.Lock()
	var target Runnable
	for _, job := range s.jobs {
		if job.name == name {
			target = job.job
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return false, nil
	}
	return true, target.Run()
}
