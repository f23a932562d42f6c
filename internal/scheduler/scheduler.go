// Package scheduler runs connectors concurrently while allowing at most one
// in-flight run per vendor and folder.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SomeAverageDev/konnectors/internal/konnector"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// DefaultParallelism bounds RunBatch when no limit is configured.
const DefaultParallelism = 2

// Runner is a connector. *konnector.Konnector implements it.
type Runner interface {
	Vendor() string
	Run(ctx context.Context, req konnector.Request) models.RunResult
}

// Job is one connector run to schedule.
type Job struct {
	Runner  Runner
	Request konnector.Request
}

func (j Job) key() string {
	return j.Runner.Vendor() + "\x00" + j.Request.Folder
}

// jobWriter is the write side of JobStore.
type jobWriter interface {
	SaveJob(ctx context.Context, job *JobRecord) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// Scheduler serializes runs that target the same vendor and folder.
type Scheduler struct {
	jobs        *JobStore
	writer      jobWriter
	parallelism int
	logger      logging.Logger
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// New creates a scheduler. A parallelism below 1 uses DefaultParallelism.
func New(jobs *JobStore, parallelism int, logger logging.Logger) *Scheduler {
	if jobs == nil {
		jobs = NewJobStore()
	}
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	return &Scheduler{
		jobs:        jobs,
		writer:      jobs,
		parallelism: parallelism,
		logger:      logging.OrDefault(logger),
		now:         time.Now,
		locks:       make(map[string]chan struct{}),
	}
}

// Jobs exposes the job records.
func (s *Scheduler) Jobs() *JobStore {
	return s.jobs
}

func (s *Scheduler) lockFor(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

// Run executes job once its vendor and folder are free. The error is only
// set when the run could not start; run failures are in the result.
func (s *Scheduler) Run(ctx context.Context, job Job) (models.RunResult, error) {
	record := &JobRecord{
		JobID:     uuid.New().String(),
		Vendor:    job.Runner.Vendor(),
		Folder:    job.Request.Folder,
		Status:    JobStatusPending,
		CreatedAt: s.now(),
	}
	if err := s.writer.SaveJob(ctx, record); err != nil {
		return models.RunResult{}, err
	}
	log := s.logger.WithFields(
		logging.F(logging.FieldJobID, record.JobID),
		logging.F(logging.FieldVendor, record.Vendor),
		logging.F(logging.FieldFolder, record.Folder))

	lock := s.lockFor(job.key())
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		if err := s.writer.UpdateJobStatus(context.Background(), record.JobID, JobStatusFailed, ctx.Err().Error()); err != nil {
			log.WithError(err).Warn("Failed to record job status")
		}
		return models.RunResult{}, fmt.Errorf("waiting for %s: %w", record.Vendor, ctx.Err())
	}
	defer func() { <-lock }()

	started := s.now()
	record.Status = JobStatusRunning
	record.StartedAt = &started
	if err := s.writer.SaveJob(ctx, record); err != nil {
		log.WithError(err).Warn("Failed to record job status")
	}
	log.Info("Job started")

	result := job.Runner.Run(ctx, job.Request)

	completed := s.now()
	record.CompletedAt = &completed
	record.Result = &result
	if result.Err != nil {
		record.Status = JobStatusFailed
		record.Error = result.Err.Error()
		log.WithError(result.Err).Warn("Job failed")
	} else {
		record.Status = JobStatusCompleted
		log.Info("Job completed")
	}
	// The run context may be done by now; the record must still be written.
	if err := s.writer.SaveJob(context.Background(), record); err != nil {
		log.WithError(err).Warn("Failed to record job status")
	}
	return result, nil
}

// RunBatch runs jobs concurrently, at most parallelism at a time. Results
// keep the order of jobs. A failing connector does not stop the others.
func (s *Scheduler) RunBatch(ctx context.Context, jobs []Job) ([]models.RunResult, error) {
	results := make([]models.RunResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := s.Run(gctx, job)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
