package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SomeAverageDev/konnectors/internal/models"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting for its connector lock.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the connector is running.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the run finished without a fatal error.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the run failed.
	JobStatusFailed JobStatus = "failed"
)

// JobRecord is the tracked state of one scheduled run.
type JobRecord struct {
	JobID       string
	Vendor      string
	Folder      string
	Status      JobStatus
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
	Result      *models.RunResult
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Vendor string
	Status JobStatus
	Limit  int
}

// JobStore keeps job records in memory. It is safe for concurrent use; its
// content is lost when the process exits.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*JobRecord
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*JobRecord)}
}

// SaveJob saves or updates a job.
func (s *JobStore) SaveJob(_ context.Context, job *JobRecord) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob returns a copy of the job with jobID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns matching jobs, oldest first.
func (s *JobStore) ListJobs(_ context.Context, filter JobFilter) ([]*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*JobRecord
	for _, job := range s.jobs {
		if filter.Vendor != "" && job.Vendor != filter.Vendor {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].JobID < result[j].JobID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus updates the status of a job.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}
