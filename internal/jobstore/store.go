// Package jobstore holds job records for the lifetime of the process. Jobs
// are deliberately ephemeral; there is no expiry and no persistence.
package jobstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"promovid/internal/domain"
)

// Store is the authoritative source of job state. Implementations must
// support many concurrent readers and serialize mutations per call.
type Store interface {
	// Create assigns an ID, the initial processing status and a creation
	// timestamp, then stores the record. The returned value is a snapshot.
	Create(job domain.Job) domain.Job
	// Get returns a snapshot of the job or domain.ErrNotFound.
	Get(id string) (domain.Job, error)
	// Mutate applies fn under an exclusive lock. Terminal jobs are immutable;
	// fn is not invoked for them.
	Mutate(id string, fn func(*domain.Job)) error
	// List returns snapshots of all jobs.
	List() []domain.Job
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.Job)}
}

func (s *MemoryStore) Create(job domain.Job) domain.Job {
	// Short IDs keep log lines and result filenames readable.
	job.ID = uuid.NewString()[:12]
	job.Status = domain.JobStatusProcessing
	job.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := job
	s.jobs[job.ID] = &stored
	return job
}

func (s *MemoryStore) Get(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
	}
	return *job, nil
}

func (s *MemoryStore) Mutate(id string, fn func(*domain.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return nil
	}
	fn(job)
	return nil
}

func (s *MemoryStore) List() []domain.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
