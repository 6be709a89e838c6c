package jobs

import (
	"context"
	"sort"
	"sync"
)

// Store is the keyed job map the orchestrator drives. Every returned job is a
// snapshot; mutations go through Put or Update so there is at most one writer
// per job at a time.
type Store interface {
	Get(id string) (*ProcessingJob, bool)
	Put(job *ProcessingJob)
	// Update applies fn to the stored job under the store's lock and returns
	// the resulting snapshot. Returns false if the job does not exist or fn
	// declined the update.
	Update(id string, fn func(job *ProcessingJob) bool) (*ProcessingJob, bool)
	List() []*ProcessingJob
	Delete(id string)
}

// Persister mirrors job state to durable storage for restart recovery.
// Persistence failures are logged by callers, never surfaced to job status.
type Persister interface {
	LoadJobs(ctx context.Context) ([]*ProcessingJob, error)
	UpsertJob(ctx context.Context, job *ProcessingJob) error
	DeleteJob(ctx context.Context, jobID string) error
}

// MemoryStore is the in-memory authoritative Store.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*ProcessingJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*ProcessingJob)}
}

func (s *MemoryStore) Get(id string) (*ProcessingJob, bool) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

func (s *MemoryStore) Put(job *ProcessingJob) {
	if job == nil || job.ID == "" {
		return
	}
	s.mu.Lock()
	s.jobs[job.ID] = cloneJob(job)
	s.mu.Unlock()
}

func (s *MemoryStore) Update(id string, fn func(job *ProcessingJob) bool) (*ProcessingJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	if !fn(job) {
		return cloneJob(job), false
	}
	return cloneJob(job), true
}

func (s *MemoryStore) List() []*ProcessingJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret := make([]*ProcessingJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		ret = append(ret, cloneJob(job))
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].StartedAt.After(ret[j].StartedAt)
	})
	return ret
}

func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

func cloneJob(job *ProcessingJob) *ProcessingJob {
	if job == nil {
		return nil
	}
	tmp := *job
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		tmp.CompletedAt = &at
	}
	return &tmp
}
