package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job       jobModel.Job
	expiresAt time.Time
}

// InMemoryJobStore keeps job state for single-process deployments. Like the
// Redis store, a job expires ttl after its last save; a zero ttl keeps jobs
// until they are deleted.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]storedJob
	ttl  time.Duration
	now  func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(0)
}

func NewInMemoryJobStore(ttl time.Duration) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]storedJob),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *InMemoryJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	entry := storedJob{job: job}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.jobs[job.Id] = entry
	evicted := s.evictExpiredLocked()
	s.mu.Unlock()

	log := inMemLogger.FromContext(ctx)
	log.Debug("job saved", "jobId", job.Id, "status", job.Status, "step", job.CurrentStep)
	if evicted > 0 {
		log.Debug("expired jobs evicted", "count", evicted)
	}
	return nil
}

func (s *InMemoryJobStore) GetJob(ctx context.Context, jobID string) (jobModel.Job, bool) {
	s.mu.RLock()
	entry, found := s.jobs[jobID]
	s.mu.RUnlock()
	if !found || s.expired(entry) {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (s *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
	inMemLogger.FromContext(ctx).Debug("job deleted", "jobId", jobID)
}

// Len counts jobs that have not expired.
func (s *InMemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entry := range s.jobs {
		if !s.expired(entry) {
			n++
		}
	}
	return n
}

func (s *InMemoryJobStore) expired(entry storedJob) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

func (s *InMemoryJobStore) evictExpiredLocked() int {
	n := 0
	for id, entry := range s.jobs {
		if s.expired(entry) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}
