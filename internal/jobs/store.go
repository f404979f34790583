package jobs

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory job registry. It owns the id -> Job mapping and
// is the sole mutator of job state; pipeline writers and status-query
// readers hit it concurrently, so every operation takes the store lock
// and reads never observe a half-written job.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewStore creates an empty job store.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		jobs:   make(map[string]*Job),
		logger: logger,
		now:    time.Now,
	}
}

// Create allocates a new job in pending state. The identifier is a
// random UUID, so creation cannot collide under normal operation.
func (s *Store) Create(url, title string, uploadRequested bool) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	job := &Job{
		ID:              uuid.New().String(),
		URL:             url,
		Title:           title,
		UploadRequested: uploadRequested,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.jobs[job.ID] = job

	s.logger.Debug("Job created",
		slog.String("job_id", job.ID),
		slog.String("url", url),
	)
	return *job
}

// Get returns a copy of the job, or ErrJobNotFound for an unknown id.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Update applies a status change plus the fields present in the patch.
// UpdatedAt is always refreshed; CompletedAt is set once, at the first
// terminal transition. Updating an unknown id is a no-op — that only
// happens when the orchestrator and store have desynchronized, so it is
// logged as an anomaly rather than silently swallowed.
func (s *Store) Update(id string, status Status, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		s.logger.Warn("Update for unknown job id ignored",
			slog.String("job_id", id),
			slog.String("status", string(status)),
		)
		return
	}

	job.Status = status
	job.UpdatedAt = s.now().UTC()
	if patch.Title != nil {
		job.Title = *patch.Title
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.PDFPath != nil {
		job.PDFPath = *patch.PDFPath
	}
	if patch.DropboxPath != nil {
		job.DropboxPath = *patch.DropboxPath
	}
	if status.Terminal() && job.CompletedAt == nil {
		done := job.UpdatedAt
		job.CompletedAt = &done
	}
}

// Delete removes a job. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Snapshot returns a copy of every job keyed by id, for diagnostics.
// The returned map does not alias store state.
func (s *Store) Snapshot() map[string]Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Job, len(s.jobs))
	for id, job := range s.jobs {
		out[id] = *job
	}
	return out
}

// EvictOlderThan removes every job strictly older than maxAge, measured
// from creation time. The store has no timer of its own; a scheduler is
// expected to call this periodically.
func (s *Store) EvictOlderThan(maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	evicted := 0
	for id, job := range s.jobs {
		if now.Sub(job.CreatedAt) > maxAge {
			delete(s.jobs, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.Info("Evicted old jobs",
			slog.Int("count", evicted),
			slog.Duration("max_age", maxAge),
		)
	}
}
