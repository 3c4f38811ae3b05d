package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitegate/notify-api/internal/model"
)

var (
	// ErrNotFound is returned for unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrConflict is returned when a mutation targets a terminal job.
	ErrConflict = errors.New("job already finished")
)

// JobStore keeps batch jobs in memory. The map is guarded by one RWMutex,
// but every job has its own lock, so writers on unrelated jobs never contend
// and all mutations on a single job are serialized.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

type entry struct {
	mu  sync.Mutex
	job model.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*entry)}
}

// Create registers a new pending job and returns its id.
func (s *JobStore) Create(channel model.Channel, total int) string {
	id := uuid.New().String()
	e := &entry{job: model.Job{
		ID:        id,
		Channel:   channel,
		Status:    model.JobStatusPending,
		Total:     total,
		Errors:    []model.JobError{},
		CreatedAt: time.Now(),
	}}
	s.mu.Lock()
	s.jobs[id] = e
	s.mu.Unlock()
	return id
}

// Get returns a consistent copy of the job. The copy is taken under the
// job's lock, so counters and the error list never tear.
func (s *JobStore) Get(id string) (model.Job, error) {
	e, ok := s.entry(id)
	if !ok {
		return model.Job{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneJob(e.job), nil
}

// RecordSuccess increments the success counter for one delivered recipient.
func (s *JobStore) RecordSuccess(id string) error {
	return s.update(id, func(j *model.Job) {
		j.SuccessCount++
	})
}

// RecordFailure increments the failure counter and appends the per-recipient
// error entry.
func (s *JobStore) RecordFailure(id, recipient, message string) error {
	return s.update(id, func(j *model.Job) {
		j.FailedCount++
		j.Errors = append(j.Errors, model.JobError{Recipient: recipient, Message: message})
	})
}

// MarkProcessing moves a pending job to processing and stamps StartedAt.
func (s *JobStore) MarkProcessing(id string) error {
	return s.update(id, func(j *model.Job) {
		if j.Status == model.JobStatusPending {
			j.Status = model.JobStatusProcessing
			now := time.Now()
			j.StartedAt = &now
		}
	})
}

// Finalize moves the job to a terminal status and stamps CompletedAt.
// A job reaches a terminal state exactly once; later calls get ErrConflict.
func (s *JobStore) Finalize(id string, status model.JobStatus) error {
	if !status.Terminal() {
		return errors.New("finalize requires a terminal status")
	}
	return s.update(id, func(j *model.Job) {
		j.Status = status
		now := time.Now()
		j.CompletedAt = &now
	})
}

// RequestCancel flips the cooperative cancel flag. Idempotent while the job
// is running; ErrConflict once the job is terminal.
func (s *JobStore) RequestCancel(id string) error {
	return s.update(id, func(j *model.Job) {
		j.CancelRequested = true
	})
}

// CancelRequested reports the cancel flag; workers check it per dequeue.
func (s *JobStore) CancelRequested(id string) bool {
	e, ok := s.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.CancelRequested
}

// Len returns the number of retained jobs.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *JobStore) entry(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[id]
	return e, ok
}

// update applies fn under the job's lock. Terminal jobs are immutable, so the
// mutation is rejected with ErrConflict before fn runs.
func (s *JobStore) update(id string, fn func(*model.Job)) error {
	e, ok := s.entry(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job.Status.Terminal() {
		return ErrConflict
	}
	fn(&e.job)
	return nil
}

func cloneJob(j model.Job) model.Job {
	cp := j
	cp.Errors = append([]model.JobError(nil), j.Errors...)
	if cp.Errors == nil {
		cp.Errors = []model.JobError{}
	}
	return cp
}
