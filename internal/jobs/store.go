// Package jobs tracks the lifecycle of asynchronous generation and build
// jobs. Jobs live for the process lifetime only; callers observe them by
// polling.
package jobs

import (
	"strconv"
	"sync"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

// Job lifecycle states. The only legal path is
// generating -> compiling -> completed|failed, with failure also allowed
// straight from generating when the generation stage itself fails.
const (
	StatusGenerating Status = "generating"
	StatusCompiling  Status = "compiling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job is the poll-visible state of one generation or build request.
type Job struct {
	ID         string `json:"job_id"`
	Status     Status `json:"status"`
	DeviceType string `json:"device_type"`
	SmartName  string `json:"smart_name,omitempty"`
	Path       string `json:"path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Store is an in-memory job map safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	lastID int64
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// nextID returns a millisecond-epoch id, bumped past the previous one when
// two jobs land in the same millisecond. Caller must hold the lock.
func (s *Store) nextID() string {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// Create registers a new job in the generating state and returns it.
func (s *Store) Create(deviceType string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:         s.nextID(),
		Status:     StatusGenerating,
		DeviceType: deviceType,
	}
	s.jobs[job.ID] = job
	return s.snapshot(job)
}

// CreateBuild registers a rebuild-only job that begins in the compiling
// state, as triggered by the parameter tuner.
func (s *Store) CreateBuild(deviceType, smartName string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:         s.nextID(),
		Status:     StatusCompiling,
		DeviceType: deviceType,
		SmartName:  smartName,
	}
	s.jobs[job.ID] = job
	return s.snapshot(job)
}

// Get returns a copy of the job, or ErrNotFound.
func (s *Store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(job), nil
}

// MarkCompiling moves a generating job to compiling and records the smart
// name assigned during generation.
func (s *Store) MarkCompiling(id, smartName string) error {
	return s.transition(id, StatusCompiling, func(j *Job) {
		j.SmartName = smartName
	})
}

// Complete moves a compiling job to completed with its binary artifact path.
func (s *Store) Complete(id, binPath string) error {
	return s.transition(id, StatusCompleted, func(j *Job) {
		j.Path = binPath
	})
}

// Fail terminates a job with a human-readable error message.
func (s *Store) Fail(id, message string) error {
	return s.transition(id, StatusFailed, func(j *Job) {
		j.Error = message
	})
}

func (s *Store) transition(id string, next Status, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !legalTransition(job.Status, next) {
		return &TransitionError{ID: id, From: job.Status, To: next}
	}
	job.Status = next
	if apply != nil {
		apply(job)
	}
	return nil
}

func legalTransition(from, to Status) bool {
	switch from {
	case StatusGenerating:
		return to == StatusCompiling || to == StatusFailed
	case StatusCompiling:
		return to == StatusCompleted || to == StatusFailed
	default:
		// completed and failed are terminal
		return false
	}
}

// snapshot copies a job so callers never share the store's mutable state.
func (s *Store) snapshot(j *Job) *Job {
	c := *j
	return &c
}
