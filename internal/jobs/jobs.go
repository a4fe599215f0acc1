// Package jobs tracks background drill runs in memory so the operator
// tool can start a run, poll its progress, and abort it.
package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/456meh456/tu-nerr/internal/harvest"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// Job is one drill run. Report is populated when the run finishes.
type Job struct {
	ID     string          `json:"id"`
	Status Status          `json:"status"`
	Params harvest.Params  `json:"params"`
	Report *harvest.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`

	cancel context.CancelFunc
}

// Manager manages all jobs in-memory.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*Job)}
}

// Start launches a drill in the background and returns its job handle
// immediately. The run context is detached from the request that
// started it; Abort is the only way to stop it early.
func (m *Manager) Start(d *harvest.Driller, p harvest.Params) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Params: p,
		cancel: cancel,
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.mu.Unlock()

	go func() {
		defer cancel()
		m.Update(j.ID, func(j *Job) { j.Status = StatusRunning })

		rep, err := d.Run(ctx, p)

		m.Update(j.ID, func(j *Job) {
			j.Report = &rep
			if err != nil {
				j.Status = StatusError
				j.Error = err.Error()
				return
			}
			j.Status = StatusFinished
		})
	}()

	return j
}

// Update atomically updates a job, if it exists.
func (m *Manager) Update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

// Get returns a copy of a job by ID.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Abort cancels a running job. Unknown IDs are a no-op.
func (m *Manager) Abort(id string) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()

	if ok && job.cancel != nil {
		job.cancel()
	}
}
