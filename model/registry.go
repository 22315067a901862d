package model

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// A Registry owns the mapping from job id to job state. It lives for the
// whole process; finished jobs are swept out after a retention window so the
// map does not grow forever. Transcript files are not removed by the sweep.
//
// WARNING: jobs WILL BE LOST after this program terminates -- there is no
// persistent history by design.
type Registry struct {
	logDir     string
	historyCap int
	retention  time.Duration

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry returns an empty registry. Transcript files for new jobs are
// created under logDir, named <job-id>.log.
func NewRegistry(logDir string, historyCap int, retention time.Duration) *Registry {
	return &Registry{
		logDir:     logDir,
		historyCap: historyCap,
		retention:  retention,
		jobs:       make(map[string]*Job),
	}
}

// Create generates a fresh job id, inserts a queued job and returns it.
func (r *Registry) Create(scriptRef string) *Job {
	id := uuid.NewString()
	job := NewJob(id, scriptRef, filepath.Join(r.logDir, id+".log"), r.historyCap)
	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()
	return job
}

// Get returns the job for an id, if it exists.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Len reports the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Sweep removes jobs that reached a terminal state before now minus the
// retention window, and returns how many were removed. With retention zero
// it removes nothing.
func (r *Registry) Sweep(now time.Time) int {
	if r.retention <= 0 {
		return 0
	}
	cutoff := now.Add(-r.retention)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, job := range r.jobs {
		if job.finishedBefore(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep on the given interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
