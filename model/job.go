// Package model provides the job state record and the registry that owns it.
package model

import (
	"sync"
	"time"
)

// Job status values. A job moves queued -> running -> finished|error, with a
// shortcut straight to error when the script cannot be launched at all.
const (
	StatusQueued   = "queued"
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusError    = "error"
)

// StepStarting is the placeholder step set when the process is spawned. It is
// treated the same as an empty step when a successful run is finalized.
const StepStarting = "starting"

// A Job tracks one run of one process, from request to terminal state.
//
// Exactly one runner goroutine writes a job; any number of viewer goroutines
// read it. Every compound mutation (append a line and evict overflow, read a
// full snapshot) happens under the job's own mutex.
type Job struct {
	ID        string
	ScriptRef string
	LogPath   string

	mu         sync.Mutex
	percent    int
	status     string
	step       string
	done       bool
	returnCode *int
	history    []string
	historyCap int
	doneAt     time.Time
}

// NewJob returns a queued job with empty history.
func NewJob(id, scriptRef, logPath string, historyCap int) *Job {
	return &Job{
		ID:         id,
		ScriptRef:  scriptRef,
		LogPath:    logPath,
		status:     StatusQueued,
		historyCap: historyCap,
	}
}

// A Snapshot is a consistent point-in-time copy of a job's mutable fields.
type Snapshot struct {
	ID         string `json:"job_id"`
	Script     string `json:"script"`
	Percent    int    `json:"percent"`
	Status     string `json:"status"`
	Step       string `json:"step"`
	Done       bool   `json:"done"`
	ReturnCode *int   `json:"rc"`
	LogFile    string `json:"log_file"`
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	var rc *int
	if j.returnCode != nil {
		v := *j.returnCode
		rc = &v
	}
	return Snapshot{
		ID:         j.ID,
		Script:     j.ScriptRef,
		Percent:    j.percent,
		Status:     j.status,
		Step:       j.step,
		Done:       j.done,
		ReturnCode: rc,
		LogFile:    j.LogPath,
	}
}

// MarkRunning records that the process is about to be spawned.
func (j *Job) MarkRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
	j.step = StepStarting
}

// AppendLine adds one output line to the history, evicting from the front
// once the cap is exceeded. The transcript file is written by the runner
// before this is called, so the file is always a superset of the history.
func (j *Job) AppendLine(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history = append(j.history, line)
	for len(j.history) > j.historyCap {
		j.history = j.history[1:]
	}
}

// SetProgress clamps percent into [0,100] and stores it. A non-empty step
// replaces the current one; an empty step leaves it alone, so a bare
// "PROGRESS 40" does not clobber the phase text from an earlier marker.
func (j *Job) SetProgress(percent int, step string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.percent = percent
	if step != "" {
		j.step = step
	}
}

// Finish records the process exit. A zero return code forces the job to
// 100%/"done" even if the script never emitted a marker; a nonzero one
// leaves percent and step at their last observed values.
func (j *Job) Finish(returnCode int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.returnCode = &returnCode
	j.done = true
	j.doneAt = time.Now()
	if returnCode == 0 {
		j.status = StatusFinished
		j.percent = 100
		if j.step == "" || j.step == StepStarting {
			j.step = "done"
		}
	} else {
		j.status = StatusError
	}
}

// FailBeforeStart marks a job that never got a process, e.g. because the
// script type could not be resolved to an interpreter.
func (j *Job) FailBeforeStart(returnCode int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rc := returnCode
	j.returnCode = &rc
	j.done = true
	j.doneAt = time.Now()
	j.status = StatusError
}

// LinesSince returns a copy of the history from cursor to the end, plus the
// new cursor position. A viewer that polls slower than the producer writes
// can permanently miss lines older than the history cap; the transcript file
// is the unbounded record.
func (j *Job) LinesSince(cursor int) ([]string, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if cursor >= len(j.history) {
		return nil, len(j.history)
	}
	if cursor < 0 {
		cursor = 0
	}
	out := make([]string, len(j.history)-cursor)
	copy(out, j.history[cursor:])
	return out, len(j.history)
}

// HistoryLen reports the current number of buffered lines.
func (j *Job) HistoryLen() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.history)
}

// finishedBefore reports whether the job reached a terminal state before the
// given cutoff. Jobs still running never match.
func (j *Job) finishedBefore(cutoff time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done && j.doneAt.Before(cutoff)
}
