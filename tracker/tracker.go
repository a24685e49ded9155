package tracker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/runbox/judge"
	"github.com/isdmx/runbox/sandbox"
)

// ErrDuplicate is returned by Track when the submission id is already tracked
var ErrDuplicate = errors.New("submission is already tracked")

// TimeoutFunc is invoked when a job's timeout fires before its callback
// arrives. It runs only if the timeout path won the remove-if-present race.
type TimeoutFunc func(id string, sub judge.Submission, handle sandbox.Handle)

// Job is the live tracking record for one submission. It exists from
// admission until exactly one terminal event removes it.
type Job struct {
	Submission judge.Submission
	Container  sandbox.Handle
	CreatedAt  time.Time
}

type entry struct {
	job   Job
	timer *time.Timer
}

// Tracker owns the submission-id to Job map and the per-job timeout timers.
type Tracker struct {
	logger  *zap.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]*entry
}

// New creates a Tracker whose jobs time out after the given duration.
func New(logger *zap.Logger, timeout time.Duration) *Tracker {
	return &Tracker{
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*entry),
	}
}

// Track inserts a job atomically and arms its timeout timer. If the id is
// already tracked nothing is inserted and ErrDuplicate is returned. The
// timer covers the container-running window only; provisioning has its own
// bounded wait and is expected to have finished before Track is called.
func (t *Tracker) Track(id string, sub judge.Submission, handle sandbox.Handle, onTimeout TimeoutFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.jobs[id]; exists {
		return ErrDuplicate
	}

	e := &entry{
		job: Job{
			Submission: sub,
			Container:  handle,
			CreatedAt:  time.Now(),
		},
	}
	e.timer = time.AfterFunc(t.timeout, func() {
		// Race against Complete on the same remove-if-present primitive.
		// Only the winner owns the terminal transition.
		if !t.remove(id) {
			return
		}
		t.logger.Warn("job timed out awaiting callback",
			zap.String("submission_id", id),
			zap.String("container_id", handle.ContainerID))
		if onTimeout != nil {
			onTimeout(id, sub, handle)
		}
	})
	t.jobs[id] = e

	return nil
}

// Complete removes the job if it is still present and reports whether this
// caller won the terminal transition. A second call for the same id is a
// safe no-op returning false.
func (t *Tracker) Complete(id string) bool {
	return t.remove(id)
}

// remove is the atomic remove-if-present primitive shared by the completion
// and timeout paths.
func (t *Tracker) remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.jobs[id]
	if !exists {
		return false
	}

	delete(t.jobs, id)
	if e.timer != nil {
		e.timer.Stop()
	}
	return true
}

// IsTracked reports whether the submission id currently has a live job.
func (t *Tracker) IsTracked(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.jobs[id]
	return exists
}

// Get returns a copy of the tracked job for the id, if present.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, exists := t.jobs[id]
	if !exists {
		return Job{}, false
	}
	return e.job, true
}

// Count returns the number of tracked jobs, used for admission control.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Stop disarms every pending timer and clears the table. Used on shutdown;
// no timeout callbacks fire after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, e := range t.jobs {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.jobs, id)
	}
}
