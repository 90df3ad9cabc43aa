package core

import (
	"context"
	"sync/atomic"

	"github.com/IvanShishkin/sigscan/internal/signatures"
	"github.com/IvanShishkin/sigscan/pkg/models"
)

// State is the lifecycle position of a scan job
type State int32

const (
	StateIdle State = iota
	StateEnumerating
	StateScanning
	StateCancelling
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateScanning:
		return "scanning"
	case StateCancelling:
		return "cancelling"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Job is one running scan. Its event stream must be drained by the caller;
// the channel is closed after the completed event.
type Job struct {
	id     string
	target models.ScanTarget
	set    signatures.Set

	events    chan models.Event
	state     atomic.Int32
	cancelled atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
	results   *models.ScanResults
}

// ID returns the scan identifier
func (j *Job) ID() string {
	return j.id
}

// Target returns the resolved scan target
func (j *Job) Target() models.ScanTarget {
	return j.target
}

// Events returns the scan result stream
func (j *Job) Events() <-chan models.Event {
	return j.events
}

// State returns the current lifecycle state
func (j *Job) State() State {
	return State(j.state.Load())
}

// Cancel requests cooperative cancellation. Files already being hashed
// finish and are reported; no new file is started. Safe to call more than
// once and after completion.
func (j *Job) Cancel() {
	if !j.markCancelling() {
		return
	}
	j.cancelled.Store(true)
	j.cancel()
}

// Wait blocks until the job has completed and returns its results
func (j *Job) Wait() *models.ScanResults {
	<-j.done
	return j.results
}

// advance moves to the next state unless cancellation or completion won
func (j *Job) advance(to State) {
	for {
		cur := State(j.state.Load())
		if cur == StateCancelling || cur == StateCompleted {
			return
		}
		if j.state.CompareAndSwap(int32(cur), int32(to)) {
			return
		}
	}
}

func (j *Job) markCancelling() bool {
	for {
		cur := State(j.state.Load())
		if cur == StateCompleted {
			return false
		}
		if cur == StateCancelling {
			return true
		}
		if j.state.CompareAndSwap(int32(cur), int32(StateCancelling)) {
			return true
		}
	}
}

// stopping is checked before each file's hashing starts
func (j *Job) stopping(ctx context.Context) bool {
	if j.cancelled.Load() {
		return true
	}
	if ctx.Err() != nil {
		j.markCancelling()
		j.cancelled.Store(true)
		return true
	}
	return false
}

func (j *Job) emit(ev models.Event) {
	j.events <- ev
}
