// Package batch provides the Operation aggregate for long-running batch
// work: a status state machine, an incremental progress stream and a
// cooperative cancel signal. Batch entry points return an Operation
// immediately and complete it from a background runner.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the batch operation being run.
type Kind string

const (
	// KindExtract is video frame extraction.
	KindExtract Kind = "extract"
	// KindFilter is batch frame filtering.
	KindFilter Kind = "filter"
	// KindOCR is batch text recognition.
	KindOCR Kind = "ocr"
)

// Status represents the current state of an Operation.
type Status string

const (
	// StatusRunning indicates the operation is in progress.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the operation finished successfully.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the operation encountered a fatal error.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the operation was cancelled; partial
	// results already written remain valid.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Operation is a single background batch run. Progress updates are
// delivered through Progress(); the terminal 100 is emitted exactly once,
// by the successful completion transition, after which the stream closes.
type Operation struct {
	mu sync.RWMutex

	id       string
	kind     Kind
	status   Status
	progress int
	value    int
	err      error

	startedAt   time.Time
	completedAt time.Time

	progressCh chan int
	done       chan struct{}
	cancel     context.CancelFunc
}

// Start creates a running Operation and the context its runner must
// observe. Cancelling the operation cancels the returned context; workers
// already dispatched finish, no new work is submitted.
func Start(ctx context.Context, kind Kind) (*Operation, context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	op := &Operation{
		id:         uuid.NewString(),
		kind:       kind,
		status:     StatusRunning,
		startedAt:  time.Now(),
		progressCh: make(chan int, 16),
		done:       make(chan struct{}),
		cancel:     cancel,
	}
	return op, runCtx
}

// ID returns the operation identifier.
func (o *Operation) ID() string { return o.id }

// Kind returns the operation kind.
func (o *Operation) Kind() Kind { return o.kind }

// Status returns the current status (thread-safe).
func (o *Operation) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Progress returns the stream of progress percentages. The channel is
// closed when the operation reaches a terminal state.
func (o *Operation) Progress() <-chan int {
	return o.progressCh
}

// CurrentProgress returns the latest reported percentage.
func (o *Operation) CurrentProgress() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress
}

// ReportProgress publishes an intermediate percentage. Values are clamped
// to [0, 99] and must increase; the terminal 100 is reserved for Complete
// so that it is delivered exactly once, after the last item.
func (o *Operation) ReportProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.isTerminalLocked() || pct <= o.progress {
		return
	}
	o.progress = pct

	// Drop rather than block when the consumer lags; the terminal value
	// is delivered with priority in Complete.
	select {
	case o.progressCh <- pct:
	default:
	}
}

// Complete transitions the operation to COMPLETED, records the terminal
// value (e.g. frames kept or processed) and emits the final 100.
func (o *Operation) Complete(value int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	o.value = value
	o.progress = 100

	select {
	case o.progressCh <- 100:
	default:
		// Make room so the terminal value is never lost.
		select {
		case <-o.progressCh:
		default:
		}
		o.progressCh <- 100
	}
	o.closeLocked()
	return nil
}

// Fail transitions the operation to FAILED with the given error.
func (o *Operation) Fail(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if terr := o.transitionLocked(StatusFailed); terr != nil {
		return terr
	}
	o.err = err
	o.closeLocked()
	return nil
}

// Cancel requests cooperative cancellation. The runner observes the
// context from Start and acknowledges with MarkCancelled.
func (o *Operation) Cancel() {
	o.cancel()
}

// MarkCancelled transitions the operation to CANCELLED. Called by the
// runner once in-flight workers have drained.
func (o *Operation) MarkCancelled() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.transitionLocked(StatusCancelled); err != nil {
		return err
	}
	o.err = context.Canceled
	o.closeLocked()
	return nil
}

// Err returns the terminal error, if any.
func (o *Operation) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// Value returns the terminal result count.
func (o *Operation) Value() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

// Done returns a channel closed when the operation reaches a terminal state.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation terminates or ctx expires, returning
// the operation's terminal error.
func (o *Operation) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsTerminal returns true if the operation is in a terminal state.
func (o *Operation) IsTerminal() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.isTerminalLocked()
}

// StartedAt returns when the operation started.
func (o *Operation) StartedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.startedAt
}

// CompletedAt returns when the operation terminated.
func (o *Operation) CompletedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.completedAt
}

func (o *Operation) isTerminalLocked() bool {
	return o.status == StatusCompleted ||
		o.status == StatusFailed ||
		o.status == StatusCancelled
}

func (o *Operation) transitionLocked(to Status) error {
	if !canTransition(o.status, to) {
		return ErrInvalidTransition
	}
	o.status = to
	o.completedAt = time.Now()
	return nil
}

func (o *Operation) closeLocked() {
	o.cancel()
	close(o.progressCh)
	close(o.done)
}
