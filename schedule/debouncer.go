// Package schedule provides cancellable, debounced background tasks.
package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	statePending int32 = iota
	stateRunning
	stateCancelled
)

// Task is one scheduled invocation. It either runs once or is cancelled,
// never both.
type Task struct {
	fn        func()
	timer     *time.Timer
	state     atomic.Int32
	cancelled chan struct{}
	done      chan struct{}
}

func newTask(fn func()) *Task {
	return &Task{fn: fn, cancelled: make(chan struct{}), done: make(chan struct{})}
}

// Cancel stops the task if it has not started. It reports whether the task
// was cancelled by this call.
func (t *Task) Cancel() bool {
	if !t.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	close(t.cancelled)
	return true
}

// Cancelled is closed when the task is cancelled before running.
func (t *Task) Cancelled() <-chan struct{} { return t.cancelled }

// Done is closed after the task has run.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) run() {
	if !t.state.CompareAndSwap(statePending, stateRunning) {
		return
	}
	defer close(t.done)
	t.fn()
}

// Debouncer keeps at most one pending task. Scheduling a new one cancels the
// previous task if it has not started yet.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending *Task
	last    *Task
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Delay() time.Duration { return d.delay }

// Schedule runs fn after the delay unless another Schedule, Stop or Flush
// comes first.
func (d *Debouncer) Schedule(fn func()) *Task {
	t := newTask(fn)

	d.mu.Lock()
	if d.pending != nil {
		d.pending.Cancel()
	}
	d.pending = t
	d.last = t
	t.timer = time.AfterFunc(d.delay, func() { d.fire(t) })
	d.mu.Unlock()
	return t
}

func (d *Debouncer) fire(t *Task) {
	d.mu.Lock()
	if d.pending == t {
		d.pending = nil
	}
	d.mu.Unlock()
	t.run()
}

// Flush runs the pending task now, on the calling goroutine, or waits for
// a task whose timer already fired. It reports whether it ran a task.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	t := d.last
	d.pending = nil
	d.mu.Unlock()
	if t == nil {
		return false
	}
	t.timer.Stop()
	// a fired timer may not have claimed the task yet
	if t.state.CompareAndSwap(statePending, stateRunning) {
		defer close(t.done)
		t.fn()
		return true
	}
	if t.state.Load() == stateRunning {
		<-t.done
	}
	return false
}

// Stop cancels the pending task, if any, and waits for a task whose timer
// already fired. Nothing scheduled before Stop runs after it returns. Must
// not be called from inside a task.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	t := d.last
	d.pending = nil
	d.mu.Unlock()
	if t == nil || t.Cancel() {
		return
	}
	if t.state.Load() == stateRunning {
		<-t.done
	}
}
