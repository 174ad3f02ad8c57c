package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsOnlyLast(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	var tasks []*Task
	for i := 1; i <= 3; i++ {
		n := int32(i)
		tasks = append(tasks, d.Schedule(func() {
			calls.Add(1)
			last.Store(n)
		}))
	}

	select {
	case <-tasks[2].Done():
	case <-time.After(time.Second):
		t.Fatalf("last task never ran")
	}
	for _, task := range tasks[:2] {
		select {
		case <-task.Cancelled():
		default:
			t.Fatalf("superseded task was not cancelled")
		}
	}
	if calls.Load() != 1 || last.Load() != 3 {
		t.Fatalf("want one call with 3, got %d calls, last %d", calls.Load(), last.Load())
	}
}

func TestDebouncerFlushRunsPendingNow(t *testing.T) {
	d := NewDebouncer(time.Hour)
	ran := false
	task := d.Schedule(func() { ran = true })
	if !d.Flush() {
		t.Fatalf("want flush to run the pending task")
	}
	if !ran {
		t.Fatalf("task did not run")
	}
	select {
	case <-task.Done():
	default:
		t.Fatalf("done not closed")
	}
	if d.Flush() {
		t.Fatalf("second flush must be a no-op")
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	task := d.Schedule(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("stopped task ran")
	}
	if task.Cancel() {
		t.Fatalf("task already cancelled")
	}
}

func TestDebouncerStopWaitsForRunningTask(t *testing.T) {
	d := NewDebouncer(time.Millisecond)
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	d.Schedule(func() {
		close(started)
		<-release
		finished.Store(true)
	})

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("task never started")
	}

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatalf("stop returned while the task was still running")
	case <-time.After(30 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("stop never returned")
	}
	if !finished.Load() {
		t.Fatalf("want task finished before stop returned")
	}
}
