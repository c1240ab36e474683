package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"confbot/internal/clock"
	logx "confbot/pkg/logx"
)

var t0 = time.Date(2023, 7, 19, 9, 0, 0, 0, time.UTC)

func waitSleepers(t *testing.T, clk *clock.Fake, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clk.BlockUntilSleepers(ctx, n); err != nil {
		t.Fatalf("waiting for %d sleepers: %v (have %d)", n, err, clk.Sleepers())
	}
}

func waitDone(t *testing.T, s *Scheduler) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not finish")
	}
}

func counter(n *atomic.Int32) Task {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestScheduleTasksAtPastInstantIsDiscarded(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	s.ScheduleTasksAt(t0.Add(-time.Second), counter(&n))

	if got := s.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
	waitDone(t, s)
	if got := n.Load(); got != 0 {
		t.Fatalf("task invoked %d times, want 0", got)
	}
}

func TestScheduleTasksAtNowRunsImmediately(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	s.ScheduleTasksAt(t0, counter(&n), counter(&n))
	waitDone(t, s)

	if got := n.Load(); got != 2 {
		t.Fatalf("task invoked %d times, want 2", got)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}
}

func TestScheduleTasksAtRunsWhenClockReachesInstant(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	s.ScheduleTasksAt(t0.Add(5*time.Minute), counter(&n))
	s.ScheduleTasksAt(t0.Add(10*time.Minute), counter(&n))
	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	waitSleepers(t, clk, 2)

	clk.Advance(5 * time.Minute)
	waitSleepers(t, clk, 1)
	deadline := time.Now().Add(2 * time.Second)
	for s.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := n.Load(); got != 1 {
		t.Fatalf("after 5m: invoked %d times, want 1", got)
	}

	clk.Advance(5 * time.Minute)
	waitDone(t, s)
	if got := n.Load(); got != 2 {
		t.Fatalf("after 10m: invoked %d times, want 2", got)
	}
}

func TestCancelAllBeforeWakeInvokesNothing(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	const tasks = 5
	for i := 0; i < tasks; i++ {
		s.ScheduleTasksAt(t0.Add(time.Minute), counter(&n))
	}
	if got := s.Len(); got != tasks {
		t.Fatalf("Len() = %d, want %d", got, tasks)
	}

	s.CancelAll()
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() after CancelAll = %d, want 0", got)
	}

	clk.Advance(time.Hour)
	waitDone(t, s)
	if got := n.Load(); got != 0 {
		t.Fatalf("cancelled tasks invoked %d times", got)
	}
}

func TestCancelAllDoesNotInterruptRunningTask(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var ctxErr atomic.Value

	s.ScheduleTasksAt(t0.Add(time.Minute), func(ctx context.Context) error {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return nil
	})
	waitSleepers(t, clk, 1)
	clk.Advance(time.Minute)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not start")
	}

	s.CancelAll()
	if got := s.Len(); got != 1 {
		t.Fatalf("Len() while running = %d, want 1", got)
	}
	close(release)
	waitDone(t, s)

	if got := calls.Load(); got != 1 {
		t.Fatalf("invoked %d times, want 1", got)
	}
	if v := ctxErr.Load(); v != nil {
		t.Fatalf("running task saw cancelled context: %v", v)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() after completion = %d, want 0", got)
	}
}

func TestTaskErrorsAndPanicsAreSwallowed(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	s.ScheduleTasksAt(t0,
		func(ctx context.Context) error { return errors.New("boom") },
		func(ctx context.Context) error { panic("kaboom") },
		counter(&n),
	)
	waitDone(t, s)

	if got := n.Load(); got != 1 {
		t.Fatalf("healthy sibling invoked %d times, want 1", got)
	}
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() = %d, want 0", got)
	}

	// Bookkeeping still works after failures.
	s.ScheduleTasksAt(t0, counter(&n))
	waitDone(t, s)
	if got := n.Load(); got != 2 {
		t.Fatalf("invoked %d times, want 2", got)
	}
}

func TestStopRefusesNewTasks(t *testing.T) {
	clk := clock.NewFake(t0)
	s := New(clk, logx.Nop())
	var n atomic.Int32

	s.ScheduleTasksAt(t0.Add(time.Minute), counter(&n))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	s.ScheduleTasksAt(t0, counter(&n))
	if got := s.Len(); got != 0 {
		t.Fatalf("Len() after Stop = %d, want 0", got)
	}
	waitDone(t, s)
	if got := n.Load(); got != 0 {
		t.Fatalf("invoked %d times after Stop, want 0", got)
	}
}
