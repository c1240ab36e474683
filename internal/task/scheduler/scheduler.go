package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"confbot/internal/clock"
	logx "confbot/pkg/logx"
)

// Task is a deferred unit of work.
type Task func(ctx context.Context) error

// ErrStopped is logged when tasks are offered to a stopped scheduler.
var ErrStopped = errors.New("scheduler stopped")

type entry struct {
	id       uint64
	name     string
	at       time.Time
	cancel   context.CancelFunc
	shielded bool
}

// Scheduler holds the live set of delayed tasks.
type Scheduler struct {
	clock clock.Clock
	log   logx.Logger

	// Tasks run with runCtx, never with their own cancel context.
	runCtx  context.Context
	stopRun context.CancelFunc

	mu      sync.Mutex
	seq     uint64
	live    map[uint64]*entry
	stopped bool

	wg sync.WaitGroup
}

func New(clk clock.Clock, log logx.Logger) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	if clk == nil {
		clk = clock.New(time.Local)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		clock:   clk,
		log:     log,
		runCtx:  ctx,
		stopRun: cancel,
		live:    map[uint64]*entry{},
	}
}

// ScheduleTasksAt starts one goroutine per task that sleeps until at and then
// runs the task. If at is strictly before now, the tasks are dropped without
// running.
func (s *Scheduler) ScheduleTasksAt(at time.Time, tasks ...Task) {
	s.ScheduleNamedAt("task", at, tasks...)
}

// ScheduleNamedAt is ScheduleTasksAt with a name used in logs.
func (s *Scheduler) ScheduleNamedAt(name string, at time.Time, tasks ...Task) {
	if len(tasks) == 0 {
		return
	}
	now := s.clock.Now()
	if at.Before(now) {
		s.log.Debug("discarding tasks scheduled in the past",
			logx.String("task", name), logx.Time("at", at), logx.Time("now", now), logx.Int("count", len(tasks)))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.log.Warn("tasks not scheduled", logx.String("task", name), logx.Err(ErrStopped))
		return
	}
	for _, task := range tasks {
		if task == nil {
			continue
		}
		s.seq++
		ctx, cancel := context.WithCancel(s.runCtx)
		e := &entry{id: s.seq, name: name, at: at, cancel: cancel}
		s.live[e.id] = e
		s.wg.Add(1)
		go s.run(ctx, e, task)
	}
	s.log.Debug("tasks scheduled", logx.String("task", name), logx.Time("at", at), logx.Int("count", len(tasks)))
}

func (s *Scheduler) run(ctx context.Context, e *entry, task Task) {
	defer s.wg.Done()
	defer e.cancel()

	if err := s.clock.SleepUntil(ctx, e.at); err != nil {
		s.forget(e)
		return
	}

	// Shield: from here on CancelAll leaves the task alone.
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		s.forget(e)
		return
	}
	e.shielded = true
	s.mu.Unlock()

	defer s.forget(e)
	s.invoke(e, task)
}

func (s *Scheduler) invoke(e *entry, task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("task panicked",
				logx.String("task", e.name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	if err := task(s.runCtx); err != nil {
		s.log.Error("task failed", logx.String("task", e.name), logx.Err(fmt.Errorf("%s: %w", e.name, err)))
		return
	}
	s.log.Debug("task done", logx.String("task", e.name), logx.Duration("took", time.Since(start)))
}

func (s *Scheduler) forget(e *entry) {
	s.mu.Lock()
	if cur, ok := s.live[e.id]; ok && cur == e {
		delete(s.live, e.id)
	}
	s.mu.Unlock()
}

// CancelAll cancels every task that is still sleeping and removes it from the
// live set. Tasks that already started running finish normally.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	cancelled, running := 0, 0
	for id, e := range s.live {
		if e.shielded {
			running++
			continue
		}
		e.cancel()
		delete(s.live, id)
		cancelled++
	}
	s.mu.Unlock()
	s.log.Debug("tasks cancelled", logx.Int("cancelled", cancelled), logx.Int("running", running))
}

// Len reports the number of tasks that are sleeping or running.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Wait blocks until every task goroutine started so far has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stop cancels sleeping tasks, refuses new ones and waits for running tasks
// until ctx expires. On expiry the run context is cancelled as well.
func (s *Scheduler) Stop(ctx context.Context) error {
	start := time.Now()
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.CancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.stopRun()
		s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
		return nil
	case <-ctx.Done():
		s.stopRun()
		s.log.Warn("scheduler stop timed out", logx.Int("running", s.Len()), logx.Err(ctx.Err()))
		return ctx.Err()
	}
}
