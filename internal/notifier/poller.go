package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logx "confbot/pkg/logx"

	"github.com/robfig/cron/v3"
)

// Cycler runs one scheduling cycle. *Notifier implements it.
type Cycler interface {
	ScheduleNotifications(ctx context.Context, force bool) error
}

// Poller runs a cycle immediately on Start and then every interval.
// Overlapping ticks are skipped.
type Poller struct {
	n   Cycler
	log logx.Logger

	mu       sync.Mutex
	interval time.Duration
	loc      *time.Location
	c        *cron.Cron
	runCtx   context.Context
	stop     context.CancelFunc
	// first tracks the immediate cycle, which cron does not own.
	first sync.WaitGroup
}

func NewPoller(n Cycler, interval time.Duration, loc *time.Location, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Poller{n: n, log: log, interval: interval, loc: loc}
}

// Start begins polling. It returns an error if already started or the
// interval is not positive.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return errors.New("poller already started")
	}
	if p.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", p.interval)
	}
	p.runCtx, p.stop = context.WithCancel(ctx)
	p.startLocked(true)
	return nil
}

func (p *Poller) startLocked(runNow bool) {
	cl := cronLogger{log: p.log}
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(p.tick))

	p.c = cron.New(cron.WithLocation(p.loc), cron.WithLogger(cl))
	p.c.Schedule(cron.Every(p.interval), job)
	p.c.Start()
	p.log.Info("poller started", logx.Duration("interval", p.interval))
	if runNow {
		p.first.Add(1)
		go func() {
			defer p.first.Done()
			job.Run()
		}()
	}
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx := p.runCtx
	p.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if err := p.n.ScheduleNotifications(ctx, false); err != nil {
		p.log.Warn("scheduling cycle failed", logx.Err(err))
	}
}

// Refresh runs a forced cycle now, outside the timer.
func (p *Poller) Refresh(ctx context.Context) error {
	return p.n.ScheduleNotifications(ctx, true)
}

// SetInterval restarts the timer if d differs from the current interval.
func (p *Poller) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d <= 0 || d == p.interval {
		return
	}
	p.interval = d
	if p.c == nil {
		return
	}
	// A cycle still running under the old timer finishes on its own.
	p.c.Stop()
	p.startLocked(false)
}

// Stop halts the timer and waits for a running cycle until ctx expires.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	c, stop := p.c, p.stop
	p.c = nil
	p.mu.Unlock()
	if c == nil {
		return nil
	}
	cronDone := c.Stop()
	if stop != nil {
		stop()
	}
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		p.first.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...any) {
	l.log.Debug("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...any) {
	l.log.Error("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
