package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a manually driven Clock. Sleepers wake when Set/Advance moves the
// fake time to or past their instant.
type Fake struct {
	mu       sync.Mutex
	now      time.Time
	sleepers map[*sleeper]struct{}
	changed  chan struct{}
}

type sleeper struct {
	at   time.Time
	wake chan struct{}
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now, sleepers: map[*sleeper]struct{}{}, changed: make(chan struct{})}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) SleepUntil(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if !at.After(f.now) {
		f.mu.Unlock()
		return nil
	}
	s := &sleeper{at: at, wake: make(chan struct{})}
	f.sleepers[s] = struct{}{}
	f.notifyLocked()
	f.mu.Unlock()

	select {
	case <-s.wake:
		return nil
	case <-ctx.Done():
		f.mu.Lock()
		delete(f.sleepers, s)
		f.notifyLocked()
		f.mu.Unlock()
		return ctx.Err()
	}
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.setLocked(f.now.Add(d))
	f.mu.Unlock()
}

// Set moves the fake time to t. Moving backwards wakes nobody.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.setLocked(t)
	f.mu.Unlock()
}

func (f *Fake) setLocked(t time.Time) {
	f.now = t
	for s := range f.sleepers {
		if !s.at.After(t) {
			close(s.wake)
			delete(f.sleepers, s)
		}
	}
	f.notifyLocked()
}

// Sleepers returns the number of goroutines currently blocked in SleepUntil.
func (f *Fake) Sleepers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sleepers)
}

// BlockUntilSleepers waits until at least n goroutines sleep on the clock or
// ctx expires.
func (f *Fake) BlockUntilSleepers(ctx context.Context, n int) error {
	for {
		f.mu.Lock()
		count := len(f.sleepers)
		ch := f.changed
		f.mu.Unlock()
		if count >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (f *Fake) notifyLocked() {
	close(f.changed)
	f.changed = make(chan struct{})
}
