// Package clock abstracts "now" and "sleep until" so that schedulers can be
// driven by simulated time in tests and rehearsals.
package clock

import (
	"context"
	"time"
)

// Clock reports the current instant and sleeps until a future one.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until at (or returns immediately if at is not in the
	// future). It returns ctx.Err() if ctx is cancelled first.
	SleepUntil(ctx context.Context, at time.Time) error
}

// System is a wall clock, optionally shifted and/or sped up.
//
// With a simulated start, process start maps to that instant; with a speed
// factor, every real second advances the clock by speed seconds. Both exist to
// rehearse a conference day outside of the conference.
type System struct {
	loc   *time.Location
	real0 time.Time
	sim0  time.Time
	speed float64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*System)

// WithSimulatedStart makes the clock report start at construction time.
func WithSimulatedStart(start time.Time) Option {
	return func(s *System) {
		if start.IsZero() {
			return
		}
		s.sim0 = start
	}
}

// WithSpeed multiplies the passage of time. Values <= 0 are ignored.
func WithSpeed(speed float64) Option {
	return func(s *System) {
		if speed <= 0 || speed == 1 {
			return
		}
		s.speed = speed
	}
}

// withSource replaces the real time source and sleeper (tests).
func withSource(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *System) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// New returns a system clock reporting instants in loc (UTC if nil).
func New(loc *time.Location, opts ...Option) *System {
	if loc == nil {
		loc = time.UTC
	}
	s := &System{loc: loc, speed: 1, now: time.Now, sleep: sleepContext}
	for _, o := range opts {
		o(s)
	}
	s.real0 = s.now()
	if s.sim0.IsZero() {
		s.sim0 = s.real0
	}
	return s
}

// Now is derived from the monotonic time elapsed since construction, so a
// wall-clock step (NTP) never moves it backwards.
func (s *System) Now() time.Time {
	elapsed := s.now().Sub(s.real0)
	if s.speed != 1 {
		elapsed = time.Duration(float64(elapsed) * s.speed)
	}
	return s.sim0.Add(elapsed).In(s.loc)
}

func (s *System) Location() *time.Location { return s.loc }

func (s *System) SleepUntil(ctx context.Context, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := at.Sub(s.Now())
	if d <= 0 {
		return nil
	}
	if s.speed != 1 {
		d = time.Duration(float64(d) / s.speed)
	}
	return s.sleep(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
