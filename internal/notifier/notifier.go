package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"confbot/internal/clock"
	"confbot/internal/eventbus"
	"confbot/internal/programme"
	"confbot/internal/storage"
	"confbot/internal/task/scheduler"
	logx "confbot/pkg/logx"
)

type Option func(*Notifier)

func WithLogger(log logx.Logger) Option { return func(n *Notifier) { n.log = log } }

// WithBus publishes lifecycle events on bus.
func WithBus(bus eventbus.Bus) Option {
	return func(n *Notifier) {
		if bus != nil {
			n.bus = bus
		}
	}
}

// WithClock stamps audit records with clk instead of the wall clock, so a
// warped rehearsal records the instants tasks fired at.
func WithClock(clk clock.Clock) Option {
	return func(n *Notifier) {
		if clk != nil {
			n.now = clk.Now
		}
	}
}

// WithStore records fetches and deliveries in st. A nil store is ignored.
func WithStore(st storage.Store) Option { return func(n *Notifier) { n.store = st } }

type Notifier struct {
	api      APIClient
	sched    Scheduler
	sessions SessionSource

	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store
	now   func() time.Time

	// cycleMu serializes ScheduleNotifications.
	cycleMu sync.Mutex

	mu       sync.RWMutex
	cfg      Config
	prevHash string
}

func New(api APIClient, sched Scheduler, sessions SessionSource, cfg Config, opts ...Option) *Notifier {
	n := &Notifier{
		api:      api,
		sched:    sched,
		sessions: sessions,
		bus:      eventbus.Nop(),
		now:      time.Now,
		cfg:      normalize(cfg),
	}
	for _, o := range opts {
		o(n)
	}
	if n.log.IsZero() {
		n.log = logx.Nop()
	}
	return n
}

func normalize(cfg Config) Config {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return cfg
}

// Apply swaps lead times, channels and rooms. Already scheduled tasks keep
// their fire instants; a forced cycle re-derives them.
func (n *Notifier) Apply(cfg Config) {
	n.mu.Lock()
	n.cfg = normalize(cfg)
	n.mu.Unlock()
}

func (n *Notifier) config() Config {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cfg
}

// Len is the number of pending or running notification tasks.
func (n *Notifier) Len() int { return n.sched.Len() }

// PreviousHash is the fingerprint of the schedule the current tasks were
// derived from, or "" before the first successful cycle.
func (n *Notifier) PreviousHash() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.prevHash
}

// ScheduleNotifications runs one cycle. A failed fetch leaves the current
// tasks and fingerprint untouched and is returned.
func (n *Notifier) ScheduleNotifications(ctx context.Context, force bool) error {
	n.cycleMu.Lock()
	defer n.cycleMu.Unlock()

	res, err := n.api.FetchSchedule(ctx)
	if err != nil {
		return fmt.Errorf("fetch schedule: %w", err)
	}

	prev := n.PreviousHash()
	hash := res.Schedule.Hash
	reschedule, reason := decide(prev, res, force)
	n.bus.Publish(eventbus.Event{Type: eventbus.TypeScheduleFetched, Data: eventbus.ScheduleFetched{
		Hash:      hash,
		FromCache: res.FromCache,
		Sessions:  len(res.Schedule.Sessions),
		Changed:   reschedule,
	}})

	if !reschedule {
		n.log.Info("not rescheduling notifications",
			logx.String("reason", reason),
			logx.Bool("from_cache", res.FromCache),
			logx.String("hash", short(hash)),
		)
		n.recordFetch(ctx, storage.FetchRecord{Hash: hash, FromCache: res.FromCache, Sessions: len(res.Schedule.Sessions)})
		return nil
	}

	groups, tasks := n.reschedule(res.Schedule)

	n.mu.Lock()
	n.prevHash = hash
	n.mu.Unlock()

	n.log.Info("scheduled notifications",
		logx.String("reason", reason),
		logx.String("hash", short(hash)),
		logx.String("previous", short(prev)),
		logx.Int("groups", groups),
		logx.Int("tasks", tasks),
		logx.Int("pending", n.sched.Len()),
	)
	n.bus.Publish(eventbus.Event{Type: eventbus.TypeNotificationsScheduled, Data: eventbus.NotificationsScheduled{
		Hash: hash, Groups: groups, Tasks: tasks, Forced: force,
	}})
	n.recordFetch(ctx, storage.FetchRecord{
		Hash: hash, FromCache: res.FromCache, Sessions: len(res.Schedule.Sessions),
		Rescheduled: true, Forced: force, Tasks: tasks,
	})
	return nil
}

// decide reports whether a fetched schedule replaces the current tasks.
func decide(prev string, res programme.FetchResult, force bool) (bool, string) {
	switch {
	case prev == "":
		return true, "first schedule"
	case res.FromCache:
		return false, "cached schedule while notifications are in place"
	case res.Schedule.Hash != prev:
		return true, "schedule changed"
	case force:
		return true, "forced"
	default:
		return false, "schedule unchanged"
	}
}

// reschedule replaces every pending task with tasks derived from sched.
// It returns the number of groups and of tasks handed to the scheduler.
func (n *Notifier) reschedule(sched programme.Schedule) (int, int) {
	cfg := n.config()

	n.sched.CancelAll()

	sessions := sched.Sessions
	if !cfg.FirstDay.IsZero() && !cfg.LastDay.IsZero() {
		sessions = programme.FilterConferenceDays(sessions, cfg.FirstDay, cfg.LastDay, cfg.Location)
	}
	sessions = programme.WithCode(sessions)
	n.sessions.Refresh(sessions)

	groups := programme.GroupByMinute(sessions)
	tasks := 0
	for _, g := range groups {
		codes := g.Codes()
		n.sched.ScheduleTasksAt(g.Start.Add(-cfg.ProgrammeLeadTime), n.programmeTask(codes, cfg.ProgrammeLeadTime))
		roomTasks := make([]scheduler.Task, 0, len(codes))
		for _, code := range codes {
			roomTasks = append(roomTasks, n.roomTask(code))
		}
		n.sched.ScheduleTasksAt(g.Start.Add(-cfg.RoomLeadTime), roomTasks...)
		tasks += 1 + len(codes)
	}
	return len(groups), tasks
}

func short(hash string) string {
	return hash[:min(12, len(hash))]
}
