package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"confbot/internal/apiclient"
	"confbot/internal/clock"
	"confbot/internal/config"
	"confbot/internal/eventbus"
	"confbot/internal/notifier"
	"confbot/internal/runtime/supervisor"
	"confbot/internal/sessioninfo"
	"confbot/internal/storage"
	"confbot/internal/task/scheduler"
	logx "confbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	clk      clock.Clock
	sched    *scheduler.Scheduler
	api      *apiclient.Client
	sessions *sessioninfo.Service
	notif    *notifier.Notifier
	poller   *notifier.Poller
}

// New loads the config and builds every component. Nothing runs until Start.
func New(cfgPath, envFile string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath, config.WithEnvFile(envFile))
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	comps, err := mapComponents(cfg)
	if err != nil {
		return nil, err
	}

	// The webhook log sink needs the delivery client, which needs a logger.
	// Start without a sender and install it once the client exists.
	logSvc, log := logx.New(mapLogConfig(cfg), nil)
	appLog := log.With(logx.String("comp", "app"))

	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	} else if enabled {
		store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		appLog.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	p := comps.programme
	clk := clock.New(p.Location, clock.WithSimulatedStart(p.SimulatedStart), clock.WithSpeed(p.Speed))
	if !p.SimulatedStart.IsZero() || p.Speed != 1 {
		appLog.Warn("clock is warped",
			logx.Time("simulated_now", clk.Now()),
			logx.Any("speed", p.Speed),
		)
	}

	api, err := apiclient.New(comps.api, apiclient.WithLogger(log.With(logx.String("comp", "apiclient"))))
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		_ = logSvc.Close()
		return nil, err
	}
	logSvc.SetSender(api)

	bus := eventbus.New()
	sched := scheduler.New(clk, log.With(logx.String("comp", "scheduler")))
	sessions := sessioninfo.New(api, comps.sessions, log.With(logx.String("comp", "sessioninfo")))

	nopts := []notifier.Option{
		notifier.WithLogger(log.With(logx.String("comp", "notifier"))),
		notifier.WithBus(bus),
		notifier.WithClock(clk),
	}
	if store != nil {
		nopts = append(nopts, notifier.WithStore(store))
	}
	notif := notifier.New(api, sched, sessions, comps.notifier, nopts...)
	poller := notifier.NewPoller(notif, p.PollInterval, p.Location, log.With(logx.String("comp", "poller")))

	return &App{
		cfgm:     cfgm,
		log:      appLog,
		logs:     logSvc,
		bus:      bus,
		store:    store,
		clk:      clk,
		sched:    sched,
		api:      api,
		sessions: sessions,
		notif:    notif,
		poller:   poller,
	}, nil
}

// Done is closed when the app context is cancelled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if _, err := mapComponents(cfg); err != nil {
			return err
		}
		_, _, err := mapStorageConfig(cfg)
		return err
	})

	if err := a.poller.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.GoRestart("config.watch", a.cfgm.Watch, supervisor.WithRestartBackoff(time.Second, 30*time.Second))

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if e.Type == eventbus.TypeNotifyFailed {
					a.log.Info("event", eventFields(e)...)
					continue
				}
				a.log.Debug("event", eventFields(e)...)
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				// Coalesce bursts; only the latest config matters.
			drain:
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						break drain
					}
				}
				a.reload(c, lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.log.Info("app started",
		logx.Time("now", a.clk.Now()),
		logx.Int("rooms", len(a.cfgm.Get().Programme.Rooms)),
		logx.Int("channels", len(a.cfgm.Get().Programme.NotificationChannels)),
	)
	return nil
}

// reload pushes a validated config into every component and forces a
// reschedule so new lead times and channels take effect immediately.
func (a *App) reload(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	comps, err := mapComponents(newCfg)
	if err != nil {
		a.log.Warn("config reload skipped", logx.Err(err))
		return
	}

	a.logs.Apply(mapLogConfig(newCfg))
	if err := a.api.Apply(comps.api); err != nil {
		a.log.Warn("api client config rejected; keeping previous", logx.Err(err))
	}
	a.sessions.Apply(comps.sessions)
	a.notif.Apply(comps.notifier)
	a.poller.SetInterval(comps.programme.PollInterval)

	if oldCfg != nil {
		op, np := oldCfg.Programme, newCfg.Programme
		if op.SimulatedStart != np.SimulatedStart || op.Speed != np.Speed {
			a.log.Warn("clock settings change requires restart")
		}
		if !sameStorage(oldCfg.Storage, newCfg.Storage) {
			a.log.Warn("storage settings change requires restart")
		}
	}

	if err := a.poller.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("reschedule after reload failed", logx.Err(err))
	}
}

func sameStorage(a, b *config.StorageConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Stop shuts components down in reverse dependency order: the poller first
// so no new cycle starts, then pending notifications, then sinks.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("app stopping", logx.String("reason", string(reason)))
	var errs []error

	if err := a.poller.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if err := a.sched.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Warn("app stopped with errors", logx.Err(err))
	} else {
		a.log.Info("app stopped")
	}
	_ = a.logs.Close()
	return err
}
