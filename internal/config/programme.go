package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Programme is ProgrammeConfig with every field parsed and defaulted.
type Programme struct {
	Location          *time.Location
	ConferenceName    string
	ConferenceWebsite string
	FirstDay          time.Time
	LastDay           time.Time

	ScheduleURL       string
	SessionAPIURL     string
	SessionWebsiteURL string
	ScheduleCachePath string

	PollInterval      time.Duration
	FetchTimeout      time.Duration
	ProgrammeLeadTime time.Duration
	RoomLeadTime      time.Duration

	DeliveryRatePerSec int
	SlidoURL           string

	SimulatedStart time.Time
	Speed          float64

	NotificationChannels []NotificationChannel
	Rooms                map[string]RoomConfig
}

// Resolve validates the programme section and fills in defaults.
func (c ProgrammeConfig) Resolve() (Programme, error) {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Programme{}, fmt.Errorf("programme.timezone: %w", err)
	}

	p := Programme{
		Location:             loc,
		ConferenceName:       strings.TrimSpace(c.ConferenceName),
		ConferenceWebsite:    strings.TrimSpace(c.ConferenceWebsite),
		ScheduleURL:          strings.TrimSpace(c.ScheduleURL),
		SessionAPIURL:        strings.TrimSpace(c.SessionAPIURL),
		SessionWebsiteURL:    strings.TrimSpace(c.SessionWebsiteURL),
		ScheduleCachePath:    strings.TrimSpace(c.ScheduleCachePath),
		DeliveryRatePerSec:   c.DeliveryRatePerSec,
		SlidoURL:             strings.TrimSpace(c.SlidoURL),
		Speed:                c.Speed,
		NotificationChannels: c.NotificationChannels,
		Rooms:                c.Rooms,
	}

	p.FirstDay, err = ParseDateField("programme.conference_days_first", c.ConferenceDaysFirst, loc)
	add(err)
	p.LastDay, err = ParseDateField("programme.conference_days_last", c.ConferenceDaysLast, loc)
	add(err)
	if err == nil && !p.FirstDay.IsZero() && p.LastDay.Before(p.FirstDay) {
		add(errors.New("programme.conference_days_last: before conference_days_first"))
	}

	p.PollInterval, err = ParseDurationOrDefault("programme.poll_interval", c.PollInterval, 2*time.Minute)
	add(err)
	p.FetchTimeout, err = ParseDurationOrDefault("programme.fetch_timeout", c.FetchTimeout, 10*time.Second)
	add(err)
	p.ProgrammeLeadTime, err = ParseDurationOrDefault("programme.programme_lead_time", c.ProgrammeLeadTime, 5*time.Minute)
	add(err)
	p.RoomLeadTime, err = ParseDurationOrDefault("programme.room_lead_time", c.RoomLeadTime, 2*time.Minute)
	add(err)

	if p.ScheduleURL == "" {
		add(errors.New("programme.schedule_url: required"))
	}
	if !strings.Contains(p.SessionAPIURL, "{code}") {
		add(errors.New(`programme.session_api_url: must contain "{code}"`))
	}
	if p.ScheduleCachePath == "" {
		add(errors.New("programme.schedule_cache_path: required"))
	}
	if p.DeliveryRatePerSec <= 0 {
		p.DeliveryRatePerSec = 2
	}
	if p.Speed < 0 {
		add(errors.New("programme.speed: must be >= 0"))
	}
	if p.Speed == 0 {
		p.Speed = 1
	}
	if s := strings.TrimSpace(c.SimulatedStart); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			add(fmt.Errorf("programme.simulated_start: %w", err))
		} else {
			p.SimulatedStart = t.In(loc)
		}
	}

	for i, ch := range c.NotificationChannels {
		if strings.TrimSpace(ch.Webhook) == "" {
			add(fmt.Errorf("programme.notification_channels[%d].webhook: required", i))
		}
	}
	for id, room := range c.Rooms {
		if _, err := strconv.Atoi(id); err != nil {
			add(fmt.Errorf("programme.rooms[%s]: room id must be an integer", id))
		}
		if strings.TrimSpace(room.Webhook) == "" {
			add(fmt.Errorf("programme.rooms[%s].webhook: required", id))
		}
		for day := range room.Livestreams {
			if _, err := time.Parse(dateLayout, day); err != nil {
				add(fmt.Errorf("programme.rooms[%s].livestreams: invalid date %q", id, day))
			}
		}
	}

	if len(errs) > 0 {
		return Programme{}, errors.Join(errs...)
	}
	return p, nil
}

// Validate checks the whole config, including that every webhook name
// referenced by the programme section resolves to a secret.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	p, err := cfg.Programme.Resolve()
	if err != nil {
		return err
	}
	var errs []error
	check := func(path, name string) {
		if _, ok := cfg.Webhook(name); !ok {
			errs = append(errs, fmt.Errorf("%s: webhook %q has no WEBHOOK_%s environment variable", path, name, strings.ToUpper(name)))
		}
	}
	for i, ch := range p.NotificationChannels {
		check(fmt.Sprintf("programme.notification_channels[%d]", i), ch.Webhook)
	}
	for id, room := range p.Rooms {
		check(fmt.Sprintf("programme.rooms[%s]", id), room.Webhook)
	}
	if cfg.Logging.Webhook.Enabled {
		check("logging.webhook", cfg.Logging.Webhook.Webhook)
	}
	if cfg.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Webhook resolves a logical webhook name (case-insensitive).
func (c *Config) Webhook(name string) (string, bool) {
	if c == nil {
		return "", false
	}
	u, ok := c.Webhooks[normalizeWebhookName(name)]
	return u, ok && u != ""
}
