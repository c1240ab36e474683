package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
logging:
  level: debug
  console: true
programme:
  timezone: Europe/Prague
  conference_name: EuroPython
  conference_website: https://ep2023.europython.eu
  conference_days_first: "2023-07-19"
  conference_days_last: "2023-07-21"
  schedule_url: https://pretalx.example/ep2023/schedule/export/schedule.json
  session_api_url: https://ep.example/api/session/{code}
  session_website_url: https://ep.example/session/{slug}
  schedule_cache_path: /var/cache/confbot/schedule.json
  room_lead_time: 3m
  notification_channels:
    - webhook: programme
      include_channel_in_embeds: true
  rooms:
    2189:
      channel_id: C2189
      webhook: room_2189
      livestreams:
        "2023-07-19": https://youtube.example/live/2189-wed
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestParseYAMLWithWebhooksFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)
	env := writeFile(t, dir, ".env", "WEBHOOK_PROGRAMME=https://hooks.example/T/B/file\nWEBHOOK_ROOM_2189=https://hooks.example/T/B/room\nOTHER=x\n")
	t.Setenv("WEBHOOK_PROGRAMME", "https://hooks.example/T/B/env")

	m := NewConfigManager(path, WithEnvFile(env))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get() does not return the committed config")
	}

	if got := cfg.Programme.Rooms["2189"].Webhook; got != "room_2189" {
		t.Fatalf("room webhook = %q", got)
	}
	if u, ok := cfg.Webhook("PROGRAMME"); !ok || u != "https://hooks.example/T/B/env" {
		t.Fatalf("programme webhook = %q %v, want the process env value", u, ok)
	}
	if u, ok := cfg.Webhook("room_2189"); !ok || u != "https://hooks.example/T/B/room" {
		t.Fatalf("room webhook = %q %v", u, ok)
	}
	if _, ok := cfg.Webhook("other"); ok {
		t.Fatal("non-prefixed variable leaked into webhooks")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownFieldsAndTrailingData(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, file, body string
	}{
		{name: "unknown json field", file: "a.json", body: `{"programme":{"timezone":"UTC"},"telegram":{}}`},
		{name: "unknown yaml field", file: "b.yaml", body: "programme:\n  lead_time: 5m\n"},
		{name: "trailing json", file: "c.json", body: `{"logging":{}}{"logging":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.file, tt.body)
			if _, err := NewConfigManager(p).Parse(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProgrammeResolveDefaults(t *testing.T) {
	p, err := ProgrammeConfig{
		Timezone:            "Europe/Prague",
		ConferenceDaysFirst: "2023-07-19",
		ConferenceDaysLast:  "2023-07-21",
		ScheduleURL:         "https://pretalx.example/schedule.json",
		SessionAPIURL:       "https://ep.example/api/{code}",
		ScheduleCachePath:   "/tmp/schedule.json",
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Location.String() != "Europe/Prague" {
		t.Fatalf("location = %v", p.Location)
	}
	if p.PollInterval != 2*time.Minute || p.FetchTimeout != 10*time.Second {
		t.Fatalf("poll/fetch = %v/%v", p.PollInterval, p.FetchTimeout)
	}
	if p.ProgrammeLeadTime != 5*time.Minute || p.RoomLeadTime != 2*time.Minute {
		t.Fatalf("lead times = %v/%v", p.ProgrammeLeadTime, p.RoomLeadTime)
	}
	if p.DeliveryRatePerSec != 2 || p.Speed != 1 {
		t.Fatalf("rate/speed = %v/%v", p.DeliveryRatePerSec, p.Speed)
	}
	if want := time.Date(2023, 7, 19, 0, 0, 0, 0, p.Location); !p.FirstDay.Equal(want) {
		t.Fatalf("first day = %v, want %v", p.FirstDay, want)
	}
}

func TestProgrammeResolveErrors(t *testing.T) {
	base := ProgrammeConfig{
		ConferenceDaysFirst: "2023-07-19",
		ConferenceDaysLast:  "2023-07-21",
		ScheduleURL:         "https://pretalx.example/schedule.json",
		SessionAPIURL:       "https://ep.example/api/{code}",
		ScheduleCachePath:   "/tmp/schedule.json",
	}
	tests := []struct {
		name   string
		mutate func(c *ProgrammeConfig)
		want   string
	}{
		{name: "bad timezone", mutate: func(c *ProgrammeConfig) { c.Timezone = "Mars/Olympus" }, want: "programme.timezone"},
		{name: "session url without code", mutate: func(c *ProgrammeConfig) { c.SessionAPIURL = "https://ep.example/api" }, want: "{code}"},
		{name: "days reversed", mutate: func(c *ProgrammeConfig) { c.ConferenceDaysLast = "2023-07-18" }, want: "before"},
		{name: "bad lead time", mutate: func(c *ProgrammeConfig) { c.RoomLeadTime = "soon" }, want: "room_lead_time"},
		{name: "negative lead time", mutate: func(c *ProgrammeConfig) { c.ProgrammeLeadTime = "-5m" }, want: "programme_lead_time"},
		{name: "room without webhook", mutate: func(c *ProgrammeConfig) { c.Rooms = map[string]RoomConfig{"1": {}} }, want: "rooms[1].webhook"},
		{name: "bad livestream day", mutate: func(c *ProgrammeConfig) {
			c.Rooms = map[string]RoomConfig{"1": {Webhook: "r", Livestreams: map[string]string{"Wed": "u"}}}
		}, want: "livestreams"},
		{name: "non-numeric room id", mutate: func(c *ProgrammeConfig) { c.Rooms = map[string]RoomConfig{"main": {Webhook: "r"}} }, want: "integer"},
		{name: "bad simulated start", mutate: func(c *ProgrammeConfig) { c.SimulatedStart = "tomorrow" }, want: "simulated_start"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			_, err := c.Resolve()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateReportsMissingWebhookWithoutURL(t *testing.T) {
	cfg := &Config{
		Programme: ProgrammeConfig{
			ConferenceDaysFirst:  "2023-07-19",
			ConferenceDaysLast:   "2023-07-21",
			ScheduleURL:          "https://pretalx.example/schedule.json",
			SessionAPIURL:        "https://ep.example/api/{code}",
			ScheduleCachePath:    "/tmp/schedule.json",
			NotificationChannels: []NotificationChannel{{Webhook: "programme"}},
			Rooms:                map[string]RoomConfig{"2189": {Webhook: "room_2189"}},
		},
		Webhooks: map[string]string{"programme": "https://hooks.example/secret-token"},
	}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "WEBHOOK_ROOM_2189") {
		t.Fatalf("err = %v, want missing WEBHOOK_ROOM_2189", err)
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatal("validation error leaks a webhook URL")
	}
}

func TestSummarizeConfigChangeNeverLogsSecrets(t *testing.T) {
	oldCfg := &Config{Webhooks: map[string]string{"programme": "https://hooks.example/old"}}
	newCfg := &Config{
		Programme: ProgrammeConfig{RoomLeadTime: "3m"},
		Webhooks:  map[string]string{"programme": "https://hooks.example/new", "room_1": "https://hooks.example/r"},
	}
	changed, _ := SummarizeConfigChange(oldCfg, newCfg)
	if strings.Join(changed, ",") != "programme,webhooks" {
		t.Fatalf("changed = %v", changed)
	}
	if names := diffWebhooks(oldCfg.Webhooks, newCfg.Webhooks); strings.Join(names, ",") != "programme,room_1" {
		t.Fatalf("webhook diff = %v", names)
	}
}

func TestWatchPublishesChangedConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"programme":{"room_lead_time":"2m"}}`)
	m := NewConfigManager(path, WithDebounce(20*time.Millisecond))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = m.Watch(ctx)
		close(done)
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "config.json", `{"programme":{"room_lead_time":"3m"}}`)

	select {
	case cfg := <-sub:
		if cfg.Programme.RoomLeadTime != "3m" {
			t.Fatalf("published room_lead_time = %q", cfg.Programme.RoomLeadTime)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
