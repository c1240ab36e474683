package config

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   *StorageConfig  `json:"storage,omitempty"`
	Programme ProgrammeConfig `json:"programme"`

	// Webhooks maps logical webhook names to secret URLs. Never read from the
	// config file: populated from WEBHOOK_<NAME> environment variables.
	Webhooks map[string]string `json:"-"`
}

// StorageConfig controls the optional delivery/fetch audit log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./confbot.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Webhook LoggingWebhook `json:"webhook"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingWebhook mirrors warnings and errors to a chat webhook.
// Webhook is a logical name resolved like any other delivery target.
type LoggingWebhook struct {
	Enabled    bool   `json:"enabled"`
	Webhook    string `json:"webhook"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// ProgrammeConfig drives the programme notifier.
//
// All durations are Go duration strings (e.g. "5m", "10s"). Dates are
// YYYY-MM-DD calendar days in Timezone.
//
// Defaults (when fields are omitted/zero):
//   - timezone: "UTC"
//   - poll_interval: "2m"
//   - fetch_timeout: "10s"
//   - programme_lead_time: "5m"
//   - room_lead_time: "2m"
//   - delivery_rate_per_sec: 2
//   - speed: 1
type ProgrammeConfig struct {
	Timezone          string `json:"timezone"`
	ConferenceName    string `json:"conference_name"`
	ConferenceWebsite string `json:"conference_website"`

	ConferenceDaysFirst string `json:"conference_days_first"`
	ConferenceDaysLast  string `json:"conference_days_last"`

	ScheduleURL string `json:"schedule_url"`
	// SessionAPIURL must contain "{code}".
	SessionAPIURL string `json:"session_api_url"`
	// SessionWebsiteURL may contain "{slug}" and "{code}".
	SessionWebsiteURL string `json:"session_website_url,omitempty"`
	ScheduleCachePath string `json:"schedule_cache_path"`

	PollInterval      string `json:"poll_interval,omitempty"`
	FetchTimeout      string `json:"fetch_timeout,omitempty"`
	ProgrammeLeadTime string `json:"programme_lead_time,omitempty"`
	RoomLeadTime      string `json:"room_lead_time,omitempty"`

	DeliveryRatePerSec int `json:"delivery_rate_per_sec,omitempty"`

	SlidoURL string `json:"slido_url,omitempty"`

	// SimulatedStart (RFC3339) and Speed warp the clock for rehearsals.
	SimulatedStart string  `json:"simulated_start,omitempty"`
	Speed          float64 `json:"speed,omitempty"`

	NotificationChannels []NotificationChannel `json:"notification_channels"`
	// Rooms is keyed by the pretalx room id.
	Rooms map[string]RoomConfig `json:"rooms"`
}

// NotificationChannel is a broadcast destination for combined notifications.
type NotificationChannel struct {
	Webhook                string `json:"webhook"`
	IncludeChannelInEmbeds bool   `json:"include_channel_in_embeds"`
}

// RoomConfig binds a room to its own channel and webhook.
type RoomConfig struct {
	ChannelID    string `json:"channel_id"`
	Webhook      string `json:"webhook"`
	SlidoRoomURL string `json:"slido_room_url,omitempty"`
	// Livestreams maps YYYY-MM-DD to the room's stream URL for that day.
	Livestreams map[string]string `json:"livestreams,omitempty"`
}
