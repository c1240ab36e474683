package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"confbot/internal/apiclient"
	"confbot/internal/config"
	"confbot/internal/notifier"
	"confbot/internal/programme"
	"confbot/internal/sessioninfo"
	"confbot/internal/storage"
	logx "confbot/pkg/logx"
)

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "none":
		return storage.Config{}, false, nil
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Webhook: logx.WebhookConfig{
			Enabled:    l.Webhook.Enabled,
			Target:     l.Webhook.Webhook,
			MinLevel:   l.Webhook.MinLevel,
			RatePerSec: l.Webhook.RatePerSec,
		},
	}
}

// components is every per-component config derived from one Config.
type components struct {
	programme config.Programme
	api       apiclient.Config
	sessions  sessioninfo.Config
	notifier  notifier.Config
}

func mapComponents(cfg *config.Config) (components, error) {
	p, err := cfg.Programme.Resolve()
	if err != nil {
		return components{}, err
	}
	rooms, err := mapRooms(p.Rooms)
	if err != nil {
		return components{}, err
	}

	channels := make([]notifier.Channel, 0, len(p.NotificationChannels))
	for _, ch := range p.NotificationChannels {
		channels = append(channels, notifier.Channel{Webhook: ch.Webhook, IncludeChannel: ch.IncludeChannelInEmbeds})
	}

	return components{
		programme: p,
		api: apiclient.Config{
			ScheduleURL:        p.ScheduleURL,
			SessionAPIURL:      p.SessionAPIURL,
			SessionWebsiteURL:  p.SessionWebsiteURL,
			ScheduleCachePath:  p.ScheduleCachePath,
			FetchTimeout:       p.FetchTimeout,
			Location:           p.Location,
			DeliveryRatePerSec: p.DeliveryRatePerSec,
			Webhooks:           cfg.Webhooks,
		},
		sessions: sessioninfo.Config{Location: p.Location, Rooms: rooms},
		notifier: notifier.Config{
			Location:          p.Location,
			FirstDay:          p.FirstDay,
			LastDay:           p.LastDay,
			ProgrammeLeadTime: p.ProgrammeLeadTime,
			RoomLeadTime:      p.RoomLeadTime,
			Channels:          channels,
			Rooms:             rooms,
			ConferenceName:    p.ConferenceName,
			ConferenceWebsite: p.ConferenceWebsite,
			SlidoURL:          p.SlidoURL,
		},
	}, nil
}

func mapRooms(in map[string]config.RoomConfig) (programme.Rooms, error) {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(programme.Rooms, len(in))
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("programme.rooms[%s]: room id must be an integer", id)
		}
		rc := in[id]
		out[n] = programme.Room{
			ChannelID:   rc.ChannelID,
			Webhook:     rc.Webhook,
			SlidoURL:    rc.SlidoRoomURL,
			Livestreams: rc.Livestreams,
		}
	}
	return out, nil
}
