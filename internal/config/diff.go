package config

import (
	"reflect"
	"sort"
	"strings"

	logx "confbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Webhook URLs never appear, only names.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 4)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.webhook_enabled", newCfg.Logging.Webhook.Enabled),
		)
	}

	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if s := oldCfg.Storage; s != nil {
		oDriver, oBusy, oPathSet = strings.TrimSpace(s.Driver), strings.TrimSpace(s.BusyTimeout), strings.TrimSpace(s.Path) != ""
	}
	if s := newCfg.Storage; s != nil {
		nDriver, nBusy, nPathSet = strings.TrimSpace(s.Driver), strings.TrimSpace(s.BusyTimeout), strings.TrimSpace(s.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	op, np := oldCfg.Programme, newCfg.Programme
	if !reflect.DeepEqual(op, np) {
		changed = append(changed, "programme")
		attrs = append(attrs,
			logx.String("programme.timezone", np.Timezone),
			logx.String("programme.days", np.ConferenceDaysFirst+".."+np.ConferenceDaysLast),
			logx.String("programme.poll_interval", np.PollInterval),
			logx.String("programme.programme_lead_time", np.ProgrammeLeadTime),
			logx.String("programme.room_lead_time", np.RoomLeadTime),
			logx.Int("programme.channels", len(np.NotificationChannels)),
			logx.Int("programme.rooms", len(np.Rooms)),
			logx.Bool("programme.time_warp", np.SimulatedStart != "" || (np.Speed != 0 && np.Speed != 1)),
		)
	}

	if names := diffWebhooks(oldCfg.Webhooks, newCfg.Webhooks); len(names) > 0 {
		changed = append(changed, "webhooks")
		attrs = append(attrs, logx.Strings("webhooks.changed", names))
	}

	sort.Strings(changed)
	return changed, attrs
}

// diffWebhooks returns the names whose secret was added, removed or rotated.
func diffWebhooks(oldM, newM map[string]string) []string {
	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		if oldM[name] != newM[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
