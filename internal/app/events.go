package app

import (
	"confbot/internal/eventbus"
	logx "confbot/pkg/logx"
)

// eventFields flattens an event payload into log fields.
func eventFields(e eventbus.Event) []logx.Field {
	fields := []logx.Field{logx.String("type", e.Type), logx.Time("time", e.Time)}
	switch d := e.Data.(type) {
	case eventbus.ScheduleFetched:
		fields = append(fields,
			logx.String("hash", short(d.Hash)),
			logx.Bool("from_cache", d.FromCache),
			logx.Int("sessions", d.Sessions),
			logx.Bool("changed", d.Changed),
		)
	case eventbus.NotificationsScheduled:
		fields = append(fields,
			logx.String("hash", short(d.Hash)),
			logx.Int("groups", d.Groups),
			logx.Int("tasks", d.Tasks),
			logx.Bool("forced", d.Forced),
		)
	case eventbus.Delivery:
		fields = append(fields,
			logx.String("kind", d.Kind),
			logx.String("webhook", d.Webhook),
			logx.Strings("sessions", d.Sessions),
		)
		if d.Err != "" {
			fields = append(fields, logx.String("err", d.Err))
		}
	}
	return fields
}

func short(hash string) string {
	return hash[:min(12, len(hash))]
}
