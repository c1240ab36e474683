package programme

import (
	"sort"
	"time"
)

// Group is a set of sessions starting in the same minute.
type Group struct {
	Start    time.Time
	Sessions []Session
}

// Codes returns the session codes of the group in order.
func (g Group) Codes() []string {
	out := make([]string, 0, len(g.Sessions))
	for _, s := range g.Sessions {
		out = append(out, s.Code)
	}
	return out
}

// GroupByMinute groups sessions by their start time floored to the minute.
// Groups are ordered by start; within a group the input order is kept.
// Sessions without a start time are ignored.
func GroupByMinute(sessions []Session) []Group {
	idx := map[int64]int{}
	var groups []Group
	for _, s := range sessions {
		if s.Start.IsZero() {
			continue
		}
		start := s.Start.Truncate(time.Minute)
		key := start.Unix()
		i, ok := idx[key]
		if !ok {
			i = len(groups)
			idx[key] = i
			groups = append(groups, Group{Start: start})
		}
		groups[i].Sessions = append(groups[i].Sessions, s)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Start.Before(groups[j].Start) })
	return groups
}

// FilterConferenceDays keeps sessions starting between the first day's
// midnight and the end of the last day, both inclusive, in loc.
func FilterConferenceDays(sessions []Session, first, last time.Time, loc *time.Location) []Session {
	if loc == nil {
		loc = time.UTC
	}
	from := dayStart(first, loc)
	until := dayStart(last, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)

	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Start.IsZero() || s.Start.Before(from) || s.Start.After(until) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// WithCode drops sessions that have no submission code.
func WithCode(sessions []Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.Code != "" {
			out = append(out, s)
		}
	}
	return out
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
