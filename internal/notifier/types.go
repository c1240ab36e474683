package notifier

import (
	"context"
	"time"

	"confbot/internal/programme"
	"confbot/internal/task/scheduler"
)

// APIClient fetches the schedule and delivers messages.
type APIClient interface {
	FetchSchedule(ctx context.Context) (programme.FetchResult, error)
	Deliver(ctx context.Context, msg programme.Message, webhook string) error
}

// Scheduler runs tasks at an instant and cancels them in bulk.
type Scheduler interface {
	ScheduleTasksAt(at time.Time, tasks ...scheduler.Task)
	CancelAll()
	Len() int
}

// SessionSource serves enriched sessions by code.
type SessionSource interface {
	Fetch(ctx context.Context, code string) (programme.Session, bool)
	Refresh(sessions []programme.Session)
}

// Channel is a broadcast destination for combined notifications.
type Channel struct {
	Webhook        string
	IncludeChannel bool
}

type Config struct {
	Location *time.Location
	// FirstDay and LastDay bound the conference (calendar days in Location).
	// Zero values disable the filter.
	FirstDay time.Time
	LastDay  time.Time

	ProgrammeLeadTime time.Duration
	RoomLeadTime      time.Duration

	Channels []Channel
	Rooms    programme.Rooms

	ConferenceName    string
	ConferenceWebsite string
	SlidoURL          string
}

func (c Config) embedOptions(includeChannel bool) programme.EmbedOptions {
	return programme.EmbedOptions{
		ConferenceName:    c.ConferenceName,
		ConferenceWebsite: c.ConferenceWebsite,
		SlidoURL:          c.SlidoURL,
		IncludeChannel:    includeChannel,
	}
}

const (
	kindProgramme = "programme"
	kindRoom      = "room"
)
