package programme

import "time"

// Room binds a pretalx room to its chat channel, webhook and per-day links.
type Room struct {
	ChannelID string
	Webhook   string
	SlidoURL  string
	// Livestreams maps YYYY-MM-DD to the stream URL for that day.
	Livestreams map[string]string
}

// Rooms is keyed by pretalx room id.
type Rooms map[int]Room

// Lookup returns the room configured for id.
func (r Rooms) Lookup(id int) (Room, bool) {
	room, ok := r[id]
	return room, ok
}

// Livestream returns the stream URL for the calendar day of at in loc.
func (r Room) Livestream(at time.Time, loc *time.Location) (string, bool) {
	if at.IsZero() || len(r.Livestreams) == 0 {
		return "", false
	}
	if loc != nil {
		at = at.In(loc)
	}
	u, ok := r.Livestreams[at.Format(time.DateOnly)]
	return u, ok && u != ""
}
