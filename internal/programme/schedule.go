package programme

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	logx "confbot/pkg/logx"

	"github.com/zeebo/blake3"
)

// Speaker is a person presenting a session.
type Speaker struct {
	Code      string
	Name      string
	AvatarURL string
}

// Session is a talk, tutorial or any other slot with a room and a start.
//
// Code is the submission code and the stable identifier across fetches. Slots
// without a submission (for example plenary breaks) have an empty Code.
type Session struct {
	ID          int
	Code        string
	Title       string
	Abstract    string
	Speakers    []Speaker
	Track       string
	Duration    int // minutes
	Start       time.Time
	RoomID      int
	RoomName    string
	Description string

	// Enrichment, empty until SessionInformation fills it in.
	URL           string
	Experience    string
	LivestreamURL string
	ChannelID     string
	SlidoRoomURL  string
}

// Break is a pause in one room.
type Break struct {
	RoomID      int
	Room        string
	Start       time.Time
	End         time.Time
	Description string
}

// Schedule is an immutable snapshot of the conference programme.
type Schedule struct {
	Sessions []Session
	Breaks   []Break
	Version  string
	Hash     string
}

// FetchResult is a parsed schedule plus where it came from.
type FetchResult struct {
	Schedule  Schedule
	FromCache bool
}

// SessionDetails is the per-session metadata missing from the bulk schedule.
type SessionDetails struct {
	URL        string
	Experience string
}

// ValidationError reports a single schedule entry that could not be decoded.
type ValidationError struct {
	Kind  string // "slot" or "break"
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s #%d: %v", e.Kind, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ErrMalformedSchedule is returned when the document itself is unusable.
var ErrMalformedSchedule = errors.New("malformed schedule document")

// Fingerprint returns the hex BLAKE3-256 digest of the raw schedule bytes.
func Fingerprint(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type translated struct {
	En string `json:"en"`
}

type rawSpeaker struct {
	Code      *string `json:"code"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatar_url"`
}

type rawTrack struct {
	ID   int         `json:"id"`
	Name *translated `json:"name"`
}

type rawSubmission struct {
	Code     *string      `json:"code"`
	Title    string       `json:"title"`
	Abstract string       `json:"abstract"`
	Speakers []rawSpeaker `json:"speakers"`
	Duration *int         `json:"duration"`
	Track    *rawTrack    `json:"track"`
}

type rawRoom struct {
	ID   *int        `json:"id"`
	Name *translated `json:"name"`
}

type rawSlot struct {
	ID          *int           `json:"id"`
	Start       *string        `json:"start"`
	Duration    *int           `json:"duration"`
	Description *translated    `json:"description"`
	Room        *rawRoom       `json:"room"`
	Submission  *rawSubmission `json:"submission"`
}

type rawBreak struct {
	Room        *translated `json:"room"`
	RoomID      *int        `json:"room_id"`
	Start       *string     `json:"start"`
	End         *string     `json:"end"`
	Description *translated `json:"description"`
}

type rawSchedule struct {
	Slots   []json.RawMessage `json:"slots"`
	Breaks  []json.RawMessage `json:"breaks"`
	Version string            `json:"version"`
}

// ParseSchedule decodes a pretalx schedule document. Entries that fail to
// decode are logged and skipped; only an unusable document is an error.
// Start times are converted into loc.
func ParseSchedule(raw []byte, loc *time.Location, log logx.Logger) (Schedule, error) {
	if loc == nil {
		loc = time.UTC
	}
	var doc rawSchedule
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Schedule{}, fmt.Errorf("%w: %v", ErrMalformedSchedule, err)
	}
	if doc.Slots == nil {
		return Schedule{}, fmt.Errorf("%w: missing slots", ErrMalformedSchedule)
	}

	s := Schedule{
		Sessions: make([]Session, 0, len(doc.Slots)),
		Breaks:   make([]Break, 0, len(doc.Breaks)),
		Version:  doc.Version,
		Hash:     Fingerprint(raw),
	}
	for i, m := range doc.Slots {
		sess, err := decodeSlot(m, loc)
		if err != nil {
			log.Warn("skipping schedule entry", logx.Err(&ValidationError{Kind: "slot", Index: i, Err: err}))
			continue
		}
		s.Sessions = append(s.Sessions, sess)
	}
	for i, m := range doc.Breaks {
		b, err := decodeBreak(m, loc)
		if err != nil {
			log.Warn("skipping schedule entry", logx.Err(&ValidationError{Kind: "break", Index: i, Err: err}))
			continue
		}
		s.Breaks = append(s.Breaks, b)
	}
	return s, nil
}

func parseInstant(field string, v *string, loc *time.Location) (time.Time, error) {
	if v == nil || *v == "" {
		return time.Time{}, fmt.Errorf("%s is required", field)
	}
	t, err := time.Parse(time.RFC3339, *v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t.In(loc), nil
}

func decodeSlot(m json.RawMessage, loc *time.Location) (Session, error) {
	var r rawSlot
	if err := json.Unmarshal(m, &r); err != nil {
		return Session{}, err
	}
	if r.ID == nil {
		return Session{}, errors.New("id is required")
	}
	start, err := parseInstant("start", r.Start, loc)
	if err != nil {
		return Session{}, err
	}

	s := Session{ID: *r.ID, Start: start}
	if r.Duration != nil {
		s.Duration = *r.Duration
	}
	if r.Description != nil {
		s.Description = r.Description.En
	}
	if r.Room != nil {
		if r.Room.ID == nil {
			return Session{}, errors.New("room.id is required")
		}
		s.RoomID = *r.Room.ID
		if r.Room.Name != nil {
			s.RoomName = r.Room.Name.En
		}
	}
	if sub := r.Submission; sub != nil {
		if sub.Code == nil || *sub.Code == "" {
			return Session{}, errors.New("submission.code is required")
		}
		s.Code = *sub.Code
		s.Title = sub.Title
		s.Abstract = sub.Abstract
		if sub.Duration != nil {
			s.Duration = *sub.Duration
		}
		if sub.Track != nil && sub.Track.Name != nil {
			s.Track = sub.Track.Name.En
		}
		for j, sp := range sub.Speakers {
			if sp.Code == nil {
				return Session{}, fmt.Errorf("submission.speakers[%d].code is required", j)
			}
			s.Speakers = append(s.Speakers, Speaker{Code: *sp.Code, Name: sp.Name, AvatarURL: sp.AvatarURL})
		}
	}
	return s, nil
}

func decodeBreak(m json.RawMessage, loc *time.Location) (Break, error) {
	var r rawBreak
	if err := json.Unmarshal(m, &r); err != nil {
		return Break{}, err
	}
	if r.RoomID == nil {
		return Break{}, errors.New("room_id is required")
	}
	start, err := parseInstant("start", r.Start, loc)
	if err != nil {
		return Break{}, err
	}
	end, err := parseInstant("end", r.End, loc)
	if err != nil {
		return Break{}, err
	}
	b := Break{RoomID: *r.RoomID, Start: start, End: end}
	if r.Room != nil {
		b.Room = r.Room.En
	}
	if r.Description != nil {
		b.Description = r.Description.En
	}
	return b, nil
}
