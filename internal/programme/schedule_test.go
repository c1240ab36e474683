package programme

import (
	"errors"
	"os"
	"testing"
	"time"

	logx "confbot/pkg/logx"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestParseScheduleSkipsInvalidEntries(t *testing.T) {
	raw, err := os.ReadFile("testdata/schedule.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	prague := mustLoc(t, "Europe/Prague")

	s, err := ParseSchedule(raw, prague, logx.Nop())
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	if s.Version != "0.10" {
		t.Fatalf("version = %q", s.Version)
	}
	if s.Hash != Fingerprint(raw) {
		t.Fatalf("hash = %q, want fingerprint of raw bytes", s.Hash)
	}
	if got := len(s.Sessions); got != 3 {
		t.Fatalf("sessions = %d, want 3 (two invalid slots skipped)", got)
	}
	if got := len(s.Breaks); got != 1 {
		t.Fatalf("breaks = %d, want 1", got)
	}

	first := s.Sessions[0]
	if first.Code != "ABABAB" || first.Title != "Stop using globals!" || first.Track != "Python Basics" {
		t.Fatalf("unexpected first session: %+v", first)
	}
	if first.RoomID != 1234 || first.RoomName != "The Great Outdoors" || first.Duration != 30 {
		t.Fatalf("unexpected room/duration: %+v", first)
	}
	if len(first.Speakers) != 2 || first.Speakers[1].AvatarURL != "https://my.avatar/carl.jpg" {
		t.Fatalf("unexpected speakers: %+v", first.Speakers)
	}
	want := time.Date(2023, 7, 21, 12, 30, 0, 0, prague)
	if !first.Start.Equal(want) || first.Start.Location() != prague {
		t.Fatalf("start = %v, want %v in Europe/Prague", first.Start, want)
	}

	if s.Sessions[1].Code != "" || s.Sessions[1].Description != "Coffee Break" {
		t.Fatalf("slot without submission decoded as %+v", s.Sessions[1])
	}
	nulls := s.Sessions[2]
	if nulls.Code != "ALPLOA" || nulls.Track != "" || nulls.Duration != 0 || nulls.Speakers[0].AvatarURL != "" {
		t.Fatalf("null values decoded as %+v", nulls)
	}

	b := s.Breaks[0]
	if b.RoomID != 2189 || b.Room != "Terrace 2A" || b.End.Sub(b.Start) != 30*time.Minute {
		t.Fatalf("unexpected break: %+v", b)
	}
}

func TestParseScheduleRejectsUnusableDocuments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "<html>502 Bad Gateway</html>"},
		{name: "no slots", raw: `{"version":"1"}`},
		{name: "slots not a list", raw: `{"slots":{},"version":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchedule([]byte(tt.raw), time.UTC, logx.Nop())
			if !errors.Is(err, ErrMalformedSchedule) {
				t.Fatalf("err = %v, want ErrMalformedSchedule", err)
			}
		})
	}
}

func TestParseScheduleEmpty(t *testing.T) {
	s, err := ParseSchedule([]byte(`{"slots":[],"breaks":[],"version":"0.10"}`), time.UTC, logx.Nop())
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	if len(s.Sessions) != 0 || len(s.Breaks) != 0 {
		t.Fatalf("expected empty schedule, got %+v", s)
	}
}

func TestFingerprint(t *testing.T) {
	a := []byte(`{"slots":[],"version":"0.10"}`)
	b := []byte(`{"slots":[],"version":"0.10"}`)
	c := []byte(`{"slots":[],"version":"0.11"}`)

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("identical bytes gave different fingerprints")
	}
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatal("one byte difference gave the same fingerprint")
	}
	if got := len(Fingerprint(a)); got != 64 {
		t.Fatalf("fingerprint length = %d, want 64 hex chars", got)
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	inner := errors.New("start is required")
	err := error(&ValidationError{Kind: "slot", Index: 3, Err: inner})
	if !errors.Is(err, inner) {
		t.Fatal("ValidationError does not unwrap")
	}
	if got, want := err.Error(), "invalid slot #3: start is required"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
