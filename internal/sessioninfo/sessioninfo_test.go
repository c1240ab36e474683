package sessioninfo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"confbot/internal/programme"
	logx "confbot/pkg/logx"
)

type stubDetails struct {
	mu    sync.Mutex
	calls []string
	resp  map[string]programme.SessionDetails
}

func (s *stubDetails) FetchSessionDetails(_ context.Context, code string) (programme.SessionDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, code)
	d, ok := s.resp[code]
	if !ok {
		return programme.SessionDetails{}, errors.New("boom")
	}
	return d, nil
}

func prague(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestFetchEnrichesFromDetailsAndRooms(t *testing.T) {
	loc := prague(t)
	api := &stubDetails{resp: map[string]programme.SessionDetails{
		"A8CD3F": {URL: "https://ep.example/session/feeding", Experience: "beginner"},
	}}
	svc := New(api, Config{Location: loc, Rooms: programme.Rooms{
		2189: {
			ChannelID: "C2189",
			Webhook:   "room_2189",
			SlidoURL:  "https://slido.example/terrarium",
			Livestreams: map[string]string{
				"2023-07-19": "https://youtube.example/wed",
			},
		},
	}}, logx.Nop())
	svc.Refresh([]programme.Session{
		{Code: "A8CD3F", Title: "Feeding Your Pet Python", RoomID: 2189, Start: time.Date(2023, 7, 19, 9, 55, 0, 0, loc)},
	})

	got, ok := svc.Fetch(context.Background(), "A8CD3F")
	if !ok {
		t.Fatal("session not found")
	}
	want := programme.Session{
		Code: "A8CD3F", Title: "Feeding Your Pet Python", RoomID: 2189, Start: got.Start,
		URL: "https://ep.example/session/feeding", Experience: "beginner",
		ChannelID: "C2189", SlidoRoomURL: "https://slido.example/terrarium", LivestreamURL: "https://youtube.example/wed",
	}
	if got.URL != want.URL || got.Experience != want.Experience || got.ChannelID != want.ChannelID ||
		got.SlidoRoomURL != want.SlidoRoomURL || got.LivestreamURL != want.LivestreamURL {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestFetchToleratesDetailFailureAndMissingRoom(t *testing.T) {
	api := &stubDetails{}
	svc := New(api, Config{}, logx.Nop())
	svc.Refresh([]programme.Session{{Code: "X", Title: "Unknown room", RoomID: 7}})

	got, ok := svc.Fetch(context.Background(), "X")
	if !ok || got.Title != "Unknown room" {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
	if got.URL != "" || got.ChannelID != "" || got.LivestreamURL != "" {
		t.Fatalf("unexpected enrichment: %+v", got)
	}
	if len(api.calls) != 1 {
		t.Fatalf("detail calls = %v", api.calls)
	}
}

func TestFetchSkipsDetailsWhenAlreadyKnown(t *testing.T) {
	api := &stubDetails{}
	svc := New(api, Config{}, logx.Nop())
	svc.Refresh([]programme.Session{{Code: "K", URL: "https://x", Experience: "advanced"}})

	if _, ok := svc.Fetch(context.Background(), "K"); !ok {
		t.Fatal("not found")
	}
	if len(api.calls) != 0 {
		t.Fatalf("detail calls = %v", api.calls)
	}
}

func TestRefreshReplacesRepository(t *testing.T) {
	svc := New(nil, Config{}, logx.Nop())
	svc.Refresh([]programme.Session{{Code: "A"}, {Code: "B"}, {Title: "no code"}})
	if svc.Len() != 2 {
		t.Fatalf("Len = %d", svc.Len())
	}
	svc.Refresh([]programme.Session{{Code: "C"}})
	if svc.Len() != 1 {
		t.Fatalf("Len = %d", svc.Len())
	}
	if _, ok := svc.Fetch(context.Background(), "A"); ok {
		t.Fatal("stale session survived refresh")
	}
	if _, ok := svc.Fetch(context.Background(), "C"); !ok {
		t.Fatal("new session missing")
	}
}

func TestApplySwapsRooms(t *testing.T) {
	svc := New(nil, Config{}, logx.Nop())
	svc.Refresh([]programme.Session{{Code: "A", RoomID: 1}})
	svc.Apply(Config{Rooms: programme.Rooms{1: {ChannelID: "C1"}}})

	got, _ := svc.Fetch(context.Background(), "A")
	if got.ChannelID != "C1" {
		t.Fatalf("channel = %q", got.ChannelID)
	}
}
