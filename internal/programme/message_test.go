package programme

import (
	"strings"
	"testing"
	"time"
)

func TestBuildSessionEmbedFullSession(t *testing.T) {
	prague := mustLoc(t, "Europe/Prague")
	s := Session{
		Code:  "ABCDEF",
		Title: "A Tale of Two Pythons: Subinterpreters in Action!",
		Abstract: "Sometimes, having one, undivided interpreter just isn't enough. The pesky GIL," +
			" problems with isolation, and the difficult problem of concurrency haunt the dreams of" +
			" even the most talented Python developer. Clearly, a good solution is needed and that" +
			" solution is finally here: subinterpreters.",
		Track:         "Core Python",
		Duration:      45,
		RoomID:        1234,
		RoomName:      "The Broom Closet",
		Start:         time.Date(2023, 7, 19, 9, 55, 0, 0, prague),
		Speakers:      []Speaker{{Code: "123456", Name: "Ada Lovelace", AvatarURL: "https://ada.avatar"}},
		URL:           "https://ep.session/a-tale-of-two-pythons",
		Experience:    "advanced",
		LivestreamURL: "https://livestreams.example/2023",
		ChannelID:     "C0123456",
	}
	e := BuildSessionEmbed(s, EmbedOptions{SlidoURL: "https://app.sli.do/event/test", IncludeChannel: true})

	if e.Title != s.Title || e.URL != s.URL {
		t.Fatalf("title/url = %q %q", e.Title, e.URL)
	}
	if e.Author == nil || e.Author.Name != "Ada Lovelace" || e.Author.IconURL != "https://ada.avatar" {
		t.Fatalf("author = %+v", e.Author)
	}
	wantDesc := "Sometimes, having one, undivided interpreter just isn't enough. The pesky GIL," +
		" problems with isolation, and the difficult problem of concurrency haunt the dreams of" +
		" even the most talented Python [...]" +
		"\n\n<https://ep.session/a-tale-of-two-pythons|Read more about this session>"
	if e.Description != wantDesc {
		t.Fatalf("description =\n%q\nwant\n%q", e.Description, wantDesc)
	}
	if e.Color != 13846600 {
		t.Fatalf("color = %d", e.Color)
	}
	if e.Footer != "This session starts at 09:55:00 (local conference time)" {
		t.Fatalf("footer = %q", e.Footer)
	}

	want := []Field{
		{Name: "Start Time", Value: "<!date^1689753300^{date_short_pretty} {time}|2023-07-19 09:55 CEST>", Inline: true},
		{Name: "Room", Value: "The Broom Closet", Inline: true},
		{Name: "Track", Value: "Core Python", Inline: true},
		{Name: "Duration", Value: "45 minutes", Inline: true},
		{Name: "Livestream", Value: "<https://livestreams.example/2023|YouTube>", Inline: true},
		{Name: "Live Q&A", Value: "<https://app.sli.do/event/test|Slido>", Inline: true},
		{Name: "Channel", Value: "<#C0123456>", Inline: true},
	}
	if len(e.Fields) != len(want) {
		t.Fatalf("fields = %+v", e.Fields)
	}
	for i := range want {
		if e.Fields[i] != want[i] {
			t.Fatalf("field %d = %+v, want %+v", i, e.Fields[i], want[i])
		}
	}
}

func TestBuildSessionEmbedLastField(t *testing.T) {
	opts := EmbedOptions{ConferenceName: "EuroPython", ConferenceWebsite: "https://europython.eu"}
	tests := []struct {
		name    string
		session Session
		include bool
		want    Field
		color   int
	}{
		{
			name:    "channel hidden falls back to level",
			session: Session{ChannelID: "C1", Experience: "Beginner"},
			want:    Field{Name: "Level", Value: "Beginner", Inline: true},
			color:   6542417,
		},
		{
			name:    "channel requested but unknown",
			session: Session{Experience: "intermediate"},
			include: true,
			want:    Field{Name: "Level", Value: "Intermediate", Inline: true},
			color:   16764229,
		},
		{
			name:    "unknown level shows website",
			session: Session{Experience: "expert"},
			want:    Field{Name: "EuroPython Website", Value: "<https://europython.eu|europython.eu>", Inline: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts
			o.IncludeChannel = tt.include
			e := BuildSessionEmbed(tt.session, o)
			if got := e.Fields[len(e.Fields)-1]; got != tt.want {
				t.Fatalf("last field = %+v, want %+v", got, tt.want)
			}
			if e.Color != tt.color {
				t.Fatalf("color = %d, want %d", e.Color, tt.color)
			}
		})
	}
}

func TestBuildSessionEmbedPlaceholders(t *testing.T) {
	e := BuildSessionEmbed(Session{}, EmbedOptions{})
	if e.Description != emptyAbstract {
		t.Fatalf("description = %q", e.Description)
	}
	if e.Author != nil || e.Footer != "" || e.Title != "" {
		t.Fatalf("unexpected embed: %+v", e)
	}
	for _, f := range e.Fields[:5] {
		if f.Value != emptyValue {
			t.Fatalf("field %q = %q, want placeholder", f.Name, f.Value)
		}
	}

	withURL := BuildSessionEmbed(Session{URL: "https://foo.session"}, EmbedOptions{})
	if want := emptyAbstract + "\n\n<https://foo.session|Read more about this session>"; withURL.Description != want {
		t.Fatalf("description = %q, want %q", withURL.Description, want)
	}
}

func TestAuthorFromSpeakers(t *testing.T) {
	tests := []struct {
		speakers []Speaker
		name     string
		icon     string
	}{
		{speakers: []Speaker{{Name: "A"}}, name: "A"},
		{speakers: []Speaker{{Name: "A"}, {Name: "B", AvatarURL: "b.png"}}, name: "A & B", icon: "b.png"},
		{speakers: []Speaker{{Name: "A", AvatarURL: "a.png"}, {Name: "B", AvatarURL: "b.png"}, {Name: "C"}}, name: "A, B, & C", icon: "a.png"},
	}
	for _, tt := range tests {
		a := authorFromSpeakers(tt.speakers)
		if a == nil || a.Name != tt.name || a.IconURL != tt.icon {
			t.Fatalf("author(%v) = %+v, want %q/%q", tt.speakers, a, tt.name, tt.icon)
		}
	}
	if authorFromSpeakers(nil) != nil {
		t.Fatal("no speakers should give no author")
	}
}

func TestShorten(t *testing.T) {
	long := "A very verbose title that will not fit well in a Discord embed needs to be" +
		" shortened to the point it doesn't disrupt the embed visually."
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{in: "short  and\nsweet", width: 20, want: "short and sweet"},
		{in: long, width: 128, want: "A very verbose title that will not fit well in a Discord embed needs to be" +
			" shortened to the point it doesn't disrupt the [...]"},
		{in: strings.Repeat("x", 300), width: 128, want: "[...]"},
	}
	for _, tt := range tests {
		if got := shorten(tt.in, tt.width); got != tt.want {
			t.Fatalf("shorten(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
