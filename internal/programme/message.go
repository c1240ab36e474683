package programme

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Message is the platform-agnostic notification payload handed to a
// transport for rendering.
type Message struct {
	Content string
	Embeds  []Embed
}

type Embed struct {
	Title       string
	URL         string
	Author      *Author
	Description string
	Fields      []Field
	Footer      string
	Color       int
}

type Author struct {
	Name    string
	IconURL string
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Experience levels and their embed colours.
var experienceColors = map[string]int{
	"advanced":     13846600,
	"intermediate": 16764229,
	"beginner":     6542417,
}

const (
	titleWidth    = 128
	authorWidth   = 128
	abstractWidth = 200

	emptyAbstract = "*This session does not have an abstract.*"
	emptyValue    = "—"
	placeholder   = " [...]"
)

// EmbedOptions carries the conference-wide values an embed may link to.
type EmbedOptions struct {
	ConferenceName    string
	ConferenceWebsite string
	SlidoURL          string
	// IncludeChannel adds a link to the room channel when it is known.
	IncludeChannel bool
}

// BuildSessionEmbed renders an enriched session into an embed.
func BuildSessionEmbed(s Session, opts EmbedOptions) Embed {
	fields := []Field{
		{Name: "Start Time", Value: formatStart(s), Inline: true},
		{Name: "Room", Value: orEmpty(s.RoomName), Inline: true},
		{Name: "Track", Value: orEmpty(s.Track), Inline: true},
		{Name: "Duration", Value: formatDuration(s.Duration), Inline: true},
		{Name: "Livestream", Value: link("YouTube", s.LivestreamURL), Inline: true},
	}
	if slido := firstNonEmpty(s.SlidoRoomURL, opts.SlidoURL); slido != "" {
		fields = append(fields, Field{Name: "Live Q&A", Value: link("Slido", slido), Inline: true})
	}

	level := strings.ToLower(s.Experience)
	_, knownLevel := experienceColors[level]
	switch {
	case opts.IncludeChannel && s.ChannelID != "":
		fields = append(fields, Field{Name: "Channel", Value: "<#" + s.ChannelID + ">", Inline: true})
	case knownLevel:
		fields = append(fields, Field{Name: "Level", Value: strings.ToUpper(level[:1]) + level[1:], Inline: true})
	default:
		fields = append(fields, Field{Name: websiteFieldName(opts.ConferenceName), Value: websiteValue(opts.ConferenceWebsite), Inline: true})
	}

	e := Embed{
		Title:       shorten(s.Title, titleWidth),
		URL:         s.URL,
		Author:      authorFromSpeakers(s.Speakers),
		Description: description(s),
		Fields:      fields,
		Color:       experienceColors[level],
	}
	if !s.Start.IsZero() {
		e.Footer = fmt.Sprintf("This session starts at %s (local conference time)", s.Start.Format("15:04:05"))
	}
	return e
}

func authorFromSpeakers(speakers []Speaker) *Author {
	var name string
	switch n := len(speakers); {
	case n == 0:
		return nil
	case n == 1:
		name = speakers[0].Name
	case n == 2:
		name = speakers[0].Name + " & " + speakers[1].Name
	default:
		names := make([]string, 0, n-1)
		for _, sp := range speakers[:n-1] {
			names = append(names, sp.Name)
		}
		name = strings.Join(names, ", ") + ", & " + speakers[n-1].Name
	}
	a := &Author{Name: shorten(name, authorWidth)}
	for _, sp := range speakers {
		if sp.AvatarURL != "" {
			a.IconURL = sp.AvatarURL
			break
		}
	}
	return a
}

func description(s Session) string {
	abstract := emptyAbstract
	if strings.TrimSpace(s.Abstract) != "" {
		abstract = shorten(s.Abstract, abstractWidth)
	}
	if s.URL == "" {
		return abstract
	}
	return abstract + "\n\n" + link("Read more about this session", s.URL)
}

// formatStart renders the start as a Slack date token that readers see in
// their own timezone, with the conference-local time as fallback.
func formatStart(s Session) string {
	if s.Start.IsZero() {
		return emptyValue
	}
	return fmt.Sprintf("<!date^%d^{date_short_pretty} {time}|%s>", s.Start.Unix(), s.Start.Format("2006-01-02 15:04 MST"))
}

func formatDuration(minutes int) string {
	if minutes <= 0 {
		return emptyValue
	}
	return fmt.Sprintf("%d minutes", minutes)
}

func link(text, url string) string {
	if url == "" {
		return emptyValue
	}
	return "<" + url + "|" + text + ">"
}

func websiteFieldName(conference string) string {
	if conference == "" {
		return "Website"
	}
	return conference + " Website"
}

func websiteValue(website string) string {
	if website == "" {
		return emptyValue
	}
	host := strings.TrimPrefix(strings.TrimPrefix(website, "https://"), "http://")
	return link(strings.TrimSuffix(host, "/"), website)
}

func orEmpty(s string) string {
	if s == "" {
		return emptyValue
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// shorten collapses whitespace and, if the text is still wider than width
// runes, drops trailing words and appends " [...]".
func shorten(text string, width int) string {
	words := strings.Fields(text)
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= width {
		return joined
	}
	limit := width - utf8.RuneCountInString(placeholder)
	var b strings.Builder
	n := 0
	for _, w := range words {
		wn := utf8.RuneCountInString(w)
		next := n + wn
		if n > 0 {
			next++
		}
		if next > limit {
			break
		}
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		n = next
	}
	if n == 0 {
		return strings.TrimSpace(placeholder)
	}
	return b.String() + placeholder
}
