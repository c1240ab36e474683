// Package slackhook renders programme messages as Slack incoming-webhook
// payloads. Each embed becomes one legacy attachment so that colour bars,
// author lines and inline fields survive.
package slackhook

import (
	"fmt"

	"confbot/internal/programme"

	"github.com/slack-go/slack"
)

var markdownIn = []string{"text", "pretext", "fields", "footer"}

// Render converts msg into a webhook payload. The result is never nil.
func Render(msg programme.Message) *slack.WebhookMessage {
	out := &slack.WebhookMessage{Text: msg.Content}
	if len(msg.Embeds) > 0 {
		out.Attachments = make([]slack.Attachment, 0, len(msg.Embeds))
	}
	for _, e := range msg.Embeds {
		out.Attachments = append(out.Attachments, attachment(e))
	}
	return out
}

// Text is a payload with plain text only.
func Text(text string) *slack.WebhookMessage {
	return &slack.WebhookMessage{Text: text}
}

func attachment(e programme.Embed) slack.Attachment {
	a := slack.Attachment{
		Fallback:   e.Title,
		Title:      e.Title,
		TitleLink:  e.URL,
		Text:       e.Description,
		Footer:     e.Footer,
		MarkdownIn: markdownIn,
	}
	if e.Color != 0 {
		a.Color = Color(e.Color)
	}
	if e.Author != nil {
		a.AuthorName = e.Author.Name
		a.AuthorIcon = e.Author.IconURL
	}
	if len(e.Fields) > 0 {
		a.Fields = make([]slack.AttachmentField, 0, len(e.Fields))
		for _, f := range e.Fields {
			a.Fields = append(a.Fields, slack.AttachmentField{Title: f.Name, Value: f.Value, Short: f.Inline})
		}
	}
	return a
}

// Color formats a 24-bit RGB integer as "#rrggbb".
func Color(rgb int) string {
	return fmt.Sprintf("#%06x", rgb&0xffffff)
}
