package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"confbot/internal/programme"
)

type sessionDetailsResponse struct {
	Session struct {
		Slug       string `json:"slug"`
		Experience string `json:"experience"`
	} `json:"session"`
}

// FetchSessionDetails fetches the website URL and audience level of one
// session. It is called lazily, right before a notification is sent.
func (c *Client) FetchSessionDetails(ctx context.Context, code string) (programme.SessionDetails, error) {
	cfg := c.config()
	if code == "" {
		return programme.SessionDetails{}, &DetailFetchError{Err: errors.New("empty session code")}
	}

	raw, err := c.get(ctx, strings.ReplaceAll(cfg.SessionAPIURL, "{code}", url.PathEscape(code)), cfg.FetchTimeout)
	if err != nil {
		var se statusError
		if errors.As(err, &se) {
			return programme.SessionDetails{}, &DetailFetchError{Code: code, Status: se.code, Err: err}
		}
		return programme.SessionDetails{}, &DetailFetchError{Code: code, Err: err}
	}

	var resp sessionDetailsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return programme.SessionDetails{}, &DetailFetchError{Code: code, Err: err}
	}
	return programme.SessionDetails{
		URL:        websiteURL(cfg.SessionWebsiteURL, code, resp.Session.Slug),
		Experience: strings.ToLower(strings.TrimSpace(resp.Session.Experience)),
	}, nil
}

// websiteURL fills the template. A template that needs a slug yields ""
// when the API did not return one.
func websiteURL(template, code, slug string) string {
	if template == "" {
		return ""
	}
	if strings.Contains(template, "{slug}") && slug == "" {
		return ""
	}
	return strings.NewReplacer("{slug}", url.PathEscape(slug), "{code}", url.PathEscape(code)).Replace(template)
}
