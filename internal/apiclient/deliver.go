package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"confbot/internal/programme"
	"confbot/internal/transport/slackhook"
	logx "confbot/pkg/logx"

	"github.com/slack-go/slack"
)

// Deliver posts msg to the webhook with the given logical name. Failures
// are returned as *DeliveryError and never retried.
func (c *Client) Deliver(ctx context.Context, msg programme.Message, webhook string) error {
	return c.post(ctx, webhook, slackhook.Render(msg), false)
}

// SendText posts a plain text message. It satisfies logx.Sender and is
// called by the log webhook sink, so it never logs its own success: that
// line would be queued to the sink again.
func (c *Client) SendText(ctx context.Context, webhook, text string) error {
	return c.post(ctx, webhook, slackhook.Text(text), true)
}

func (c *Client) post(ctx context.Context, webhook string, payload *slack.WebhookMessage, quiet bool) error {
	target, ok := c.resolve(webhook)
	if !ok {
		return &DeliveryError{Webhook: webhook, Message: "unknown webhook"}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &DeliveryError{Webhook: webhook, Message: err.Error()}
	}

	start := time.Now()
	if err := slack.PostWebhookCustomHTTPContext(ctx, target, c.http, payload); err != nil {
		return redact(webhook, target, err)
	}
	if quiet {
		return nil
	}
	c.log.Info("delivered webhook message",
		logx.String("webhook", webhook),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}

func (c *Client) resolve(webhook string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.cfg.Webhooks[strings.ToLower(strings.TrimSpace(webhook))]
	return u, ok && u != ""
}

// redact turns a transport error into a DeliveryError without the URL.
func redact(webhook, target string, err error) *DeliveryError {
	de := &DeliveryError{Webhook: webhook}
	var (
		sce slack.StatusCodeError
		rle *slack.RateLimitedError
		ue  *url.Error
	)
	switch {
	case errors.As(err, &sce):
		de.Status = sce.Code
		de.Message = http.StatusText(sce.Code)
	case errors.As(err, &rle):
		de.Status = http.StatusTooManyRequests
		de.Message = "rate limited, retry after " + rle.RetryAfter.String()
	case errors.As(err, &ue):
		de.Message = ue.Err.Error()
	default:
		de.Message = err.Error()
	}
	de.Message = strings.ReplaceAll(de.Message, target, "[redacted]")
	if de.Message == "" {
		de.Message = "delivery failed"
	}
	return de
}
