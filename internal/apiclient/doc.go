// Package apiclient talks to the outside world on behalf of the notifier:
// it fetches the pretalx schedule (falling back to a cached copy), fetches
// per-session details from the conference website API and delivers
// rendered messages to Slack incoming webhooks.
//
// Webhooks are addressed by logical name. The secret URL is resolved from
// configuration at call time and never appears in logs or error strings.
package apiclient
