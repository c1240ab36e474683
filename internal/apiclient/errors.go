package apiclient

import (
	"errors"
	"fmt"
)

// ErrCacheUnavailable is returned by FetchSchedule when the live fetch failed
// and neither the cache file nor an in-memory copy could be used.
var ErrCacheUnavailable = errors.New("schedule cache unavailable")

// FetchError is a failed live schedule fetch: transport error, timeout,
// non-2xx status or an unparseable document.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("schedule fetch: status %d", e.Status)
	}
	return "schedule fetch: " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// DetailFetchError is a failed per-session detail lookup.
type DetailFetchError struct {
	Code   string
	Status int
	Err    error
}

func (e *DetailFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("session %s details: status %d", e.Code, e.Status)
	}
	return fmt.Sprintf("session %s details: %v", e.Code, e.Err)
}

func (e *DetailFetchError) Unwrap() error { return e.Err }

// DeliveryError is a failed webhook delivery. It carries the logical webhook
// name only; the underlying error is not wrapped so the URL cannot leak
// through the chain.
type DeliveryError struct {
	Webhook string
	Status  int
	Message string
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("deliver to webhook %q: status %d: %s", e.Webhook, e.Status, e.Message)
	}
	return fmt.Sprintf("deliver to webhook %q: %s", e.Webhook, e.Message)
}

// statusError is returned by get for non-2xx responses.
type statusError struct{ code int }

func (e statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }
