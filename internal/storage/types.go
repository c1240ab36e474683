package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines files derived from Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord is one webhook delivery attempt.
// Webhook is the logical name; URLs are never stored.
type DeliveryRecord struct {
	At       time.Time `json:"at"`
	Kind     string    `json:"kind"` // "programme" or "room"
	Webhook  string    `json:"webhook"`
	Sessions []string  `json:"sessions,omitempty"`
	OK       bool      `json:"ok"`
	Status   int       `json:"status,omitempty"`
	Error    string    `json:"error,omitempty"`
	TookMS   int64     `json:"took_ms"`
}

// FetchRecord is one scheduling cycle that got a schedule.
type FetchRecord struct {
	At          time.Time `json:"at"`
	Hash        string    `json:"hash"`
	FromCache   bool      `json:"from_cache"`
	Sessions    int       `json:"sessions"`
	Rescheduled bool      `json:"rescheduled"`
	Forced      bool      `json:"forced,omitempty"`
	Tasks       int       `json:"tasks,omitempty"`
}
