package storage

import (
	"context"
	"errors"
	"strings"

	logx "confbot/pkg/logx"
)

// Store is the audit API used by the notifier.
type Store interface {
	AppendDelivery(ctx context.Context, r DeliveryRecord) error
	AppendFetch(ctx context.Context, r FetchRecord) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
