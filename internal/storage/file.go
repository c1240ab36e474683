package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "confbot/pkg/logx"
)

// fileStore appends JSON Lines to two files derived from the configured path:
//   - <prefix>.deliveries.jsonl
//   - <prefix>.fetches.jsonl
type fileStore struct {
	log logx.Logger

	mu         sync.Mutex
	deliveries *os.File
	fetches    *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	df, err := openAppend(prefix + ".deliveries.jsonl")
	if err != nil {
		return nil, err
	}
	ff, err := openAppend(prefix + ".fetches.jsonl")
	if err != nil {
		_ = df.Close()
		return nil, err
	}
	log.Debug("file storage opened", logx.String("prefix", prefix))
	return &fileStore{log: log, deliveries: df, fetches: ff}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.deliveries != nil {
		errs = append(errs, s.deliveries.Close())
		s.deliveries = nil
	}
	if s.fetches != nil {
		errs = append(errs, s.fetches.Close())
		s.fetches = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) AppendDelivery(ctx context.Context, r DeliveryRecord) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return s.append(ctx, func() *os.File { return s.deliveries }, r)
}

func (s *fileStore) AppendFetch(ctx context.Context, r FetchRecord) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	return s.append(ctx, func() *os.File { return s.fetches }, r)
}

func (s *fileStore) append(ctx context.Context, file func() *os.File, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := file()
	if f == nil {
		return ErrDisabled
	}
	return json.NewEncoder(f).Encode(v)
}
