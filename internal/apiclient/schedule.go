package apiclient

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"confbot/internal/programme"
	logx "confbot/pkg/logx"

	"github.com/spf13/afero"
)

// FetchSchedule fetches and parses the live schedule. When that fails it
// falls back to the cache file, then to the last good in-memory copy.
func (c *Client) FetchSchedule(ctx context.Context) (programme.FetchResult, error) {
	cfg := c.config()

	sched, raw, err := c.fetchLive(ctx, cfg)
	if err == nil {
		c.log.Info("fetched schedule",
			logx.String("hash", sched.Hash),
			logx.Int("sessions", len(sched.Sessions)),
			logx.Int("breaks", len(sched.Breaks)),
		)
		c.goodMu.Lock()
		c.lastGood = raw
		c.goodMu.Unlock()
		if werr := c.writeCache(cfg.ScheduleCachePath, raw); werr != nil {
			c.log.Warn("schedule cache write failed", logx.String("path", cfg.ScheduleCachePath), logx.Err(werr))
		}
		return programme.FetchResult{Schedule: sched}, nil
	}

	c.log.Warn("schedule fetch failed; trying cache", logx.Err(err))
	return c.fromCache(cfg, err)
}

func (c *Client) fetchLive(ctx context.Context, cfg Config) (programme.Schedule, []byte, error) {
	raw, err := c.get(ctx, cfg.ScheduleURL, cfg.FetchTimeout)
	if err != nil {
		var se statusError
		if errors.As(err, &se) {
			return programme.Schedule{}, nil, &FetchError{Status: se.code, Err: err}
		}
		return programme.Schedule{}, nil, &FetchError{Err: err}
	}
	sched, err := programme.ParseSchedule(raw, cfg.Location, c.log)
	if err != nil {
		return programme.Schedule{}, nil, &FetchError{Err: err}
	}
	return sched, raw, nil
}

func (c *Client) fromCache(cfg Config, fetchErr error) (programme.FetchResult, error) {
	sources := []struct {
		name string
		load func() ([]byte, bool)
	}{
		{"file", func() ([]byte, bool) { return c.readCache(cfg.ScheduleCachePath) }},
		{"memory", c.memoryCopy},
	}
	for _, src := range sources {
		raw, ok := src.load()
		if !ok {
			continue
		}
		sched, err := programme.ParseSchedule(raw, cfg.Location, c.log)
		if err != nil {
			c.log.Warn("cached schedule unusable", logx.String("source", src.name), logx.Err(err))
			continue
		}
		c.log.Info("using cached schedule", logx.String("source", src.name), logx.String("hash", sched.Hash))
		return programme.FetchResult{Schedule: sched, FromCache: true}, nil
	}
	return programme.FetchResult{}, fmt.Errorf("%w: %w", ErrCacheUnavailable, fetchErr)
}

func (c *Client) readCache(path string) ([]byte, bool) {
	b, err := afero.ReadFile(c.fs, path)
	if err != nil {
		c.log.Debug("schedule cache not readable", logx.String("path", path), logx.Err(err))
		return nil, false
	}
	return b, len(b) > 0
}

func (c *Client) memoryCopy() ([]byte, bool) {
	c.goodMu.Lock()
	defer c.goodMu.Unlock()
	return c.lastGood, c.lastGood != nil
}

// writeCache replaces the cache file atomically.
func (c *Client) writeCache(path string, raw []byte) error {
	f, err := afero.TempFile(c.fs, filepath.Dir(path), ".schedule-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = c.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return c.fs.Rename(tmp, path)
}
