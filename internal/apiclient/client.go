package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "confbot/pkg/logx"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 16 << 20

// Config is the resolved client configuration.
type Config struct {
	ScheduleURL string
	// SessionAPIURL must contain "{code}".
	SessionAPIURL string
	// SessionWebsiteURL may contain "{slug}" and "{code}".
	SessionWebsiteURL string
	ScheduleCachePath string
	FetchTimeout      time.Duration
	Location          *time.Location

	DeliveryRatePerSec int
	// Webhooks maps logical names to secret URLs.
	Webhooks map[string]string
}

type Option func(*Client)

// WithFS sets the filesystem holding the schedule cache (default: OS).
func WithFS(fs afero.Fs) Option {
	return func(c *Client) {
		if fs != nil {
			c.fs = fs
		}
	}
}

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(log logx.Logger) Option {
	return func(c *Client) { c.log = log }
}

type Client struct {
	fs      afero.Fs
	http    *http.Client
	log     logx.Logger
	limiter *rate.Limiter

	mu  sync.RWMutex
	cfg Config

	// lastGood is the raw body of the last successful live fetch.
	goodMu   sync.Mutex
	lastGood []byte
}

// New validates cfg and returns a client. The directory of the schedule
// cache must already exist on the configured filesystem.
func New(cfg Config, opts ...Option) (*Client, error) {
	c := &Client{
		fs:   afero.NewOsFs(),
		http: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log.IsZero() {
		c.log = logx.Nop()
	}
	cfg = normalize(cfg)
	if err := c.check(cfg); err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.limiter = rate.NewLimiter(rate.Limit(cfg.DeliveryRatePerSec), cfg.DeliveryRatePerSec)
	return c, nil
}

func normalize(cfg Config) Config {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.DeliveryRatePerSec <= 0 {
		cfg.DeliveryRatePerSec = 2
	}
	return cfg
}

func (c *Client) check(cfg Config) error {
	if strings.TrimSpace(cfg.ScheduleURL) == "" {
		return errors.New("apiclient: schedule URL is required")
	}
	if !strings.Contains(cfg.SessionAPIURL, "{code}") {
		return errors.New(`apiclient: session API URL must contain "{code}"`)
	}
	if strings.TrimSpace(cfg.ScheduleCachePath) == "" {
		return errors.New("apiclient: schedule cache path is required")
	}
	dir := filepath.Dir(cfg.ScheduleCachePath)
	ok, err := afero.DirExists(c.fs, dir)
	if err != nil {
		return fmt.Errorf("apiclient: schedule cache dir: %w", err)
	}
	if !ok {
		return fmt.Errorf("apiclient: schedule cache dir %q does not exist", dir)
	}
	return nil
}

// Apply swaps in a new configuration. An invalid configuration is rejected
// and the current one stays active.
func (c *Client) Apply(cfg Config) error {
	cfg = normalize(cfg)
	if err := c.check(cfg); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	c.limiter.SetLimit(rate.Limit(cfg.DeliveryRatePerSec))
	c.limiter.SetBurst(cfg.DeliveryRatePerSec)
	return nil
}

func (c *Client) config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// get performs a bounded GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, statusError{code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
