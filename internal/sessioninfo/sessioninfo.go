// Package sessioninfo serves enriched sessions to notification tasks.
//
// The repository behind it is replaced wholesale on every accepted schedule.
// Enrichment happens on read: website URL and audience level come from the
// detail API, channel, Slido and livestream links from room configuration.
package sessioninfo

import (
	"context"
	"sync"
	"time"

	"confbot/internal/programme"
	logx "confbot/pkg/logx"
)

// DetailFetcher is the part of the API client used for enrichment.
type DetailFetcher interface {
	FetchSessionDetails(ctx context.Context, code string) (programme.SessionDetails, error)
}

// Config is the room configuration used to derive local enrichment.
type Config struct {
	Location *time.Location
	Rooms    programme.Rooms
}

type Service struct {
	api DetailFetcher
	log logx.Logger

	mu   sync.RWMutex
	repo *programme.Repository
	cfg  Config
}

func New(api DetailFetcher, cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{api: api, log: log, repo: programme.NewRepository(), cfg: cfg}
}

// Fetch returns the enriched session with the given code. ok is false when
// the code is unknown. A failing detail lookup is logged and the session is
// returned without those fields.
func (s *Service) Fetch(ctx context.Context, code string) (programme.Session, bool) {
	s.mu.RLock()
	sess, ok := s.repo.Get(code)
	cfg := s.cfg
	s.mu.RUnlock()
	if !ok {
		return programme.Session{}, false
	}

	if (sess.URL == "" || sess.Experience == "") && s.api != nil {
		d, err := s.api.FetchSessionDetails(ctx, code)
		if err != nil {
			s.log.Warn("session details unavailable", logx.String("code", code), logx.Err(err))
		} else {
			if sess.URL == "" {
				sess.URL = d.URL
			}
			if sess.Experience == "" {
				sess.Experience = d.Experience
			}
		}
	}

	room, ok := cfg.Rooms.Lookup(sess.RoomID)
	if !ok {
		s.log.Debug("no room configuration", logx.String("code", code), logx.Int("room_id", sess.RoomID))
		return sess, true
	}
	sess.ChannelID = room.ChannelID
	sess.SlidoRoomURL = room.SlidoURL
	if u, ok := room.Livestream(sess.Start, cfg.Location); ok {
		sess.LivestreamURL = u
	}
	return sess, true
}

// Refresh replaces the repository with one built from sessions.
func (s *Service) Refresh(sessions []programme.Session) {
	repo := programme.NewRepository(sessions...)
	s.mu.Lock()
	s.repo = repo
	s.mu.Unlock()
	s.log.Debug("session repository refreshed", logx.Int("sessions", repo.Len()))
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.Len()
}

// Apply swaps the room configuration. The repository is kept.
func (s *Service) Apply(cfg Config) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}
