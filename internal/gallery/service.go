// Package gallery owns the session photo lifecycle: ingestion, retrieval,
// archives, settings and deletion.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/imaging"
)

type Config struct {
	MaxPhotosPerSession int
	Retention           time.Duration
	Thumbnail           imaging.Options
	ThumbWorkers        int
	DefaultPerPage      int
	MaxPerPage          int
}

func DefaultConfig() Config {
	return Config{
		MaxPhotosPerSession: 100,
		Retention:           7 * 24 * time.Hour,
		Thumbnail:           imaging.DefaultOptions(),
		ThumbWorkers:        4,
		DefaultPerPage:      20,
		MaxPerPage:          100,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxPhotosPerSession <= 0 {
		c.MaxPhotosPerSession = def.MaxPhotosPerSession
	}
	if c.Retention <= 0 {
		c.Retention = def.Retention
	}
	if c.ThumbWorkers <= 0 {
		c.ThumbWorkers = def.ThumbWorkers
	}
	if c.DefaultPerPage <= 0 {
		c.DefaultPerPage = def.DefaultPerPage
	}
	if c.MaxPerPage <= 0 {
		c.MaxPerPage = def.MaxPerPage
	}
	if c.DefaultPerPage > c.MaxPerPage {
		c.DefaultPerPage = c.MaxPerPage
	}
	return c
}

// Repo is the metadata the service needs; domain.Repo satisfies it.
type Repo interface {
	domain.SessionsRepo
	domain.PhotosRepo
}

type Service struct {
	cfg    Config
	repo   Repo
	store  domain.ObjectStore
	locker Locker
	log    *log.Logger

	now   func() time.Time
	thumb func([]byte, imaging.Options) ([]byte, error)
}

// New wires the service. A nil locker serializes writes in-process only.
func New(cfg Config, repo Repo, store domain.ObjectStore, locker Locker, logger *log.Logger) *Service {
	cfg = cfg.normalized()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if locker == nil {
		locker = NewLocalLocker(30 * time.Second)
	}
	return &Service{
		cfg:    cfg,
		repo:   repo,
		store:  store,
		locker: locker,
		log:    logger,
		now:    time.Now,
		thumb:  imaging.Thumbnail,
	}
}

// activeSession loads a session and rejects one whose retention lapsed.
func (s *Service) activeSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	sess, err := s.repo.SessionByID(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Expired(s.now()) {
		return domain.Session{}, fmt.Errorf("session %s expired at %s: %w", id, sess.ExpiresAt.Format(time.RFC3339), domain.ErrExpired)
	}
	return sess, nil
}

// storageErr folds every object-store failure into ErrStorageUnavailable.
func storageErr(op, key string, err error) error {
	if errors.Is(err, domain.ErrStorageUnavailable) {
		return fmt.Errorf("%s %s: %w", op, key, err)
	}
	return fmt.Errorf("%s %s: %w: %v", op, key, domain.ErrStorageUnavailable, err)
}
