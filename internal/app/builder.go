package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EgorLis/event-gallery/internal/config"
	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/gallery"
	"github.com/EgorLis/event-gallery/internal/imaging"
	redisx "github.com/EgorLis/event-gallery/internal/infra/cache/redis"
	"github.com/EgorLis/event-gallery/internal/infra/database/postgres"
	"github.com/EgorLis/event-gallery/internal/infra/database/sqlite"
	"github.com/EgorLis/event-gallery/internal/infra/storage/memory"
	s3storage "github.com/EgorLis/event-gallery/internal/infra/storage/s3"
	"github.com/EgorLis/event-gallery/internal/transport/web"
)

type objectStore interface {
	domain.ObjectStore
	Ping(ctx context.Context) error
}

type App struct {
	config  *config.Config
	server  *web.Server
	log     *log.Logger
	service *gallery.Service
	storage objectStore
	cache   *redisx.Cache // nil without REDIS_ADDR
	repo    domain.Repo
}

func Build(ctx context.Context) (*App, error) {
	base := log.New(os.Stdout, "[app] ", log.LstdFlags)

	serverLog := log.New(base.Writer(), base.Prefix()+"[server] ", base.Flags())
	galleryLog := log.New(base.Writer(), base.Prefix()+"[gallery] ", base.Flags())

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	base.Printf("\n  configuration: %s-------------------", cfg)

	repo, err := buildRepo(ctx, base, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStorage(ctx, base, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	var (
		cache  *redisx.Cache
		locker gallery.Locker
	)
	if cfg.RedisAddr != "" {
		base.Println("init Redis")
		redisLog := log.New(base.Writer(), base.Prefix()+"[redis] ", base.Flags())
		cache = redisx.New(redisx.Config{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
			TTL:      cfg.LockTTL(),
			Wait:     cfg.LockWait(),
		}, redisLog)
		if err := cache.Ping(ctx); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed init redis: %w", err)
		}
		locker = cache
		base.Println("Redis is initialized")
	} else {
		base.Println("REDIS_ADDR empty, upload lock is process-local")
		locker = gallery.NewLocalLocker(cfg.LockWait())
	}

	svc := gallery.New(gallery.Config{
		MaxPhotosPerSession: cfg.MaxPhotosPerSession,
		Retention:           cfg.Retention(),
		Thumbnail: imaging.Options{
			MaxWidth:  cfg.ThumbMaxWidth,
			MaxHeight: cfg.ThumbMaxHeight,
			Quality:   cfg.ThumbQuality,
			MaxPixels: cfg.ThumbMaxPixels,
		},
		ThumbWorkers:   cfg.ThumbWorkers,
		DefaultPerPage: cfg.DefaultPerPage,
		MaxPerPage:     cfg.MaxPerPage,
	}, repo, store, locker, galleryLog)

	base.Println("init Server")
	probes := web.Probes{DB: repo, Storage: store}
	if cache != nil {
		probes.Cache = cache
	}
	server := web.New(serverLog, cfg, svc, probes)
	base.Println("Server is initialized")

	base.Println("build ended")
	return &App{
		config:  cfg,
		server:  server,
		log:     base,
		service: svc,
		storage: store,
		repo:    repo,
		cache:   cache,
	}, nil
}

func buildRepo(ctx context.Context, base *log.Logger, cfg *config.Config) (domain.Repo, error) {
	switch cfg.DBDriver {
	case "sqlite":
		base.Println("init SQLite")
		repo, err := sqlite.Open(log.New(base.Writer(), base.Prefix()+"[sqlite] ", base.Flags()), cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed init sqlite: %w", err)
		}
		base.Println("SQLite is initialized")
		return repo, nil
	default:
		base.Println("init PostgreSQL")
		pgLog := log.New(base.Writer(), base.Prefix()+"[postgres] ", base.Flags())
		repo, err := postgres.NewPGRepo(ctx, pgLog, cfg.GetDSN(), cfg.DBScheme)
		if err != nil {
			return nil, fmt.Errorf("failed init postgres: %w", err)
		}
		base.Println("PostgreSQL is initialized")
		return repo, nil
	}
}

func buildStorage(ctx context.Context, base *log.Logger, cfg *config.Config) (objectStore, error) {
	if cfg.StorageDriver == "memory" {
		base.Println("init in-memory storage (objects are lost on exit)")
		return memory.New(log.New(base.Writer(), base.Prefix()+"[memory] ", base.Flags())), nil
	}

	base.Println("init S3 storage")
	s3cfg := s3storage.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		PathStyle: cfg.S3PathStyle,
	}
	s3, err := s3storage.New(ctx, s3cfg, log.New(base.Writer(), base.Prefix()+"[s3] ", base.Flags()))
	if err != nil {
		return nil, fmt.Errorf("failed init s3: %w", err)
	}
	base.Println("S3 storage is initialized")
	return s3, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Println("start application...")
	go a.server.Run()
	<-ctx.Done()
	a.log.Println("stop application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.server.Close(stopCtx)
	a.Close()

	return nil
}

// PurgeExpired runs one expiry sweep and releases the app.
func (a *App) PurgeExpired(ctx context.Context, limit int) (gallery.PurgeReport, error) {
	defer a.Close()
	rep, err := a.service.PurgeExpired(ctx, limit)
	if err != nil {
		return rep, fmt.Errorf("purge expired: %w", err)
	}
	return rep, nil
}

func (a *App) Close() {
	a.repo.Close()
	if a.cache != nil {
		a.cache.Close()
	}
}
