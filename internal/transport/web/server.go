package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/EgorLis/event-gallery/internal/config"
	"github.com/EgorLis/event-gallery/internal/transport/web/v1/health"
	"github.com/EgorLis/event-gallery/internal/transport/web/v1/sessions"
)

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

// Probes are the dependencies readiness pings; Cache may be nil.
type Probes struct {
	DB      health.Pinger
	Cache   health.Pinger
	Storage health.Pinger
}

func New(logger *log.Logger, cfg *config.Config, svc sessions.Service, probes Probes) *Server {
	srv := &http.Server{
		Addr:           cfg.AppPort,
		Handler:        NewHandler(logger, cfg, svc, probes),
		MaxHeaderBytes: 1 << 20,
		// uploads and archives of a full session are large
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      10 * time.Minute,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

// NewHandler builds the routed handler tree without a listener.
func NewHandler(logger *log.Logger, cfg *config.Config, svc sessions.Service, probes Probes) http.Handler {
	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	sessionsLog := log.New(logger.Writer(), logger.Prefix()+"[sessions] ", logger.Flags())

	healthHandler := &health.Handler{Log: healthLog, DB: probes.DB, Cache: probes.Cache, Storage: probes.Storage}
	sessionsHandler := &sessions.Handler{
		Log:            sessionsLog,
		Svc:            svc,
		BaseURL:        cfg.PublicBaseURL,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		DefaultPerPage: cfg.DefaultPerPage,
	}
	return newRouter(healthHandler, sessionsHandler, logger)
}

func (ws *Server) Run() {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		ws.log.Fatalf("error: %v", err)
	}
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
	}
	ws.log.Println("exited gracefully")
}
