package web

import (
	"log"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/EgorLis/event-gallery/internal/docs"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
	"github.com/EgorLis/event-gallery/internal/transport/web/v1/health"
	"github.com/EgorLis/event-gallery/internal/transport/web/v1/sessions"
)

func newRouter(hh *health.Handler, sh *sessions.Handler, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)

	// sessions
	mux.HandleFunc("POST /api/sessions", sh.Create)
	mux.HandleFunc("GET /api/sessions/{id}", sh.Get)
	mux.HandleFunc("PATCH /api/sessions/{id}", sh.Update)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.Delete)

	// photos
	mux.HandleFunc("POST /api/sessions/{id}/photos", sh.AddPhotos)
	mux.HandleFunc("GET /api/sessions/{id}/photos", sh.ListPhotos)
	mux.HandleFunc("GET /api/sessions/{id}/photos/{photo}/thumbnail", sh.Thumbnail)
	mux.HandleFunc("GET /api/sessions/{id}/photos/{photo}/original", sh.Original)
	mux.HandleFunc("GET /api/sessions/{id}/download", sh.Download)
	mux.HandleFunc("POST /api/sessions/{id}/download", sh.Download)

	// swagger
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	return mw.WithRequestID(mw.Logging(logger)(mux))
}
