package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/transport/web/logx"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
	v1 "github.com/EgorLis/event-gallery/internal/transport/web/v1"
)

// Download godoc
// @Summary     Download photos as a zip archive
// @Description GET archives every photo; POST {"photo_ids": [...]} archives a selection
// @Tags        photos
// @Accept      json
// @Produce     application/zip
// @Param       id   path string true  "session id"
// @Param       body body object false "photo_ids"
// @Success     200 {file} []byte
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Router      /api/sessions/{id}/download [get]
// @Router      /api/sessions/{id}/download [post]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	const op = "photos.download"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	var req downloadRequest
	if r.Method == http.MethodPost {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			logx.Error(h.Log, reqID, op, "bad json", err)
			v1.WriteDomainError(w, r, fmt.Errorf("decode photo ids: %w: %v", domain.ErrBadParams, err))
			return
		}
	}

	archive, err := h.Svc.PrepareArchive(r.Context(), sid, req.PhotoIDs)
	if err != nil {
		logx.Error(h.Log, reqID, op, "prepare failed", err, "session_id", sid, "requested", len(req.PhotoIDs))
		v1.WriteDomainError(w, r, err)
		return
	}

	zw := &lazyWriter{w: w, filename: archive.Filename}
	st, err := archive.WriteTo(r.Context(), zw)
	if err != nil {
		logx.Error(h.Log, reqID, op, "archive failed", err, "session_id", sid, "entries", st.Entries)
		if !zw.started {
			v1.WriteDomainError(w, r, err)
			return
		}
		// headers are gone; drop the connection so the client sees a broken download
		panic(http.ErrAbortHandler)
	}
	logx.Info(h.Log, reqID, op, "ok", "session_id", sid, "entries", st.Entries, "omitted", st.Omitted, "bytes", st.Bytes)
}

// lazyWriter commits the zip headers on the first byte so that an archive
// with no entries can still be answered with an error envelope.
type lazyWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		h := l.w.Header()
		h.Set("Content-Type", "application/zip")
		h.Set("Content-Disposition", contentDisposition("attachment", l.filename))
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}
