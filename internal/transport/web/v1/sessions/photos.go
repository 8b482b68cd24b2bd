package sessions

import (
	"net/http"
	"strconv"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/transport/web/logx"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
	v1 "github.com/EgorLis/event-gallery/internal/transport/web/v1"
)

// ListPhotos godoc
// @Summary     List photos of a session
// @Tags        photos
// @Produce     json
// @Param       id       path  string true  "session id"
// @Param       page     query int    false "1-based page"
// @Param       per_page query int    false "page size"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Router      /api/sessions/{id}/photos [get]
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	const op = "photos.list"
	reqID := mw.RequestIDFromCtx(r.Context())

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	page, err := intQuery(r, "page", 1)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad page", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	perPage, err := intQuery(r, "per_page", h.DefaultPerPage)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad per_page", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	pg, err := h.Svc.ListPhotos(r.Context(), sid, page, perPage)
	if err != nil {
		logx.Error(h.Log, reqID, op, "list failed", err, "session_id", sid)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", sid, "page", page, "items", len(pg.Photos))
	v1.WriteOKData(w, r, h.pageView(sid, pg))
}

// Thumbnail godoc
// @Summary     Get the JPEG thumbnail of a photo
// @Tags        photos
// @Produce     jpeg
// @Param       id    path string true "session id"
// @Param       photo path string true "photo id"
// @Success     200 {file} []byte
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/sessions/{id}/photos/{photo}/thumbnail [get]
func (h *Handler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveObject(w, r, domain.RoleThumbnail)
}

// Original godoc
// @Summary     Get the original upload of a photo
// @Tags        photos
// @Produce     octet-stream
// @Param       id    path string true "session id"
// @Param       photo path string true "photo id"
// @Success     200 {file} []byte
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Failure     503 {object} domain.APIEnvelope
// @Router      /api/sessions/{id}/photos/{photo}/original [get]
func (h *Handler) Original(w http.ResponseWriter, r *http.Request) {
	h.serveObject(w, r, domain.RoleOriginal)
}

func (h *Handler) serveObject(w http.ResponseWriter, r *http.Request, role domain.Role) {
	op := "photos." + string(role)
	reqID := mw.RequestIDFromCtx(r.Context())

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	pid, err := pathID(r, "photo")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad photo id", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	var blob domain.Blob
	if role == domain.RoleThumbnail {
		blob, err = h.Svc.Thumbnail(r.Context(), sid, pid)
	} else {
		blob, err = h.Svc.Original(r.Context(), sid, pid)
	}
	if err != nil {
		logx.Error(h.Log, reqID, op, "fetch failed", err, "session_id", sid, "photo_id", pid)
		v1.WriteDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Content-Disposition", contentDisposition("inline", blob.Filename))
	if !blob.ModTime.IsZero() {
		w.Header().Set("Last-Modified", v1.HTTPTime(blob.ModTime))
	}
	// objects never change once written
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(blob.Data)
	}
	logx.Info(h.Log, reqID, op, "ok", "photo_id", pid, "bytes", len(blob.Data))
}
