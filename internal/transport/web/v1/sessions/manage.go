package sessions

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/transport/web/logx"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
	v1 "github.com/EgorLis/event-gallery/internal/transport/web/v1"
)

// Get godoc
// @Summary     Get session details
// @Tags        sessions
// @Produce     json
// @Param       id path string true "session id"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Router      /api/sessions/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "sessions.get"
	reqID := mw.RequestIDFromCtx(r.Context())

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	sess, err := h.Svc.GetSession(r.Context(), sid)
	if err != nil {
		logx.Error(h.Log, reqID, op, "lookup failed", err, "session_id", sid)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", sid)
	v1.WriteOKData(w, r, sessionDTO{Session: sess, ShareURL: h.shareURL(sid)})
}

// Update godoc
// @Summary     Update session settings
// @Description JSON body; absent fields stay unchanged, null clears welcome_message and theme_colors
// @Tags        sessions
// @Accept      json
// @Produce     json
// @Param       id   path string true "session id"
// @Param       body body object true "name, mode, welcome_message, theme_colors"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Router      /api/sessions/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "sessions.update"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	var patch domain.SessionPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		logx.Error(h.Log, reqID, op, "bad json", err)
		v1.WriteDomainError(w, r, fmt.Errorf("decode patch: %w: %v", domain.ErrBadParams, err))
		return
	}

	sess, err := h.Svc.UpdateSettings(r.Context(), sid, patch)
	if err != nil {
		logx.Error(h.Log, reqID, op, "update failed", err, "session_id", sid)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", sid)
	v1.WriteOKData(w, r, sessionDTO{Session: sess, ShareURL: h.shareURL(sid)})
}

// Delete godoc
// @Summary     Delete a session with all its photos
// @Tags        sessions
// @Produce     json
// @Param       id path string true "session id"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     404 {object} domain.APIEnvelope
// @Failure     409 {object} domain.APIEnvelope
// @Router      /api/sessions/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "sessions.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	rep, err := h.Svc.DeleteSession(r.Context(), sid)
	if err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "session_id", sid)
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", sid, "photos", rep.Photos, "object_failures", rep.ObjectFailures)
	v1.WriteOKData(w, r, rep)
}
