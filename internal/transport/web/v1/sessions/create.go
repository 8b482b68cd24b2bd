package sessions

import (
	"net/http"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/transport/web/logx"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
	v1 "github.com/EgorLis/event-gallery/internal/transport/web/v1"
)

// Create godoc
// @Summary     Create a session and upload its first photos
// @Description multipart: name, mode (privacy|browse), welcome_message, theme_primary, theme_secondary, files (repeated)
// @Tags        sessions
// @Accept      multipart/form-data
// @Produce     json
// @Param       name            formData string true  "session name"
// @Param       mode            formData string false "privacy|browse"
// @Param       welcome_message formData string false "welcome message"
// @Param       theme_primary   formData string false "primary theme color"
// @Param       theme_secondary formData string false "secondary theme color"
// @Param       files           formData file   true  "photos"
// @Success     201 {object} domain.APIEnvelope{data=object}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     413 {object} domain.APIEnvelope
// @Router      /api/sessions [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "sessions.create"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	if err := h.parseForm(w, r); err != nil {
		logx.Error(h.Log, reqID, op, "bad form", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, err := uploads(r.MultipartForm)
	if err != nil {
		logx.Error(h.Log, reqID, op, "read files failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	in := domain.NewSession{
		Name:           r.FormValue("name"),
		Mode:           domain.Mode(r.FormValue("mode")),
		WelcomeMessage: optionalString(r, "welcome_message"),
	}
	primary, secondary := optionalString(r, "theme_primary"), optionalString(r, "theme_secondary")
	if primary != nil || secondary != nil {
		in.Theme = &domain.ThemeColors{}
		if primary != nil {
			in.Theme.Primary = *primary
		}
		if secondary != nil {
			in.Theme.Secondary = *secondary
		}
	}

	res, err := h.Svc.CreateSession(r.Context(), in, files)
	if err != nil {
		logx.Error(h.Log, reqID, op, "create failed", err, "files", len(files))
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", res.SessionID, "photo_count", res.PhotoCount,
		"skipped", res.Skipped, "failed", res.Failed)
	v1.WriteCreated(w, r, h.uploadView(res))
}

// AddPhotos godoc
// @Summary     Upload more photos into a session
// @Tags        sessions
// @Accept      multipart/form-data
// @Produce     json
// @Param       id    path     string true "session id"
// @Param       files formData file   true "photos"
// @Success     200 {object} domain.APIEnvelope{data=object}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     409 {object} domain.APIEnvelope
// @Failure     410 {object} domain.APIEnvelope
// @Failure     413 {object} domain.APIEnvelope
// @Router      /api/sessions/{id}/photos [post]
func (h *Handler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	const op = "sessions.add_photos"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	sid, err := pathID(r, "id")
	if err != nil {
		logx.Error(h.Log, reqID, op, "bad session id", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	if err := h.parseForm(w, r); err != nil {
		logx.Error(h.Log, reqID, op, "bad form", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, err := uploads(r.MultipartForm)
	if err != nil {
		logx.Error(h.Log, reqID, op, "read files failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}

	res, err := h.Svc.AddPhotos(r.Context(), sid, files)
	if err != nil {
		logx.Error(h.Log, reqID, op, "upload failed", err, "session_id", sid, "files", len(files))
		v1.WriteDomainError(w, r, err)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "session_id", sid, "photo_count", res.PhotoCount)
	v1.WriteOKData(w, r, h.uploadView(res))
}
