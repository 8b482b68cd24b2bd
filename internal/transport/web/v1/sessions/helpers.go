package sessions

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// multipart parts above this stay on disk instead of in memory
const formMemory = 32 << 20

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %q: %w", name, raw, domain.ErrBadParams)
	}
	return id, nil
}

// parseForm reads a multipart body capped at maxBytes.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("body over %d bytes: %w", tooBig.Limit, domain.ErrCapacityExceeded)
		}
		return fmt.Errorf("parse multipart: %w: %v", domain.ErrBadParams, err)
	}
	return nil
}

// uploads collects every "files" part in form order.
func uploads(form *multipart.Form) ([]domain.Upload, error) {
	if form == nil {
		return nil, nil
	}
	headers := form.File["files"]
	out := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %q: %w: %v", fh.Filename, domain.ErrBadParams, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %q: %w: %v", fh.Filename, domain.ErrBadParams, err)
		}
		out = append(out, domain.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return out, nil
}

func optionalString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// intQuery returns def when key is absent and ErrBadParams when it is not a number.
func intQuery(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, s, domain.ErrBadParams)
	}
	return n, nil
}

// contentDisposition quotes filename and adds an RFC 5987 form for non-ASCII names.
func contentDisposition(kind, filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	v := fmt.Sprintf("%s; filename=%q", kind, ascii)
	if ascii != filename {
		v += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return v
}
