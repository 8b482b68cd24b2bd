package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/transport/web/mw"
)

// MapDomainError picks the HTTP status and envelope error for err.
func MapDomainError(err error) (httpStatus int, env domain.APIEnvelope) {
	switch {
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, domain.Fail(domain.ErrCodeBadParams, "bad params")
	case errors.Is(err, domain.ErrEmptyBatch):
		return http.StatusBadRequest, domain.Fail(domain.ErrCodeEmptyBatch, "no files uploaded")
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, domain.Fail(domain.ErrCodeMethodNotAllowed, "method not allowed")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Fail(domain.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrExpired):
		return http.StatusGone, domain.Fail(domain.ErrCodeExpired, "session expired")
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict, domain.Fail(domain.ErrCodeBusy, "session is busy, retry later")
	case errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusRequestEntityTooLarge, domain.Fail(domain.ErrCodeCapacityExceeded, "too many photos")
	case errors.Is(err, domain.ErrDecode):
		return http.StatusUnprocessableEntity, domain.Fail(domain.ErrCodeDecode, "image could not be decoded")
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, domain.Fail(domain.ErrCodeStorageUnavailable, "storage unavailable")
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodePersistence, "persistence error")
	default:
		// timeouts and cancellations land here too
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodeUnexpected, "unexpected")
	}
}

// WriteEnvelope writes the envelope; HEAD gets headers only.
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env domain.APIEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(mw.HeaderRequestID, mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkData(data))
}

func WriteCreated(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusCreated, domain.OkData(data))
}

func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}

// HTTPTime formats t for Last-Modified style headers.
func HTTPTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
