package sessions

import (
	"context"
	"log"
	"time"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/gallery"
)

// Service is the part of gallery.Service the HTTP surface drives.
type Service interface {
	CreateSession(ctx context.Context, in domain.NewSession, files []domain.Upload) (domain.UploadResult, error)
	AddPhotos(ctx context.Context, id domain.SessionID, files []domain.Upload) (domain.UploadResult, error)
	GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error)
	UpdateSettings(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error)
	DeleteSession(ctx context.Context, id domain.SessionID) (gallery.DeleteReport, error)
	ListPhotos(ctx context.Context, id domain.SessionID, page, perPage int) (domain.PhotoPage, error)
	Thumbnail(ctx context.Context, sid domain.SessionID, pid domain.PhotoID) (domain.Blob, error)
	Original(ctx context.Context, sid domain.SessionID, pid domain.PhotoID) (domain.Blob, error)
	PrepareArchive(ctx context.Context, sid domain.SessionID, ids []domain.PhotoID) (*gallery.Archive, error)
}

type Handler struct {
	Log *log.Logger
	Svc Service

	BaseURL        string // prefix for share and object URLs; empty keeps them relative
	MaxUploadBytes int64
	DefaultPerPage int
}

type sessionDTO struct {
	domain.Session
	ShareURL string `json:"share_url"`
}

type uploadDTO struct {
	SessionID  domain.SessionID `json:"session_id"`
	ShareURL   string           `json:"share_url"`
	PhotoCount int              `json:"photo_count"`
	ExpiresAt  time.Time        `json:"expires_at"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
}

type photoDTO struct {
	ID               domain.PhotoID `json:"id"`
	OriginalFilename string         `json:"original_filename"`
	FileSize         int64          `json:"file_size"`
	ThumbnailURL     string         `json:"thumbnail_url"`
	OriginalURL      string         `json:"original_url"`
}

type photoPageDTO struct {
	Photos     []photoDTO        `json:"photos"`
	Pagination domain.Pagination `json:"pagination"`
}

type downloadRequest struct {
	PhotoIDs []domain.PhotoID `json:"photo_ids"`
}

func (h *Handler) shareURL(id domain.SessionID) string {
	return h.BaseURL + "/api/sessions/" + id.String()
}

func (h *Handler) objectURL(sid domain.SessionID, ref domain.ObjectHandle) string {
	return h.BaseURL + "/api/sessions/" + sid.String() + "/photos/" + ref.PhotoID.String() + "/" + string(ref.Role)
}

func (h *Handler) uploadView(res domain.UploadResult) uploadDTO {
	return uploadDTO{
		SessionID:  res.SessionID,
		ShareURL:   h.shareURL(res.SessionID),
		PhotoCount: res.PhotoCount,
		ExpiresAt:  res.ExpiresAt,
		Skipped:    res.Skipped,
		Failed:     res.Failed,
	}
}

func (h *Handler) pageView(sid domain.SessionID, pg domain.PhotoPage) photoPageDTO {
	out := photoPageDTO{Photos: make([]photoDTO, 0, len(pg.Photos)), Pagination: pg.Pagination}
	for _, p := range pg.Photos {
		out.Photos = append(out.Photos, photoDTO{
			ID:               p.ID,
			OriginalFilename: p.OriginalFilename,
			FileSize:         p.FileSize,
			ThumbnailURL:     h.objectURL(sid, p.Thumbnail),
			OriginalURL:      h.objectURL(sid, p.Original),
		})
	}
	return out
}
