package gallery

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// GetSession returns a session that has not expired yet.
func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	return s.activeSession(ctx, id)
}

// ListPhotos returns one page of the session in upload order. A page past
// the end is empty, not an error.
func (s *Service) ListPhotos(ctx context.Context, id domain.SessionID, page, perPage int) (domain.PhotoPage, error) {
	if page < 1 || perPage < 1 {
		return domain.PhotoPage{}, fmt.Errorf("page=%d per_page=%d: %w", page, perPage, domain.ErrBadParams)
	}
	if perPage > s.cfg.MaxPerPage {
		perPage = s.cfg.MaxPerPage
	}
	if _, err := s.activeSession(ctx, id); err != nil {
		return domain.PhotoPage{}, err
	}

	total, err := s.repo.CountPhotos(ctx, id)
	if err != nil {
		return domain.PhotoPage{}, err
	}
	pg := domain.NewPagination(page, perPage, total)

	out := domain.PhotoPage{Photos: []domain.PhotoView{}, Pagination: pg}
	if pg.Offset() >= total {
		return out, nil
	}
	photos, err := s.repo.ListPhotos(ctx, id, pg.Offset(), perPage)
	if err != nil {
		return domain.PhotoPage{}, err
	}
	for _, p := range photos {
		out.Photos = append(out.Photos, domain.PhotoView{
			ID:               p.ID,
			OriginalFilename: p.OriginalFilename,
			FileSize:         p.FileSize,
			Thumbnail:        domain.ObjectHandle{PhotoID: p.ID, Role: domain.RoleThumbnail},
			Original:         domain.ObjectHandle{PhotoID: p.ID, Role: domain.RoleOriginal},
		})
	}
	return out, nil
}

// Thumbnail returns the JPEG preview of a photo in the session.
func (s *Service) Thumbnail(ctx context.Context, sid domain.SessionID, pid domain.PhotoID) (domain.Blob, error) {
	return s.object(ctx, sid, pid, domain.RoleThumbnail)
}

// Original returns the uploaded bytes with their stored content type.
func (s *Service) Original(ctx context.Context, sid domain.SessionID, pid domain.PhotoID) (domain.Blob, error) {
	return s.object(ctx, sid, pid, domain.RoleOriginal)
}

func (s *Service) object(ctx context.Context, sid domain.SessionID, pid domain.PhotoID, role domain.Role) (domain.Blob, error) {
	if _, err := s.activeSession(ctx, sid); err != nil {
		return domain.Blob{}, err
	}
	p, err := s.repo.PhotoByID(ctx, pid)
	if err != nil {
		return domain.Blob{}, err
	}
	if p.SessionID != sid {
		return domain.Blob{}, fmt.Errorf("photo %s not in session %s: %w", pid, sid, domain.ErrNotFound)
	}

	key, contentType, name := p.OriginalKey, p.ContentType, p.OriginalFilename
	if role == domain.RoleThumbnail {
		key, contentType, name = p.ThumbnailKey, "image/jpeg", thumbnailName(p.OriginalFilename)
	}

	obj, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Printf("object missing for photo=%s key=%s", pid, key)
		}
		return domain.Blob{}, storageErr("get", key, err)
	}
	if contentType == "" {
		contentType = obj.ContentType
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return domain.Blob{Data: obj.Data, ContentType: contentType, Filename: name, ModTime: p.UploadedAt}, nil
}

func thumbnailName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "photo"
	}
	return base + "_thumb." + domain.DefaultExtension
}
