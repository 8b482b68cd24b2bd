package gallery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// CreateSession validates the batch, creates the session and ingests the files.
func (s *Service) CreateSession(ctx context.Context, in domain.NewSession, files []domain.Upload) (domain.UploadResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return domain.UploadResult{}, fmt.Errorf("session name is empty: %w", domain.ErrBadParams)
	}
	if in.Mode == "" {
		in.Mode = domain.ModeBrowse
	}
	if !in.Mode.Valid() {
		return domain.UploadResult{}, fmt.Errorf("mode %q: %w", in.Mode, domain.ErrBadParams)
	}
	if err := s.checkBatch(0, len(files)); err != nil {
		return domain.UploadResult{}, err
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	sess, err := s.repo.CreateSession(ctx, domain.Session{
		ID:             uuid.New(),
		Name:           in.Name,
		Mode:           in.Mode,
		WelcomeMessage: in.WelcomeMessage,
		Theme:          in.Theme,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Retention),
	})
	if err != nil {
		return domain.UploadResult{}, err
	}
	s.log.Printf("session created id=%s name=%q expires_at=%s files=%d",
		sess.ID, sess.Name, sess.ExpiresAt.Format(time.RFC3339), len(files))

	return s.ingest(ctx, sess, files)
}

// AddPhotos uploads another batch into an existing, unexpired session.
func (s *Service) AddPhotos(ctx context.Context, id domain.SessionID, files []domain.Upload) (domain.UploadResult, error) {
	release, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return domain.UploadResult{}, err
	}
	defer release()

	sess, err := s.activeSession(ctx, id)
	if err != nil {
		return domain.UploadResult{}, err
	}
	existing, err := s.repo.CountPhotos(ctx, id)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if err := s.checkBatch(existing, len(files)); err != nil {
		return domain.UploadResult{}, err
	}
	return s.ingest(ctx, sess, files)
}

func (s *Service) checkBatch(existing, n int) error {
	if n == 0 {
		return domain.ErrEmptyBatch
	}
	if existing+n > s.cfg.MaxPhotosPerSession {
		return fmt.Errorf("%d existing + %d new > limit %d: %w",
			existing, n, s.cfg.MaxPhotosPerSession, domain.ErrCapacityExceeded)
	}
	return nil
}

func isImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

type candidate struct {
	upload domain.Upload
	thumb  []byte
	err    error
}

// ingest derives thumbnails on a bounded pool, then stores and persists each
// file in batch order. A failed file is compensated and skipped.
func (s *Service) ingest(ctx context.Context, sess domain.Session, files []domain.Upload) (domain.UploadResult, error) {
	res := domain.UploadResult{SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}

	var work []*candidate
	for _, f := range files {
		if !isImage(f.ContentType) {
			res.Skipped++
			s.log.Printf("skip non-image session=%s file=%q content_type=%q", sess.ID, f.Filename, f.ContentType)
			continue
		}
		work = append(work, &candidate{upload: f})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ThumbWorkers)
	for _, c := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.thumb, c.err = s.thumb(c.upload.Data, s.cfg.Thumbnail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	var last time.Time
	for _, c := range work {
		if err := ctx.Err(); err != nil {
			s.log.Printf("ingest aborted session=%s: %v", sess.ID, err)
			break
		}
		if c.err != nil {
			res.Failed++
			s.log.Printf("thumbnail failed session=%s file=%q: %v", sess.ID, c.upload.Filename, c.err)
			continue
		}

		stamp := s.now().UTC().Truncate(time.Microsecond)
		if !stamp.After(last) {
			stamp = last.Add(time.Microsecond)
		}
		if err := s.storePhoto(ctx, sess.ID, c, stamp); err != nil {
			res.Failed++
			s.log.Printf("photo failed session=%s file=%q: %v", sess.ID, c.upload.Filename, err)
			continue
		}
		last = stamp
	}

	// the batch may have been cut short by ctx; the count must still match the rows
	count, err := s.repo.ReconcilePhotoCount(context.WithoutCancel(ctx), sess.ID)
	if err != nil {
		return res, err
	}
	res.PhotoCount = count
	s.log.Printf("ingest done session=%s photo_count=%d skipped=%d failed=%d",
		sess.ID, res.PhotoCount, res.Skipped, res.Failed)
	return res, ctx.Err()
}

func (s *Service) storePhoto(ctx context.Context, sid domain.SessionID, c *candidate, at time.Time) error {
	pid, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("photo id: %w: %v", domain.ErrUnexpected, err)
	}
	origKey, thumbKey := domain.PhotoKeys(sid, pid, c.upload.Filename)
	contentType := strings.TrimSpace(c.upload.ContentType)

	if err := s.store.Put(ctx, origKey, c.upload.Data, contentType); err != nil {
		s.discard(sid, origKey)
		return storageErr("put", origKey, err)
	}
	if err := s.store.Put(ctx, thumbKey, c.thumb, "image/jpeg"); err != nil {
		s.discard(sid, origKey, thumbKey)
		return storageErr("put", thumbKey, err)
	}

	_, err = s.repo.CreatePhoto(ctx, domain.Photo{
		ID:               pid,
		SessionID:        sid,
		OriginalFilename: c.upload.Filename,
		ContentType:      contentType,
		OriginalKey:      origKey,
		ThumbnailKey:     thumbKey,
		UploadedAt:       at,
		FileSize:         int64(len(c.upload.Data)),
	})
	if err != nil {
		s.discard(sid, origKey, thumbKey)
		return err
	}
	return nil
}

// discard removes objects of a file that did not make it into metadata.
func (s *Service) discard(sid domain.SessionID, keys ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Printf("compensating delete failed session=%s key=%s: %v", sid, k, err)
		}
	}
}
