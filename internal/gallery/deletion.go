package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/EgorLis/event-gallery/internal/domain"
)

const deleteTimeout = 2 * time.Minute

type DeleteReport struct {
	SessionID      domain.SessionID `json:"session_id"`
	Photos         int              `json:"photos"`
	ObjectsDeleted int              `json:"objects_deleted"`
	ObjectFailures int              `json:"object_failures"`
}

// DeleteSession removes every object of the session best-effort, then the
// metadata in one transaction. Expired sessions can be deleted too.
func (s *Service) DeleteSession(ctx context.Context, id domain.SessionID) (DeleteReport, error) {
	rep := DeleteReport{SessionID: id}

	release, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return rep, err
	}
	defer release()

	if _, err := s.repo.SessionByID(ctx, id); err != nil {
		return rep, err
	}
	photos, err := s.repo.PhotosBySession(ctx, id)
	if err != nil {
		return rep, err
	}
	rep.Photos = len(photos)

	// once objects start going the metadata must follow, even if the caller leaves
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deleteTimeout)
	defer cancel()

	for _, p := range photos {
		for _, key := range []string{p.OriginalKey, p.ThumbnailKey} {
			if err := s.store.Delete(ctx, key); err != nil {
				rep.ObjectFailures++
				s.log.Printf("delete object failed session=%s key=%s: %v", id, key, err)
				continue
			}
			rep.ObjectsDeleted++
		}
	}

	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return rep, err
	}
	s.log.Printf("session deleted id=%s photos=%d objects_deleted=%d object_failures=%d",
		id, rep.Photos, rep.ObjectsDeleted, rep.ObjectFailures)
	return rep, nil
}

type PurgeReport struct {
	Sessions       int `json:"sessions"`
	Photos         int `json:"photos"`
	ObjectFailures int `json:"object_failures"`
	Errors         int `json:"errors"`
}

// PurgeExpired deletes up to limit sessions whose retention lapsed. It only
// runs when invoked; reads never trigger it.
func (s *Service) PurgeExpired(ctx context.Context, limit int) (PurgeReport, error) {
	var out PurgeReport
	now := s.now()
	ids, err := s.repo.ExpiredSessions(ctx, now, limit)
	if err != nil {
		return out, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rep, err := s.DeleteSession(ctx, id)
		if err != nil {
			out.Errors++
			s.log.Printf("purge session=%s failed: %v", id, err)
			continue
		}
		out.Sessions++
		out.Photos += rep.Photos
		out.ObjectFailures += rep.ObjectFailures
	}
	s.log.Printf("purge done before=%s sessions=%d photos=%d errors=%d",
		now.UTC().Format(time.RFC3339), out.Sessions, out.Photos, out.Errors)
	if out.Errors > 0 && out.Sessions == 0 {
		return out, fmt.Errorf("purge: %d sessions failed: %w", out.Errors, domain.ErrPersistence)
	}
	return out, nil
}
