package gallery

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// Archive is a resolved download; WriteTo streams it as a deflate zip.
type Archive struct {
	Filename string
	Session  domain.Session
	photos   []domain.Photo
	svc      *Service
}

type ArchiveStats struct {
	Entries int
	Omitted int
	Bytes   int64
}

// PrepareArchive resolves ids against the session; an empty ids means every
// photo. Ids from other sessions are dropped silently.
func (s *Service) PrepareArchive(ctx context.Context, sid domain.SessionID, ids []domain.PhotoID) (*Archive, error) {
	sess, err := s.activeSession(ctx, sid)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.PhotosBySession(ctx, sid)
	if err != nil {
		return nil, err
	}

	photos := all
	if len(ids) > 0 {
		want := make(map[domain.PhotoID]struct{}, len(ids))
		for _, id := range ids {
			want[id] = struct{}{}
		}
		photos = photos[:0:0]
		for _, p := range all {
			if _, ok := want[p.ID]; ok {
				photos = append(photos, p)
			}
		}
	}
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photos to archive in session %s: %w", sid, domain.ErrNotFound)
	}
	return &Archive{Filename: ArchiveName(sess), Session: sess, photos: photos, svc: s}, nil
}

func (a *Archive) Len() int { return len(a.photos) }

// WriteTo writes nothing and returns ErrNotFound when every entry fails.
// Entries that fail to fetch are omitted.
func (a *Archive) WriteTo(ctx context.Context, w io.Writer) (ArchiveStats, error) {
	var st ArchiveStats
	zw := zip.NewWriter(w)

	for _, p := range a.photos {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		obj, err := a.svc.store.Get(ctx, p.OriginalKey)
		if err != nil {
			st.Omitted++
			a.svc.log.Printf("archive entry omitted session=%s photo=%s: %v", a.Session.ID, p.ID, err)
			continue
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entryName(p),
			Method:   zip.Deflate,
			Modified: p.UploadedAt,
		})
		if err != nil {
			return st, fmt.Errorf("zip header: %w: %v", domain.ErrUnexpected, err)
		}
		n, err := fw.Write(obj.Data)
		st.Bytes += int64(n)
		if err != nil {
			return st, fmt.Errorf("zip write: %w", err)
		}
		st.Entries++
	}

	if st.Entries == 0 {
		return st, fmt.Errorf("every archive entry failed in session %s: %w", a.Session.ID, domain.ErrNotFound)
	}
	if err := zw.Close(); err != nil {
		return st, fmt.Errorf("zip close: %w", err)
	}
	a.svc.log.Printf("archive built session=%s entries=%d omitted=%d bytes=%d",
		a.Session.ID, st.Entries, st.Omitted, st.Bytes)
	return st, nil
}

// ArchiveName is "{session name, whitespace as _}_{first 8 of id}.zip".
func ArchiveName(sess domain.Session) string {
	name := strings.Join(strings.Fields(sess.Name), "_")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "photos"
	}
	return name + "_" + sess.ID.String()[:8] + ".zip"
}

// entryName keeps the uploaded name but drops any directory part.
func entryName(p domain.Photo) string {
	base := path.Base(strings.ReplaceAll(p.OriginalFilename, "\\", "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return p.ID.String() + "." + domain.ExtensionOf(p.OriginalFilename)
	}
	return base
}
