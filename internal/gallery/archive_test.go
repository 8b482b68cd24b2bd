package gallery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/infra/storage/memory"
)

func readZip(t *testing.T, b []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = data
	}
	return out
}

func TestArchiveSelectedOmitsForeignIDs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Team Offsite 2024", imageUploads(t, 3))
	other := h.createSession(t, "Other", imageUploads(t, 1))

	mine, err := h.repo.PhotosBySession(ctx, res.SessionID)
	require.NoError(t, err)
	foreign, err := h.repo.PhotosBySession(ctx, other.SessionID)
	require.NoError(t, err)

	a, err := h.svc.PrepareArchive(ctx, res.SessionID, []domain.PhotoID{mine[1].ID, foreign[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, "Team_Offsite_2024_"+res.SessionID.String()[:8]+".zip", a.Filename)

	var buf bytes.Buffer
	st, err := a.WriteTo(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Entries)

	entries := readZip(t, buf.Bytes())
	require.Len(t, entries, 1)
	assert.Contains(t, entries, mine[1].OriginalFilename)
}

func TestArchiveAllKeepsDuplicateNames(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	files := imageUploads(t, 2)
	files[1].Filename = files[0].Filename
	files[1].Data = pngBytes(t)
	files[1].ContentType = "image/png"
	res := h.createSession(t, "Dupes", files)

	a, err := h.svc.PrepareArchive(ctx, res.SessionID, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = a.WriteTo(ctx, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, zr.File[0].Name, zr.File[1].Name)
}

func TestArchivePartialAndTotalFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Lossy", imageUploads(t, 3))
	photos, err := h.repo.PhotosBySession(ctx, res.SessionID)
	require.NoError(t, err)

	require.NoError(t, h.store.Delete(ctx, photos[0].OriginalKey))
	a, err := h.svc.PrepareArchive(ctx, res.SessionID, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	st, err := a.WriteTo(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 1, st.Omitted)
	assert.Len(t, readZip(t, buf.Bytes()), 2)

	h.store.SetFault(func(op memory.Op, key string) error {
		if op == memory.OpGet && strings.Contains(key, "/originals/") {
			return errors.New("timeout")
		}
		return nil
	})
	buf.Reset()
	_, err = a.WriteTo(ctx, &buf)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, buf.Len())
}

func TestPrepareArchiveNotFound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.PrepareArchive(ctx, uuid.New(), nil)
	require.ErrorIs(t, err, domain.ErrNotFound)

	res := h.createSession(t, "Empty", []domain.Upload{{Filename: "a.txt", ContentType: "text/plain"}})
	_, err = h.svc.PrepareArchive(ctx, res.SessionID, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)

	full := h.createSession(t, "Full", imageUploads(t, 1))
	_, err = h.svc.PrepareArchive(ctx, full.SessionID, []domain.PhotoID{uuid.New()})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestArchiveStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	res := h.createSession(t, "Cancel", imageUploads(t, 2))
	a, err := h.svc.PrepareArchive(context.Background(), res.SessionID, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.WriteTo(ctx, io.Discard)
	require.ErrorIs(t, err, context.Canceled)
}

func TestArchiveName(t *testing.T) {
	id := uuid.MustParse("0190f7a1-2b3c-7d4e-8f90-123456789abc")
	assert.Equal(t, "My_Party_0190f7a1.zip", ArchiveName(domain.Session{ID: id, Name: "  My \tParty "}))
	assert.Equal(t, "a_b_0190f7a1.zip", ArchiveName(domain.Session{ID: id, Name: "a/b"}))
	assert.Equal(t, "photos_0190f7a1.zip", ArchiveName(domain.Session{ID: id}))
}

func TestEntryNameDropsDirectories(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "x.jpg", entryName(domain.Photo{ID: id, OriginalFilename: "../../x.jpg"}))
	assert.Equal(t, "y.png", entryName(domain.Photo{ID: id, OriginalFilename: `C:\pics\y.png`}))
	assert.Equal(t, id.String()+".jpg", entryName(domain.Photo{ID: id, OriginalFilename: ""}))
}
