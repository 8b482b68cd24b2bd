package gallery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/infra/storage/memory"
)

func TestCreateSessionSkipsNonImages(t *testing.T) {
	h := newHarness(t)
	files := imageUploads(t, 3)
	files = append(files,
		domain.Upload{Filename: "notes.txt", ContentType: "text/plain", Data: []byte("hi")},
		domain.Upload{Filename: "readme.md", ContentType: "text/plain", Data: []byte("# hi")},
	)

	res := h.createSession(t, "Summer Party", files)
	assert.Equal(t, 3, res.PhotoCount)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Failed)
	assert.True(t, h.clock.Now().Add(7*24*time.Hour).Equal(res.ExpiresAt))

	assert.Equal(t, 3, h.requireCountConsistent(t, res.SessionID))
	keys := h.store.Keys(domain.SessionPrefix(res.SessionID))
	assert.Len(t, keys, 6)
	for _, k := range keys {
		assert.True(t, strings.HasSuffix(k, ".jpg"), k)
	}
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxPhotosPerSession = 3 })
	ctx := context.Background()

	_, err := h.svc.CreateSession(ctx, domain.NewSession{Name: "x"}, nil)
	require.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = h.svc.CreateSession(ctx, domain.NewSession{Name: "x"}, imageUploads(t, 4))
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, err = h.svc.CreateSession(ctx, domain.NewSession{Name: "  "}, imageUploads(t, 1))
	require.ErrorIs(t, err, domain.ErrBadParams)

	_, err = h.svc.CreateSession(ctx, domain.NewSession{Name: "x", Mode: "open"}, imageUploads(t, 1))
	require.ErrorIs(t, err, domain.ErrBadParams)

	assert.Empty(t, h.store.Keys(""))
}

func TestAllSkippedIsNotAnError(t *testing.T) {
	h := newHarness(t)
	res := h.createSession(t, "Docs only", []domain.Upload{{Filename: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}})
	assert.Zero(t, res.PhotoCount)
	assert.Equal(t, 1, res.Skipped)
	h.requireCountConsistent(t, res.SessionID)
}

func TestAddPhotosCapacityIsAtomic(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxPhotosPerSession = 3 })
	ctx := context.Background()
	res := h.createSession(t, "Cap", imageUploads(t, 2))

	_, err := h.svc.AddPhotos(ctx, res.SessionID, imageUploads(t, 2))
	require.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Equal(t, 2, h.requireCountConsistent(t, res.SessionID))
	assert.Len(t, h.store.Keys(domain.SessionPrefix(res.SessionID)), 4)

	more, err := h.svc.AddPhotos(ctx, res.SessionID, imageUploads(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, more.PhotoCount)
	assert.Equal(t, 3, h.requireCountConsistent(t, res.SessionID))
}

func TestAddPhotosToExpiredOrUnknownSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Old", imageUploads(t, 1))

	_, err := h.svc.AddPhotos(ctx, uuid.New(), imageUploads(t, 1))
	require.ErrorIs(t, err, domain.ErrNotFound)

	h.clock.Advance(8 * 24 * time.Hour)
	_, err = h.svc.AddPhotos(ctx, res.SessionID, imageUploads(t, 1))
	require.ErrorIs(t, err, domain.ErrExpired)
}

func TestCorruptImageIsSkippedWithoutLeftovers(t *testing.T) {
	h := newHarness(t)
	files := imageUploads(t, 2)
	files = append(files, domain.Upload{Filename: "broken.jpg", ContentType: "image/jpeg", Data: []byte("not a jpeg")})

	res := h.createSession(t, "Mixed", files)
	assert.Equal(t, 2, res.PhotoCount)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, h.store.Keys(domain.SessionPrefix(res.SessionID)), 4)
	h.requireCountConsistent(t, res.SessionID)
}

func TestThumbnailPutFailureRemovesOriginal(t *testing.T) {
	h := newHarness(t)
	var once sync.Once
	h.store.SetFault(func(op memory.Op, key string) error {
		var err error
		if op == memory.OpPut && strings.Contains(key, "/thumbnails/") {
			once.Do(func() { err = errors.New("disk full") })
		}
		return err
	})

	res := h.createSession(t, "Flaky", imageUploads(t, 3))
	assert.Equal(t, 2, res.PhotoCount)
	assert.Equal(t, 1, res.Failed)

	keys := h.store.Keys(domain.SessionPrefix(res.SessionID))
	require.Len(t, keys, 4)
	var originals, thumbs int
	for _, k := range keys {
		if strings.Contains(k, "/originals/") {
			originals++
		} else {
			thumbs++
		}
	}
	assert.Equal(t, 2, originals)
	assert.Equal(t, 2, thumbs)
	h.requireCountConsistent(t, res.SessionID)
}

func TestOriginalKeepsExtension(t *testing.T) {
	h := newHarness(t)
	png := domain.Upload{Filename: "Shot.PNG", ContentType: "image/png", Data: pngBytes(t)}
	res := h.createSession(t, "Ext", []domain.Upload{png})

	photos, err := h.repo.PhotosBySession(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.True(t, strings.HasSuffix(photos[0].OriginalKey, "/originals/"+photos[0].ID.String()+".png"))
	assert.True(t, strings.HasSuffix(photos[0].ThumbnailKey, "/thumbnails/"+photos[0].ID.String()+".jpg"))
	assert.Equal(t, "image/png", photos[0].ContentType)
	assert.EqualValues(t, len(png.Data), photos[0].FileSize)
}

func TestConcurrentAddPhotosKeepCount(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MaxPhotosPerSession = 50 })
	res := h.createSession(t, "Busy", imageUploads(t, 1))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AddPhotos(context.Background(), res.SessionID, imageUploads(t, 3))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 13, h.requireCountConsistent(t, res.SessionID))
}

func TestUploadOrderIsStableUnderFrozenClock(t *testing.T) {
	h := newHarness(t)
	files := imageUploads(t, 6)
	res := h.createSession(t, "Frozen", files)

	photos, err := h.repo.PhotosBySession(context.Background(), res.SessionID)
	require.NoError(t, err)
	require.Len(t, photos, 6)
	for i, p := range photos {
		assert.Equal(t, files[i].Filename, p.OriginalFilename)
		if i > 0 {
			assert.True(t, p.UploadedAt.After(photos[i-1].UploadedAt))
		}
	}
}
