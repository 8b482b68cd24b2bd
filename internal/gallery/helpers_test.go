package gallery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
	"github.com/EgorLis/event-gallery/internal/infra/database/sqlite"
	"github.com/EgorLis/event-gallery/internal/infra/storage/memory"
)

type harness struct {
	svc   *Service
	repo  *sqlite.Repo
	store *memory.Store
	clock *fakeClock
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)

	repo, err := sqlite.Open(quiet, filepath.Join(t.TempDir(), "gallery.db"))
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	store := memory.New(nil)
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}

	svc := New(cfg, repo, store, NewLocalLocker(10*time.Second), quiet)
	svc.now = clock.Now
	return &harness{svc: svc, repo: repo, store: store, clock: clock}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 30, 20))))
	return buf.Bytes()
}

func imageUploads(t *testing.T, n int) []domain.Upload {
	t.Helper()
	data := jpegBytes(t, 64, 48)
	out := make([]domain.Upload, n)
	for i := range out {
		out[i] = domain.Upload{Filename: fmt.Sprintf("img_%02d.jpg", i), ContentType: "image/jpeg", Data: data}
	}
	return out
}

func (h *harness) createSession(t *testing.T, name string, files []domain.Upload) domain.UploadResult {
	t.Helper()
	res, err := h.svc.CreateSession(context.Background(), domain.NewSession{Name: name}, files)
	require.NoError(t, err)
	return res
}

// requireCountConsistent checks photo_count against the live rows.
func (h *harness) requireCountConsistent(t *testing.T, id domain.SessionID) int {
	t.Helper()
	ctx := context.Background()
	sess, err := h.repo.SessionByID(ctx, id)
	require.NoError(t, err)
	n, err := h.repo.CountPhotos(ctx, id)
	require.NoError(t, err)
	require.Equal(t, n, sess.PhotoCount)
	return n
}
