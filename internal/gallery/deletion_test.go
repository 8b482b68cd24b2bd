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

func TestDeleteSessionIsBestEffortOnObjects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Doomed", imageUploads(t, 3))
	keep := h.createSession(t, "Keep", imageUploads(t, 1))

	photos, err := h.repo.PhotosBySession(ctx, res.SessionID)
	require.NoError(t, err)
	withFace := photos[0].ID
	require.NoError(t, h.repo.SaveFaceDescriptor(ctx, domain.FaceDescriptor{ID: uuid.New(), PhotoID: withFace, Descriptor: []float64{1, 2}}))

	var (
		mu        sync.Mutex
		attempted []string
	)
	h.store.SetFault(func(op memory.Op, key string) error {
		if op != memory.OpDelete {
			return nil
		}
		mu.Lock()
		attempted = append(attempted, key)
		mu.Unlock()
		if key == photos[1].OriginalKey {
			return errors.New("access denied")
		}
		return nil
	})

	rep, err := h.svc.DeleteSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Photos)
	assert.Equal(t, 5, rep.ObjectsDeleted)
	assert.Equal(t, 1, rep.ObjectFailures)
	assert.Len(t, attempted, 6)

	_, err = h.repo.SessionByID(ctx, res.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	n, err := h.repo.CountPhotos(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Zero(t, n)
	faces, err := h.repo.FaceDescriptors(ctx, withFace)
	require.NoError(t, err)
	assert.Empty(t, faces)

	// the failed key leaks, everything else is gone
	assert.Equal(t, []string{photos[1].OriginalKey}, h.store.Keys(domain.SessionPrefix(res.SessionID)))
	assert.Len(t, h.store.Keys(domain.SessionPrefix(keep.SessionID)), 2)
	h.requireCountConsistent(t, keep.SessionID)

	_, err = h.svc.DeleteSession(ctx, res.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteExpiredSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Stale", imageUploads(t, 1))
	h.clock.Advance(10 * 24 * time.Hour)

	rep, err := h.svc.DeleteSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Photos)
	assert.Empty(t, h.store.Keys(domain.SessionPrefix(res.SessionID)))
}

func TestPurgeExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	old := h.createSession(t, "Old", imageUploads(t, 2))
	h.clock.Advance(5 * 24 * time.Hour)
	fresh := h.createSession(t, "Fresh", imageUploads(t, 1))
	h.clock.Advance(3 * 24 * time.Hour)

	rep, err := h.svc.PurgeExpired(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Sessions)
	assert.Equal(t, 2, rep.Photos)

	_, err = h.repo.SessionByID(ctx, old.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.svc.GetSession(ctx, fresh.SessionID)
	require.NoError(t, err)

	for _, k := range h.store.Keys("") {
		assert.True(t, strings.HasPrefix(k, domain.SessionPrefix(fresh.SessionID)), k)
	}
}

func TestReadsDoNotReclaimExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.createSession(t, "Lazy", imageUploads(t, 1))
	h.clock.Advance(8 * 24 * time.Hour)

	_, err := h.svc.GetSession(ctx, res.SessionID)
	require.ErrorIs(t, err, domain.ErrExpired)

	_, err = h.repo.SessionByID(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Len(t, h.store.Keys(domain.SessionPrefix(res.SessionID)), 2)
}

func TestDeleteSessionFinishesAfterCallerCancels(t *testing.T) {
	h := newHarness(t)
	res := h.createSession(t, "Walkout", imageUploads(t, 2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		mu      sync.Mutex
		deletes int
	)
	h.store.SetFault(func(op memory.Op, key string) error {
		if op != memory.OpDelete {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if deletes++; deletes == 2 {
			cancel()
		}
		return nil
	})

	rep, err := h.svc.DeleteSession(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.ObjectsDeleted)
	require.Error(t, ctx.Err())

	bg := context.Background()
	_, err = h.repo.SessionByID(bg, res.SessionID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	n, err := h.repo.CountPhotos(bg, res.SessionID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, h.store.Keys(domain.SessionPrefix(res.SessionID)))
}
